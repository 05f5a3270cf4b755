package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-records-api/internal/service"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
	"github.com/noah-isme/uni-records-api/pkg/response"
)

// ExaminationHandler exposes examination endpoints.
type ExaminationHandler struct {
	examinations *service.ExaminationService
}

// NewExaminationHandler constructs ExaminationHandler.
func NewExaminationHandler(examinations *service.ExaminationService) *ExaminationHandler {
	return &ExaminationHandler{examinations: examinations}
}

// List godoc
// @Summary List examinations
// @Tags Examinations
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /examinations [get]
func (h *ExaminationHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	exams, pagination, err := h.examinations.List(c.Request.Context(), c.Query("courseId"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, pagination)
}

// Get godoc
// @Summary Get examination detail
// @Tags Examinations
// @Produce json
// @Param id path string true "Examination ID"
// @Success 200 {object} response.Envelope
// @Router /examinations/{id} [get]
func (h *ExaminationHandler) Get(c *gin.Context) {
	exam, err := h.examinations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Create godoc
// @Summary Create examination
// @Tags Examinations
// @Accept json
// @Produce json
// @Param payload body service.CreateExaminationRequest true "Examination payload"
// @Success 201 {object} response.Envelope
// @Router /examinations [post]
func (h *ExaminationHandler) Create(c *gin.Context) {
	var req service.CreateExaminationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.examinations.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// Update godoc
// @Summary Update examination
// @Tags Examinations
// @Accept json
// @Produce json
// @Param id path string true "Examination ID"
// @Param payload body service.UpdateExaminationRequest true "Examination payload"
// @Success 200 {object} response.Envelope
// @Router /examinations/{id} [put]
func (h *ExaminationHandler) Update(c *gin.Context) {
	var req service.UpdateExaminationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.examinations.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Delete godoc
// @Summary Delete examination
// @Tags Examinations
// @Param id path string true "Examination ID"
// @Success 204
// @Router /examinations/{id} [delete]
func (h *ExaminationHandler) Delete(c *gin.Context) {
	if err := h.examinations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
