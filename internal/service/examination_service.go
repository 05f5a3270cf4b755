package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/query"
	"github.com/noah-isme/uni-records-api/internal/store"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

// CreateExaminationRequest describes examination creation.
type CreateExaminationRequest struct {
	CourseID        string    `json:"course_id" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	Room            string    `json:"room"`
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,min=1"`
}

// UpdateExaminationRequest describes a partial examination update.
type UpdateExaminationRequest struct {
	Title           string     `json:"title"`
	Room            string     `json:"room"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,min=1"`
}

// ExaminationService handles examination CRUD. Examinations reference a
// course but take no part in the enrollment edge set.
type ExaminationService struct {
	store     store.Store
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExaminationService constructs ExaminationService.
func NewExaminationService(st store.Store, validate *validator.Validate, logger *zap.Logger) *ExaminationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExaminationService{store: st, validator: validate, logger: logger}
}

// Create stores a new examination after checking its course exists.
func (s *ExaminationService) Create(ctx context.Context, req CreateExaminationRequest) (*models.Examination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid examination payload")
	}
	if _, err := s.store.Get(ctx, store.KindCourse, req.CourseID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	exam := models.Examination{
		ID:              uuid.NewString(),
		CourseID:        req.CourseID,
		Title:           req.Title,
		Room:            req.Room,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	data, err := store.Encode(exam)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Put(ctx, store.KindExamination, exam.ID, data, 0); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Get returns an examination by id.
func (s *ExaminationService) Get(ctx context.Context, id string) (*models.Examination, error) {
	doc, err := s.store.Get(ctx, store.KindExamination, id)
	if err != nil {
		return nil, err
	}
	var exam models.Examination
	if err := store.Decode(doc, &exam); err != nil {
		return nil, err
	}
	return &exam, nil
}

// List returns examinations, optionally restricted to one course.
func (s *ExaminationService) List(ctx context.Context, courseID string, page, limit int) ([]models.Examination, *models.Pagination, error) {
	docs, err := s.store.List(ctx, store.KindExamination)
	if err != nil {
		return nil, nil, err
	}
	exams := make([]models.Examination, 0, len(docs))
	for _, doc := range docs {
		var exam models.Examination
		if err := store.Decode(doc, &exam); err != nil {
			return nil, nil, err
		}
		if courseID != "" && exam.CourseID != courseID {
			continue
		}
		exams = append(exams, exam)
	}
	lo, hi := query.PageBounds(len(exams), page, limit)
	return exams[lo:hi], query.PageInfo(len(exams), page, limit), nil
}

// Update applies a partial update.
func (s *ExaminationService) Update(ctx context.Context, id string, req UpdateExaminationRequest) (*models.Examination, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid examination payload")
	}
	var updated models.Examination
	err := mutateDocument(ctx, s.store, store.KindExamination, id, func(doc store.Document) (json.RawMessage, error) {
		var exam models.Examination
		if err := store.Decode(doc, &exam); err != nil {
			return nil, err
		}
		if req.Title != "" {
			exam.Title = req.Title
		}
		if req.Room != "" {
			exam.Room = req.Room
		}
		if req.ScheduledAt != nil {
			exam.ScheduledAt = *req.ScheduledAt
		}
		if req.DurationMinutes != nil {
			exam.DurationMinutes = *req.DurationMinutes
		}
		exam.UpdatedAt = time.Now().UTC()
		updated = exam
		return store.Encode(exam)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an examination.
func (s *ExaminationService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, store.KindExamination, id, store.VersionAny)
}
