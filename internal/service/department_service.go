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

// CreateDepartmentRequest describes department creation.
type CreateDepartmentRequest struct {
	Code        string `json:"code" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Head        string `json:"head"`
}

// UpdateDepartmentRequest describes a partial department update.
type UpdateDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Head        string `json:"head"`
}

// DepartmentService handles department CRUD and filtered listings.
type DepartmentService struct {
	store     store.Store
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs DepartmentService.
func NewDepartmentService(st store.Store, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{store: st, validator: validate, logger: logger}
}

// Create stores a new department.
func (s *DepartmentService) Create(ctx context.Context, req CreateDepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	taken, err := s.codeTaken(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "department code already in use")
	}

	now := time.Now().UTC()
	department := models.Department{
		ID:          uuid.NewString(),
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Head:        req.Head,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	data, err := store.Encode(department)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Put(ctx, store.KindDepartment, department.ID, data, 0); err != nil {
		return nil, err
	}
	return &department, nil
}

// Get returns a department by id.
func (s *DepartmentService) Get(ctx context.Context, id string) (*models.Department, error) {
	doc, err := s.store.Get(ctx, store.KindDepartment, id)
	if err != nil {
		return nil, err
	}
	var department models.Department
	if err := store.Decode(doc, &department); err != nil {
		return nil, err
	}
	return &department, nil
}

// List returns departments matching the raw criteria mapping, paginated
// after filtering.
func (s *DepartmentService) List(ctx context.Context, raw map[string]string, page, limit int) ([]models.Department, *models.Pagination, error) {
	criteria := query.ParseDepartmentCriteria(raw)

	docs, err := s.store.List(ctx, store.KindDepartment)
	if err != nil {
		return nil, nil, err
	}
	matched := make([]models.Department, 0, len(docs))
	for _, doc := range docs {
		var department models.Department
		if err := store.Decode(doc, &department); err != nil {
			return nil, nil, err
		}
		if criteria.Match(department) {
			matched = append(matched, department)
		}
	}

	lo, hi := query.PageBounds(len(matched), page, limit)
	return matched[lo:hi], query.PageInfo(len(matched), page, limit), nil
}

// Update applies a partial update. The code is immutable once assigned.
func (s *DepartmentService) Update(ctx context.Context, id string, req UpdateDepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	var updated models.Department
	err := mutateDocument(ctx, s.store, store.KindDepartment, id, func(doc store.Document) (json.RawMessage, error) {
		var department models.Department
		if err := store.Decode(doc, &department); err != nil {
			return nil, err
		}
		if req.Name != "" {
			department.Name = req.Name
		}
		if req.Description != "" {
			department.Description = req.Description
		}
		if req.Head != "" {
			department.Head = req.Head
		}
		department.UpdatedAt = time.Now().UTC()
		updated = department
		return store.Encode(department)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a department. Student and course records reference
// departments by name only, so no cascade is involved.
func (s *DepartmentService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, store.KindDepartment, id, store.VersionAny)
}

func (s *DepartmentService) codeTaken(ctx context.Context, code string) (bool, error) {
	docs, err := s.store.List(ctx, store.KindDepartment)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		var department models.Department
		if err := store.Decode(doc, &department); err != nil {
			return false, err
		}
		if department.Code == code {
			return true, nil
		}
	}
	return false, nil
}
