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
	"github.com/noah-isme/uni-records-api/internal/relation"
	"github.com/noah-isme/uni-records-api/internal/store"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

// CreateCourseRequest describes course creation.
type CreateCourseRequest struct {
	Code        string `json:"code" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Department  string `json:"department"`
	Credits     int    `json:"credits" validate:"omitempty,min=0"`
	MaxCapacity int    `json:"max_capacity" validate:"required,min=1"`
}

// UpdateCourseRequest describes a partial course update. The enrolled
// student set is deliberately absent: only the relation manager writes it.
type UpdateCourseRequest struct {
	Title       string `json:"title"`
	Department  string `json:"department"`
	Credits     *int   `json:"credits" validate:"omitempty,min=0"`
	MaxCapacity *int   `json:"max_capacity" validate:"omitempty,min=1"`
}

// EnrollmentResult reports an edge operation back to the client. The
// idempotent no-op outcomes surface here as successes with the outcome flag,
// never as errors.
type EnrollmentResult struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Outcome   string `json:"outcome"`
}

// CourseService handles course CRUD plus the enroll/unenroll entry points.
type CourseService struct {
	store     store.Store
	relations edgeManager
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(st store.Store, relations edgeManager, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{store: st, relations: relations, validator: validate, logger: logger}
}

// Create registers a new course record.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	taken, err := s.codeTaken(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already in use")
	}

	now := time.Now().UTC()
	course := models.Course{
		ID:                 uuid.NewString(),
		Code:               req.Code,
		Title:              req.Title,
		Department:         req.Department,
		Credits:            req.Credits,
		MaxCapacity:        req.MaxCapacity,
		EnrolledStudentIDs: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	data, err := store.Encode(course)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Put(ctx, store.KindCourse, course.ID, data, 0); err != nil {
		return nil, err
	}
	return &course, nil
}

// Get returns a course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	doc, err := s.store.Get(ctx, store.KindCourse, id)
	if err != nil {
		return nil, err
	}
	var course models.Course
	if err := store.Decode(doc, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses page by page.
func (s *CourseService) List(ctx context.Context, page, limit int) ([]models.Course, *models.Pagination, error) {
	docs, err := s.store.List(ctx, store.KindCourse)
	if err != nil {
		return nil, nil, err
	}
	courses := make([]models.Course, 0, len(docs))
	for _, doc := range docs {
		var course models.Course
		if err := store.Decode(doc, &course); err != nil {
			return nil, nil, err
		}
		courses = append(courses, course)
	}
	lo, hi := query.PageBounds(len(courses), page, limit)
	return courses[lo:hi], query.PageInfo(len(courses), page, limit), nil
}

// Update applies a partial update. Shrinking capacity below the committed
// enrolled count is rejected, otherwise the capacity invariant would be
// violated by a CRUD write the relation manager never saw.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	var updated models.Course
	err := mutateDocument(ctx, s.store, store.KindCourse, id, func(doc store.Document) (json.RawMessage, error) {
		var course models.Course
		if err := store.Decode(doc, &course); err != nil {
			return nil, err
		}
		if req.Title != "" {
			course.Title = req.Title
		}
		if req.Department != "" {
			course.Department = req.Department
		}
		if req.Credits != nil {
			course.Credits = *req.Credits
		}
		if req.MaxCapacity != nil {
			if *req.MaxCapacity < course.EnrolledCount() {
				return nil, appErrors.Clone(appErrors.ErrValidation, "max capacity below current enrollment")
			}
			course.MaxCapacity = *req.MaxCapacity
		}
		course.UpdatedAt = time.Now().UTC()
		updated = course
		return store.Encode(course)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a course after cascading away its enrollment edges.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	return s.relations.CascadeOnDelete(ctx, relation.EntityCourse, id)
}

// Enroll adds a student to a course through the relation manager.
func (s *CourseService) Enroll(ctx context.Context, courseID, studentID string) (*EnrollmentResult, error) {
	outcome, err := s.relations.Enroll(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	return &EnrollmentResult{StudentID: studentID, CourseID: courseID, Outcome: string(outcome)}, nil
}

// Unenroll removes a student from a course through the relation manager.
func (s *CourseService) Unenroll(ctx context.Context, courseID, studentID string) (*EnrollmentResult, error) {
	outcome, err := s.relations.Unenroll(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	return &EnrollmentResult{StudentID: studentID, CourseID: courseID, Outcome: string(outcome)}, nil
}

func (s *CourseService) codeTaken(ctx context.Context, code string) (bool, error) {
	docs, err := s.store.List(ctx, store.KindCourse)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		var course models.Course
		if err := store.Decode(doc, &course); err != nil {
			return false, err
		}
		if course.Code == code {
			return true, nil
		}
	}
	return false, nil
}
