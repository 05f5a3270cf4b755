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

// edgeManager is the slice of the relation manager the CRUD facade consumes.
type edgeManager interface {
	Enroll(ctx context.Context, studentID, courseID string) (relation.Outcome, error)
	Unenroll(ctx context.Context, studentID, courseID string) (relation.Outcome, error)
	CascadeOnDelete(ctx context.Context, kind relation.EntityKind, id string) error
}

// CreateStudentRequest describes student creation.
type CreateStudentRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Department string `json:"department"`
	Status     string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
}

// UpdateStudentRequest describes a partial student update. Empty fields are
// left unchanged. The enrolled course set is deliberately absent: only the
// relation manager writes it.
type UpdateStudentRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Department string `json:"department"`
	Status     string `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
}

// StudentService handles student CRUD against the entity store, delegating
// relational concerns to the relation manager.
type StudentService struct {
	store     store.Store
	relations edgeManager
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(st store.Store, relations edgeManager, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{store: st, relations: relations, validator: validate, logger: logger}
}

// Create registers a new student record.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	taken, err := s.studentIDTaken(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student id already in use")
	}

	now := time.Now().UTC()
	student := models.Student{
		ID:                uuid.NewString(),
		StudentID:         req.StudentID,
		FullName:          req.FullName,
		Email:             req.Email,
		Department:        req.Department,
		Status:            models.StudentStatusActive,
		EnrolledCourseIDs: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.Status != "" {
		student.Status = models.StudentStatus(req.Status)
	}

	data, err := store.Encode(student)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Put(ctx, store.KindStudent, student.ID, data, 0); err != nil {
		return nil, err
	}
	return &student, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	doc, err := s.store.Get(ctx, store.KindStudent, id)
	if err != nil {
		return nil, err
	}
	var student models.Student
	if err := store.Decode(doc, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students page by page, insertion order by id.
func (s *StudentService) List(ctx context.Context, page, limit int) ([]models.Student, *models.Pagination, error) {
	docs, err := s.store.List(ctx, store.KindStudent)
	if err != nil {
		return nil, nil, err
	}
	students := make([]models.Student, 0, len(docs))
	for _, doc := range docs {
		var student models.Student
		if err := store.Decode(doc, &student); err != nil {
			return nil, nil, err
		}
		students = append(students, student)
	}
	lo, hi := query.PageBounds(len(students), page, limit)
	return students[lo:hi], query.PageInfo(len(students), page, limit), nil
}

// Update applies a partial update, preserving the enrolled course set.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	var updated models.Student
	err := mutateDocument(ctx, s.store, store.KindStudent, id, func(doc store.Document) (json.RawMessage, error) {
		var student models.Student
		if err := store.Decode(doc, &student); err != nil {
			return nil, err
		}
		if req.FullName != "" {
			student.FullName = req.FullName
		}
		if req.Email != "" {
			student.Email = req.Email
		}
		if req.Department != "" {
			student.Department = req.Department
		}
		if req.Status != "" {
			student.Status = models.StudentStatus(req.Status)
		}
		student.UpdatedAt = time.Now().UTC()
		updated = student
		return store.Encode(student)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a student after cascading away every enrollment edge that
// points at them.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	return s.relations.CascadeOnDelete(ctx, relation.EntityStudent, id)
}

func (s *StudentService) studentIDTaken(ctx context.Context, studentID string) (bool, error) {
	docs, err := s.store.List(ctx, store.KindStudent)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		var student models.Student
		if err := store.Decode(doc, &student); err != nil {
			return false, err
		}
		if student.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}
