package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/relation"
	"github.com/noah-isme/uni-records-api/internal/store"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

func TestCourseServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc := NewCourseService(store.NewMemory(), &stubEdgeManager{}, nil, nil)

	course, err := svc.Create(ctx, CreateCourseRequest{
		Code:        "CS101",
		Title:       "Intro to Computing",
		Department:  "CS",
		Credits:     3,
		MaxCapacity: 40,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, course.ID)
	assert.Equal(t, 0, course.EnrolledCount())

	_, err = svc.Create(ctx, CreateCourseRequest{Code: "CS101", Title: "Duplicate", MaxCapacity: 10})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestCourseServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewCourseService(store.NewMemory(), &stubEdgeManager{}, nil, nil)

	_, err := svc.Create(ctx, CreateCourseRequest{Code: "CS101", Title: "No capacity"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, CreateCourseRequest{Title: "No code", MaxCapacity: 10})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestCourseServiceUpdateCapacityFloor(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewCourseService(mem, &stubEdgeManager{}, nil, nil)

	created, err := svc.Create(ctx, CreateCourseRequest{Code: "CS101", Title: "Intro", MaxCapacity: 10})
	require.NoError(t, err)

	// Two committed enrollments, written the way the relation manager would.
	doc, err := mem.Get(ctx, store.KindCourse, created.ID)
	require.NoError(t, err)
	var onDisk models.Course
	require.NoError(t, store.Decode(doc, &onDisk))
	onDisk.EnrolledStudentIDs = []string{"s1", "s2"}
	data, err := store.Encode(onDisk)
	require.NoError(t, err)
	_, err = mem.Put(ctx, store.KindCourse, created.ID, data, doc.Version)
	require.NoError(t, err)

	one := 1
	_, err = svc.Update(ctx, created.ID, UpdateCourseRequest{MaxCapacity: &one})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	two := 2
	updated, err := svc.Update(ctx, created.ID, UpdateCourseRequest{MaxCapacity: &two})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MaxCapacity)
	assert.Equal(t, []string{"s1", "s2"}, updated.EnrolledStudentIDs)
}

func TestCourseServiceEnrollDelegates(t *testing.T) {
	ctx := context.Background()
	edges := &stubEdgeManager{enrollOutcome: relation.OutcomeEnrolled}
	svc := NewCourseService(store.NewMemory(), edges, nil, nil)

	result, err := svc.Enroll(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", result.StudentID)
	assert.Equal(t, "c1", result.CourseID)
	assert.Equal(t, string(relation.OutcomeEnrolled), result.Outcome)
	require.Len(t, edges.enrolls, 1)
	assert.Equal(t, [2]string{"s1", "c1"}, edges.enrolls[0])
}

func TestCourseServiceEnrollPassesErrorsThrough(t *testing.T) {
	ctx := context.Background()
	edges := &stubEdgeManager{enrollErr: appErrors.Clone(appErrors.ErrCapacityExceeded, "")}
	svc := NewCourseService(store.NewMemory(), edges, nil, nil)

	_, err := svc.Enroll(ctx, "c1", "s1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded))
}

func TestCourseServiceUnenrollDelegates(t *testing.T) {
	ctx := context.Background()
	edges := &stubEdgeManager{unenrollOutcome: relation.OutcomeNotEnrolled}
	svc := NewCourseService(store.NewMemory(), edges, nil, nil)

	result, err := svc.Unenroll(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, string(relation.OutcomeNotEnrolled), result.Outcome)
}

func TestCourseServiceDeleteCascades(t *testing.T) {
	edges := &stubEdgeManager{}
	svc := NewCourseService(store.NewMemory(), edges, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "c1"))
	require.Len(t, edges.cascades, 1)
	assert.Equal(t, relation.EntityCourse, edges.cascades[0].Kind)
	assert.Equal(t, "c1", edges.cascades[0].ID)
}
