package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/store"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

func newExaminationFixture(t *testing.T) (*ExaminationService, string) {
	t.Helper()
	mem := store.NewMemory()
	courses := NewCourseService(mem, &stubEdgeManager{}, nil, nil)
	course, err := courses.Create(context.Background(), CreateCourseRequest{
		Code: "CS101", Title: "Intro", MaxCapacity: 40,
	})
	require.NoError(t, err)
	return NewExaminationService(mem, nil, nil), course.ID
}

func TestExaminationServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, courseID := newExaminationFixture(t)

	exam, err := svc.Create(ctx, CreateExaminationRequest{
		CourseID:        courseID,
		Title:           "Final",
		Room:            "A-204",
		ScheduledAt:     time.Date(2026, 12, 14, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, courseID, exam.CourseID)

	// The referenced course must exist.
	_, err = svc.Create(ctx, CreateExaminationRequest{
		CourseID:        "ghost",
		Title:           "Final",
		ScheduledAt:     time.Now(),
		DurationMinutes: 60,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = svc.Create(ctx, CreateExaminationRequest{CourseID: courseID, Title: "No schedule"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestExaminationServiceListByCourse(t *testing.T) {
	ctx := context.Background()
	svc, courseID := newExaminationFixture(t)

	for _, title := range []string{"Midterm", "Final"} {
		_, err := svc.Create(ctx, CreateExaminationRequest{
			CourseID:        courseID,
			Title:           title,
			ScheduledAt:     time.Now().Add(24 * time.Hour),
			DurationMinutes: 90,
		})
		require.NoError(t, err)
	}

	all, pagination, err := svc.List(ctx, "", 1, 20)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, pagination.TotalCount)

	filtered, _, err := svc.List(ctx, courseID, 1, 20)
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	none, _, err := svc.List(ctx, "other-course", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExaminationServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, courseID := newExaminationFixture(t)

	created, err := svc.Create(ctx, CreateExaminationRequest{
		CourseID:        courseID,
		Title:           "Final",
		ScheduledAt:     time.Date(2026, 12, 14, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 120,
	})
	require.NoError(t, err)

	moved := time.Date(2026, 12, 16, 13, 0, 0, 0, time.UTC)
	updated, err := svc.Update(ctx, created.ID, UpdateExaminationRequest{Room: "B-101", ScheduledAt: &moved})
	require.NoError(t, err)
	assert.Equal(t, "B-101", updated.Room)
	assert.True(t, updated.ScheduledAt.Equal(moved))
	assert.Equal(t, 120, updated.DurationMinutes)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
