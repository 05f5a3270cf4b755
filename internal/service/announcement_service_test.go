package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-records-api/internal/models"
	"github.com/noah-isme/uni-records-api/internal/query"
	"github.com/noah-isme/uni-records-api/internal/store"
	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

func seedAnnouncements(t *testing.T, svc *AnnouncementService) {
	t.Helper()
	ctx := context.Background()
	fixtures := []CreateAnnouncementRequest{
		{Title: "Final exam schedule", Content: "Rooms for finals", Type: "EXAM", Audience: "STUDENTS", Department: "CS", Featured: true},
		{Title: "Campus closure", Content: "Snow day", Urgent: true},
		{Title: "Midterm dates", Content: "Exam halls announced", Type: "EXAM", Audience: "STUDENTS", Department: "MATH"},
		{Title: "Guest lecture", Content: "Distributed systems talk", Type: "EVENT", Department: "CS"},
	}
	for _, req := range fixtures {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}
}

func TestAnnouncementServiceCreateDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewAnnouncementService(store.NewMemory(), nil, nil, nil)

	announcement, err := svc.Create(ctx, CreateAnnouncementRequest{Title: "Hello", Content: "World"})
	require.NoError(t, err)
	assert.Equal(t, models.AnnouncementTypeGeneral, announcement.Type)
	assert.Equal(t, models.AnnouncementAudienceAll, announcement.Audience)
	assert.False(t, announcement.Featured)

	_, err = svc.Create(ctx, CreateAnnouncementRequest{Title: "No content"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, CreateAnnouncementRequest{Title: "Bad type", Content: "x", Type: "RUMOR"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestAnnouncementServiceListFilters(t *testing.T) {
	ctx := context.Background()
	svc := NewAnnouncementService(store.NewMemory(), nil, nil, nil)
	seedAnnouncements(t, svc)

	titles := func(items []models.Announcement) []string {
		var out []string
		for _, a := range items {
			out = append(out, a.Title)
		}
		return out
	}

	all, pagination, err := svc.List(ctx, nil, 1, 20)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, 4, pagination.TotalCount)

	exams, _, err := svc.List(ctx, map[string]string{"type": "EXAM"}, 1, 20)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Final exam schedule", "Midterm dates"}, titles(exams))

	featured, _, err := svc.List(ctx, map[string]string{"featured": "true", "search": "exam"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"Final exam schedule"}, titles(featured))

	// Unknown keys and empty values do not restrict anything.
	loose, _, err := svc.List(ctx, map[string]string{"type": "", "color": "blue"}, 1, 20)
	require.NoError(t, err)
	assert.Len(t, loose, 4)
}

func TestAnnouncementServiceListPaginatesAfterFiltering(t *testing.T) {
	ctx := context.Background()
	svc := NewAnnouncementService(store.NewMemory(), nil, nil, nil)
	seedAnnouncements(t, svc)

	page, pagination, err := svc.List(ctx, map[string]string{"department": "CS"}, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 1, pagination.PageSize)

	page, _, err = svc.List(ctx, map[string]string{"department": "CS"}, 3, 1)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestAnnouncementServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewAnnouncementService(store.NewMemory(), nil, nil, nil)

	created, err := svc.Create(ctx, CreateAnnouncementRequest{Title: "Draft", Content: "Body", Featured: true})
	require.NoError(t, err)

	off := false
	updated, err := svc.Update(ctx, created.ID, UpdateAnnouncementRequest{Title: "Published", Featured: &off})
	require.NoError(t, err)
	assert.Equal(t, "Published", updated.Title)
	assert.Equal(t, "Body", updated.Content)
	assert.False(t, updated.Featured)

	_, err = svc.Update(ctx, "ghost", UpdateAnnouncementRequest{Title: "X"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestAnnouncementServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewAnnouncementService(store.NewMemory(), nil, nil, nil)

	created, err := svc.Create(ctx, CreateAnnouncementRequest{Title: "Gone soon", Content: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	err = svc.Delete(ctx, created.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestAnnouncementCacheKeyStable(t *testing.T) {
	a := query.ParseAnnouncementCriteria(map[string]string{"type": "EXAM", "featured": "true"})
	b := query.ParseAnnouncementCriteria(map[string]string{"featured": "true", "type": "EXAM", "ignored": "x"})
	assert.Equal(t, announcementCacheKey(a, 1, 20), announcementCacheKey(b, 1, 20))
	assert.NotEqual(t, announcementCacheKey(a, 1, 20), announcementCacheKey(a, 2, 20))

	// An absent flag and an explicit false must produce distinct snapshots.
	c := query.ParseAnnouncementCriteria(map[string]string{"type": "EXAM", "featured": "false"})
	d := query.ParseAnnouncementCriteria(map[string]string{"type": "EXAM"})
	assert.NotEqual(t, announcementCacheKey(c, 1, 20), announcementCacheKey(d, 1, 20))

	// Criteria values carrying delimiter characters must stay distinct.
	e := query.ParseAnnouncementCriteria(map[string]string{"type": "x|a=y", "audience": "z"})
	f := query.ParseAnnouncementCriteria(map[string]string{"type": "x", "audience": "y|a=z"})
	assert.NotEqual(t, announcementCacheKey(e, 1, 20), announcementCacheKey(f, 1, 20))

	g := query.ParseAnnouncementCriteria(map[string]string{"search": "a&page=2"})
	h := query.ParseAnnouncementCriteria(map[string]string{"search": "a"})
	assert.NotEqual(t, announcementCacheKey(g, 2, 20), announcementCacheKey(h, 2, 20))
}
