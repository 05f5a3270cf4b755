package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/uni-records-api/internal/models"
)

func announcementFixtures() []models.Announcement {
	return []models.Announcement{
		{ID: "a1", Type: models.AnnouncementTypeExam, Audience: models.AnnouncementAudienceStudents, Department: "CS", Featured: true, Urgent: false, Title: "Final exam schedule", Content: "Room assignments for finals"},
		{ID: "a2", Type: models.AnnouncementTypeGeneral, Audience: models.AnnouncementAudienceAll, Department: "CS", Featured: true, Urgent: true, Title: "Campus closure", Content: "Snow day"},
		{ID: "a3", Type: models.AnnouncementTypeExam, Audience: models.AnnouncementAudienceStudents, Department: "MATH", Featured: false, Urgent: false, Title: "Midterm dates", Content: "Exam halls announced"},
		{ID: "a4", Type: models.AnnouncementTypeEvent, Audience: models.AnnouncementAudienceStaff, Department: "", Featured: false, Urgent: false, Title: "Faculty meeting", Content: "Agenda attached"},
	}
}

func filterAnnouncements(c AnnouncementCriteria, in []models.Announcement) []string {
	var ids []string
	for _, a := range in {
		if c.Match(a) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestParseAnnouncementCriteria(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
		want AnnouncementCriteria
	}{
		{
			name: "nil map",
			raw:  nil,
			want: AnnouncementCriteria{},
		},
		{
			name: "empty values are absent criteria",
			raw:  map[string]string{"type": "", "audience": "  ", "featured": ""},
			want: AnnouncementCriteria{},
		},
		{
			name: "unknown keys ignored",
			raw:  map[string]string{"type": "EXAM", "color": "blue", "sort": "desc"},
			want: AnnouncementCriteria{Type: "EXAM"},
		},
		{
			name: "boolean flags require explicit true or false",
			raw:  map[string]string{"featured": "yes", "urgent": "1"},
			want: AnnouncementCriteria{},
		},
		{
			name: "all recognized keys",
			raw: map[string]string{
				"type": "EXAM", "audience": "STUDENTS", "department": "CS",
				"featured": "true", "urgent": "false", "search": "final",
			},
			want: AnnouncementCriteria{
				Type: "EXAM", Audience: "STUDENTS", Department: "CS",
				Featured: boolPtr(true), Urgent: boolPtr(false), Search: "final",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAnnouncementCriteria(tt.raw))
		})
	}
}

func TestAnnouncementCriteriaMatch(t *testing.T) {
	fixtures := announcementFixtures()

	tests := []struct {
		name string
		raw  map[string]string
		want []string
	}{
		{
			name: "no criteria matches everything",
			raw:  map[string]string{},
			want: []string{"a1", "a2", "a3", "a4"},
		},
		{
			name: "type is case-insensitive",
			raw:  map[string]string{"type": "exam"},
			want: []string{"a1", "a3"},
		},
		{
			name: "criteria combine with AND",
			raw:  map[string]string{"type": "EXAM", "department": "CS"},
			want: []string{"a1"},
		},
		{
			name: "featured with search over title and content",
			raw:  map[string]string{"featured": "true", "search": "exam"},
			want: []string{"a1"},
		},
		{
			name: "explicit false selects non-featured",
			raw:  map[string]string{"featured": "false"},
			want: []string{"a3", "a4"},
		},
		{
			name: "search hits content too",
			raw:  map[string]string{"search": "halls"},
			want: []string{"a3"},
		},
		{
			name: "urgent true",
			raw:  map[string]string{"urgent": "true"},
			want: []string{"a2"},
		},
		{
			name: "no match",
			raw:  map[string]string{"type": "EXAM", "audience": "STAFF"},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria := ParseAnnouncementCriteria(tt.raw)
			assert.Equal(t, tt.want, filterAnnouncements(criteria, fixtures))
		})
	}
}

func TestDepartmentCriteriaMatch(t *testing.T) {
	departments := []models.Department{
		{ID: "d1", Code: "CS", Name: "Computer Science", Description: "Programs in computing"},
		{ID: "d2", Code: "MATH", Name: "Mathematics", Description: "Pure and applied mathematics"},
		{ID: "d3", Code: "PHYS", Name: "Physics", Description: "Experimental and theoretical physics"},
	}
	filter := func(c DepartmentCriteria) []string {
		var ids []string
		for _, d := range departments {
			if c.Match(d) {
				ids = append(ids, d.ID)
			}
		}
		return ids
	}

	assert.Equal(t, []string{"d1", "d2", "d3"}, filter(ParseDepartmentCriteria(nil)))
	assert.Equal(t, []string{"d1"}, filter(ParseDepartmentCriteria(map[string]string{"code": "cs"})))
	assert.Equal(t, []string{"d2"}, filter(ParseDepartmentCriteria(map[string]string{"search": "applied"})))
	assert.Equal(t, []string{"d2", "d3"}, filter(ParseDepartmentCriteria(map[string]string{"search": "s"})))
	assert.Equal(t, []string{"d1"}, filter(ParseDepartmentCriteria(map[string]string{"code": "CS", "search": "computing"})))
	assert.Nil(t, filter(ParseDepartmentCriteria(map[string]string{"code": "BIO"})))
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name               string
		total, page, limit int
		wantLo, wantHi     int
	}{
		{"first page", 10, 1, 3, 0, 3},
		{"middle page", 10, 2, 3, 3, 6},
		{"short last page", 10, 4, 3, 9, 10},
		{"page past the end", 10, 5, 3, 10, 10},
		{"zero limit returns everything", 10, 1, 0, 0, 10},
		{"page below one clamps to first", 10, 0, 4, 0, 4},
		{"empty set", 0, 1, 20, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := PageBounds(tt.total, tt.page, tt.limit)
			assert.Equal(t, tt.wantLo, lo)
			assert.Equal(t, tt.wantHi, hi)
		})
	}
}

func TestPageInfo(t *testing.T) {
	info := PageInfo(25, 2, 10)
	assert.Equal(t, 2, info.Page)
	assert.Equal(t, 10, info.PageSize)
	assert.Equal(t, 25, info.TotalCount)

	info = PageInfo(7, 3, 0)
	assert.Equal(t, 1, info.Page)
	assert.Equal(t, 7, info.PageSize)
	assert.Equal(t, 7, info.TotalCount)
}

func boolPtr(v bool) *bool { return &v }
