// Package query builds list predicates from loosely-typed filter criteria.
// Criteria arrive as a string mapping (query parameters); only the keys
// enumerated per resource are interpreted, empty values are dropped, and
// everything else is ignored so new dashboard filters never break older
// servers. Present criteria combine with AND; the free-text search term is
// an OR over a fixed set of text fields.
package query

import (
	"strings"

	"github.com/noah-isme/uni-records-api/internal/models"
)

// AnnouncementCriteria is the closed filter set for announcement listings.
type AnnouncementCriteria struct {
	Type       string
	Audience   string
	Department string
	Featured   *bool
	Urgent     *bool
	Search     string
}

// DepartmentCriteria is the closed filter set for department listings.
type DepartmentCriteria struct {
	Code   string
	Search string
}

// ParseAnnouncementCriteria extracts recognized announcement filters from a
// raw key/value mapping. Unknown keys and empty values are dropped; boolean
// flags participate only when given explicitly as true or false.
func ParseAnnouncementCriteria(raw map[string]string) AnnouncementCriteria {
	return AnnouncementCriteria{
		Type:       strings.TrimSpace(raw["type"]),
		Audience:   strings.TrimSpace(raw["audience"]),
		Department: strings.TrimSpace(raw["department"]),
		Featured:   parseFlag(raw["featured"]),
		Urgent:     parseFlag(raw["urgent"]),
		Search:     strings.TrimSpace(raw["search"]),
	}
}

// ParseDepartmentCriteria extracts recognized department filters from a raw
// key/value mapping.
func ParseDepartmentCriteria(raw map[string]string) DepartmentCriteria {
	return DepartmentCriteria{
		Code:   strings.TrimSpace(raw["code"]),
		Search: strings.TrimSpace(raw["search"]),
	}
}

// Match reports whether the announcement satisfies every present criterion.
func (c AnnouncementCriteria) Match(a models.Announcement) bool {
	if c.Type != "" && !strings.EqualFold(string(a.Type), c.Type) {
		return false
	}
	if c.Audience != "" && !strings.EqualFold(string(a.Audience), c.Audience) {
		return false
	}
	if c.Department != "" && !strings.EqualFold(a.Department, c.Department) {
		return false
	}
	if c.Featured != nil && a.Featured != *c.Featured {
		return false
	}
	if c.Urgent != nil && a.Urgent != *c.Urgent {
		return false
	}
	if c.Search != "" && !matchesAny(c.Search, a.Title, a.Content) {
		return false
	}
	return true
}

// Match reports whether the department satisfies every present criterion.
func (c DepartmentCriteria) Match(d models.Department) bool {
	if c.Code != "" && !strings.EqualFold(d.Code, c.Code) {
		return false
	}
	if c.Search != "" && !matchesAny(c.Search, d.Name, d.Code, d.Description) {
		return false
	}
	return true
}

// matchesAny is a case-insensitive substring match over the given fields.
func matchesAny(term string, fields ...string) bool {
	term = strings.ToLower(term)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// parseFlag returns nil unless raw is explicitly "true" or "false".
func parseFlag(raw string) *bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}
