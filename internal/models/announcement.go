package models

import "time"

// AnnouncementType classifies an announcement.
type AnnouncementType string

const (
	AnnouncementTypeGeneral  AnnouncementType = "GENERAL"
	AnnouncementTypeAcademic AnnouncementType = "ACADEMIC"
	AnnouncementTypeEvent    AnnouncementType = "EVENT"
	AnnouncementTypeExam     AnnouncementType = "EXAM"
)

// AnnouncementAudience defines who an announcement addresses.
type AnnouncementAudience string

const (
	AnnouncementAudienceAll      AnnouncementAudience = "ALL"
	AnnouncementAudienceStudents AnnouncementAudience = "STUDENTS"
	AnnouncementAudienceStaff    AnnouncementAudience = "STAFF"
)

// Announcement is a dashboard notice record.
type Announcement struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Content     string               `json:"content"`
	Type        AnnouncementType     `json:"type"`
	Audience    AnnouncementAudience `json:"audience"`
	Department  string               `json:"department"`
	Featured    bool                 `json:"featured"`
	Urgent      bool                 `json:"urgent"`
	PublishedAt time.Time            `json:"published_at"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
