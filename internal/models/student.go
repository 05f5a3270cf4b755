package models

import "time"

// StudentStatus represents the administrative state of a student.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusInactive  StudentStatus = "INACTIVE"
	StudentStatusSuspended StudentStatus = "SUSPENDED"
)

// Student is a learner record held in the entity store. EnrolledCourseIDs is
// a set (no duplicates, order irrelevant) owned exclusively by the relation
// manager; CRUD paths must never write it directly.
type Student struct {
	ID                string        `json:"id"`
	StudentID         string        `json:"student_id"`
	FullName          string        `json:"full_name"`
	Email             string        `json:"email"`
	Department        string        `json:"department"`
	Status            StudentStatus `json:"status"`
	EnrolledCourseIDs []string      `json:"enrolled_course_ids"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
