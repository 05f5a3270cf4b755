package models

import "time"

// Course is a course record held in the entity store. EnrolledStudentIDs is
// a set owned exclusively by the relation manager. The enrolled count is
// always derived from the set, never stored alongside it.
type Course struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	Title              string    `json:"title"`
	Department         string    `json:"department"`
	Credits            int       `json:"credits"`
	MaxCapacity        int       `json:"max_capacity"`
	EnrolledStudentIDs []string  `json:"enrolled_student_ids"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EnrolledCount returns the derived enrollment count.
func (c Course) EnrolledCount() int {
	return len(c.EnrolledStudentIDs)
}
