package models

import "time"

// Department groups students and courses by faculty unit. Referenced from
// other records by code, not enforced as a foreign key.
type Department struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Head        string    `json:"head"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
