package models

// Pagination describes the slice of a filtered result set returned to the
// client. TotalCount is the number of records matching the filter before
// slicing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
