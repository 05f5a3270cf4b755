package query

import "github.com/noah-isme/uni-records-api/internal/models"

// PageBounds returns the [lo, hi) slice bounds for a 1-indexed page over a
// result set of total records. Slicing always happens after filtering. A
// non-positive limit means "everything"; a page past the end yields an empty
// slice, never an error.
func PageBounds(total, page, limit int) (int, int) {
	if limit <= 0 {
		return 0, total
	}
	if page < 1 {
		page = 1
	}
	lo := (page - 1) * limit
	if lo > total {
		return total, total
	}
	hi := lo + limit
	if hi > total {
		hi = total
	}
	return lo, hi
}

// PageInfo builds the pagination metadata for a sliced result.
func PageInfo(total, page, limit int) *models.Pagination {
	if limit <= 0 {
		return &models.Pagination{Page: 1, PageSize: total, TotalCount: total}
	}
	if page < 1 {
		page = 1
	}
	return &models.Pagination{Page: page, PageSize: limit, TotalCount: total}
}
