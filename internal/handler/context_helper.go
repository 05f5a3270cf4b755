package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// pageParams reads the standard page/limit query parameters. A missing,
// non-numeric, or non-positive limit means "return everything".
func pageParams(c *gin.Context) (int, int) {
	page := 1
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	limit := 0
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "0")); err == nil {
		limit = v
	}
	return page, limit
}

// filterParams collects the raw filter mapping handed to the query builder.
// Every query parameter rides along; the builder interprets only the keys it
// recognizes and ignores the rest.
func filterParams(c *gin.Context) map[string]string {
	raw := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}
	return raw
}
