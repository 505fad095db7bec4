package shared

import (
	"net/http"
	"strconv"
)

// Page sizes for the two list surfaces. Audit queries page wider because
// compliance exports walk the whole trail.
const (
	DefaultPageSize  = 50
	MaxPageSize      = 200
	AuditPageSize    = 100
	AuditMaxPageSize = 500
)

type Pagination struct {
	Limit  int
	Offset int
}

func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	limit := defaultLimit
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return Pagination{Limit: limit, Offset: offset}
}
