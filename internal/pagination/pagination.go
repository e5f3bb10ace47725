// Package pagination normalizes page parameters and derives page metadata.
package pagination

import (
	"math"
	"net/url"
	"strconv"
)

// Defaults for list endpoints.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params is a normalized, 1-based page request.
type Params struct {
	Page    int
	PerPage int
}

// Normalize clamps a raw page request. Pages start at 1; a non-positive
// perPage selects DefaultPerPage and anything above max is capped. The page
// is capped so the offset fits a 32-bit SQL OFFSET.
func Normalize(page, perPage, max int) Params {
	if max <= 0 || max > math.MaxInt32 {
		max = MaxPerPage
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > max {
		perPage = max
	}
	if lastPage := math.MaxInt32/perPage + 1; page > lastPage {
		page = lastPage
	}
	return Params{Page: page, PerPage: perPage}
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// FromQuery reads ?page= and ?page_size= and normalizes them. Missing or
// malformed values fall back to the defaults.
func FromQuery(q url.Values, max int) Params {
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("page_size"))
	return Normalize(page, perPage, max)
}

// Data contains pagination information for display.
type Data struct {
	CurrentPage int
	TotalPages  int
	PerPage     int
	Total       int
	HasPrevious bool
	HasNext     bool
	PrevPage    int
	NextPage    int
}

// New derives page metadata for a request over total rows.
func New(p Params, total int) Data {
	totalPages := 0
	if total > 0 {
		totalPages = (total + p.PerPage - 1) / p.PerPage
	}
	return Data{
		CurrentPage: p.Page,
		TotalPages:  totalPages,
		PerPage:     p.PerPage,
		Total:       total,
		HasPrevious: p.Page > 1,
		HasNext:     p.Page < totalPages,
		PrevPage:    p.Page - 1,
		NextPage:    p.Page + 1,
	}
}
