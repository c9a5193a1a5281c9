package utils

import (
	"math"
	"strconv"
)

const (
	DefaultPageLimit = 10
	// UnlimitedPageSize is used when a caller asks for limit=-1.
	UnlimitedPageSize = 9999999
)

type PageQuery struct {
	Page  int
	Limit int
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParsePageQuery reads page and limit strings, falling back to 1 and
// defaultLimit. A limit of -1 means everything.
func ParsePageQuery(page, limit string, defaultLimit int) PageQuery {
	q := PageQuery{Page: 1, Limit: defaultLimit}
	if p, err := strconv.Atoi(page); err == nil && p > 0 {
		q.Page = p
	}
	if l, err := strconv.Atoi(limit); err == nil {
		switch {
		case l == -1:
			q.Limit = UnlimitedPageSize
		case l > 0 && l <= 100:
			q.Limit = l
		case l > 100:
			q.Limit = 100
		}
	}
	return q
}

// Page is the paginated envelope clients expect.
type Page[T any] struct {
	Docs        []T   `json:"docs"`
	TotalDocs   int64 `json:"totalDocs"`
	Limit       int   `json:"limit"`
	Page        int   `json:"page"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

func NewPage[T any](docs []T, total int64, q PageQuery) Page[T] {
	if docs == nil {
		docs = []T{}
	}
	pages := 0
	if q.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(q.Limit)))
	}
	return Page[T]{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       q.Limit,
		Page:        q.Page,
		TotalPages:  pages,
		HasNextPage: q.Page < pages,
		HasPrevPage: q.Page > 1,
	}
}
