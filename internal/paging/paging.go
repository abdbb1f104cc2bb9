// Package paging carries page requests and the paginated response envelope.
package paging

// Request is a 1-based page number and page size.
type Request struct {
	Page    int
	PerPage int
}

// Normalize clamps the request to page >= 1 and 1 <= perPage <= 100,
// using def when perPage is unset.
func (r Request) Normalize(def int) Request {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PerPage < 1 {
		r.PerPage = def
	}
	if r.PerPage > 100 {
		r.PerPage = 100
	}
	return r
}

func (r Request) Offset() int {
	return (r.Page - 1) * r.PerPage
}

type Page[T any] struct {
	Data        []T `json:"data"`
	CurrentPage int `json:"currentPage"`
	LastPage    int `json:"lastPage"`
	PerPage     int `json:"perPage"`
	Total       int `json:"total"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// New builds the envelope for one page of data out of total rows.
// From and To are 1-based row positions and are zero for an empty page.
func New[T any](data []T, req Request, total int) Page[T] {
	if data == nil {
		data = []T{}
	}
	last := 1
	if total > 0 {
		last = (total + req.PerPage - 1) / req.PerPage
	}
	p := Page[T]{
		Data:        data,
		CurrentPage: req.Page,
		LastPage:    last,
		PerPage:     req.PerPage,
		Total:       total,
	}
	if len(data) > 0 {
		p.From = req.Offset() + 1
		p.To = req.Offset() + len(data)
	}
	return p
}
