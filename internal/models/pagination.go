package models

import (
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 5
)

// Pagination is the paging metadata returned with every list.
//
// Only one of the total fields is set, depending on the listed record type.
type Pagination struct {
	TotalUsers   int  `json:"totalUsers,omitempty"`
	TotalArtists int  `json:"totalArtists,omitempty"`
	TotalMusic   int  `json:"totalMusic,omitempty"`
	TotalPages   int  `json:"totalPages"`
	CurrentPage  int  `json:"currentPage"`
	Limit        int  `json:"limit"`
	NextPage     *int `json:"nextPage"`
	PageLimit    int  `json:"pageLimit"`
}

// Total returns the record count regardless of record type.
func (p Pagination) Total() int {
	switch {
	case p.TotalUsers > 0:
		return p.TotalUsers
	case p.TotalArtists > 0:
		return p.TotalArtists
	default:
		return p.TotalMusic
	}
}

// LastPage is the highest reachable page. An empty result still has page 1.
func (p Pagination) LastPage() int {
	return max(p.TotalPages, 1)
}

// CanGoTo reports whether page is within 1..LastPage.
func (p Pagination) CanGoTo(page int) bool {
	return page >= 1 && page <= p.LastPage()
}

func (p Pagination) HasNext() bool { return p.CanGoTo(p.CurrentPage + 1) }

func (p Pagination) HasPrev() bool { return p.CanGoTo(p.CurrentPage - 1) }

// PageRequest selects a page of a list endpoint.
type PageRequest struct {
	Page   int
	Limit  int
	Search string
}

// NewPageRequest returns the first page with the default limit.
func NewPageRequest() PageRequest {
	return PageRequest{Page: DefaultPage, Limit: DefaultLimit}
}

// Normalize replaces out of range values with defaults.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.Limit < 1 {
		r.Limit = DefaultLimit
	}
	return r
}

// WithSearch returns r with a new search term. A changed term restarts at page 1.
func (r PageRequest) WithSearch(search string) PageRequest {
	if search != r.Search {
		r.Page = DefaultPage
	}
	r.Search = search
	return r.Normalize()
}

// WithPage returns r positioned at page.
func (r PageRequest) WithPage(page int) PageRequest {
	r.Page = page
	return r.Normalize()
}

// Query encodes the request as page, limit and search parameters.
func (r PageRequest) Query() url.Values {
	r = r.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(r.Page))
	q.Set("limit", strconv.Itoa(r.Limit))
	q.Set("search", r.Search)
	return q
}
