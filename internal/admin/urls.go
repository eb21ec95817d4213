package admin

import (
	"net/url"
	"strconv"
)

func (s *Site) loginURL() string     { return s.prefix + "/login" }
func (s *Site) dashboardURL() string { return s.prefix + "/" }

func (s *Site) listURL(r *Resource) string   { return s.prefix + "/" + r.Name() + "/" }
func (s *Site) createURL(r *Resource) string { return s.prefix + "/" + r.Name() + "/create" }

func (s *Site) recordURL(r *Resource, id string) string {
	return s.prefix + "/" + r.Name() + "/" + url.PathEscape(id)
}

func (s *Site) editURL(r *Resource, id string) string   { return s.recordURL(r, id) + "/edit" }
func (s *Site) deleteURL(r *Resource, id string) string { return s.recordURL(r, id) + "/delete" }

// pageURL builds a list URL that keeps the search term.
func (s *Site) pageURL(r *Resource, page int, search, format string) string {
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if search != "" {
		q.Set("search", search)
	}
	if format != "" {
		q.Set("format", format)
	}
	if len(q) == 0 {
		return s.listURL(r)
	}
	return s.listURL(r) + "?" + q.Encode()
}
