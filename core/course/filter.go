package course

import (
	"net/url"
	"strings"
)

// Filter narrows a course list. Zero fields match everything.
type Filter struct {
	Search   string
	Category string
	Level    string
}

func ParseFilter(q url.Values) Filter {
	return Filter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: q.Get("category"),
		Level:    q.Get("level"),
	}
}

func (f Filter) Match(c Course) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.Search)) {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Level != "" {
		lvl, _ := ParseLevel(f.Level)
		if c.Level != lvl {
			return false
		}
	}
	return true
}
