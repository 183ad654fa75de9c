package models

import (
	"net/url"
	"strings"
)

// URL query parameter names that carry the shareable search state.
const (
	ParamSearchTerm   = "searchTerm"
	ParamCategoryName = "categoryName"
)

// SearchQuery is the combined term + category filter. An empty CategoryName means all categories.
type SearchQuery struct {
	Term         string
	CategoryName string
}

// QueryFromValues reads a query from URL parameters; absent parameters read as empty.
func QueryFromValues(v url.Values) SearchQuery {
	return SearchQuery{
		Term:         strings.TrimSpace(v.Get(ParamSearchTerm)),
		CategoryName: strings.TrimSpace(v.Get(ParamCategoryName)),
	}
}

// Values encodes the query as URL parameters, omitting empty values entirely.
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	if t := strings.TrimSpace(q.Term); t != "" {
		v.Set(ParamSearchTerm, t)
	}
	if c := strings.TrimSpace(q.CategoryName); c != "" {
		v.Set(ParamCategoryName, c)
	}
	return v
}

// Merge replaces the search parameters in existing with q's, keeping unrelated parameters.
func (q SearchQuery) Merge(existing url.Values) url.Values {
	out := url.Values{}
	for k, vs := range existing {
		if k == ParamSearchTerm || k == ParamCategoryName {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	for k, vs := range q.Values() {
		out[k] = vs
	}
	return out
}

// IsEmpty reports whether neither a term nor a category is set.
func (q SearchQuery) IsEmpty() bool {
	return len(q.Values()) == 0
}
