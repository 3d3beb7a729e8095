package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit is used when the request does not specify a limit.
	DefaultLimit = 20
	// MaxLimit caps the page size regardless of what the request asks for.
	MaxLimit = 100
)

// Params holds limit/offset pagination parameters extracted from query strings.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Limit:  DefaultLimit,
		Offset: 0,
	}
}

// FromRequest extracts pagination parameters from an HTTP request.
// Invalid or out-of-range values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil && v > 0 && v <= MaxLimit {
			p.Limit = v
		}
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if v, err := strconv.Atoi(offset); err == nil && v >= 0 {
			p.Offset = v
		}
	}

	return p
}

// SortColumn maps a request-supplied sort key onto a whitelisted ORDER BY
// expression. Unknown or empty keys return the fallback, so user input never
// reaches the SQL text directly.
func SortColumn(key string, allowed map[string]string, fallback string) string {
	if expr, ok := allowed[key]; ok {
		return expr
	}
	return fallback
}
