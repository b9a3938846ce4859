package common

import (
	"fmt"
	"net/http"
	"strconv"
)

// PaginationInfo echoes the window a list was read with
type PaginationInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PaginationParams are the raw limit and offset of a request. Zero Limit means
// the server default.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ExtractPaginationParams reads limit and offset from the query string.
// Malformed values are reported, not silently replaced.
func ExtractPaginationParams(r *http.Request) (PaginationParams, error) {
	var params PaginationParams
	var err error
	if params.Limit, err = QueryInt(r, "limit", 0); err != nil {
		return params, err
	}
	if params.Offset, err = QueryInt(r, "offset", 0); err != nil {
		return params, err
	}
	return params, nil
}

// QueryInt parses an integer query parameter
func QueryInt(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// QueryInt64 parses a 64-bit integer query parameter that must be present
func QueryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
