package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes caps JSON request bodies
const DefaultMaxBodyBytes int64 = 10 << 20

// ListResponse wraps a collection with its size
type ListResponse struct {
	Data       interface{}     `json:"data"`
	Count      int             `json:"count"`
	Pagination *PaginationInfo `json:"pagination,omitempty"`
}

// StatusResponse is the body of health and readiness checks
type StatusResponse struct {
	Status string `json:"status"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondList sends a collection with its count
func RespondList(w http.ResponseWriter, data interface{}, count int, pagination *PaginationInfo) {
	RespondJSON(w, http.StatusOK, ListResponse{Data: data, Count: count, Pagination: pagination})
}

// ErrEmptyBody is returned when a request has no JSON body
var ErrEmptyBody = errors.New("request body is required")

// ParseJSONBody decodes a JSON request body with a size limit. Unknown fields are
// rejected and trailing data after the document is an error.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	decoder.UseNumber()

	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if decoder.More() {
		return errors.New("invalid JSON body: unexpected data after document")
	}
	return nil
}
