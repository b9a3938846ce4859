package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dataworkspace/pkg/auth"
	"dataworkspace/pkg/common"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// callerID returns the authenticated caller set by the auth middleware
func callerID(r *http.Request) (string, error) {
	caller, ok := auth.CallerFrom(r.Context())
	if !ok {
		return "", pkgerrors.NewUnauthorizedError("missing caller identity")
	}
	return caller.ID, nil
}

// decodeJSON parses and validates a request body
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := common.ParseJSONBody(w, r, v, common.DefaultMaxBodyBytes); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return utils.ValidateStruct(v)
}

// pathInt64 parses a numeric path parameter
func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, pkgerrors.NewValidationError(name+" must be an integer").WithDetail("param", name)
	}
	return v, nil
}

// plainNumbers replaces json.Number values with int64 or float64 so they can be
// bound by database drivers that do not know about json.Number
func plainNumbers(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]interface{}:
		for k, item := range val {
			val[k] = plainNumbers(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = plainNumbers(item)
		}
		return val
	default:
		return v
	}
}
