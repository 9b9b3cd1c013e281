package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/calendar"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/mutation"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/store"
	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/tokens"
)

// errPermissionDenied gates display access: inactive display, or an owner
// whose license is not active.
var errPermissionDenied = errors.New("permission denied")

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes and a stable error
// code the dashboard can switch on.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"

	var reauthErr *tokens.ReauthRequiredError
	switch {
	case errors.Is(err, mutation.ErrNotFound), errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, mutation.ErrNoAccountAvailable):
		status, code = http.StatusConflict, "no_account_available"
	case errors.Is(err, errPermissionDenied):
		status, code = http.StatusForbidden, "permission_denied"
	case errors.As(err, &reauthErr):
		status, code = http.StatusConflict, "reauth_required"
	case calendar.IsPermissionDenied(err):
		status, code = http.StatusForbidden, "permission_denied"
	case calendar.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	}

	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: err.Error()}})
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{
		Error: errorBody{Code: "unauthorized", Message: "missing or invalid bearer token"},
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
