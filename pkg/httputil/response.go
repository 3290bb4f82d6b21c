package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/planarhq/planar/pkg/apperr"
	"github.com/planarhq/planar/pkg/observability"
)

// ErrorResponse is the wire shape of every error body.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Issues  []apperr.Issue `json:"issues,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteAppError is the single boundary translating application errors into
// the wire error body. Untyped errors are masked as InternalServerError and
// their cause is logged server-side only.
func WriteAppError(w http.ResponseWriter, logger *observability.Logger, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal && logger != nil {
		logger.WithError(err).Error("unexpected error")
	}
	WriteJSON(w, appErr.Status(), ErrorResponse{
		Error:   string(appErr.Kind),
		Message: appErr.Message,
		Issues:  appErr.Issues,
	})
}
