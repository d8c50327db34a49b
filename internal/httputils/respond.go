// internal/httputils/respond.go
package httputils

import (
	"encoding/json"
	"net/http"

	"apigateway/internal/apierr"
	"apigateway/internal/contextutil"
	"apigateway/internal/observability/logging"
)

// ErrorBody is the payload inside the error envelope
type ErrorBody struct {
	Code          apierr.Code `json:"code"`
	Message       string      `json:"message"`
	StatusCode    int         `json:"statusCode"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Details       any         `json:"details,omitempty"`
}

// ErrorEnvelope is the uniform error response
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// WriteJSON writes v as a JSON response with status
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteError renders err as the error envelope. The cause is logged and never
// sent to the caller; unclassified errors become a generic internal error.
func WriteError(w http.ResponseWriter, r *http.Request, fallback *logging.Logger, err error) {
	apiErr := apierr.From(err)
	logger := logging.FromContextOr(r.Context(), fallback)

	if apiErr.Cause != nil && logger != nil {
		level := logger.Warn
		if apiErr.Status >= http.StatusInternalServerError {
			level = logger.Error
		}
		level("Request failed",
			"code", apiErr.Code,
			"status", apiErr.Status,
			logging.Err(apiErr.Cause),
		)
	}

	envelope := ErrorEnvelope{Error: ErrorBody{
		Code:          apiErr.Code,
		Message:       apiErr.Message,
		StatusCode:    apiErr.Status,
		CorrelationID: contextutil.GetCorrelationID(r.Context()),
		Details:       apiErr.Details,
	}}

	if writeErr := WriteJSON(w, apiErr.Status, envelope); writeErr != nil && logger != nil {
		logger.Debug("Failed to write error response", logging.Err(writeErr))
	}
}
