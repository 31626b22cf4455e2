package apperror

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
)

// retryAfterSeconds is advertised on 503 responses.
const retryAfterSeconds = "5"

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON renders err as an ErrorResponse. Errors outside the taxonomy
// become 500 internal_error and their text is only logged.
func WriteJSON(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = Wrap(err, ErrInternal)
	}
	logError(r, appErr)

	h := w.Header()
	h.Set("Content-Type", "application/json")
	if appErr.StatusCode == http.StatusServiceUnavailable {
		h.Set("Retry-After", retryAfterSeconds)
	}
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     appErr.Code,
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: logger.RequestID(r.Context()),
	})
}

func logError(r *http.Request, e *Error) {
	log := logger.FromContext(r.Context())
	attrs := []any{"code", e.Code, "status", e.StatusCode}
	level := slog.LevelWarn
	if e.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
		if e.Internal != nil {
			attrs = append(attrs, "internal_error", e.Internal.Error())
		}
	}
	log.Log(r.Context(), level, "request error", attrs...)
}
