package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
)

func TestError_Unwrap(t *testing.T) {
	innerErr := errors.New("inner error")
	err := Wrap(innerErr, ErrQueueUnavailable)

	if !errors.Is(err, innerErr) {
		t.Error("errors.Is(wrapped, inner) = false")
	}
	if err.Error() != ErrQueueUnavailable.Message {
		t.Errorf("Error() = %q, want %q", err.Error(), ErrQueueUnavailable.Message)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *Error
		want   bool
	}{
		{"same", ErrQualityNotFound, ErrQualityNotFound, true},
		{"wrapped", Wrap(errors.New("x"), ErrRangeNotSatisfiable), ErrRangeNotSatisfiable, true},
		{"fmt wrapped", fmt.Errorf("ctx: %w", ErrVideoNotFound), ErrVideoNotFound, true},
		{"different", ErrVideoNotFound, ErrQualityNotFound, false},
		{"plain", errors.New("x"), ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"range not satisfiable", ErrRangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable},
		{"quality not found", ErrQualityNotFound, http.StatusNotFound},
		{"invalid range", ErrInvalidRange, http.StatusBadRequest},
		{"queue unavailable", ErrQueueUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSafeMessage(t *testing.T) {
	if got := SafeMessage(errors.New("db password leaked")); got != ErrInternal.Message {
		t.Errorf("SafeMessage() = %q, want internal message", got)
	}
	if got := SafeMessage(ErrMissingFile); got != ErrMissingFile.Message {
		t.Errorf("SafeMessage() = %q", got)
	}
}

func TestWriteJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	WriteJSON(w, r, fmt.Errorf("stream: %w", ErrQualityNotFound))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "quality_not_found" {
		t.Errorf("code = %q, want quality_not_found", resp.Code)
	}
}

func TestWriteJSON_UnknownErrorIsInternal(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	WriteJSON(w, r, errors.New("connection reset"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestWriteJSON_ServiceUnavailable(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/videos", nil)
	r = r.WithContext(logger.WithRequestID(r.Context(), "req-42"))
	w := httptest.NewRecorder()

	WriteJSON(w, r, Wrap(errors.New("redis down"), ErrQueueUnavailable))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got == "" {
		t.Error("Retry-After header missing")
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.RequestID != "req-42" {
		t.Errorf("request_id = %q, want req-42", resp.RequestID)
	}
}
