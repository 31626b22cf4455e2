package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		checker    *Checker
		wantStatus int
		wantBody   Status
	}{
		{
			name: "all healthy",
			checker: NewChecker().
				With("database", func(context.Context) error { return nil }).
				With("redis", func(context.Context) error { return nil }),
			wantStatus: http.StatusOK,
			wantBody:   StatusHealthy,
		},
		{
			name: "one unhealthy",
			checker: NewChecker().
				With("database", func(context.Context) error { return nil }).
				With("storage", func(context.Context) error { return errors.New("bucket missing") }),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ReadinessHandler(tt.checker)(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantBody, resp.Status)
		})
	}
}

func TestCheckAll_SortedWithError(t *testing.T) {
	c := NewChecker().
		With("storage", func(context.Context) error { return errors.New("down") }).
		With("database", func(context.Context) error { return nil })

	resp := c.CheckAll(context.Background())

	require.Len(t, resp.Components, 2)
	assert.Equal(t, "database", resp.Components[0].Name)
	assert.Equal(t, "storage", resp.Components[1].Name)
	assert.Equal(t, "down", resp.Components[1].Error)
}
