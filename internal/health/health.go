package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type StorageHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc reports a component as unhealthy by returning an error.
type CheckFunc func(ctx context.Context) error

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Latency int64  `json:"latency_ms"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

type Checker struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

func NewChecker() *Checker {
	return &Checker{checks: make(map[string]CheckFunc), timeout: 5 * time.Second}
}

func (c *Checker) With(name string, fn CheckFunc) *Checker {
	c.checks[name] = fn
	return c
}

func (c *Checker) WithDatabase(pool *pgxpool.Pool) *Checker {
	return c.With("database", pool.Ping)
}

func (c *Checker) WithRedis(client *redis.Client) *Checker {
	return c.With("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func (c *Checker) WithStorage(s StorageHealthChecker) *Checker {
	return c.With("storage", s.HealthCheck)
}

// CheckAll runs every check concurrently under one timeout. Components are
// reported in name order.
func (c *Checker) CheckAll(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make([]ComponentHealth, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			components[i] = run(ctx, name, c.checks[name])
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{Status: StatusHealthy, Components: components, Timestamp: time.Now()}
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			resp.Status = StatusUnhealthy
		}
	}
	return resp
}

func run(ctx context.Context, name string, fn CheckFunc) ComponentHealth {
	start := time.Now()
	err := fn(ctx)
	comp := ComponentHealth{
		Name:    name,
		Status:  StatusHealthy,
		Latency: time.Since(start).Milliseconds(),
	}
	if err != nil {
		comp.Status = StatusUnhealthy
		comp.Error = err.Error()
	}
	return comp
}

func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]Status{"status": StatusHealthy})
	}
}

func ReadinessHandler(checker *Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := checker.CheckAll(r.Context())

		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
