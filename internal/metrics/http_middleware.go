package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// statusRecorder captures the response code. Streaming handlers need Flush
// and http.ResponseController needs Unwrap to reach the real writer.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (s *statusRecorder) code() string {
	if s.status == 0 {
		return "200"
	}
	return strconv.Itoa(s.status)
}

// HTTPMetricsMiddleware records request counts and latency labelled by the
// matched route pattern. Unrouted requests fall back to the normalized path.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipInstrumentation(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		inFlight := HTTPRequestsInFlight.WithLabelValues(r.Method)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := routeLabel(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, rec.code()).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route, rec.code()).Observe(time.Since(start).Seconds())
	})
}

func skipInstrumentation(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health")
}

func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return NormalizePath(r.URL.Path)
	}
	// patterns carry the method: "GET /v1/videos/{id}"
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}
