package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/webhook"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("https://api.learn.cheap/", "tok", time.Minute)
	if c.baseURL != "https://api.learn.cheap" {
		t.Errorf("baseURL = %s, want without trailing slash", c.baseURL)
	}
}

func TestClient_Upload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/videos" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		data, _ := io.ReadAll(file)
		if header.Filename != "lecture.mp4" || string(data) != "video-bytes" {
			t.Errorf("got %s = %q", header.Filename, data)
		}
		if got := r.FormValue("materialId"); got != "mat-1" {
			t.Errorf("materialId = %q", got)
		}

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(UploadResponse{ID: "vid-1", Filename: header.Filename, Size: int64(len(data)), Status: "PENDING", JobID: "job-1"})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "lecture.mp4")
	if err := os.WriteFile(path, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	var progress countingWriter
	c := New(server.URL, "tok", time.Minute)
	resp, err := c.Upload(context.Background(), path, "mat-1", &progress)
	if err != nil {
		t.Fatalf("Upload error = %v", err)
	}
	if resp.ID != "vid-1" || resp.JobID != "job-1" || resp.Status != "PENDING" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if progress.n != int64(len("video-bytes")) {
		t.Errorf("progress saw %d bytes, want %d", progress.n, len("video-bytes"))
	}
}

func TestClient_Upload_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "queue_unavailable", Code: "queue_unavailable", Message: "try again"})
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "a.mp4")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(server.URL, "tok", time.Minute).Upload(context.Background(), path, "", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Code != "queue_unavailable" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
}

func TestClient_Upload_MissingFile(t *testing.T) {
	c := New("http://127.0.0.1:1", "tok", time.Minute)
	if _, err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), "", nil); err == nil {
		t.Error("Upload should fail for a missing file")
	}
}

func TestClient_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/videos/vid-1/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Progress{VideoID: "vid-1", Status: "PROCESSING", Progress: 50})
	}))
	defer server.Close()

	p, err := New(server.URL, "tok", time.Minute).Status(context.Background(), "vid-1")
	if err != nil {
		t.Fatalf("Status error = %v", err)
	}
	if p.Progress != 50 || p.Terminal() {
		t.Errorf("unexpected progress: %+v", p)
	}
}

func TestClient_Status_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL, "tok", time.Minute).Status(context.Background(), "vid-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("error = %v, want 404 APIError", err)
	}
	if !strings.Contains(apiErr.Error(), "404") {
		t.Errorf("Error() = %q", apiErr.Error())
	}
}

func TestClient_Watch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/videos/vid-1/events" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": hello\n\n")
		fmt.Fprint(w, "event: progress\ndata: {\"videoId\":\"vid-1\",\"status\":\"PROCESSING\",\"progress\":25}\n\n")
		fmt.Fprint(w, "event: progress\ndata: {\"videoId\":\"vid-1\",\"status\":\"COMPLETED\",\"progress\":100}\n\n")
	}))
	defer server.Close()

	var seen []int
	final, err := New(server.URL, "tok", time.Minute).Watch(context.Background(), "vid-1", func(p Progress) {
		seen = append(seen, p.Progress)
	})
	if err != nil {
		t.Fatalf("Watch error = %v", err)
	}
	if final.Status != "COMPLETED" {
		t.Errorf("final status = %s", final.Status)
	}
	if len(seen) != 2 || seen[0] != 25 || seen[1] != 100 {
		t.Errorf("seen = %v, want [25 100]", seen)
	}
}

func TestClient_Watch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "closed early",
			body:    "event: progress\ndata: {\"status\":\"PROCESSING\",\"progress\":10}\n\n",
			wantErr: ErrStreamClosed,
		},
		{
			name:    "error event",
			body:    "event: error\ndata: {\"error\":\"video not found\"}\n\n",
			wantMsg: "video not found",
		},
		{
			name:    "bad json",
			body:    "event: progress\ndata: {nope\n\n",
			wantMsg: "decode progress event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := New(server.URL, "tok", time.Minute).Watch(context.Background(), "vid-1", nil)
			if err == nil {
				t.Fatal("Watch should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestClient_StreamURL(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		quality string
		want    string
	}{
		{"no token", "", "", "https://x.test/v1/videos/v1/stream"},
		{"token", "abc", "", "https://x.test/v1/videos/v1/stream?token=abc"},
		{"quality and token", "abc", "720p", "https://x.test/v1/videos/v1/stream?quality=720p&token=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New("https://x.test", tt.token, time.Minute).StreamURL("v1", tt.quality); got != tt.want {
				t.Errorf("StreamURL() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClient_DeleteVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/v1/videos/vid-1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := New(server.URL, "tok", time.Minute).DeleteVideo(context.Background(), "vid-1"); err != nil {
		t.Fatalf("DeleteVideo error = %v", err)
	}
}

func TestClient_EnrollmentCompleted(t *testing.T) {
	const secret = "whsec_test"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("webhook should not carry a bearer token")
		}
		body, err := webhook.NewVerifier(secret, webhook.DefaultTolerance).VerifyRequest(r)
		if err != nil {
			t.Errorf("signature rejected: %v", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req EnrollmentCompleted
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(WebhookResponse{JobID: "job-9", EnrollmentID: req.EnrollmentID})
	}))
	defer server.Close()

	resp, err := New(server.URL, "tok", time.Minute).EnrollmentCompleted(context.Background(), secret, EnrollmentCompleted{
		EnrollmentID: "enr-1", UserID: "usr-1", CourseID: "crs-1",
	})
	if err != nil {
		t.Fatalf("EnrollmentCompleted error = %v", err)
	}
	if resp.JobID != "job-9" || resp.EnrollmentID != "enr-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

type countingWriter struct{ n int64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
