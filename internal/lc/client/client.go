package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/lc/version"
	"github.com/abdul-hamid-achik/learn.cheap/internal/webhook"
)

// ErrStreamClosed is returned by Watch when the server ends the event stream
// before a terminal status arrives.
var ErrStreamClosed = errors.New("event stream closed before completion")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	now        func() time.Time
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "lc-cli/"+version.Short())
	return req, nil
}

func (c *Client) doJSON(req *http.Request, respBody any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseError(resp)
	}
	if respBody != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(respBody)
	}
	return nil
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != "" {
		return &APIError{StatusCode: resp.StatusCode, Code: errResp.Code, Message: errResp.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}

// Upload streams the file at filePath as multipart form data. Every byte read
// from the file is also written to progress when it is non-nil.
func (c *Client) Upload(ctx context.Context, filePath, materialID string, progress io.Writer) (*UploadResponse, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var src io.Reader = file
	if progress != nil {
		src = io.TeeReader(file, progress)
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	errCh := make(chan error, 1)

	go func() {
		err := writeForm(writer, src, filepath.Base(filePath), materialID)
		_ = pw.CloseWithError(err)
		errCh <- err
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/videos", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result UploadResponse
	err = c.doJSON(req, &result)
	_ = pr.Close()
	writeErr := <-errCh

	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) && writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe) {
			return nil, fmt.Errorf("failed to write multipart form: %w", writeErr)
		}
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	return &result, nil
}

func writeForm(w *multipart.Writer, src io.Reader, filename, materialID string) error {
	if materialID != "" {
		if err := w.WriteField("materialId", materialID); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return w.Close()
}

func (c *Client) Status(ctx context.Context, videoID string) (*Progress, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/videos/"+url.PathEscape(videoID)+"/status", nil)
	if err != nil {
		return nil, err
	}
	var p Progress
	if err := c.doJSON(req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Watch consumes the progress event stream for videoID, calling fn for each
// progress event. It returns the final snapshot once the video is terminal.
func (c *Client) Watch(ctx context.Context, videoID string, fn func(Progress)) (*Progress, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/videos/"+url.PathEscape(videoID)+"/events", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives any fixed client timeout.
	streamClient := *c.httpClient
	streamClient.Timeout = 0

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, parseError(resp)
	}

	var last *Progress
	err = readEvents(resp.Body, func(event string, data []byte) (bool, error) {
		switch event {
		case "progress":
			var p Progress
			if err := json.Unmarshal(data, &p); err != nil {
				return false, fmt.Errorf("decode progress event: %w", err)
			}
			last = &p
			if fn != nil {
				fn(p)
			}
			return p.Terminal(), nil
		case "error":
			var body struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(data, &body)
			return false, fmt.Errorf("progress stream: %s", body.Error)
		}
		return false, nil
	})
	if err != nil {
		return last, err
	}
	if last == nil || !last.Terminal() {
		return last, ErrStreamClosed
	}
	return last, nil
}

// readEvents parses text/event-stream framing. fn returns true to stop.
func readEvents(r io.Reader, fn func(event string, data []byte) (bool, error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var event string
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() == 0 && event == "" {
				continue
			}
			if event == "" {
				event = "message"
			}
			done, err := fn(event, bytes.TrimSuffix(data.Bytes(), []byte("\n")))
			if err != nil || done {
				return err
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment line
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			data.WriteByte('\n')
		}
	}
	return scanner.Err()
}

// StreamURL is the playable URL for videoID. The token rides in the query
// string because <video> elements cannot send headers.
func (c *Client) StreamURL(videoID, quality string) string {
	q := url.Values{}
	if quality != "" {
		q.Set("quality", quality)
	}
	if c.token != "" {
		q.Set("token", c.token)
	}
	u := c.baseURL + "/v1/videos/" + url.PathEscape(videoID) + "/stream"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) DeleteVideo(ctx context.Context, videoID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1/videos/"+url.PathEscape(videoID), nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil)
}

// EnrollmentCompleted posts a signed enrollment-completed webhook.
func (c *Client) EnrollmentCompleted(ctx context.Context, secret string, body EnrollmentCompleted) (*WebhookResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/webhooks/enrollment-completed", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Del("Authorization")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.SignatureHeader, webhook.Sign(payload, secret, c.now()))

	var result WebhookResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
