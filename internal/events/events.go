// Package events publishes domain events to an external broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TypeVideoCompleted    = "video.completed"
	TypeVideoFailed       = "video.failed"
	TypeCertificateIssued = "certificate.issued"
)

type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

type VideoFinishedData struct {
	VideoID   string   `json:"video_id"`
	Status    string   `json:"status"`
	Qualities []string `json:"qualities"`
	Error     string   `json:"error,omitempty"`
}

type CertificateIssuedData struct {
	CertificateID     string `json:"certificate_id"`
	CertificateNumber string `json:"certificate_number"`
	UserID            string `json:"user_id"`
	CourseID          string `json:"course_id"`
	EnrollmentID      string `json:"enrollment_id"`
}

func New(eventType string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events at most once. Callers treat failures as best effort.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, *Event) error { return nil }
func (Noop) Close() error                          { return nil }
