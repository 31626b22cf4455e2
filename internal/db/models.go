package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "PENDING"
	VideoStatusProcessing VideoStatus = "PROCESSING"
	VideoStatusCompleted  VideoStatus = "COMPLETED"
	VideoStatusFailed     VideoStatus = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

type CertificateStatus string

const (
	CertificateStatusIssued  CertificateStatus = "ISSUED"
	CertificateStatusRevoked CertificateStatus = "REVOKED"
)

type Video struct {
	ID                  uuid.UUID
	OwnerID             uuid.UUID
	MaterialID          pgtype.UUID
	Status              VideoStatus
	ProcessingError     pgtype.Text
	Filename            string
	ContentType         string
	SizeBytes           int64
	StorageKey          string
	ThumbnailKey        pgtype.Text
	ProcessingAttempts  int32
	ProcessingStartedAt pgtype.Timestamptz
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Rendition struct {
	ID         uuid.UUID
	VideoID    uuid.UUID
	Quality    string
	StorageKey string
	SizeBytes  int64
	Bitrate    int32
	Width      int32
	Height     int32
	CreatedAt  time.Time
}

// CertificateMetadata is captured at issuance and never rewritten.
type CertificateMetadata struct {
	StudentName    string    `json:"studentName"`
	CourseName     string    `json:"courseName"`
	MentorName     string    `json:"mentorName"`
	CompletionDate time.Time `json:"completionDate"`
}

type Certificate struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	CourseID          uuid.UUID
	EnrollmentID      uuid.UUID
	CertificateNumber string
	Status            CertificateStatus
	Metadata          CertificateMetadata
	ImageKey          pgtype.Text
	IssuedAt          time.Time
}

// EnrollmentDetails joins an enrollment with the names needed for a certificate.
type EnrollmentDetails struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CourseID      uuid.UUID
	Status        string
	CompletedAt   pgtype.Timestamptz
	CertificateID pgtype.UUID
	StudentName   string
	StudentEmail  string
	CourseTitle   string
	MentorName    pgtype.Text
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Kind      string
	Title     string
	Body      string
	CreatedAt time.Time
}

func UUIDPtr(p pgtype.UUID) *uuid.UUID {
	if !p.Valid {
		return nil
	}
	id := uuid.UUID(p.Bytes)
	return &id
}

func ToPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func Text(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
