// Package certificate issues course completion certificates.
package certificate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/learn.cheap/internal/notify"
	"github.com/abdul-hamid-achik/learn.cheap/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrEnrollmentNotFound     = errors.New("certificate: enrollment not found")
	ErrEnrollmentNotCompleted = errors.New("certificate: enrollment not completed")
	ErrInvalidRequest         = errors.New("certificate: invalid request")
	ErrNumberExhausted        = errors.New("certificate: could not generate a unique number")
)

const (
	enrollmentCompleted = "COMPLETED"
	maxNumberAttempts   = 5

	constraintNumber       = "certificates_number_key"
	constraintActiveCourse = "certificates_active_user_course_key"
)

// Request is the job payload. All fields are required.
type Request struct {
	EnrollmentID uuid.UUID `json:"enrollmentId"`
	UserID       uuid.UUID `json:"userId"`
	CourseID     uuid.UUID `json:"courseId"`
}

func (r Request) Validate() error {
	if r.EnrollmentID == uuid.Nil || r.UserID == uuid.Nil || r.CourseID == uuid.Nil {
		return fmt.Errorf("%w: enrollmentId, userId and courseId are required", ErrInvalidRequest)
	}
	return nil
}

type Result struct {
	CertificateID     uuid.UUID
	CertificateNumber string
	// Duplicate is set when an existing certificate was returned.
	Duplicate bool
}

type Querier interface {
	GetEnrollmentDetails(ctx context.Context, id uuid.UUID) (db.EnrollmentDetails, error)
	GetCertificate(ctx context.Context, id uuid.UUID) (db.Certificate, error)
	GetActiveCertificate(ctx context.Context, userID, courseID uuid.UUID) (db.Certificate, error)
	IssueCertificate(ctx context.Context, arg db.CreateCertificateParams) (db.Certificate, error)
	SetCertificateImage(ctx context.Context, id uuid.UUID, key string) error
}

type Notifier interface {
	CertificateIssued(ctx context.Context, c notify.CertificateIssued) error
}

type Service struct {
	queries  Querier
	storage  storage.Storage
	notifier Notifier

	render func(number string, meta db.CertificateMetadata) ([]byte, error)
	now    func() time.Time
	random io.Reader
}

func NewService(q Querier, store storage.Storage, n Notifier) *Service {
	return &Service{
		queries:  q,
		storage:  store,
		notifier: n,
		render:   Render,
		now:      time.Now,
	}
}

func ImageKey(id uuid.UUID) string {
	return fmt.Sprintf("certificates/%s.png", id)
}

// ProcessJob issues the certificate for a completed enrollment. Running it again
// for the same enrollment returns the existing certificate.
func (s *Service) ProcessJob(ctx context.Context, req Request) (Result, error) {
	log := logger.FromContext(ctx).With("enrollment_id", req.EnrollmentID.String())

	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	enrollment, err := s.queries.GetEnrollmentDetails(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Result{}, ErrEnrollmentNotFound
		}
		return Result{}, fmt.Errorf("load enrollment: %w", err)
	}

	if enrollment.UserID != req.UserID || enrollment.CourseID != req.CourseID {
		return Result{}, fmt.Errorf("%w: user or course does not match enrollment", ErrInvalidRequest)
	}

	if existing, ok, err := s.existing(ctx, enrollment); err != nil {
		return Result{}, err
	} else if ok {
		log.Info("certificate already issued", "certificate_id", existing.ID.String())
		metrics.RecordCertificate("duplicate")
		return Result{CertificateID: existing.ID, CertificateNumber: existing.CertificateNumber, Duplicate: true}, nil
	}

	if enrollment.Status != enrollmentCompleted {
		return Result{}, fmt.Errorf("%w: status %s", ErrEnrollmentNotCompleted, enrollment.Status)
	}

	meta := db.CertificateMetadata{
		StudentName:    enrollment.StudentName,
		CourseName:     enrollment.CourseTitle,
		MentorName:     enrollment.MentorName.String,
		CompletionDate: s.now().UTC(),
	}
	if enrollment.CompletedAt.Valid {
		meta.CompletionDate = enrollment.CompletedAt.Time.UTC()
	}

	cert, err := s.issue(ctx, enrollment, meta)
	if err != nil {
		var dup *duplicateError
		if errors.As(err, &dup) {
			metrics.RecordCertificate("duplicate")
			return Result{CertificateID: dup.cert.ID, CertificateNumber: dup.cert.CertificateNumber, Duplicate: true}, nil
		}
		metrics.RecordCertificate("failed")
		return Result{}, err
	}
	log = log.With("certificate_id", cert.ID.String())
	log.Info("certificate issued", "certificate_number", cert.CertificateNumber)
	metrics.RecordCertificate("issued")

	if err := s.storeImage(ctx, &cert); err != nil {
		log.Warn("certificate image not stored", "error", err)
	}

	if s.notifier != nil {
		if err := s.notifier.CertificateIssued(ctx, notify.CertificateIssued{
			Certificate:  cert,
			StudentEmail: enrollment.StudentEmail,
		}); err != nil {
			log.Warn("certificate notification failed", "error", err)
		}
	}

	return Result{CertificateID: cert.ID, CertificateNumber: cert.CertificateNumber}, nil
}

func (s *Service) existing(ctx context.Context, e db.EnrollmentDetails) (db.Certificate, bool, error) {
	if id := db.UUIDPtr(e.CertificateID); id != nil {
		cert, err := s.queries.GetCertificate(ctx, *id)
		if err == nil {
			return cert, true, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return db.Certificate{}, false, fmt.Errorf("load linked certificate: %w", err)
		}
	}

	cert, err := s.queries.GetActiveCertificate(ctx, e.UserID, e.CourseID)
	if err == nil {
		return cert, true, nil
	}
	if errors.Is(err, db.ErrNotFound) {
		return db.Certificate{}, false, nil
	}
	return db.Certificate{}, false, fmt.Errorf("load active certificate: %w", err)
}

type duplicateError struct {
	cert db.Certificate
}

func (e *duplicateError) Error() string { return "certificate already exists" }

func (s *Service) issue(ctx context.Context, e db.EnrollmentDetails, meta db.CertificateMetadata) (db.Certificate, error) {
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := GenerateNumber(s.now(), s.random)
		if err != nil {
			return db.Certificate{}, err
		}

		cert, err := s.queries.IssueCertificate(ctx, db.CreateCertificateParams{
			ID:                uuid.New(),
			UserID:            e.UserID,
			CourseID:          e.CourseID,
			EnrollmentID:      e.ID,
			CertificateNumber: number,
			Metadata:          meta,
		})
		switch {
		case err == nil:
			return cert, nil
		case db.IsUniqueViolation(err, constraintNumber):
			logger.FromContext(ctx).Debug("certificate number collision", "attempt", attempt)
			continue
		case db.IsUniqueViolation(err, constraintActiveCourse):
			existing, gerr := s.queries.GetActiveCertificate(ctx, e.UserID, e.CourseID)
			if gerr != nil {
				return db.Certificate{}, fmt.Errorf("load concurrent certificate: %w", gerr)
			}
			return db.Certificate{}, &duplicateError{cert: existing}
		default:
			return db.Certificate{}, fmt.Errorf("issue certificate: %w", err)
		}
	}
	return db.Certificate{}, ErrNumberExhausted
}

func (s *Service) storeImage(ctx context.Context, cert *db.Certificate) error {
	if s.storage == nil || s.render == nil {
		return nil
	}

	data, err := s.render(cert.CertificateNumber, cert.Metadata)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	key := ImageKey(cert.ID)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), "image/png", int64(len(data))); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := s.queries.SetCertificateImage(ctx, cert.ID, key); err != nil {
		return fmt.Errorf("record image key: %w", err)
	}
	cert.ImageKey = db.Text(key)
	return nil
}
