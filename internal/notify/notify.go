// Package notify fans a domain outcome out to email, the in-app notifications
// table and the event publisher. Every channel is best effort.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/abdul-hamid-achik/learn.cheap/internal/email"
	"github.com/abdul-hamid-achik/learn.cheap/internal/events"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/metrics"
)

const (
	KindCertificateIssued = "certificate_issued"
	KindVideoReady        = "video_ready"
	KindVideoFailed       = "video_failed"
)

type Mailer interface {
	SendCertificateIssued(ctx context.Context, to, name string, data email.CertificateEmailData) error
}

type NotificationWriter interface {
	CreateNotification(ctx context.Context, arg db.CreateNotificationParams) error
}

type Notifier struct {
	mailer    Mailer
	writer    NotificationWriter
	publisher events.Publisher
	baseURL   string
}

// New accepts a nil mailer or publisher to disable that channel.
func New(mailer Mailer, writer NotificationWriter, publisher events.Publisher, baseURL string) *Notifier {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Notifier{
		mailer:    mailer,
		writer:    writer,
		publisher: publisher,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

type CertificateIssued struct {
	Certificate  db.Certificate
	StudentEmail string
}

// CertificateIssued returns the joined errors of the channels that failed.
func (n *Notifier) CertificateIssued(ctx context.Context, c CertificateIssued) error {
	log := logger.FromContext(ctx).With("certificate_id", c.Certificate.ID.String())
	cert := c.Certificate
	var errs []error

	if n.mailer != nil && c.StudentEmail != "" {
		err := n.mailer.SendCertificateIssued(ctx, c.StudentEmail, cert.Metadata.StudentName, email.CertificateEmailData{
			CourseName:        cert.Metadata.CourseName,
			CertificateNumber: cert.CertificateNumber,
			CertificateURL:    fmt.Sprintf("%s/v1/certificates/%s", n.baseURL, cert.ID),
			IssuedAt:          cert.IssuedAt,
		})
		metrics.RecordNotification("email", err)
		if err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	err := n.writer.CreateNotification(ctx, db.CreateNotificationParams{
		UserID: cert.UserID,
		Kind:   KindCertificateIssued,
		Title:  "Certificate issued",
		Body:   fmt.Sprintf("Your certificate %s for %s is ready.", cert.CertificateNumber, cert.Metadata.CourseName),
	})
	metrics.RecordNotification("in_app", err)
	if err != nil {
		errs = append(errs, fmt.Errorf("in-app: %w", err))
	}

	if err := n.publish(ctx, events.TypeCertificateIssued, events.CertificateIssuedData{
		CertificateID:     cert.ID.String(),
		CertificateNumber: cert.CertificateNumber,
		UserID:            cert.UserID.String(),
		CourseID:          cert.CourseID.String(),
		EnrollmentID:      cert.EnrollmentID.String(),
	}); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Warn("certificate notification incomplete", "error", err)
		return err
	}
	return nil
}

// VideoFinished tells the owner the outcome of processing and emits the matching event.
func (n *Notifier) VideoFinished(ctx context.Context, v db.Video, qualities []string) error {
	var errs []error

	kind, title, eventType := KindVideoReady, "Video ready", events.TypeVideoCompleted
	body := fmt.Sprintf("%s is ready to stream in %s.", v.Filename, strings.Join(qualities, ", "))
	if v.Status == db.VideoStatusFailed {
		kind, title, eventType = KindVideoFailed, "Video processing failed", events.TypeVideoFailed
		body = fmt.Sprintf("%s could not be processed: %s", v.Filename, v.ProcessingError.String)
	}

	err := n.writer.CreateNotification(ctx, db.CreateNotificationParams{
		UserID: v.OwnerID,
		Kind:   kind,
		Title:  title,
		Body:   body,
	})
	metrics.RecordNotification("in_app", err)
	if err != nil {
		errs = append(errs, fmt.Errorf("in-app: %w", err))
	}

	if err := n.publish(ctx, eventType, events.VideoFinishedData{
		VideoID:   v.ID.String(),
		Status:    string(v.Status),
		Qualities: qualities,
		Error:     v.ProcessingError.String,
	}); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (n *Notifier) publish(ctx context.Context, eventType string, data any) error {
	e, err := events.New(eventType, data)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if err := n.publisher.Publish(ctx, e); err != nil {
		return fmt.Errorf("event %s: %w", eventType, err)
	}
	return nil
}
