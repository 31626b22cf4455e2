package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/abdul-hamid-achik/learn.cheap/internal/certificate"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
)

type CertificateProcessor interface {
	ProcessJob(ctx context.Context, req certificate.Request) (certificate.Result, error)
}

func CertificateHandler(svc CertificateProcessor) queue.Handler {
	return func(ctx context.Context, j *job.Job) error {
		log := logger.FromContext(ctx).With("job_id", j.ID, "job_type", queue.TypeCertificateGenerate)
		log.Info("job started")
		start := time.Now()

		var payload CertificatePayload
		if err := j.UnmarshalPayload(&payload); err != nil {
			log.Error("invalid payload", "error", err)
			return middleware.Permanent(fmt.Errorf("invalid payload: %w", err))
		}

		log = log.With("enrollment_id", payload.EnrollmentID.String())
		res, err := svc.ProcessJob(logger.WithLogger(ctx, log), payload)
		if err != nil {
			log.Error("certificate generation failed", "error", err)
			if isPermanentCertificateError(err) {
				return middleware.Permanent(err)
			}
			return err
		}

		log.Info("job completed",
			"duration_ms", time.Since(start).Milliseconds(),
			"certificate_id", res.CertificateID.String(),
			"duplicate", res.Duplicate,
		)
		return nil
	}
}

func isPermanentCertificateError(err error) bool {
	return errors.Is(err, certificate.ErrEnrollmentNotFound) ||
		errors.Is(err, certificate.ErrEnrollmentNotCompleted) ||
		errors.Is(err, certificate.ErrInvalidRequest)
}
