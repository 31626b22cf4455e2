package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const getEnrollmentDetails = `SELECT e.id, e.user_id, e.course_id, e.status, e.completed_at, e.certificate_id,
	u.name, u.email, c.title, m.name
FROM enrollments e
JOIN users u ON u.id = e.user_id
JOIN courses c ON c.id = e.course_id
LEFT JOIN users m ON m.id = c.mentor_id
WHERE e.id = $1`

func (q *Queries) GetEnrollmentDetails(ctx context.Context, id uuid.UUID) (EnrollmentDetails, error) {
	var e EnrollmentDetails
	err := q.db.QueryRow(ctx, getEnrollmentDetails, id).Scan(
		&e.ID,
		&e.UserID,
		&e.CourseID,
		&e.Status,
		&e.CompletedAt,
		&e.CertificateID,
		&e.StudentName,
		&e.StudentEmail,
		&e.CourseTitle,
		&e.MentorName,
	)
	return e, notFound(err)
}

const certificateColumns = `id, user_id, course_id, enrollment_id, certificate_number, status, metadata, image_key, issued_at`

func scanCertificate(row pgx.Row) (Certificate, error) {
	var (
		c    Certificate
		meta []byte
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.CourseID,
		&c.EnrollmentID,
		&c.CertificateNumber,
		&c.Status,
		&meta,
		&c.ImageKey,
		&c.IssuedAt,
	)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(meta, &c.Metadata); err != nil {
		return c, fmt.Errorf("decode certificate metadata: %w", err)
	}
	return c, nil
}

const getCertificate = `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`

func (q *Queries) GetCertificate(ctx context.Context, id uuid.UUID) (Certificate, error) {
	c, err := scanCertificate(q.db.QueryRow(ctx, getCertificate, id))
	return c, notFound(err)
}

const getActiveCertificate = `SELECT ` + certificateColumns + ` FROM certificates
WHERE user_id = $1 AND course_id = $2 AND status = 'ISSUED'`

func (q *Queries) GetActiveCertificate(ctx context.Context, userID, courseID uuid.UUID) (Certificate, error) {
	c, err := scanCertificate(q.db.QueryRow(ctx, getActiveCertificate, userID, courseID))
	return c, notFound(err)
}

type CreateCertificateParams struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	CourseID          uuid.UUID
	EnrollmentID      uuid.UUID
	CertificateNumber string
	Metadata          CertificateMetadata
}

const createCertificate = `INSERT INTO certificates (id, user_id, course_id, enrollment_id, certificate_number, status, metadata)
VALUES ($1, $2, $3, $4, $5, 'ISSUED', $6)
RETURNING ` + certificateColumns

func (q *Queries) CreateCertificate(ctx context.Context, arg CreateCertificateParams) (Certificate, error) {
	meta, err := json.Marshal(arg.Metadata)
	if err != nil {
		return Certificate{}, fmt.Errorf("encode certificate metadata: %w", err)
	}
	row := q.db.QueryRow(ctx, createCertificate,
		arg.ID,
		arg.UserID,
		arg.CourseID,
		arg.EnrollmentID,
		arg.CertificateNumber,
		meta,
	)
	return scanCertificate(row)
}

const linkEnrollmentCertificate = `UPDATE enrollments SET certificate_id = $2 WHERE id = $1`

func (q *Queries) LinkEnrollmentCertificate(ctx context.Context, enrollmentID, certificateID uuid.UUID) error {
	_, err := q.db.Exec(ctx, linkEnrollmentCertificate, enrollmentID, certificateID)
	return err
}

const setCertificateImage = `UPDATE certificates SET image_key = $2 WHERE id = $1`

func (q *Queries) SetCertificateImage(ctx context.Context, id uuid.UUID, key string) error {
	_, err := q.db.Exec(ctx, setCertificateImage, id, key)
	return err
}

// IssueCertificate inserts the certificate and links it to its enrollment atomically.
func (s *Store) IssueCertificate(ctx context.Context, arg CreateCertificateParams) (Certificate, error) {
	var cert Certificate
	err := s.ExecTx(ctx, func(q *Queries) error {
		var err error
		cert, err = q.CreateCertificate(ctx, arg)
		if err != nil {
			return err
		}
		return q.LinkEnrollmentCertificate(ctx, arg.EnrollmentID, cert.ID)
	})
	return cert, err
}

type CreateNotificationParams struct {
	UserID uuid.UUID
	Kind   string
	Title  string
	Body   string
}

const createNotification = `INSERT INTO notifications (id, user_id, kind, title, body) VALUES ($1, $2, $3, $4, $5)`

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) error {
	_, err := q.db.Exec(ctx, createNotification, uuid.New(), arg.UserID, arg.Kind, arg.Title, arg.Body)
	return err
}
