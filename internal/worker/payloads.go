package worker

import (
	"github.com/abdul-hamid-achik/learn.cheap/internal/certificate"
	"github.com/google/uuid"
)

type VideoTranscodePayload struct {
	VideoID uuid.UUID `json:"video_id"`
}

// CertificatePayload is {enrollmentId, userId, courseId}.
type CertificatePayload = certificate.Request

func NewVideoTranscodePayload(videoID uuid.UUID) VideoTranscodePayload {
	return VideoTranscodePayload{VideoID: videoID}
}

func NewCertificatePayload(enrollmentID, userID, courseID uuid.UUID) CertificatePayload {
	return CertificatePayload{
		EnrollmentID: enrollmentID,
		UserID:       userID,
		CourseID:     courseID,
	}
}
