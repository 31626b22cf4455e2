package api

import (
	"encoding/json"
	"net/http"

	"github.com/abdul-hamid-achik/learn.cheap/internal/apperror"
	"github.com/abdul-hamid-achik/learn.cheap/internal/logger"
	"github.com/abdul-hamid-achik/learn.cheap/internal/queue"
	"github.com/abdul-hamid-achik/learn.cheap/internal/worker"
)

type enrollmentCompletedResponse struct {
	JobID        string `json:"jobId"`
	EnrollmentID string `json:"enrollmentId"`
}

// enrollmentCompleted verifies the signed callback and enqueues certificate generation.
func (h *handlers) enrollmentCompleted(w http.ResponseWriter, r *http.Request) {
	if h.cfg.WebhookSecret == "" {
		apperror.WriteJSON(w, r, apperror.New("webhooks_disabled", "Enrollment webhooks are not configured", http.StatusServiceUnavailable))
		return
	}

	body, err := h.verifier.VerifyRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload worker.CertificatePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	jobID, err := h.cfg.Enqueuer.Enqueue(r.Context(), queue.TypeCertificateGenerate, payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("certificate job enqueued",
		"job_id", jobID,
		"enrollment_id", payload.EnrollmentID.String(),
	)
	writeJSON(w, http.StatusAccepted, enrollmentCompletedResponse{
		JobID:        jobID,
		EnrollmentID: payload.EnrollmentID.String(),
	})
}
