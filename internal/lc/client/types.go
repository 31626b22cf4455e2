package client

type UploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Status   string `json:"status"`
	JobID    string `json:"jobId"`
}

// Progress mirrors one progress event or status snapshot.
type Progress struct {
	VideoID            string   `json:"videoId"`
	Status             string   `json:"status"`
	Progress           int      `json:"progress"`
	CompletedQualities []string `json:"completedQualities"`
	TargetQualities    []string `json:"targetQualities"`
	Error              string   `json:"error,omitempty"`
}

func (p Progress) Terminal() bool {
	return p.Status == "COMPLETED" || p.Status == "FAILED"
}

type EnrollmentCompleted struct {
	EnrollmentID string `json:"enrollmentId"`
	UserID       string `json:"userId"`
	CourseID     string `json:"courseId"`
}

type WebhookResponse struct {
	JobID        string `json:"jobId"`
	EnrollmentID string `json:"enrollmentId"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
