package model

// ProcessRequest creates a simple transcode job.
type ProcessRequest struct {
	VideoID string         `json:"videoId" validate:"required"`
	Options ProcessOptions `json:"options"`
}

// JobCreatedResponse acknowledges an accepted job before any work happens.
type JobCreatedResponse struct {
	ID       string    `json:"id"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Message  string    `json:"message,omitempty"`
}
