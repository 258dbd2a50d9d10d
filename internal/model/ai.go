package model

// TranscribeRequest runs (or returns the cached result of) speech
// transcription for a stored video.
type TranscribeRequest struct {
	VideoID string `json:"videoId" validate:"required"`
}

// TranscribeResponse reports the transcript and whether it was cached.
type TranscribeResponse struct {
	Success    bool        `json:"success"`
	Cached     bool        `json:"cached"`
	Transcript *Transcript `json:"transcript"`
}

// AnalyzeRequest previews an edit plan without creating a job.
type AnalyzeRequest struct {
	VideoID    string      `json:"videoId" validate:"required"`
	UserPrompt string      `json:"userPrompt" validate:"required"`
	Transcript *Transcript `json:"transcript,omitempty"`
}

// AnalyzeResponse carries the structured analysis preview.
type AnalyzeResponse struct {
	Success    bool            `json:"success"`
	Analysis   *AnalysisResult `json:"analysis"`
	Transcript *Transcript     `json:"transcript,omitempty"`
}

// AiProcessRequest starts the remote multi-step editing pipeline.
// AnalysisParams, when present, skips transcription and analysis remotely.
type AiProcessRequest struct {
	VideoID        string          `json:"videoId" validate:"required"`
	UserPrompt     string          `json:"userPrompt" validate:"required"`
	AnalysisParams *ProcessOptions `json:"analysisParams,omitempty"`
}

// JobCallbackRequest is the job-level callback posted by the remote pipeline.
type JobCallbackRequest struct {
	JobID      string          `json:"jobId" validate:"required"`
	Status     JobStatus       `json:"status" validate:"required,oneof=pending processing completed failed"`
	Message    string          `json:"message,omitempty"`
	OutputPath string          `json:"outputPath,omitempty"`
	Analysis   string          `json:"analysis,omitempty"`
	Params     *ProcessOptions `json:"params,omitempty"`
	Transcript *Transcript     `json:"transcript,omitempty"`
}

// StepCallbackRequest is the per-step callback posted by the remote pipeline.
type StepCallbackRequest struct {
	JobID    string     `json:"jobId" validate:"required"`
	Step     StepKind   `json:"step" validate:"required"`
	Status   StepStatus `json:"status" validate:"required,oneof=pending in_progress completed failed"`
	Message  string     `json:"message,omitempty"`
	Progress *int       `json:"progress,omitempty"`
}
