package model

import "time"

// TrimOptions cuts the source to [Start, End]. Timestamps are HH:MM:SS
// (fractional seconds allowed). End may be empty to keep the tail.
type TrimOptions struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end,omitempty"`
}

// ResizeOptions scales the output to an explicit box.
type ResizeOptions struct {
	Width  int     `json:"width" validate:"required,min=16"`
	Height int     `json:"height" validate:"required,min=16"`
	Fit    FitMode `json:"fit,omitempty" validate:"omitempty,oneof=cover contain fill"`
}

// SubtitleOptions burns a text overlay into the output.
type SubtitleOptions struct {
	Text            string           `json:"text" validate:"required"`
	Position        SubtitlePosition `json:"position,omitempty" validate:"omitempty,oneof=top center bottom"`
	FontSize        int              `json:"fontSize,omitempty" validate:"omitempty,min=8,max=200"`
	FontColor       string           `json:"fontColor,omitempty"`
	BackgroundColor string           `json:"backgroundColor,omitempty"`
}

// ProcessOptions is the declarative transformation plan attached to a job.
// Preset and Resize are alternatives; the preset wins when both are set.
type ProcessOptions struct {
	Trim     *TrimOptions      `json:"trim,omitempty"`
	Resize   *ResizeOptions    `json:"resize,omitempty"`
	Preset   AspectRatioPreset `json:"preset,omitempty" validate:"omitempty,oneof=9:16 16:9 1:1 4:3 3:4"`
	Subtitle *SubtitleOptions  `json:"subtitle,omitempty"`
}

// TargetDimensions resolves the requested output box: preset first, then
// explicit resize. ok is false when neither is set.
func (o *ProcessOptions) TargetDimensions() (width, height int, ok bool) {
	if o.Preset != "" {
		if dims, found := PresetDimensions[o.Preset]; found {
			return dims.Width, dims.Height, true
		}
	}
	if o.Resize != nil {
		return o.Resize.Width, o.Resize.Height, true
	}
	return 0, 0, false
}

// Step tracks one stage of an AI-assisted job.
type Step struct {
	Kind        StepKind   `json:"step"`
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// NewPipelineSteps returns the fixed step list, all pending.
func NewPipelineSteps() []Step {
	steps := make([]Step, 0, len(PipelineSteps))
	for _, s := range PipelineSteps {
		steps = append(steps, Step{
			Kind:   s.Kind,
			Name:   s.Name,
			Status: StepStatusPending,
		})
	}
	return steps
}

// Job is a tracked media transformation. Simple jobs carry only Options;
// AI jobs additionally carry UserPrompt, Steps and the analysis fields.
type Job struct {
	ID            string          `json:"id"`
	VideoID       string          `json:"videoId"`
	OriginalVideo *UploadedVideo  `json:"originalVideo,omitempty"`
	Options       ProcessOptions  `json:"options"`
	Status        JobStatus       `json:"status"`
	Progress      int             `json:"progress"`
	OutputPath    string          `json:"outputPath,omitempty"`
	OutputURL     string          `json:"outputUrl,omitempty"`
	Error         *string         `json:"error,omitempty"`
	UserPrompt    string          `json:"userPrompt,omitempty"`
	Steps         []Step          `json:"steps,omitempty"`
	CurrentStep   StepKind        `json:"currentStep,omitempty"`
	Analysis      string          `json:"analysis,omitempty"`
	EditPlan      *ProcessOptions `json:"editPlan,omitempty"`
	Transcript    *Transcript     `json:"transcript,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// IsAI reports whether the job is step-tracked.
func (j *Job) IsAI() bool {
	return len(j.Steps) > 0
}

// FindStep returns a pointer into the job's step list, or nil.
func (j *Job) FindStep(kind StepKind) *Step {
	for i := range j.Steps {
		if j.Steps[i].Kind == kind {
			return &j.Steps[i]
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand out of the store.
func (j *Job) Clone() *Job {
	cp := *j
	if j.OriginalVideo != nil {
		cp.OriginalVideo = j.OriginalVideo.Clone()
	}
	if j.Error != nil {
		e := *j.Error
		cp.Error = &e
	}
	if j.Steps != nil {
		cp.Steps = make([]Step, len(j.Steps))
		copy(cp.Steps, j.Steps)
	}
	if j.EditPlan != nil {
		plan := *j.EditPlan
		cp.EditPlan = &plan
	}
	if j.Transcript != nil {
		cp.Transcript = j.Transcript.Clone()
	}
	return &cp
}

// AnalysisResult is the preview output of the standalone analysis flow.
type AnalysisResult struct {
	Summary string          `json:"summary"`
	Params  *ProcessOptions `json:"params,omitempty"`
}
