package model

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final for a job.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Pipeline step kinds
type StepKind string

const (
	StepTranscription   StepKind = "transcription"
	StepAnalysis        StepKind = "analysis"
	StepPlanPreparation StepKind = "plan_preparation"
	StepExecution       StepKind = "execution"
)

// PipelineSteps is the fixed, ordered set of stages an AI job goes through.
var PipelineSteps = []struct {
	Kind StepKind
	Name string
}{
	{StepTranscription, "Speech transcription"},
	{StepAnalysis, "Content analysis"},
	{StepPlanPreparation, "Edit plan preparation"},
	{StepExecution, "Transcode execution"},
}

// ValidStepKind reports whether k names a known pipeline stage.
func ValidStepKind(k StepKind) bool {
	for _, s := range PipelineSteps {
		if s.Kind == k {
			return true
		}
	}
	return false
}

// Step status
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// CanTransition reports whether a step may move from s to next. Transitions
// are monotonic: pending → in_progress → completed or failed, never backward.
func (s StepStatus) CanTransition(next StepStatus) bool {
	switch s {
	case StepStatusPending:
		return next == StepStatusInProgress || next == StepStatusCompleted || next == StepStatusFailed
	case StepStatusInProgress:
		return next == StepStatusCompleted || next == StepStatusFailed
	default:
		// completed and failed are terminal for the step
		return false
	}
}

// Resize fit modes
type FitMode string

const (
	FitCover   FitMode = "cover"   // scale to cover, center-crop excess
	FitContain FitMode = "contain" // scale to fit, pad with black
	FitFill    FitMode = "fill"    // stretch, ignore aspect ratio
)

// Subtitle anchor positions
type SubtitlePosition string

const (
	SubtitleTop    SubtitlePosition = "top"
	SubtitleCenter SubtitlePosition = "center"
	SubtitleBottom SubtitlePosition = "bottom"
)

// Aspect-ratio presets
type AspectRatioPreset string

const (
	PresetPortrait    AspectRatioPreset = "9:16"
	PresetLandscape   AspectRatioPreset = "16:9"
	PresetSquare      AspectRatioPreset = "1:1"
	PresetClassic     AspectRatioPreset = "4:3"
	PresetTallClassic AspectRatioPreset = "3:4"
)

// PresetDimensions maps each preset to its fixed output size.
var PresetDimensions = map[AspectRatioPreset]struct {
	Width  int
	Height int
}{
	PresetPortrait:    {1080, 1920},
	PresetLandscape:   {1920, 1080},
	PresetSquare:      {1080, 1080},
	PresetClassic:     {1440, 1080},
	PresetTallClassic: {1080, 1440},
}
