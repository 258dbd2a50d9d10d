package model

import "testing"

func TestTargetDimensionsPresetWins(t *testing.T) {
	opts := ProcessOptions{
		Preset: PresetPortrait,
		Resize: &ResizeOptions{Width: 640, Height: 480},
	}
	w, h, ok := opts.TargetDimensions()
	if !ok {
		t.Fatal("expected dimensions")
	}
	if w != 1080 || h != 1920 {
		t.Errorf("expected 1080x1920, got %dx%d", w, h)
	}
}

func TestTargetDimensionsExplicitResize(t *testing.T) {
	opts := ProcessOptions{Resize: &ResizeOptions{Width: 640, Height: 480}}
	w, h, ok := opts.TargetDimensions()
	if !ok {
		t.Fatal("expected dimensions")
	}
	if w != 640 || h != 480 {
		t.Errorf("expected 640x480, got %dx%d", w, h)
	}
}

func TestTargetDimensionsNone(t *testing.T) {
	opts := ProcessOptions{Trim: &TrimOptions{Start: "00:00:01"}}
	if _, _, ok := opts.TargetDimensions(); ok {
		t.Error("expected no dimensions")
	}
}

func TestPresetDimensionsComplete(t *testing.T) {
	presets := []AspectRatioPreset{PresetPortrait, PresetLandscape, PresetSquare, PresetClassic, PresetTallClassic}
	for _, p := range presets {
		dims, ok := PresetDimensions[p]
		if !ok {
			t.Errorf("preset %s has no dimensions", p)
			continue
		}
		if dims.Width <= 0 || dims.Height <= 0 {
			t.Errorf("preset %s has invalid dimensions %dx%d", p, dims.Width, dims.Height)
		}
	}
}

func TestStepTransitions(t *testing.T) {
	cases := []struct {
		from, to StepStatus
		allowed  bool
	}{
		{StepStatusPending, StepStatusInProgress, true},
		{StepStatusPending, StepStatusCompleted, true},
		{StepStatusPending, StepStatusFailed, true},
		{StepStatusInProgress, StepStatusCompleted, true},
		{StepStatusInProgress, StepStatusFailed, true},
		{StepStatusInProgress, StepStatusPending, false},
		{StepStatusCompleted, StepStatusInProgress, false},
		{StepStatusCompleted, StepStatusFailed, false},
		{StepStatusFailed, StepStatusInProgress, false},
		{StepStatusFailed, StepStatusCompleted, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestNewPipelineStepsOrder(t *testing.T) {
	steps := NewPipelineSteps()
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	want := []StepKind{StepTranscription, StepAnalysis, StepPlanPreparation, StepExecution}
	for i, kind := range want {
		if steps[i].Kind != kind {
			t.Errorf("step %d: expected %s, got %s", i, kind, steps[i].Kind)
		}
		if steps[i].Status != StepStatusPending {
			t.Errorf("step %s: expected pending, got %s", kind, steps[i].Status)
		}
	}
}

func TestJobCloneIndependence(t *testing.T) {
	errMsg := "boom"
	job := &Job{
		ID:    "j1",
		Steps: NewPipelineSteps(),
		Error: &errMsg,
	}
	cp := job.Clone()
	cp.Steps[0].Status = StepStatusCompleted
	*cp.Error = "changed"

	if job.Steps[0].Status != StepStatusPending {
		t.Error("clone shares step slice with original")
	}
	if *job.Error != "boom" {
		t.Error("clone shares error pointer with original")
	}
}

func TestJobIsAI(t *testing.T) {
	if (&Job{}).IsAI() {
		t.Error("job without steps should not be AI")
	}
	if !(&Job{Steps: NewPipelineSteps()}).IsAI() {
		t.Error("job with steps should be AI")
	}
}
