package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cutroom/api/internal/client"
	"github.com/cutroom/api/internal/config"
	"github.com/cutroom/api/internal/model"
	"github.com/cutroom/api/internal/store"
	ws "github.com/cutroom/api/internal/websocket"
)

// PipelineService drives AI editing jobs: it registers the job, launches
// the remote trigger script detached, and applies every inbound callback.
// All mutations of AI job state flow through this service so concurrent
// step and job callbacks cannot interleave inconsistently.
type PipelineService struct {
	jobs   store.JobStore
	media  *MediaService
	runner client.RemoteRunner
	hub    *ws.Hub
	remote config.RemoteConfig
	// hostDataRoot is the storage root as the remote host sees it; used
	// both to build script arguments and to normalize callback paths.
	hostDataRoot string
}

func NewPipelineService(jobs store.JobStore, media *MediaService, runner client.RemoteRunner, hub *ws.Hub, remote config.RemoteConfig, hostDataRoot string) *PipelineService {
	return &PipelineService{
		jobs:         jobs,
		media:        media,
		runner:       runner,
		hub:          hub,
		remote:       remote,
		hostDataRoot: hostDataRoot,
	}
}

// CreateAiJob registers a four-step AI job and launches the remote
// pipeline. The job id is generated before the trigger runs so it can be
// embedded in the callback URL. The returned job is already failed when
// the local ssh process could not even start.
func (s *PipelineService) CreateAiJob(ctx context.Context, req *model.AiProcessRequest) (*model.Job, error) {
	video, err := s.media.GetVideo(req.VideoID)
	if err != nil {
		return nil, err
	}
	if s.runner == nil || !s.runner.IsConfigured() {
		return nil, ErrRemoteUnavailable
	}
	if err := s.media.EnsureDirectories(); err != nil {
		return nil, err
	}

	now := timeNow()
	job := &model.Job{
		ID:            uuid.New().String(),
		VideoID:       video.ID,
		OriginalVideo: video,
		Status:        model.JobStatusPending,
		UserPrompt:    req.UserPrompt,
		Steps:         model.NewPipelineSteps(),
		EditPlan:      req.AnalysisParams,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.jobs.Create(job)

	if err := s.trigger(job, video); err != nil {
		log.Printf("Failed to launch pipeline for job %s: %v", job.ID, err)
		failed, _ := s.applyFailure(job.ID, "Failed to launch remote pipeline: "+err.Error())
		if failed != nil {
			return failed, nil
		}
	}
	if current, ok := s.jobs.Get(job.ID); ok {
		return current, nil
	}
	return job, nil
}

// trigger launches trigger.sh detached on the remote host. The script
// keeps running after this request ends; its exit is observed only to
// catch launch-phase failures, all real progress arrives via callbacks.
func (s *PipelineService) trigger(job *model.Job, video *model.UploadedVideo) error {
	planJSON := ""
	if job.EditPlan != nil {
		data, err := json.Marshal(job.EditPlan)
		if err != nil {
			return fmt.Errorf("failed to encode edit plan: %w", err)
		}
		planJSON = string(data)
	}

	args := []string{
		path.Join(s.remote.ScriptsDir, "trigger.sh"),
		hostAbsPath(s.hostDataRoot, s.media, video.FilePath),
		hostAbsPath(s.hostDataRoot, s.media, outputDir+"/"+job.ID+".mp4"),
		job.UserPrompt,
		s.remote.CallbackBaseURL + "/ai-callback",
		job.ID,
		planJSON,
	}

	jobID := job.ID
	return s.runner.Start(client.RemoteCommand{
		Args:           args,
		ConnectTimeout: s.remote.TriggerConnectTimeout,
	}, func(exitCode int, stderr string) {
		if exitCode == 0 {
			return
		}
		log.Printf("Pipeline trigger for job %s exited with code %d: %s", jobID, exitCode, stderr)
		s.applyFailure(jobID, fmt.Sprintf("Remote pipeline trigger exited with code %d", exitCode))
	})
}

// ApplyStepCallback records one step transition reported by the remote
// pipeline. Transitions that would move a step backward are ignored;
// they arise from out-of-order callback delivery and carry no new
// information. A failed step fails the whole job.
func (s *PipelineService) ApplyStepCallback(req *model.StepCallbackRequest) (*model.Job, error) {
	if !model.ValidStepKind(req.Step) {
		return nil, fmt.Errorf("unknown step %q", req.Step)
	}

	job, ok := s.jobs.Update(req.JobID, func(j *model.Job) {
		if j.Status.Terminal() {
			return
		}
		step := j.FindStep(req.Step)
		if step == nil {
			return
		}
		if !step.Status.CanTransition(req.Status) {
			return
		}

		now := timeNow()
		step.Status = req.Status
		step.Message = req.Message
		switch req.Status {
		case model.StepStatusInProgress:
			if step.StartedAt == nil {
				step.StartedAt = &now
			}
			if req.Progress != nil {
				step.Progress = *req.Progress
			}
			j.CurrentStep = req.Step
			j.Status = model.JobStatusProcessing
		case model.StepStatusCompleted:
			step.Progress = 100
			step.CompletedAt = &now
			if j.Status == model.JobStatusPending {
				j.Status = model.JobStatusProcessing
			}
		case model.StepStatusFailed:
			step.CompletedAt = &now
			message := req.Message
			if message == "" {
				message = fmt.Sprintf("Step %s failed", step.Name)
			}
			failJobState(j, message)
		}
		recomputeStepProgress(j)
	})
	if !ok {
		return nil, ErrJobNotFound
	}

	s.broadcast(job)
	return job, nil
}

// ApplyJobCallback records a job-level status report from the remote
// pipeline. Terminal reports short-circuit: completed forces every step
// to completed/100 even when intermediate step callbacks never arrived,
// failed preserves the step trail as a diagnostic. Late callbacks for an
// already-terminal job are ignored.
func (s *PipelineService) ApplyJobCallback(req *model.JobCallbackRequest) (*model.Job, error) {
	job, ok := s.jobs.Update(req.JobID, func(j *model.Job) {
		if j.Status.Terminal() {
			return
		}
		now := timeNow()
		switch req.Status {
		case model.JobStatusCompleted:
			j.Status = model.JobStatusCompleted
			j.Progress = 100
			j.CurrentStep = ""
			j.Error = nil
			j.OutputPath = s.normalizeOutputPath(req.OutputPath)
			if j.OutputPath == "" {
				j.OutputPath = outputDir + "/" + j.ID + ".mp4"
			}
			if req.Analysis != "" {
				j.Analysis = req.Analysis
			}
			if req.Params != nil {
				j.EditPlan = req.Params
				j.Options = *req.Params
			}
			for i := range j.Steps {
				j.Steps[i].Status = model.StepStatusCompleted
				j.Steps[i].Progress = 100
				if j.Steps[i].CompletedAt == nil {
					j.Steps[i].CompletedAt = &now
				}
			}
		case model.JobStatusFailed:
			failJobState(j, req.Message)
		case model.JobStatusProcessing:
			j.Status = model.JobStatusProcessing
		}
		if req.Transcript != nil {
			j.Transcript = req.Transcript
		}
	})
	if !ok {
		return nil, ErrJobNotFound
	}

	// Cache the transcript on the source video so later transcribe and
	// analyze calls skip the remote run.
	if req.Transcript != nil {
		if _, err := s.media.UpdateTranscript(job.VideoID, req.Transcript); err != nil {
			log.Printf("Failed to attach transcript to video %s: %v", job.VideoID, err)
		}
	}

	s.broadcast(job)
	return job, nil
}

// applyFailure is the shared failure path for trigger exits and launch
// errors. It is a no-op for jobs already in a terminal state.
func (s *PipelineService) applyFailure(jobID, message string) (*model.Job, bool) {
	job, ok := s.jobs.Update(jobID, func(j *model.Job) {
		if j.Status.Terminal() {
			return
		}
		failJobState(j, message)
	})
	if ok {
		s.broadcast(job)
	}
	return job, ok
}

func (s *PipelineService) broadcast(job *model.Job) {
	if s.hub == nil {
		return
	}
	switch job.Status {
	case model.JobStatusCompleted:
		s.hub.BroadcastComplete(job.ID, job)
	case model.JobStatusFailed:
		message := "Processing failed"
		if job.Error != nil {
			message = *job.Error
		}
		s.hub.BroadcastError(job.ID, "PIPELINE_FAILED", message)
	default:
		s.hub.BroadcastProgress(job.ID, job.Progress, job.Status, string(job.CurrentStep))
	}
}

// normalizeOutputPath converts a callback-reported output path, which may
// be absolute from either the container's or the remote host's point of
// view, back to storage-relative form.
func (s *PipelineService) normalizeOutputPath(p string) string {
	if p == "" {
		return ""
	}
	p = filepath.ToSlash(p)
	for _, root := range []string{s.hostDataRoot, absStorageRoot(s.media), s.media.storageRoot} {
		if root == "" {
			continue
		}
		root = strings.TrimSuffix(filepath.ToSlash(root), "/") + "/"
		if strings.HasPrefix(p, root) {
			return strings.TrimPrefix(p, root)
		}
	}
	if path.IsAbs(p) {
		// Unrecognized absolute root; the artifact name is still ours.
		return outputDir + "/" + path.Base(p)
	}
	return p
}

// failJobState applies the failed terminal state to a job in place.
// Any step still running moves to failed so no step outlives its job;
// completed and pending steps keep their trail.
func failJobState(j *model.Job, message string) {
	if message == "" {
		message = "Processing failed"
	}
	now := timeNow()
	j.Status = model.JobStatusFailed
	j.Error = &message
	j.CurrentStep = ""
	for i := range j.Steps {
		if j.Steps[i].Status == model.StepStatusInProgress {
			j.Steps[i].Status = model.StepStatusFailed
			j.Steps[i].CompletedAt = &now
		}
	}
}

// recomputeStepProgress derives job progress from the completed-step
// ratio. Completed and failed jobs keep their terminal progress value.
func recomputeStepProgress(j *model.Job) {
	if len(j.Steps) == 0 || j.Status == model.JobStatusCompleted {
		return
	}
	completed := 0
	for _, s := range j.Steps {
		if s.Status == model.StepStatusCompleted {
			completed++
		}
	}
	j.Progress = int(math.Round(100 * float64(completed) / float64(len(j.Steps))))
}

// hostAbsPath maps a storage-relative path to the absolute path the
// remote pipeline scripts see. Without a configured host root the local
// absolute path is used, covering single-machine deployments.
func hostAbsPath(hostRoot string, media *MediaService, rel string) string {
	if hostRoot != "" {
		return path.Join(filepath.ToSlash(hostRoot), filepath.ToSlash(rel))
	}
	return filepath.Join(absStorageRoot(media), filepath.FromSlash(rel))
}

func absStorageRoot(media *MediaService) string {
	abs, err := filepath.Abs(media.storageRoot)
	if err != nil {
		return media.storageRoot
	}
	return abs
}
