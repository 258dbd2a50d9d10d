package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/cutroom/api/internal/client"
	"github.com/cutroom/api/internal/model"
	"github.com/cutroom/api/internal/store"
)

// ErrJobNotReady signals a download request for a job that has not
// completed yet.
var ErrJobNotReady = errors.New("job is not completed yet")

const (
	// TaskTypeTranscode is the asynq task type for local ffmpeg jobs.
	TaskTypeTranscode = "transcode:process"

	// QueueTranscode is the asynq queue local transcodes run on.
	QueueTranscode = "transcode"
)

type transcodePayload struct {
	JobID string `json:"jobId"`
}

// NewTranscodeTask builds the asynq task for a local transcode job.
// Jobs are never retried automatically: a failed ffmpeg run leaves the
// job in its failed state for the client to inspect.
func NewTranscodeTask(jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(transcodePayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTranscode, payload,
		asynq.Queue(QueueTranscode), asynq.MaxRetry(0)), nil
}

// ParseTranscodeTask extracts the job id from a transcode task payload.
func ParseTranscodeTask(t *asynq.Task) (string, error) {
	var p transcodePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return "", fmt.Errorf("invalid transcode payload: %w", err)
	}
	if p.JobID == "" {
		return "", errors.New("transcode payload missing jobId")
	}
	return p.JobID, nil
}

// TaskEnqueuer hands background tasks to the queue. Satisfied by
// *asynq.Client in production and by fakes in tests.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ProcessService creates and tracks editing jobs. Local transcode jobs
// are executed by the queue worker; the AI pipeline jobs it stores are
// driven by PipelineService.
type ProcessService struct {
	jobs     store.JobStore
	media    *MediaService
	enqueuer TaskEnqueuer
	storage  client.StorageClient
}

func NewProcessService(jobs store.JobStore, media *MediaService, enqueuer TaskEnqueuer, storage client.StorageClient) *ProcessService {
	return &ProcessService{
		jobs:     jobs,
		media:    media,
		enqueuer: enqueuer,
		storage:  storage,
	}
}

// CreateJob registers a local transcode job for an uploaded video and
// enqueues it for background execution.
func (s *ProcessService) CreateJob(ctx context.Context, req *model.ProcessRequest) (*model.Job, error) {
	video, err := s.media.GetVideo(req.VideoID)
	if err != nil {
		return nil, err
	}

	now := timeNow()
	job := &model.Job{
		ID:            uuid.New().String(),
		VideoID:       video.ID,
		OriginalVideo: video,
		Options:       req.Options,
		Status:        model.JobStatusPending,
		Progress:      0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.jobs.Create(job)

	task, err := NewTranscodeTask(job.ID)
	if err == nil {
		_, err = s.enqueuer.Enqueue(task)
	}
	if err != nil {
		s.failJob(job.ID, "Failed to queue job: "+err.Error())
		return nil, fmt.Errorf("failed to enqueue transcode job: %w", err)
	}
	return job, nil
}

// GetJob fetches one job.
func (s *ProcessService) GetJob(id string) (*model.Job, error) {
	job, ok := s.jobs.Get(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// ListJobs returns all jobs, newest first.
func (s *ProcessService) ListJobs() []*model.Job {
	return s.jobs.List()
}

// DeleteJob removes a job record together with its output artifact and
// mirrored copy, when either exists. Returns false for unknown ids.
func (s *ProcessService) DeleteJob(ctx context.Context, id string) bool {
	job, ok := s.jobs.Get(id)
	if !ok {
		return false
	}
	if job.OutputPath != "" {
		removeIfExists(s.media.AbsolutePath(job.OutputPath))
		if s.storage != nil {
			if err := s.storage.Delete(ctx, job.OutputPath); err != nil {
				log.Printf("Failed to delete mirrored output for job %s: %v", id, err)
			}
		}
	}
	return s.jobs.Delete(id)
}

// DownloadPath resolves the local file for a completed job's output.
func (s *ProcessService) DownloadPath(id string) (string, error) {
	job, ok := s.jobs.Get(id)
	if !ok {
		return "", ErrJobNotFound
	}
	if job.Status != model.JobStatusCompleted || job.OutputPath == "" {
		return "", ErrJobNotReady
	}
	return s.media.AbsolutePath(job.OutputPath), nil
}

// OutputPathFor is the storage-relative location transcoded output is
// written to.
func (s *ProcessService) OutputPathFor(jobID string) string {
	return outputDir + "/" + jobID + ".mp4"
}

// StartJob flips a pending job to processing. Worker hook.
func (s *ProcessService) StartJob(id string) (*model.Job, error) {
	job, ok := s.jobs.Update(id, func(j *model.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = model.JobStatusProcessing
		j.Progress = 0
	})
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// UpdateProgress records transcode progress, capped below 100 until the
// job actually completes.
func (s *ProcessService) UpdateProgress(id string, progress int) (*model.Job, bool) {
	if progress < 0 {
		progress = 0
	}
	if progress > 99 {
		progress = 99
	}
	return s.jobs.Update(id, func(j *model.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Progress = progress
	})
}

// CompleteJob marks a job finished with its output artifact.
func (s *ProcessService) CompleteJob(id, outputPath, outputURL string) (*model.Job, error) {
	job, ok := s.jobs.Update(id, func(j *model.Job) {
		j.Status = model.JobStatusCompleted
		j.Progress = 100
		j.OutputPath = outputPath
		j.OutputURL = outputURL
		j.Error = nil
	})
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// FailJob marks a job failed with a message.
func (s *ProcessService) FailJob(id, message string) (*model.Job, error) {
	job, ok := s.failJob(id, message)
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *ProcessService) failJob(id, message string) (*model.Job, bool) {
	if message == "" {
		message = "Processing failed"
	}
	return s.jobs.Update(id, func(j *model.Job) {
		j.Status = model.JobStatusFailed
		j.Error = &message
	})
}

// MirrorOutput uploads a finished artifact to object storage and returns
// its public URL. A nil or unconfigured storage client yields "".
func (s *ProcessService) MirrorOutput(ctx context.Context, relPath string) string {
	if s.storage == nil {
		return ""
	}
	key := filepath.ToSlash(relPath)
	url, err := s.storage.UploadFile(ctx, key, s.media.AbsolutePath(relPath), "video/mp4")
	if err != nil {
		log.Printf("Failed to mirror output %s: %v", relPath, err)
		return ""
	}
	return url
}
