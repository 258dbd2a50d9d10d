package worker

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/cutroom/api/internal/client"
	"github.com/cutroom/api/internal/model"
	"github.com/cutroom/api/internal/service"
	ws "github.com/cutroom/api/internal/websocket"
)

// TranscodeWorker executes queued local transcode jobs. One asynq task
// equals one ffmpeg invocation; a failed encode leaves the job failed
// and is never retried.
type TranscodeWorker struct {
	process    *service.ProcessService
	media      *service.MediaService
	transcoder client.Transcoder
	hub        *ws.Hub
}

func NewTranscodeWorker(process *service.ProcessService, media *service.MediaService, transcoder client.Transcoder, hub *ws.Hub) *TranscodeWorker {
	return &TranscodeWorker{
		process:    process,
		media:      media,
		transcoder: transcoder,
		hub:        hub,
	}
}

// Register attaches the worker to the asynq mux.
func (w *TranscodeWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(service.TaskTypeTranscode, w.ProcessTask)
}

// ProcessTask runs one transcode job to a terminal state. The returned
// error is always nil: job failure is recorded on the job itself, and
// surfacing it to asynq would only mark the task failed a second time.
func (w *TranscodeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	jobID, err := service.ParseTranscodeTask(t)
	if err != nil {
		log.Printf("Dropping malformed transcode task: %v", err)
		return nil
	}

	job, err := w.process.StartJob(jobID)
	if err != nil {
		log.Printf("Transcode task for unknown job %s", jobID)
		return nil
	}
	if job.Status.Terminal() {
		return nil
	}
	w.hub.BroadcastProgress(jobID, 0, model.JobStatusProcessing, "")

	video, err := w.media.GetVideo(job.VideoID)
	if err != nil {
		w.fail(jobID, "Source video no longer exists")
		return nil
	}

	inputPath := w.media.AbsolutePath(video.FilePath)
	outputRel := w.process.OutputPathFor(jobID)
	outputPath := w.media.AbsolutePath(outputRel)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		w.fail(jobID, "Failed to prepare output directory: "+err.Error())
		return nil
	}

	var sourceDuration float64
	if video.Duration != nil {
		sourceDuration = *video.Duration
	}

	log.Printf("Transcoding job %s: %s -> %s", jobID, inputPath, outputRel)
	err = w.transcoder.Transcode(ctx, &client.TranscodeRequest{
		InputPath:      inputPath,
		OutputPath:     outputPath,
		Options:        job.Options,
		SourceDuration: sourceDuration,
	}, func(u client.ProgressUpdate) {
		progress, ok := client.EstimateProgress(u, sourceDuration)
		if !ok {
			return
		}
		if updated, found := w.process.UpdateProgress(jobID, progress); found {
			w.hub.BroadcastProgress(jobID, updated.Progress, updated.Status, "")
		}
	})
	if err != nil {
		log.Printf("Transcode failed for job %s: %v", jobID, err)
		os.Remove(outputPath)
		w.fail(jobID, "Processing failed: "+err.Error())
		return nil
	}

	outputURL := w.process.MirrorOutput(ctx, outputRel)
	completed, err := w.process.CompleteJob(jobID, outputRel, outputURL)
	if err != nil {
		log.Printf("Failed to record completion for job %s: %v", jobID, err)
		return nil
	}
	log.Printf("Transcode completed for job %s", jobID)
	w.hub.BroadcastComplete(jobID, completed)
	return nil
}

func (w *TranscodeWorker) fail(jobID, message string) {
	if _, err := w.process.FailJob(jobID, message); err != nil {
		log.Printf("Failed to record failure for job %s: %v", jobID, err)
		return
	}
	w.hub.BroadcastError(jobID, "TRANSCODE_FAILED", message)
}
