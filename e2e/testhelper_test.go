package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/cutroom/api/internal/client"
	"github.com/cutroom/api/internal/config"
	"github.com/cutroom/api/internal/handler"
	"github.com/cutroom/api/internal/model"
	"github.com/cutroom/api/internal/service"
	"github.com/cutroom/api/internal/store"
	"github.com/cutroom/api/internal/worker"
	ws "github.com/cutroom/api/internal/websocket"
)

// testApp wires the full HTTP surface with in-memory stores, a fake
// remote runner, a fake encoder, and a queue that executes tasks inline.
type testApp struct {
	app        *fiber.App
	videos     store.VideoStore
	jobs       store.JobStore
	runner     *fakeRunner
	transcoder *fakeTranscoder
}

// fakeRunner stands in for the SSH client.
type fakeRunner struct {
	configured bool
	stdout     string
	stderr     string
	runErr     error
	runCalls   []client.RemoteCommand
	startCalls []client.RemoteCommand
	onExit     client.ExitObserver
}

func (f *fakeRunner) IsConfigured() bool { return f.configured }

func (f *fakeRunner) Run(ctx context.Context, cmd client.RemoteCommand) ([]byte, []byte, error) {
	f.runCalls = append(f.runCalls, cmd)
	return []byte(f.stdout), []byte(f.stderr), f.runErr
}

func (f *fakeRunner) Start(cmd client.RemoteCommand, onExit client.ExitObserver) error {
	f.startCalls = append(f.startCalls, cmd)
	f.onExit = onExit
	return nil
}

// fakeTranscoder stands in for ffmpeg/ffprobe.
type fakeTranscoder struct {
	duration     float64
	transcodeErr error
}

func (f *fakeTranscoder) Probe(ctx context.Context, path string) (*client.MediaInfo, error) {
	d := f.duration
	return &client.MediaInfo{Duration: &d}, nil
}

func (f *fakeTranscoder) Transcode(ctx context.Context, req *client.TranscodeRequest, onProgress func(client.ProgressUpdate)) error {
	if f.transcodeErr != nil {
		return f.transcodeErr
	}
	onProgress(client.ProgressUpdate{Position: f.duration / 2})
	return writeFile(req.OutputPath, "encoded output")
}

// inlineQueue executes transcode tasks synchronously on enqueue, so
// tests observe terminal job states without redis or background timing.
type inlineQueue struct {
	worker *worker.TranscodeWorker
}

func (q *inlineQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.worker != nil {
		if err := q.worker.ProcessTask(context.Background(), task); err != nil {
			return nil, err
		}
	}
	return &asynq.TaskInfo{}, nil
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	validate := validator.New()
	hub := ws.NewHub()
	go hub.Run()

	videos := store.NewMemoryVideoStore()
	jobs := store.NewMemoryJobStore()
	runner := &fakeRunner{configured: true}
	transcoder := &fakeTranscoder{duration: 10}

	remote := config.RemoteConfig{
		ScriptsDir:               "/opt/cutroom/scripts",
		CallbackBaseURL:          "http://localhost:3333",
		TriggerConnectTimeout:    10,
		TranscribeConnectTimeout: 30,
		AnalyzeConnectTimeout:    120,
		WhisperModel:             "base",
		WhisperLanguage:          "en",
		AnalyzeModel:             "sonnet",
	}

	storageRoot := t.TempDir()
	mediaService := service.NewMediaService(videos, transcoder, storageRoot)
	if err := mediaService.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	queue := &inlineQueue{}
	processService := service.NewProcessService(jobs, mediaService, queue, nil)
	queue.worker = worker.NewTranscodeWorker(processService, mediaService, transcoder, hub)

	pipelineService := service.NewPipelineService(jobs, mediaService, runner, hub, remote, "")
	aiService := service.NewAiService(mediaService, runner, remote, "")

	videoHandler := handler.NewVideoHandler(mediaService, t.TempDir())
	jobHandler := handler.NewJobHandler(processService, validate)
	aiHandler := handler.NewAiHandler(aiService, pipelineService, validate)
	callbackHandler := handler.NewCallbackHandler(pipelineService, validate)

	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024 * 1024,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"remote": runner.IsConfigured(),
				"r2":     false,
				"auth":   false,
			},
		})
	})

	app.Post("/ai-callback", callbackHandler.JobCallback)
	app.Post("/step-callback", callbackHandler.StepCallback)

	app.Post("/videos", videoHandler.Upload)
	app.Get("/videos", videoHandler.List)
	app.Get("/videos/:id", videoHandler.Get)
	app.Delete("/videos/:id", videoHandler.Delete)

	app.Post("/process", jobHandler.Create)
	app.Get("/jobs", jobHandler.List)
	app.Get("/jobs/:id", jobHandler.Get)
	app.Delete("/jobs/:id", jobHandler.Delete)
	app.Get("/download/:jobId", jobHandler.Download)
	app.Get("/preview/*", videoHandler.Preview)

	app.Post("/transcribe", aiHandler.Transcribe)
	app.Post("/ai-analyze", aiHandler.Analyze)
	app.Post("/ai-process", aiHandler.Process)

	return &testApp{
		app:        app,
		videos:     videos,
		jobs:       jobs,
		runner:     runner,
		transcoder: transcoder,
	}
}

// uploadVideo posts a small multipart upload and returns the video id.
func uploadVideo(t *testing.T, ta *testApp) string {
	t.Helper()
	resp, err := doUpload(ta.app, "clip.mp4", "video/mp4", "fake video bytes")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)
	result := parseJSON(t, resp)
	id, _ := result["id"].(string)
	if id == "" {
		t.Fatalf("upload response missing id: %v", result)
	}
	return id
}

// doUpload builds a multipart request with a `video` form file.
func doUpload(app *fiber.App, filename, contentType, content string) (*http.Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="video"; filename="` + filename + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, "/videos", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return app.Test(req, -1)
}

// doRequest performs a JSON request against the test app.
func doRequest(app *fiber.App, method, path, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// jobFromStore fetches the live job record for assertions beyond the API.
func jobFromStore(t *testing.T, ta *testApp, id string) *model.Job {
	t.Helper()
	job, ok := ta.jobs.Get(id)
	if !ok {
		t.Fatalf("job %s not in store", id)
	}
	return job
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
