package service

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/cutroom/api/internal/client"
)

// fakeRunner records remote invocations and replays canned output.
type fakeRunner struct {
	configured bool

	runCalls []client.RemoteCommand
	stdout   string
	stderr   string
	runErr   error

	startCalls []client.RemoteCommand
	startErr   error
	onExit     client.ExitObserver
}

func (f *fakeRunner) IsConfigured() bool { return f.configured }

func (f *fakeRunner) Run(ctx context.Context, cmd client.RemoteCommand) ([]byte, []byte, error) {
	f.runCalls = append(f.runCalls, cmd)
	return []byte(f.stdout), []byte(f.stderr), f.runErr
}

func (f *fakeRunner) Start(cmd client.RemoteCommand, onExit client.ExitObserver) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.startCalls = append(f.startCalls, cmd)
	f.onExit = onExit
	return nil
}

// fakeTranscoder replays canned probe results and encode outcomes.
type fakeTranscoder struct {
	info     *client.MediaInfo
	probeErr error

	transcodeCalls []*client.TranscodeRequest
	updates        []client.ProgressUpdate
	transcodeErr   error
}

func (f *fakeTranscoder) Probe(ctx context.Context, path string) (*client.MediaInfo, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.info != nil {
		return f.info, nil
	}
	return &client.MediaInfo{}, nil
}

func (f *fakeTranscoder) Transcode(ctx context.Context, req *client.TranscodeRequest, onProgress func(client.ProgressUpdate)) error {
	f.transcodeCalls = append(f.transcodeCalls, req)
	for _, u := range f.updates {
		onProgress(u)
	}
	return f.transcodeErr
}

// fakeEnqueuer captures tasks instead of touching redis.
type fakeEnqueuer struct {
	tasks      []*asynq.Task
	enqueueErr error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}
