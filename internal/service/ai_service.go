package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/cutroom/api/internal/client"
	"github.com/cutroom/api/internal/config"
	"github.com/cutroom/api/internal/model"
)

// ErrRemoteUnavailable signals that no remote pipeline host is configured.
var ErrRemoteUnavailable = errors.New("remote pipeline host is not configured")

// ExternalError wraps a failed external tool invocation. Raw carries the
// tool's own output so handlers can surface it in the error details.
type ExternalError struct {
	Op  string
	Raw string
	Err error
}

func (e *ExternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *ExternalError) Unwrap() error { return e.Err }

// transcriptExcerptLimit bounds how many segments are handed to the
// analysis model as context.
const transcriptExcerptLimit = 20

// AiService runs the synchronous remote tools: speech transcription and
// edit-plan analysis. Neither flow creates a job.
type AiService struct {
	media  *MediaService
	runner client.RemoteRunner
	remote config.RemoteConfig
	// hostDataRoot is the storage root as seen by the remote host.
	hostDataRoot string
}

func NewAiService(media *MediaService, runner client.RemoteRunner, remote config.RemoteConfig, hostDataRoot string) *AiService {
	return &AiService{
		media:        media,
		runner:       runner,
		remote:       remote,
		hostDataRoot: hostDataRoot,
	}
}

func (s *AiService) hostPath(rel string) string {
	return hostAbsPath(s.hostDataRoot, s.media, rel)
}

func (s *AiService) scriptPath(name string) string {
	return path.Join(s.remote.ScriptsDir, name)
}

// whisperOutput is the wire shape emitted by the remote transcription
// script. Keys are snake_case on the wire.
type whisperOutput struct {
	Error               string           `json:"error"`
	Segments            []whisperSegment `json:"segments"`
	FullText            string           `json:"full_text"`
	Language            string           `json:"language"`
	LanguageProbability *float64         `json:"language_probability"`
	Duration            *float64         `json:"duration"`
}

type whisperSegment struct {
	ID         int      `json:"id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	IsSilence  bool     `json:"is_silence"`
}

// Transcribe returns the video's transcript, running the remote Whisper
// script on a cache miss and attaching the result to the video record.
func (s *AiService) Transcribe(ctx context.Context, videoID string) (*model.TranscribeResponse, error) {
	video, err := s.media.GetVideo(videoID)
	if err != nil {
		return nil, err
	}
	if video.Transcript != nil {
		return &model.TranscribeResponse{
			Success:    true,
			Cached:     true,
			Transcript: video.Transcript,
		}, nil
	}
	if s.runner == nil || !s.runner.IsConfigured() {
		return nil, ErrRemoteUnavailable
	}

	log.Printf("Starting transcription for video %s", videoID)
	stdout, stderr, err := s.runner.Run(ctx, client.RemoteCommand{
		Args: []string{
			"python3", s.scriptPath("transcribe.py"),
			"--video", s.hostPath(video.FilePath),
			"--model", s.remote.WhisperModel,
			"--language", s.remote.WhisperLanguage,
		},
		ConnectTimeout: s.remote.TranscribeConnectTimeout,
	})
	if err != nil {
		return nil, &ExternalError{Op: "transcription failed", Raw: string(stderr), Err: err}
	}

	out := strings.TrimSpace(string(stdout))
	if out == "" {
		return nil, &ExternalError{Op: "no output from transcription", Raw: string(stderr)}
	}
	var result whisperOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, &ExternalError{Op: "failed to parse transcription result", Raw: out, Err: err}
	}
	if result.Error != "" {
		return nil, &ExternalError{Op: "transcription failed", Raw: result.Error}
	}

	transcript := &model.Transcript{
		Segments:            make([]model.TranscriptSegment, 0, len(result.Segments)),
		FullText:            result.FullText,
		Language:            result.Language,
		LanguageProbability: result.LanguageProbability,
		Duration:            result.Duration,
	}
	if transcript.Language == "" {
		transcript.Language = s.remote.WhisperLanguage
	}
	for _, seg := range result.Segments {
		transcript.Segments = append(transcript.Segments, model.TranscriptSegment{
			ID:         seg.ID,
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Confidence: seg.Confidence,
			IsSilence:  seg.IsSilence,
		})
	}

	if _, err := s.media.UpdateTranscript(videoID, transcript); err != nil {
		return nil, err
	}
	log.Printf("Transcription completed for video %s: %d segments", videoID, len(transcript.Segments))

	return &model.TranscribeResponse{
		Success:    true,
		Cached:     false,
		Transcript: transcript,
	}, nil
}

// analyzeOutput accepts either key the analysis script emits for its
// free-text part.
type analyzeOutput struct {
	Analysis string                `json:"analysis"`
	Summary  string                `json:"summary"`
	Params   *model.ProcessOptions `json:"params"`
}

// Analyze previews an edit plan for a prompt without creating a job.
// Transcript preference: request body, then the video's cached one.
func (s *AiService) Analyze(ctx context.Context, req *model.AnalyzeRequest) (*model.AnalyzeResponse, error) {
	video, err := s.media.GetVideo(req.VideoID)
	if err != nil {
		return nil, err
	}
	if s.runner == nil || !s.runner.IsConfigured() {
		return nil, ErrRemoteUnavailable
	}

	transcript := req.Transcript
	if transcript == nil {
		transcript = video.Transcript
	}

	info, err := json.Marshal(struct {
		Duration *float64 `json:"duration,omitempty"`
		Width    *int     `json:"width,omitempty"`
		Height   *int     `json:"height,omitempty"`
	}{video.Duration, video.Width, video.Height})
	if err != nil {
		return nil, err
	}

	args := []string{
		s.scriptPath("analyze.sh"),
		"--video-path", s.hostPath(video.FilePath),
		"--user-prompt", req.UserPrompt,
		"--video-info", string(info),
		"--model", s.remote.AnalyzeModel,
	}
	if excerpt := transcriptExcerpt(transcript, transcriptExcerptLimit); excerpt != "" {
		args = append(args, "--transcript", excerpt)
	}

	log.Printf("Starting analysis for video %s", req.VideoID)
	stdout, stderr, err := s.runner.Run(ctx, client.RemoteCommand{
		Args:           args,
		ConnectTimeout: s.remote.AnalyzeConnectTimeout,
	})
	if err != nil {
		return nil, &ExternalError{Op: "analysis failed", Raw: string(stderr), Err: err}
	}

	out := strings.TrimSpace(string(stdout))
	if out == "" {
		return nil, &ExternalError{Op: "no output from analysis", Raw: string(stderr)}
	}
	var result analyzeOutput
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, &ExternalError{Op: "failed to parse analysis", Raw: out, Err: err}
	}
	summary := result.Analysis
	if summary == "" {
		summary = result.Summary
	}

	return &model.AnalyzeResponse{
		Success:    true,
		Analysis:   &model.AnalysisResult{Summary: summary, Params: result.Params},
		Transcript: transcript,
	}, nil
}

// transcriptExcerpt renders the first max segments as timestamped lines
// for the analysis prompt.
func transcriptExcerpt(t *model.Transcript, max int) string {
	if t == nil || len(t.Segments) == 0 {
		return ""
	}
	segments := t.Segments
	if len(segments) > max {
		segments = segments[:max]
	}
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("[%.1fs - %.1fs] %s", seg.Start, seg.End, seg.Text))
	}
	return strings.Join(lines, "\n")
}
