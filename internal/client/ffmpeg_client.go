package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cutroom/api/internal/config"
	"github.com/cutroom/api/internal/model"
)

// MediaInfo holds the technical metadata probed from a source file.
type MediaInfo struct {
	Duration *float64
	Width    *int
	Height   *int
}

// ProgressUpdate is one progress sample from a running encode. Percent is
// set only when the encoder reports a percentage itself; Position is the
// output timestamp in seconds.
type ProgressUpdate struct {
	Percent  *float64
	Position float64
}

// TranscodeRequest describes a single encoder invocation.
type TranscodeRequest struct {
	InputPath      string
	OutputPath     string
	Options        model.ProcessOptions
	SourceDuration float64 // seconds, 0 when unknown
}

// Transcoder defines the interface for local media operations.
type Transcoder interface {
	Probe(ctx context.Context, path string) (*MediaInfo, error)
	Transcode(ctx context.Context, req *TranscodeRequest, onProgress func(ProgressUpdate)) error
}

// FFmpegClient implements Transcoder on top of the ffmpeg/ffprobe binaries.
// Invocations use argument vectors; no shell is involved.
type FFmpegClient struct {
	binPath   string
	probePath string
}

func NewFFmpegClient(cfg *config.FFmpegConfig) *FFmpegClient {
	return &FFmpegClient{
		binPath:   cfg.BinPath,
		probePath: cfg.ProbePath,
	}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe extracts duration and dimensions from a media file.
func (c *FFmpegClient) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, c.probePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var probed probeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		return nil, fmt.Errorf("ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	if d, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil && d > 0 {
		info.Duration = &d
	}
	for _, s := range probed.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			w, h := s.Width, s.Height
			info.Width = &w
			info.Height = &h
			break
		}
	}
	return info, nil
}

// Transcode runs a single encode and streams progress samples to onProgress.
// The returned error carries the tail of stderr when the encoder fails.
func (c *FFmpegClient) Transcode(ctx context.Context, req *TranscodeRequest, onProgress func(ProgressUpdate)) error {
	args, err := BuildTranscodeArgs(req)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, c.binPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	var current ProgressUpdate
	for scanner.Scan() {
		key, value, found := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !found {
			continue
		}
		switch key {
		case "percent":
			if p, err := strconv.ParseFloat(value, 64); err == nil {
				current.Percent = &p
			}
		case "out_time_ms":
			// despite the name, the value is in microseconds
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us > 0 {
				current.Position = float64(us) / 1e6
			}
		case "out_time":
			if pos, err := ParseTimemark(value); err == nil && pos > 0 {
				current.Position = pos
			}
		case "progress":
			if onProgress != nil {
				onProgress(current)
			}
			current = ProgressUpdate{}
		}
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(stderr.String(), 6))
	}
	return nil
}

// EstimateProgress turns a progress sample into a 0-99 percentage, preferring
// the encoder's own percentage and falling back to the time-position ratio.
// ok is false when neither signal yields an estimate. 100 is reserved for the
// encoder's completion, which the caller reports itself.
func EstimateProgress(u ProgressUpdate, totalDuration float64) (int, bool) {
	var pct float64
	switch {
	case u.Percent != nil:
		pct = *u.Percent
	case totalDuration > 0 && u.Position > 0:
		pct = u.Position / totalDuration * 100
	default:
		return 0, false
	}
	n := int(math.Round(pct))
	if n < 0 {
		n = 0
	}
	if n > 99 {
		n = 99
	}
	return n, true
}

// BuildTranscodeArgs translates a transformation plan into an ffmpeg
// argument vector with the fixed output encoding profile.
func BuildTranscodeArgs(req *TranscodeRequest) ([]string, error) {
	opts := req.Options
	args := []string{"-hide_banner", "-nostats"}

	if opts.Trim != nil {
		args = append(args, "-ss", opts.Trim.Start)
	}
	args = append(args, "-i", req.InputPath)
	if opts.Trim != nil && opts.Trim.End != "" {
		dur, err := trimDuration(opts.Trim.Start, opts.Trim.End)
		if err != nil {
			return nil, err
		}
		args = append(args, "-t", strconv.FormatFloat(dur, 'f', 3, 64))
	}

	var filters []string
	if w, h, ok := opts.TargetDimensions(); ok {
		fit := model.FitCover
		if opts.Preset == "" && opts.Resize != nil && opts.Resize.Fit != "" {
			fit = opts.Resize.Fit
		}
		switch fit {
		case model.FitCover:
			filters = append(filters,
				fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", w, h),
				fmt.Sprintf("crop=%d:%d", w, h),
			)
		case model.FitContain:
			filters = append(filters,
				fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
				fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", w, h),
			)
		case model.FitFill:
			filters = append(filters, fmt.Sprintf("scale=%d:%d", w, h))
		default:
			return nil, fmt.Errorf("unknown fit mode %q", fit)
		}
	}
	if opts.Subtitle != nil && opts.Subtitle.Text != "" {
		filters = append(filters, drawtextFilter(opts.Subtitle))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	// fixed output profile: constant-quality H.264, AAC audio,
	// streaming-friendly container layout
	args = append(args,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-y", req.OutputPath,
	)
	return args, nil
}

func drawtextFilter(sub *model.SubtitleOptions) string {
	fontSize := sub.FontSize
	if fontSize == 0 {
		fontSize = 48
	}
	fontColor := sub.FontColor
	if fontColor == "" {
		fontColor = "white"
	}
	boxColor := sub.BackgroundColor
	if boxColor == "" {
		boxColor = "black@0.5"
	}

	y := "h-th-50"
	switch sub.Position {
	case model.SubtitleTop:
		y = "50"
	case model.SubtitleCenter:
		y = "(h-th)/2"
	}

	return fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=%s:box=1:boxcolor=%s:boxborderw=10:x=(w-tw)/2:y=%s",
		EscapeDrawtext(sub.Text), fontSize, fontColor, boxColor, y,
	)
}

// EscapeDrawtext escapes the characters the drawtext filter treats
// specially. Backslashes go first so later escapes are not doubled.
func EscapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ":", `\:`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return s
}

// ParseTimemark converts HH:MM:SS(.fff) or a plain number of seconds.
func ParseTimemark(mark string) (float64, error) {
	parts := strings.Split(mark, ":")
	if len(parts) == 3 {
		hours, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", mark)
		}
		minutes, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", mark)
		}
		seconds, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", mark)
		}
		return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
	}
	v, err := strconv.ParseFloat(mark, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", mark)
	}
	return v, nil
}

func trimDuration(start, end string) (float64, error) {
	s, err := ParseTimemark(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseTimemark(end)
	if err != nil {
		return 0, err
	}
	if e <= s {
		return 0, fmt.Errorf("trim end %q is not after start %q", end, start)
	}
	return e - s, nil
}

func stderrTail(s string, lines int) string {
	all := strings.Split(strings.TrimSpace(s), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	return strings.Join(all, " | ")
}
