package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Prober extracts video thumbnails and media durations.
type Prober interface {
	Thumbnail(ctx context.Context, videoPath, outPath string, at time.Duration) error
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// ErrNoProber is returned when no media tool is configured.
var ErrNoProber = errors.New("media prober unavailable")

type noProbe struct{}

func (noProbe) Thumbnail(context.Context, string, string, time.Duration) error { return ErrNoProber }
func (noProbe) Duration(context.Context, string) (time.Duration, error)        { return 0, ErrNoProber }

// FFmpeg runs the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpeg resolves the given binaries on PATH. It returns nil when
// neither is available so that callers fall back to no probing.
func NewFFmpeg(ffmpeg, ffprobe string) Prober {
	f := &FFmpeg{}
	if p, err := exec.LookPath(ffmpeg); err == nil {
		f.FFmpegPath = p
	}
	if p, err := exec.LookPath(ffprobe); err == nil {
		f.FFprobePath = p
	}
	if f.FFmpegPath == "" && f.FFprobePath == "" {
		return nil
	}
	return f
}

// Thumbnail writes the frame at offset at as a JPEG.
func (f *FFmpeg) Thumbnail(ctx context.Context, videoPath, outPath string, at time.Duration) error {
	if f.FFmpegPath == "" {
		return ErrNoProber
	}
	cmd := exec.CommandContext(ctx, f.FFmpegPath,
		"-y", "-loglevel", "error",
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
		"-i", videoPath,
		"-frames:v", "1", "-q:v", "4",
		outPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Duration reads the container duration.
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	if f.FFprobePath == "" {
		return 0, ErrNoProber
	}
	out, err := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseSeconds(string(out))
}

func parseSeconds(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(s), err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
