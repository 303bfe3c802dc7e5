package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"recap/internal/language"
	"recap/internal/logging"
	"recap/internal/services"
)

// Muxer embeds an SRT transcript into a media container using ffmpeg
// stream copy. The output container matches the destination extension.
type Muxer struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	run     CommandRunner
}

// MuxRequest describes one caption-embedding job.
type MuxRequest struct {
	// MediaPath is the encoded audio/video input.
	MediaPath string
	// SubtitlePath is the clamped SRT transcript.
	SubtitlePath string
	// Language is an optional ISO code for the subtitle track tag.
	Language string
	// Dest is the output path; its extension selects the subtitle codec.
	Dest string
}

// subtitleCodecs maps container extensions to the subtitle encoder ffmpeg
// needs for that container.
var subtitleCodecs = map[string]string{
	".mkv": "srt",
	".mp4": "mov_text",
	".m4v": "mov_text",
	".mov": "mov_text",
}

// NewMuxer constructs a muxer for the configured ffmpeg binary.
func NewMuxer(binary string, timeout time.Duration, logger *slog.Logger) *Muxer {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Muxer{
		binary:  binary,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "muxer"),
		run:     runCommand,
	}
}

// WithCommandRunner injects a custom command runner for tests.
func (m *Muxer) WithCommandRunner(r CommandRunner) {
	if m != nil && r != nil {
		m.run = r
	}
}

// Mux embeds the subtitle track into the media file at Dest. A/V streams
// are copied, never re-encoded.
func (m *Muxer) Mux(ctx context.Context, req MuxRequest) error {
	if strings.TrimSpace(req.MediaPath) == "" || strings.TrimSpace(req.Dest) == "" {
		return services.Wrap(services.ErrValidation, "mux", "mux", "media and dest paths required", nil)
	}
	if _, err := os.Stat(req.SubtitlePath); err != nil {
		return services.Wrap(services.ErrValidation, "mux", "mux", "subtitle file not found", err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	args := buildMuxArgs(req)
	if m.logger != nil {
		m.logger.Info("muxing captions",
			logging.String("media_path", req.MediaPath),
			logging.String("subtitle_path", req.SubtitlePath),
			logging.String("dest", req.Dest),
		)
	}

	if err := m.run(ctx, m.binary, args...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "mux", "mux", "ffmpeg exceeded its time budget", err)
		}
		return services.Wrap(services.ErrExternalTool, "mux", "mux", "ffmpeg mux failed", err)
	}
	return nil
}

func buildMuxArgs(req MuxRequest) []string {
	codec, ok := subtitleCodecs[strings.ToLower(filepath.Ext(req.Dest))]
	if !ok {
		codec = "srt"
	}

	args := []string{
		"-y",
		"-nostdin",
		"-loglevel", "error",
		"-i", req.MediaPath,
		"-i", req.SubtitlePath,
		"-map", "0",
		"-map", "1:s:0",
		"-c", "copy",
		"-c:s", codec,
	}
	if lang := language.ToISO3(req.Language); lang != "und" {
		args = append(args, "-metadata:s:s:0", "language="+lang)
	}
	args = append(args, req.Dest)
	return args
}
