package tools

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"context"

	"recap/internal/language"
	"recap/internal/logging"
	"recap/internal/profiles"
	"recap/internal/services"
)

// Transcriber shells out to the whisper CLI to produce an SRT transcript
// for a recording's audio track.
type Transcriber struct {
	binary  string
	model   string
	timeout time.Duration
	logger  *slog.Logger
	run     CommandRunner
}

// TranscribeRequest describes one transcription job.
type TranscribeRequest struct {
	// Source is the media file whose audio is transcribed.
	Source string
	// OutputDir is where whisper writes its SRT output.
	OutputDir string
	// Language is an optional override; empty means auto-detect.
	Language string
	// Tuning carries the profile-matched decoder parameters.
	Tuning profiles.TranscriptionTuning
}

// TranscribeResult reports the produced transcript.
type TranscribeResult struct {
	SRTPath string
	Elapsed time.Duration
}

// NewTranscriber constructs a transcriber for the configured binary and
// model.
func NewTranscriber(binary, model string, timeout time.Duration, logger *slog.Logger) *Transcriber {
	if binary == "" {
		binary = "whisper"
	}
	return &Transcriber{
		binary:  binary,
		model:   model,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "transcriber"),
		run:     runCommand,
	}
}

// WithCommandRunner injects a custom command runner for tests.
func (t *Transcriber) WithCommandRunner(r CommandRunner) {
	if t != nil && r != nil {
		t.run = r
	}
}

// Transcribe runs whisper over the request's source and returns the SRT
// path. The transcript lands next to the source basename in OutputDir.
func (t *Transcriber) Transcribe(ctx context.Context, req TranscribeRequest) (TranscribeResult, error) {
	var result TranscribeResult
	if strings.TrimSpace(req.Source) == "" {
		return result, services.Wrap(services.ErrValidation, "transcription", "transcribe", "source path required", nil)
	}
	if req.OutputDir == "" {
		req.OutputDir = filepath.Dir(req.Source)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := t.buildArgs(req)
	if t.logger != nil {
		t.logger.Info("starting transcription",
			logging.String("source", req.Source),
			logging.String("model", t.model),
			logging.Int("beam_size", req.Tuning.BeamSize),
		)
	}

	start := time.Now()
	if err := t.run(ctx, t.binary, args...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, services.Wrap(services.ErrTimeout, "transcription", "transcribe", "whisper exceeded its time budget", err)
		}
		return result, services.Wrap(services.ErrExternalTool, "transcription", "transcribe", "whisper failed", err)
	}
	result.Elapsed = time.Since(start)

	baseName := strings.TrimSuffix(filepath.Base(req.Source), filepath.Ext(req.Source))
	result.SRTPath = filepath.Join(req.OutputDir, baseName+".srt")
	if _, err := os.Stat(result.SRTPath); err != nil {
		return result, services.Wrap(services.ErrExternalTool, "transcription", "transcribe", "whisper produced no transcript", err)
	}

	if t.logger != nil {
		t.logger.Info("transcription complete",
			logging.String("srt_path", result.SRTPath),
			logging.Duration("elapsed", result.Elapsed),
		)
	}
	return result, nil
}

func (t *Transcriber) buildArgs(req TranscribeRequest) []string {
	args := []string{
		req.Source,
		"--model", t.model,
		"--output_dir", req.OutputDir,
		"--output_format", "srt",
		"--task", "transcribe",
	}
	if req.Tuning.BeamSize > 0 {
		args = append(args, "--beam_size", strconv.Itoa(req.Tuning.BeamSize))
	}
	if req.Tuning.VADThreshold > 0 {
		args = append(args, "--vad_threshold", strconv.FormatFloat(req.Tuning.VADThreshold, 'f', 2, 64))
	}
	if lang := language.ToISO2(req.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}
