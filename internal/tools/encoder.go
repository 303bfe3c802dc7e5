package tools

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"recap/internal/logging"
	"recap/internal/profiles"
	"recap/internal/services"
)

// Encoder shells out to ffmpeg to transcode a recording with
// profile-matched parameters.
type Encoder struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	run     CommandRunner
}

// EncodeRequest describes one transcode job.
type EncodeRequest struct {
	Source string
	Dest   string
	// Tuning carries the profile-matched encoder parameters.
	Tuning profiles.TranscodeTuning
	// DurationSeconds is the source duration, used to compute percent
	// progress. Zero disables progress reporting.
	DurationSeconds float64
	// OnProgress receives percentages in [0, 100] as ffmpeg advances.
	OnProgress func(percent float64)
}

// NewEncoder constructs an encoder for the configured ffmpeg binary.
func NewEncoder(binary string, timeout time.Duration, logger *slog.Logger) *Encoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Encoder{
		binary:  binary,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "encoder"),
	}
}

// WithCommandRunner injects a custom command runner for tests. When set,
// the runner replaces process execution and no progress is reported.
func (e *Encoder) WithCommandRunner(r CommandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// Encode transcodes the request's source into dest.
func (e *Encoder) Encode(ctx context.Context, req EncodeRequest) error {
	if strings.TrimSpace(req.Source) == "" || strings.TrimSpace(req.Dest) == "" {
		return services.Wrap(services.ErrValidation, "av_encode", "encode", "source and dest paths required", nil)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := buildEncodeArgs(req)
	if e.logger != nil {
		e.logger.Info("starting encode",
			logging.String("source", req.Source),
			logging.String("video_encoder", req.Tuning.VideoEncoder),
			logging.String("preset", req.Tuning.Preset),
			logging.Bool("deinterlace", req.Tuning.Deinterlace),
		)
	}

	var err error
	if e.run != nil {
		err = e.run(ctx, e.binary, args...)
	} else {
		err = e.execWithProgress(ctx, args, req.DurationSeconds, req.OnProgress)
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "av_encode", "encode", "ffmpeg exceeded its time budget", err)
		}
		return services.Wrap(services.ErrExternalTool, "av_encode", "encode", "ffmpeg failed", err)
	}
	return nil
}

// execWithProgress runs ffmpeg with a machine-readable progress feed on
// stdout and a bounded stderr tail for error reports.
func (e *Encoder) execWithProgress(ctx context.Context, args []string, durationSeconds float64, onProgress func(float64)) error {
	cmd := exec.CommandContext(ctx, e.binary, args...)
	var tail tailBuffer
	cmd.Stderr = &tail

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("progress pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if onProgress == nil || durationSeconds <= 0 {
			continue
		}
		if percent, ok := parseProgressLine(scanner.Text(), durationSeconds); ok {
			onProgress(percent)
		}
	}

	if err := cmd.Wait(); err != nil {
		if detail := tail.String(); detail != "" {
			return fmt.Errorf("%s: %w: %s", e.binary, err, detail)
		}
		return fmt.Errorf("%s: %w", e.binary, err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

// parseProgressLine reads ffmpeg -progress key=value output. It understands
// out_time_us and the older out_time_ms spelling, both microseconds.
func parseProgressLine(line string, durationSeconds float64) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}
	if key != "out_time_us" && key != "out_time_ms" {
		return 0, false
	}
	micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || micros < 0 {
		return 0, false
	}
	percent := float64(micros) / 1e6 / durationSeconds * 100
	if percent > 100 {
		percent = 100
	}
	return percent, true
}

func buildEncodeArgs(req EncodeRequest) []string {
	args := []string{
		"-y",
		"-nostdin",
		"-loglevel", "error",
		"-nostats",
		"-progress", "pipe:1",
		"-i", req.Source,
	}
	if req.Tuning.Deinterlace {
		args = append(args, "-vf", "yadif=mode=send_frame:deint=all")
	}
	args = append(args,
		"-map", "0:v:0",
		"-map", "0:a:0",
		"-c:v", req.Tuning.VideoEncoder,
	)
	if req.Tuning.Preset != "" {
		args = append(args, "-preset", req.Tuning.Preset)
	}
	args = append(args,
		"-c:a", req.Tuning.AudioEncoder,
		"-b:a", req.Tuning.AudioBitrate,
		req.Dest,
	)
	return args
}
