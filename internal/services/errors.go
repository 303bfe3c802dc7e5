package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks failures reported by ffmpeg, ffprobe, or the
	// transcriber subprocess.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks outputs the pipeline refuses to trust, such as a
	// muxed file whose subtitle track outruns its media streams.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrAlreadyRunning marks a single-flight conflict on a target path.
	ErrAlreadyRunning = errors.New("already running")
	// ErrNotFound marks missing executions or files.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks external tool invocations that exceeded their deadline.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks failures that a caller may reasonably retry.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatalVerification reports whether an error represents output the pipeline
// refused to trust, as opposed to a tool crash.
func IsFatalVerification(err error) bool {
	return errors.Is(err, ErrValidation)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
