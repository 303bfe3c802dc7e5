// Package tools wraps the external binaries the pipeline shells out to:
// whisper for transcription and ffmpeg for encoding and muxing.
package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes an external command. Tests inject one to capture
// arguments without spawning processes.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// stderrTailLimit bounds how much trailing stderr is kept for error reports.
const stderrTailLimit = 4 * 1024

// tailBuffer keeps the last stderrTailLimit bytes written to it.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > stderrTailLimit {
		t.buf = t.buf[len(t.buf)-stderrTailLimit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}

// runCommand executes a command, capturing a bounded tail of stderr that is
// folded into the returned error.
func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var tail tailBuffer
	cmd.Stderr = &tail
	if err := cmd.Run(); err != nil {
		if detail := tail.String(); detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
