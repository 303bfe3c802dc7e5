package pipeline

import (
	"context"
	"os"
	"time"

	"recap/internal/services"
)

// waitForStability blocks until the file's size and mtime hold steady for
// the full window, polling at the given interval. A file that keeps
// changing past the context deadline fails the run.
func waitForStability(ctx context.Context, path string, window, poll time.Duration) error {
	if poll <= 0 {
		poll = time.Second
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, StageFileStability, "stat", "target not readable", err)
	}
	lastSize := info.Size()
	lastMod := info.ModTime()
	stableSince := time.Now()

	for {
		if time.Since(stableSince) >= window {
			return nil
		}
		select {
		case <-ctx.Done():
			return services.Wrap(services.ErrTimeout, StageFileStability, "wait", "target still changing", ctx.Err())
		case <-time.After(poll):
		}

		info, err = os.Stat(path)
		if err != nil {
			return services.Wrap(services.ErrValidation, StageFileStability, "stat", "target disappeared while waiting", err)
		}
		if info.Size() != lastSize || !info.ModTime().Equal(lastMod) {
			lastSize = info.Size()
			lastMod = info.ModTime()
			stableSince = time.Now()
		}
	}
}
