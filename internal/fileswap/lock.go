package fileswap

import (
	"fmt"

	"github.com/gofrs/flock"

	"recap/internal/services"
)

// PathLock holds an advisory cross-process lock for one target path, so two
// recap processes cannot work on the same recording concurrently. The
// in-process single-flight guarantee lives in the execution tracker; this
// extends it across processes.
type PathLock struct {
	lock *flock.Flock
}

// LockPath attempts to acquire the advisory lock for path without blocking.
// A lock held elsewhere surfaces as ErrAlreadyRunning.
func LockPath(path string) (*PathLock, error) {
	lock := flock.New(path + ".lock")
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire path lock: %w", err)
	}
	if !acquired {
		return nil, services.Wrap(services.ErrAlreadyRunning, "", "lock", fmt.Sprintf("another process holds %s", lock.Path()), nil)
	}
	return &PathLock{lock: lock}, nil
}

// Release unlocks and removes the lock file.
func (p *PathLock) Release() error {
	if p == nil || p.lock == nil {
		return nil
	}
	if err := p.lock.Unlock(); err != nil {
		return fmt.Errorf("release path lock: %w", err)
	}
	return nil
}

// Path returns the lock file location.
func (p *PathLock) Path() string {
	if p == nil || p.lock == nil {
		return ""
	}
	return p.lock.Path()
}
