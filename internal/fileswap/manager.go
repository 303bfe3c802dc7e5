package fileswap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"recap/internal/fileutil"
	"recap/internal/logging"
)

// BackupSuffix is appended to the target path to form its preserved copy.
const BackupSuffix = ".orig"

// Manager enforces the swap invariants for pipeline target files:
// a backup is created by copy exactly once, all writes happen on temp
// paths in the target's directory, and the target is only ever mutated
// by a single atomic rename of a verified temp file.
type Manager struct {
	logger *slog.Logger
}

// New constructs a Manager.
func New(logger *slog.Logger) *Manager {
	return &Manager{logger: logging.NewComponentLogger(logger, "fileswap")}
}

// SetLogger updates the manager's logging destination.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if m == nil {
		return
	}
	m.logger = logging.NewComponentLogger(logger, "fileswap")
}

// BackupPath returns the backup location for a target path.
func BackupPath(path string) string {
	return path + BackupSuffix
}

// EnsureBackup creates a preserved copy of path exactly once. A backup left
// by an earlier run is detected and never overwritten, so retries cannot
// clobber the pristine original.
func (m *Manager) EnsureBackup(path string) (backupPath string, alreadyExisted bool, err error) {
	backupPath = BackupPath(path)
	if _, statErr := os.Stat(backupPath); statErr == nil {
		m.logger.Debug("backup already present", logging.String("backup", backupPath))
		return backupPath, true, nil
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return "", false, fmt.Errorf("stat backup: %w", statErr)
	}

	if err := fileutil.CopyVerified(path, backupPath); err != nil {
		return "", false, fmt.Errorf("create backup: %w", err)
	}
	m.logger.Info("backup created", logging.String("backup", backupPath))
	return backupPath, false, nil
}

// AllocateTemp returns a unique temp path in the same directory as path,
// ending in suffix. Same-directory placement guarantees the later rename
// stays on one filesystem; the pid+timestamp token keeps concurrent runs
// on sibling files from colliding.
func (m *Manager) AllocateTemp(path, suffix string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	token := fmt.Sprintf("%d-%d", os.Getpid(), time.Now().UnixNano())
	return filepath.Join(dir, fmt.Sprintf(".recap-%s.%s%s", base, token, suffix))
}

// Replace atomically renames tempPath onto path. On any failure the
// original path is untouched and the temp file is left in place for
// diagnosis.
func (m *Manager) Replace(path, tempPath string) error {
	if _, err := os.Stat(tempPath); err != nil {
		return fmt.Errorf("stat replacement: %w", err)
	}
	if err := sameFilesystem(filepath.Dir(path), tempPath); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename replacement onto target: %w", err)
	}
	m.logger.Info("target replaced", logging.String("target", path))
	return nil
}

// RestoreBackup copies the preserved original back onto path. Used by
// operators, never by the pipeline itself.
func (m *Manager) RestoreBackup(path string) error {
	backupPath := BackupPath(path)
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("stat backup: %w", err)
	}
	tempPath := m.AllocateTemp(path, filepath.Ext(path))
	if err := fileutil.CopyVerified(backupPath, tempPath); err != nil {
		return fmt.Errorf("stage restore copy: %w", err)
	}
	return m.Replace(path, tempPath)
}

// Cleanup removes the given paths best-effort. Missing files are fine;
// other removal errors are logged and swallowed.
func (m *Manager) Cleanup(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("cleanup failed",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
}

func sameFilesystem(dirA, pathB string) error {
	var statA, statB unix.Stat_t
	if err := unix.Stat(dirA, &statA); err != nil {
		return fmt.Errorf("stat target directory: %w", err)
	}
	if err := unix.Stat(pathB, &statB); err != nil {
		return fmt.Errorf("stat replacement: %w", err)
	}
	if statA.Dev != statB.Dev {
		return fmt.Errorf("replacement %s is on a different filesystem than %s; rename would not be atomic", pathB, dirA)
	}
	return nil
}
