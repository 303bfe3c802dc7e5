package fileswap

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"recap/internal/logging"
	"recap/internal/services"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestEnsureBackupCopiesOnce(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "show.mpg")
	writeFile(t, target, "original bytes")

	m := New(logging.NewNop())
	backup, existed, err := m.EnsureBackup(target)
	if err != nil {
		t.Fatalf("EnsureBackup: %v", err)
	}
	if existed {
		t.Fatal("first EnsureBackup reported existing backup")
	}
	if backup != target+".orig" {
		t.Fatalf("backup path = %q", backup)
	}

	// Mutate the target, then call again: the backup must keep the
	// original bytes.
	writeFile(t, target, "mutated bytes")
	backup2, existed2, err := m.EnsureBackup(target)
	if err != nil {
		t.Fatalf("second EnsureBackup: %v", err)
	}
	if !existed2 || backup2 != backup {
		t.Fatalf("second call: existed=%v path=%q", existed2, backup2)
	}
	data, err := os.ReadFile(backup)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "original bytes" {
		t.Fatalf("backup overwritten: %q", data)
	}
}

func TestEnsureBackupMissingSource(t *testing.T) {
	m := New(logging.NewNop())
	if _, _, err := m.EnsureBackup(filepath.Join(t.TempDir(), "missing.mpg")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestAllocateTempIsUniqueAndColocated(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "show.mpg")
	m := New(logging.NewNop())

	a := m.AllocateTemp(target, ".mkv")
	b := m.AllocateTemp(target, ".mkv")
	if a == b {
		t.Fatalf("temp paths collide: %q", a)
	}
	if filepath.Dir(a) != dir {
		t.Fatalf("temp not beside target: %q", a)
	}
	if !strings.HasSuffix(a, ".mkv") {
		t.Fatalf("suffix not preserved: %q", a)
	}
	if !strings.HasPrefix(filepath.Base(a), ".recap-show.mpg.") {
		t.Fatalf("unexpected temp name: %q", a)
	}
}

func TestReplaceSwapsAtomically(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "show.mpg")
	writeFile(t, target, "old")

	m := New(logging.NewNop())
	temp := m.AllocateTemp(target, ".mpg")
	writeFile(t, temp, "new")

	if err := m.Replace(target, temp); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "new" {
		t.Fatalf("target = %q", data)
	}
	if _, err := os.Stat(temp); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("temp file should be gone after rename")
	}
}

func TestReplaceMissingTempLeavesTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "show.mpg")
	writeFile(t, target, "untouched")

	m := New(logging.NewNop())
	if err := m.Replace(target, filepath.Join(dir, "absent.tmp")); err == nil {
		t.Fatal("expected error for missing temp file")
	}
	data, _ := os.ReadFile(target)
	if string(data) != "untouched" {
		t.Fatalf("target mutated on failed replace: %q", data)
	}
}

func TestCleanupIgnoresMissing(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "a.tmp")
	writeFile(t, present, "x")

	m := New(logging.NewNop())
	m.Cleanup(present, filepath.Join(dir, "gone.tmp"), "")

	if _, err := os.Stat(present); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("expected present temp to be removed")
	}
}

func TestRestoreBackup(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "show.mpg")
	writeFile(t, target, "original")

	m := New(logging.NewNop())
	if _, _, err := m.EnsureBackup(target); err != nil {
		t.Fatal(err)
	}
	writeFile(t, target, "captioned")

	if err := m.RestoreBackup(target); err != nil {
		t.Fatalf("RestoreBackup: %v", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "original" {
		t.Fatalf("restore produced %q", data)
	}
}

func TestLockPathConflict(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "show.mpg")

	first, err := LockPath(target)
	if err != nil {
		t.Fatalf("first LockPath: %v", err)
	}
	defer first.Release()

	if _, err := LockPath(target); !errors.Is(err, services.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := LockPath(target)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	second.Release()
}
