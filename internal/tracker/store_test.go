package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"recap/internal/services"
	"recap/internal/testsupport"
	"recap/internal/tracker"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "show.ts")
	exec, err := store.Begin(ctx, target, "Show", tracker.KindManual)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if exec.ID == "" {
		t.Fatal("expected execution ID to be assigned")
	}
	if exec.Status != tracker.StatusPending {
		t.Fatalf("expected pending status, got %s", exec.Status)
	}

	fetched, err := store.GetByID(ctx, exec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Title != "Show" || fetched.NormalizedPath != exec.NormalizedPath {
		t.Fatalf("unexpected fetched execution: %#v", fetched)
	}
}

func TestBeginEnforcesSingleFlight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "show.ts")
	if _, err := store.Begin(ctx, target, "Show", tracker.KindManual); err != nil {
		t.Fatalf("first Begin failed: %v", err)
	}

	_, err := store.Begin(ctx, target, "Show", tracker.KindManual)
	if !errors.Is(err, services.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestBeginAllowsNewExecutionAfterTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "show.ts")
	first := testsupport.BeginExecution(t, store, target)
	if err := store.Complete(ctx, first.ID, tracker.StatusFailed, "encode blew up"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	second, err := store.Begin(ctx, target, "Show", tracker.KindManual)
	if err != nil {
		t.Fatalf("Begin after terminal failed: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh execution ID")
	}
}

func TestBeginConcurrentSameTarget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	target := filepath.Join(t.TempDir(), "show.ts")
	const workers = 8

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, results[idx] = store.Begin(context.Background(), target, "Show", tracker.KindManual)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, services.ErrAlreadyRunning) {
			t.Fatalf("unexpected Begin error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one winning Begin, got %d", succeeded)
	}
}

func TestCompleteRejectsNonTerminalStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	exec := testsupport.BeginExecution(t, store, filepath.Join(t.TempDir(), "show.ts"))
	err := store.Complete(context.Background(), exec.ID, tracker.StatusRunning, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCompleteIsFinal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	exec := testsupport.BeginExecution(t, store, filepath.Join(t.TempDir(), "show.ts"))
	if err := store.Complete(ctx, exec.ID, tracker.StatusSucceeded, ""); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if err := store.Complete(ctx, exec.ID, tracker.StatusFailed, "too late"); err == nil {
		t.Fatal("expected error completing a terminal execution")
	}

	fetched, err := store.GetByID(ctx, exec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != tracker.StatusSucceeded || !fetched.Success {
		t.Fatalf("terminal state mutated: %#v", fetched)
	}
	if fetched.ProgressPercent != 100 {
		t.Fatalf("expected progress 100 on success, got %v", fetched.ProgressPercent)
	}
	if fetched.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
}

func TestMarkRunningAndProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	exec := testsupport.BeginExecution(t, store, filepath.Join(t.TempDir(), "show.ts"))
	if err := store.MarkRunning(ctx, exec.ID); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if err := store.MarkRunning(ctx, exec.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second MarkRunning, got %v", err)
	}

	if err := store.SetProgress(ctx, exec.ID, "av_encode", 42.5); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, exec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != tracker.StatusRunning {
		t.Fatalf("expected running, got %s", fetched.Status)
	}
	if fetched.CurrentStage != "av_encode" || fetched.ProgressPercent != 42.5 {
		t.Fatalf("unexpected progress: stage=%s percent=%v", fetched.CurrentStage, fetched.ProgressPercent)
	}
	if fetched.StartedAt == nil {
		t.Fatal("expected start timestamp")
	}
}

func TestCancelFlow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	exec := testsupport.BeginExecution(t, store, filepath.Join(t.TempDir(), "show.ts"))

	requested, err := store.CancelRequested(ctx, exec.ID)
	if err != nil {
		t.Fatalf("CancelRequested failed: %v", err)
	}
	if requested {
		t.Fatal("expected no cancel request initially")
	}

	if err := store.RequestCancel(ctx, exec.ID); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	requested, err = store.CancelRequested(ctx, exec.ID)
	if err != nil {
		t.Fatalf("CancelRequested failed: %v", err)
	}
	if !requested {
		t.Fatal("expected cancel request to be recorded")
	}

	if err := store.Complete(ctx, exec.ID, tracker.StatusCancelled, ""); err != nil {
		t.Fatalf("Complete cancelled failed: %v", err)
	}
	if err := store.RequestCancel(ctx, exec.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound cancelling terminal execution, got %v", err)
	}
}

func TestRecordStepUpsertsAndOrders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	exec := testsupport.BeginExecution(t, store, filepath.Join(t.TempDir(), "show.ts"))

	started := time.Now().UTC().Add(-time.Minute)
	ended := started.Add(30 * time.Second)
	steps := []tracker.Step{
		{Ordinal: 2, StageName: "transcription", Status: tracker.StepActive, StartedAt: &started, GPUEngaged: true},
		{Ordinal: 1, StageName: "file_stability", Status: tracker.StepCompleted, StartedAt: &started, EndedAt: &ended, Duration: 30 * time.Second},
	}
	for _, step := range steps {
		if err := store.RecordStep(ctx, exec.ID, step); err != nil {
			t.Fatalf("RecordStep %s failed: %v", step.StageName, err)
		}
	}

	update := steps[0]
	update.Status = tracker.StepCompleted
	update.EndedAt = &ended
	update.Duration = 90 * time.Second
	update.Metadata = map[string]string{"cue_count": "12"}
	if err := store.RecordStep(ctx, exec.ID, update); err != nil {
		t.Fatalf("RecordStep update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, exec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(fetched.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(fetched.Steps))
	}
	if fetched.Steps[0].StageName != "file_stability" || fetched.Steps[1].StageName != "transcription" {
		t.Fatalf("steps out of order: %s, %s", fetched.Steps[0].StageName, fetched.Steps[1].StageName)
	}
	transcription := fetched.Steps[1]
	if transcription.Status != tracker.StepCompleted || transcription.Duration != 90*time.Second {
		t.Fatalf("upsert did not apply: %#v", transcription)
	}
	if !transcription.GPUEngaged {
		t.Fatal("expected gpu flag to survive the upsert")
	}
	if transcription.Metadata["cue_count"] != "12" {
		t.Fatalf("unexpected metadata: %#v", transcription.Metadata)
	}
}

func TestOpenFailsStaleRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	exec := testsupport.BeginExecution(t, store, filepath.Join(t.TempDir(), "show.ts"))
	if err := store.MarkRunning(ctx, exec.ID); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := tracker.Open(ctx, cfg.Paths.LogDir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	fetched, err := reopened.GetByID(ctx, exec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != tracker.StatusFailed {
		t.Fatalf("expected stale execution failed, got %s", fetched.Status)
	}
	if fetched.ErrorMessage != tracker.StaleFailureMessage {
		t.Fatalf("unexpected error message: %q", fetched.ErrorMessage)
	}
}

func TestListFiltersAndLimits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	base := t.TempDir()
	var failedID string
	for i := 0; i < 4; i++ {
		exec := testsupport.BeginExecution(t, store, filepath.Join(base, fmt.Sprintf("show-%d.ts", i)))
		status := tracker.StatusSucceeded
		if i == 2 {
			status = tracker.StatusFailed
			failedID = exec.ID
		}
		if err := store.Complete(ctx, exec.ID, status, ""); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
	}

	all, err := store.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 executions, got %d", len(all))
	}

	failed, err := store.List(ctx, []tracker.Status{tracker.StatusFailed}, 0)
	if err != nil {
		t.Fatalf("List filtered failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != failedID {
		t.Fatalf("expected single failed execution %s, got %#v", failedID, failed)
	}

	limited, err := store.List(ctx, nil, 2)
	if err != nil {
		t.Fatalf("List limited failed: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(limited))
	}
}

func TestFindByIDPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	exec := testsupport.BeginExecution(t, store, filepath.Join(t.TempDir(), "show.ts"))

	found, err := store.FindByIDPrefix(ctx, exec.ID[:8])
	if err != nil {
		t.Fatalf("FindByIDPrefix failed: %v", err)
	}
	if found.ID != exec.ID {
		t.Fatalf("expected %s, got %s", exec.ID, found.ID)
	}

	if _, err := store.FindByIDPrefix(ctx, "zzzz"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindActiveByPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	target := filepath.Join(t.TempDir(), "show.ts")

	active, err := store.FindActiveByPath(ctx, target)
	if err != nil {
		t.Fatalf("FindActiveByPath failed: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active execution, got %#v", active)
	}

	exec := testsupport.BeginExecution(t, store, target)
	active, err = store.FindActiveByPath(ctx, target)
	if err != nil {
		t.Fatalf("FindActiveByPath failed: %v", err)
	}
	if active == nil || active.ID != exec.ID {
		t.Fatalf("expected active execution %s, got %#v", exec.ID, active)
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  tracker.Status
		ok    bool
	}{
		{"running", tracker.StatusRunning, true},
		{" Failed ", tracker.StatusFailed, true},
		{"DRY_RUN", tracker.StatusDryRun, true},
		{"paused", "", false},
	}
	for _, tc := range cases {
		got, ok := tracker.ParseStatus(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}
