package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Status represents the lifecycle of an execution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusDryRun    Status = "dry_run"
)

// Kind distinguishes how an execution was triggered.
type Kind string

const (
	KindAutomatic Kind = "automatic"
	KindManual    Kind = "manual"
)

// StaleFailureMessage is the error recorded when a process exits mid-run
// and its executions are failed at the next store open.
const StaleFailureMessage = "process exited during run"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusSucceeded,
	StatusFailed,
	StatusCancelled,
	StatusDryRun,
}

var terminalStatuses = map[Status]struct{}{
	StatusSucceeded: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusDryRun:    {},
}

// StepStatus represents the lifecycle of one recorded pipeline stage.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Execution is one caption-pipeline run for a target path.
type Execution struct {
	ID              string
	Path            string
	NormalizedPath  string
	Kind            Kind
	Title           string
	Status          Status
	CurrentStage    string
	ProgressPercent float64
	CancelRequested bool
	Success         bool
	ErrorMessage    string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ElapsedSeconds  float64
	Steps           []Step
}

// Step is one pipeline stage's record within an execution.
type Step struct {
	ID         int64
	Ordinal    int
	StageName  string
	Status     StepStatus
	StartedAt  *time.Time
	EndedAt    *time.Time
	Duration   time.Duration
	GPUEngaged bool
	Metadata   map[string]string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether a status permits no further transitions.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// IsTerminal reports whether the execution has reached a final state.
func (e *Execution) IsTerminal() bool {
	return e.Status.IsTerminal()
}

// NormalizePath canonicalizes a target path for single-flight comparison.
func NormalizePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("normalize path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// deriveID builds the stable execution key from path, trigger kind, and
// start time.
func deriveID(normalizedPath string, kind Kind, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", normalizedPath, kind, createdAt.UnixNano())))
	return hex.EncodeToString(sum[:])[:16]
}
