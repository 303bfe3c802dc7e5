package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"recap/internal/services"
)

const executionColumns = `id, path, normalized_path, kind, title, status, current_stage,
    progress_percent, cancel_requested, success, error_message,
    created_at, started_at, completed_at`

const stepColumns = `id, ordinal, stage_name, status, started_at, ended_at,
    duration_seconds, gpu_engaged, metadata`

// Store manages execution persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the execution database, applies
// migrations, and fails any executions left running by a dead process.
func Open(ctx context.Context, dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

	dbPath := filepath.Join(dir, "executions.db")
	// journal_mode persists in the database file, but busy_timeout and
	// foreign_keys are per-connection. The DSN form applies them to every
	// connection the pool opens, not just the first.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.failStaleRunning(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// failStaleRunning marks executions left pending or running by a previous
// process as failed. Only one recap process runs the pipeline at a time,
// so anything non-terminal at open belongs to a process that died.
func (s *Store) failStaleRunning(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE executions
            SET status = ?, success = 0, error_message = ?, completed_at = ?
          WHERE status IN (?, ?)`,
		StatusFailed,
		StaleFailureMessage,
		now,
		StatusPending,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("fail stale executions: %w", err)
	}
	return nil
}

// Begin registers a new execution for the given path. It returns
// services.ErrAlreadyRunning when a non-terminal execution already exists
// for the same normalized path.
func (s *Store) Begin(ctx context.Context, path, title string, kind Kind) (*Execution, error) {
	normalized, err := NormalizePath(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tracker", "begin", "invalid target path", err)
	}
	if kind != KindAutomatic && kind != KindManual {
		kind = KindManual
	}

	now := time.Now().UTC()
	exec := &Execution{
		ID:             deriveID(normalized, kind, now),
		Path:           path,
		NormalizedPath: normalized,
		Kind:           kind,
		Title:          title,
		Status:         StatusPending,
		CreatedAt:      now,
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO executions (
            id, path, normalized_path, kind, title, status,
            current_stage, progress_percent, cancel_requested, success,
            error_message, created_at, started_at, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID,
		exec.Path,
		exec.NormalizedPath,
		string(exec.Kind),
		exec.Title,
		string(exec.Status),
		"",
		0.0,
		0,
		0,
		nil,
		now.Format(time.RFC3339Nano),
		nil,
		nil,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, services.Wrap(
				services.ErrAlreadyRunning,
				"tracker",
				"begin",
				fmt.Sprintf("an execution for %s is already in flight", normalized),
				err,
			)
		}
		return nil, fmt.Errorf("insert execution: %w", err)
	}
	return exec, nil
}

// MarkRunning transitions a pending execution to running and stamps the
// start time.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE executions SET status = ?, started_at = ? WHERE id = ? AND status = ?`,
		StatusRunning,
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark running rows: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "tracker", "mark-running", "no pending execution with id "+id, nil)
	}
	return nil
}

// SetProgress updates the current stage and overall percentage for an
// execution in flight. Terminal executions are left untouched.
func (s *Store) SetProgress(ctx context.Context, id, stage string, percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE executions SET current_stage = ?, progress_percent = ?
          WHERE id = ? AND status IN (?, ?)`,
		stage,
		percent,
		id,
		StatusPending,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// RecordStep upserts the record for one pipeline stage of an execution.
func (s *Store) RecordStep(ctx context.Context, executionID string, step Step) error {
	var metadataJSON any
	if len(step.Metadata) > 0 {
		payload, err := json.Marshal(step.Metadata)
		if err != nil {
			return fmt.Errorf("encode step metadata: %w", err)
		}
		metadataJSON = string(payload)
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO execution_steps (
            execution_id, ordinal, stage_name, status,
            started_at, ended_at, duration_seconds, gpu_engaged, metadata
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(execution_id, stage_name) DO UPDATE SET
            ordinal = excluded.ordinal,
            status = excluded.status,
            started_at = excluded.started_at,
            ended_at = excluded.ended_at,
            duration_seconds = excluded.duration_seconds,
            gpu_engaged = excluded.gpu_engaged,
            metadata = excluded.metadata`,
		executionID,
		step.Ordinal,
		step.StageName,
		string(step.Status),
		nullableTime(step.StartedAt),
		nullableTime(step.EndedAt),
		step.Duration.Seconds(),
		boolToInt(step.GPUEngaged),
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("record step %s: %w", step.StageName, err)
	}
	return nil
}

// RequestCancel flags a non-terminal execution for cancellation.
func (s *Store) RequestCancel(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE executions SET cancel_requested = 1 WHERE id = ? AND status IN (?, ?)`,
		id,
		StatusPending,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("request cancel rows: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "tracker", "cancel", "no active execution with id "+id, nil)
	}
	return nil
}

// CancelRequested reports whether cancellation has been requested for an
// execution.
func (s *Store) CancelRequested(ctx context.Context, id string) (bool, error) {
	var requested int
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM executions WHERE id = ?`, id).Scan(&requested)
	if errors.Is(err, sql.ErrNoRows) {
		return false, services.Wrap(services.ErrNotFound, "tracker", "cancel-requested", "no execution with id "+id, nil)
	}
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return requested != 0, nil
}

// Complete moves an execution into a terminal state. Completing an
// already-terminal execution is an error.
func (s *Store) Complete(ctx context.Context, id string, status Status, errorMessage string) error {
	if !status.IsTerminal() {
		return services.Wrap(services.ErrValidation, "tracker", "complete", fmt.Sprintf("status %s is not terminal", status), nil)
	}
	success := 0
	if status == StatusSucceeded || status == StatusDryRun {
		success = 1
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE executions
            SET status = ?, success = ?, error_message = ?, completed_at = ?, progress_percent = CASE WHEN ? = 1 THEN 100 ELSE progress_percent END
          WHERE id = ? AND status IN (?, ?)`,
		string(status),
		success,
		nullableString(errorMessage),
		now,
		success,
		id,
		StatusPending,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("complete execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete execution rows: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrValidation, "tracker", "complete", "execution "+id+" is not active", nil)
	}
	return nil
}

// GetByID loads one execution with its recorded steps.
func (s *Store) GetByID(ctx context.Context, id string) (*Execution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = ?`, id)
	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "tracker", "get", "no execution with id "+id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", id, err)
	}
	if err := s.loadSteps(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// FindByIDPrefix resolves an execution by a unique prefix of its id.
func (s *Store) FindByIDPrefix(ctx context.Context, prefix string) (*Execution, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, services.Wrap(services.ErrValidation, "tracker", "find", "empty execution id", nil)
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+executionColumns+` FROM executions WHERE id LIKE ? ORDER BY created_at DESC LIMIT 2`,
		prefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find execution by prefix: %w", err)
	}
	defer rows.Close()

	var matches []*Execution
	for rows.Next() {
		exec, scanErr := scanExecution(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan execution: %w", scanErr)
		}
		matches = append(matches, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "tracker", "find", "no execution matching "+prefix, nil)
	case 1:
		if err := s.loadSteps(ctx, matches[0]); err != nil {
			return nil, err
		}
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "tracker", "find", "ambiguous execution id "+prefix, nil)
	}
}

// FindActiveByPath returns the non-terminal execution for a path, if any.
func (s *Store) FindActiveByPath(ctx context.Context, path string) (*Execution, error) {
	normalized, err := NormalizePath(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "tracker", "find-active", "invalid target path", err)
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+executionColumns+` FROM executions
          WHERE normalized_path = ? AND status IN (?, ?)
          ORDER BY created_at DESC LIMIT 1`,
		normalized,
		StatusPending,
		StatusRunning,
	)
	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active execution: %w", err)
	}
	return exec, nil
}

// List returns executions ordered newest first, optionally filtered by
// status. A limit of zero means no limit.
func (s *Store) List(ctx context.Context, statuses []Status, limit int) ([]*Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var executions []*Execution
	for rows.Next() {
		exec, scanErr := scanExecution(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan execution: %w", scanErr)
		}
		executions = append(executions, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return executions, nil
}

func (s *Store) loadSteps(ctx context.Context, exec *Execution) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+stepColumns+` FROM execution_steps WHERE execution_id = ? ORDER BY ordinal`,
		exec.ID,
	)
	if err != nil {
		return fmt.Errorf("load steps for %s: %w", exec.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		step, scanErr := scanStep(rows)
		if scanErr != nil {
			return fmt.Errorf("scan step: %w", scanErr)
		}
		exec.Steps = append(exec.Steps, *step)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate steps: %w", err)
	}
	return nil
}

func scanExecution(scanner interface{ Scan(dest ...any) error }) (*Execution, error) {
	var (
		id              string
		path            string
		normalizedPath  string
		kindStr         string
		title           string
		statusStr       string
		currentStage    string
		progressPercent float64
		cancelRequested int
		success         int
		errorMessage    sql.NullString
		createdRaw      sql.NullString
		startedRaw      sql.NullString
		completedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&path,
		&normalizedPath,
		&kindStr,
		&title,
		&statusStr,
		&currentStage,
		&progressPercent,
		&cancelRequested,
		&success,
		&errorMessage,
		&createdRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	exec := &Execution{
		ID:              id,
		Path:            path,
		NormalizedPath:  normalizedPath,
		Kind:            Kind(kindStr),
		Title:           title,
		Status:          Status(statusStr),
		CurrentStage:    currentStage,
		ProgressPercent: progressPercent,
		CancelRequested: cancelRequested != 0,
		Success:         success != 0,
		ErrorMessage:    errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		exec.CreatedAt = created
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			exec.StartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			exec.CompletedAt = &completed
		}
	}
	if exec.StartedAt != nil {
		end := time.Now().UTC()
		if exec.CompletedAt != nil {
			end = *exec.CompletedAt
		}
		exec.ElapsedSeconds = end.Sub(*exec.StartedAt).Seconds()
	}
	return exec, nil
}

func scanStep(scanner interface{ Scan(dest ...any) error }) (*Step, error) {
	var (
		id          int64
		ordinal     int
		stageName   string
		statusStr   string
		startedRaw  sql.NullString
		endedRaw    sql.NullString
		durationSec float64
		gpuEngaged  int
		metadataRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&ordinal,
		&stageName,
		&statusStr,
		&startedRaw,
		&endedRaw,
		&durationSec,
		&gpuEngaged,
		&metadataRaw,
	); err != nil {
		return nil, err
	}

	step := &Step{
		ID:         id,
		Ordinal:    ordinal,
		StageName:  stageName,
		Status:     StepStatus(statusStr),
		Duration:   time.Duration(durationSec * float64(time.Second)),
		GPUEngaged: gpuEngaged != 0,
	}
	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			step.StartedAt = &started
		}
	}
	if endedRaw.Valid {
		if ended, err := parseTimeString(endedRaw.String); err == nil {
			step.EndedAt = &ended
		}
	}
	if metadataRaw.Valid && metadataRaw.String != "" {
		metadata := make(map[string]string)
		if err := json.Unmarshal([]byte(metadataRaw.String), &metadata); err == nil {
			step.Metadata = metadata
		}
	}
	return step, nil
}

func parseTimeString(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, errors.New("empty time value")
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
