package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reelsmith/internal/config"
)

// Store manages render-run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "queue.db"))
}

// OpenPath connects to the queue database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
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

const runColumns = `id, uuid, topic, status, manifest_json, staging_dir, final_file,
    error_message, progress_stage, progress_percent, progress_message,
    needs_review, review_reason, created_at, updated_at`

// NewRun inserts a pending render run for the given topic. An empty topic
// lets the script stage choose one.
func (s *Store) NewRun(ctx context.Context, topic string) (*Run, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	runUUID := uuid.NewString()

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (uuid, topic, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		runUUID,
		strings.TrimSpace(topic),
		StatusPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a run by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// Update persists changes to an existing run.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	run.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
         SET topic = ?, status = ?, manifest_json = ?, staging_dir = ?,
             final_file = ?, error_message = ?, progress_stage = ?,
             progress_percent = ?, progress_message = ?, needs_review = ?,
             review_reason = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(run.Topic),
		run.Status,
		nullableString(run.ManifestJSON),
		nullableString(run.StagingDir),
		nullableString(run.FinalFile),
		nullableString(run.ErrorMessage),
		nullableString(run.ProgressStage),
		run.ProgressPercent,
		nullableString(run.ProgressMessage),
		boolToInt(run.NeedsReview),
		nullableString(run.ReviewReason),
		run.UpdatedAt.Format(time.RFC3339Nano),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// NextForStatuses returns the oldest run whose status matches one of the
// provided statuses, or nil when none is ready.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Run, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = status
	}
	query := `SELECT ` + runColumns + ` FROM runs WHERE status IN (` +
		strings.Join(placeholders, ",") + `) ORDER BY created_at LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next run: %w", err)
	}
	return run, nil
}

// List returns all runs ordered by creation time, newest first.
func (s *Store) List(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// RunsByStatus returns runs matching a status ordered by creation time.
func (s *Store) RunsByStatus(ctx context.Context, status Status) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// Retry resets a failed or review run back to pending so the worker picks it
// up again from the first incomplete stage.
func (s *Store) Retry(ctx context.Context, id int64) (*Run, error) {
	run, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %d: %w", id, sql.ErrNoRows)
	}
	if run.Status != StatusFailed && run.Status != StatusReview {
		return nil, fmt.Errorf("run %d is %s, only failed or review runs can be retried", id, run.Status)
	}
	run.Status = StatusPending
	run.ErrorMessage = ""
	run.NeedsReview = false
	run.ReviewReason = ""
	run.SetProgress("", "", 0)
	if err := s.Update(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// Clear removes runs. When onlyTerminal is true, in-flight runs survive.
func (s *Store) Clear(ctx context.Context, onlyTerminal bool) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if onlyTerminal {
		res, err = s.db.ExecContext(ctx,
			`DELETE FROM runs WHERE status IN (?, ?, ?)`,
			StatusCompleted, StatusFailed, StatusReview)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM runs`)
	}
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// Health aggregates run counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("health query: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("health scan: %w", err)
		}
		summary.Total += count
		switch {
		case status == StatusPending:
			summary.Pending += count
		case status == StatusCompleted:
			summary.Completed += count
		case status == StatusFailed:
			summary.Failed += count
		case status == StatusReview:
			summary.Review += count
		default:
			if _, ok := processingStatuses[status]; ok {
				summary.Processing += count
			}
		}
	}
	return summary, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                                    Run
		topic, manifest, staging, finalFile    sql.NullString
		errMsg, progStage, progMsg, reviewWhy  sql.NullString
		needsReview                            int
		createdAt, updatedAt                   string
	)
	err := row.Scan(
		&run.ID, &run.UUID, &topic, &run.Status, &manifest, &staging, &finalFile,
		&errMsg, &progStage, &run.ProgressPercent, &progMsg,
		&needsReview, &reviewWhy, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Topic = topic.String
	run.ManifestJSON = manifest.String
	run.StagingDir = staging.String
	run.FinalFile = finalFile.String
	run.ErrorMessage = errMsg.String
	run.ProgressStage = progStage.String
	run.ProgressMessage = progMsg.String
	run.NeedsReview = needsReview != 0
	run.ReviewReason = reviewWhy.String
	run.CreatedAt = parseTimestamp(createdAt)
	run.UpdatedAt = parseTimestamp(updatedAt)
	return &run, nil
}

func collectRuns(rows *sql.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
