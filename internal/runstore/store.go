package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"kiln/internal/config"
)

// ErrTerminalState indicates an attempted transition out of a terminal state.
var ErrTerminalState = errors.New("run is in a terminal state")

// Store manages run ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and verifies its
// schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "ledger.db")
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

// NewRun inserts a run in the start state and records its first transition.
func (s *Store) NewRun(ctx context.Context, pipeline string) (*Run, error) {
	if pipeline == "" {
		return nil, errors.New("pipeline name required")
	}

	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, pipeline, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, pipeline, StateStart, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_transitions (run_id, state, occurred_at) VALUES (?, ?, ?)`,
		id, StateStart, now,
	); err != nil {
		return nil, fmt.Errorf("insert transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(ctx, id)
}

// Transition advances a run to the given state and records it. Transitions
// out of terminal states are rejected.
func (s *Store) Transition(ctx context.Context, runID string, state State) error {
	run, err := s.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.State.Terminal() {
		return fmt.Errorf("%w: run %s is %s", ErrTerminalState, runID, run.State)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET state = ?, updated_at = ? WHERE id = ?`,
		state, now, runID,
	); err != nil {
		return fmt.Errorf("update run state: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_transitions (run_id, state, occurred_at) VALUES (?, ?, ?)`,
		runID, state, now,
	); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MarkFailed moves a run to the terminal failed state with its error kind
// and message.
func (s *Store) MarkFailed(ctx context.Context, runID, kind, message string) error {
	run, err := s.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.State.Terminal() {
		return fmt.Errorf("%w: run %s is %s", ErrTerminalState, runID, run.State)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET state = ?, error_kind = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StateFailed, kind, message, now, runID,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO run_transitions (run_id, state, occurred_at) VALUES (?, ?, ?)`,
		runID, StateFailed, now,
	); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SetCacheInfo records the dependency cache key and whether it was hit.
func (s *Store) SetCacheInfo(ctx context.Context, runID, cacheKey string, hit bool) error {
	return s.update(ctx, runID, `UPDATE runs SET cache_key = ?, cache_hit = ?, updated_at = ? WHERE id = ?`,
		cacheKey, boolToInt(hit))
}

// SetArtifact records the produced executable's path.
func (s *Store) SetArtifact(ctx context.Context, runID, path string) error {
	return s.update(ctx, runID, `UPDATE runs SET artifact_path = ?, updated_at = ? WHERE id = ?`, path)
}

// SetImageTag records the assembled image's tag.
func (s *Store) SetImageTag(ctx context.Context, runID, tag string) error {
	return s.update(ctx, runID, `UPDATE runs SET image_tag = ?, updated_at = ? WHERE id = ?`, tag)
}

func (s *Store) update(ctx context.Context, runID, query string, args ...any) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	all := append(append([]any{}, args...), now, runID)
	res, err := s.db.ExecContext(ctx, query, all...)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// GetByID returns a run by its identifier.
func (s *Store) GetByID(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, pipeline, state, cache_key, cache_hit, error_kind, error_message,
		        artifact_path, image_tag, created_at, updated_at
		 FROM runs WHERE id = ?`, runID)
	return scanRun(row)
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pipeline, state, cache_key, cache_hit, error_kind, error_message,
		        artifact_path, image_tag, created_at, updated_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Transitions returns a run's recorded state changes in order.
func (s *Store) Transitions(ctx context.Context, runID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, state, occurred_at FROM run_transitions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var tr Transition
		var state, occurred string
		if err := rows.Scan(&tr.RunID, &state, &occurred); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.State = State(state)
		tr.OccurredAt, err = time.Parse(time.RFC3339Nano, occurred)
		if err != nil {
			return nil, fmt.Errorf("parse transition time: %w", err)
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var state, created, updated string
	var cacheHit int
	err := row.Scan(&run.ID, &run.Pipeline, &state, &run.CacheKey, &cacheHit,
		&run.ErrorKind, &run.ErrorMessage, &run.ArtifactPath, &run.ImageTag,
		&created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run not found")
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.State = State(state)
	run.CacheHit = cacheHit != 0
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if run.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
