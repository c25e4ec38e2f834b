package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seantiz/warp/internal/model"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    queue_id      TEXT NOT NULL,
    name          TEXT NOT NULL,
    status        TEXT NOT NULL,
    policy        TEXT NOT NULL,
    backend       TEXT NOT NULL DEFAULT '',
    items         INTEGER NOT NULL DEFAULT 0,
    storage_bytes INTEGER NOT NULL DEFAULT 0,
    error         TEXT NOT NULL DEFAULT '',
    timeout_s     INTEGER,
    duration_ms   INTEGER,
    created_at    DATETIME NOT NULL,
    started_at    DATETIME,
    finished_at   DATETIME
)`

const createRunEventsTable = `
CREATE TABLE IF NOT EXISTS run_events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id     TEXT NOT NULL REFERENCES runs(id),
    seq        INTEGER NOT NULL,
    message    TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`

const createRunEventsIndex = `
CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id, seq)`

const runColumns = `id, queue_id, name, status, policy, backend, items,
	storage_bytes, error, timeout_s, duration_ms, created_at, started_at, finished_at`

// ErrNotFound is returned when a run is not found.
var ErrNotFound = errors.New("run not found")

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range []string{createRunsTable, createRunEventsTable, createRunEventsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	r := &model.Run{}
	err := row.Scan(
		&r.ID, &r.QueueID, &r.Name, &r.Status, &r.Policy, &r.Backend, &r.Items,
		&r.StorageBytes, &r.Error, &r.TimeoutS, &r.DurationMS, &r.CreatedAt,
		&r.StartedAt, &r.FinishedAt,
	)
	return r, err
}

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, r *model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.QueueID, r.Name, r.Status, r.Policy, r.Backend, r.Items,
		r.StorageBytes, r.Error, r.TimeoutS, r.DurationMS, r.CreatedAt,
		r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns a paginated list of runs ordered by created_at DESC,
// along with the total count of all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count runs: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}

// UpdateRunStatus moves a run to status. The transition must be allowed by
// model.ValidTransition. Entering running sets started_at; entering a
// terminal status sets finished_at.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id, status string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM runs WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read run status: %w", err)
	}

	if !model.ValidTransition(current, status) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current, status)
	}

	now := time.Now().UTC()
	switch {
	case status == model.StatusRunning:
		_, err = tx.ExecContext(ctx,
			"UPDATE runs SET status = ?, started_at = ? WHERE id = ?", status, now, id)
	case model.IsTerminal(status):
		_, err = tx.ExecContext(ctx,
			"UPDATE runs SET status = ?, finished_at = ? WHERE id = ?", status, now, id)
	default:
		_, err = tx.ExecContext(ctx,
			"UPDATE runs SET status = ? WHERE id = ?", status, id)
	}
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}

	return tx.Commit()
}

// UpdateRun writes every mutable field of r. A status change must be an
// allowed transition.
func (s *SQLiteStore) UpdateRun(ctx context.Context, r *model.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM runs WHERE id = ?", r.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read run status: %w", err)
	}
	if current != r.Status && !model.ValidTransition(current, r.Status) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current, r.Status)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, backend = ?, items = ?, storage_bytes = ?,
			error = ?, duration_ms = ?, started_at = ?, finished_at = ?
		WHERE id = ?`,
		r.Status, r.Backend, r.Items, r.StorageBytes,
		r.Error, r.DurationMS, r.StartedAt, r.FinishedAt,
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	return tx.Commit()
}

// GetRunStats returns aggregate statistics across all runs.
func (s *SQLiteStore) GetRunStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{
		CountByStatus:  make(map[string]int),
		CountByBackend: make(map[string]int),
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	if err := countBy(ctx, tx, "status", stats.CountByStatus); err != nil {
		return nil, err
	}
	if err := countBy(ctx, tx, "backend", stats.CountByBackend); err != nil {
		return nil, err
	}
	delete(stats.CountByBackend, "")

	for _, n := range stats.CountByStatus {
		stats.Total += n
	}

	var avg sql.NullFloat64
	var items sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT AVG(duration_ms), SUM(items) FROM runs WHERE duration_ms IS NOT NULL",
	).Scan(&avg, &items)
	if err != nil {
		return nil, fmt.Errorf("aggregate durations: %w", err)
	}
	stats.AvgDurationMS = avg.Float64
	stats.TotalItems = items.Int64

	return stats, nil
}

// countBy fills into with row counts grouped by column. column is always a
// constant from this file.
func countBy(ctx context.Context, tx *sql.Tx, column string, into map[string]int) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) FROM runs GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = n
	}
	return rows.Err()
}

// InsertEvent appends a progress event to a run.
func (s *SQLiteStore) InsertEvent(ctx context.Context, runID string, seq int, message string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO run_events (run_id, seq, message, created_at) VALUES (?, ?, ?, ?)",
		runID, seq, message, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run event: %w", err)
	}
	return nil
}

// GetEvents returns all events of a run in sequence order.
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string) ([]model.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, seq, message, created_at FROM run_events WHERE run_id = ? ORDER BY seq",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run events: %w", err)
	}
	defer rows.Close()

	var events []model.RunEvent
	for rows.Next() {
		var e model.RunEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run events: %w", err)
	}
	return events, nil
}
