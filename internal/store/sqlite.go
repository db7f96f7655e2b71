package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/calegray/codedown/internal/model"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    chunk_id    TEXT NOT NULL,
    language    TEXT NOT NULL,
    status      TEXT NOT NULL,
    rendered    TEXT,
    error       TEXT,
    exit_code   INTEGER,
    duration_ms INTEGER,
    created_at  DATETIME NOT NULL,
    finished_at DATETIME
)`

const createRunLogsTable = `
CREATE TABLE IF NOT EXISTS run_logs (
    run_id     TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    line       TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    PRIMARY KEY (run_id, seq)
)`

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

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}

	if _, err := db.Exec(createRunLogsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create run_logs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new chunk-run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, r *model.ChunkRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
			id, document_id, chunk_id, language, status, rendered,
			error, exit_code, duration_ms, created_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DocumentID, r.ChunkID, r.Language, r.Status, r.Rendered,
		r.Error, r.ExitCode, r.DurationMS, r.CreatedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateRun overwrites the mutable fields of a run record.
func (s *SQLiteStore) UpdateRun(ctx context.Context, r *model.ChunkRun) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, rendered = ?, error = ?, exit_code = ?,
			duration_ms = ?, finished_at = ? WHERE id = ?`,
		r.Status, r.Rendered, r.Error, r.ExitCode, r.DurationMS, r.FinishedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun retrieves a chunk run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.ChunkRun, error) {
	r := &model.ChunkRun{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, chunk_id, language, status, rendered,
			error, exit_code, duration_ms, created_at, finished_at
		FROM runs WHERE id = ?`, id,
	).Scan(
		&r.ID, &r.DocumentID, &r.ChunkID, &r.Language, &r.Status, &r.Rendered,
		&r.Error, &r.ExitCode, &r.DurationMS, &r.CreatedAt, &r.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns a paginated list of runs ordered by created_at DESC, along
// with the total count of all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*model.ChunkRun, int, error) {
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
		`SELECT id, document_id, chunk_id, language, status, rendered,
			error, exit_code, duration_ms, created_at, finished_at
		FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.ChunkRun
	for rows.Next() {
		r := &model.ChunkRun{}
		if err := rows.Scan(
			&r.ID, &r.DocumentID, &r.ChunkID, &r.Language, &r.Status, &r.Rendered,
			&r.Error, &r.ExitCode, &r.DurationMS, &r.CreatedAt, &r.FinishedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, total, nil
}

// GetRunStats aggregates counts by status and language plus the average
// duration across finished runs.
func (s *SQLiteStore) GetRunStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{
		CountByStatus:   make(map[string]int),
		CountByLanguage: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM runs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.CountByStatus[status] = count
		stats.Total += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT language, COUNT(*) FROM runs GROUP BY language")
	if err != nil {
		return nil, fmt.Errorf("count by language: %w", err)
	}
	for rows.Next() {
		var language string
		var count int
		if err := rows.Scan(&language, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan language count: %w", err)
		}
		stats.CountByLanguage[language] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate language counts: %w", err)
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		"SELECT AVG(duration_ms) FROM runs WHERE duration_ms IS NOT NULL",
	).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average duration: %w", err)
	}
	if avg.Valid {
		stats.AvgDurationMS = avg.Float64
	}

	return stats, nil
}

// InsertLogLine persists one output line for a run.
func (s *SQLiteStore) InsertLogLine(ctx context.Context, runID string, seq int, line string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO run_logs (run_id, seq, line, created_at) VALUES (?, ?, ?, ?)",
		runID, seq, line, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert log line: %w", err)
	}
	return nil
}

// GetLogLines returns the persisted output lines for a run in sequence order.
func (s *SQLiteStore) GetLogLines(ctx context.Context, runID string) ([]model.LogLine, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, seq, line, created_at FROM run_logs WHERE run_id = ? ORDER BY seq",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get log lines: %w", err)
	}
	defer rows.Close()

	var lines []model.LogLine
	for rows.Next() {
		var l model.LogLine
		if err := rows.Scan(&l.RunID, &l.Seq, &l.Line, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log lines: %w", err)
	}

	return lines, nil
}
