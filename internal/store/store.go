package store

import (
	"context"
	"errors"

	"github.com/calegray/codedown/internal/model"
)

// ErrNotFound is returned when a chunk run is not found.
var ErrNotFound = errors.New("run not found")

// RunStats holds aggregate chunk-run statistics.
type RunStats struct {
	Total           int            `json:"total"`
	CountByStatus   map[string]int `json:"count_by_status"`
	CountByLanguage map[string]int `json:"count_by_language"`
	AvgDurationMS   float64        `json:"avg_duration_ms"`
}

// Store defines the persistence operations for chunk-run history.
type Store interface {
	CreateRun(ctx context.Context, r *model.ChunkRun) error
	UpdateRun(ctx context.Context, r *model.ChunkRun) error
	GetRun(ctx context.Context, id string) (*model.ChunkRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*model.ChunkRun, int, error)
	GetRunStats(ctx context.Context) (*RunStats, error)
	InsertLogLine(ctx context.Context, runID string, seq int, line string) error
	GetLogLines(ctx context.Context, runID string) ([]model.LogLine, error)
	Close() error
}
