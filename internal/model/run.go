package model

import "time"

// ChunkRun is a persisted record of one chunk execution. A row is created
// when the run starts and updated when it finishes.
type ChunkRun struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"document_id"`
	ChunkID    string     `json:"chunk_id"`
	Language   string     `json:"language"`
	Status     string     `json:"status"`
	Rendered   string     `json:"rendered,omitempty"`
	Error      string     `json:"error,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	DurationMS *int64     `json:"duration_ms,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// LogLine is a single persisted output line from a chunk run.
type LogLine struct {
	RunID     string    `json:"run_id"`
	Seq       int       `json:"seq"`
	Line      string    `json:"line"`
	CreatedAt time.Time `json:"created_at"`
}
