package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/calegray/codedown/internal/model"
	"github.com/calegray/codedown/internal/proc"
	"github.com/calegray/codedown/internal/store"
)

// ErrChunkNotFound is returned when a chunk id is not in the current parse.
var ErrChunkNotFound = errors.New("chunk not found")

// Executor runs a one-shot chunk execution. Satisfied by executor.Executor.
type Executor interface {
	Execute(ctx context.Context, chunk *model.Chunk, code, workDir string, logLine func(string)) proc.Result
	// Enabled reports whether the global execution gate is open.
	Enabled() bool
}

// Sessions feeds code to persistent interactive interpreters. Satisfied by
// session.Manager.
type Sessions interface {
	Send(ctx context.Context, language, key, code, workDir string) (string, string, error)
	Dispose()
}

// Manager orchestrates the chunk lifecycle for one document: it parses the
// document into an ordered chunk set, resolves continuation chains, routes
// each run to the one-shot executor or the session pool, and renders the
// captured output.
//
// Chunk runs are serialized: continuation chains depend on interpreter state
// created by earlier chunks, so two runs never overlap.
type Manager struct {
	docID    string
	executor Executor
	sessions Sessions
	store    store.Store // nil disables run-history persistence
	logger   *slog.Logger
	broker   *LogBroker

	runMu sync.Mutex // serializes chunk runs

	mu     sync.Mutex // guards chunks and order
	chunks map[string]*model.Chunk
	order  []string
}

// NewManager creates a chunk manager for the document identified by docID.
// st may be nil, in which case runs are not persisted.
func NewManager(docID string, exec Executor, sessions Sessions, st store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		docID:    docID,
		executor: exec,
		sessions: sessions,
		store:    st,
		logger:   logger,
		broker:   NewLogBroker(),
		chunks:   make(map[string]*model.Chunk),
	}
}

// Broker returns the manager's log broker for SSE subscription.
func (m *Manager) Broker() *LogBroker {
	return m.broker
}

// GetChunk returns a snapshot of the chunk with the given id from the
// current parse. Callers get a copy: a run may update the live chunk's
// status fields at any time.
func (m *Manager) GetChunk(id string) (*model.Chunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chunks[id]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

// ChunkIDs returns the chunk ids of the current parse in document order.
func (m *Manager) ChunkIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids
}

// HasRunOnSaveChunks reports whether any chunk carries the run_on_save flag.
func (m *Manager) HasRunOnSaveChunks() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chunks {
		if c.Attrs.RunOnSave {
			return true
		}
	}
	return false
}

// RunChunk executes one chunk in workDir and returns its result. Every
// execution failure is resolved into the result; an error is returned only
// when the chunk id is unknown.
func (m *Manager) RunChunk(ctx context.Context, id, workDir string) (*model.ChunkResult, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	m.mu.Lock()
	chunk, ok := m.chunks[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrChunkNotFound
	}
	chunk.Status = model.StatusRunning
	chunk.Error = ""
	m.mu.Unlock()

	m.broker.Open(chunk.ID)
	defer m.broker.Close(chunk.ID)

	runID := model.NewID()
	start := time.Now()
	m.createRun(runID, chunk)

	result := m.execute(ctx, runID, chunk, workDir)
	result.DurationMS = time.Since(start).Milliseconds()

	m.mu.Lock()
	chunk.Status = result.Status
	chunk.RenderedResult = result.Rendered
	chunk.Error = result.Error
	m.mu.Unlock()
	m.finishRun(runID, chunk, result)

	chunkRunsTotal.WithLabelValues(result.Status, chunk.Language).Inc()
	runDuration.Observe(time.Since(start).Seconds())

	return result, nil
}

// execute routes the run and renders its output. Unexpected failures from
// either path are caught here and rendered as an error block so they never
// propagate to the caller.
func (m *Manager) execute(ctx context.Context, runID string, chunk *model.Chunk, workDir string) (res *model.ChunkResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("chunk execution failed: %v", r)
			m.logger.Error("unexpected chunk failure", "chunk_id", chunk.ID, "panic", r)
			res = &model.ChunkResult{
				ChunkID:  chunk.ID,
				Status:   model.StatusError,
				Rendered: renderErrorBlock(msg),
				Error:    msg,
				ExitCode: 1,
			}
		}
	}()

	// Dual-write streamed lines: persist for history replay, publish for SSE.
	var seq atomic.Int32
	logLine := func(line string) {
		currentSeq := int(seq.Add(1) - 1)
		if m.store != nil {
			if err := m.store.InsertLogLine(context.Background(), runID, currentSeq, line); err != nil {
				m.logger.Error("failed to persist log line", "run_id", runID, "seq", currentSeq, "error", err)
			}
		}
		m.broker.Publish(chunk.ID, line)
	}

	var stdout, stderr string
	var exitCode int

	// The executor owns the global execution gate; when the gate is closed,
	// continuation chunks fall through to it as well so no interpreter is
	// ever spawned.
	if chunk.Attrs.Continue.Kind != model.ContinueNone && m.executor.Enabled() {
		// Session path: the interpreter retains state across sends, so only
		// the chunk's own body goes over the wire.
		key := chunk.Language
		if chunk.Attrs.Continue.Kind == model.ContinueTarget {
			key = chunk.Attrs.Continue.Target
		}
		var err error
		stdout, stderr, err = m.sessions.Send(ctx, chunk.Language, key, chunk.Code, workDir)
		if err != nil {
			msg := fmt.Sprintf("session send: %v", err)
			return &model.ChunkResult{
				ChunkID:  chunk.ID,
				Status:   model.StatusError,
				Rendered: renderErrorBlock(msg),
				Error:    msg,
				ExitCode: 1,
			}
		}
		if stdout != "" {
			for line := range strings.SplitSeq(strings.TrimSuffix(stdout, "\n"), "\n") {
				logLine(line)
			}
		}
		// A session call has no exit code; non-empty stderr marks failure.
		if stderr != "" {
			exitCode = 1
		}
	} else {
		code := m.BuildContinuedCode(chunk.ID)
		r := m.executor.Execute(ctx, chunk, code, workDir, logLine)
		stdout, stderr, exitCode = r.Stdout, r.Stderr, r.ExitCode
	}

	rendered := RenderOutput(stdout, stderr, chunk.Attrs.Output, chunk.Attrs.PlotCapture)
	status := model.StatusSuccess
	errText := ""
	if exitCode != 0 {
		status = model.StatusError
		errText = stderr
		if errText == "" {
			errText = fmt.Sprintf("exit code %d", exitCode)
		}
	}

	return &model.ChunkResult{
		ChunkID:  chunk.ID,
		Status:   status,
		Rendered: rendered,
		Error:    errText,
		ExitCode: exitCode,
	}
}

// RunAll executes every parsed chunk sequentially in document order. A
// chunk's failure does not halt the remaining chunks.
func (m *Manager) RunAll(ctx context.Context, workDir string) []model.ChunkResult {
	return m.runSequence(ctx, workDir, func(*model.Chunk) bool { return true })
}

// RunOnSave executes chunks whose run_on_save attribute is set, in document
// order.
func (m *Manager) RunOnSave(ctx context.Context, workDir string) []model.ChunkResult {
	return m.runSequence(ctx, workDir, func(c *model.Chunk) bool { return c.Attrs.RunOnSave })
}

func (m *Manager) runSequence(ctx context.Context, workDir string, include func(*model.Chunk) bool) []model.ChunkResult {
	var results []model.ChunkResult
	for _, id := range m.ChunkIDs() {
		chunk, ok := m.GetChunk(id)
		if !ok || !include(chunk) {
			continue
		}
		res, err := m.RunChunk(ctx, id, workDir)
		if err != nil {
			// The chunk set changed under us mid-sequence; skip.
			continue
		}
		results = append(results, *res)
	}
	return results
}

// Dispose force-terminates every session the manager owns. The manager is
// not usable afterwards.
func (m *Manager) Dispose() {
	m.sessions.Dispose()
}

func (m *Manager) createRun(runID string, chunk *model.Chunk) {
	if m.store == nil {
		return
	}
	run := &model.ChunkRun{
		ID:         runID,
		DocumentID: m.docID,
		ChunkID:    chunk.ID,
		Language:   chunk.Language,
		Status:     model.StatusRunning,
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.store.CreateRun(context.Background(), run); err != nil {
		m.logger.Error("failed to create run record", "run_id", runID, "error", err)
	}
}

func (m *Manager) finishRun(runID string, chunk *model.Chunk, result *model.ChunkResult) {
	if m.store == nil {
		return
	}
	now := time.Now().UTC()
	exit := result.ExitCode
	dur := result.DurationMS
	run := &model.ChunkRun{
		ID:         runID,
		DocumentID: m.docID,
		ChunkID:    chunk.ID,
		Language:   chunk.Language,
		Status:     result.Status,
		Rendered:   result.Rendered,
		Error:      result.Error,
		ExitCode:   &exit,
		DurationMS: &dur,
		FinishedAt: &now,
	}
	if err := m.store.UpdateRun(context.Background(), run); err != nil {
		m.logger.Error("failed to update run record", "run_id", runID, "error", err)
	}
}
