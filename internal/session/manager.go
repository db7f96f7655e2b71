// Package session maintains long-lived interactive interpreter processes
// keyed by (language, session key). Code fragments are written to a
// session's input stream followed by a synthetic delimiter echo; the send
// resolves once the delimiter reappears on the output stream, or the
// timeout fires, whichever happens first. Sends to the same session are
// serialized so two callers can never interleave writes or steal each
// other's delimiter.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/calegray/codedown/internal/proc"
	"github.com/oklog/ulid/v2"
)

// Manager owns every live interactive session. It is the sole owner of the
// underlying process handles; callers never address a process directly.
type Manager struct {
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session pairs an interactive process with the per-session send lock.
type session struct {
	language string
	key      string
	proc     *proc.Interactive

	// sendMu serializes Send calls against this session. Only one send
	// may be in flight per session key at a time.
	sendMu sync.Mutex
}

// NewManager creates a session manager whose sends use the given timeout.
func NewManager(timeout time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		timeout:  timeout,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func sessionKey(language, key string) string {
	return language + "\x00" + key
}

// getOrCreate returns the live session for (language, key), spawning a new
// interpreter when none exists or the previous process has exited. An exit
// observer removes the session from the table when the process terminates
// on its own.
func (m *Manager) getOrCreate(language, key, workDir string) (*session, error) {
	id := sessionKey(language, key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok && s.proc.Alive() {
		return s, nil
	}

	command, args := interpreterFor(language)
	p, err := proc.StartInteractive(command, args, workDir, func() {
		m.remove(id)
	})
	if err != nil {
		return nil, fmt.Errorf("start %s session: %w", language, err)
	}

	if init := initCode(language); init != "" {
		if err := p.Write([]byte(init)); err != nil {
			p.Kill()
			return nil, fmt.Errorf("initialize %s session: %w", language, err)
		}
	}

	s := &session{language: language, key: key, proc: p}
	m.sessions[id] = s
	activeSessions.Inc()
	m.logger.Debug("session started", "language", language, "key", key, "command", command)
	return s, nil
}

// remove drops a session from the table after its process exits.
func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		activeSessions.Dec()
	}
}

// Send writes code to the (language, key) session followed by a delimiter
// echo, and returns everything the session printed before the delimiter
// plus whatever stderr accumulated. Exactly one of delimiter match or
// timeout settles the call.
func (m *Manager) Send(ctx context.Context, language, key, code, workDir string) (string, string, error) {
	s, err := m.getOrCreate(language, key, workDir)
	if err != nil {
		return "", "", err
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	// Discard output produced before this send (e.g. the tail of a
	// previous timed-out call or interpreter banners).
	drain(s.proc.Stdout())
	drain(s.proc.Stderr())

	delimiter := fmt.Sprintf("codedown-done-%d-%s", time.Now().UnixMilli(), strings.ToLower(ulid.Make().String()))
	payload := code + echoTrailer(language, delimiter)

	if err := s.proc.Write([]byte(payload)); err != nil {
		return "", "", fmt.Errorf("write to %s session: %w", language, err)
	}

	var stdout, stderr strings.Builder
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	stdoutCh := s.proc.Stdout()
	stderrCh := s.proc.Stderr()

	for {
		select {
		case chunk, ok := <-stdoutCh:
			if !ok {
				return stdout.String(), scrubPromptNoise(language, stderr.String()), fmt.Errorf("%s session exited before responding", language)
			}
			stdout.WriteString(chunk)
			if idx := strings.Index(stdout.String(), delimiter); idx >= 0 {
				return stdout.String()[:idx], scrubPromptNoise(language, stderr.String()), nil
			}
		case chunk, ok := <-stderrCh:
			if !ok {
				stderrCh = nil
				continue
			}
			stderr.WriteString(chunk)
		case <-timer.C:
			return stdout.String(), appendLine(scrubPromptNoise(language, stderr.String()), fmt.Sprintf("session send timed out after %s", m.timeout)), nil
		case <-ctx.Done():
			return stdout.String(), appendLine(scrubPromptNoise(language, stderr.String()), ctx.Err().Error()), nil
		}
	}
}

// Dispose force-terminates every tracked session and clears the table.
// Used only at teardown.
func (m *Manager) Dispose() {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.proc.Kill()
		// The exit observer removes the entry and decrements the gauge.
		<-s.proc.Done()
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func drain(ch <-chan string) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	if !strings.HasSuffix(s, "\n") {
		return s + "\n" + line
	}
	return s + line
}
