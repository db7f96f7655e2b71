package session

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, timeout time.Duration) *Manager {
	t.Helper()
	m := NewManager(timeout, testLogger())
	t.Cleanup(m.Dispose)
	return m
}

func TestSendShellRoundTrip(t *testing.T) {
	m := newTestManager(t, 10*time.Second)

	stdout, stderr, err := m.Send(context.Background(), "sh", "sh", "echo hello", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(stdout, "hello") {
		t.Errorf("stdout = %q, want to contain hello", stdout)
	}
	if strings.Contains(stdout, "codedown-done") {
		t.Errorf("stdout = %q, must not contain the delimiter", stdout)
	}
	if strings.Contains(stderr, "codedown-done") {
		t.Errorf("stderr = %q, must not contain the delimiter", stderr)
	}
}

func TestSendPreservesInterpreterState(t *testing.T) {
	m := newTestManager(t, 10*time.Second)

	if _, _, err := m.Send(context.Background(), "sh", "sh", "GREETING=hi", ""); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	stdout, _, err := m.Send(context.Background(), "sh", "sh", "echo $GREETING", "")
	if err != nil {
		t.Fatalf("second Send: %v", err)
	}
	if !strings.Contains(stdout, "hi") {
		t.Errorf("stdout = %q, want state from the first send", stdout)
	}
}

func TestSendTimeout(t *testing.T) {
	m := newTestManager(t, 500*time.Millisecond)

	start := time.Now()
	_, stderr, err := m.Send(context.Background(), "sh", "sh", "sleep 30", "")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(stderr, "timed out") {
		t.Errorf("stderr = %q, want timeout marker", stderr)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Send took %v, want bounded near the 500ms timeout", elapsed)
	}
}

func TestSendSerializedPerSession(t *testing.T) {
	m := newTestManager(t, 10*time.Second)

	// Warm the session so both goroutines share one process.
	if _, _, err := m.Send(context.Background(), "sh", "sh", "true", ""); err != nil {
		t.Fatalf("warmup Send: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			out, _, err := m.Send(context.Background(), "sh", "sh", "echo resp", "")
			results[n], errs[n] = out, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("Send %d: %v", i, errs[i])
		}
		if !strings.Contains(results[i], "resp") {
			t.Errorf("Send %d stdout = %q, want its own response", i, results[i])
		}
	}
}

func TestCrashedSessionIsReplaced(t *testing.T) {
	m := newTestManager(t, 10*time.Second)

	if _, _, err := m.Send(context.Background(), "sh", "crash", "true", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.Count() != 1 {
		t.Fatalf("session count = %d, want 1", m.Count())
	}

	// Kill the interpreter from inside; the exit observer must drop it.
	_, _, _ = m.Send(context.Background(), "sh", "crash", "exit 7", "")

	deadline := time.Now().Add(5 * time.Second)
	for m.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.Count() != 0 {
		t.Fatal("crashed session was not removed from the table")
	}

	// The next send transparently spawns a fresh interpreter.
	stdout, _, err := m.Send(context.Background(), "sh", "crash", "echo back", "")
	if err != nil {
		t.Fatalf("Send after crash: %v", err)
	}
	if !strings.Contains(stdout, "back") {
		t.Errorf("stdout = %q, want output from replacement session", stdout)
	}
}

func TestDisposeKillsSessions(t *testing.T) {
	m := NewManager(10*time.Second, testLogger())

	if _, _, err := m.Send(context.Background(), "sh", "a", "true", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, _, err := m.Send(context.Background(), "sh", "b", "true", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}

	m.Dispose()

	deadline := time.Now().Add(5 * time.Second)
	for m.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if m.Count() != 0 {
		t.Errorf("session count after Dispose = %d, want 0", m.Count())
	}
}

func TestUnknownInterpreterReturnsError(t *testing.T) {
	m := newTestManager(t, time.Second)

	_, _, err := m.Send(context.Background(), "not-a-language-xyz", "k", "hi", "")
	if err == nil {
		t.Fatal("Send succeeded, want spawn error for unknown interpreter")
	}
}

func TestSendPythonPromptsStayOffStderr(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	m := newTestManager(t, 10*time.Second)

	stdout, stderr, err := m.Send(context.Background(), "python", "python", "print(1+1)", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(stdout, "2") {
		t.Errorf("stdout = %q, want to contain 2", stdout)
	}
	// The REPL writes its prompts to stderr when stdin is a pipe; a
	// successful send must come back with stderr empty.
	if stderr != "" {
		t.Errorf("stderr = %q, want empty for a successful send", stderr)
	}
}

func TestSendPythonRealErrorsSurvive(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	m := newTestManager(t, 10*time.Second)

	_, stderr, err := m.Send(context.Background(), "python", "python", "raise ValueError('boom')", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(stderr, "ValueError") {
		t.Errorf("stderr = %q, want the traceback", stderr)
	}
}
