package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calegray/codedown/internal/engine"
	"github.com/calegray/codedown/internal/model"
	"github.com/calegray/codedown/internal/proc"
	"github.com/calegray/codedown/internal/store"
)

// stubExecutor returns a canned result without spawning anything.
type stubExecutor struct {
	result proc.Result
}

func (s *stubExecutor) Execute(_ context.Context, _ *model.Chunk, _, _ string, logLine func(string)) proc.Result {
	if logLine != nil && s.result.Stdout != "" {
		logLine(s.result.Stdout)
	}
	return s.result
}

func (s *stubExecutor) Enabled() bool { return true }

type stubSessions struct{}

func (stubSessions) Send(_ context.Context, _, _, _, _ string) (string, string, error) {
	return "", "", nil
}

func (stubSessions) Dispose() {}

func newTestServerWith(t *testing.T, exec engine.Executor) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := engine.NewRegistry(func(docID string) *engine.Manager {
		return engine.NewManager(docID, exec, stubSessions{}, st, logger)
	})
	t.Cleanup(reg.ReleaseAll)

	return NewServer(":0", st, reg, logger)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWith(t, &stubExecutor{result: proc.Result{Stdout: "ok\n"}})
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	if err != nil {
		t.Fatalf("GET /test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestPanicRecovery(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/panic")
	if err != nil {
		t.Fatalf("GET /panic: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)
	srv.Router().Get("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest("OPTIONS", ts.URL+"/test", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS /test: %v", err)
	}
	defer resp.Body.Close()

	if v := resp.Header.Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "*")
	}
}
