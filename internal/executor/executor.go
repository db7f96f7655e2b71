// Package executor runs one-shot chunk executions. It resolves the chunk's
// declared command, picks an execution strategy (temp file, stdin feed,
// matplotlib image capture, or LaTeX compilation), and delegates the actual
// spawn to the proc package. Every failure mode is folded into the returned
// proc.Result; the executor never panics or returns an error to the caller.
package executor

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/calegray/codedown/internal/model"
	"github.com/calegray/codedown/internal/proc"
)

// DisabledMessage is the fixed user-facing message returned when execution
// is globally disabled. No process is spawned in that case.
const DisabledMessage = "code execution is disabled"

// noCommandMessage is returned when a chunk resolves to no usable command.
const noCommandMessage = "chunk declares no executable command"

// inputFilePlaceholder is substituted with the temp-file path inside
// declared args.
const inputFilePlaceholder = "$input_file"

// runFunc is the spawn primitive. Swappable so tests can observe dispatch
// without touching the operating system.
type runFunc func(ctx context.Context, spec proc.Spec) proc.Result

// Config carries the execution policy consumed by the executor.
type Config struct {
	// Enabled is the global execution gate.
	Enabled bool
	// Timeout is the per-execution wall-clock budget.
	Timeout time.Duration
	// DefaultShell overrides the command for shell-family languages when
	// cmd=true, e.g. /bin/zsh.
	DefaultShell string
	// LaTeXEngine is the typesetting engine used when a chunk does not
	// name one (default pdflatex).
	LaTeXEngine string
}

// Executor chooses and runs a one-shot execution strategy per chunk.
type Executor struct {
	cfg    Config
	logger *slog.Logger
	run    runFunc
}

// New creates an Executor with the given policy.
func New(cfg Config, logger *slog.Logger) *Executor {
	if cfg.LaTeXEngine == "" {
		cfg.LaTeXEngine = "pdflatex"
	}
	return &Executor{
		cfg:    cfg,
		logger: logger,
		run:    proc.Run,
	}
}

// Enabled reports whether the global execution gate is open. Callers with
// their own spawn paths (interpreter sessions) must honor it too.
func (e *Executor) Enabled() bool {
	return e.cfg.Enabled
}

// Execute runs code for chunk in workDir and returns the captured result.
// code is the continuation-combined source, which may be longer than the
// chunk's own body. logLine, when non-nil, receives streamed output lines.
func (e *Executor) Execute(ctx context.Context, chunk *model.Chunk, code, workDir string, logLine func(string)) proc.Result {
	if !e.cfg.Enabled {
		return proc.Result{Stderr: DisabledMessage, ExitCode: 1}
	}

	command, ok := e.resolveCommand(chunk)
	if !ok {
		return proc.Result{Stderr: noCommandMessage, ExitCode: 1}
	}

	switch {
	case chunk.Attrs.PlotCapture && isPythonFamily(chunk.Language):
		return e.runPlotCapture(ctx, command, chunk, code, workDir, logLine)
	case isTypesetLanguage(chunk.Language):
		return e.runTypeset(ctx, chunk, code, workDir)
	case chunk.Attrs.Stdin:
		return e.run(ctx, proc.Spec{
			Command: command,
			Args:    chunk.Attrs.Args,
			Dir:     workDir,
			Stdin:   []byte(code),
			Timeout: e.cfg.Timeout,
			LogLine: logLine,
		})
	default:
		return e.runTempFile(ctx, command, chunk.Attrs.Args, code, extensionFor(chunk.Language), workDir, logLine)
	}
}

// resolveCommand maps the chunk's cmd attribute to a concrete command name.
func (e *Executor) resolveCommand(chunk *model.Chunk) (string, bool) {
	switch chunk.Attrs.Cmd.Kind {
	case model.CommandExplicit:
		return chunk.Attrs.Cmd.Name, true
	case model.CommandUseLanguage:
		if e.cfg.DefaultShell != "" && isShellLanguage(chunk.Language) {
			return e.cfg.DefaultShell, true
		}
		if chunk.Language == "" {
			return "", false
		}
		return chunk.Language, true
	default:
		return "", false
	}
}

// runTempFile writes code to a uniquely named temp file and spawns the
// command against it. The file is removed on every exit path.
func (e *Executor) runTempFile(ctx context.Context, command string, args []string, code, ext, workDir string, logLine func(string)) proc.Result {
	f, err := os.CreateTemp("", "codedown-*"+ext)
	if err != nil {
		return proc.Result{Stderr: "write temp file: " + err.Error(), ExitCode: 1}
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return proc.Result{Stderr: "write temp file: " + err.Error(), ExitCode: 1}
	}
	if err := f.Close(); err != nil {
		return proc.Result{Stderr: "close temp file: " + err.Error(), ExitCode: 1}
	}

	return e.run(ctx, proc.Spec{
		Command: command,
		Args:    substituteInputFile(args, path),
		Dir:     workDir,
		Timeout: e.cfg.Timeout,
		LogLine: logLine,
	})
}

// substituteInputFile replaces the $input_file placeholder inside args, or
// appends path as the final argument when no placeholder appears.
func substituteInputFile(args []string, path string) []string {
	found := false
	out := make([]string, len(args))
	for i, a := range args {
		if strings.Contains(a, inputFilePlaceholder) {
			found = true
			out[i] = strings.ReplaceAll(a, inputFilePlaceholder, path)
		} else {
			out[i] = a
		}
	}
	if !found {
		out = append(out, path)
	}
	return out
}
