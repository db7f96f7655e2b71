// Package proc is the operating-system boundary: it spawns external
// commands, accumulates their output streams incrementally, and enforces
// hard wall-clock timeouts. Spawn failures and timeouts are folded into the
// returned Result rather than surfaced as errors, so callers always get
// whatever output was captured before things went wrong.
package proc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// scanBufferSize bounds a single output line fed to the LogLine callback.
const scanBufferSize = 1 << 20

// Spec describes a single one-shot command invocation.
type Spec struct {
	Command string
	Args    []string
	Dir     string
	// Stdin, when non-nil, is written to the process's input stream, which
	// is then closed immediately.
	Stdin []byte
	// Timeout is the hard wall-clock budget. Zero means no timeout.
	Timeout time.Duration
	// LogLine, when set, receives each output line (stdout and stderr) as
	// it streams in. It is called from both stream readers and must be
	// safe for concurrent use.
	LogLine func(line string)
}

// Result is the outcome of a one-shot invocation. ExitCode is non-zero for
// spawn failures and timeouts as well as ordinary process failures.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Run spawns the command described by spec and blocks until it exits, the
// timeout fires, or ctx is cancelled. It never returns an error: spawn
// failures append the failure message to stderr with a non-zero exit code,
// and a timeout force-terminates the process, preserves partial output, and
// appends a timeout marker to stderr.
func Run(ctx context.Context, spec Spec) Result {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	if spec.Stdin != nil {
		cmd.Stdin = bytes.NewReader(spec.Stdin)
	}

	var stdout, stderr bytes.Buffer

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Stderr: fmt.Sprintf("stdout pipe: %v", err), ExitCode: 1}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{Stderr: fmt.Sprintf("stderr pipe: %v", err), ExitCode: 1}
	}

	if err := cmd.Start(); err != nil {
		return Result{Stderr: err.Error(), ExitCode: 1}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		capture(stdoutPipe, &stdout, spec.LogLine)
	}()
	go func() {
		defer wg.Done()
		capture(stderrPipe, &stderr, spec.LogLine)
	}()
	wg.Wait()

	waitErr := cmd.Wait()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = 1
			res.Stderr = appendLine(res.Stderr, waitErr.Error())
		}
		if res.ExitCode == 0 {
			res.ExitCode = 1
		}
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.Stderr = appendLine(res.Stderr, fmt.Sprintf("process timed out after %s", spec.Timeout))
		if res.ExitCode == 0 {
			res.ExitCode = 124
		}
	}

	return res
}

// capture accumulates r into buf byte-for-byte. When logLine is set, whole
// lines are additionally streamed to it as they arrive.
func capture(r io.Reader, buf *bytes.Buffer, logLine func(string)) {
	if logLine == nil {
		_, _ = io.Copy(buf, r)
		return
	}

	scanner := bufio.NewScanner(io.TeeReader(r, buf))
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)
	for scanner.Scan() {
		logLine(scanner.Text())
	}
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	if s[len(s)-1] != '\n' {
		return s + "\n" + line
	}
	return s + line
}
