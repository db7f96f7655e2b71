package proc

import (
	"io"
	"os/exec"
	"sync"
)

// streamChunkSize is the read size for interactive output streams.
const streamChunkSize = 4096

// streamBufferDepth is the channel buffer for interactive output chunks.
const streamBufferDepth = 64

// Interactive is a long-lived subprocess with a writable input stream and
// channel-delivered output streams. It is the primitive underneath
// interpreter sessions: the caller owns feeding input and watching the
// output channels; Interactive owns the process handle.
type Interactive struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	stdout chan string
	stderr chan string

	done      chan struct{}
	killed    chan struct{}
	readersWG sync.WaitGroup
	exitOnce  sync.Once
	killOnce  sync.Once
	onExit    func()
}

// StartInteractive spawns command with args in dir and begins streaming its
// output. onExit, if non-nil, is invoked exactly once when the process
// terminates for any reason (including Kill).
func StartInteractive(command string, args []string, dir string, onExit func()) (*Interactive, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Interactive{
		cmd:    cmd,
		stdin:  stdin,
		stdout: make(chan string, streamBufferDepth),
		stderr: make(chan string, streamBufferDepth),
		done:   make(chan struct{}),
		killed: make(chan struct{}),
		onExit: onExit,
	}

	p.readersWG.Add(2)
	go p.stream(stdoutPipe, p.stdout)
	go p.stream(stderrPipe, p.stderr)
	go p.reap()

	return p, nil
}

// Write sends data to the process's input stream.
func (p *Interactive) Write(data []byte) error {
	_, err := p.stdin.Write(data)
	return err
}

// Stdout returns the channel of stdout chunks. It is closed on process exit.
func (p *Interactive) Stdout() <-chan string { return p.stdout }

// Stderr returns the channel of stderr chunks. It is closed on process exit.
func (p *Interactive) Stderr() <-chan string { return p.stderr }

// Done returns a channel closed when the process has exited.
func (p *Interactive) Done() <-chan struct{} { return p.done }

// Alive reports whether the process has not yet exited.
func (p *Interactive) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Kill force-terminates the process. The exit observer still fires. The
// readers are released first so they cannot sit blocked on a full channel
// nobody will drain again.
func (p *Interactive) Kill() {
	p.killOnce.Do(func() { close(p.killed) })
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// stream reads r in chunks and delivers them on ch, closing it at EOF.
// Delivery blocks when the channel buffer is full: the pipe then provides
// backpressure on the process instead of output being lost, and the next
// send's drain unblocks it. Kill releases a blocked delivery.
func (p *Interactive) stream(r io.Reader, ch chan string) {
	defer p.readersWG.Done()
	defer close(ch)
	buf := make([]byte, streamChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case ch <- string(buf[:n]):
			case <-p.killed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// reap waits for the output streams to finish, reaps the process, closes
// done, and fires the exit observer. Waiting on the readers first keeps
// cmd.Wait from closing the pipes while they are still being drained.
func (p *Interactive) reap() {
	p.readersWG.Wait()
	_ = p.cmd.Wait()
	p.exitOnce.Do(func() {
		close(p.done)
		if p.onExit != nil {
			p.onExit()
		}
	})
}
