package procio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// maxLineSize bounds one scanned output line. FFmpeg progress lines can run
// long but never near this.
const maxLineSize = 1024 * 1024

// Child supervises one spawned subprocess. Its stdout and stderr are
// drained by two goroutines feeding a single shared channel; the channel is
// closed once both pipes reach EOF.
type Child struct {
	cmd      *exec.Cmd
	messages chan Message

	// sendMu serializes stamping and sending so channel order always
	// matches Seq order, even across the two reader goroutines.
	sendMu sync.Mutex
	seq    uint64

	readers sync.WaitGroup

	killOnce sync.Once
	waitOnce sync.Once
	waitErr  error

	doneMu sync.Mutex
	done   bool
}

// Start spawns a subprocess with its output wired for draining. On
// POSIX-like systems the child becomes a process-group leader so Kill can
// terminate shell-invoked helper chains, not just the immediate child.
func Start(ctx context.Context, name string, args []string, dir string) (*Child, error) {
	if name == "" {
		return nil, fmt.Errorf("spawn: binary name required")
	}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		killProcessGroup(cmd.Process.Pid, cmd.Process)
		return nil
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", name, err)
	}

	child := &Child{
		cmd:      cmd,
		messages: make(chan Message, 64),
	}
	child.readers.Add(2)
	go child.drain(stdout, StreamStdout)
	go child.drain(stderr, StreamStderr)
	go func() {
		child.readers.Wait()
		close(child.messages)
	}()

	return child, nil
}

// drain reads lines from one pipe until EOF. A closed or failing pipe ends
// the reader silently; that is the end-of-stream signal, not an error.
func (c *Child) drain(pipe io.Reader, stream Stream) {
	defer c.readers.Done()

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		c.emit(stream, scanner.Text())
	}
}

// emit stamps one line with the arrival counter and sends it. Stamp and
// send happen under one lock: a message stamped first is also sent first.
func (c *Child) emit(stream Stream, text string) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.seq++
	c.messages <- Message{Seq: c.seq, Stream: stream, Text: text}
}

// Messages returns the merged output channel. It is closed after both
// streams reach EOF.
func (c *Child) Messages() <-chan Message {
	return c.messages
}

// Alive reports whether the subprocess is still running.
func (c *Child) Alive() bool {
	c.doneMu.Lock()
	defer c.doneMu.Unlock()
	return !c.done
}

// Wait blocks until the subprocess exits and returns its exit code. Safe to
// call more than once.
func (c *Child) Wait() (int, error) {
	c.waitOnce.Do(func() {
		c.readers.Wait()
		c.waitErr = c.cmd.Wait()
		c.doneMu.Lock()
		c.done = true
		c.doneMu.Unlock()
	})
	if c.waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(c.waitErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, c.waitErr
}

// Kill terminates the subprocess, taking down its whole process group where
// the platform supports one. Idempotent.
func (c *Child) Kill() {
	c.killOnce.Do(func() {
		if c.cmd.Process == nil {
			return
		}
		killProcessGroup(c.cmd.Process.Pid, c.cmd.Process)
	})
}
