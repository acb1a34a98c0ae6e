package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tubevault/internal/config"
	"tubevault/internal/ops"
)

// consoleSink prints manager updates to the command's output streams. The
// manager calls it from its worker goroutine, so writes are serialized here.
type consoleSink struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

func newConsoleSink(cmd *cobra.Command) *consoleSink {
	return &consoleSink{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
}

func (s *consoleSink) Info(containerID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, text)
}

func (s *consoleSink) Error(containerID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.errOut, "error: "+text)
}

func (s *consoleSink) Command(containerID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, "$ "+text)
}

func (s *consoleSink) Progress(label string, done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s %d/%d\n", label, done, total)
}

var _ ops.Sink = (*consoleSink)(nil)

func reconcileInterval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Operations.ReconcileIntervalMS) * time.Millisecond
}

func subprocessInterval(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Operations.SubprocessIntervalMS) * time.Millisecond
}

// runOperation drives op to completion under signal-driven cancellation.
// The first interrupt cancels the run and lets the manager kill any
// in-flight subprocess; releasing the signal handler after that means a
// second interrupt terminates the process immediately.
func runOperation(ctx *commandContext, cmd *cobra.Command, sink ops.Sink, op ops.Operation, interval time.Duration) error {
	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-sigCtx.Done()
		stop()
	}()

	manager := ops.NewManager(op, interval, sink, ctx.ensureLogger())
	if err := manager.Start(sigCtx); err != nil {
		return err
	}
	manager.Wait()

	run := manager.CurrentRun()
	switch manager.State() {
	case ops.StateCancelled:
		return context.Canceled
	case ops.StateFatal:
		return fmt.Errorf("%s aborted (%s)", run.Operation, run.Tally.Summary())
	}
	return nil
}
