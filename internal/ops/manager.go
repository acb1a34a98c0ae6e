package ops

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tubevault/internal/logging"
)

// State is the lifecycle of an operation run.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFatal:
		return "fatal"
	}
	return "unknown"
}

// Run is the transient record of one operation: timing, progress counters,
// and tallies. It is created when the run starts and discarded once the
// manager reports completion.
type Run struct {
	ID        string
	Operation string
	StartTime time.Time
	StopTime  time.Time
	JobCount  int
	JobTotal  int
	Tally     Tally
}

// Operation is one unit-at-a-time worklist. The manager owns pacing,
// cancellation, progress reporting, and terminal-state bookkeeping;
// implementations own the domain work.
type Operation interface {
	// Name labels the operation in logs and progress updates.
	Name() string
	// Begin prepares the worklist and returns the number of units. An
	// error here is fatal: the run aborts before processing anything.
	Begin(ctx context.Context, run *Run) (total int, err error)
	// Step performs exactly one unit, or returns done=true without doing
	// work once the worklist is exhausted. A non-fatal error is tallied
	// by the implementation and the loop continues; a fatal error
	// (IsFatal) aborts the remaining units.
	Step(ctx context.Context, run *Run) (done bool, err error)
	// Close releases resources after the loop exits, including killing
	// any in-flight subprocess. Called exactly once per run.
	Close()
}

// Manager drives one Operation on a background goroutine: the shared shape
// of the download, process, refresh, tidy, and update supervisors.
type Manager struct {
	op       Operation
	interval time.Duration
	sink     Sink
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	run    *Run
}

// NewManager wraps an operation with the shared run loop. interval paces
// iterations so the loop never busy-waits.
func NewManager(op Operation, interval time.Duration, sink Sink, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Manager{op: op, interval: interval, sink: sink, logger: logger}
}

// Start launches the run loop. It returns immediately; the run proceeds on
// its own goroutine until completion, cancellation, or a fatal error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateRunning {
		return errors.New("operation already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.state = StateRunning

	// The loop owns this record; readers only ever see the published
	// copy, so the worker can mutate counters without holding m.mu.
	run := &Run{
		ID:        uuid.NewString(),
		Operation: m.op.Name(),
		StartTime: time.Now().UTC(),
	}
	snap := *run
	m.run = &snap

	go m.loop(runCtx, run, m.done)
	return nil
}

// Stop requests cancellation and waits for the loop to reach a terminal
// state. Clearing the flag is observed within one pacing interval; any
// in-flight subprocess is killed on the way out.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Wait blocks until the current run reaches a terminal state.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// State reports the manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentRun returns a snapshot of the active or most recent run. The
// snapshot is refreshed at unit boundaries, never mid-unit.
func (m *Manager) CurrentRun() Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.run == nil {
		return Run{}
	}
	return *m.run
}

// publish replaces the readable snapshot with a copy of the worker-owned
// run record.
func (m *Manager) publish(run *Run) {
	snap := *run
	m.mu.Lock()
	m.run = &snap
	m.mu.Unlock()
}

func (m *Manager) loop(ctx context.Context, run *Run, done chan struct{}) {
	defer close(done)
	defer m.op.Close()

	logger := m.logger.With(
		logging.String(logging.FieldOperation, run.Operation),
		logging.String(logging.FieldRunID, run.ID),
	)

	final := StateCompleted
	total, err := m.op.Begin(ctx, run)
	if err != nil {
		logger.Error("operation failed to start", logging.Error(err))
		m.sink.Error(0, run.Operation+" failed to start: "+err.Error())
		m.finish(run, StateFatal, logger)
		return
	}
	run.JobTotal = total
	m.publish(run)
	logger.Info("operation started", logging.Int("units", total))
	m.sink.Progress(run.Operation, 0, total)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			final = StateCancelled
			break
		}

		stepDone, err := m.op.Step(ctx, run)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				final = StateCancelled
				break
			}
			if IsFatal(err) {
				logger.Error("operation aborted", logging.Error(err))
				m.sink.Error(0, run.Operation+" aborted: "+err.Error())
				final = StateFatal
				break
			}
			// Per-unit failures are already tallied by the operation.
			logger.Warn("unit failed", logging.Error(err))
		}
		if stepDone {
			break
		}
		run.JobCount++
		m.publish(run)
		m.sink.Progress(run.Operation, run.JobCount, run.JobTotal)

		select {
		case <-ctx.Done():
			final = StateCancelled
		case <-ticker.C:
		}
		if final == StateCancelled {
			break
		}
	}

	m.finish(run, final, logger)
}

// finish records terminal state and always emits a termination message,
// even when every unit failed.
func (m *Manager) finish(run *Run, state State, logger *slog.Logger) {
	run.StopTime = time.Now().UTC()

	snap := *run
	m.mu.Lock()
	m.state = state
	m.run = &snap
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	summary := run.Operation + " " + state.String() + ": " + run.Tally.Summary()
	switch state {
	case StateFatal:
		m.sink.Error(0, summary)
	default:
		m.sink.Info(0, summary)
	}
	logger.Info("operation finished",
		logging.String("state", state.String()),
		logging.Int("jobs", run.JobCount),
		logging.Duration("elapsed", run.StopTime.Sub(run.StartTime)),
	)
}
