package ops

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"tubevault/internal/logging"
	"tubevault/internal/procio"
)

// childGuard tracks the subprocess a manager currently has in flight so
// Close can kill it when the loop exits mid-unit.
type childGuard struct {
	mu    sync.Mutex
	child *procio.Child
}

func (g *childGuard) set(child *procio.Child) {
	g.mu.Lock()
	g.child = child
	g.mu.Unlock()
}

func (g *childGuard) kill() {
	g.mu.Lock()
	child := g.child
	g.child = nil
	g.mu.Unlock()
	if child != nil {
		child.Kill()
	}
}

// run spawns argv, drains its merged output, and waits for exit. Each line
// is forwarded to observe (when non-nil) in arrival order; the last
// non-empty stderr line is returned for failure messages. A message with an
// invalid stream tag is an internal invariant violation: logged, skipped.
func (g *childGuard) run(ctx context.Context, logger *slog.Logger, sink Sink, containerID int64, argv []string, dir string, observe func(procio.Message)) (int, string, error) {
	if len(argv) == 0 {
		return -1, "", Wrap(ErrSpawnFailed, "", "empty argument vector", nil)
	}
	sink.Command(containerID, strings.Join(argv, " "))

	child, err := procio.Start(ctx, argv[0], argv[1:], dir)
	if err != nil {
		return -1, "", Wrap(ErrSpawnFailed, "", argv[0], err)
	}
	g.set(child)
	defer g.set(nil)

	lastStderr := ""
	for msg := range child.Messages() {
		if !msg.Stream.Valid() {
			logger.Warn("dropping malformed stream message",
				logging.Error(ErrMalformedStreamData),
				logging.String("text", msg.Text),
			)
			continue
		}
		if msg.Stream == procio.StreamStderr && strings.TrimSpace(msg.Text) != "" {
			lastStderr = msg.Text
		}
		if observe != nil {
			observe(msg)
		}
	}

	code, waitErr := child.Wait()
	if waitErr != nil {
		return -1, lastStderr, Wrap(ErrSpawnFailed, "", argv[0], waitErr)
	}
	return code, lastStderr, nil
}
