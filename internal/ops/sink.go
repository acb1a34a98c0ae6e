package ops

import (
	"log/slog"

	"tubevault/internal/logging"
)

// Sink is the UI progress boundary. The managers call it with well-formed,
// complete updates from their worker goroutine; marshaling onto a UI event
// loop is the implementation's concern, not the callers'.
type Sink interface {
	Info(containerID int64, text string)
	Error(containerID int64, text string)
	Command(containerID int64, text string)
	Progress(label string, done, total int)
}

// LogSink forwards progress to a slog logger. The CLI uses it as its only
// sink; a GUI would supply its own.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink wraps a logger as a Sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Info(containerID int64, text string) {
	s.logger.Info(text, logging.Int64(logging.FieldContainer, containerID))
}

func (s *LogSink) Error(containerID int64, text string) {
	s.logger.Error(text, logging.Int64(logging.FieldContainer, containerID))
}

func (s *LogSink) Command(containerID int64, text string) {
	s.logger.Debug(text, logging.Int64(logging.FieldContainer, containerID), logging.String("kind", "command"))
}

func (s *LogSink) Progress(label string, done, total int) {
	s.logger.Info(label, logging.Int("done", done), logging.Int("total", total))
}

var _ Sink = (*LogSink)(nil)
