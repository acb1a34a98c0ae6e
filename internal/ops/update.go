package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"tubevault/internal/logging"
	"tubevault/internal/procio"
)

// benignPatterns match subprocess warnings that do not indicate an actual
// failure: pip deprecation notices, dependency-resolver grumbling, and
// already-up-to-date reports. Lines matching one are excluded from the
// fail tally.
var benignPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^DEPRECATION:`),
	regexp.MustCompile(`(?i)dependency (?:resolver|conflicts|cycle)`),
	regexp.MustCompile(`(?i)requirement already satisfied`),
	regexp.MustCompile(`(?i)already up[ -]to[ -]date`),
	regexp.MustCompile(`(?i)you (?:are using|should consider upgrading) pip`),
	regexp.MustCompile(`(?i)^WARNING: You are using pip version`),
}

// versionPatterns extract the installed version from installer output,
// tried in order. The first line across the whole run that matches any of
// them wins.
var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^successfully installed\b.*?-([0-9][0-9a-z.]*)\b`),
	regexp.MustCompile(`(?i)^requirement already (?:satisfied|up-to-date)\b.*\(([0-9][0-9a-z.]*)\)`),
	regexp.MustCompile(`\b([0-9]{4}\.[0-9]{1,2}\.[0-9]{1,2})\b`),
}

// UpdateOperation spawns a single installer subprocess to upgrade the
// downloader, filtering benign warnings and opportunistically extracting
// the installed version from its output.
type UpdateOperation struct {
	pipBinary string
	pkg       string
	sink      Sink
	logger    *slog.Logger

	done    bool
	version string
	guard   childGuard
}

// NewUpdate builds an update operation for the named package.
func NewUpdate(pipBinary, pkg string, sink Sink, logger *slog.Logger) *UpdateOperation {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	if pipBinary == "" {
		pipBinary = "pip3"
	}
	if pkg == "" {
		pkg = "yt-dlp"
	}
	return &UpdateOperation{pipBinary: pipBinary, pkg: pkg, sink: sink, logger: logger}
}

func (u *UpdateOperation) Name() string { return "update" }

// Version returns the version string extracted from the run, if any.
func (u *UpdateOperation) Version() string { return u.version }

func (u *UpdateOperation) Begin(context.Context, *Run) (int, error) {
	return 1, nil
}

func (u *UpdateOperation) Step(ctx context.Context, run *Run) (bool, error) {
	if u.done {
		return true, nil
	}
	u.done = true

	argv := []string{u.pipBinary, "install", "--upgrade", u.pkg}
	code, lastStderr, err := u.guard.run(ctx, u.logger, u.sink, 0, argv, "", func(msg procio.Message) {
		u.observe(run, msg)
	})
	if err != nil {
		// An installer that cannot even be spawned halts the run.
		if errors.Is(err, ErrSpawnFailed) {
			return false, Fatal(err)
		}
		run.Tally.Fail++
		return false, err
	}
	if code != 0 {
		run.Tally.Fail++
		return false, Wrap(ErrNonZeroExit, "update", fmt.Sprintf("exit %d: %s", code, lastStderr), nil)
	}

	run.Tally.Success++
	if u.version != "" {
		u.sink.Info(0, fmt.Sprintf("%s is at version %s", u.pkg, u.version))
	} else {
		u.sink.Info(0, u.pkg+" update finished")
	}
	return false, nil
}

func (u *UpdateOperation) Close() {
	u.guard.kill()
}

func (u *UpdateOperation) observe(run *Run, msg procio.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if u.version == "" {
		if version := extractVersion(text); version != "" {
			u.version = version
		}
	}

	switch msg.Stream {
	case procio.StreamStdout:
		u.sink.Info(0, text)
	case procio.StreamStderr:
		if isBenignWarning(text) {
			u.logger.Debug("benign installer warning", logging.String("text", text))
			return
		}
		run.Tally.Fail++
		u.sink.Error(0, text)
	}
}

func isBenignWarning(line string) bool {
	for _, pattern := range benignPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

func extractVersion(line string) string {
	for _, pattern := range versionPatterns {
		if match := pattern.FindStringSubmatch(line); match != nil {
			return match[1]
		}
	}
	return ""
}
