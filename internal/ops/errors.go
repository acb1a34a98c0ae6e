package ops

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying operation failures. Per-unit failures are
// tallied and the run continues; only ErrDestinationConflict and an
// un-spawnable update subprocess abort a whole run.
var (
	ErrSpawnFailed         = errors.New("spawn failed")
	ErrNonZeroExit         = errors.New("non-zero exit")
	ErrTimeout             = errors.New("timeout")
	ErrFileMissing         = errors.New("file missing")
	ErrDestinationConflict = errors.New("destination conflict")
	// ErrMalformedStreamData marks a queue item missing its stream tag, an
	// internal invariant violation that is logged and skipped.
	ErrMalformedStreamData = errors.New("malformed stream data")
)

// Wrap builds an error message that includes operation context while
// tagging it with the provided marker for later classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, operation, detail string, err error) error {
	message := buildDetail(operation, detail)
	if marker == nil {
		marker = ErrNonZeroExit
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, message, err)
	}
	return fmt.Errorf("%w: %s", marker, message)
}

type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks an error as run-aborting regardless of its sentinel. The
// update manager uses it for un-spawnable subprocesses.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether an error must abort the whole run rather than be
// tallied against one unit.
func IsFatal(err error) bool {
	if errors.Is(err, ErrDestinationConflict) {
		return true
	}
	var fatal *fatalError
	return errors.As(err, &fatal)
}

func buildDetail(operation, detail string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if detail = strings.TrimSpace(detail); detail != "" {
		parts = append(parts, detail)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
