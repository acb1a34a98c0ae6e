// Package logging builds the shared slog logger for the CLI and the
// operation managers: console output (colored on a terminal) or JSON,
// optional file duplication into the configured log directory, and the
// attr helpers the rest of the repository logs with.
package logging
