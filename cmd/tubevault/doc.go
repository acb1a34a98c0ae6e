// Package main hosts the tubevault CLI entrypoint and command graph.
//
// The Cobra-based command tree wraps the operation managers in internal/ops:
// each long-running command opens the library store, builds one operation,
// and drives it through the shared manager loop with signal-driven
// cancellation. It centralizes configuration resolution, logger setup, and
// container lookup so subcommands can focus on flag surfaces.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
