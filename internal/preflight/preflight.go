package preflight

import (
	"tubevault/internal/config"
	"tubevault/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for the given config: directory
// access for each configured path plus free space under the library root.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("Database directory", cfg.Paths.DatabaseDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Downloader.MinFreeGiB > 0 {
		results = append(results, CheckFreeSpace(cfg.Paths.LibraryDir, cfg.Downloader.MinFreeGiB))
	}
	return results
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the status command and the download manager use this so the
// requirements list stays in one place.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}
