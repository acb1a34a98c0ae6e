// Package preflight provides readiness checks for the filesystem paths and
// external binaries tubevault depends on.
//
// The checks run in two contexts:
//   - The download manager calls CheckFreeSpace before starting a run, so
//     a full disk fails fast instead of mid-download.
//   - The CLI "tubevault status" command renders RunAll and CheckSystemDeps
//     to display overall health.
package preflight
