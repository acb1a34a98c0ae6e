package ops

import (
	"path/filepath"
	"testing"

	"tubevault/internal/testsupport"
)

func TestBenignWarningFiltering(t *testing.T) {
	benign := []string{
		"DEPRECATION: Python 3.8 support is ending",
		"WARNING: pip's dependency resolver does not currently take into account all the packages",
		"Requirement already satisfied: yt-dlp in ./venv (2026.1.1)",
		"yt-dlp is already up-to-date",
	}
	for _, line := range benign {
		if !isBenignWarning(line) {
			t.Errorf("line %q should be benign", line)
		}
	}

	hostile := []string{
		"ERROR: Could not install packages due to an OSError",
		"error: externally-managed-environment",
	}
	for _, line := range hostile {
		if isBenignWarning(line) {
			t.Errorf("line %q should not be benign", line)
		}
	}
}

func TestVersionExtractionFirstMatchWins(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"Successfully installed yt-dlp-2026.8.30", "2026.8.30"},
		{"Requirement already satisfied: yt-dlp in ./env (2026.1.6)", "2026.1.6"},
		{"yt-dlp 2025.12.30 is available", "2025.12.30"},
		{"collecting wheel", ""},
	}
	for _, tc := range cases {
		if got := extractVersion(tc.line); got != tc.want {
			t.Errorf("extractVersion(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestUpdateRunExtractsVersionAndFiltersWarnings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pip := testsupport.StubScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin"), "fake-pip",
		`echo "DEPRECATION: legacy resolver" >&2
echo "Collecting yt-dlp"
echo "Successfully installed yt-dlp-2026.8.30"
exit 0
`)

	op := NewUpdate(pip, "yt-dlp", nil, nil)
	run, state := runOperation(t, op)

	if state != StateCompleted {
		t.Fatalf("state = %v, want completed", state)
	}
	if run.Tally.Success != 1 || run.Tally.Fail != 0 {
		t.Fatalf("tally = %+v, want success=1 fail=0", run.Tally)
	}
	if op.Version() != "2026.8.30" {
		t.Fatalf("version = %q, want 2026.8.30", op.Version())
	}
}

func TestUpdateNonZeroExitIsTallied(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pip := testsupport.StubScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin"), "fake-pip",
		`echo "ERROR: no matching distribution" >&2
exit 1
`)

	op := NewUpdate(pip, "yt-dlp", nil, nil)
	run, state := runOperation(t, op)

	if state != StateCompleted {
		t.Fatalf("state = %v, want completed (failure is tallied, not fatal)", state)
	}
	if run.Tally.Fail == 0 {
		t.Fatal("fail counter untouched after non-zero exit")
	}
}

func TestUpdateUnspawnableIsFatal(t *testing.T) {
	op := NewUpdate(filepath.Join(t.TempDir(), "missing-pip"), "yt-dlp", nil, nil)
	_, state := runOperation(t, op)
	if state != StateFatal {
		t.Fatalf("state = %v, want fatal for un-spawnable installer", state)
	}
}
