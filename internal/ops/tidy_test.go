package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tubevault/internal/mediakind"
	"tubevault/internal/testsupport"
)

func TestTidySharedFileProtection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)
	ctx := context.Background()

	master := testsupport.NewChannel(t, store, "Master")
	slave := testsupport.NewChannel(t, store, "Slave")
	if err := store.SetMaster(ctx, slave.ID, master.ID); err != nil {
		t.Fatal(err)
	}
	testsupport.NewVideo(t, store, master.ID, "shared", ".mp4", true)
	testsupport.NewVideo(t, store, slave.ID, "shared", ".mp4", true)
	testsupport.NewVideo(t, store, master.ID, "loose", ".mp4", true)

	dir := filepath.Join(cfg.Paths.LibraryDir, "Master")
	sharedDesc := filepath.Join(dir, "shared"+mediakind.DescriptionSuffix)
	looseDesc := filepath.Join(dir, "loose"+mediakind.DescriptionSuffix)
	testsupport.WriteFile(t, sharedDesc, 8)
	testsupport.WriteFile(t, looseDesc, 8)

	choices := TidyChoices{DeleteDescriptions: true}
	op := NewTidy(store, mediakind.Default(), cfg.Paths.LibraryDir, "ffmpeg", 0, choices, master.ID, nil, nil)
	run, state := runOperation(t, op)

	if state != StateCompleted {
		t.Fatalf("state = %v, want completed", state)
	}
	if _, err := os.Stat(sharedDesc); err != nil {
		t.Fatalf("shared description deleted despite slave claim: %v", err)
	}
	if _, err := os.Stat(looseDesc); !os.IsNotExist(err) {
		t.Fatalf("loose description survived: %v", err)
	}
	if run.Tally.DeletedDescription != 1 {
		t.Fatalf("deleted descriptions = %d, want 1", run.Tally.DeletedDescription)
	}
}

func TestTidyDeleteVideosSweepsSiblingsAndFragments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)
	ctx := context.Background()

	channel := testsupport.NewChannel(t, store, "Chan")
	video := testsupport.NewVideo(t, store, channel.ID, "clip", ".mp4", true)

	dir := filepath.Join(cfg.Paths.LibraryDir, "Chan")
	files := []string{"clip.mp4", "clip.webm", "clip.f137.mp4", "clip.f251.m4a", "unrelated.mp4"}
	for _, name := range files {
		testsupport.WriteFile(t, filepath.Join(dir, name), 8)
	}

	choices := TidyChoices{DeleteVideos: true, DeleteSiblings: true}
	op := NewTidy(store, mediakind.Default(), cfg.Paths.LibraryDir, "ffmpeg", 0, choices, channel.ID, nil, nil)
	run, state := runOperation(t, op)

	if state != StateCompleted {
		t.Fatalf("state = %v, want completed", state)
	}
	if run.Tally.DeletedVideos != 1 {
		t.Fatalf("deleted videos = %d, want 1", run.Tally.DeletedVideos)
	}
	if run.Tally.DeletedSiblings != 3 {
		t.Fatalf("deleted siblings = %d, want 3", run.Tally.DeletedSiblings)
	}
	if _, err := os.Stat(filepath.Join(dir, "unrelated.mp4")); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
	if entity, err := store.GetByID(ctx, video.ID); err != nil || entity.Downloaded {
		t.Fatalf("entity = %+v (err %v), want not downloaded", entity, err)
	}
}

func TestTidyExistenceCheckNeverCreatesEntities(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)
	ctx := context.Background()

	channel := testsupport.NewChannel(t, store, "Chan")
	missing := testsupport.NewVideo(t, store, channel.ID, "missing", ".mp4", true)

	dir := filepath.Join(cfg.Paths.LibraryDir, "Chan")
	testsupport.WriteFile(t, filepath.Join(dir, "unclaimed.mp4"), 8)

	choices := TidyChoices{CheckExist: true}
	op := NewTidy(store, mediakind.Default(), cfg.Paths.LibraryDir, "ffmpeg", 0, choices, channel.ID, nil, nil)
	run, state := runOperation(t, op)

	if state != StateCompleted {
		t.Fatalf("state = %v, want completed", state)
	}
	if run.Tally.Missing != 1 {
		t.Fatalf("missing = %d, want 1", run.Tally.Missing)
	}
	if entity, err := store.GetByID(ctx, missing.ID); err != nil || entity.Downloaded {
		t.Fatalf("entity = %+v (err %v), want not downloaded", entity, err)
	}
	if entity, _ := store.FindVideoByStem(ctx, channel.ID, "unclaimed"); entity != nil {
		t.Fatalf("tidy adopted a file: %+v", entity)
	}
}

func TestTidyCorruptionProbeClassifiesTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	channel := testsupport.NewChannel(t, store, "Chan")
	testsupport.NewVideo(t, store, channel.ID, "stuck", ".mp4", true)

	dir := filepath.Join(cfg.Paths.LibraryDir, "Chan")
	testsupport.WriteFile(t, filepath.Join(dir, "stuck.mp4"), 8)

	// A probe binary that sleeps past the timeout.
	probe := testsupport.StubScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin"), "slow-ffmpeg", "sleep 5\nexit 0\n")

	choices := TidyChoices{CheckCorrupt: true}
	op := NewTidy(store, mediakind.Default(), cfg.Paths.LibraryDir, probe, 50*time.Millisecond, choices, channel.ID, nil, nil)
	run, state := runOperation(t, op)

	if state != StateCompleted {
		t.Fatalf("state = %v, want completed", state)
	}
	if run.Tally.PossiblyCorrupt != 1 {
		t.Fatalf("possibly corrupt = %d, want 1", run.Tally.PossiblyCorrupt)
	}
	if run.Tally.Fail != 0 {
		t.Fatalf("fail = %d, want 0 (timeout is not probe failure)", run.Tally.Fail)
	}
}

func TestTidyRequiresAtLeastOneChoice(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	op := NewTidy(store, mediakind.Default(), cfg.Paths.LibraryDir, "ffmpeg", 0, TidyChoices{}, 0, nil, nil)
	_, state := runOperation(t, op)
	if state != StateFatal {
		t.Fatalf("state = %v, want fatal for empty choice set", state)
	}
}

func TestTidyCancellationDoesNotFlagProbedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLibrary(t, cfg)

	channel := testsupport.NewChannel(t, store, "Chan")
	testsupport.NewVideo(t, store, channel.ID, "fine", ".mp4", true)

	dir := filepath.Join(cfg.Paths.LibraryDir, "Chan")
	testsupport.WriteFile(t, filepath.Join(dir, "fine.mp4"), 8)

	// A probe that outlives the run; the generous timeout keeps the
	// deadline from firing first.
	probe := testsupport.StubScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin"), "hung-ffmpeg", "sleep 10\nexit 0\n")

	choices := TidyChoices{CheckCorrupt: true}
	op := NewTidy(store, mediakind.Default(), cfg.Paths.LibraryDir, probe, time.Minute, choices, channel.ID, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	mgr := NewManager(op, 1, &recordSink{}, nil)
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	cancel()
	mgr.Wait()

	if state := mgr.State(); state != StateCancelled {
		t.Fatalf("state = %v, want cancelled", state)
	}
	run := mgr.CurrentRun()
	if run.Tally.PossiblyCorrupt != 0 {
		t.Fatalf("possibly corrupt = %d, want 0 for a cancelled probe", run.Tally.PossiblyCorrupt)
	}
	if run.Tally.Fail != 0 {
		t.Fatalf("fail = %d, want 0 for a cancelled probe", run.Tally.Fail)
	}
}
