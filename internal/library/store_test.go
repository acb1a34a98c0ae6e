package library_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tubevault/internal/config"
	"tubevault/internal/library"
)

func newStore(t *testing.T) (*library.Store, *config.Config) {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.DatabaseDir = filepath.Join(base, "db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	store, err := library.Open(&cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, &cfg
}

func TestCreateAndFetchEntities(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	channel, err := store.CreateContainer(ctx, library.KindChannel, "Lectures", 0)
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if channel.MasterID != channel.ID {
		t.Fatalf("new container should be its own master, got %d", channel.MasterID)
	}

	video, err := store.CreateVideo(ctx, channel.ID, "intro")
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	if video.Downloaded {
		t.Fatalf("new video should not be downloaded")
	}

	if err := store.SetFile(ctx, video.ID, "intro", ".mp4"); err != nil {
		t.Fatalf("SetFile: %v", err)
	}
	if err := store.MarkDownloaded(ctx, video.ID, true); err != nil {
		t.Fatalf("MarkDownloaded: %v", err)
	}

	found, err := store.FindVideoByStem(ctx, channel.ID, "intro")
	if err != nil {
		t.Fatalf("FindVideoByStem: %v", err)
	}
	if found == nil || found.ID != video.ID {
		t.Fatalf("expected to find video by stem, got %+v", found)
	}
	if !found.Downloaded || found.File() != "intro.mp4" {
		t.Fatalf("unexpected video state: %+v", found)
	}
}

func TestContainerNameConflict(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if _, err := store.CreateContainer(ctx, library.KindChannel, "News", 0); err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	_, err := store.CreateContainer(ctx, library.KindPlaylist, "News", 0)
	if !errors.Is(err, library.ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
}

func TestSlaveTracking(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	master, err := store.CreateContainer(ctx, library.KindChannel, "Main", 0)
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	slave, err := store.CreateContainer(ctx, library.KindPlaylist, "Mirror", 0)
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if err := store.SetMaster(ctx, slave.ID, master.ID); err != nil {
		t.Fatalf("SetMaster: %v", err)
	}

	slaves, err := store.SlavesOf(ctx, master.ID)
	if err != nil {
		t.Fatalf("SlavesOf: %v", err)
	}
	if len(slaves) != 1 || slaves[0].ID != slave.ID {
		t.Fatalf("unexpected slaves: %+v", slaves)
	}

	reloaded, err := store.GetByID(ctx, slave.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !reloaded.HasAlternateDestination() {
		t.Fatalf("slave should report alternate destination")
	}
}

func TestDirPathFollowsMasterAndParents(t *testing.T) {
	store, cfg := newStore(t)
	ctx := context.Background()

	folder, err := store.CreateContainer(ctx, library.KindFolder, "archive", 0)
	if err != nil {
		t.Fatalf("CreateContainer folder: %v", err)
	}
	channel, err := store.CreateContainer(ctx, library.KindChannel, "talks", folder.ID)
	if err != nil {
		t.Fatalf("CreateContainer channel: %v", err)
	}

	dir, err := store.DirPath(ctx, cfg.Paths.LibraryDir, channel)
	if err != nil {
		t.Fatalf("DirPath: %v", err)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "archive", "talks")
	if dir != want {
		t.Fatalf("unexpected dir %q, want %q", dir, want)
	}

	mirror, err := store.CreateContainer(ctx, library.KindPlaylist, "mirror", 0)
	if err != nil {
		t.Fatalf("CreateContainer mirror: %v", err)
	}
	if err := store.SetMaster(ctx, mirror.ID, channel.ID); err != nil {
		t.Fatalf("SetMaster: %v", err)
	}
	mirror, err = store.GetByID(ctx, mirror.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	mirrorDir, err := store.DirPath(ctx, cfg.Paths.LibraryDir, mirror)
	if err != nil {
		t.Fatalf("DirPath mirror: %v", err)
	}
	if mirrorDir != want {
		t.Fatalf("slave should resolve to master directory, got %q", mirrorDir)
	}
}

func TestDeleteCascades(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	channel, err := store.CreateContainer(ctx, library.KindChannel, "Temp", 0)
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	video, err := store.CreateVideo(ctx, channel.ID, "gone")
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	if err := store.DeleteEntity(ctx, channel.ID); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	got, err := store.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("video should cascade-delete with its container")
	}
}

func TestStampsRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	channel, err := store.CreateContainer(ctx, library.KindChannel, "Clips", 0)
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	video, err := store.CreateVideo(ctx, channel.ID, "long talk")
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	stamps := []library.Stamp{
		{Start: "0:00", Stop: "10:30", Title: "opening"},
		{Start: "10:30", Title: "q&a"},
	}
	if err := store.SetStamps(ctx, video.ID, stamps); err != nil {
		t.Fatalf("SetStamps: %v", err)
	}
	reloaded, err := store.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(reloaded.Stamps) != 2 || reloaded.Stamps[0].Title != "opening" || reloaded.Stamps[1].Stop != "" {
		t.Fatalf("unexpected stamps: %+v", reloaded.Stamps)
	}
}
