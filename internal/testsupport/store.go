package testsupport

import (
	"context"
	"testing"

	"tubevault/internal/config"
	"tubevault/internal/library"
)

// MustOpenLibrary opens a library.Store for tests and registers cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewChannel creates a channel container for tests.
func NewChannel(t testing.TB, store *library.Store, name string) *library.Entity {
	t.Helper()

	entity, err := store.CreateContainer(context.Background(), library.KindChannel, name, 0)
	if err != nil {
		t.Fatalf("store.CreateContainer: %v", err)
	}
	return entity
}

// NewVideo creates a video entity with a recorded file for tests.
func NewVideo(t testing.TB, store *library.Store, containerID int64, stem, ext string, downloaded bool) *library.Entity {
	t.Helper()

	ctx := context.Background()
	entity, err := store.CreateVideo(ctx, containerID, stem)
	if err != nil {
		t.Fatalf("store.CreateVideo: %v", err)
	}
	if stem != "" {
		if err := store.SetFile(ctx, entity.ID, stem, ext); err != nil {
			t.Fatalf("store.SetFile: %v", err)
		}
	}
	if downloaded {
		if err := store.MarkDownloaded(ctx, entity.ID, true); err != nil {
			t.Fatalf("store.MarkDownloaded: %v", err)
		}
	}
	fresh, err := store.GetByID(ctx, entity.ID)
	if err != nil {
		t.Fatalf("store.GetByID: %v", err)
	}
	return fresh
}
