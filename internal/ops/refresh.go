package ops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tubevault/internal/library"
	"tubevault/internal/logging"
	"tubevault/internal/mediakind"
)

// RefreshOperation reconciles each container's directory against the
// registry: matched files mark their entities downloaded, unmatched files
// become new entities, and entities without a backing file are flipped to
// not-downloaded.
type RefreshOperation struct {
	store  *library.Store
	tables *mediakind.Tables
	root   string
	sink   Sink
	logger *slog.Logger

	// scopeID restricts the run to one container subtree; 0 means the
	// whole library minus private containers.
	scopeID int64

	worklist []*library.Entity
	next     int
}

// NewRefresh builds a refresh worklist operation. scopeID of 0 covers every
// non-private container; a non-zero scope includes the named container and
// its descendants even when private.
func NewRefresh(store *library.Store, tables *mediakind.Tables, root string, scopeID int64, sink Sink, logger *slog.Logger) *RefreshOperation {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &RefreshOperation{
		store:   store,
		tables:  tables,
		root:    root,
		scopeID: scopeID,
		sink:    sink,
		logger:  logger,
	}
}

func (r *RefreshOperation) Name() string { return "refresh" }

func (r *RefreshOperation) Begin(ctx context.Context, _ *Run) (int, error) {
	worklist, err := containerWorklist(ctx, r.store, r.scopeID)
	if err != nil {
		return 0, err
	}
	r.worklist = worklist
	return len(worklist), nil
}

func (r *RefreshOperation) Step(ctx context.Context, run *Run) (bool, error) {
	if r.next >= len(r.worklist) {
		return true, nil
	}
	container := r.worklist[r.next]
	r.next++

	if err := r.refreshContainer(ctx, run, container); err != nil {
		run.Tally.Fail++
		r.sink.Error(container.ID, fmt.Sprintf("refresh %q: %v", container.Name, err))
		return false, err
	}
	return false, nil
}

func (r *RefreshOperation) Close() {}

func (r *RefreshOperation) refreshContainer(ctx context.Context, run *Run, container *library.Entity) error {
	dir, err := r.store.DirPath(ctx, r.root, container)
	if err != nil {
		return Wrap(ErrFileMissing, "refresh", "resolve directory for "+container.Name, err)
	}

	videos, err := r.store.Videos(ctx, container.ID)
	if err != nil {
		return fmt.Errorf("refresh: list videos of %q: %w", container.Name, err)
	}

	// A container whose files live in another container's directory never
	// owns what it finds there: flip downloaded flags only, create nothing.
	if container.HasAlternateDestination() {
		return r.refreshAlternate(ctx, run, container, dir, videos)
	}

	listing, err := rawListing(dir)
	if err != nil {
		return Wrap(ErrFileMissing, "refresh", "read directory "+dir, err)
	}

	slaveStems, err := collectSlaveStems(ctx, r.store, container)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	result := MatchDirectory(r.tables, listing, videos, slaveStems)

	for _, match := range result.Matched {
		entity := match.Entity
		if match.Ext != entity.FileExt {
			if err := r.store.SetFile(ctx, entity.ID, entity.FileName, match.Ext); err != nil {
				return fmt.Errorf("refresh: update extension of %q: %w", entity.Name, err)
			}
		}
		if !entity.Downloaded {
			if err := r.store.MarkDownloaded(ctx, entity.ID, true); err != nil {
				return fmt.Errorf("refresh: mark %q downloaded: %w", entity.Name, err)
			}
		}
		run.Tally.Matched++
	}

	for _, file := range result.NewFiles {
		entity, err := r.store.CreateVideo(ctx, container.ID, file.Stem)
		if err != nil {
			return fmt.Errorf("refresh: create entity for %q: %w", file.Stem, err)
		}
		if err := r.store.SetFile(ctx, entity.ID, file.Stem, file.Ext); err != nil {
			return fmt.Errorf("refresh: set file for %q: %w", file.Stem, err)
		}
		if err := r.store.MarkDownloaded(ctx, entity.ID, true); err != nil {
			return fmt.Errorf("refresh: mark %q downloaded: %w", file.Stem, err)
		}
		run.Tally.New++
		r.sink.Info(container.ID, fmt.Sprintf("new video %q (%s)", file.Stem, file.Ext))
	}

	for _, entity := range result.MissingEntities {
		if err := r.store.MarkDownloaded(ctx, entity.ID, false); err != nil {
			return fmt.Errorf("refresh: mark %q missing: %w", entity.Name, err)
		}
		run.Tally.Missing++
		r.sink.Info(container.ID, fmt.Sprintf("file gone for %q, marked not downloaded", entity.Name))
	}

	for stem, names := range result.Alternates {
		for _, name := range names {
			r.logger.Debug("alternate file ignored",
				logging.String(logging.FieldVideo, stem),
				logging.String("file", name),
				logging.Int64(logging.FieldContainer, container.ID),
			)
		}
	}

	return nil
}

// refreshAlternate only flips downloaded flags based on file presence in
// the shared directory.
func (r *RefreshOperation) refreshAlternate(ctx context.Context, run *Run, container *library.Entity, dir string, videos []*library.Entity) error {
	for _, video := range videos {
		file := video.File()
		if file == "" {
			continue
		}
		_, statErr := os.Stat(filepath.Join(dir, file))
		present := statErr == nil
		switch {
		case present && !video.Downloaded:
			if err := r.store.MarkDownloaded(ctx, video.ID, true); err != nil {
				return fmt.Errorf("refresh: mark %q downloaded: %w", video.Name, err)
			}
			run.Tally.Matched++
		case !present && video.Downloaded:
			if err := r.store.MarkDownloaded(ctx, video.ID, false); err != nil {
				return fmt.Errorf("refresh: mark %q missing: %w", video.Name, err)
			}
			run.Tally.Missing++
		case present:
			run.Tally.Matched++
		}
	}
	r.sink.Info(container.ID, fmt.Sprintf("refreshed %q against alternate destination", container.Name))
	return nil
}

// rawListing returns directory entries in the order the platform reports
// them. Listing order decides which same-stem alternate wins, so the names
// are deliberately not sorted. A missing directory yields an empty listing.
func rawListing(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return f.Readdirnames(-1)
}

// containerWorklist resolves the containers a refresh or tidy run covers.
// scopeID of 0 means every non-private container; otherwise the named
// container plus its container descendants.
func containerWorklist(ctx context.Context, store *library.Store, scopeID int64) ([]*library.Entity, error) {
	if scopeID == 0 {
		all, err := store.Containers(ctx)
		if err != nil {
			return nil, err
		}
		worklist := make([]*library.Entity, 0, len(all))
		for _, container := range all {
			if container.Private {
				continue
			}
			worklist = append(worklist, container)
		}
		return worklist, nil
	}

	rootEntity, err := store.GetByID(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	if !rootEntity.IsContainer() {
		return nil, fmt.Errorf("entity %d (%s) is not a container", rootEntity.ID, rootEntity.Name)
	}

	worklist := []*library.Entity{rootEntity}
	for i := 0; i < len(worklist); i++ {
		children, err := store.Children(ctx, worklist[i].ID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if child.IsContainer() {
				worklist = append(worklist, child)
			}
		}
	}
	return worklist, nil
}
