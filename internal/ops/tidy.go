package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tubevault/internal/library"
	"tubevault/internal/logging"
	"tubevault/internal/mediakind"
)

// TidyChoices selects which independent checks and deletions a tidy run
// applies to each container.
type TidyChoices struct {
	CheckCorrupt bool
	CheckExist   bool

	DeleteVideos   bool
	DeleteSiblings bool

	DeleteDescriptions bool
	DeleteMetadata     bool
	DeleteAnnotations  bool
	DeleteThumbnails   bool
	DeleteArchives     bool
}

// Any reports whether at least one check or deletion is selected.
func (c TidyChoices) Any() bool {
	return c.CheckCorrupt || c.CheckExist ||
		c.DeleteVideos || c.DeleteSiblings ||
		c.DeleteDescriptions || c.DeleteMetadata || c.DeleteAnnotations ||
		c.DeleteThumbnails || c.DeleteArchives
}

// TidyOperation runs the selected housekeeping checks over each container
// directory. Every deletion is first checked against alternate-destination
// sharing: a file whose stem another container still claims is preserved.
type TidyOperation struct {
	store        *library.Store
	tables       *mediakind.Tables
	root         string
	binary       string
	probeTimeout time.Duration
	choices      TidyChoices
	scopeID      int64
	sink         Sink
	logger       *slog.Logger

	worklist []*library.Entity
	next     int
	guard    childGuard
}

// NewTidy builds a tidy operation. probeTimeout bounds each corruption
// probe; scopeID follows the same convention as refresh.
func NewTidy(store *library.Store, tables *mediakind.Tables, root, binary string, probeTimeout time.Duration, choices TidyChoices, scopeID int64, sink Sink, logger *slog.Logger) *TidyOperation {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	if binary == "" {
		binary = "ffmpeg"
	}
	if probeTimeout <= 0 {
		probeTimeout = 60 * time.Second
	}
	return &TidyOperation{
		store:        store,
		tables:       tables,
		root:         root,
		binary:       binary,
		probeTimeout: probeTimeout,
		choices:      choices,
		scopeID:      scopeID,
		sink:         sink,
		logger:       logger,
	}
}

func (t *TidyOperation) Name() string { return "tidy" }

func (t *TidyOperation) Begin(ctx context.Context, _ *Run) (int, error) {
	if !t.choices.Any() {
		return 0, errors.New("tidy: no checks selected")
	}
	worklist, err := containerWorklist(ctx, t.store, t.scopeID)
	if err != nil {
		return 0, err
	}
	t.worklist = worklist
	return len(worklist), nil
}

func (t *TidyOperation) Step(ctx context.Context, run *Run) (bool, error) {
	if t.next >= len(t.worklist) {
		return true, nil
	}
	container := t.worklist[t.next]
	t.next++

	if err := t.tidyContainer(ctx, run, container); err != nil {
		run.Tally.Fail++
		t.sink.Error(container.ID, fmt.Sprintf("tidy %q: %v", container.Name, err))
		return false, err
	}
	return false, nil
}

func (t *TidyOperation) Close() {
	t.guard.kill()
}

func (t *TidyOperation) tidyContainer(ctx context.Context, run *Run, container *library.Entity) error {
	dir, err := t.store.DirPath(ctx, t.root, container)
	if err != nil {
		return Wrap(ErrFileMissing, "tidy", "resolve directory for "+container.Name, err)
	}
	videos, err := t.store.Videos(ctx, container.ID)
	if err != nil {
		return fmt.Errorf("tidy: list videos of %q: %w", container.Name, err)
	}
	shared, err := collectSlaveStems(ctx, t.store, container)
	if err != nil {
		return fmt.Errorf("tidy: %w", err)
	}

	if t.choices.CheckCorrupt {
		t.checkCorrupt(ctx, run, container, dir, videos)
	}
	if t.choices.CheckExist {
		if err := t.checkExist(ctx, run, dir, videos); err != nil {
			return err
		}
	}
	if t.choices.DeleteVideos {
		if err := t.deleteVideos(ctx, run, container, dir, videos, shared); err != nil {
			return err
		}
	}
	if err := t.deleteCompanions(run, container, dir, shared); err != nil {
		return err
	}
	return nil
}

// checkCorrupt probes each downloaded video with a bounded decode check.
// A timed-out probe counts as possibly corrupt, not as probe failure.
func (t *TidyOperation) checkCorrupt(ctx context.Context, run *Run, container *library.Entity, dir string, videos []*library.Entity) {
	for _, video := range videos {
		if ctx.Err() != nil {
			return
		}
		file := video.File()
		if !video.Downloaded || file == "" {
			continue
		}
		path := filepath.Join(dir, file)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		argv := []string{t.binary, "-v", "error", "-i", path, "-f", "null", "-"}
		probeCtx, cancel := context.WithTimeout(ctx, t.probeTimeout)
		code, lastStderr, err := t.guard.run(probeCtx, t.logger, t.sink, container.ID, argv, "", nil)
		timedOut := errors.Is(probeCtx.Err(), context.DeadlineExceeded)
		cancel()

		// A run cancellation also kills the probe; that says nothing
		// about the file.
		if ctx.Err() != nil {
			return
		}

		switch {
		case timedOut:
			run.Tally.PossiblyCorrupt++
			t.sink.Error(container.ID, Wrap(ErrTimeout, "tidy", fmt.Sprintf("probe of %q exceeded %s, possibly corrupt", file, t.probeTimeout), nil).Error())
		case err != nil:
			run.Tally.Fail++
			t.sink.Error(container.ID, fmt.Sprintf("probe %q: %v", file, err))
		case code != 0 || lastStderr != "":
			run.Tally.PossiblyCorrupt++
			t.sink.Info(container.ID, fmt.Sprintf("%q possibly corrupt: %s", file, firstNonEmpty(lastStderr, fmt.Sprintf("decode exit %d", code))))
		}
	}
}

// checkExist flips downloaded flags to match the directory. Unlike
// refresh, tidy never creates entities for unmatched files.
func (t *TidyOperation) checkExist(ctx context.Context, run *Run, dir string, videos []*library.Entity) error {
	listing, err := rawListing(dir)
	if err != nil {
		return Wrap(ErrFileMissing, "tidy", "read directory "+dir, err)
	}
	result := MatchDirectory(t.tables, listing, videos, nil)
	for _, match := range result.Matched {
		if !match.Entity.Downloaded {
			if err := t.store.MarkDownloaded(ctx, match.Entity.ID, true); err != nil {
				return fmt.Errorf("tidy: mark %q downloaded: %w", match.Entity.Name, err)
			}
		}
		run.Tally.Matched++
	}
	for _, entity := range result.MissingEntities {
		if err := t.store.MarkDownloaded(ctx, entity.ID, false); err != nil {
			return fmt.Errorf("tidy: mark %q missing: %w", entity.Name, err)
		}
		run.Tally.Missing++
	}
	return nil
}

func (t *TidyOperation) deleteVideos(ctx context.Context, run *Run, container *library.Entity, dir string, videos []*library.Entity, shared map[string]struct{}) error {
	listing, err := rawListing(dir)
	if err != nil {
		return Wrap(ErrFileMissing, "tidy", "read directory "+dir, err)
	}

	for _, video := range videos {
		if video.FileName == "" {
			continue
		}
		if _, claimed := shared[video.FileName]; claimed {
			t.logger.Debug("preserving shared file",
				logging.String(logging.FieldVideo, video.FileName),
				logging.Int64(logging.FieldContainer, container.ID),
			)
			continue
		}

		path := filepath.Join(dir, video.File())
		if err := os.Remove(path); err == nil {
			run.Tally.DeletedVideos++
		} else if !os.IsNotExist(err) {
			run.Tally.Fail++
			t.sink.Error(container.ID, fmt.Sprintf("delete %q: %v", path, err))
			continue
		}
		if video.Downloaded {
			if err := t.store.MarkDownloaded(ctx, video.ID, false); err != nil {
				return fmt.Errorf("tidy: mark %q missing: %w", video.Name, err)
			}
		}

		if !t.choices.DeleteSiblings {
			continue
		}
		// Sweep same-stem post-processing artifacts, then numbered
		// download fragments whose root matches the stem.
		for _, name := range listing {
			stem, _ := mediakind.SplitStem(name)
			sibling := stem == video.FileName && name != video.File()
			fragment := mediakind.IsFragment(stem) && mediakind.FragmentRoot(stem) == video.FileName
			if !sibling && !fragment {
				continue
			}
			if err := os.Remove(filepath.Join(dir, name)); err == nil {
				run.Tally.DeletedSiblings++
			}
		}
	}
	return nil
}

// deleteCompanions removes companion files by selected category, keeping
// anything whose stem a slave container still claims.
func (t *TidyOperation) deleteCompanions(run *Run, container *library.Entity, dir string, shared map[string]struct{}) error {
	if !t.choices.DeleteDescriptions && !t.choices.DeleteMetadata && !t.choices.DeleteAnnotations &&
		!t.choices.DeleteThumbnails && !t.choices.DeleteArchives {
		return nil
	}
	listing, err := rawListing(dir)
	if err != nil {
		return Wrap(ErrFileMissing, "tidy", "read directory "+dir, err)
	}

	for _, name := range listing {
		var counter *int
		var stem string
		switch {
		case t.choices.DeleteArchives && name == mediakind.ArchiveFileName:
			counter = &run.Tally.DeletedArchives
		case t.choices.DeleteDescriptions && strings.HasSuffix(name, mediakind.DescriptionSuffix):
			stem = strings.TrimSuffix(name, mediakind.DescriptionSuffix)
			counter = &run.Tally.DeletedDescription
		case t.choices.DeleteMetadata && strings.HasSuffix(name, mediakind.MetadataSuffix):
			stem = strings.TrimSuffix(name, mediakind.MetadataSuffix)
			counter = &run.Tally.DeletedMetadata
		case t.choices.DeleteAnnotations && strings.HasSuffix(name, mediakind.AnnotationsSuffix):
			stem = strings.TrimSuffix(name, mediakind.AnnotationsSuffix)
			counter = &run.Tally.DeletedAnnotations
		default:
			if t.choices.DeleteThumbnails {
				s, ext := mediakind.SplitStem(name)
				if t.tables.IsThumbnail(ext) {
					stem = s
					counter = &run.Tally.DeletedThumbnails
				}
			}
		}
		if counter == nil {
			continue
		}
		if stem != "" {
			if _, claimed := shared[stem]; claimed {
				continue
			}
		}
		if err := os.Remove(filepath.Join(dir, name)); err == nil {
			*counter++
		} else if !os.IsNotExist(err) {
			run.Tally.Fail++
			t.sink.Error(container.ID, fmt.Sprintf("delete %q: %v", name, err))
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
