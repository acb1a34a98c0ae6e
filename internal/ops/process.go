package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tubevault/internal/ffmpegcmd"
	"tubevault/internal/fileutil"
	"tubevault/internal/library"
	"tubevault/internal/logging"
	"tubevault/internal/mediakind"
	"tubevault/internal/textutil"
)

// ProcessOperation converts queued videos with one FFmpeg recipe: one plan
// per video, or one plan per clip in split mode.
type ProcessOperation struct {
	store  *library.Store
	tables *mediakind.Tables
	root   string
	binary string
	opts   ffmpegcmd.Options
	sink   Sink
	logger *slog.Logger

	videoIDs []int64
	worklist []*library.Entity
	next     int

	// titles deduplicates clip titles across the whole run, not per video.
	titles *ffmpegcmd.TitleRegistry
	guard  childGuard

	splitPerformed bool
}

// NewProcess builds a conversion operation over the given video entities.
func NewProcess(store *library.Store, tables *mediakind.Tables, root, binary string, opts ffmpegcmd.Options, videoIDs []int64, sink Sink, logger *slog.Logger) *ProcessOperation {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	if binary == "" {
		binary = "ffmpeg"
	}
	return &ProcessOperation{
		store:    store,
		tables:   tables,
		root:     root,
		binary:   binary,
		opts:     opts,
		videoIDs: videoIDs,
		sink:     sink,
		logger:   logger,
		titles:   ffmpegcmd.NewTitleRegistry(),
	}
}

func (p *ProcessOperation) Name() string { return "process" }

// SplitPerformed reports whether any split produced clips, signalling the
// caller to refresh catalogue views.
func (p *ProcessOperation) SplitPerformed() bool { return p.splitPerformed }

func (p *ProcessOperation) Begin(ctx context.Context, _ *Run) (int, error) {
	p.worklist = make([]*library.Entity, 0, len(p.videoIDs))
	for _, id := range p.videoIDs {
		entity, err := p.store.GetByID(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("process: load video %d: %w", id, err)
		}
		if entity.Kind != library.KindVideo {
			return 0, fmt.Errorf("process: entity %d (%s) is not a video", id, entity.Name)
		}
		p.worklist = append(p.worklist, entity)
	}
	return len(p.worklist), nil
}

func (p *ProcessOperation) Step(ctx context.Context, run *Run) (bool, error) {
	if p.next >= len(p.worklist) {
		return true, nil
	}
	video := p.worklist[p.next]
	p.next++

	if err := p.processVideo(ctx, run, video); err != nil {
		if IsFatal(err) {
			return false, err
		}
		run.Tally.Fail++
		p.sink.Error(video.ParentID, fmt.Sprintf("convert %q: %v", video.Name, err))
		return false, err
	}
	return false, nil
}

func (p *ProcessOperation) Close() {
	p.guard.kill()
}

func (p *ProcessOperation) processVideo(ctx context.Context, run *Run, video *library.Entity) error {
	if video.FileName == "" {
		return Wrap(ErrFileMissing, "process", "no filename recorded for "+video.Name, nil)
	}

	source, err := p.store.VideoPath(ctx, p.root, video)
	if err != nil {
		return Wrap(ErrFileMissing, "process", "resolve path for "+video.Name, err)
	}
	if _, err := os.Stat(source); err != nil {
		return Wrap(ErrFileMissing, "process", source, err)
	}

	input := ffmpegcmd.Input{Path: source}
	dir := filepath.Dir(source)

	// Thumbnail recipes operate on the companion thumbnail, corrected to
	// its true format before any conversion decision.
	if p.opts.Input == ffmpegcmd.InputThumbnail {
		thumb := p.findThumbnail(dir, video.FileName)
		if thumb == "" {
			return Wrap(ErrFileMissing, "process", "no thumbnail for "+video.Name, nil)
		}
		corrected, err := ffmpegcmd.CorrectThumbnailExtension(thumb)
		if err != nil {
			return fmt.Errorf("process: correct thumbnail for %q: %w", video.Name, err)
		}
		input.Path = corrected
	}

	if p.opts.Output == ffmpegcmd.OutputMerge {
		input.AudioPath = p.findAudio(dir, video.FileName)
	}

	clips := make([]ffmpegcmd.Clip, 0, len(video.Stamps))
	for _, stamp := range video.Stamps {
		clips = append(clips, ffmpegcmd.Clip{
			Start: stamp.Start,
			Stop:  stamp.Stop,
			Title: textutil.SanitizeFileName(stamp.Title),
		})
	}

	plans, ok, err := ffmpegcmd.Compile(p.binary, p.opts, input, clips, p.titles)
	if err != nil {
		return fmt.Errorf("process: compile recipe for %q: %w", video.Name, err)
	}
	if !ok {
		p.sink.Info(video.ParentID, fmt.Sprintf("nothing to convert for %q", video.Name))
		return nil
	}

	if p.opts.Output == ffmpegcmd.OutputSplit || p.opts.Output == ffmpegcmd.OutputSlice {
		return p.runSplit(ctx, run, video, plans)
	}
	return p.runSingle(ctx, run, video, plans[0])
}

func (p *ProcessOperation) runSingle(ctx context.Context, run *Run, video *library.Entity, plan ffmpegcmd.Plan) error {
	if err := p.runPlan(ctx, video.ParentID, plan); err != nil {
		return err
	}
	run.Tally.Success++

	if !p.opts.DeleteOriginal || plan.Dest == plan.Source || p.opts.Input == ffmpegcmd.InputThumbnail {
		return nil
	}
	if err := os.Remove(plan.Source); err != nil {
		p.logger.Warn("could not delete original",
			logging.String("path", plan.Source),
			logging.Error(err),
		)
	}
	stem, ext := mediakind.SplitStem(plan.Dest)
	if err := p.store.SetFile(ctx, video.ID, stem, ext); err != nil {
		return fmt.Errorf("process: record new file for %q: %w", video.Name, err)
	}
	if p.opts.RenameThumbnail && stem != video.FileName {
		p.renameThumbnail(filepath.Dir(plan.Source), video.FileName, stem)
	}
	return nil
}

// runSplit creates a clips folder next to the video's container and runs
// one plan per clip. The first clip failure abandons this video's remaining
// clips only; a folder name collision aborts the whole run.
func (p *ProcessOperation) runSplit(ctx context.Context, run *Run, video *library.Entity, plans []ffmpegcmd.Plan) error {
	folderName := video.Name + " (clips)"
	folder, err := p.store.CreateContainer(ctx, library.KindFolder, folderName, video.ParentID)
	if err != nil {
		if errors.Is(err, library.ErrNameConflict) {
			return Wrap(ErrDestinationConflict, "process", folderName, err)
		}
		return fmt.Errorf("process: create clips folder %q: %w", folderName, err)
	}
	clipDir, err := p.store.DirPath(ctx, p.root, folder)
	if err != nil {
		return fmt.Errorf("process: resolve clips folder %q: %w", folderName, err)
	}
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return Wrap(ErrDestinationConflict, "process", "create directory "+clipDir, err)
	}

	for _, plan := range plans {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.runPlan(ctx, video.ParentID, plan); err != nil {
			return err
		}

		stem, ext := mediakind.SplitStem(plan.Dest)
		final := filepath.Join(clipDir, stem+ext)
		if err := fileutil.MoveFile(plan.Dest, final); err != nil {
			return fmt.Errorf("process: move clip %q: %w", plan.Dest, err)
		}

		clip, err := p.store.CreateVideo(ctx, folder.ID, stem)
		if err != nil {
			return fmt.Errorf("process: register clip %q: %w", stem, err)
		}
		if err := p.store.SetFile(ctx, clip.ID, stem, ext); err != nil {
			return fmt.Errorf("process: record clip file %q: %w", stem, err)
		}
		if err := p.store.MarkDownloaded(ctx, clip.ID, true); err != nil {
			return fmt.Errorf("process: mark clip %q: %w", stem, err)
		}
		run.Tally.Success++
		p.splitPerformed = true
	}
	return nil
}

// runPlan executes a plan's chained invocations in order, each required to
// succeed.
func (p *ProcessOperation) runPlan(ctx context.Context, containerID int64, plan ffmpegcmd.Plan) error {
	for _, argv := range plan.Commands {
		code, lastStderr, err := p.guard.run(ctx, p.logger, p.sink, containerID, argv, "", nil)
		if err != nil {
			return err
		}
		if code != 0 {
			return Wrap(ErrNonZeroExit, "process", fmt.Sprintf("exit %d: %s", code, lastStderr), nil)
		}
	}
	return nil
}

// findThumbnail locates the companion thumbnail for a stem, trying the
// recognized extensions in table order.
func (p *ProcessOperation) findThumbnail(dir, stem string) string {
	for _, ext := range p.tables.ThumbnailExtensions() {
		candidate := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findAudio locates a same-stem companion audio track for merge mode.
func (p *ProcessOperation) findAudio(dir, stem string) string {
	listing, err := rawListing(dir)
	if err != nil {
		return ""
	}
	for _, name := range listing {
		fileStem, ext := mediakind.SplitStem(name)
		if fileStem == stem && p.tables.IsAudio(ext) {
			return filepath.Join(dir, name)
		}
	}
	return ""
}

func (p *ProcessOperation) renameThumbnail(dir, oldStem, newStem string) {
	thumb := p.findThumbnail(dir, oldStem)
	if thumb == "" {
		return
	}
	ext := filepath.Ext(thumb)
	if err := os.Rename(thumb, filepath.Join(dir, newStem+ext)); err != nil {
		p.logger.Warn("could not rename thumbnail",
			logging.String("path", thumb),
			logging.Error(err),
		)
	}
}
