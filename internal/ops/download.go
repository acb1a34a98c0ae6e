package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tubevault/internal/config"
	"tubevault/internal/library"
	"tubevault/internal/logging"
	"tubevault/internal/mediakind"
	"tubevault/internal/preflight"
	"tubevault/internal/procio"
)

// destinationPrefix marks downloader lines announcing the file a download
// is writing to.
const destinationPrefix = "[download] Destination: "

// mergerPrefix marks lines announcing a post-download format merge; the
// merged file supersedes the per-format destinations.
const mergerPrefix = "[Merger] Merging formats into "

// DownloadOperation drives one downloader invocation per container with a
// source URL, registering each observed destination file in the library.
type DownloadOperation struct {
	store   *library.Store
	tables  *mediakind.Tables
	cfg     *config.Config
	scopeID int64
	sink    Sink
	logger  *slog.Logger

	worklist []*library.Entity
	next     int
	guard    childGuard
}

// NewDownload builds a download operation. scopeID follows the refresh
// convention: 0 covers every non-private container with a source URL.
func NewDownload(store *library.Store, tables *mediakind.Tables, cfg *config.Config, scopeID int64, sink Sink, logger *slog.Logger) *DownloadOperation {
	if logger == nil {
		logger = logging.NewNop()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &DownloadOperation{
		store:   store,
		tables:  tables,
		cfg:     cfg,
		scopeID: scopeID,
		sink:    sink,
		logger:  logger,
	}
}

func (d *DownloadOperation) Name() string { return "download" }

func (d *DownloadOperation) Begin(ctx context.Context, _ *Run) (int, error) {
	if min := d.cfg.Downloader.MinFreeGiB; min > 0 {
		check := preflight.CheckFreeSpace(d.cfg.Paths.LibraryDir, min)
		if !check.Passed {
			return 0, errors.New("download: " + check.Detail)
		}
	}

	containers, err := containerWorklist(ctx, d.store, d.scopeID)
	if err != nil {
		return 0, err
	}
	d.worklist = d.worklist[:0]
	for _, container := range containers {
		if strings.TrimSpace(container.SourceURL) == "" {
			continue
		}
		d.worklist = append(d.worklist, container)
	}
	return len(d.worklist), nil
}

func (d *DownloadOperation) Step(ctx context.Context, run *Run) (bool, error) {
	if d.next >= len(d.worklist) {
		return true, nil
	}
	container := d.worklist[d.next]
	d.next++

	if err := d.downloadContainer(ctx, run, container); err != nil {
		if IsFatal(err) {
			return false, err
		}
		run.Tally.Fail++
		d.sink.Error(container.ID, fmt.Sprintf("download %q: %v", container.Name, err))
		return false, err
	}
	return false, nil
}

func (d *DownloadOperation) Close() {
	d.guard.kill()
}

func (d *DownloadOperation) downloadContainer(ctx context.Context, run *Run, container *library.Entity) error {
	dir, err := d.store.DirPath(ctx, d.cfg.Paths.LibraryDir, container)
	if err != nil {
		return fmt.Errorf("download: resolve directory for %q: %w", container.Name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Wrap(ErrDestinationConflict, "download", "create directory "+dir, err)
	}

	argv := d.buildArgs(dir, container.SourceURL)
	code, lastStderr, err := d.guard.run(ctx, d.logger, d.sink, container.ID, argv, dir, func(msg procio.Message) {
		d.observe(ctx, run, container, msg)
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return Wrap(ErrNonZeroExit, "download", fmt.Sprintf("exit %d: %s", code, lastStderr), nil)
	}
	return nil
}

// buildArgs assembles the downloader invocation for one container.
func (d *DownloadOperation) buildArgs(dir, url string) []string {
	dl := d.cfg.Downloader
	argv := []string{
		dl.Binary,
		"--newline",
		"--download-archive", filepath.Join(dir, mediakind.ArchiveFileName),
		"-o", filepath.Join(dir, "%(title)s.%(ext)s"),
	}
	if dl.FormatOverride != "" {
		argv = append(argv, "-f", dl.FormatOverride)
	}
	if dl.WriteMetadata {
		argv = append(argv, "--write-description", "--write-info-json")
	}
	if dl.WriteThumbnail {
		argv = append(argv, "--write-thumbnail")
	}
	argv = append(argv, dl.ExtraArgs...)
	return append(argv, url)
}

// observe classifies one downloader output line: destination announcements
// register entities, errors are tallied, everything else is progress.
func (d *DownloadOperation) observe(ctx context.Context, run *Run, container *library.Entity, msg procio.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.Stream == procio.StreamStderr {
		switch {
		case strings.HasPrefix(text, "ERROR:"):
			run.Tally.Fail++
			d.sink.Error(container.ID, text)
		case strings.HasPrefix(text, "WARNING:"):
			d.logger.Debug("downloader warning",
				logging.String("text", text),
				logging.Int64(logging.FieldContainer, container.ID),
			)
		default:
			d.sink.Info(container.ID, text)
		}
		return
	}

	if path, ok := destinationFromLine(text); ok {
		if err := d.registerFile(ctx, run, container, path); err != nil {
			run.Tally.Fail++
			d.sink.Error(container.ID, fmt.Sprintf("register %q: %v", filepath.Base(path), err))
		}
		return
	}
	d.sink.Info(container.ID, text)
}

// registerFile records one observed destination file against the registry,
// creating the entity when the stem is new.
func (d *DownloadOperation) registerFile(ctx context.Context, run *Run, container *library.Entity, path string) error {
	stem, ext := mediakind.SplitStem(path)
	if !d.tables.IsMedia(ext) {
		return nil
	}

	entity, err := d.store.FindVideoByStem(ctx, container.ID, stem)
	if err != nil {
		return err
	}
	if entity == nil {
		entity, err = d.store.CreateVideo(ctx, container.ID, stem)
		if err != nil {
			return err
		}
		run.Tally.New++
	} else {
		run.Tally.Matched++
	}
	if err := d.store.SetFile(ctx, entity.ID, stem, ext); err != nil {
		return err
	}
	if err := d.store.MarkDownloaded(ctx, entity.ID, true); err != nil {
		return err
	}
	run.Tally.Success++
	return nil
}

// destinationFromLine extracts the output path from destination and merger
// announcements.
func destinationFromLine(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, destinationPrefix); ok {
		return strings.TrimSpace(rest), rest != ""
	}
	if rest, ok := strings.CutPrefix(line, mergerPrefix); ok {
		rest = strings.Trim(strings.TrimSpace(rest), `"`)
		return rest, rest != ""
	}
	return "", false
}
