package main

import (
	"time"

	"github.com/spf13/cobra"

	"tubevault/internal/config"
	"tubevault/internal/library"
	"tubevault/internal/ops"
)

func newTidyCommand(ctx *commandContext) *cobra.Command {
	var containerRef string
	var choices ops.TidyChoices
	var everything bool

	cmd := &cobra.Command{
		Use:   "tidy",
		Short: "Check and clean up files in the library directories",
		Long: "Runs the selected maintenance passes per container: corruption\n" +
			"probes, existence checks, and deletion of videos or their companion\n" +
			"files. At least one pass must be selected.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if everything {
				choices = ops.TidyChoices{
					CheckCorrupt:       true,
					CheckExist:         true,
					DeleteSiblings:     true,
					DeleteDescriptions: true,
					DeleteMetadata:     true,
					DeleteAnnotations:  true,
					DeleteThumbnails:   true,
					DeleteArchives:     true,
				}
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				scopeID, err := resolveContainer(cmd.Context(), store, containerRef)
				if err != nil {
					return err
				}
				sink := newConsoleSink(cmd)
				probeTimeout := time.Duration(cfg.FFmpeg.ProbeTimeoutSeconds) * time.Second
				op := ops.NewTidy(store, ctx.tables, cfg.Paths.LibraryDir, cfg.FFmpeg.Binary, probeTimeout, choices, scopeID, sink, ctx.ensureLogger())
				return runOperation(ctx, cmd, sink, op, reconcileInterval(cfg))
			})
		},
	}

	cmd.Flags().StringVar(&containerRef, "container", "", "Limit the run to one container and its descendants (id or exact name)")
	cmd.Flags().BoolVar(&choices.CheckCorrupt, "check-corrupt", false, "Probe each downloaded video for corruption")
	cmd.Flags().BoolVar(&choices.CheckExist, "check-exist", false, "Verify downloaded flags against files on disk")
	cmd.Flags().BoolVar(&choices.DeleteVideos, "delete-videos", false, "Delete downloaded video files")
	cmd.Flags().BoolVar(&choices.DeleteSiblings, "delete-siblings", false, "Delete leftover files sharing a deleted video's stem")
	cmd.Flags().BoolVar(&choices.DeleteDescriptions, "delete-descriptions", false, "Delete description files")
	cmd.Flags().BoolVar(&choices.DeleteMetadata, "delete-metadata", false, "Delete metadata files")
	cmd.Flags().BoolVar(&choices.DeleteAnnotations, "delete-annotations", false, "Delete annotation files")
	cmd.Flags().BoolVar(&choices.DeleteThumbnails, "delete-thumbnails", false, "Delete thumbnail files")
	cmd.Flags().BoolVar(&choices.DeleteArchives, "delete-archives", false, "Delete downloader archive files")
	cmd.Flags().BoolVar(&everything, "all", false, "Run every pass except video deletion")
	return cmd
}
