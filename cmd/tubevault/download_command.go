package main

import (
	"github.com/spf13/cobra"

	"tubevault/internal/config"
	"tubevault/internal/library"
	"tubevault/internal/ops"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var containerRef string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download videos for configured channels and playlists",
		Long: "Runs the downloader once per container that has a source URL,\n" +
			"registering every finished file in the library database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				scopeID, err := resolveContainer(cmd.Context(), store, containerRef)
				if err != nil {
					return err
				}
				sink := newConsoleSink(cmd)
				op := ops.NewDownload(store, ctx.tables, cfg, scopeID, sink, ctx.ensureLogger())
				return runOperation(ctx, cmd, sink, op, subprocessInterval(cfg))
			})
		},
	}

	cmd.Flags().StringVar(&containerRef, "container", "", "Limit the run to one container (id or exact name)")
	return cmd
}
