package main

import (
	"github.com/spf13/cobra"

	"tubevault/internal/config"
	"tubevault/internal/library"
	"tubevault/internal/ops"
)

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	var containerRef string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reconcile the library database against files on disk",
		Long: "Walks each container's directory and reconciles it with the\n" +
			"database: matched videos are marked downloaded, unregistered media\n" +
			"files become new entries, and missing files clear the downloaded flag.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				scopeID, err := resolveContainer(cmd.Context(), store, containerRef)
				if err != nil {
					return err
				}
				sink := newConsoleSink(cmd)
				op := ops.NewRefresh(store, ctx.tables, cfg.Paths.LibraryDir, scopeID, sink, ctx.ensureLogger())
				return runOperation(ctx, cmd, sink, op, reconcileInterval(cfg))
			})
		},
	}

	cmd.Flags().StringVar(&containerRef, "container", "", "Limit the run to one container and its descendants (id or exact name)")
	return cmd
}
