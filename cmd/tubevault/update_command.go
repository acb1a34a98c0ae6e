package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tubevault/internal/config"
	"tubevault/internal/library"
	"tubevault/internal/ops"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update the downloader via pip",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The store lock keeps an update from racing a download run
			// that is mid-flight in another invocation.
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				sink := newConsoleSink(cmd)
				op := ops.NewUpdate(cfg.Update.PipBinary, cfg.Update.Package, sink, ctx.ensureLogger())
				if err := runOperation(ctx, cmd, sink, op, subprocessInterval(cfg)); err != nil {
					return err
				}
				if version := op.Version(); version != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", cfg.Update.Package, version)
				}
				return nil
			})
		},
	}
}
