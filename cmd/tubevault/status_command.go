package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tubevault/internal/config"
	"tubevault/internal/library"
	"tubevault/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library contents and environment checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				out := cmd.OutOrStdout()

				fmt.Fprintln(out, renderKeyValues([][2]string{
					{"Library", cfg.Paths.LibraryDir},
					{"Database", store.Path()},
					{"Logs", cfg.Paths.LogDir},
				}))

				counts, err := store.CountByKind(cmd.Context())
				if err != nil {
					return err
				}
				countRows := make([][]string, 0, 4)
				for _, kind := range []library.Kind{library.KindChannel, library.KindPlaylist, library.KindFolder, library.KindVideo} {
					countRows = append(countRows, []string{string(kind), strconv.Itoa(counts[kind])})
				}
				fmt.Fprintln(out, renderTable([]string{"Kind", "Count"}, countRows, 2))

				checkRows := make([][]string, 0, 4)
				for _, result := range preflight.RunAll(cfg) {
					checkRows = append(checkRows, []string{result.Name, passFail(result.Passed), result.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, checkRows))

				depRows := make([][]string, 0, 3)
				for _, status := range preflight.CheckSystemDeps(cfg) {
					name := status.Name
					if status.Optional {
						name += " (optional)"
					}
					depRows = append(depRows, []string{name, status.Command, yesNo(status.Available), status.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "Available", "Detail"}, depRows))

				return nil
			})
		},
	}
}

func passFail(passed bool) string {
	if passed {
		return "ok"
	}
	return "failed"
}
