package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubevault/internal/config"
	"tubevault/internal/library"
	"tubevault/internal/textutil"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var sourceURL string
	var parentRef string
	var private bool
	var titleCase bool

	cmd := &cobra.Command{
		Use:   "add <channel|playlist|folder> <name>",
		Short: "Add a container to the library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := library.ParseKind(args[0])
			if !ok || !kind.IsContainer() {
				return fmt.Errorf("container kind %q: want channel, playlist, or folder", args[0])
			}

			name := strings.TrimSpace(args[1])
			if titleCase {
				name = textutil.DisplayTitle(name)
			}
			if name == "" {
				return fmt.Errorf("container name is empty")
			}

			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				var parentID int64
				if parentRef != "" {
					id, err := resolveContainer(cmd.Context(), store, parentRef)
					if err != nil {
						return err
					}
					parentID = id
				}

				entity, err := store.CreateContainer(cmd.Context(), kind, name, parentID)
				if err != nil {
					return err
				}
				if sourceURL != "" {
					if err := store.SetSourceURL(cmd.Context(), entity.ID, sourceURL); err != nil {
						return err
					}
				}
				if private {
					if err := store.SetPrivate(cmd.Context(), entity.ID, true); err != nil {
						return err
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q (id %d)\n", kind, name, entity.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "Source URL passed to the downloader")
	cmd.Flags().StringVar(&parentRef, "parent", "", "Parent container (id or exact name)")
	cmd.Flags().BoolVar(&private, "private", false, "Exclude the container from whole-library runs")
	cmd.Flags().BoolVar(&titleCase, "title-case", false, "Normalize whitespace and title-case the name")
	return cmd
}
