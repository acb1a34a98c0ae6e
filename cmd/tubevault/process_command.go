package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tubevault/internal/config"
	"tubevault/internal/ffmpegcmd"
	"tubevault/internal/library"
	"tubevault/internal/ops"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var containerRef string
	var input, output, quality, palette string
	var videoCodec, audioCodec, hwaccel string
	var crf, bitrateK int
	var suffix, renameRegex, renameTo, extOverride string
	var deleteOriginal, renameThumbnail bool
	var extraArgs []string

	cmd := &cobra.Command{
		Use:   "process [video-id...]",
		Short: "Convert downloaded videos with FFmpeg",
		Long: "Builds an FFmpeg invocation per selected video from the recipe\n" +
			"flags. Videos are selected by id, or all at once with --container.\n" +
			"Clip splitting places its output in a new sibling folder.",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ffmpegcmd.New(ffmpegcmd.Options{
				Name:            "cli",
				Input:           ffmpegcmd.InputMode(input),
				Output:          ffmpegcmd.OutputMode(output),
				VideoCodec:      videoCodec,
				AudioCodec:      audioCodec,
				Quality:         ffmpegcmd.QualityMode(quality),
				CRF:             crf,
				BitrateK:        bitrateK,
				HWAccel:         hwaccel,
				Palette:         ffmpegcmd.PaletteMode(palette),
				Suffix:          suffix,
				RenameRegex:     renameRegex,
				RenameTo:        renameTo,
				ExtOverride:     extOverride,
				DeleteOriginal:  deleteOriginal,
				RenameThumbnail: renameThumbnail,
				ExtraArgs:       extraArgs,
			})
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				videoIDs, err := selectVideos(cmd, store, containerRef, args)
				if err != nil {
					return err
				}
				if len(videoIDs) == 0 {
					return fmt.Errorf("no videos selected; pass video ids or --container")
				}
				sink := newConsoleSink(cmd)
				op := ops.NewProcess(store, ctx.tables, cfg.Paths.LibraryDir, cfg.FFmpeg.Binary, opts, videoIDs, sink, ctx.ensureLogger())
				if err := runOperation(ctx, cmd, sink, op, subprocessInterval(cfg)); err != nil {
					return err
				}
				if op.SplitPerformed() {
					fmt.Fprintln(cmd.OutOrStdout(), "Clips were written to a new folder; run refresh to verify it.")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&containerRef, "container", "", "Process every video in this container (id or exact name)")
	cmd.Flags().StringVar(&input, "input", "", "Input kind: video or thumbnail")
	cmd.Flags().StringVar(&output, "output", "", "Output pipeline: transcode, gif, merge, split, or slice")
	cmd.Flags().StringVar(&videoCodec, "video-codec", "", "Video codec passed to -c:v")
	cmd.Flags().StringVar(&audioCodec, "audio-codec", "", "Audio codec passed to -c:a")
	cmd.Flags().StringVar(&quality, "quality", "", "Quality mode: crf or two_pass")
	cmd.Flags().IntVar(&crf, "crf", 0, "Constant rate factor for crf quality")
	cmd.Flags().IntVar(&bitrateK, "bitrate", 0, "Target bitrate in kbit/s for two_pass quality")
	cmd.Flags().StringVar(&hwaccel, "hwaccel", "", "Hardware acceleration method passed to -hwaccel")
	cmd.Flags().StringVar(&palette, "palette", "", "GIF palette mode: faster or better")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Append this suffix to output filenames")
	cmd.Flags().StringVar(&renameRegex, "rename-regex", "", "Regexp applied to output filename stems")
	cmd.Flags().StringVar(&renameTo, "rename-to", "", "Replacement for --rename-regex matches")
	cmd.Flags().StringVar(&extOverride, "ext", "", "Override the output extension (with leading dot)")
	cmd.Flags().BoolVar(&deleteOriginal, "delete-original", false, "Delete the source file after a successful conversion")
	cmd.Flags().BoolVar(&renameThumbnail, "rename-thumbnail", false, "Rename the thumbnail alongside the converted file")
	cmd.Flags().StringArrayVar(&extraArgs, "extra", nil, "Extra argument inserted before the output path (repeatable)")
	return cmd
}

// selectVideos resolves the positional ids and/or the --container flag into
// a deduplicated worklist, preserving command-line order.
func selectVideos(cmd *cobra.Command, store *library.Store, containerRef string, args []string) ([]int64, error) {
	var ids []int64
	seen := map[int64]struct{}{}
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("video id %q: %w", arg, err)
		}
		add(id)
	}

	if containerRef != "" {
		containerID, err := resolveContainer(cmd.Context(), store, containerRef)
		if err != nil {
			return nil, err
		}
		videos, err := store.Videos(cmd.Context(), containerID)
		if err != nil {
			return nil, err
		}
		for _, video := range videos {
			add(video.ID)
		}
	}

	return ids, nil
}
