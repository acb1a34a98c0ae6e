package ffmpegcmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// nullSink is where the first two-pass invocation writes its discarded
// output.
var nullSink = os.DevNull

// Input describes one source file for a conversion.
type Input struct {
	// Path is the full path of the source file. Empty means the location
	// is unknown and compilation is a no-op.
	Path string
	// AudioPath is the companion audio track required by merge mode.
	AudioPath string
}

// Clip is one timestamp pair for split/slice output.
type Clip struct {
	Start string
	Stop  string // empty means until end of source
	Title string
}

// Plan is one compiled conversion: the argv sequences to run (two entries
// for two-pass and palette pipelines, executed in order with each required
// to succeed) and the output the last one produces.
type Plan struct {
	Source   string
	Dest     string
	Commands [][]string
}

// Compile turns a recipe plus an input into concrete command plans. The
// second return value is false when there is nothing to convert (unknown
// source, merge without its companion audio, split without clips); that is
// a no-op, not an error. Compilation is deterministic: identical arguments
// always produce identical plans.
func Compile(binary string, opts Options, in Input, clips []Clip, titles *TitleRegistry) ([]Plan, bool, error) {
	if err := opts.validate(); err != nil {
		return nil, false, err
	}
	if strings.TrimSpace(in.Path) == "" {
		return nil, false, nil
	}
	if binary == "" {
		binary = "ffmpeg"
	}

	switch opts.Output {
	case OutputMerge:
		if strings.TrimSpace(in.AudioPath) == "" {
			return nil, false, nil
		}
		return []Plan{compileMerge(binary, opts, in)}, true, nil
	case OutputGIF:
		return []Plan{compileGIF(binary, opts, in)}, true, nil
	case OutputSplit, OutputSlice:
		if len(clips) == 0 {
			return nil, false, nil
		}
		if titles == nil {
			titles = NewTitleRegistry()
		}
		return compileClips(binary, opts, in, clips, titles), true, nil
	case OutputTranscode:
		return []Plan{compileTranscode(binary, opts, in)}, true, nil
	}
	return nil, false, fmt.Errorf("output mode: unsupported value %q", opts.Output)
}

// destPath applies the filename transforms to the source path.
func destPath(opts Options, source string) string {
	dir := filepath.Dir(source)
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	stem = opts.transformStem(stem)
	ext = opts.transformExt(ext)
	return filepath.Join(dir, stem+ext)
}

func baseArgs(binary string, opts Options) []string {
	args := []string{binary, "-y", "-hide_banner"}
	if opts.HWAccel != "" {
		args = append(args, "-hwaccel", opts.HWAccel)
	}
	return args
}

func codecArgs(opts Options) []string {
	var args []string
	if opts.VideoCodec != "" {
		args = append(args, "-c:v", opts.VideoCodec)
	}
	if opts.AudioCodec != "" {
		args = append(args, "-c:a", opts.AudioCodec)
	}
	args = append(args, opts.ExtraArgs...)
	return args
}

func compileTranscode(binary string, opts Options, in Input) Plan {
	dest := destPath(opts, in.Path)
	if dest == in.Path {
		// Converting a file onto itself would truncate it mid-read; emit
		// a suffixed sibling instead.
		ext := filepath.Ext(dest)
		dest = strings.TrimSuffix(dest, ext) + "-converted" + ext
	}

	if opts.Quality == QualityTwoPass {
		return compileTwoPass(binary, opts, in, dest)
	}

	args := baseArgs(binary, opts)
	args = append(args, "-i", in.Path)
	args = append(args, codecArgs(opts)...)
	if opts.CRF > 0 {
		args = append(args, "-crf", fmt.Sprintf("%d", opts.CRF))
	}
	args = append(args, dest)
	return Plan{Source: in.Path, Dest: dest, Commands: [][]string{args}}
}

// compileTwoPass emits two chained invocations sharing a pass-log
// intermediate next to the source. The first pass writes no output file.
func compileTwoPass(binary string, opts Options, in Input, dest string) Plan {
	bitrate := fmt.Sprintf("%dk", opts.BitrateK)
	passLog := strings.TrimSuffix(in.Path, filepath.Ext(in.Path)) + "-2pass"

	first := baseArgs(binary, opts)
	first = append(first, "-i", in.Path)
	first = append(first, codecArgs(opts)...)
	first = append(first, "-b:v", bitrate, "-pass", "1", "-passlogfile", passLog, "-an", "-f", "null", nullSink)

	second := baseArgs(binary, opts)
	second = append(second, "-i", in.Path)
	second = append(second, codecArgs(opts)...)
	second = append(second, "-b:v", bitrate, "-pass", "2", "-passlogfile", passLog, dest)

	return Plan{Source: in.Path, Dest: dest, Commands: [][]string{first, second}}
}

func compileGIF(binary string, opts Options, in Input) Plan {
	gifOpts := opts
	gifOpts.ExtOverride = ".gif"
	dest := destPath(gifOpts, in.Path)

	if opts.Palette == PaletteBetter {
		palette := strings.TrimSuffix(in.Path, filepath.Ext(in.Path)) + "-palette.png"

		gen := []string{binary, "-y", "-hide_banner", "-i", in.Path, "-vf", "palettegen", palette}
		use := []string{binary, "-y", "-hide_banner", "-i", in.Path, "-i", palette, "-filter_complex", "paletteuse", dest}
		return Plan{Source: in.Path, Dest: dest, Commands: [][]string{gen, use}}
	}

	args := []string{binary, "-y", "-hide_banner", "-i", in.Path, dest}
	return Plan{Source: in.Path, Dest: dest, Commands: [][]string{args}}
}

func compileMerge(binary string, opts Options, in Input) Plan {
	dest := destPath(opts, in.Path)
	if dest == in.Path {
		ext := filepath.Ext(dest)
		dest = strings.TrimSuffix(dest, ext) + "-merged" + ext
	}
	args := []string{binary, "-y", "-hide_banner", "-i", in.Path, "-i", in.AudioPath, "-c", "copy"}
	args = append(args, opts.ExtraArgs...)
	args = append(args, dest)
	return Plan{Source: in.Path, Dest: dest, Commands: [][]string{args}}
}

// compileClips emits one plan per timestamp pair, deduplicating clip titles
// across the run through the caller-supplied registry.
func compileClips(binary string, opts Options, in Input, clips []Clip, titles *TitleRegistry) []Plan {
	dir := filepath.Dir(in.Path)
	ext := opts.transformExt(filepath.Ext(in.Path))

	plans := make([]Plan, 0, len(clips))
	for i, clip := range clips {
		title := strings.TrimSpace(clip.Title)
		if title == "" {
			title = fmt.Sprintf("Clip %d", i+1)
		}
		title = titles.Claim(opts.transformStem(title))
		dest := filepath.Join(dir, title+ext)

		args := baseArgs(binary, opts)
		args = append(args, "-ss", clip.Start)
		if clip.Stop != "" {
			args = append(args, "-to", clip.Stop)
		}
		args = append(args, "-i", in.Path)
		args = append(args, codecArgs(opts)...)
		args = append(args, dest)
		plans = append(plans, Plan{Source: in.Path, Dest: dest, Commands: [][]string{args}})
	}
	return plans
}
