package ffmpegcmd

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func mustOptions(t *testing.T, opts Options) Options {
	t.Helper()
	validated, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return validated
}

func TestCompileIsDeterministic(t *testing.T) {
	opts := mustOptions(t, Options{
		Output:     OutputTranscode,
		VideoCodec: "libx264",
		CRF:        23,
		Suffix:     " (converted)",
	})
	in := Input{Path: "/library/chan/video.webm"}

	first, ok, err := Compile("ffmpeg", opts, in, nil, nil)
	if err != nil || !ok {
		t.Fatalf("Compile: ok=%v err=%v", ok, err)
	}
	second, ok, err := Compile("ffmpeg", opts, in, nil, nil)
	if err != nil || !ok {
		t.Fatalf("Compile: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("compile not deterministic:\n%v\n%v", first, second)
	}
}

func TestCompileUnknownSourceIsNoOp(t *testing.T) {
	opts := mustOptions(t, Options{Output: OutputTranscode})
	plans, ok, err := Compile("ffmpeg", opts, Input{}, nil, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if ok || plans != nil {
		t.Fatalf("expected no-op for unknown source, got %v", plans)
	}
}

func TestCompileMergeRequiresAudio(t *testing.T) {
	opts := mustOptions(t, Options{Output: OutputMerge})
	_, ok, err := Compile("ffmpeg", opts, Input{Path: "/x/video.mp4"}, nil, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if ok {
		t.Fatalf("merge without companion audio should be a no-op")
	}

	plans, ok, err := Compile("ffmpeg", opts, Input{Path: "/x/video.mp4", AudioPath: "/x/video.m4a"}, nil, nil)
	if err != nil || !ok {
		t.Fatalf("Compile: ok=%v err=%v", ok, err)
	}
	args := plans[0].Commands[0]
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-i /x/video.mp4 -i /x/video.m4a -c copy") {
		t.Fatalf("unexpected merge args: %v", args)
	}
}

func TestTransformOrderSuffixRegexExtension(t *testing.T) {
	opts := mustOptions(t, Options{
		Output:      OutputTranscode,
		Suffix:      "_x",
		RenameRegex: `_x$`,
		RenameTo:    "_y",
		ExtOverride: ".mkv",
	})
	plans, ok, err := Compile("ffmpeg", opts, Input{Path: "/d/clip.mp4"}, nil, nil)
	if err != nil || !ok {
		t.Fatalf("Compile: ok=%v err=%v", ok, err)
	}
	// Suffix first, then regex sees the suffixed stem, then the extension
	// override: clip -> clip_x -> clip_y -> clip_y.mkv
	if plans[0].Dest != "/d/clip_y.mkv" {
		t.Fatalf("unexpected dest %q", plans[0].Dest)
	}
}

func TestGIFPaletteModes(t *testing.T) {
	faster := mustOptions(t, Options{Output: OutputGIF, Palette: PaletteFaster})
	plans, ok, err := Compile("ffmpeg", faster, Input{Path: "/d/clip.mp4"}, nil, nil)
	if err != nil || !ok {
		t.Fatalf("Compile faster: ok=%v err=%v", ok, err)
	}
	if len(plans[0].Commands) != 1 {
		t.Fatalf("faster mode should be a single invocation, got %d", len(plans[0].Commands))
	}
	args := plans[0].Commands[0]
	if args[len(args)-1] != "/d/clip.gif" {
		t.Fatalf("faster argv should end in clip.gif, got %v", args)
	}
	for _, arg := range args {
		if strings.Contains(arg, "palette") {
			t.Fatalf("faster mode should not reference a palette: %v", args)
		}
	}

	better := mustOptions(t, Options{Output: OutputGIF, Palette: PaletteBetter})
	plans, ok, err = Compile("ffmpeg", better, Input{Path: "/d/clip.mp4"}, nil, nil)
	if err != nil || !ok {
		t.Fatalf("Compile better: ok=%v err=%v", ok, err)
	}
	cmds := plans[0].Commands
	if len(cmds) != 2 {
		t.Fatalf("better mode should chain two invocations, got %d", len(cmds))
	}
	if cmds[0][len(cmds[0])-1] != "/d/clip-palette.png" {
		t.Fatalf("first invocation should produce the palette PNG: %v", cmds[0])
	}
	if cmds[1][len(cmds[1])-1] != "/d/clip.gif" {
		t.Fatalf("second invocation should produce the gif: %v", cmds[1])
	}
}

func TestTwoPassChainsTwoInvocations(t *testing.T) {
	opts := mustOptions(t, Options{
		Output:     OutputTranscode,
		VideoCodec: "libx264",
		Quality:    QualityTwoPass,
		BitrateK:   2500,
		Suffix:     "-2p",
	})
	plans, ok, err := Compile("ffmpeg", opts, Input{Path: "/d/talk.mp4"}, nil, nil)
	if err != nil || !ok {
		t.Fatalf("Compile: ok=%v err=%v", ok, err)
	}
	cmds := plans[0].Commands
	if len(cmds) != 2 {
		t.Fatalf("two-pass should chain two invocations, got %d", len(cmds))
	}
	first := strings.Join(cmds[0], " ")
	second := strings.Join(cmds[1], " ")
	if !strings.Contains(first, "-pass 1") || !strings.Contains(first, "-f null") {
		t.Fatalf("unexpected first pass: %v", cmds[0])
	}
	if !strings.Contains(second, "-pass 2") || !strings.HasSuffix(second, "/d/talk-2p.mp4") {
		t.Fatalf("unexpected second pass: %v", cmds[1])
	}
	// Both passes share the same log intermediate.
	if !strings.Contains(first, "/d/talk-2pass") || !strings.Contains(second, "/d/talk-2pass") {
		t.Fatalf("passes should share a pass log: %v / %v", cmds[0], cmds[1])
	}
}

func TestSplitCompilesOnePlanPerClipWithDedup(t *testing.T) {
	opts := mustOptions(t, Options{Output: OutputSplit})
	clips := []Clip{
		{Start: "0:00", Stop: "1:00", Title: "part"},
		{Start: "1:00", Stop: "2:00", Title: "part"},
		{Start: "2:00", Title: ""},
	}
	titles := NewTitleRegistry()
	plans, ok, err := Compile("ffmpeg", opts, Input{Path: "/d/show.mp4"}, clips, titles)
	if err != nil || !ok {
		t.Fatalf("Compile: ok=%v err=%v", ok, err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(plans))
	}
	if filepath.Base(plans[0].Dest) != "part.mp4" {
		t.Fatalf("unexpected first clip dest %q", plans[0].Dest)
	}
	if filepath.Base(plans[1].Dest) != "part (2).mp4" {
		t.Fatalf("duplicate title should be numbered, got %q", plans[1].Dest)
	}
	if filepath.Base(plans[2].Dest) != "Clip 3.mp4" {
		t.Fatalf("untitled clip should get a positional name, got %q", plans[2].Dest)
	}

	last := plans[2].Commands[0]
	joined := strings.Join(last, " ")
	if !strings.Contains(joined, "-ss 2:00") {
		t.Fatalf("clip argv missing trim start: %v", last)
	}
	if strings.Contains(joined, "-to") {
		t.Fatalf("open-ended clip should not carry -to: %v", last)
	}
}

func TestOptionsValidation(t *testing.T) {
	if _, err := New(Options{Output: "shrink"}); err == nil {
		t.Fatalf("expected error for unknown output mode")
	}
	if _, err := New(Options{RenameRegex: "("}); err == nil {
		t.Fatalf("expected error for bad regex")
	}
	if _, err := New(Options{ExtOverride: "mp4"}); err == nil {
		t.Fatalf("expected error for extension without dot")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	opts := mustOptions(t, Options{Output: OutputTranscode, ExtraArgs: []string{"-movflags", "+faststart"}})
	dup := opts.Clone()
	dup.ExtraArgs[0] = "-changed"
	if opts.ExtraArgs[0] != "-movflags" {
		t.Fatalf("clone should not share extra args")
	}
}
