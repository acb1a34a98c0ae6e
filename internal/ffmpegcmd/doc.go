// Package ffmpegcmd compiles declarative conversion recipes into concrete
// FFmpeg argument vectors.
//
// Compilation is pure and deterministic: the same recipe and input always
// yield byte-identical commands, which both the preview display and the
// tests rely on. Pipelines that need two invocations (two-pass rate
// control, palette-based GIF conversion) compile to an ordered command
// list the caller runs sequentially, aborting on the first failure.
package ffmpegcmd
