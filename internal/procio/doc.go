// Package procio spawns external programs and drains their output.
//
// Each spawned Child merges stdout and stderr into one channel of
// sequence-stamped Messages, preserving arrival order across both pipes
// without depending on clock resolution. Kill terminates the whole process
// group where the platform supports one, so multi-stage shell pipelines do
// not outlive a cancelled operation.
package procio
