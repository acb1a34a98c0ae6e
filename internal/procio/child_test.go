//go:build unix

package procio

import (
	"context"
	"testing"
	"time"
)

func collect(t *testing.T, child *Child) []Message {
	t.Helper()
	var messages []Message
	timeout := time.After(10 * time.Second)
	for {
		select {
		case msg, ok := <-child.Messages():
			if !ok {
				return messages
			}
			messages = append(messages, msg)
		case <-timeout:
			t.Fatalf("timed out draining child output")
		}
	}
}

func TestChildMergesStreamsInArrivalOrder(t *testing.T) {
	child, err := Start(context.Background(), "sh", []string{"-c", "echo one; echo two >&2; echo three"}, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	messages := collect(t, child)
	if code, err := child.Wait(); err != nil || code != 0 {
		t.Fatalf("Wait: code=%d err=%v", code, err)
	}

	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d: %+v", len(messages), messages)
	}
	var lastSeq uint64
	stdout := make([]string, 0, 2)
	stderr := make([]string, 0, 1)
	for _, msg := range messages {
		if !msg.Stream.Valid() {
			t.Fatalf("invalid stream tag on %+v", msg)
		}
		if msg.Seq <= lastSeq {
			t.Fatalf("sequence not strictly increasing: %+v", messages)
		}
		lastSeq = msg.Seq
		switch msg.Stream {
		case StreamStdout:
			stdout = append(stdout, msg.Text)
		case StreamStderr:
			stderr = append(stderr, msg.Text)
		}
	}
	// Per-stream order is preserved even though cross-stream interleaving
	// depends on the scheduler.
	if len(stdout) != 2 || stdout[0] != "one" || stdout[1] != "three" {
		t.Fatalf("unexpected stdout lines: %v", stdout)
	}
	if len(stderr) != 1 || stderr[0] != "two" {
		t.Fatalf("unexpected stderr lines: %v", stderr)
	}
}

func TestWaitReturnsExitCode(t *testing.T) {
	child, err := Start(context.Background(), "sh", []string{"-c", "exit 3"}, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	collect(t, child)
	code, err := child.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if code != 3 {
		t.Fatalf("expected exit code 3, got %d", code)
	}
	if child.Alive() {
		t.Fatalf("child should not be alive after Wait")
	}
}

func TestStartMissingBinary(t *testing.T) {
	if _, err := Start(context.Background(), "tubevault-no-such-binary", nil, ""); err == nil {
		t.Fatalf("expected spawn error for missing binary")
	}
}

func TestKillIsIdempotentAndStopsProcessGroup(t *testing.T) {
	// The sleep runs behind a shell so killing only the immediate child
	// would leave the group running.
	child, err := Start(context.Background(), "sh", []string{"-c", "sleep 30 && sleep 30"}, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !child.Alive() {
		t.Fatalf("child should report alive right after start")
	}

	child.Kill()
	child.Kill()

	collect(t, child)
	code, err := child.Wait()
	if err != nil {
		t.Fatalf("Wait after kill: %v", err)
	}
	if code == 0 {
		t.Fatalf("killed child should not exit cleanly")
	}
	if child.Alive() {
		t.Fatalf("child should not report alive after kill")
	}
}

func TestSeqMatchesChannelOrderUnderContention(t *testing.T) {
	// Both pipes chatter at once; the receiver must still see Seq as a
	// contiguous 1..N walk, with no cross-stream inversion.
	script := "i=0; while [ $i -lt 200 ]; do echo out$i; echo err$i >&2; i=$((i+1)); done"
	child, err := Start(context.Background(), "sh", []string{"-c", script}, "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	messages := collect(t, child)
	if code, err := child.Wait(); err != nil || code != 0 {
		t.Fatalf("Wait: code=%d err=%v", code, err)
	}

	if len(messages) != 400 {
		t.Fatalf("expected 400 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		if msg.Seq != uint64(i+1) {
			t.Fatalf("message %d carries seq %d; channel order and seq order diverged", i, msg.Seq)
		}
	}
}
