package procio

// Stream tags which pipe a message arrived on.
type Stream uint8

const (
	// StreamInvalid is the zero value; a message carrying it violates an
	// internal invariant and is skipped by consumers.
	StreamInvalid Stream = iota
	StreamStdout
	StreamStderr
)

// Valid reports whether the tag names a real stream.
func (s Stream) Valid() bool {
	return s == StreamStdout || s == StreamStderr
}

func (s Stream) String() string {
	switch s {
	case StreamStdout:
		return "stdout"
	case StreamStderr:
		return "stderr"
	default:
		return "invalid"
	}
}

// Message is one line of subprocess output. Seq is a process-wide monotonic
// arrival counter: replaying messages in Seq order reproduces the true
// chronological interleaving of stdout and stderr.
type Message struct {
	Seq    uint64
	Stream Stream
	Text   string
}
