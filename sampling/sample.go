// Package sampling reconstructs nested call spans from periodic call-stack
// snapshots.
package sampling

// Sample is one snapshot of an active call stack. The stack is ordered
// root-first. Samples are externally supplied and immutable.
type Sample struct {
	TimestampS float64
	Stack      []string
}

// EventKind distinguishes the two edges of a synthesized span.
type EventKind int

const (
	SpanStart EventKind = iota
	SpanEnd
)

func (k EventKind) String() string {
	switch k {
	case SpanStart:
		return "start"
	case SpanEnd:
		return "end"
	default:
		return "unknown"
	}
}

// SpanEvent is one edge of a reconstructed span.
type SpanEvent struct {
	TimestampS float64
	Kind       EventKind
	Frame      string
}
