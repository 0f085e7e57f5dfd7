package sampling

import (
	"errors"
	"fmt"
	"slices"
)

// ErrSampleOrder reports a sample sequence whose timestamps decrease.
var ErrSampleOrder = errors.New("sampling: sample timestamps must be non-decreasing")

// EventStream lazily produces the span events reconstructed from an ordered
// sequence of samples. It follows the scanner idiom:
//
//	stream := sampling.NewEventStream(samples)
//	for stream.Scan() {
//		handle(stream.Event())
//	}
//	if err := stream.Err(); err != nil { ... }
//
// The stream is finite and cannot be restarted. Frames still open after the
// last sample are left open; callers wanting a balanced trace close them
// explicitly with CloseAll.
//
// Frames are identified by name alone. When the same name occurs twice in one
// stack, as under recursion, the two occurrences cannot be told apart and the
// inner one is not opened as a separate span. This is a known limitation of
// the reconstruction.
type EventStream struct {
	samples []Sample
	next    int
	lastTS  float64
	running []string
	queue   []SpanEvent
	cur     SpanEvent
	err     error
}

// NewEventStream creates a stream over samples. The slice is read
// incrementally and must not be mutated while the stream is in use.
func NewEventStream(samples []Sample) *EventStream {
	return &EventStream{samples: samples}
}

// Scan advances to the next span event. It returns false when the stream is
// exhausted or a malformed sample was encountered; Err tells the two apart.
func (s *EventStream) Scan() bool {
	if s.err != nil {
		return false
	}

	for len(s.queue) == 0 {
		if s.next >= len(s.samples) {
			return false
		}

		sample := s.samples[s.next]
		if s.next > 0 && sample.TimestampS < s.lastTS {
			s.err = fmt.Errorf("%w: sample %d at %v after %v",
				ErrSampleOrder, s.next, sample.TimestampS, s.lastTS)
			return false
		}

		s.lastTS = sample.TimestampS
		s.next++
		s.ingest(sample)
	}

	s.cur = s.queue[0]
	s.queue = s.queue[1:]

	return true
}

// ingest applies one sample to the running stack, queueing the resulting
// events.
func (s *EventStream) ingest(sample Sample) {
	// Close frames that disappeared. The topmost open frame is closed as
	// long as its name occurs nowhere in the current stack; membership over
	// the whole stack tolerates a frame shifting position between samples.
	for len(s.running) > 0 {
		top := s.running[len(s.running)-1]
		if slices.Contains(sample.Stack, top) {
			break
		}

		s.queue = append(s.queue, SpanEvent{
			TimestampS: sample.TimestampS,
			Kind:       SpanEnd,
			Frame:      top,
		})
		s.running = s.running[:len(s.running)-1]
	}

	// Open frames seen for the first time, root to leaf.
	for _, frame := range sample.Stack {
		if slices.Contains(s.running, frame) {
			continue
		}

		s.queue = append(s.queue, SpanEvent{
			TimestampS: sample.TimestampS,
			Kind:       SpanStart,
			Frame:      frame,
		})
		s.running = append(s.running, frame)
	}
}

// Event returns the event produced by the last successful Scan.
func (s *EventStream) Event() SpanEvent {
	return s.cur
}

// Err returns the first error encountered, or nil if the stream ended
// normally.
func (s *EventStream) Err() error {
	return s.err
}

// OpenFrames returns the frames still open, root-first. It is meaningful
// once Scan has returned false with a nil Err.
func (s *EventStream) OpenFrames() []string {
	return slices.Clone(s.running)
}

// CloseAll emits end events for every still-open frame at the given
// timestamp, innermost first, and empties the running stack.
func (s *EventStream) CloseAll(tsS float64) []SpanEvent {
	events := make([]SpanEvent, 0, len(s.running))
	for i := len(s.running) - 1; i >= 0; i-- {
		events = append(events, SpanEvent{
			TimestampS: tsS,
			Kind:       SpanEnd,
			Frame:      s.running[i],
		})
	}

	s.running = s.running[:0]

	return events
}

// Synthesize runs the whole reconstruction in one call.
func Synthesize(samples []Sample) ([]SpanEvent, error) {
	stream := NewEventStream(samples)

	var events []SpanEvent
	for stream.Scan() {
		events = append(events, stream.Event())
	}

	if err := stream.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
