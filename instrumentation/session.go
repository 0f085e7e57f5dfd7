package instrumentation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tracelab/scopetrace/chrometrace"
	"github.com/tracelab/scopetrace/timing"
)

// Session owns the lifecycle of one trace document. A session cycles between
// inactive and active; while active, completed intervals submitted through
// Record are serialized immediately. At most one document is ever open per
// session, and calling Begin on an active session first ends the current
// document completely, so no data is lost.
//
// All writes are serialized by an internal mutex, so timers running on
// different goroutines can record into the same session concurrently.
type Session struct {
	mu         sync.Mutex
	timeTeller timing.TimeTeller

	name       string
	active     bool
	baselineUS timing.TimeUS
	writer     *chrometrace.Writer
	closer     io.Closer
}

// NewSession creates an inactive session backed by a real monotonic clock.
func NewSession() *Session {
	return &Session{
		timeTeller: timing.NewMonotonicTeller(),
	}
}

// WithTimeTeller replaces the session's time source. It enables deterministic
// timestamps in tests. Must be called before Begin.
func (s *Session) WithTimeTeller(teller timing.TimeTeller) *Session {
	s.timeTeller = teller
	return s
}

// Begin opens the file at path, truncating any existing content, writes the
// document header, and activates the session. If the session is already
// active, the current document is ended first. The file remains open until
// End.
func (s *Session) Begin(name, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		if err := s.endLocked(); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("instrumentation: opening trace file: %w", err)
	}

	if err := s.beginLocked(name, f, f); err != nil {
		f.Close()
		return err
	}

	return nil
}

// BeginWriter is Begin over a caller-supplied sink. The sink is closed on End
// if it implements io.Closer.
func (s *Session) BeginWriter(name string, sink io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		if err := s.endLocked(); err != nil {
			return err
		}
	}

	closer, _ := sink.(io.Closer)

	return s.beginLocked(name, sink, closer)
}

func (s *Session) beginLocked(name string, sink io.Writer, closer io.Closer) error {
	writer := chrometrace.NewWriter(bufio.NewWriter(sink))

	if err := writer.WriteHeader(); err != nil {
		return err
	}

	s.name = name
	s.writer = writer
	s.closer = closer
	s.baselineUS = s.timeTeller.CurrentTimeUS()
	s.active = true

	return nil
}

// End writes the document footer, flushes, closes the sink, and deactivates
// the session. Ending an inactive session is a no-op.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}

	return s.endLocked()
}

func (s *Session) endLocked() error {
	err := s.writer.WriteFooter()

	if s.closer != nil {
		if closeErr := s.closer.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("instrumentation: closing trace file: %w", closeErr)
		}
	}

	s.name = ""
	s.writer = nil
	s.closer = nil
	s.baselineUS = 0
	s.active = false

	return err
}

// Record serializes one completed interval as a complete event with
// timestamps relative to the session baseline. Recording into an inactive
// session is a harmless no-op. Sink failures are returned, never swallowed.
func (s *Session) Record(iv Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}

	relStart := iv.StartUS - s.baselineUS
	relEnd := iv.EndUS - s.baselineUS

	return s.writer.WriteComplete(chrometrace.CompleteEvent{
		DurationUS:  uint64(relEnd - relStart),
		Category:    chrometrace.CategoryFunction,
		Name:        iv.Name,
		Phase:       chrometrace.PhaseComplete,
		TID:         iv.ThreadID,
		TimestampUS: uint64(relStart),
	})
}

// Active reports whether a document is currently open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// Name returns the name given to Begin, or the empty string when inactive.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.name
}

// EventCount returns the number of events written to the current document.
// It is zero when the session is inactive.
func (s *Session) EventCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return 0
	}

	return uint32(s.writer.EventCount())
}

func (s *Session) currentTimeUS() timing.TimeUS {
	return s.timeTeller.CurrentTimeUS()
}
