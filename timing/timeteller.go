// Package timing provides monotonic, microsecond-resolution time telling for
// trace instrumentation.
package timing

import (
	"time"

	"github.com/zoobzio/clockz"
)

// TimeUS is a point in time expressed as microseconds since an arbitrary
// epoch.
type TimeUS uint64

// TimeTeller can be used to get the current time in microseconds.
type TimeTeller interface {
	CurrentTimeUS() TimeUS
}

// MonotonicTeller tells time as microseconds elapsed since its creation.
// Readings are non-decreasing and unaffected by wall-clock adjustments, as
// they rely on the runtime's monotonic clock reading.
type MonotonicTeller struct {
	clock clockz.Clock
	start time.Time
}

// NewMonotonicTeller creates a MonotonicTeller backed by the real clock. The
// baseline is captured immediately.
func NewMonotonicTeller() *MonotonicTeller {
	return &MonotonicTeller{
		clock: clockz.RealClock,
		start: clockz.RealClock.Now(),
	}
}

// WithClock returns a new MonotonicTeller backed by the given clock, with a
// fresh baseline. It enables clock injection for deterministic testing.
func (*MonotonicTeller) WithClock(clock clockz.Clock) *MonotonicTeller {
	return &MonotonicTeller{
		clock: clock,
		start: clock.Now(),
	}
}

// CurrentTimeUS returns the number of microseconds elapsed since the teller
// was created.
func (t *MonotonicTeller) CurrentTimeUS() TimeUS {
	return TimeUS(t.clock.Now().Sub(t.start).Microseconds())
}
