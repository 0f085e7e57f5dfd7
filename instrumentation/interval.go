// Package instrumentation provides scoped timers and the session that
// serializes their completed intervals into a Chrome trace document.
package instrumentation

import "github.com/tracelab/scopetrace/timing"

// Interval is one finished timed region. Intervals are immutable and consumed
// exactly once by a session.
type Interval struct {
	Name     string
	StartUS  timing.TimeUS
	EndUS    timing.TimeUS
	ThreadID uint32
}
