package instrumentation

import (
	"bytes"
	"hash/fnv"
	"runtime"

	"github.com/tracelab/scopetrace/timing"
)

// ScopeTimer times one code scope. Construction captures the start time;
// Stop captures the end time and submits the completed interval to the
// session. Pair construction with a deferred Stop so the interval is recorded
// on every exit path, including panics:
//
//	t := instrumentation.NewScopeTimer(session, "LoadAssets")
//	defer t.Stop()
//
// A ScopeTimer represents exactly one interval and must not be copied.
type ScopeTimer struct {
	session *Session
	name    string
	startUS timing.TimeUS
	stopped bool
}

// NewScopeTimer starts timing the named scope against the given session. The
// name must outlive the timer.
func NewScopeTimer(session *Session, name string) *ScopeTimer {
	return &ScopeTimer{
		session: session,
		name:    name,
		startUS: session.currentTimeUS(),
	}
}

// Stop ends the timer and records its interval. Calling Stop again, or on a
// nil timer, has no effect and returns nil.
func (t *ScopeTimer) Stop() error {
	if t == nil || t.stopped {
		return nil
	}
	t.stopped = true

	endUS := t.session.currentTimeUS()

	return t.session.Record(Interval{
		Name:     t.name,
		StartUS:  t.startUS,
		EndUS:    endUS,
		ThreadID: currentThreadID(),
	})
}

// currentThreadID derives a 32-bit identifier for the calling goroutine by
// hashing its runtime ID. The Chrome trace format requires a numeric tid;
// collisions across very many goroutines are accepted.
func currentThreadID() uint32 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)

	// The first stack line reads "goroutine <id> [running]:".
	fields := bytes.Fields(buf[:n])

	h := fnv.New32a()
	if len(fields) >= 2 {
		h.Write(fields[1])
	}

	return h.Sum32()
}
