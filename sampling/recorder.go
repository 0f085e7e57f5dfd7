package sampling

import (
	"runtime"
	"slices"
	"sync"

	"github.com/tracelab/scopetrace/timing"
)

// StackRecorder captures call-stack snapshots of the calling goroutine at
// program-chosen checkpoints, producing an ordered sample batch the
// synthesizer accepts. Timestamps come from a monotonic teller, so the batch
// is non-decreasing by construction.
type StackRecorder struct {
	mu         sync.Mutex
	timeTeller timing.TimeTeller
	samples    []Sample
}

// NewStackRecorder creates a recorder backed by a real monotonic clock.
func NewStackRecorder() *StackRecorder {
	return &StackRecorder{
		timeTeller: timing.NewMonotonicTeller(),
	}
}

// WithTimeTeller replaces the recorder's time source.
func (r *StackRecorder) WithTimeTeller(teller timing.TimeTeller) *StackRecorder {
	r.timeTeller = teller
	return r
}

// Take records one snapshot of the calling goroutine's stack, root-first,
// excluding Take itself and the runtime frames below main.
func (r *StackRecorder) Take() {
	ts := float64(r.timeTeller.CurrentTimeUS()) / 1e6

	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)

	stack := make([]string, 0, n)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, frame.Function)
		}
		if !more {
			break
		}
	}

	// runtime.Callers reports leaf-first; samples are root-first.
	slices.Reverse(stack)

	r.mu.Lock()
	r.samples = append(r.samples, Sample{TimestampS: ts, Stack: stack})
	r.mu.Unlock()
}

// Samples returns the snapshots taken so far, in capture order.
func (r *StackRecorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.samples)
}
