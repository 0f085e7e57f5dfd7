//go:build !scopetrace_off

package scopetrace

import (
	"runtime"
	"sync"

	"github.com/tebeka/atexit"

	"github.com/tracelab/scopetrace/instrumentation"
)

var (
	defaultSession   = instrumentation.NewSession()
	registerExitOnce sync.Once
)

// BeginSession starts the default session, writing to path or to
// DefaultTracePath when no path is given. An already active default session
// is ended first. A still-open session is also ended at process exit.
func BeginSession(name string, path ...string) error {
	target := DefaultTracePath
	if len(path) > 0 {
		target = path[0]
	}

	registerExitOnce.Do(func() {
		atexit.Register(func() { defaultSession.End() })
	})

	return defaultSession.Begin(name, target)
}

// EndSession ends the default session. It is a no-op when none is active.
func EndSession() error {
	return defaultSession.End()
}

// Scope starts timing a named region against the default session. Pair with
// a deferred Stop:
//
//	defer scopetrace.Scope("LoadAssets").Stop()
func Scope(name string) *instrumentation.ScopeTimer {
	return instrumentation.NewScopeTimer(defaultSession, name)
}

// Func starts timing the calling function, using its fully qualified name.
func Func() *instrumentation.ScopeTimer {
	return Scope(callerName())
}

func callerName() string {
	pc, _, _, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}

	f := runtime.FuncForPC(pc)
	if f == nil {
		return "unknown"
	}

	return f.Name()
}
