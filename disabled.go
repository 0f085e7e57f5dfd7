//go:build scopetrace_off

package scopetrace

import "github.com/tracelab/scopetrace/instrumentation"

// BeginSession is a no-op in scopetrace_off builds. No file is created.
func BeginSession(name string, path ...string) error {
	return nil
}

// EndSession is a no-op in scopetrace_off builds.
func EndSession() error {
	return nil
}

// Scope is a no-op in scopetrace_off builds. The returned nil timer accepts
// Stop.
func Scope(name string) *instrumentation.ScopeTimer {
	return nil
}

// Func is a no-op in scopetrace_off builds.
func Func() *instrumentation.ScopeTimer {
	return nil
}
