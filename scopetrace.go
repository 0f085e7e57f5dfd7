// Package scopetrace times scoped code regions and writes them as a Chrome
// Trace Event JSON document, viewable in chrome://tracing.
//
// The package-level API manages one default session for programs that want
// drop-in instrumentation:
//
//	scopetrace.BeginSession("Startup", "trace.json")
//	defer scopetrace.EndSession()
//
//	func loadAssets() {
//		defer scopetrace.Func().Stop()
//		...
//	}
//
// Programs needing multiple independent sessions use the instrumentation
// package directly.
//
// Building with the scopetrace_off tag replaces this API with no-ops: no
// files are created and timers cost nothing.
package scopetrace

// DefaultTracePath is where BeginSession writes when no path is given.
const DefaultTracePath = "results.json"
