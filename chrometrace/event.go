// Package chrometrace writes trace documents in the Chrome Trace Event JSON
// format, consumable by chrome://tracing and compatible viewers.
package chrometrace

import "strings"

// Phase markers defined by the Chrome Trace Event format.
const (
	PhaseComplete      = "X"
	PhaseDurationBegin = "B"
	PhaseDurationEnd   = "E"
)

// CompleteEvent is a Chrome "complete event": one region of execution with an
// explicit duration. Field order matters to downstream consumers and is
// preserved by serialization.
type CompleteEvent struct {
	DurationUS  uint64 `json:"dur"`
	Category    string `json:"cat"`
	Name        string `json:"name"`
	Phase       string `json:"ph"`
	PID         uint32 `json:"pid"`
	TID         uint32 `json:"tid"`
	TimestampUS uint64 `json:"ts"`
}

// DurationEvent is a Chrome duration event, the begin or end edge of a span.
// The pairing end event must nest properly within its begin event.
type DurationEvent struct {
	Category    string  `json:"cat"`
	Name        string  `json:"name"`
	Phase       string  `json:"ph"`
	PID         uint32  `json:"pid"`
	TID         uint32  `json:"tid"`
	TimestampUS float64 `json:"ts"`
}

// SanitizeName replaces every literal double-quote in name with a single
// quote, so the name embeds into the JSON document without escaping.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, `"`, `'`)
}
