package chrometrace

import (
	"encoding/json"
	"fmt"
	"io"
)

// CategoryFunction is the event category used for all scope and span events.
const CategoryFunction = "function"

const (
	documentHeader = `{"otherData": {},"traceEvents":[`
	documentFooter = `]}`
	eventSeparator = ", "
)

// Writer incrementally writes one trace document to a sink. The document is
// valid JSON only once WriteFooter has been called. If the sink implements
// Flush() error, the writer flushes after every element so partial documents
// reach the sink promptly.
//
// Writer is not safe for concurrent use; callers serialize access.
type Writer struct {
	w          io.Writer
	eventCount int
}

// NewWriter creates a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the document envelope opening.
func (w *Writer) WriteHeader() error {
	if _, err := io.WriteString(w.w, documentHeader); err != nil {
		return fmt.Errorf("chrometrace: writing header: %w", err)
	}

	return w.flush()
}

// WriteFooter closes the event array and the document, then flushes.
func (w *Writer) WriteFooter() error {
	if _, err := io.WriteString(w.w, documentFooter); err != nil {
		return fmt.Errorf("chrometrace: writing footer: %w", err)
	}

	return w.flush()
}

// WriteComplete appends one complete event to the document.
func (w *Writer) WriteComplete(e CompleteEvent) error {
	e.Name = SanitizeName(e.Name)
	return w.writeElement(e)
}

// WriteBegin appends a duration-begin event for the named span.
func (w *Writer) WriteBegin(name string, tsUS float64, tid uint32) error {
	return w.writeElement(DurationEvent{
		Category:    CategoryFunction,
		Name:        SanitizeName(name),
		Phase:       PhaseDurationBegin,
		TID:         tid,
		TimestampUS: tsUS,
	})
}

// WriteEnd appends a duration-end event for the named span.
func (w *Writer) WriteEnd(name string, tsUS float64, tid uint32) error {
	return w.writeElement(DurationEvent{
		Category:    CategoryFunction,
		Name:        SanitizeName(name),
		Phase:       PhaseDurationEnd,
		TID:         tid,
		TimestampUS: tsUS,
	})
}

// EventCount returns the number of events written since the writer was
// created.
func (w *Writer) EventCount() int {
	return w.eventCount
}

func (w *Writer) writeElement(e any) error {
	if w.eventCount > 0 {
		if _, err := io.WriteString(w.w, eventSeparator); err != nil {
			return fmt.Errorf("chrometrace: writing separator: %w", err)
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("chrometrace: encoding event: %w", err)
	}

	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("chrometrace: writing event: %w", err)
	}

	w.eventCount++

	return w.flush()
}

func (w *Writer) flush() error {
	f, ok := w.w.(interface{ Flush() error })
	if !ok {
		return nil
	}

	if err := f.Flush(); err != nil {
		return fmt.Errorf("chrometrace: flushing sink: %w", err)
	}

	return nil
}
