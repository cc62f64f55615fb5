// Package report defines the envelope handed to the reporting collaborator
// for every closed measurement, plus a few basic sinks. Transmission,
// persistence, and classification all live behind the Sink interface and
// outside this repository.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/surface.report/internal/geometry"
	"github.com/banshee-data/surface.report/internal/monitoring"
)

// Event wraps one finished Measurement with its identity and wall-clock
// timestamp. The pipeline retains no reference to an Event after the sink
// accepts it.
type Event struct {
	ID          string               `json:"id"`
	RecordedAt  time.Time            `json:"recorded_at"`
	Measurement geometry.Measurement `json:"measurement"`
}

// Sink accepts events in chronological order, one per closed excursion.
type Sink interface {
	Report(Event) error
}

// JSONLineSink writes one JSON object per line to an io.Writer, typically
// stdout for downstream piping.
type JSONLineSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLineSink creates a sink writing JSON lines to w.
func NewJSONLineSink(w io.Writer) *JSONLineSink {
	return &JSONLineSink{enc: json.NewEncoder(w)}
}

// Report encodes the event as a single JSON line.
func (s *JSONLineSink) Report(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(e); err != nil {
		return fmt.Errorf("report: failed to encode event %s: %w", e.ID, err)
	}
	return nil
}

// LogSink writes a one-line summary of each event to the package logger.
type LogSink struct{}

// Report logs the event summary.
func (LogSink) Report(e Event) error {
	m := e.Measurement
	monitoring.Logf("measurement %s: depth max %.1f cm avg %.1f cm, length %.1f cm, width %.1f cm, volume %.0f cm³, confidence %.2f (%d samples)",
		e.ID, m.MaxDepthCM, m.AvgDepthCM, m.LengthCM, m.WidthCM, m.VolumeCM3, m.Confidence, m.SampleCount)
	return nil
}

// Collector retains every reported event in memory. Used by tests and the
// analysis tooling.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

// Report appends the event.
func (c *Collector) Report(e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

// Events returns a copy of the collected events in report order.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// MultiSink fans each event out to every child sink, returning the first
// error encountered.
type MultiSink []Sink

// Report forwards the event to each sink in order.
func (m MultiSink) Report(e Event) error {
	var firstErr error
	for _, s := range m {
		if err := s.Report(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
