package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/surface.report/internal/geometry"
)

func testEvent(id string) Event {
	return Event{
		ID:         id,
		RecordedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Measurement: geometry.Measurement{
			MaxDepthCM:  10,
			AvgDepthCM:  6.2,
			LengthCM:    6,
			WidthCM:     7,
			VolumeCM3:   135.9,
			Confidence:  0.68,
			SampleCount: 7,
			DurationS:   0.35,
		},
	}
}

func TestJSONLineSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLineSink(&buf)

	if err := sink.Report(testEvent("ev-1")); err != nil {
		t.Fatalf("Report: %v", err)
	}
	if err := sink.Report(testEvent("ev-2")); err != nil {
		t.Fatalf("Report: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2", len(lines))
	}

	var decoded Event
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("output line is not valid JSON: %v", err)
	}
	if decoded.ID != "ev-1" {
		t.Errorf("decoded ID = %q, want ev-1", decoded.ID)
	}
	if decoded.Measurement.MaxDepthCM != 10 {
		t.Errorf("decoded max depth = %v, want 10", decoded.Measurement.MaxDepthCM)
	}
}

func TestCollectorPreservesOrder(t *testing.T) {
	var c Collector
	for _, id := range []string{"a", "b", "c"} {
		if err := c.Report(testEvent(id)); err != nil {
			t.Fatalf("Report: %v", err)
		}
	}

	events := c.Events()
	if len(events) != 3 {
		t.Fatalf("collected %d events, want 3", len(events))
	}
	for i, want := range []string{"a", "b", "c"} {
		if events[i].ID != want {
			t.Errorf("event %d has ID %q, want %q", i, events[i].ID, want)
		}
	}
}

type failingSink struct{ err error }

func (f failingSink) Report(Event) error { return f.err }

func TestMultiSinkReportsAllAndReturnsFirstError(t *testing.T) {
	var c1, c2 Collector
	wantErr := errors.New("sink down")
	multi := MultiSink{&c1, failingSink{wantErr}, &c2}

	err := multi.Report(testEvent("x"))
	if !errors.Is(err, wantErr) {
		t.Errorf("Report error = %v, want %v", err, wantErr)
	}
	if len(c1.Events()) != 1 || len(c2.Events()) != 1 {
		t.Error("all sinks must still receive the event when one fails")
	}
}
