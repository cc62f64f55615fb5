package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/banshee-data/surface.report/internal/detect"
	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/report"
	"github.com/banshee-data/surface.report/internal/sensorport"
	"github.com/banshee-data/surface.report/internal/tfframe"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func frameStream(distances ...float64) *bytes.Buffer {
	var buf bytes.Buffer
	for _, d := range distances {
		buf.Write(tfframe.EncodeFrame(uint16(d), 1000, tfframe.EncodeRawTemp(25)))
	}
	return &buf
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("event-%d", n)
	}
}

func TestRunDetectsSinglePothole(t *testing.T) {
	cfg := detect.DefaultConfig()
	stream := frameStream(15, 15, 16, 18, 22, 25, 24, 22, 18, 16, 15, 15)

	var collector report.Collector
	p := New(stream, cfg, &collector, WithIDFunc(sequentialIDs()))

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collector.Events()
	if len(events) != 1 {
		t.Fatalf("reported %d events, want exactly 1", len(events))
	}

	m := events[0].Measurement
	if events[0].ID != "event-1" {
		t.Errorf("event ID = %q, want event-1", events[0].ID)
	}
	if m.MaxDepthCM != 10 {
		t.Errorf("max depth = %v, want 10", m.MaxDepthCM)
	}
	if m.AvgDepthCM < 5 || m.AvgDepthCM > 7 {
		t.Errorf("avg depth = %v, want in [5, 7]", m.AvgDepthCM)
	}
	if m.Confidence <= 0.6 {
		t.Errorf("confidence = %v, want > 0.6", m.Confidence)
	}
	if m.ForceClosed {
		t.Error("cleanly closed event must not be flagged ForceClosed")
	}
}

func TestRunFlatStreamReportsNothing(t *testing.T) {
	cfg := detect.DefaultConfig()
	distances := make([]float64, 50)
	for i := range distances {
		distances[i] = 15
	}

	var collector report.Collector
	p := New(frameStream(distances...), cfg, &collector)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(collector.Events()); n != 0 {
		t.Errorf("reported %d events on a flat stream, want 0", n)
	}
}

func TestRunSurvivesCorruption(t *testing.T) {
	cfg := detect.DefaultConfig()

	// Interleave garbage between frames; the pothole must still be
	// detected once.
	var buf bytes.Buffer
	distances := []float64{15, 15, 16, 18, 22, 25, 24, 22, 18, 16, 15, 15}
	for i, d := range distances {
		if i%3 == 0 {
			buf.Write([]byte{0xDE, 0xAD})
		}
		buf.Write(tfframe.EncodeFrame(uint16(d), 1000, tfframe.EncodeRawTemp(25)))
	}

	var collector report.Collector
	p := New(&buf, cfg, &collector)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(collector.Events()); n != 1 {
		t.Errorf("reported %d events through corruption, want 1", n)
	}
}

func TestRunFlushesOpenExcursionAtEOF(t *testing.T) {
	cfg := detect.DefaultConfig()

	// Stream ends while the event is still open: the anomaly must be
	// surfaced as a force-closed, low-confidence measurement rather than
	// silently lost.
	stream := frameStream(15, 15, 15, 15, 15, 25, 26, 27, 26)

	var collector report.Collector
	p := New(stream, cfg, &collector)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collector.Events()
	if len(events) != 1 {
		t.Fatalf("reported %d events, want 1 flushed event", len(events))
	}
	if !events[0].Measurement.ForceClosed {
		t.Error("flushed event must be flagged ForceClosed")
	}
	if events[0].Measurement.Confidence > 0.25 {
		t.Errorf("flushed event confidence = %v, want <= 0.25", events[0].Measurement.Confidence)
	}
}

func TestRunDurationGuardEmitsOneFlaggedEvent(t *testing.T) {
	cfg := detect.DefaultConfig()
	cfg.MaxExcursionDurationS = 1.0 // 20 samples at 20 Hz

	// Rises above threshold and never comes back: exactly one event at
	// the guard boundary for the first excursion.
	var distances []float64
	for i := 0; i < 30; i++ {
		distances = append(distances, 15+float64(i))
	}

	var collector report.Collector
	p := New(frameStream(distances...), cfg, &collector)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collector.Events()
	if len(events) == 0 {
		t.Fatal("duration guard produced no events")
	}
	first := events[0].Measurement
	if !first.ForceClosed {
		t.Error("guard-closed event must be flagged ForceClosed")
	}
	if first.SampleCount != cfg.MaxExcursionSamples() {
		t.Errorf("guard event has %d samples, want %d", first.SampleCount, cfg.MaxExcursionSamples())
	}
	if first.Confidence > 0.25 {
		t.Errorf("guard event confidence = %v, want <= 0.25", first.Confidence)
	}
}

func TestRunRejectsOutOfRangeReadings(t *testing.T) {
	cfg := detect.DefaultConfig() // max range 1200 cm

	// A dropout spike to an impossible distance must not open an event.
	distances := []float64{15, 15, 15, 15, 15, 1300, 1300, 15, 15, 15}

	var collector report.Collector
	p := New(frameStream(distances...), cfg, &collector)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(collector.Events()); n != 0 {
		t.Errorf("reported %d events from dropout spikes, want 0", n)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	cfg := detect.DefaultConfig()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(frameStream(15, 15, 15), cfg, &report.Collector{})
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run with cancelled context = %v, want context.Canceled", err)
	}
}

func TestRunObserverSeesEverySample(t *testing.T) {
	cfg := detect.DefaultConfig()

	var seen []float64
	obs := func(sample tfframe.RangeSample, baseline detect.Baseline) {
		seen = append(seen, sample.DistanceCM)
	}

	p := New(frameStream(15, 16, 17), cfg, &report.Collector{}, WithObserver(obs))
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(seen) != 3 {
		t.Fatalf("observer saw %d samples, want 3", len(seen))
	}
	if seen[0] != 15 || seen[2] != 17 {
		t.Errorf("observer saw %v, want [15 16 17]", seen)
	}
}

func TestRunEventTimestampsUseClock(t *testing.T) {
	cfg := detect.DefaultConfig()
	fixed := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	var collector report.Collector
	p := New(
		frameStream(15, 15, 15, 15, 15, 25, 25, 15),
		cfg,
		&collector,
		WithClock(func() time.Time { return fixed }),
	)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	events := collector.Events()
	if len(events) != 1 {
		t.Fatalf("reported %d events, want 1", len(events))
	}
	if !events[0].RecordedAt.Equal(fixed) {
		t.Errorf("RecordedAt = %v, want %v", events[0].RecordedAt, fixed)
	}
}

func TestRunKeepsGoingThroughPortTimeouts(t *testing.T) {
	cfg := detect.DefaultConfig()

	// A port that runs out of data keeps returning (0, nil) like a real
	// serial timeout; the loop must keep polling until data resumes.
	port := sensorport.NewTestablePort()
	for _, d := range []float64{15, 15, 15, 15, 15, 25, 25} {
		port.AddReadData(tfframe.EncodeFrame(uint16(d), 1000, tfframe.EncodeRawTemp(25)))
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		port.AddReadData(tfframe.EncodeFrame(15, 1000, tfframe.EncodeRawTemp(25)))
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var collector report.Collector
	seen := 0
	obs := func(tfframe.RangeSample, detect.Baseline) {
		seen++
		if seen == 8 {
			cancel()
		}
	}

	p := New(port, cfg, &collector, WithObserver(obs))
	if err := p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}

	if seen != 8 {
		t.Errorf("observer saw %d samples, want 8", seen)
	}
	if n := len(collector.Events()); n != 1 {
		t.Errorf("reported %d events, want 1", n)
	}
}

func TestRunTerminatesOnPortError(t *testing.T) {
	cfg := detect.DefaultConfig()

	port := sensorport.NewTestablePort()
	port.ReadError = errors.New("device unplugged")

	p := New(port, cfg, &report.Collector{})
	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("Run must surface a hard port error")
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		t.Errorf("Run = %v, want a wrapped read error", err)
	}
}

func TestFrameStatsGetAndReset(t *testing.T) {
	fs := NewFrameStats()
	fs.AddFrame()
	fs.AddFrame()
	fs.AddTimeout()
	fs.AddMeasurement()

	frames, timeouts, desyncs, outOfRange, measurements, _ := fs.GetAndReset()
	if frames != 2 || timeouts != 1 || desyncs != 0 || outOfRange != 0 || measurements != 1 {
		t.Errorf("GetAndReset = (%d, %d, %d, %d, %d), want (2, 1, 0, 0, 1)",
			frames, timeouts, desyncs, outOfRange, measurements)
	}

	frames, timeouts, _, _, measurements, _ = fs.GetAndReset()
	if frames != 0 || timeouts != 0 || measurements != 0 {
		t.Error("counters must reset after GetAndReset")
	}
}
