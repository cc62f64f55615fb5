// Package pipeline wires the sampling loop: frame decoding, baseline
// tracking, event detection, geometry estimation, and reporting, in that
// fixed order, once per sample. The loop is single-threaded and owns the
// byte source exclusively; a multi-threaded host must run the whole
// pipeline on one dedicated goroutine and take completed events off a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/surface.report/internal/detect"
	"github.com/banshee-data/surface.report/internal/geometry"
	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/report"
	"github.com/banshee-data/surface.report/internal/tfframe"
)

// DefaultStatsInterval is how often the loop logs its counters.
const DefaultStatsInterval = 60 * time.Second

// SampleObserver receives every accepted sample and its baseline. Used by
// the recorder and analysis tooling; may be nil.
type SampleObserver func(sample tfframe.RangeSample, baseline detect.Baseline)

// Pipeline is the assembled detection chain.
type Pipeline struct {
	dec     *tfframe.Decoder
	tracker *detect.BaselineTracker
	machine *detect.EventMachine
	cfg     detect.Config
	sink    report.Sink
	stats   *FrameStats

	observer      SampleObserver
	statsInterval time.Duration

	now   func() time.Time
	newID func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver attaches a per-sample observer.
func WithObserver(obs SampleObserver) Option {
	return func(p *Pipeline) { p.observer = obs }
}

// WithStatsInterval overrides the stats logging interval.
func WithStatsInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.statsInterval = d }
}

// WithClock overrides the wall clock. Tests use it for deterministic
// event timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDFunc overrides event ID generation. Tests use it for deterministic
// IDs.
func WithIDFunc(f func() string) Option {
	return func(p *Pipeline) { p.newID = f }
}

// New assembles a pipeline reading frames from r and reporting completed
// measurements to sink. The configuration must already be validated.
func New(r io.Reader, cfg detect.Config, sink report.Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		dec:           tfframe.NewDecoder(r),
		tracker:       detect.NewBaselineTracker(cfg.BaselineWindowSize),
		machine:       detect.NewEventMachine(cfg),
		cfg:           cfg,
		sink:          sink,
		stats:         NewFrameStats(),
		statsInterval: DefaultStatsInterval,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives the sampling loop until the context is cancelled or the byte
// source ends. Decode timeouts and desyncs are counted and the loop keeps
// going; nothing on the data path terminates the process. On exit any open
// excursion is flushed as a force-closed, low-confidence measurement.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.flush()

	lastStats := p.now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sample, err := p.dec.Next()
		switch {
		case err == nil:
			p.step(sample)
		case errors.Is(err, tfframe.ErrTimeout):
			p.stats.AddTimeout()
		case errors.Is(err, tfframe.ErrDesync):
			p.stats.AddDesync()
		case errors.Is(err, io.EOF):
			// End of a finite source (replay, simulation).
			return nil
		default:
			return fmt.Errorf("pipeline: sampling loop failed: %w", err)
		}

		if now := p.now(); now.Sub(lastStats) >= p.statsInterval {
			p.stats.LogStats()
			lastStats = now
		}
	}
}

// step feeds one decoded sample through the detection chain.
func (p *Pipeline) step(sample tfframe.RangeSample) {
	if sample.DistanceCM > p.cfg.MaxRangeCM {
		p.stats.AddOutOfRange()
		return
	}
	p.stats.AddFrame()

	baseline := p.tracker.Update(sample)
	if p.observer != nil {
		p.observer(sample, baseline)
	}

	if exc := p.machine.Step(sample, baseline); exc != nil {
		p.emit(exc)
	}
}

// flush closes and reports any in-flight excursion.
func (p *Pipeline) flush() {
	if exc := p.machine.Flush(); exc != nil {
		monitoring.Logf("pipeline: flushing open excursion (%d samples) at shutdown", exc.SampleCount())
		p.emit(exc)
	}
}

// emit estimates geometry for a closed excursion and reports it.
func (p *Pipeline) emit(exc *detect.Excursion) {
	m, err := geometry.Estimate(exc, p.cfg)
	if err != nil {
		// State-machine invariants should make this unreachable; a
		// degenerate excursion is dropped loudly rather than reported
		// as garbage geometry.
		monitoring.Logf("pipeline: discarding degenerate excursion: %v", err)
		return
	}

	event := report.Event{
		ID:          p.newID(),
		RecordedAt:  p.now(),
		Measurement: m,
	}
	if err := p.sink.Report(event); err != nil {
		monitoring.Logf("pipeline: sink rejected event %s: %v", event.ID, err)
	}
	p.stats.AddMeasurement()
}
