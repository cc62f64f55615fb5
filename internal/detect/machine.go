package detect

import (
	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/tfframe"
)

// State represents the lifecycle state of the event machine.
type State string

const (
	StateIdle     State = "idle"     // No open excursion
	StateTracking State = "tracking" // An excursion is being accumulated
)

// ExcursionSample is one reading accumulated into an open excursion. Depth
// is clamped to zero at the point of computation: negative deviations are
// bumps, not depressions, and are out of scope.
type ExcursionSample struct {
	DistanceCM float64
	DepthCM    float64
}

// Excursion is a contiguous run of samples whose depth exceeded the
// detection threshold: the in-flight representation of a candidate anomaly.
// The event machine owns the excursion exclusively until it closes, then
// hands it out exactly once.
type Excursion struct {
	// StartIndex is the sample index of the triggering reading.
	StartIndex uint64

	// Samples holds every reading from the trigger through close, in
	// arrival order.
	Samples []ExcursionSample

	// ForceClosed marks excursions closed by the duration guard (or a
	// shutdown flush) rather than a clean return to the surface. They are
	// reported with reduced confidence, never dropped.
	ForceClosed bool
}

// SampleCount returns the number of accumulated samples.
func (e *Excursion) SampleCount() int { return len(e.Samples) }

// EventMachine decides when an excursion starts, continues, and ends. It
// consumes (sample, baseline) pairs in arrival order from the single
// sampling loop; it has no internal locking by design.
type EventMachine struct {
	cfg        Config
	maxSamples int

	state      State
	open       *Excursion
	belowCount int
}

// NewEventMachine creates an event machine with the given configuration.
func NewEventMachine(cfg Config) *EventMachine {
	return &EventMachine{
		cfg:        cfg,
		maxSamples: cfg.MaxExcursionSamples(),
		state:      StateIdle,
	}
}

// State returns the current lifecycle state.
func (m *EventMachine) State() State { return m.state }

// Step feeds one sample and its baseline through the machine. It returns a
// closed excursion when this sample completed one, or nil.
//
// The baseline keeps updating from all samples, including those inside an
// open excursion; on long events it drifts toward the excursion's own depth
// and under-reports. The duration guard bounds how long that can go on.
func (m *EventMachine) Step(sample tfframe.RangeSample, baseline Baseline) *Excursion {
	depth := sample.DistanceCM - baseline.SurfaceDistanceCM
	if depth < 0 {
		depth = 0
	}

	switch m.state {
	case StateIdle:
		if baseline.SampleCount < MinWarmupSamples {
			return nil
		}
		if depth > m.cfg.PotholeThresholdCM {
			m.open = &Excursion{
				StartIndex: sample.Index,
				Samples:    []ExcursionSample{{DistanceCM: sample.DistanceCM, DepthCM: depth}},
			}
			m.belowCount = 0
			m.state = StateTracking
			monitoring.Logf("detect: excursion opened at sample %d (depth %.2f cm, baseline %.2f cm)",
				sample.Index, depth, baseline.SurfaceDistanceCM)
		}
		return nil

	case StateTracking:
		m.open.Samples = append(m.open.Samples, ExcursionSample{DistanceCM: sample.DistanceCM, DepthCM: depth})

		if depth > m.cfg.CloseToleranceCM {
			m.belowCount = 0
		} else {
			m.belowCount++
			if m.belowCount >= m.cfg.DebounceSamples {
				return m.close(false)
			}
		}

		if len(m.open.Samples) >= m.maxSamples {
			monitoring.Logf("detect: excursion exceeded %d samples, force-closing", m.maxSamples)
			return m.close(true)
		}
		return nil
	}

	return nil
}

// Flush force-closes and returns any open excursion. Callers use it at
// shutdown so a detected anomaly is surfaced with low confidence rather
// than lost.
func (m *EventMachine) Flush() *Excursion {
	if m.state != StateTracking {
		return nil
	}
	return m.close(true)
}

func (m *EventMachine) close(forced bool) *Excursion {
	closed := m.open
	closed.ForceClosed = forced
	m.open = nil
	m.belowCount = 0
	m.state = StateIdle
	return closed
}
