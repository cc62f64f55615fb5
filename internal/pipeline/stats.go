package pipeline

import (
	"time"

	"github.com/banshee-data/surface.report/internal/monitoring"
)

// FrameStats tracks sampling loop statistics. It is owned by the sampling
// loop and is not safe for concurrent use.
type FrameStats struct {
	frames       int64
	timeouts     int64
	desyncs      int64
	outOfRange   int64
	measurements int64
	lastReset    time.Time
}

// NewFrameStats creates a FrameStats instance.
func NewFrameStats() *FrameStats {
	return &FrameStats{lastReset: time.Now()}
}

// AddFrame increments the decoded frame count.
func (fs *FrameStats) AddFrame() { fs.frames++ }

// AddTimeout increments the read timeout count.
func (fs *FrameStats) AddTimeout() { fs.timeouts++ }

// AddDesync increments the resynchronization failure count.
func (fs *FrameStats) AddDesync() { fs.desyncs++ }

// AddOutOfRange increments the rejected out-of-range reading count.
func (fs *FrameStats) AddOutOfRange() { fs.outOfRange++ }

// AddMeasurement increments the completed measurement count.
func (fs *FrameStats) AddMeasurement() { fs.measurements++ }

// GetAndReset returns current stats and resets counters.
func (fs *FrameStats) GetAndReset() (frames, timeouts, desyncs, outOfRange, measurements int64, duration time.Duration) {
	now := time.Now()
	duration = now.Sub(fs.lastReset)
	frames = fs.frames
	timeouts = fs.timeouts
	desyncs = fs.desyncs
	outOfRange = fs.outOfRange
	measurements = fs.measurements

	fs.frames = 0
	fs.timeouts = 0
	fs.desyncs = 0
	fs.outOfRange = 0
	fs.measurements = 0
	fs.lastReset = now

	return
}

// LogStats logs the interval summary if anything happened.
func (fs *FrameStats) LogStats() {
	frames, timeouts, desyncs, outOfRange, measurements, duration := fs.GetAndReset()
	if frames == 0 && timeouts == 0 && desyncs == 0 {
		return
	}

	framesPerSec := float64(frames) / duration.Seconds()
	monitoring.Logf("sampling stats: %.1f frames/sec, %d measurements, %d timeouts, %d desyncs, %d out-of-range",
		framesPerSec, measurements, timeouts, desyncs, outOfRange)
}
