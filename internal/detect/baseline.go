package detect

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/surface.report/internal/tfframe"
)

// modeBins is the histogram bin count used by the mode estimator.
const modeBins = 20

// Baseline is the rolling estimate of the undisturbed surface distance.
type Baseline struct {
	// SurfaceDistanceCM is the estimated distance from sensor to the
	// undisturbed road surface. Never negative.
	SurfaceDistanceCM float64

	// SampleCount is how many readings currently back the estimate,
	// capped at the window size.
	SampleCount int

	// Warm reports whether the window is full. A cold baseline is usable
	// but implicitly low-confidence.
	Warm bool
}

// BaselineTracker maintains the last N distance readings in a ring buffer
// and derives the surface baseline from them. It is deliberately
// thread-unsafe: the single sampling loop is its only caller.
type BaselineTracker struct {
	window []float64
	head   int
	count  int
}

// NewBaselineTracker creates a tracker with the given window size.
func NewBaselineTracker(windowSize int) *BaselineTracker {
	if windowSize < 1 {
		windowSize = 1
	}
	return &BaselineTracker{
		window: make([]float64, windowSize),
	}
}

// Update records the sample's distance and returns the refreshed baseline.
//
// The baseline is the minimum of three estimators over the current window:
// the window minimum, the histogram mode, and the mean of the oldest 20% of
// readings. Taking the minimum biases the baseline toward the sensor, which
// biases detected depth downward rather than upward and so suppresses false
// positives from transient drift.
func (t *BaselineTracker) Update(sample tfframe.RangeSample) Baseline {
	t.window[t.head] = sample.DistanceCM
	t.head = (t.head + 1) % len(t.window)
	if t.count < len(t.window) {
		t.count++
	}

	ordered := t.snapshot()
	estimate := math.Min(floats.Min(ordered), math.Min(histogramMode(ordered), oldestMean(ordered)))
	if estimate < 0 {
		estimate = 0
	}

	return Baseline{
		SurfaceDistanceCM: estimate,
		SampleCount:       t.count,
		Warm:              t.count == len(t.window),
	}
}

// snapshot returns the window contents ordered oldest to newest.
func (t *BaselineTracker) snapshot() []float64 {
	out := make([]float64, 0, t.count)
	if t.count < len(t.window) {
		out = append(out, t.window[:t.count]...)
		return out
	}
	out = append(out, t.window[t.head:]...)
	out = append(out, t.window[:t.head]...)
	return out
}

// histogramMode bins the readings and returns the center of the most
// populated bin. Exact-tie modes are useless on noisy floats, so the window
// is quantized the way the measured data actually clusters.
func histogramMode(values []float64) float64 {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return lo
	}

	counts := make([]int, modeBins)
	width := (hi - lo) / modeBins
	for _, v := range values {
		bin := int((v - lo) / width)
		if bin >= modeBins {
			bin = modeBins - 1
		}
		counts[bin]++
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return lo + (float64(best)+0.5)*width
}

// oldestMean averages the oldest fifth of the window (at least three
// readings when available). Early readings predate any excursion currently
// distorting the window.
func oldestMean(ordered []float64) float64 {
	k := len(ordered) / 5
	if k < 3 {
		k = 3
	}
	if k > len(ordered) {
		k = len(ordered)
	}
	return stat.Mean(ordered[:k], nil)
}
