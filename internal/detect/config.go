// Package detect contains the surface anomaly detection core: a rolling
// baseline estimate of the undisturbed road surface and a two-state event
// machine that turns contiguous depth excursions into closed events.
package detect

import "fmt"

// MinWarmupSamples is the minimum number of baseline window samples required
// before the event machine will open an excursion. Triggering against an
// essentially empty window would compare readings to a baseline made of one
// or two points.
const MinWarmupSamples = 5

// Config holds the tuning parameters shared by the detection core and the
// geometry estimator. It is constructed once at startup and passed by value;
// nothing re-reads it dynamically.
type Config struct {
	// PotholeThresholdCM is the depth that opens an excursion.
	PotholeThresholdCM float64

	// CloseToleranceCM is the hysteresis band for closing: samples at or
	// below this depth count toward the debounce counter.
	CloseToleranceCM float64

	// VehicleSpeedCMS is the assumed vehicle ground speed in cm/s.
	VehicleSpeedCMS float64

	// SamplingRateHz is the sensor sampling frequency.
	SamplingRateHz float64

	// BaselineWindowSize is the rolling window length for the baseline
	// estimate.
	BaselineWindowSize int

	// MaxExcursionDurationS force-closes excursions open longer than this,
	// protecting against a corrupted baseline holding an event open
	// forever.
	MaxExcursionDurationS float64

	// DebounceSamples is the number of consecutive at-or-below-tolerance
	// samples required to close an open excursion.
	DebounceSamples int

	// MinConfidenceSampleCount is the sample count below which a
	// measurement always reports confidence zero.
	MinConfidenceSampleCount int

	// MaxRangeCM rejects readings beyond the sensor's usable range
	// (impossible spikes from dropouts).
	MaxRangeCM float64
}

// DefaultConfig returns the tuning used on the production vehicle.
func DefaultConfig() Config {
	return Config{
		PotholeThresholdCM:       5.0,
		CloseToleranceCM:         0.5,
		VehicleSpeedCMS:          30.0,
		SamplingRateHz:           20.0,
		BaselineWindowSize:       20,
		MaxExcursionDurationS:    5.0,
		DebounceSamples:          1,
		MinConfidenceSampleCount: 3,
		MaxRangeCM:               1200.0, // TF02-Pro max range is 12 m
	}
}

// Validate checks the configuration for values that would break the
// detection arithmetic.
func (c Config) Validate() error {
	if c.PotholeThresholdCM <= 0 {
		return fmt.Errorf("pothole threshold must be positive, got %v", c.PotholeThresholdCM)
	}
	if c.CloseToleranceCM < 0 {
		return fmt.Errorf("close tolerance must be non-negative, got %v", c.CloseToleranceCM)
	}
	if c.CloseToleranceCM >= c.PotholeThresholdCM {
		return fmt.Errorf("close tolerance %v must be below the pothole threshold %v", c.CloseToleranceCM, c.PotholeThresholdCM)
	}
	if c.VehicleSpeedCMS <= 0 {
		return fmt.Errorf("vehicle speed must be positive, got %v", c.VehicleSpeedCMS)
	}
	if c.SamplingRateHz <= 0 {
		return fmt.Errorf("sampling rate must be positive, got %v", c.SamplingRateHz)
	}
	if c.BaselineWindowSize < MinWarmupSamples {
		return fmt.Errorf("baseline window size must be at least %d, got %d", MinWarmupSamples, c.BaselineWindowSize)
	}
	if c.MaxExcursionDurationS <= 0 {
		return fmt.Errorf("max excursion duration must be positive, got %v", c.MaxExcursionDurationS)
	}
	if c.DebounceSamples < 1 {
		return fmt.Errorf("debounce samples must be at least 1, got %d", c.DebounceSamples)
	}
	if c.MinConfidenceSampleCount < 1 {
		return fmt.Errorf("min confidence sample count must be at least 1, got %d", c.MinConfidenceSampleCount)
	}
	if c.MaxRangeCM <= 0 {
		return fmt.Errorf("max range must be positive, got %v", c.MaxRangeCM)
	}
	return nil
}

// MaxExcursionSamples converts the duration guard to a sample count at the
// configured sampling rate. Always at least 1.
func (c Config) MaxExcursionSamples() int {
	n := int(c.MaxExcursionDurationS * c.SamplingRateHz)
	if n < 1 {
		n = 1
	}
	return n
}
