// Package geometry computes summary geometry for closed excursions: depth,
// length, width, volume, and a confidence score. Estimate is a pure
// function of its inputs so repeated calls on the same excursion are
// bit-identical.
//
// A single-point rangefinder observes only a one-dimensional depth profile
// along the direction of travel. Length follows from travel distance;
// width is always inferred, never measured, so three independent width
// models are blended to hedge against any one model's systematic bias.
package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/surface.report/internal/detect"
)

// ErrNoSamples reports an excursion that reached the estimator with no
// samples. The event machine's invariants make this unreachable in the
// pipeline; the estimator still refuses to produce NaN geometry from it.
var ErrNoSamples = errors.New("geometry: excursion has no samples")

// Sanity bounds on inferred dimensions, in centimeters. A pothole outside
// these bounds is a measurement artifact, not a road feature.
const (
	minLengthCM = 5.0
	maxLengthCM = 200.0
	minWidthCM  = 5.0
	maxWidthCM  = 150.0
)

// Width model weights. The length model dominates because travel distance
// is the only directly-derived quantity.
const (
	widthFromLengthRatio = 0.85
	widthFromDepthScale  = 2.5
	widthFromStddevScale = 3.0

	widthWeightLength = 0.5
	widthWeightDepth  = 0.3
	widthWeightStddev = 0.2
)

// forceClosedConfidenceCap bounds the confidence of excursions that were
// closed by the duration guard instead of a clean return to the surface.
const forceClosedConfidenceCap = 0.25

// Measurement is the finished, immutable description of one detected
// anomaly. Field units are centimeters, cm³, and seconds.
type Measurement struct {
	MaxDepthCM  float64 `json:"max_depth_cm"`
	AvgDepthCM  float64 `json:"avg_depth_cm"`
	LengthCM    float64 `json:"length_cm"`
	WidthCM     float64 `json:"width_cm"`
	VolumeCM3   float64 `json:"volume_cm3"`
	Confidence  float64 `json:"confidence"`
	SampleCount int     `json:"sample_count"`
	DurationS   float64 `json:"duration_s"`
	ForceClosed bool    `json:"force_closed,omitempty"`
}

// Estimate computes the geometry of a closed excursion using the vehicle
// speed and sampling rate from cfg.
func Estimate(exc *detect.Excursion, cfg detect.Config) (Measurement, error) {
	if exc == nil || len(exc.Samples) == 0 {
		return Measurement{}, ErrNoSamples
	}

	total := len(exc.Samples)
	duration := float64(total) / cfg.SamplingRateHz

	// Positive depths are the pothole proper; zero-depth samples inside
	// the excursion window are shoulder readings.
	var depths []float64
	var overThreshold int
	for _, s := range exc.Samples {
		if s.DepthCM > 0 {
			depths = append(depths, s.DepthCM)
		}
		if s.DepthCM > cfg.PotholeThresholdCM {
			overThreshold++
		}
	}

	if len(depths) == 0 {
		// The window never dipped below the surface: nothing to measure.
		return Measurement{
			SampleCount: total,
			DurationS:   duration,
			ForceClosed: exc.ForceClosed,
		}, nil
	}

	maxDepth := 0.0
	for _, d := range depths {
		if d > maxDepth {
			maxDepth = d
		}
	}
	avgDepth := stat.Mean(depths, nil)

	length := estimateLength(duration, cfg.VehicleSpeedCMS, overThreshold, total)
	width := estimateWidth(depths, maxDepth, length)
	volume := (math.Pi / 6) * length * width * avgDepth

	confidence := estimateConfidence(exc, depths, maxDepth, avgDepth, cfg)

	return Measurement{
		MaxDepthCM:  maxDepth,
		AvgDepthCM:  avgDepth,
		LengthCM:    length,
		WidthCM:     width,
		VolumeCM3:   volume,
		Confidence:  confidence,
		SampleCount: total,
		DurationS:   duration,
		ForceClosed: exc.ForceClosed,
	}, nil
}

// estimateLength converts the excursion's open window to travel distance
// and discounts the share of samples that never cleared the detection
// threshold, so the reported length reflects the portion of travel actually
// over the anomaly.
func estimateLength(duration, speedCMS float64, overThreshold, total int) float64 {
	distance := duration * speedCMS
	ratio := float64(overThreshold) / float64(total)
	length := distance * ratio

	return clamp(length, minLengthCM, maxLengthCM)
}

// estimateWidth blends three independent width models: a geometric model
// (wider potholes tend to be deeper), a length-ratio model (typical
// potholes have a length:width ratio near 0.85), and a profile-variance
// model (wider potholes show more gradual depth change).
func estimateWidth(depths []float64, maxDepth, length float64) float64 {
	fromDepth := widthFromDepthScale * math.Sqrt(maxDepth)
	fromLength := widthFromLengthRatio * length

	fromStddev := fromLength
	if len(depths) > 1 {
		fromStddev = widthFromStddevScale * stat.StdDev(depths, nil)
	}

	width := widthWeightLength*fromLength + widthWeightDepth*fromDepth + widthWeightStddev*fromStddev
	width = clamp(width, minWidthCM, maxWidthCM)

	// Wider than 1.5x the length is not a believable pothole shape.
	if width > length*1.5 {
		width = length * 1.5
	}
	return width
}

// estimateConfidence averages up to four independently clamped [0,1]
// sub-scores: sample adequacy, depth consistency, baseline distinction, and
// profile shape. Excursions below the minimum sample count score zero
// outright; guard-closed excursions are capped low.
func estimateConfidence(exc *detect.Excursion, depths []float64, maxDepth, avgDepth float64, cfg detect.Config) float64 {
	if len(exc.Samples) < cfg.MinConfidenceSampleCount {
		return 0
	}

	var factors []float64

	// Sample adequacy: ten positive samples for full marks.
	factors = append(factors, clamp(float64(len(depths))/10.0, 0, 1))

	// Depth consistency: coefficient of variation of the positive depths.
	if len(depths) > 1 && avgDepth > 0 {
		cv := stat.StdDev(depths, nil) / avgDepth
		factors = append(factors, clamp(1.0-cv, 0, 1))
	}

	// Baseline distinction: depth well above the detection threshold.
	factors = append(factors, clamp(maxDepth/(3.0*cfg.PotholeThresholdCM), 0, 1))

	// Profile shape: a real pothole shows a rise then a fall, not a
	// monotonic ramp or a single-sample spike.
	if len(exc.Samples) > 5 {
		factors = append(factors, shapeScore(exc.Samples))
	}

	confidence := stat.Mean(factors, nil)
	if exc.ForceClosed && confidence > forceClosedConfidenceCap {
		confidence = forceClosedConfidenceCap
	}
	return confidence
}

// shapeScore checks whether the distance profile rises through the first
// half of the excursion and falls through the second.
func shapeScore(samples []detect.ExcursionSample) float64 {
	mid := len(samples) / 2

	firstTrend := meanDiff(samples[:mid])
	secondTrend := meanDiff(samples[mid:])

	if firstTrend > 0 && secondTrend < 0 {
		return 1.0
	}
	return 0.5
}

// meanDiff returns the mean sample-to-sample change in distance.
func meanDiff(samples []detect.ExcursionSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(samples); i++ {
		sum += samples[i].DistanceCM - samples[i-1].DistanceCM
	}
	return sum / float64(len(samples)-1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
