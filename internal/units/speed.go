package units

import "fmt"

// Conversion factors to centimeters per second.
const (
	cmPerMeter    = 100.0
	kphToCMPerSec = 100000.0 / 3600.0 // 1 km/h in cm/s
	mphToCMPerSec = 160934.4 / 3600.0 // 1 mph in cm/s
)

// ToCMPerSecond converts a speed in the given units to centimeters per
// second, the canonical unit of the detection pipeline.
func ToCMPerSecond(speed float64, unit string) (float64, error) {
	switch unit {
	case CMPS:
		return speed, nil
	case MPS:
		return speed * cmPerMeter, nil
	case KPH:
		return speed * kphToCMPerSec, nil
	case MPH:
		return speed * mphToCMPerSec, nil
	default:
		return 0, fmt.Errorf("unsupported speed unit %q: expected one of %s", unit, GetValidUnitsString())
	}
}

// FromCMPerSecond converts a speed in centimeters per second to the target
// units. Unknown units return the input unchanged, mirroring the permissive
// behaviour expected by display code.
func FromCMPerSecond(speedCMS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedCMS / cmPerMeter
	case KPH:
		return speedCMS / kphToCMPerSec
	case MPH:
		return speedCMS / mphToCMPerSec
	default:
		return speedCMS
	}
}
