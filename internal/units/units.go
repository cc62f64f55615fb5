// Package units provides shared constants and validation for speed units
// used by command-line flags. Speeds are stored internally in centimeters
// per second, matching the sensor geometry.
package units

// Unit constants
const (
	CMPS = "cmps"
	MPS  = "mps"
	KPH  = "kph"
	MPH  = "mph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{CMPS, MPS, KPH, MPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "cmps, mps, kph, mph"
}
