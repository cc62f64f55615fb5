// Package tfframe decodes the fixed 9-byte binary frames emitted by
// TF02-Pro rangefinders over a raw serial channel. The channel has no flow
// control and no alignment guarantee, so the decoder scans byte-by-byte for
// the frame header and validates every candidate frame with its checksum
// before emitting a sample.
package tfframe

// Frame layout constants, fixed by the sensor hardware.
const (
	// HeaderByte is the sentinel value repeated twice at the start of
	// every frame.
	HeaderByte = 0x59

	// FrameSize is the total frame length in bytes: two header bytes,
	// six payload bytes, one checksum byte.
	FrameSize = 9
)

// RangeSample is one validated sensor reading. Samples are immutable once
// produced and are passed downstream by value.
type RangeSample struct {
	DistanceCM   float64 // measured distance in centimeters
	Strength     int     // raw signal strength reported by the sensor
	TemperatureC float64 // internal sensor temperature in °C
	Index        uint64  // monotonically increasing sample number
}

// Checksum computes the additive frame checksum: the low byte of the sum of
// the first eight frame bytes.
func Checksum(frame []byte) byte {
	var sum int
	for _, b := range frame[:FrameSize-1] {
		sum += int(b)
	}
	return byte(sum & 0xFF)
}

// EncodeFrame builds a valid 9-byte frame for the given readings. It is used
// by the simulator, log replay, and tests; production frames come from the
// sensor itself.
func EncodeFrame(distanceCM uint16, strength uint16, rawTemp uint16) []byte {
	frame := make([]byte, FrameSize)
	frame[0] = HeaderByte
	frame[1] = HeaderByte
	frame[2] = byte(distanceCM & 0xFF)
	frame[3] = byte(distanceCM >> 8)
	frame[4] = byte(strength & 0xFF)
	frame[5] = byte(strength >> 8)
	frame[6] = byte(rawTemp & 0xFF)
	frame[7] = byte(rawTemp >> 8)
	frame[8] = Checksum(frame)
	return frame
}

// EncodeRawTemp converts a temperature in °C to the sensor's raw 16-bit
// representation (raw = (°C + 256) × 8).
func EncodeRawTemp(tempC float64) uint16 {
	return uint16((tempC + 256.0) * 8.0)
}

// decodeRawTemp converts the sensor's raw temperature field to °C.
func decodeRawTemp(raw uint16) float64 {
	return float64(raw)/8.0 - 256.0
}
