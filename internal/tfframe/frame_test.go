package tfframe

import (
	"bytes"
	"testing"
)

func TestEncodeFrameLayout(t *testing.T) {
	frame := EncodeFrame(325, 1200, EncodeRawTemp(25))

	if len(frame) != FrameSize {
		t.Fatalf("expected %d byte frame, got %d", FrameSize, len(frame))
	}
	if frame[0] != HeaderByte || frame[1] != HeaderByte {
		t.Errorf("expected header bytes 0x59 0x59, got 0x%02x 0x%02x", frame[0], frame[1])
	}

	// 325 = 0x0145, little endian
	if frame[2] != 0x45 || frame[3] != 0x01 {
		t.Errorf("expected distance bytes 0x45 0x01, got 0x%02x 0x%02x", frame[2], frame[3])
	}

	if got := Checksum(frame); got != frame[8] {
		t.Errorf("checksum byte %02x does not match computed %02x", frame[8], got)
	}
}

func TestChecksumIsLowByteOfSum(t *testing.T) {
	frame := []byte{0x59, 0x59, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}
	// 0x59*2 + 0xFF*6 = 0xB2 + 0x5FA = 0x6AC -> low byte 0xAC
	if got := Checksum(frame); got != 0xAC {
		t.Errorf("Checksum = 0x%02x, want 0xAC", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame := EncodeFrame(150, 800, EncodeRawTemp(31.5))

	dec := NewDecoder(bytes.NewReader(frame))
	sample, err := dec.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}

	if sample.DistanceCM != 150 {
		t.Errorf("DistanceCM = %v, want 150", sample.DistanceCM)
	}
	if sample.Strength != 800 {
		t.Errorf("Strength = %v, want 800", sample.Strength)
	}
	if sample.TemperatureC != 31.5 {
		t.Errorf("TemperatureC = %v, want 31.5", sample.TemperatureC)
	}
	if sample.Index != 0 {
		t.Errorf("Index = %v, want 0", sample.Index)
	}
}
