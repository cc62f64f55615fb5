package sensorport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Open opens a real serial port at the given path using the provided
// options, with the read timeout applied so that reads never block
// indefinitely. A non-positive timeout falls back to DefaultReadTimeout.
func Open(path string, opts PortOptions, readTimeout time.Duration) (Porter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open sensor port %s: %w", path, err)
	}

	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}

	return port, nil
}
