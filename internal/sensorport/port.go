// Package sensorport abstracts the serial connection to the rangefinder.
// The detection core only needs a byte source with bounded reads; this
// package supplies real ports backed by go.bug.st/serial plus a testable
// in-memory implementation, so the pipeline can run against hardware,
// simulations, or recorded logs without changes.
package sensorport

import (
	"io"
	"time"
)

// Porter defines the minimal interface needed for a sensor port.
// This abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.Reader
	io.Closer
}

// TimeoutPorter extends Porter with a read timeout. Real serial ports
// implement it; reads on such ports return (0, nil) when the timeout
// elapses without data, which the frame decoder surfaces as an explicit
// no-sample result.
type TimeoutPorter interface {
	Porter
	SetReadTimeout(timeout time.Duration) error
}

// DefaultReadTimeout bounds a single blocking read on a real port. A
// disconnected sensor therefore produces timeouts, never a hung sampling
// loop.
const DefaultReadTimeout = 250 * time.Millisecond
