package tfframe

import (
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/surface.report/internal/monitoring"
)

// DefaultSearchBudget is the maximum number of bytes a single Next call may
// discard while hunting for a valid frame before reporting ErrDesync. The
// budget keeps a corrupted stream from stalling the sampling loop.
const DefaultSearchBudget = 100

var (
	// ErrTimeout reports that the byte source produced no data within its
	// read bound. Distinct from a valid zero-distance reading.
	ErrTimeout = errors.New("tfframe: no data from source this read")

	// ErrDesync reports that the search budget was exhausted without
	// finding a valid frame. The decoder keeps searching on the next call.
	ErrDesync = errors.New("tfframe: header search budget exhausted")
)

// Decoder turns a raw byte stream into a lazy, unbounded sequence of
// validated RangeSamples. It owns the reader: no other component may consume
// bytes from the same stream. Decoder is not safe for concurrent use; it is
// driven from the single sampling loop.
type Decoder struct {
	r            io.Reader
	buf          []byte
	scratch      [64]byte
	searchBudget int

	nextIndex uint64
	bytesRead uint64
	discarded uint64
}

// NewDecoder creates a Decoder reading frames from r with the default
// search budget.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:            r,
		searchBudget: DefaultSearchBudget,
	}
}

// SetSearchBudget overrides the per-call resynchronization budget. Values
// below FrameSize are raised to FrameSize so a single clean frame can always
// be decoded.
func (d *Decoder) SetSearchBudget(budget int) {
	if budget < FrameSize {
		budget = FrameSize
	}
	d.searchBudget = budget
}

// BytesRead returns the total number of bytes consumed from the source.
func (d *Decoder) BytesRead() uint64 { return d.bytesRead }

// BytesDiscarded returns the total number of bytes dropped during
// resynchronization.
func (d *Decoder) BytesDiscarded() uint64 { return d.discarded }

// Next returns the next validated sample from the stream.
//
// It never blocks beyond the reader's own read bound: if the source yields
// nothing, Next returns ErrTimeout; if the search budget is exhausted on
// corrupted data, Next returns ErrDesync and resumes the scan on the
// following call. Both conditions mean "no sample this call" and are
// recoverable. An io.EOF from the source is surfaced once the buffered
// bytes are exhausted.
func (d *Decoder) Next() (RangeSample, error) {
	budget := d.searchBudget

	for {
		// Drop bytes until the buffer starts with the two-byte header.
		for len(d.buf) >= 1 && (d.buf[0] != HeaderByte || (len(d.buf) >= 2 && d.buf[1] != HeaderByte)) {
			d.dropByte()
			budget--
			if budget <= 0 {
				return RangeSample{}, ErrDesync
			}
		}

		if len(d.buf) >= FrameSize {
			frame := d.buf[:FrameSize]
			if Checksum(frame) == frame[FrameSize-1] {
				sample := d.parseFrame(frame)
				d.buf = d.buf[FrameSize:]
				return sample, nil
			}

			// A false header inside corrupted data. Resume the scan
			// from the byte after the first sentinel.
			monitoring.Logf("tfframe: checksum mismatch, discarding byte and resyncing")
			d.dropByte()
			budget--
			if budget <= 0 {
				return RangeSample{}, ErrDesync
			}
			continue
		}

		// Need more bytes: either no header candidate yet or a frame is
		// still incomplete.
		if err := d.fill(); err != nil {
			return RangeSample{}, err
		}
	}
}

// parseFrame converts a checksum-validated frame into a RangeSample.
func (d *Decoder) parseFrame(frame []byte) RangeSample {
	distance := int(frame[2]) + int(frame[3])*256
	strength := int(frame[4]) + int(frame[5])*256
	rawTemp := uint16(frame[6]) + uint16(frame[7])*256

	sample := RangeSample{
		DistanceCM:   float64(distance),
		Strength:     strength,
		TemperatureC: decodeRawTemp(rawTemp),
		Index:        d.nextIndex,
	}
	d.nextIndex++
	return sample
}

// dropByte discards the first buffered byte.
func (d *Decoder) dropByte() {
	d.buf = d.buf[1:]
	d.discarded++
}

// fill reads more bytes from the source into the buffer. A read that makes
// no progress without error is treated as a timeout.
func (d *Decoder) fill() error {
	n, err := d.r.Read(d.scratch[:])
	if n > 0 {
		d.buf = append(d.buf, d.scratch[:n]...)
		d.bytesRead += uint64(n)
		return nil
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("tfframe: read failed: %w", err)
	}
	return ErrTimeout
}
