// Package replay records range samples to CSV logs and plays logs back as
// a frame stream, so a field capture can be rerun through the detection
// chain with different tuning.
package replay

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/banshee-data/surface.report/internal/detect"
	"github.com/banshee-data/surface.report/internal/monitoring"
	"github.com/banshee-data/surface.report/internal/tfframe"
)

// logHeader is the first row of every range log. Kept stable so existing
// analysis scripts keep working.
var logHeader = []string{"timestamp", "distance"}

// Recorder appends range samples to a CSV log. Its Observe method has the
// pipeline's observer shape, so recording is one option away on a live
// run. Not safe for concurrent use.
type Recorder struct {
	w   *csv.Writer
	now func() time.Time
	err error
}

// NewRecorder writes the log header and returns a recorder.
func NewRecorder(w io.Writer) (*Recorder, error) {
	r := &Recorder{w: csv.NewWriter(w), now: time.Now}
	if err := r.w.Write(logHeader); err != nil {
		return nil, fmt.Errorf("replay: writing log header: %w", err)
	}
	return r, nil
}

// Observe records one sample. Write errors are sticky and surfaced by
// Flush; the sampling loop is never interrupted for a bad log disk.
func (r *Recorder) Observe(sample tfframe.RangeSample, _ detect.Baseline) {
	if r.err != nil {
		return
	}
	row := []string{
		strconv.FormatFloat(float64(r.now().UnixNano())/1e9, 'f', 3, 64),
		strconv.FormatFloat(sample.DistanceCM, 'f', 1, 64),
	}
	r.err = r.w.Write(row)
}

// Flush flushes buffered rows and reports the first error seen.
func (r *Recorder) Flush() error {
	r.w.Flush()
	if r.err != nil {
		return r.err
	}
	return r.w.Error()
}

// NewLogReader parses a range log and returns the equivalent frame stream.
// Malformed rows are counted and skipped; a log that yields no samples at
// all is an error.
func NewLogReader(r io.Reader) (io.Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var buf bytes.Buffer
	var samples, skipped int
	first := true

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("replay: reading log: %w", err)
		}

		if first {
			first = false
			if len(row) >= 1 && row[0] == logHeader[0] {
				continue
			}
		}

		if len(row) < 2 {
			skipped++
			continue
		}
		dist, err := strconv.ParseFloat(row[1], 64)
		if err != nil || dist < 0 || dist > 65535 {
			skipped++
			continue
		}

		buf.Write(tfframe.EncodeFrame(uint16(dist+0.5), 1000, tfframe.EncodeRawTemp(25)))
		samples++
	}

	if skipped > 0 {
		monitoring.Logf("replay: skipped %d malformed log rows", skipped)
	}
	if samples == 0 {
		return nil, errors.New("replay: log contains no usable samples")
	}
	return &buf, nil
}
