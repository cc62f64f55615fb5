// Package sim generates synthetic rangefinder byte streams for development
// and testing without hardware. A Profile describes a stretch of road as
// the sensor would see it; readers serve the encoded frames either as fast
// as the consumer pulls them or paced at the sensor's real sampling rate.
package sim

import (
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/banshee-data/surface.report/internal/tfframe"
)

// Pothole places one depression on a simulated road profile. The depth
// follows a half-sine bowl over WidthSamples readings, which is close to
// what the sensor reports crossing a real pothole at speed.
type Pothole struct {
	StartSample  int
	DepthCM      float64
	WidthSamples int
}

// Profile describes a simulated road pass.
type Profile struct {
	// SurfaceDistanceCM is the nominal sensor-to-road distance.
	SurfaceDistanceCM float64

	// TotalSamples is the length of the pass in readings.
	TotalSamples int

	// NoiseStdDevCM adds gaussian noise to every reading. Zero disables.
	NoiseStdDevCM float64

	// CorruptionRate is the per-frame probability of injecting garbage
	// bytes ahead of the frame, exercising decoder resynchronization.
	// Zero disables.
	CorruptionRate float64

	// Seed makes noise and corruption reproducible.
	Seed int64

	Potholes []Pothole
}

// DefaultProfile is a half-minute pass at 20 Hz over two potholes, light
// noise, occasional corruption. Used by the dev mode of the scanner CLI.
func DefaultProfile() Profile {
	return Profile{
		SurfaceDistanceCM: 15,
		TotalSamples:      600,
		NoiseStdDevCM:     0.3,
		CorruptionRate:    0.01,
		Seed:              1,
		Potholes: []Pothole{
			{StartSample: 100, DepthCM: 9, WidthSamples: 8},
			{StartSample: 400, DepthCM: 14, WidthSamples: 12},
		},
	}
}

// Distances renders the profile to per-sample distances, without noise.
// Overlapping potholes combine by taking the deeper one.
func (p Profile) Distances() []float64 {
	out := make([]float64, p.TotalSamples)
	for i := range out {
		out[i] = p.SurfaceDistanceCM
	}
	for _, ph := range p.Potholes {
		for j := 0; j < ph.WidthSamples; j++ {
			i := ph.StartSample + j
			if i < 0 || i >= len(out) {
				continue
			}
			// Half-sine bowl, zero depth at both edges.
			t := float64(j+1) / float64(ph.WidthSamples+1)
			d := p.SurfaceDistanceCM + ph.DepthCM*math.Sin(math.Pi*t)
			if d > out[i] {
				out[i] = d
			}
		}
	}
	return out
}

// Reader serves a profile's encoded frame stream and then io.EOF. It is
// not safe for concurrent use.
type Reader struct {
	data []byte
	off  int
}

// NewReader encodes the whole profile up front, applying noise and
// corruption from the profile's seed.
func NewReader(p Profile) *Reader {
	rng := rand.New(rand.NewSource(p.Seed))

	var data []byte
	for _, dist := range p.Distances() {
		if p.CorruptionRate > 0 && rng.Float64() < p.CorruptionRate {
			n := 1 + rng.Intn(4)
			for i := 0; i < n; i++ {
				data = append(data, byte(rng.Intn(256)))
			}
		}

		if p.NoiseStdDevCM > 0 {
			dist += rng.NormFloat64() * p.NoiseStdDevCM
		}
		if dist < 0 {
			dist = 0
		}

		strength := uint16(800 + rng.Intn(400))
		data = append(data, tfframe.EncodeFrame(uint16(math.Round(dist)), strength, tfframe.EncodeRawTemp(25))...)
	}

	return &Reader{data: data}
}

// Read implements io.Reader.
func (r *Reader) Read(b []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(b, r.data[r.off:])
	r.off += n
	return n, nil
}

// PacedReader wraps a Reader and releases one frame's worth of bytes per
// sampling period, so a dev-mode pipeline runs at realistic speed.
type PacedReader struct {
	inner  *Reader
	period time.Duration
	next   time.Time
}

// NewPacedReader paces the profile's stream at rateHz frames per second.
func NewPacedReader(p Profile, rateHz float64) *PacedReader {
	return &PacedReader{
		inner:  NewReader(p),
		period: time.Duration(float64(time.Second) / rateHz),
	}
}

// Read delivers at most one frame per sampling period, sleeping to hold
// the pace. Corruption bytes ride along with the frame they precede.
func (r *PacedReader) Read(b []byte) (int, error) {
	if !r.next.IsZero() {
		if d := time.Until(r.next); d > 0 {
			time.Sleep(d)
		}
	}
	r.next = time.Now().Add(r.period)

	if len(b) > tfframe.FrameSize {
		b = b[:tfframe.FrameSize]
	}
	return r.inner.Read(b)
}
