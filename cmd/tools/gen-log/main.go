// Command gen-log writes a synthetic range log CSV from a simulated road
// profile. The output feeds profile-plot and surfacescan -replay, so the
// whole detection chain can be exercised without hardware.
package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"

	"github.com/banshee-data/surface.report/internal/detect"
	"github.com/banshee-data/surface.report/internal/replay"
	"github.com/banshee-data/surface.report/internal/sim"
	"github.com/banshee-data/surface.report/internal/tfframe"
)

var (
	outPath = flag.String("out", "road.csv", "Output CSV path")
	samples = flag.Int("samples", 600, "Number of samples to generate")
	noise   = flag.Float64("noise", 0.3, "Gaussian noise stddev in cm")
	seed    = flag.Int64("seed", 1, "Random seed")
)

func main() {
	flag.Parse()

	profile := sim.DefaultProfile()
	profile.TotalSamples = *samples
	profile.NoiseStdDevCM = *noise
	profile.Seed = *seed
	profile.CorruptionRate = 0 // the log format carries samples, not frames

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("creating output: %v", err)
	}
	defer f.Close()

	rec, err := replay.NewRecorder(f)
	if err != nil {
		log.Fatalf("starting recorder: %v", err)
	}

	dec := tfframe.NewDecoder(sim.NewReader(profile))
	n := 0
	for {
		sample, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("decoding simulated stream: %v", err)
		}
		rec.Observe(sample, detect.Baseline{})
		n++
	}

	if err := rec.Flush(); err != nil {
		log.Fatalf("flushing log: %v", err)
	}
	log.Printf("wrote %d samples to %s", n, *outPath)
}
