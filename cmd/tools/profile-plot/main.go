// Command profile-plot renders a recorded range log as a PNG: the raw
// distance trace, the rolling baseline estimate, and the detection
// threshold, with detected excursions reported on stdout. Used to tune
// detection parameters against field captures.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/surface.report/internal/config"
	"github.com/banshee-data/surface.report/internal/detect"
	"github.com/banshee-data/surface.report/internal/geometry"
	"github.com/banshee-data/surface.report/internal/replay"
	"github.com/banshee-data/surface.report/internal/tfframe"
)

var (
	logPath    = flag.String("log", "", "Range log CSV to plot (required)")
	outPath    = flag.String("out", "profile.png", "Output PNG path")
	configPath = flag.String("config", "", "Tuning config JSON (optional)")
	title      = flag.String("title", "", "Plot title (defaults to the log path)")
)

func main() {
	flag.Parse()
	if *logPath == "" {
		log.Fatal("-log is required")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("configuration: %v", err)
		}
	}
	cfg := tuning.Detect()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg detect.Config) error {
	f, err := os.Open(*logPath)
	if err != nil {
		return err
	}
	defer f.Close()

	stream, err := replay.NewLogReader(f)
	if err != nil {
		return err
	}

	dec := tfframe.NewDecoder(stream)
	tracker := detect.NewBaselineTracker(cfg.BaselineWindowSize)
	machine := detect.NewEventMachine(cfg)

	var distPts, basePts, threshPts plotter.XYs
	var excursions []*detect.Excursion

	for {
		sample, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("decoding log: %w", err)
		}

		baseline := tracker.Update(sample)
		x := float64(sample.Index)
		distPts = append(distPts, plotter.XY{X: x, Y: sample.DistanceCM})
		basePts = append(basePts, plotter.XY{X: x, Y: baseline.SurfaceDistanceCM})
		threshPts = append(threshPts, plotter.XY{X: x, Y: baseline.SurfaceDistanceCM + cfg.PotholeThresholdCM})

		if exc := machine.Step(sample, baseline); exc != nil {
			excursions = append(excursions, exc)
		}
	}
	if exc := machine.Flush(); exc != nil {
		excursions = append(excursions, exc)
	}

	for _, exc := range excursions {
		m, err := geometry.Estimate(exc, cfg)
		if err != nil {
			continue
		}
		fmt.Printf("samples %d-%d: depth %.1f cm, length %.1f cm, width %.1f cm, confidence %.2f\n",
			exc.StartIndex, exc.StartIndex+uint64(exc.SampleCount())-1,
			m.MaxDepthCM, m.LengthCM, m.WidthCM, m.Confidence)
	}
	fmt.Printf("%d samples, %d excursions\n", len(distPts), len(excursions))

	return render(distPts, basePts, threshPts)
}

func render(distPts, basePts, threshPts plotter.XYs) error {
	p := plot.New()
	if *title != "" {
		p.Title.Text = *title
	} else {
		p.Title.Text = *logPath
	}
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Distance (cm)"

	distLine, err := plotter.NewLine(distPts)
	if err != nil {
		return err
	}
	distLine.Width = vg.Points(1)
	distLine.Color = color.RGBA{B: 255, A: 255}

	baseLine, err := plotter.NewLine(basePts)
	if err != nil {
		return err
	}
	baseLine.Width = vg.Points(1)
	baseLine.Color = color.RGBA{G: 160, A: 255}

	threshLine, err := plotter.NewLine(threshPts)
	if err != nil {
		return err
	}
	threshLine.Width = vg.Points(1)
	threshLine.Color = color.RGBA{R: 255, A: 255}
	threshLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(distLine, baseLine, threshLine)
	p.Legend.Add("distance", distLine)
	p.Legend.Add("baseline", baseLine)
	p.Legend.Add("threshold", threshLine)
	p.Legend.Top = true

	if err := p.Save(14*vg.Inch, 6*vg.Inch, *outPath); err != nil {
		return fmt.Errorf("saving plot: %w", err)
	}
	log.Printf("wrote %s", *outPath)
	return nil
}
