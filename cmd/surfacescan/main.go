// Command surfacescan runs the pothole detection pipeline against a
// TF02-Pro rangefinder on a serial port (or a simulated road in dev mode)
// and writes detected events as JSON lines to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/surface.report/internal/config"
	"github.com/banshee-data/surface.report/internal/detect"
	"github.com/banshee-data/surface.report/internal/pipeline"
	"github.com/banshee-data/surface.report/internal/replay"
	"github.com/banshee-data/surface.report/internal/report"
	"github.com/banshee-data/surface.report/internal/sensorport"
	"github.com/banshee-data/surface.report/internal/sim"
	"github.com/banshee-data/surface.report/internal/units"
	"github.com/banshee-data/surface.report/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run against a simulated road instead of hardware")
	portPath   = flag.String("port", "/dev/ttyAMA0", "Serial port the rangefinder is attached to (ignored in dev mode)")
	baudRate   = flag.Int("baud", 115200, "Serial baud rate")
	configPath = flag.String("config", "", "Path to a tuning config JSON file (optional)")

	speed      = flag.Float64("speed", 0, "Vehicle ground speed; overrides the config value when positive")
	speedUnits = flag.String("speed-units", units.KPH, "Units for -speed: "+units.GetValidUnitsString())

	recordPath = flag.String("record", "", "Record range samples to this CSV log (optional)")
	replayPath = flag.String("replay", "", "Replay a recorded CSV log instead of reading a sensor")

	statsInterval = flag.Duration("stats-interval", pipeline.DefaultStatsInterval, "How often to log sampling statistics")
)

func main() {
	flag.Parse()
	log.Printf("surfacescan %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	source, closer, err := openSource(cfg)
	if err != nil {
		log.Fatalf("opening sample source: %v", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	var opts []pipeline.Option
	opts = append(opts, pipeline.WithStatsInterval(*statsInterval))

	var recorder *replay.Recorder
	if *recordPath != "" {
		f, err := os.Create(*recordPath)
		if err != nil {
			log.Fatalf("creating record log: %v", err)
		}
		defer f.Close()

		recorder, err = replay.NewRecorder(f)
		if err != nil {
			log.Fatalf("starting recorder: %v", err)
		}
		opts = append(opts, pipeline.WithObserver(recorder.Observe))
	}

	sink := report.MultiSink{report.NewJSONLineSink(os.Stdout), report.LogSink{}}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(source, cfg, sink, opts...)
	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("pipeline terminated: %v", err)
	}

	if recorder != nil {
		if err := recorder.Flush(); err != nil {
			log.Printf("flushing record log: %v", err)
		}
	}
	log.Print("surfacescan stopped")
}

// loadConfig builds the detection config from the optional tuning file and
// the speed flags.
func loadConfig() (detect.Config, error) {
	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			return detect.Config{}, err
		}
	}

	cfg := tuning.Detect()
	if *speed > 0 {
		cms, err := units.ToCMPerSecond(*speed, *speedUnits)
		if err != nil {
			return detect.Config{}, err
		}
		cfg.VehicleSpeedCMS = cms
	}

	return cfg, cfg.Validate()
}

// openSource picks the byte source: replay log, simulated road, or the
// real serial port.
func openSource(cfg detect.Config) (io.Reader, io.Closer, error) {
	switch {
	case *replayPath != "":
		f, err := os.Open(*replayPath)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		stream, err := replay.NewLogReader(f)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("replaying %s", *replayPath)
		return stream, nil, nil

	case *devMode:
		log.Print("dev mode: running against a simulated road")
		return sim.NewPacedReader(sim.DefaultProfile(), cfg.SamplingRateHz), nil, nil

	default:
		opts := sensorport.PortOptions{BaudRate: *baudRate}
		port, err := sensorport.Open(*portPath, opts, sensorport.DefaultReadTimeout)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("reading %s at %d baud", *portPath, *baudRate)
		return port, port, nil
	}
}
