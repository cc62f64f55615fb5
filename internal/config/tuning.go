// Package config loads detection tuning from JSON files. All fields are
// optional pointers so a partial file overrides only what it names and
// everything else keeps the built-in defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/surface.report/internal/detect"
)

// TuningConfig is the on-disk schema for detection tuning. Field names
// match the detection parameters one to one.
type TuningConfig struct {
	PotholeThresholdCM       *float64 `json:"pothole_threshold_cm,omitempty"`
	CloseToleranceCM         *float64 `json:"close_tolerance_cm,omitempty"`
	VehicleSpeedCMS          *float64 `json:"vehicle_speed_cms,omitempty"`
	SamplingRateHz           *float64 `json:"sampling_rate_hz,omitempty"`
	BaselineWindowSize       *int     `json:"baseline_window_size,omitempty"`
	MaxExcursionDurationS    *float64 `json:"max_excursion_duration_s,omitempty"`
	DebounceSamples          *int     `json:"debounce_samples,omitempty"`
	MinConfidenceSampleCount *int     `json:"min_confidence_sample_count,omitempty"`
	MaxRangeCM               *float64 `json:"max_range_cm,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// Detect overlays the set fields onto the detection defaults. The result
// still needs detect.Config.Validate before use; range checking lives
// there, not here.
func (c *TuningConfig) Detect() detect.Config {
	cfg := detect.DefaultConfig()
	if c == nil {
		return cfg
	}
	if c.PotholeThresholdCM != nil {
		cfg.PotholeThresholdCM = *c.PotholeThresholdCM
	}
	if c.CloseToleranceCM != nil {
		cfg.CloseToleranceCM = *c.CloseToleranceCM
	}
	if c.VehicleSpeedCMS != nil {
		cfg.VehicleSpeedCMS = *c.VehicleSpeedCMS
	}
	if c.SamplingRateHz != nil {
		cfg.SamplingRateHz = *c.SamplingRateHz
	}
	if c.BaselineWindowSize != nil {
		cfg.BaselineWindowSize = *c.BaselineWindowSize
	}
	if c.MaxExcursionDurationS != nil {
		cfg.MaxExcursionDurationS = *c.MaxExcursionDurationS
	}
	if c.DebounceSamples != nil {
		cfg.DebounceSamples = *c.DebounceSamples
	}
	if c.MinConfidenceSampleCount != nil {
		cfg.MinConfidenceSampleCount = *c.MinConfidenceSampleCount
	}
	if c.MaxRangeCM != nil {
		cfg.MaxRangeCM = *c.MaxRangeCM
	}
	return cfg
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be under the max file size. Fields omitted
// from the JSON keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Detect().Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
