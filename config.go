package haarface

import (
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the detection settings. The zero value is not usable, start from DefaultConfig.
type Config struct {
	// BaseScale is the initial ratio between the window size and the classifier size.
	BaseScale float64 `yaml:"base_scale" json:"base_scale"`
	// ScaleIncrement multiplies the scale after each pass over the image.
	ScaleIncrement float64 `yaml:"scale_increment" json:"scale_increment"`
	// StepFraction is the window shift expressed as a fraction of the window size.
	StepFraction float64 `yaml:"step_fraction" json:"step_fraction"`
	// MinNeighbours is the minimum number of raw detections a cluster needs to be reported.
	MinNeighbours int `yaml:"min_neighbours" json:"min_neighbours"`
	// DoCannyPruning skips windows whose edge density is outside the trained range.
	DoCannyPruning bool `yaml:"do_canny_pruning" json:"do_canny_pruning"`
	// ImageSizeLimit is the longest side, in pixels, above which the image is downscaled.
	// Zero or a negative value disables downscaling.
	ImageSizeLimit int `yaml:"image_size_limit" json:"image_size_limit"`
	// Workers bounds the number of scanning goroutines. Zero means runtime.NumCPU().
	Workers int `yaml:"workers" json:"workers"`
	// ResampleFilter names the imaging filter used when downscaling.
	ResampleFilter string `yaml:"resample_filter" json:"resample_filter"`
}

// DefaultConfig returns the settings the detector was calibrated with.
func DefaultConfig() Config {
	return Config{
		BaseScale:      2.0,
		ScaleIncrement: 1.25,
		StepFraction:   0.1,
		MinNeighbours:  2,
		DoCannyPruning: true,
		ImageSizeLimit: 1000,
		Workers:        0,
		ResampleFilter: "lanczos",
	}
}

var resampleFilters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"box":        imaging.Box,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// ResampleFilter returns the imaging filter registered under name.
func ResampleFilter(name string) (imaging.ResampleFilter, bool) {
	f, ok := resampleFilters[strings.ToLower(name)]
	return f, ok
}

// Validate checks the settings and returns an ErrInvalidConfig error describing the first problem found.
func (c Config) Validate() error {
	switch {
	case c.BaseScale <= 0:
		return errorf(InvalidConfig, "base scale must be positive, got %v", c.BaseScale)
	case c.ScaleIncrement <= 1:
		return errorf(InvalidConfig, "scale increment must be greater than 1, got %v", c.ScaleIncrement)
	case c.StepFraction <= 0:
		return errorf(InvalidConfig, "step fraction must be positive, got %v", c.StepFraction)
	case c.MinNeighbours < 0:
		return errorf(InvalidConfig, "min neighbours cannot be negative, got %d", c.MinNeighbours)
	case c.Workers < 0:
		return errorf(InvalidConfig, "workers cannot be negative, got %d", c.Workers)
	}
	if _, ok := ResampleFilter(c.ResampleFilter); !ok {
		return errorf(InvalidConfig, "unknown resample filter %q", c.ResampleFilter)
	}
	return nil
}

// LoadConfig reads a YAML document on top of the default settings.
// Unknown keys are rejected and an empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, newError(InvalidConfig, errors.Wrap(err, "decoding yaml config"))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadConfigFile is like LoadConfig but reads the settings from a file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultConfig(), newError(InvalidConfig, errors.Wrapf(err, "opening config %s", path))
	}
	defer f.Close()

	return LoadConfig(f)
}
