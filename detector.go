package haarface

import (
	"context"
	"image"
	"io"
	"log/slog"
	"time"
)

// Result gathers the outcome of one detection call.
type Result struct {
	Faces []Face `json:"faces"`
	// Width and Height are the dimensions of the source image.
	Width  int `json:"width"`
	Height int `json:"height"`
	// Ratio is the downscale ratio applied before scanning, 1 when none.
	Ratio   float64       `json:"ratio"`
	Stats   ScanStats     `json:"stats"`
	Elapsed time.Duration `json:"elapsed"`
}

// Detector runs a cascade with a fixed configuration.
// It holds no per-call state and is safe for concurrent use.
type Detector struct {
	cascade *Cascade
	cfg     Config

	// Logger receives debug records about every detection. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewDetector validates the configuration and binds it to a private copy of the cascade.
func NewDetector(c *Cascade, cfg Config) (*Detector, error) {
	if c == nil {
		return nil, errorf(InvalidCascade, "nil cascade")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cascade, err := c.clone()
	if err != nil {
		return nil, err
	}
	return &Detector{
		cascade: cascade,
		cfg:     cfg,
		Logger:  slog.Default(),
	}, nil
}

// Config returns the settings the detector was created with.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect decodes the image file found at path and returns the faces it contains.
func (d *Detector) Detect(ctx context.Context, path string) ([]Face, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return d.DetectImage(ctx, img)
}

// DetectReader decodes the image read from r and returns the faces it contains.
func (d *Detector) DetectReader(ctx context.Context, r io.Reader) ([]Face, error) {
	img, err := DecodeImage(r)
	if err != nil {
		return nil, err
	}
	res, err := d.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	return res.Faces, nil
}

// DetectImage returns the faces found in an already decoded image.
func (d *Detector) DetectImage(ctx context.Context, img image.Image) ([]Face, error) {
	res, err := d.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	return res.Faces, nil
}

// Analyze runs the whole pipeline over img: downscaling, integral images,
// window scan and clustering. The returned faces are expressed in the
// coordinates of img. A canceled context aborts the scan and no faces are returned.
func (d *Detector) Analyze(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()

	if err := validateImage(img); err != nil {
		return nil, err
	}
	src := imgToNRGBA(img)
	width, height := src.Bounds().Dx(), src.Bounds().Dy()

	scaled, ratio, err := Downscale(src, d.cfg.ImageSizeLimit, d.cfg.ResampleFilter)
	if err != nil {
		return nil, err
	}

	ii := NewIntegralImage(scaled, d.cfg.DoCannyPruning)
	dets, stats, err := Scan(ctx, d.cascade, ii, d.cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Faces:   Merge(dets, d.cfg.MinNeighbours, ratio),
		Width:   width,
		Height:  height,
		Ratio:   ratio,
		Stats:   stats,
		Elapsed: time.Since(start),
	}
	d.logger().Debug("detection finished",
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Float64("ratio", ratio),
		slog.Int("scales", stats.Scales),
		slog.Int("windows", stats.Windows),
		slog.Int("pruned", stats.Pruned),
		slog.Int("detections", stats.Detections),
		slog.Int("faces", len(res.Faces)),
		slog.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Detect is a shorthand creating a one-off Detector and running it over the image file at path.
func Detect(ctx context.Context, path string, c *Cascade, cfg Config) ([]Face, error) {
	d, err := NewDetector(c, cfg)
	if err != nil {
		return nil, err
	}
	return d.Detect(ctx, path)
}
