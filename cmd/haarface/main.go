package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/esimov/haarface"
	"github.com/esimov/haarface/markup"
	"github.com/esimov/haarface/utils"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

const HelpBanner = `
┬ ┬┌─┐┌─┐┬─┐┌─┐┌─┐┌─┐┌─┐
├─┤├─┤├─┤├┬┘├┤ ├─┤│  ├┤
┴ ┴┴ ┴┴ ┴┴└─└  ┴ ┴└─┘└─┘

Haar cascade face detection.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// maxWorkers sets the maximum number of concurrently running workers.
const maxWorkers = 20

// Version indicates the current build version.
var Version string

var (
	// Flags
	source      = flag.String("in", pipeName, "Source image, URL or directory")
	destination = flag.String("out", "", "Destination of the annotated image (a directory for directory sources)")
	cascadeFile = flag.String("cc", "", "Cascade classifier (OpenCV XML or JSON)")
	jsonOut     = flag.String("json", "", "Write the detection result as JSON (a directory for directory sources)")
	thumbSize   = flag.String("thumb", "", "Generate a face centered thumbnail of WxH size")
	thumbDir    = flag.String("thumbdir", ".", "Thumbnail destination directory")
	configFile  = flag.String("config", "", "YAML detection settings")
	baseScale   = flag.Float64("base", 2.0, "Initial ratio between the window and the classifier size")
	scaleIncr   = flag.Float64("scale", 1.25, "Scale increment between two passes")
	stepFrac    = flag.Float64("step", 0.1, "Window shift as a fraction of the window size")
	neighbours  = flag.Int("neighbours", 2, "Minimum number of detections per face")
	canny       = flag.Bool("canny", true, "Skip windows by edge density")
	sizeLimit   = flag.Int("limit", 1000, "Downscale images whose longest side exceeds this size")
	filter      = flag.String("filter", "lanczos", "Downscale filter: nearest, box, linear, catmullrom, lanczos")
	scanWorkers = flag.Int("workers", 0, "Scanning goroutines per image (0 uses every CPU)")
	workers     = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")
	marker      = flag.String("marker", markup.MarkerRectangle, "Face marker: rect, circle, ellipse")
	markerColor = flag.String("color", "#ff0000", "Face marker color")
	highlight   = flag.String("highlight", "#ffff00", "Marker color of the largest faces")
	logLevel    = flag.String("log", "info", "Log level: debug, info, warn, error")
	logJSON     = flag.Bool("logjson", false, "Emit JSON log records")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	utils.InitLogger(os.Stderr, *logLevel, *logJSON)
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		utils.SetColor(false)
	}

	if len(*cascadeFile) == 0 {
		flag.Usage()
		log.Fatal(utils.DecorateText("\nPlease provide a cascade classifier with the -cc flag!", utils.ErrorMessage))
	}

	cfg, err := buildConfig()
	if err != nil {
		log.Fatalf(utils.DecorateText("Invalid detection settings: %v", utils.ErrorMessage), err)
	}

	cascade, err := haarface.LoadCascadeFile(*cascadeFile)
	if err != nil {
		log.Fatalf(utils.DecorateText("Failed to load the cascade classifier: %v", utils.ErrorMessage), err)
	}

	slog.Debug("cascade loaded",
		slog.String("path", *cascadeFile),
		slog.Int("width", cascade.Width),
		slog.Int("height", cascade.Height),
		slog.Int("stages", len(cascade.Stages)),
	)

	det, err := haarface.NewDetector(cascade, cfg)
	if err != nil {
		log.Fatalf(utils.DecorateText("Failed to create the detector: %v", utils.ErrorMessage), err)
	}

	op := &Ops{
		Detector: det,
		Src:      *source,
		Dst:      *destination,
		JSON:     *jsonOut,
		ThumbDir: *thumbDir,
		Workers:  *workers,
		Markup:   markup.DefaultOptions(),
	}
	op.Markup.Marker = *marker
	if op.Markup.Color, err = utils.HexToRGBA(*markerColor); err != nil {
		log.Fatalf(utils.DecorateText("Invalid marker color: %v", utils.ErrorMessage), err)
	}
	if op.Markup.Highlight, err = utils.HexToRGBA(*highlight); err != nil {
		log.Fatalf(utils.DecorateText("Invalid highlight color: %v", utils.ErrorMessage), err)
	}

	if len(*thumbSize) > 0 {
		op.ThumbWidth, op.ThumbHeight, err = parseSize(*thumbSize)
		if err != nil {
			log.Fatalf(utils.DecorateText("Invalid thumbnail size: %v", utils.ErrorMessage), err)
		}
	}
	op.Filter, _ = haarface.ResampleFilter(cfg.ResampleFilter)

	// Limit the concurrently running workers to maxWorkers.
	if op.Workers <= 0 || op.Workers > maxWorkers {
		op.Workers = runtime.NumCPU()
	}

	spinnerText := fmt.Sprintf("%s %s",
		utils.DecorateText("⚡ HAARFACE", utils.StatusMessage),
		utils.DecorateText("⇢ detecting faces...", utils.DefaultMessage))
	op.Spinner = utils.NewSpinner(os.Stderr, spinnerText, time.Millisecond*80, true)

	// Capture CTRL-C signal, stop the pending detections and restore the cursor visibility.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		op.Spinner.RestoreCursor()
	}()

	now := time.Now()
	if err := op.Execute(ctx); err != nil {
		op.Spinner.RestoreCursor()
		log.Fatalf(
			utils.DecorateText("\nError detecting faces: %s", utils.ErrorMessage),
			utils.DecorateText(fmt.Sprintf("\n\tReason: %v\n", err.Error()), utils.DefaultMessage),
		)
	}
	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
}

// buildConfig reads the optional configuration file and applies the explicitly set flags on top of it.
func buildConfig() (haarface.Config, error) {
	cfg := haarface.DefaultConfig()
	if len(*configFile) > 0 {
		c, err := haarface.LoadConfigFile(*configFile)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base":
			cfg.BaseScale = *baseScale
		case "scale":
			cfg.ScaleIncrement = *scaleIncr
		case "step":
			cfg.StepFraction = *stepFrac
		case "neighbours":
			cfg.MinNeighbours = *neighbours
		case "canny":
			cfg.DoCannyPruning = *canny
		case "limit":
			cfg.ImageSizeLimit = *sizeLimit
		case "filter":
			cfg.ResampleFilter = *filter
		case "workers":
			cfg.Workers = *scanWorkers
		}
	})
	return cfg, cfg.Validate()
}

// parseSize parses a WxH size where one of the sides can be zero.
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, errors.Errorf("size %q should be of WxH form", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "width of %q", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "height of %q", s)
	}
	if w < 0 || h < 0 || (w == 0 && h == 0) {
		return 0, 0, errors.Errorf("invalid size %q", s)
	}
	return w, h, nil
}
