package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/esimov/haarface"
	"github.com/esimov/haarface/crop"
	"github.com/esimov/haarface/markup"
	"github.com/esimov/haarface/utils"
	"golang.org/x/term"
)

// Supported files
var validExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Ops holds the detection settings and the outputs requested from the command line.
type Ops struct {
	Detector *haarface.Detector
	Spinner  *utils.Spinner

	Src, Dst string
	JSON     string
	Workers  int

	Markup markup.Options
	Filter imaging.ResampleFilter

	ThumbWidth, ThumbHeight int
	ThumbDir                string
}

// result holds the relevant information about the detection process of one file.
type result struct {
	path  string
	faces int
	err   error
}

// report is the JSON document written for every processed image.
type report struct {
	Source string `json:"source"`
	*haarface.Result
}

// Execute runs the detection over a single image, an URL, the standard input
// or every supported image of a directory tree.
func (op *Ops) Execute(ctx context.Context) error {
	src := op.Src

	// Check if source path is a local image or URL.
	if utils.IsValidUrl(src) {
		f, err := utils.DownloadImage(ctx, src)
		if err != nil {
			return fmt.Errorf("failed to load the source image: %w", err)
		}
		defer os.Remove(f.Name())
		defer f.Close()

		return op.processSingle(ctx, f, filepath.Base(src))
	}

	if src == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("`-` should be used with a pipe for stdin")
		}
		return op.processSingle(ctx, os.Stdin, "stdin")
	}

	fs, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to load the source image: %w", err)
	}

	switch mode := fs.Mode(); {
	case mode.IsDir():
		return op.processDir(ctx)
	case mode.IsRegular() || mode&os.ModeNamedPipe != 0: // check for regular files or pipe names
		f, err := os.Open(src)
		if err != nil {
			return fmt.Errorf("unable to open the source file: %w", err)
		}
		defer f.Close()

		return op.processSingle(ctx, f, filepath.Base(src))
	}
	return fmt.Errorf("unsupported source %s", src)
}

// processSingle detects the faces of one image while the progress indicator is running.
func (op *Ops) processSingle(ctx context.Context, r io.Reader, name string) error {
	if len(op.Dst) > 0 && op.Dst != pipeName && !isValidExtension(filepath.Ext(op.Dst), validExtensions) {
		return fmt.Errorf("%v file type not supported", filepath.Ext(op.Dst))
	}

	op.Spinner.Start()
	faces, err := op.process(ctx, r, name, op.Dst, op.JSON, op.thumbPath(name))
	if err != nil {
		op.Spinner.StopMsg = fmt.Sprintf("%s %s %s",
			utils.DecorateText("⚡ HAARFACE", utils.StatusMessage),
			utils.DecorateText("detecting faces failed...", utils.DefaultMessage),
			utils.DecorateText("✘\n", utils.ErrorMessage),
		)
		op.Spinner.Stop()
		return err
	}
	op.Spinner.StopMsg = fmt.Sprintf("%s %s %s",
		utils.DecorateText("⚡ HAARFACE", utils.StatusMessage),
		utils.DecorateText("⇢", utils.DefaultMessage),
		utils.DecorateText(utils.Faces(faces)+" found ✔\n", utils.SuccessMessage),
	)
	op.Spinner.Stop()

	op.printOpStatus(op.Dst)
	return nil
}

// processDir walks the source directory and processes its images with a pool of consumers.
func (op *Ops) processDir(ctx context.Context) error {
	if len(op.Dst) > 0 {
		if err := os.MkdirAll(op.Dst, 0755); err != nil {
			return fmt.Errorf("unable to create the destination directory: %w", err)
		}
	}

	// Process recursively the image files from the specified directory concurrently.
	ch := make(chan result)
	done := make(chan interface{})
	defer close(done)

	paths, errc := walkDir(done, op.Src, validExtensions)

	var wg sync.WaitGroup
	wg.Add(op.Workers)
	for i := 0; i < op.Workers; i++ {
		go func() {
			defer wg.Done()
			op.consumer(ctx, ch, done, paths)
		}()
	}

	// Close the channel after the values are consumed.
	go func() {
		defer close(ch)
		wg.Wait()
	}()

	var failed int
	for res := range ch {
		if res.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s %s\n",
				utils.DecorateText("✘ "+res.path, utils.ErrorMessage),
				utils.DecorateText(res.err.Error(), utils.DefaultMessage),
			)
			continue
		}
		fmt.Fprintf(os.Stderr, "%s %s\n",
			utils.DecorateText("✔ "+res.path, utils.SuccessMessage),
			utils.DecorateText(utils.Faces(res.faces), utils.DefaultMessage),
		)
	}

	if err := <-errc; err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d image(s) could not be processed", failed)
	}
	return ctx.Err()
}

// consumer reads the path names from the paths channel and runs the detector over every image.
func (op *Ops) consumer(
	ctx context.Context,
	res chan<- result,
	done <-chan interface{},
	paths <-chan string,
) {
	for src := range paths {
		r := result{path: src}
		if err := ctx.Err(); err != nil {
			r.err = err
		} else {
			r.faces, r.err = op.processFile(ctx, src)
		}

		select {
		case <-done:
			return
		case res <- r:
		}
	}
}

// processFile processes one image of the walked directory. The annotated image,
// the JSON report and the thumbnail mirror the source tree under their output directories.
func (op *Ops) processFile(ctx context.Context, src string) (int, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rel, err := filepath.Rel(op.Src, src)
	if err != nil {
		rel = filepath.Base(src)
	}

	var dst, jsonDst string
	if len(op.Dst) > 0 {
		dst = filepath.Join(op.Dst, rel)
	}
	if len(op.JSON) > 0 {
		jsonDst = filepath.Join(op.JSON, strings.TrimSuffix(rel, filepath.Ext(rel))+".json")
	}
	thumbDst := op.thumbPath(rel)
	for _, out := range []string{dst, jsonDst, thumbDst} {
		if len(out) == 0 {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
			return 0, err
		}
	}
	return op.process(ctx, f, filepath.Base(src), dst, jsonDst, thumbDst)
}

// thumbPath returns the thumbnail destination of the image at the rel path,
// relative to the thumbnail directory, or an empty string when no thumbnail is requested.
func (op *Ops) thumbPath(rel string) string {
	if op.ThumbWidth <= 0 && op.ThumbHeight <= 0 {
		return ""
	}
	ext := filepath.Ext(rel)
	if _, err := imaging.FormatFromExtension(ext); err != nil {
		ext = ".png"
	}
	return filepath.Join(op.ThumbDir,
		fmt.Sprintf("%s-%dx%d%s", strings.TrimSuffix(rel, filepath.Ext(rel)), op.ThumbWidth, op.ThumbHeight, ext))
}

// process detects the faces of the image read from r and writes the requested outputs.
func (op *Ops) process(ctx context.Context, r io.Reader, name, dst, jsonDst, thumbDst string) (int, error) {
	img, err := haarface.DecodeImage(r)
	if err != nil {
		return 0, err
	}

	res, err := op.Detector.Analyze(ctx, img)
	if err != nil {
		return 0, err
	}
	slog.Debug("image processed",
		slog.String("source", name),
		slog.Int("faces", len(res.Faces)),
		slog.Duration("elapsed", res.Elapsed),
	)

	if len(dst) > 0 {
		marked, err := markup.Draw(img, res.Faces, op.Markup)
		if err != nil {
			return 0, err
		}
		if err := writeImage(dst, marked); err != nil {
			return 0, err
		}
	}

	if len(jsonDst) > 0 {
		if err := writeJSON(jsonDst, report{Source: name, Result: res}); err != nil {
			return 0, err
		}
	}

	if len(thumbDst) > 0 {
		thumb := crop.Thumbnail(img, res.Faces, op.ThumbWidth, op.ThumbHeight, op.Filter)
		if err := imaging.Save(thumb, thumbDst); err != nil {
			return 0, fmt.Errorf("unable to save the thumbnail: %w", err)
		}
	}
	return len(res.Faces), nil
}

// openOutput returns a writer for the destination path, the standard output for the pipe name.
func openOutput(path string) (io.WriteCloser, error) {
	if path == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdout")
		}
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create the destination file: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// writeImage encodes img in the format given by the destination extension, JPEG for the standard output.
func writeImage(path string, img image.Image) error {
	format := imaging.JPEG
	if path != pipeName {
		f, err := imaging.FormatFromFilename(path)
		if err != nil {
			return fmt.Errorf("unable to encode %s: %w", filepath.Base(path), err)
		}
		format = f
	}

	w, err := openOutput(path)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(100)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func writeJSON(path string, v any) error {
	w, err := openOutput(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// printOpStatus displays the relevant information about the detection process.
func (op *Ops) printOpStatus(fname string) {
	if len(fname) > 0 && fname != pipeName {
		fmt.Fprintf(os.Stderr, "\nThe annotated image has been saved as: %s %s\n",
			utils.DecorateText(filepath.Base(fname), utils.SuccessMessage),
			utils.DefaultColor,
		)
	}
}

// walkDir starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each supported image to a new channel.
// It finishes in case the done channel is getting closed.
func walkDir(
	done <-chan interface{},
	src string,
	srcExts []string,
) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			if !isValidExtension(strings.ToLower(filepath.Ext(path)), srcExts) {
				return nil
			}

			select {
			case <-done:
				return errors.New("directory walk cancelled")
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}

// isValidExtension checks for the supported extensions.
func isValidExtension(ext string, extensions []string) bool {
	for _, ex := range extensions {
		if ex == ext {
			return true
		}
	}
	return false
}
