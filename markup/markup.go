// Package markup draws the detected faces over the source image.
package markup

import (
	"image"
	"image/color"
	"math"

	"github.com/esimov/haarface"
	"github.com/esimov/haarface/crop"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"
)

// The supported face markers.
const (
	MarkerRectangle = "rect"
	MarkerCircle    = "circle"
	MarkerEllipse   = "ellipse"
)

// Options configures the face markers.
type Options struct {
	Marker    string
	LineWidth float64
	Color     color.Color
	// Highlight is used for the faces sharing the largest area.
	Highlight color.Color
}

// DefaultOptions returns red rectangles with the largest faces in yellow.
func DefaultOptions() Options {
	return Options{
		Marker:    MarkerRectangle,
		LineWidth: 2.0,
		Color:     color.RGBA{R: 255, G: 0, B: 0, A: 255},
		Highlight: color.RGBA{R: 255, G: 255, B: 0, A: 255},
	}
}

// Draw returns a copy of img with a marker stroked around every face.
func Draw(img image.Image, faces []haarface.Face, opts Options) (image.Image, error) {
	switch opts.Marker {
	case MarkerRectangle, MarkerCircle, MarkerEllipse:
	default:
		return nil, errors.Errorf("unsupported marker %q", opts.Marker)
	}

	if opts.Color == nil {
		opts.Color = DefaultOptions().Color
	}

	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	dc.SetLineWidth(opts.LineWidth)

	largest := crop.Largest(faces)
	isLargest := func(f haarface.Face) bool {
		for _, l := range largest {
			if l == f {
				return true
			}
		}
		return false
	}

	for _, face := range faces {
		x, y := float64(face.X), float64(face.Y)
		w, h := float64(face.Width), float64(face.Height)

		switch opts.Marker {
		case MarkerRectangle:
			dc.DrawRectangle(x, y, w, h)
		case MarkerCircle:
			dc.DrawArc(x+w/2, y+h/2, math.Min(w, h)/2, 0, 2*math.Pi)
		case MarkerEllipse:
			dc.DrawEllipse(x+w/2, y+h/2, w/2, h/1.6)
		}

		c := opts.Color
		if opts.Highlight != nil && isLargest(face) {
			c = opts.Highlight
		}
		dc.SetStrokeStyle(gg.NewSolidPattern(c))
		dc.Stroke()
	}
	return dc.Image(), nil
}
