// Package crop computes face aware crop regions and renders thumbnails from them.
package crop

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/haarface"
	"github.com/esimov/haarface/utils"
)

// Geometry describes the source region to cut and the size it is resized to.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int

	DstWidth  int
	DstHeight int
}

// Rect returns the source region as an image.Rectangle.
func (g Geometry) Rect() image.Rectangle {
	return image.Rect(g.X, g.Y, g.X+g.Width, g.Y+g.Height)
}

// Largest returns the faces sharing the largest area, in their original order.
func Largest(faces []haarface.Face) []haarface.Face {
	var (
		maxArea int
		largest []haarface.Face
	)
	for _, f := range faces {
		maxArea = utils.Max(maxArea, f.Area())
	}
	for _, f := range faces {
		if f.Area() == maxArea {
			largest = append(largest, f)
		}
	}
	return largest
}

// Compute returns the region of an origW x origH image which, scaled to
// dstW x dstH, keeps the largest faces centered. A zero destination side is
// derived from the aspect ratio of the source. Sides larger than the source
// are reduced to the source size, the image is never upscaled.
// It returns false when there are no faces or the target size is not usable.
func Compute(origW, origH, dstW, dstH int, faces []haarface.Face) (Geometry, bool) {
	largest := Largest(faces)
	if len(largest) == 0 || origW <= 0 || origH <= 0 || dstW < 0 || dstH < 0 {
		return Geometry{}, false
	}

	var sumX, sumY float64
	for _, f := range largest {
		cx, cy := f.Center()
		sumX += cx
		sumY += cy
	}
	centerX := math.Round(sumX / float64(len(largest)))
	centerY := math.Round(sumY / float64(len(largest)))

	aspect := float64(origW) / float64(origH)
	newW := utils.Min(dstW, origW)
	newH := utils.Min(dstH, origH)
	if newW == 0 {
		newW = int(float64(newH) * aspect)
	}
	if newH == 0 {
		newH = int(float64(newW) / aspect)
	}
	if newW <= 0 || newH <= 0 {
		return Geometry{}, false
	}

	sizeRatio := math.Max(float64(newW)/float64(origW), float64(newH)/float64(origH))
	cropW := int(math.Round(float64(newW) / sizeRatio))
	cropH := int(math.Round(float64(newH) / sizeRatio))

	return Geometry{
		X:         utils.Clamp(int(math.Round(centerX-float64(cropW)/2)), 0, origW-cropW),
		Y:         utils.Clamp(int(math.Round(centerY-float64(cropH)/2)), 0, origH-cropH),
		Width:     cropW,
		Height:    cropH,
		DstWidth:  newW,
		DstHeight: newH,
	}, true
}

// Thumbnail renders a dstW x dstH thumbnail of img centered on the largest faces.
// Without faces it falls back to a centered fill.
func Thumbnail(img image.Image, faces []haarface.Face, dstW, dstH int, filter imaging.ResampleFilter) *image.NRGBA {
	b := img.Bounds()
	g, ok := Compute(b.Dx(), b.Dy(), dstW, dstH, faces)
	if !ok {
		w, h := dstW, dstH
		if w == 0 {
			w = int(float64(h) * float64(b.Dx()) / float64(b.Dy()))
		}
		if h == 0 {
			h = int(float64(w) * float64(b.Dy()) / float64(b.Dx()))
		}
		return imaging.Fill(img, w, h, imaging.Center, filter)
	}

	cropped := imaging.Crop(img, g.Rect().Add(b.Min))
	return imaging.Resize(cropped, g.DstWidth, g.DstHeight, filter)
}
