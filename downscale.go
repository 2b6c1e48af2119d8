package haarface

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/esimov/haarface/utils"
)

// Downscale shrinks img proportionally so that its longest side equals limit
// and returns the resized image together with the applied ratio.
// Images already fitting the limit, or a non-positive limit, are returned
// as they are with a ratio of 1.
func Downscale(img *image.NRGBA, limit int, filter string) (*image.NRGBA, float64, error) {
	if err := validateImage(img); err != nil {
		return nil, 0, err
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	longest := utils.Max(w, h)
	if limit <= 0 || longest <= limit {
		return img, 1, nil
	}

	resample, ok := ResampleFilter(filter)
	if !ok {
		return nil, 0, errorf(DecodeFailure, "unknown resample filter %q", filter)
	}

	ratio := float64(limit) / float64(longest)
	dstW := int(math.Round(float64(w) * ratio))
	dstH := int(math.Round(float64(h) * ratio))
	if dstW < 1 || dstH < 1 {
		return nil, 0, errorf(DecodeFailure, "cannot downscale %dx%d image to %dx%d", w, h, dstW, dstH)
	}

	return imaging.Resize(img, dstW, dstH, resample), ratio, nil
}
