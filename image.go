package haarface

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes a raster image, applying the EXIF orientation when present,
// and returns it as *image.NRGBA with the min point at (0, 0).
func DecodeImage(r io.Reader) (*image.NRGBA, error) {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, newError(InvalidImage, errors.Wrap(err, "decoding image"))
	}
	img := imgToNRGBA(src)
	if err := validateImage(img); err != nil {
		return nil, err
	}
	return img, nil
}

// LoadImage opens and decodes the image file found at path.
func LoadImage(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(InvalidImage, errors.Wrapf(err, "reading %s", path))
	}
	return DecodeImage(bytes.NewReader(data))
}

func validateImage(img image.Image) error {
	if img == nil {
		return errorf(InvalidImage, "nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return errorf(InvalidImage, "image has zero dimensions (%dx%d)", b.Dx(), b.Dy())
	}
	return nil
}

// imgToNRGBA converts any image type to *image.NRGBA with min-point at (0, 0).
// Zero based NRGBA images are returned as they are.
func imgToNRGBA(img image.Image) *image.NRGBA {
	if src, ok := img.(*image.NRGBA); ok && src.Bounds().Min == (image.Point{}) {
		return src
	}
	return imaging.Clone(img)
}
