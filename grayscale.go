package haarface

import (
	"image"
)

// Luma converts the image to grayscale and returns the intensities as a row-major array.
// The weights are the integer approximation (30R + 59G + 11B) / 100 the classifiers were trained with.
func Luma(src *image.NRGBA) []float64 {
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	gray := make([]float64, width*height)

	for y := 0; y < height; y++ {
		pi := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		row := gray[y*width : (y+1)*width]
		for x := range row {
			r, g, b := int(src.Pix[pi]), int(src.Pix[pi+1]), int(src.Pix[pi+2])
			row[x] = float64(30*r+59*g+11*b) / 100
			pi += 4
		}
	}
	return gray
}
