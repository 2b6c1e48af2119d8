package haarface

import "github.com/esimov/haarface/utils"

type kernel [][]float64

var (
	kernelX = kernel{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}

	kernelY = kernel{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	// 5x5 gaussian approximation, the weights sum up to 159.
	kernelGauss = kernel{
		{2, 4, 5, 4, 2},
		{4, 9, 12, 9, 4},
		{5, 12, 15, 12, 5},
		{4, 9, 12, 9, 4},
		{2, 4, 5, 4, 2},
	}
)

const gaussWeight = 159

// gradientBorder is the width of the frame where no gradient is computed.
const gradientBorder = 2

// apply convolves the kernel centered on (x, y). The caller guarantees the
// kernel fits inside the width*height array.
func (k kernel) apply(values []float64, width, x, y int) float64 {
	var sum float64
	r := len(k) / 2
	for ky := range k {
		row := (y + ky - r) * width
		for kx, w := range k[ky] {
			if w != 0 {
				sum += w * values[row+x+kx-r]
			}
		}
	}
	return sum
}

// applyClamped is apply with the coordinates falling outside the array
// replaced by the nearest edge pixel.
func (k kernel) applyClamped(values []float64, width, height, x, y int) float64 {
	var sum float64
	r := len(k) / 2
	for ky := range k {
		row := utils.Clamp(y+ky-r, 0, height-1) * width
		for kx, w := range k[ky] {
			if w != 0 {
				sum += w * values[row+utils.Clamp(x+kx-r, 0, width-1)]
			}
		}
	}
	return sum
}

// GradientMagnitude smooths the luma values with a 5x5 gaussian kernel and
// returns |Gx| + |Gy| of the Sobel operator over the smoothed values.
// The smoothing extends the image by repeating its edge pixels, so the Sobel
// neighbourhood of every interior pixel is smoothed. Pixels closer than two
// pixels to an edge get a zero magnitude.
// See https://en.wikipedia.org/wiki/Sobel_operator
func GradientMagnitude(luma []float64, width, height int) []float64 {
	smooth := make([]float64, len(luma))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < gradientBorder || y < gradientBorder || x >= width-gradientBorder || y >= height-gradientBorder {
				smooth[y*width+x] = kernelGauss.applyClamped(luma, width, height, x, y) / gaussWeight
				continue
			}
			smooth[y*width+x] = kernelGauss.apply(luma, width, x, y) / gaussWeight
		}
	}

	magnitudes := make([]float64, len(luma))
	for y := gradientBorder; y < height-gradientBorder; y++ {
		for x := gradientBorder; x < width-gradientBorder; x++ {
			gx := kernelX.apply(smooth, width, x, y)
			gy := kernelY.apply(smooth, width, x, y)
			if gx < 0 {
				gx = -gx
			}
			if gy < 0 {
				gy = -gy
			}
			magnitudes[y*width+x] = gx + gy
		}
	}
	return magnitudes
}
