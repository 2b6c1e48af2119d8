package haarface

import (
	"image"
)

// SummedArea is a summed-area table of (width+1)*(height+1) entries.
// The first row and column are zero, so At(x, y) holds the sum of
// every value with column < x and row < y.
type SummedArea struct {
	width  int
	height int
	data   []float64
}

// newSummedArea integrates a row-major array of width*height values.
// The table is built column by column: each entry adds the entry on its
// left to the running total of the current column.
func newSummedArea(values []float64, width, height int) *SummedArea {
	stride := width + 1
	s := &SummedArea{
		width:  width,
		height: height,
		data:   make([]float64, stride*(height+1)),
	}

	for x := 0; x < width; x++ {
		var column float64
		for y := 0; y < height; y++ {
			v := values[y*width+x]
			s.data[(y+1)*stride+x+1] = s.data[(y+1)*stride+x] + column + v
			column += v
		}
	}
	return s
}

// Width returns the number of columns of the integrated data.
func (s *SummedArea) Width() int { return s.width }

// Height returns the number of rows of the integrated data.
func (s *SummedArea) Height() int { return s.height }

// At returns the sum over the rectangle (0, 0)-(x, y), x and y excluded.
func (s *SummedArea) At(x, y int) float64 {
	return s.data[y*(s.width+1)+x]
}

// Region returns the sum over the w*h rectangle whose top-left corner is (x, y).
func (s *SummedArea) Region(x, y, w, h int) float64 {
	stride := s.width + 1
	top := y * stride
	bottom := (y + h) * stride
	return s.data[bottom+x+w] - s.data[bottom+x] - s.data[top+x+w] + s.data[top+x]
}

// IntegralImage holds the tables a detection pass reads from.
// Gradient is nil when edge pruning is disabled.
type IntegralImage struct {
	Width      int
	Height     int
	Sum        *SummedArea
	SumSquared *SummedArea
	Gradient   *SummedArea
}

// NewIntegralImage builds the luma and squared luma tables of img and,
// if withGradient is set, the gradient magnitude table used for pruning.
func NewIntegralImage(img *image.NRGBA, withGradient bool) *IntegralImage {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	luma := Luma(img)

	squared := make([]float64, len(luma))
	for i, v := range luma {
		squared[i] = v * v
	}

	ii := &IntegralImage{
		Width:      width,
		Height:     height,
		Sum:        newSummedArea(luma, width, height),
		SumSquared: newSummedArea(squared, width, height),
	}
	if withGradient {
		ii.Gradient = newSummedArea(GradientMagnitude(luma, width, height), width, height)
	}
	return ii
}
