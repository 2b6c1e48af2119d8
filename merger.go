package haarface

import (
	"math"
)

// Face is a detected face region in the coordinates of the source image.
type Face struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the number of pixels covered by the face.
func (f Face) Area() int {
	return f.Width * f.Height
}

// Center returns the center point of the face.
func (f Face) Center() (float64, float64) {
	return float64(f.X) + float64(f.Width)/2, float64(f.Y) + float64(f.Height)/2
}

// similar reports whether a, coming later in scan order, belongs with b:
// either the two windows nearly coincide or a lies inside b.
func similar(a, b Rect) bool {
	dist := float64(b.Width) * 0.2

	if math.Abs(float64(a.X-b.X)) <= dist &&
		math.Abs(float64(a.Y-b.Y)) <= dist &&
		float64(a.Width) <= float64(b.Width)*1.2 &&
		float64(a.Width)*1.2 >= float64(b.Width) {
		return true
	}
	return a.X >= b.X && a.X+a.Width <= b.X+b.Width &&
		a.Y >= b.Y && a.Y+a.Height <= b.Y+b.Height
}

// Merge clusters the raw detections and returns one averaged face for every
// cluster holding at least minNeighbours detections. Each detection joins the
// lowest numbered cluster of the earlier detections it is similar to.
// Coordinates are divided by ratio to map them back to the source image;
// a non-positive ratio leaves them unchanged.
func Merge(dets []Rect, minNeighbours int, ratio float64) []Face {
	if ratio <= 0 {
		ratio = 1
	}

	classes := make([]int, len(dets))
	count := 0
	for i := range dets {
		class := -1
		for j := 0; j < i; j++ {
			if (class == -1 || classes[j] < class) && similar(dets[i], dets[j]) {
				class = classes[j]
			}
		}
		if class == -1 {
			class = count
			count++
		}
		classes[i] = class
	}

	type accumulator struct {
		n, x, y, w, h int
	}
	acc := make([]accumulator, count)
	for i, d := range dets {
		a := &acc[classes[i]]
		a.n++
		a.x += d.X
		a.y += d.Y
		a.w += d.Width
		a.h += d.Height
	}

	faces := make([]Face, 0, count)
	for _, a := range acc {
		if a.n < minNeighbours || a.n == 0 {
			continue
		}
		mean := func(v int) int {
			avg := math.Round(float64(v) / float64(a.n))
			return int(math.Round(avg / ratio))
		}
		faces = append(faces, Face{
			X:      mean(a.x),
			Y:      mean(a.y),
			Width:  mean(a.w),
			Height: mean(a.h),
		})
	}
	return faces
}
