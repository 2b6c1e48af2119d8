package haarface

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerger_IdenticalDetections(t *testing.T) {
	r := Rect{X: 30, Y: 40, Width: 24, Height: 24}
	faces := Merge([]Rect{r, r, r}, 2, 1)
	assert.Equal(t, []Face{{X: 30, Y: 40, Width: 24, Height: 24}}, faces)
}

func TestMerger_MinNeighbours(t *testing.T) {
	dets := []Rect{
		{X: 10, Y: 10, Width: 20, Height: 20},
		{X: 200, Y: 200, Width: 20, Height: 20},
		{X: 201, Y: 199, Width: 20, Height: 20},
	}

	assert.Equal(t, []Face{{X: 201, Y: 200, Width: 20, Height: 20}}, Merge(dets, 2, 1))
	assert.Len(t, Merge(dets, 1, 1), 2)
	assert.Len(t, Merge(dets, 0, 1), 2)
	assert.Empty(t, Merge(dets, 3, 1))
	assert.Empty(t, Merge(nil, 0, 1))
}

func TestMerger_RoundsMeans(t *testing.T) {
	dets := []Rect{
		{X: 10, Y: 10, Width: 20, Height: 20},
		{X: 11, Y: 11, Width: 21, Height: 21},
	}
	assert.Equal(t, []Face{{X: 11, Y: 11, Width: 21, Height: 21}}, Merge(dets, 1, 1))
}

func TestMerger_Similarity(t *testing.T) {
	base := Rect{X: 100, Y: 100, Width: 50, Height: 50}

	testCases := []struct {
		name    string
		other   Rect
		similar bool
	}{
		{"shifted within tolerance", Rect{X: 110, Y: 90, Width: 55, Height: 55}, true},
		{"shifted too far", Rect{X: 111, Y: 100, Width: 50, Height: 50}, false},
		{"too large", Rect{X: 100, Y: 100, Width: 61, Height: 61}, false},
		{"larger within tolerance", Rect{X: 100, Y: 100, Width: 59, Height: 59}, true},
		{"too small but contained", Rect{X: 110, Y: 110, Width: 20, Height: 20}, true},
		{"too small outside", Rect{X: 140, Y: 140, Width: 20, Height: 20}, false},
		{"contained touching corner", Rect{X: 130, Y: 130, Width: 20, Height: 20}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.similar, similar(tc.other, base))
		})
	}
}

func TestMerger_ContainedDetectionJoinsClass(t *testing.T) {
	dets := []Rect{
		{X: 0, Y: 0, Width: 100, Height: 100},
		{X: 60, Y: 60, Width: 20, Height: 20},
	}
	assert.Equal(t, []Face{{X: 30, Y: 30, Width: 60, Height: 60}}, Merge(dets, 2, 1))

	// The larger detection coming second is not inside the first one.
	dets[0], dets[1] = dets[1], dets[0]
	assert.Empty(t, Merge(dets, 2, 1))
}

func TestMerger_JoinsLowestClass(t *testing.T) {
	dets := []Rect{
		{X: 0, Y: 0, Width: 50, Height: 50},
		{X: 30, Y: 0, Width: 50, Height: 50},
		// Inside both of the previous ones.
		{X: 35, Y: 10, Width: 10, Height: 10},
	}
	faces := Merge(dets, 1, 1)
	assert.Equal(t, []Face{
		{X: 18, Y: 5, Width: 30, Height: 30},
		{X: 30, Y: 0, Width: 50, Height: 50},
	}, faces)
}

func TestMerger_Ratio(t *testing.T) {
	dets := []Rect{
		{X: 50, Y: 50, Width: 24, Height: 24},
		{X: 51, Y: 50, Width: 24, Height: 24},
	}
	assert.Equal(t, []Face{{X: 102, Y: 100, Width: 48, Height: 48}}, Merge(dets, 2, 0.5))
	assert.Equal(t, Merge(dets, 2, 1), Merge(dets, 2, 0))
	assert.Equal(t, Merge(dets, 2, 1), Merge(dets, 2, -3))
}

func TestMerger_MergingFacesAgainIsStable(t *testing.T) {
	dets := []Rect{
		{X: 10, Y: 10, Width: 30, Height: 30},
		{X: 12, Y: 11, Width: 31, Height: 31},
		{X: 150, Y: 80, Width: 60, Height: 60},
		{X: 155, Y: 84, Width: 62, Height: 62},
	}
	faces := Merge(dets, 2, 1)
	assert.Len(t, faces, 2)

	var rects []Rect
	for _, f := range faces {
		rects = append(rects, Rect(f))
	}
	assert.Equal(t, faces, Merge(rects, 1, 1))
}

func TestMerger_FaceHelpers(t *testing.T) {
	f := Face{X: 10, Y: 20, Width: 30, Height: 40}
	assert.Equal(t, 1200, f.Area())
	cx, cy := f.Center()
	assert.Equal(t, 25.0, cx)
	assert.Equal(t, 40.0, cy)
}
