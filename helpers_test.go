package haarface

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	black = color.NRGBA{A: 0xff}
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// patchImage returns a black image with white squares painted over it.
func patchImage(width, height int, patches ...image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, black)
		}
	}
	for _, p := range patches {
		for y := p.Min.Y; y < p.Max.Y; y++ {
			for x := p.Min.X; x < p.Max.X; x++ {
				img.SetNRGBA(x, y, white)
			}
		}
	}
	return img
}

func square(x, y, size int) image.Rectangle {
	return image.Rect(x, y, x+size, y+size)
}

// whitePatchCascade accepts only windows which are entirely white: the mean
// luma of the window has to reach the node threshold while the variance of
// a partially white window raises the normalized threshold out of reach.
func whitePatchCascade(t testing.TB) *Cascade {
	t.Helper()

	c, err := NewCascade(24, 24, []Stage{{
		Threshold: 0.5,
		Trees: []Tree{{Nodes: []Node{{
			Rects:     []FeatureRect{{X: 0, Y: 0, Width: 24, Height: 24, Weight: 1}},
			Threshold: 250,
			Left:      Leaf(0),
			Right:     Leaf(1),
		}}}},
	}})
	require.NoError(t, err)
	return c
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "image.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func scanConfig() Config {
	cfg := DefaultConfig()
	cfg.DoCannyPruning = false
	cfg.MinNeighbours = 1
	cfg.StepFraction = 0.1
	return cfg
}
