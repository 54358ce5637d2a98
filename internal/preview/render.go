package preview

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/geosim/geo2wps/internal/landuse"
)

// Source is the band view a preview is rendered from. ReadScaled returns
// real-world values with missing samples as NaN.
type Source interface {
	Size() (xsize, ysize int)
	ReadScaled(x, y, w, h int) ([]float64, error)
}

// Render draws src into an RGBA image no larger than maxDim on either
// side, subsampling by pixel striding. Categorical data gets palette
// colors when pal is non-nil; otherwise values are stretched to grayscale.
// Missing samples come out fully transparent.
func Render(src Source, pal *landuse.Palette, maxDim int) (image.Image, error) {
	if maxDim <= 0 {
		maxDim = 1024
	}
	xsize, ysize := src.Size()
	if xsize <= 0 || ysize <= 0 {
		return nil, fmt.Errorf("empty raster %dx%d", xsize, ysize)
	}

	step := 1
	for (xsize+step-1)/step > maxDim || (ysize+step-1)/step > maxDim {
		step++
	}
	outW := (xsize + step - 1) / step
	outH := (ysize + step - 1) / step

	vals := make([]float64, outW*outH)
	for row := 0; row < outH; row++ {
		line, err := src.ReadScaled(0, row*step, xsize, 1)
		if err != nil {
			return nil, fmt.Errorf("reading preview row %d: %w", row, err)
		}
		for col := 0; col < outW; col++ {
			vals[row*outW+col] = line[col*step]
		}
	}

	if pal != nil {
		return renderPalette(vals, outW, outH, pal), nil
	}
	return renderGrayscale(vals, outW, outH), nil
}

func renderPalette(vals []float64, w, h int, pal *landuse.Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		c, ok := pal.Lookup(int(math.Round(v)))
		if !ok {
			continue
		}
		img.SetRGBA(i%w, i/w, c.Color)
	}
	return img
}

func renderGrayscale(vals []float64, w, h int) *image.RGBA {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	span := hi - lo
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		g := uint8(255)
		if span > 0 {
			g = uint8(math.Round((v - lo) / span * 255))
		}
		img.SetRGBA(i%w, i/w, color.RGBA{R: g, G: g, B: g, A: 255})
	}
	return img
}
