package writer

import (
	"fmt"
	"io"
	"math"

	"github.com/geosim/geo2wps/internal/crs"
	"github.com/geosim/geo2wps/internal/quantize"
	"github.com/geosim/geo2wps/internal/raster"
	"github.com/geosim/geo2wps/internal/tiling"
	"github.com/geosim/geo2wps/internal/wps"
)

// scaling holds the float-to-integer conversion applied to every sample on
// the way into a tile file.
type scaling struct {
	needed    bool // floating point source, samples are scaled and rounded
	invFactor float64
	hasNoData bool
	srcNoData float64
	dstNoData float64 // sentinel after scaling
	tileFill  float64 // padding value for incomplete tiles
}

// buildIndex derives the complete index metadata from the source raster.
// For floating point sources this pass reads the whole band once to estimate
// the scale factor and value range.
func buildIndex(src raster.Source, plan *tiling.Plan, filenameDigits int, opts Options) (*wps.IndexMeta, *crs.DatumMismatch, *scaling, error) {
	sc := &scaling{}
	sc.srcNoData, sc.hasNoData = src.NoData()

	dtype := src.DataType()
	scaleFactor := 1.0
	var missing *float64

	if dtype.IsInteger() {
		if src.Offset() != 0 {
			return nil, nil, nil, fmt.Errorf("writer: integer data with offset is not supported")
		}
		scaleFactor = src.Scale()
		if sc.hasNoData {
			v := sc.srcNoData
			missing = &v
			sc.tileFill = v
		}
	} else {
		if opts.Categorical {
			return nil, nil, nil, fmt.Errorf("writer: categorical data must have integer-type data but is float")
		}
		if src.Offset() != 0 || src.Scale() != 1 {
			return nil, nil, nil, fmt.Errorf("writer: floating point data with scale/offset is not supported")
		}
		inv, min, max, err := quantize.ComputeInvScaleFactor(newBlockSource(src))
		if err != nil {
			return nil, nil, nil, err
		}
		if math.IsInf(min, 1) {
			return nil, nil, nil, fmt.Errorf("writer: dataset has no valid samples")
		}
		sc.needed = true
		sc.invFactor = float64(inv)
		scaleFactor = 1 / sc.invFactor

		minScaled := math.Round(min * sc.invFactor)
		maxScaled := math.Round(max * sc.invFactor)
		dtype, err = optimalDataType(minScaled, maxScaled)
		if err != nil {
			return nil, nil, nil, err
		}
		if sc.hasNoData {
			nd, err := noDataValueFor(dtype, minScaled, maxScaled)
			if err != nil {
				return nil, nil, nil, err
			}
			missing = &nd
			sc.dstNoData = nd
			sc.tileFill = nd
		}
	}

	wordSize, signed, err := wps.WordSizeFor(dtype)
	if err != nil {
		return nil, nil, nil, err
	}

	sref := src.SpatialReference()
	proj, mismatch, err := crs.Classify(sref, !opts.AllowDatumMismatch)
	if err != nil {
		return nil, nil, nil, err
	}

	gt := src.GeoTransform()
	dx, dy := gt[1], gt[5]
	if dx <= 0 {
		return nil, nil, nil, fmt.Errorf("writer: pixel width must be positive, got %g", dx)
	}
	if gt[2] != 0 || gt[4] != 0 {
		return nil, nil, nil, fmt.Errorf("writer: rotated rasters are not supported")
	}

	// The grid anchor is pixel (1,1) in 1-based pixel-center indexing,
	// counted from the bottom row of the padded extent. Rows are written
	// north to south, so for a north-up source that is the bottom-left
	// corner pixel of the last (possibly padded) tile row.
	xIdx := 0.5
	yIdx := 0.5
	if dy < 0 {
		yIdx = float64(plan.YSizePad()) - 0.5
	}
	crsX, crsY := gt.PixelToCRS(xIdx, yIdx)
	tr, err := crs.NewTransform(sref)
	if err != nil {
		return nil, nil, nil, err
	}
	knownLon, knownLat := tr.Inverse(crsX, crsY)

	units := opts.Units
	if opts.Categorical && units == "" {
		units = "category"
	}

	meta := &wps.IndexMeta{
		LittleEndian: true,
		Signed:       signed,
		WordSize:     wordSize,
		ScaleFactor:  scaleFactor,
		MissingValue: missing,

		TileX:      plan.TileX,
		TileY:      plan.TileY,
		TileZStart: 1,
		TileZEnd:   1,
		TileBdr:    plan.Halo,

		TopBottom: true,

		Projection: proj.ID,
		StdLon:     proj.StandLon,
		Truelat1:   proj.Truelat1,
		Truelat2:   proj.Truelat2,

		DX:       dx,
		DY:       math.Abs(dy),
		KnownLon: knownLon,
		KnownLat: knownLat,
		KnownX:   1,
		KnownY:   1,

		Categorical:    opts.Categorical,
		FilenameDigits: filenameDigits,
		Units:          units,
		Description:    opts.Description,
	}

	if opts.Categorical {
		catMin, catMax, err := categoryRange(src)
		if err != nil {
			return nil, nil, nil, err
		}
		meta.CategoryMin = &catMin
		meta.CategoryMax = &catMax
	}

	if err := meta.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("writer: %w", err)
	}
	return meta, mismatch, sc, nil
}

// Size-ordered candidate types for scaled data.
var (
	unsignedTypes = []raster.DataType{raster.Byte, raster.UInt16, raster.UInt32}
	signedTypes   = []raster.DataType{raster.Int16, raster.Int32}
)

// optimalDataType picks the smallest integer type that holds [min, max].
func optimalDataType(min, max float64) (raster.DataType, error) {
	candidates := unsignedTypes
	if min < 0 {
		candidates = signedTypes
	}
	for _, dt := range candidates {
		lo, hi := dt.Range()
		if lo <= min && max <= hi {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("writer: data value range [%g, %g] exceeds available data types", min, max)
}

// noDataValueFor picks a sentinel outside the data range, preferring the top
// of the type range.
func noDataValueFor(dt raster.DataType, min, max float64) (float64, error) {
	lo, hi := dt.Range()
	if max < hi {
		return hi, nil
	}
	if lo < min {
		return lo, nil
	}
	return 0, fmt.Errorf("writer: unable to pick a no-data value as the data range equals the %s range", dt)
}

// categoryRange scans the band for its integer value range, ignoring no-data
// samples.
func categoryRange(src raster.Source) (int, int, error) {
	blocks := newBlockSource(src)
	min := math.Inf(1)
	max := math.Inf(-1)
	for {
		b, err := blocks.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, err
		}
		for _, v := range b.Values {
			if math.IsNaN(v) {
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if math.IsInf(min, 1) {
		return 0, 0, fmt.Errorf("writer: categorical dataset has no valid samples")
	}
	if min != math.Trunc(min) || max != math.Trunc(max) {
		return 0, 0, fmt.Errorf("writer: categorical values must be integral, range is [%g, %g]", min, max)
	}
	return int(min), int(max), nil
}

// blockSource yields the band block by block in the source's natural block
// size, with no-data samples masked to NaN.
type blockSource struct {
	src    raster.Source
	bw, bh int
	nx, ny int
	i      int
}

func newBlockSource(src raster.Source) *blockSource {
	xsize, ysize := src.Size()
	bw, bh := src.BlockSize()
	return &blockSource{
		src: src,
		bw:  bw, bh: bh,
		nx: (xsize + bw - 1) / bw,
		ny: (ysize + bh - 1) / bh,
	}
}

func (b *blockSource) NextBlock() (quantize.Block, error) {
	if b.i >= b.nx*b.ny {
		return quantize.Block{}, io.EOF
	}
	bx := b.i % b.nx
	by := b.i / b.nx
	b.i++

	xsize, ysize := b.src.Size()
	x := bx * b.bw
	y := by * b.bh
	w := min(b.bw, xsize-x)
	h := min(b.bh, ysize-y)
	data, err := raster.ReadWindowMasked(b.src, x, y, w, h)
	if err != nil {
		return quantize.Block{}, err
	}
	return quantize.Block{Values: data}, nil
}
