package raster

import (
	"fmt"
	"math"

	"github.com/geosim/geo2wps/internal/crs"
)

// GeoTransform is the six-parameter affine transform from pixel indices to
// CRS coordinates, in the usual order: origin x, pixel width, row rotation,
// origin y, column rotation, pixel height. The origin is the outer corner of
// the (0,0) pixel; pixel height is negative for north-up rasters.
type GeoTransform [6]float64

// PixelToCRS converts a fractional pixel position to CRS coordinates.
func (gt GeoTransform) PixelToCRS(px, py float64) (x, y float64) {
	x = gt[0] + px*gt[1] + py*gt[2]
	y = gt[3] + px*gt[4] + py*gt[5]
	return
}

// Source is the raster collaborator interface the codec consumes: anything
// that can report its geometry and hand out rectangular pixel windows as
// float64 samples.
type Source interface {
	// Size returns the raster dimensions in pixels.
	Size() (xsize, ysize int)

	// Bands returns the number of bands.
	Bands() int

	// DataType returns the storage type of band 1.
	DataType() DataType

	// NoData returns the declared missing-value sentinel, if any.
	NoData() (float64, bool)

	// BlockSize returns the natural I/O block dimensions.
	BlockSize() (w, h int)

	// ReadWindow reads a w×h window of band 1 with its top-left corner at
	// pixel (x, y), row-major. Samples equal to the no-data sentinel are
	// returned as-is (not masked).
	ReadWindow(x, y, w, h int) ([]float64, error)

	// GeoTransform returns the pixel-to-CRS affine transform.
	GeoTransform() GeoTransform

	// SpatialReference returns the source's coordinate reference system.
	SpatialReference() crs.SpatialReference

	// Scale and Offset are the declared linear sample transform
	// (value = stored*scale + offset); (1, 0) when undeclared.
	Scale() float64
	Offset() float64
}

// MemSource is an in-memory Source. Values are stored row-major as float64.
type MemSource struct {
	XSize, YSize int
	Data         []float64
	Type         DataType
	NoDataValue  *float64
	Transform    GeoTransform
	SRef         crs.SpatialReference
	BlockW       int // defaults to XSize
	BlockH       int // defaults to 1
	ScaleValue   float64
	OffsetValue  float64
}

func (m *MemSource) Size() (int, int)  { return m.XSize, m.YSize }
func (m *MemSource) Bands() int        { return 1 }
func (m *MemSource) DataType() DataType { return m.Type }

func (m *MemSource) NoData() (float64, bool) {
	if m.NoDataValue == nil {
		return 0, false
	}
	return *m.NoDataValue, true
}

func (m *MemSource) BlockSize() (int, int) {
	w, h := m.BlockW, m.BlockH
	if w <= 0 {
		w = m.XSize
	}
	if h <= 0 {
		h = 1
	}
	return w, h
}

func (m *MemSource) GeoTransform() GeoTransform { return m.Transform }

func (m *MemSource) SpatialReference() crs.SpatialReference { return m.SRef }

func (m *MemSource) Scale() float64 {
	if m.ScaleValue == 0 {
		return 1
	}
	return m.ScaleValue
}

func (m *MemSource) Offset() float64 { return m.OffsetValue }

func (m *MemSource) ReadWindow(x, y, w, h int) ([]float64, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > m.XSize || y+h > m.YSize {
		return nil, fmt.Errorf("window %dx%d at (%d,%d) outside raster %dx%d",
			w, h, x, y, m.XSize, m.YSize)
	}
	out := make([]float64, w*h)
	for row := 0; row < h; row++ {
		copy(out[row*w:(row+1)*w], m.Data[(y+row)*m.XSize+x:(y+row)*m.XSize+x+w])
	}
	return out, nil
}

// ReadWindowMasked reads a window from src with no-data samples replaced by
// NaN, the masked representation the quantizer expects.
func ReadWindowMasked(src Source, x, y, w, h int) ([]float64, error) {
	data, err := src.ReadWindow(x, y, w, h)
	if err != nil {
		return nil, err
	}
	if nd, ok := src.NoData(); ok {
		for i, v := range data {
			if v == nd {
				data[i] = math.NaN()
			}
		}
	}
	return data, nil
}
