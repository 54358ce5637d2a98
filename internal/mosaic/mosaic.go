// Package mosaic opens a WPS Binary dataset folder as a single seamless
// raster assembled from its tile files.
package mosaic

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/geosim/geo2wps/internal/crs"
	"github.com/geosim/geo2wps/internal/landuse"
	"github.com/geosim/geo2wps/internal/raster"
	"github.com/geosim/geo2wps/internal/wps"
)

// ErrNoTiles reports a folder with a valid index but no tile files.
var ErrNoTiles = errors.New("mosaic: no tiles found")

type tileRef struct {
	path  string
	r     wps.TileRange
	yOff0 int // 0-based row of the tile's first stored core row in the mosaic
}

// Mosaic is an opened dataset folder. It reads tile data lazily; the index
// and the tile listing are resolved up front.
type Mosaic struct {
	Meta    *wps.IndexMeta
	Folder  string
	Palette *landuse.Palette // nil unless categorical

	xsize, ysize int
	tiles        []tileRef
	sref         crs.SpatialReference
	geo          raster.GeoTransform
	dtype        raster.DataType
}

// Open reads the index of a dataset folder, scans its tiles and derives the
// mosaic extent and georeferencing.
func Open(folder string) (*Mosaic, error) {
	meta, err := wps.ParseIndexFile(folder)
	if err != nil {
		return nil, err
	}
	return openWithMeta(folder, meta)
}

func openWithMeta(folder string, meta *wps.IndexMeta) (*Mosaic, error) {
	if meta.Projection == crs.RegularLL && meta.StdLon != nil {
		return nil, fmt.Errorf("mosaic: rotated pole system is not supported")
	}
	dtype, err := meta.DataType()
	if err != nil {
		return nil, fmt.Errorf("mosaic: %w", err)
	}

	m := &Mosaic{Meta: meta, Folder: folder, dtype: dtype}
	if err := m.scanTiles(); err != nil {
		return nil, err
	}

	m.sref, err = crs.Reference(crs.Projection{
		ID:       meta.Projection,
		Truelat1: meta.Truelat1,
		Truelat2: meta.Truelat2,
		StandLon: meta.StdLon,
	})
	if err != nil {
		return nil, fmt.Errorf("mosaic: %w", err)
	}
	tr, err := crs.NewTransform(m.sref)
	if err != nil {
		return nil, fmt.Errorf("mosaic: %w", err)
	}

	// The grid anchor is a geographic coordinate at a 1-based pixel-center
	// index counted from the bottom row. Converted to 0-based top-left pixel
	// indexing: row r (from bottom) sits at row ysize-r from the top.
	knownX, knownY := tr.Forward(meta.KnownLon, meta.KnownLat)
	xIdx := meta.KnownX - 0.5
	var yIdx, dy float64
	if meta.TopBottom {
		yIdx = float64(m.ysize) - meta.KnownY + 0.5
		dy = -meta.DY
	} else {
		yIdx = meta.KnownY - 0.5
		dy = meta.DY
	}
	m.geo = raster.GeoTransform{
		knownX - xIdx*meta.DX, meta.DX, 0,
		knownY + yIdx*meta.DY, 0, dy,
	}

	if meta.Categorical {
		m.Palette, err = landuse.PaletteFor(meta)
		if err != nil {
			return nil, fmt.Errorf("mosaic: %w", err)
		}
	}
	return m, nil
}

func (m *Mosaic) scanTiles() error {
	entries, err := os.ReadDir(m.Folder)
	if err != nil {
		return fmt.Errorf("mosaic: %w", err)
	}
	for _, e := range entries {
		r, ok := wps.ParseTileName(e.Name(), m.Meta.FilenameDigits)
		if !ok {
			continue
		}
		m.tiles = append(m.tiles, tileRef{path: filepath.Join(m.Folder, e.Name()), r: r})
		if r.EndX > m.xsize {
			m.xsize = r.EndX
		}
		if r.EndY > m.ysize {
			m.ysize = r.EndY
		}
	}
	if len(m.tiles) == 0 {
		return fmt.Errorf("%w in %s", ErrNoTiles, m.Folder)
	}
	// Row placement in storage order: top_bottom tiles store their
	// northernmost row first, so the tile covering rows [start, end]
	// (counted from the south) begins at mosaic row ysize-end.
	for i := range m.tiles {
		t := &m.tiles[i]
		if m.Meta.TopBottom {
			t.yOff0 = m.ysize - t.r.EndY
		} else {
			t.yOff0 = t.r.StartY - 1
		}
	}
	return nil
}

// Size returns the mosaic extent in pixels.
func (m *Mosaic) Size() (xsize, ysize int) { return m.xsize, m.ysize }

// TileCount returns the number of tile files found in the folder.
func (m *Mosaic) TileCount() int { return len(m.tiles) }

// Title builds a display title from the folder name, units and description.
func (m *Mosaic) Title() string {
	title := filepath.Base(m.Folder)
	if m.Meta.Units != "" && m.Meta.Units != "category" {
		title += " in " + m.Meta.Units
	}
	if m.Meta.Description != "" {
		title += " (" + m.Meta.Description + ")"
	}
	return title
}

// Band returns one vertical level of the mosaic as a raster source.
// The level index is 0-based over [0, ZSize).
func (m *Mosaic) Band(level int) (*Band, error) {
	if level < 0 || level >= m.Meta.ZSize() {
		return nil, fmt.Errorf("mosaic: level %d out of range 0-%d", level, m.Meta.ZSize()-1)
	}
	return &Band{m: m, level: level}, nil
}

// Band is a single level view over the mosaic, filling pixels not covered by
// any tile with the missing value.
type Band struct {
	m     *Mosaic
	level int
}

var _ raster.Source = (*Band)(nil)

func (b *Band) Size() (int, int)        { return b.m.xsize, b.m.ysize }
func (b *Band) Bands() int              { return 1 }
func (b *Band) DataType() raster.DataType { return b.m.dtype }

func (b *Band) NoData() (float64, bool) {
	if b.m.Meta.MissingValue == nil {
		return 0, false
	}
	return *b.m.Meta.MissingValue, true
}

func (b *Band) BlockSize() (int, int) { return b.m.Meta.TileX, b.m.Meta.TileY }

func (b *Band) GeoTransform() raster.GeoTransform { return b.m.geo }

func (b *Band) SpatialReference() crs.SpatialReference { return b.m.sref }

func (b *Band) Scale() float64  { return b.m.Meta.ScaleFactor }
func (b *Band) Offset() float64 { return 0 }

// ReadWindow assembles a pixel window from the intersecting tiles. The halo
// rows and columns of each tile file are skipped; only core samples appear
// in the mosaic.
func (b *Band) ReadWindow(x, y, w, h int) ([]float64, error) {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > b.m.xsize || y+h > b.m.ysize {
		return nil, fmt.Errorf("mosaic: window %d,%d %dx%d outside extent %dx%d", x, y, w, h, b.m.xsize, b.m.ysize)
	}
	fill := 0.0
	if v, ok := b.NoData(); ok {
		fill = v
	}
	out := make([]float64, w*h)
	if fill != 0 {
		for i := range out {
			out[i] = fill
		}
	}
	for _, t := range b.m.tiles {
		if err := b.readTileInto(t, x, y, w, h, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *Band) readTileInto(t tileRef, x, y, w, h int, out []float64) error {
	meta := b.m.Meta
	x0 := t.r.StartX - 1 // 0-based mosaic column of the tile's first sample
	y0 := t.yOff0

	ix0 := max(x, x0)
	iy0 := max(y, y0)
	ix1 := min(x+w, x0+meta.TileX)
	iy1 := min(y+h, y0+meta.TileY)
	if ix0 >= ix1 || iy0 >= iy1 {
		return nil
	}

	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("mosaic: %w", err)
	}
	defer f.Close()
	if fi, err := f.Stat(); err == nil && fi.Size() != int64(meta.TileFileSize()) {
		return fmt.Errorf("mosaic: tile %s has %d bytes, expected %d", t.path, fi.Size(), meta.TileFileSize())
	}

	levelBase := b.level*meta.LevelSize() + meta.ImageOffset()
	rowBytes := make([]byte, (ix1-ix0)*meta.WordSize)
	for row := iy0; row < iy1; row++ {
		tileRow := row - y0
		tileCol := ix0 - x0
		off := int64(levelBase + tileRow*meta.LineWidth() + tileCol*meta.WordSize)
		if _, err := f.ReadAt(rowBytes, off); err != nil {
			return fmt.Errorf("mosaic: read tile %s: %w", t.path, err)
		}
		vals, err := wps.DecodeSamples(rowBytes, meta)
		if err != nil {
			return err
		}
		copy(out[(row-y)*w+(ix0-x):], vals)
	}
	return nil
}

// ReadScaled reads a window and applies the scale factor, mapping missing
// samples to NaN.
func (b *Band) ReadScaled(x, y, w, h int) ([]float64, error) {
	vals, err := b.ReadWindow(x, y, w, h)
	if err != nil {
		return nil, err
	}
	nodata, hasNoData := b.NoData()
	for i, v := range vals {
		if hasNoData && v == nodata {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = v * b.m.Meta.ScaleFactor
	}
	return vals, nil
}
