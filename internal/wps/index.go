// Package wps implements the WPS Binary interchange format: the textual
// index sidecar, the tile filename convention, and the raw sample layout of
// the tile files.
package wps

import (
	"fmt"

	"github.com/geosim/geo2wps/internal/crs"
	"github.com/geosim/geo2wps/internal/raster"
)

// IndexFilename is the fixed name of the index sidecar inside a dataset folder.
const IndexFilename = "index"

// DefaultFilenameDigits is the tile filename field width unless the index
// declares otherwise.
const DefaultFilenameDigits = 5

// IndexMeta is the parsed metadata of a WPS Binary dataset. One value
// describes one dataset folder; it is built once (by Parse on the read path,
// or derived from a source raster on the write path) and not mutated after.
type IndexMeta struct {
	// encoding
	LittleEndian bool
	Signed       bool
	WordSize     int
	ScaleFactor  float64
	MissingValue *float64

	// tile geometry
	TileX      int
	TileY      int
	TileZStart int
	TileZEnd   int
	TileBdr    int // x and y only

	// TopBottom is true when rows are stored north to south.
	TopBottom bool

	// projection
	Projection crs.ProjectionID
	StdLon     *float64
	Truelat1   *float64
	Truelat2   *float64

	// grid georeferencing
	DX, DY             float64
	KnownLon, KnownLat float64
	KnownX, KnownY     float64 // 1-based fractional pixel index, pixel-center

	// categories
	Categorical bool
	CategoryMin *int
	CategoryMax *int

	// land use
	LanduseScheme string
	IsWater       *int
	IsLake        *int
	IsIce         *int
	IsUrban       *int

	// other
	FilenameDigits int
	Units          string
	Description    string
}

// Validate checks the cross-field invariants.
func (m *IndexMeta) Validate() error {
	if m.WordSize < 1 || m.WordSize > 4 {
		return fmt.Errorf("wordsize %d out of range 1-4", m.WordSize)
	}
	if m.Categorical {
		if m.CategoryMin == nil || m.CategoryMax == nil {
			return fmt.Errorf("categorical dataset requires category_min and category_max")
		}
		if *m.CategoryMin > *m.CategoryMax {
			return fmt.Errorf("category_min %d > category_max %d", *m.CategoryMin, *m.CategoryMax)
		}
	}
	if m.FilenameDigits != 5 && m.FilenameDigits != 6 {
		return fmt.Errorf("filename_digits must be 5 or 6, got %d", m.FilenameDigits)
	}
	return nil
}

// ZSize returns the number of vertical levels.
func (m *IndexMeta) ZSize() int {
	return m.TileZEnd - m.TileZStart + 1
}

// LanduseSchemeOrDefault returns the declared land-use scheme, defaulting
// to USGS.
func (m *IndexMeta) LanduseSchemeOrDefault() string {
	if m.LanduseScheme == "" {
		return "USGS"
	}
	return m.LanduseScheme
}

// IsLanduse reports whether the dataset declares land-use semantics.
func (m *IndexMeta) IsLanduse() bool {
	return m.LanduseScheme != "" ||
		m.IsWater != nil || m.IsLake != nil || m.IsIce != nil || m.IsUrban != nil
}

// DataType maps the declared word size and signedness to the sample type the
// mosaic exposes. Three-byte words have no native machine type and widen to
// the 32-bit types.
func (m *IndexMeta) DataType() (raster.DataType, error) {
	switch {
	case m.WordSize == 1 && !m.Signed:
		return raster.Byte, nil
	case m.WordSize == 2 && m.Signed:
		return raster.Int16, nil
	case m.WordSize == 2:
		return raster.UInt16, nil
	case m.WordSize == 3 || m.WordSize == 4:
		if m.Signed {
			return raster.Int32, nil
		}
		return raster.UInt32, nil
	}
	return 0, fmt.Errorf("word_size=%d signed=%v is not supported", m.WordSize, m.Signed)
}

// Byte-layout of a tile file, derived from the declared geometry.

// LineWidth returns the byte length of one stored row including the halo.
func (m *IndexMeta) LineWidth() int {
	return m.WordSize * (m.TileX + 2*m.TileBdr)
}

// LevelSize returns the byte length of one vertical level including halos.
func (m *IndexMeta) LevelSize() int {
	return m.LineWidth() * (m.TileY + 2*m.TileBdr)
}

// ImageOffset returns the byte offset of the first core (non-halo) sample
// within a level.
func (m *IndexMeta) ImageOffset() int {
	return m.TileBdr*m.LineWidth() + m.TileBdr*m.WordSize
}

// TileFileSize returns the expected byte length of a complete tile file.
func (m *IndexMeta) TileFileSize() int {
	return m.LevelSize() * m.ZSize()
}
