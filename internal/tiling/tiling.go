// Package tiling splits a raster extent into the fixed-size tiles the binary
// format stores, including halo read windows and padding geometry.
package tiling

// TileThreshold is the axis size up to which the whole axis becomes a single
// tile.
const TileThreshold = 2400

// The divisor searches below walk candidate tile sizes from large to small so
// the biggest evenly-dividing size wins.
const (
	divisorSearchHi   = 3000
	divisorSearchLo   = 1000
	divisorSearchStep = 100

	exhaustiveSearchHi = 4000
	exhaustiveSearchLo = 100
)

// FindTileSize picks the tile size for one axis. Small axes stay untiled.
// Larger axes first try round tile sizes that divide the axis evenly; with
// tryHard set, every size down to 101 is tried before giving up. The
// fallback is TileThreshold, which generally tiles the axis imperfectly and
// requires padding.
func FindTileSize(axisSize int, tryHard bool) int {
	if axisSize <= TileThreshold {
		return axisSize
	}
	for size := divisorSearchHi; size > divisorSearchLo; size -= divisorSearchStep {
		if axisSize%size == 0 {
			return size
		}
	}
	if tryHard {
		for size := exhaustiveSearchHi; size > exhaustiveSearchLo; size-- {
			if axisSize%size == 0 {
				return size
			}
		}
	}
	return TileThreshold
}

// Tile is one output tile. Core coordinates are 0-based inclusive pixel
// indices in the source raster; the last tiles of each axis may extend past
// the source extent when tiling is imperfect.
//
// The read window (Offset/Data) is the halo-extended tile rectangle clipped
// to the source extent. Dst is where the window lands inside the padded tile
// buffer of size (tileX+2*halo) x (tileY+2*halo); everything outside it is
// fill.
type Tile struct {
	StartX, EndX int
	StartY, EndY int

	OffsetX, OffsetY int
	DataW, DataH     int

	DstX, DstY int
}

// Complete reports whether the read window covers the whole padded buffer,
// i.e. no fill is needed.
func (t *Tile) Complete(tileX, tileY, halo int) bool {
	return t.DataW == tileX+2*halo && t.DataH == tileY+2*halo
}

// Plan is the tiling of a raster extent.
type Plan struct {
	XSize, YSize int
	TileX, TileY int
	Halo         int
}

// Perfect reports whether the tiles cover the extent without padding.
func (p *Plan) Perfect() bool {
	return p.XSize%p.TileX == 0 && p.YSize%p.TileY == 0
}

// CountX returns the number of tile columns.
func (p *Plan) CountX() int { return (p.XSize + p.TileX - 1) / p.TileX }

// CountY returns the number of tile rows.
func (p *Plan) CountY() int { return (p.YSize + p.TileY - 1) / p.TileY }

// YSizePad returns the y extent including padding from imperfect tiling.
func (p *Plan) YSizePad() int { return p.TileY * p.CountY() }

// Tiles enumerates the tiles column by column.
func (p *Plan) Tiles() []Tile {
	tiles := make([]Tile, 0, p.CountX()*p.CountY())
	for startX := 0; startX < p.XSize; startX += p.TileX {
		for startY := 0; startY < p.YSize; startY += p.TileY {
			tiles = append(tiles, p.tileAt(startX, startY))
		}
	}
	return tiles
}

func (p *Plan) tileAt(startX, startY int) Tile {
	t := Tile{
		StartX: startX,
		EndX:   startX + p.TileX - 1,
		StartY: startY,
		EndY:   startY + p.TileY - 1,
	}
	startBdrX := startX - p.Halo
	startBdrY := startY - p.Halo
	endBdrX := t.EndX + p.Halo
	endBdrY := t.EndY + p.Halo

	t.OffsetX = max(0, startBdrX)
	t.OffsetY = max(0, startBdrY)
	if endBdrX >= p.XSize {
		t.DataW = p.XSize - t.OffsetX
	} else {
		t.DataW = endBdrX - t.OffsetX + 1
	}
	if endBdrY >= p.YSize {
		t.DataH = p.YSize - t.OffsetY
	} else {
		t.DataH = endBdrY - t.OffsetY + 1
	}
	t.DstX = t.OffsetX - startBdrX
	t.DstY = t.OffsetY - startBdrY
	return t
}
