package tiling

import "testing"

func TestFindTileSize(t *testing.T) {
	tests := []struct {
		name     string
		axisSize int
		tryHard  bool
		want     int
	}{
		{"tiny", 1, false, 1},
		{"at threshold", 2400, false, 2400},
		{"round divisor", 43200, false, 2700},
		{"round divisor global 30s", 21600, false, 2700},
		{"divisor below threshold", 4500, false, 1500},
		{"no divisor fallback", 9999, false, 2400},
		{"exhaustive search", 9999, true, 3333},
		{"exhaustive prime", 10007, true, 2400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindTileSize(tt.axisSize, tt.tryHard); got != tt.want {
				t.Errorf("FindTileSize(%d, %v) = %d, want %d", tt.axisSize, tt.tryHard, got, tt.want)
			}
		})
	}
}

func TestFindTileSizeDivides(t *testing.T) {
	// Whenever the result is not the fallback, it must divide the axis.
	for _, axis := range []int{2401, 3000, 5000, 43200, 86400, 999999} {
		for _, tryHard := range []bool{false, true} {
			size := FindTileSize(axis, tryHard)
			if size != TileThreshold && axis%size != 0 {
				t.Errorf("FindTileSize(%d, %v) = %d does not divide", axis, tryHard, size)
			}
		}
	}
}

func TestPlanPerfect(t *testing.T) {
	p := &Plan{XSize: 2400, YSize: 1200, TileX: 1200, TileY: 1200}
	if !p.Perfect() {
		t.Error("expected perfect tiling")
	}
	if p.CountX() != 2 || p.CountY() != 1 || p.YSizePad() != 1200 {
		t.Errorf("counts = %d x %d, pad %d", p.CountX(), p.CountY(), p.YSizePad())
	}
	tiles := p.Tiles()
	if len(tiles) != 2 {
		t.Fatalf("got %d tiles", len(tiles))
	}
	first := tiles[0]
	if first.StartX != 0 || first.EndX != 1199 || first.StartY != 0 || first.EndY != 1199 {
		t.Errorf("first core = %+v", first)
	}
	if !first.Complete(1200, 1200, 0) {
		t.Error("perfect tile without halo must be complete")
	}
	second := tiles[1]
	if second.StartX != 1200 || second.EndX != 2399 {
		t.Errorf("second core = %+v", second)
	}
}

func TestPlanImperfect(t *testing.T) {
	p := &Plan{XSize: 10, YSize: 6, TileX: 4, TileY: 6}
	if p.Perfect() {
		t.Error("tiling must be imperfect")
	}
	tiles := p.Tiles()
	if len(tiles) != 3 {
		t.Fatalf("got %d tiles", len(tiles))
	}
	last := tiles[2]
	if last.StartX != 8 || last.EndX != 11 {
		t.Errorf("last core = %+v", last)
	}
	if last.OffsetX != 8 || last.DataW != 2 || last.DstX != 0 {
		t.Errorf("last window = %+v", last)
	}
	if last.Complete(4, 6, 0) {
		t.Error("padded tile must not be complete")
	}
}

func TestPlanHaloClipping(t *testing.T) {
	p := &Plan{XSize: 2400, YSize: 1200, TileX: 1200, TileY: 1200, Halo: 3}
	tiles := p.Tiles()

	// Left tile: halo clipped at the west and north/south edges, full at the
	// seam to the right neighbor.
	left := tiles[0]
	if left.OffsetX != 0 || left.OffsetY != 0 {
		t.Errorf("left offset = %+v", left)
	}
	if left.DataW != 1203 || left.DataH != 1200 {
		t.Errorf("left window = %+v", left)
	}
	if left.DstX != 3 || left.DstY != 3 {
		t.Errorf("left dst = %+v", left)
	}

	// Right tile: halo available on the west side only.
	right := tiles[1]
	if right.OffsetX != 1197 || right.DataW != 1203 || right.DstX != 0 {
		t.Errorf("right window = %+v", right)
	}
}

func TestPlanInteriorHalo(t *testing.T) {
	p := &Plan{XSize: 3600, YSize: 3600, TileX: 1200, TileY: 1200, Halo: 3}
	tiles := p.Tiles()
	// Center tile of a 3x3 grid has full halo on all sides.
	center := tiles[4]
	if center.StartX != 1200 || center.StartY != 1200 {
		t.Fatalf("center core = %+v", center)
	}
	if center.OffsetX != 1197 || center.OffsetY != 1197 || center.DataW != 1206 || center.DataH != 1206 {
		t.Errorf("center window = %+v", center)
	}
	if !center.Complete(1200, 1200, 3) {
		t.Error("interior tile must be complete")
	}
}
