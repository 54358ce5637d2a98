package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geosim/geo2wps/internal/mosaic"
	"github.com/geosim/geo2wps/internal/wps"
)

func intp(v int) *int { return &v }

// writeLanduseDataset lays out a one-tile USGS land-use dataset on disk.
func writeLanduseDataset(t *testing.T) string {
	t.Helper()
	meta := &wps.IndexMeta{
		WordSize: 1, ScaleFactor: 1,
		TileX: 2, TileY: 2, TileZStart: 1, TileZEnd: 1,
		TopBottom:  true,
		Projection: "regular_ll",
		DX:         1, DY: 1,
		KnownLon: -179.5, KnownLat: -89.5,
		KnownX: 1, KnownY: 1,
		FilenameDigits: 5,
		Categorical:    true,
		CategoryMin:    intp(1),
		CategoryMax:    intp(24),
		LanduseScheme:  "USGS",
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, wps.IndexFilename), []byte(wps.SerializeIndex(meta)), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, err := wps.EncodeSamples([]float64{16, 16, 16, 16}, meta)
	if err != nil {
		t.Fatal(err)
	}
	name := wps.TileName(wps.TileRange{StartX: 1, EndX: 2, StartY: 1, EndY: 2}, meta.FilenameDigits)
	if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestPrintInfo(t *testing.T) {
	dir := writeLanduseDataset(t)
	m, err := mosaic.Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	printInfo(&buf, m, dir)
	out := buf.String()

	for _, want := range []string{
		"Storage: Byte, 1 byte word(s)",
		"Categorical: codes 1..24",
		"Landuse scheme: USGS",
		"Landmask water codes: [16]",
		"Tiles: 1 file(s), 2 x 2 pixels",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
