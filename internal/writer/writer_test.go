package writer

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geosim/geo2wps/internal/crs"
	"github.com/geosim/geo2wps/internal/mosaic"
	"github.com/geosim/geo2wps/internal/raster"
)

func lonLatSRef() crs.SpatialReference {
	return crs.SpatialReference{Geographic: true, Datum: crs.DatumWRFSphere}
}

// northUpByteSource builds a small north-up integer raster with distinct
// sample values.
func northUpByteSource(xsize, ysize int, nodata float64) *raster.MemSource {
	data := make([]float64, xsize*ysize)
	for i := range data {
		data[i] = float64(i % 250)
	}
	return &raster.MemSource{
		XSize: xsize, YSize: ysize,
		Data:        data,
		Type:        raster.Byte,
		NoDataValue: &nodata,
		Transform:   raster.GeoTransform{-180, 0.5, 0, 90, 0, -0.5},
		SRef:        lonLatSRef(),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	src := northUpByteSource(10, 6, 255)
	dir := filepath.Join(t.TempDir(), "out")

	res, err := Write(src, dir, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.DatumMismatch != nil {
		t.Errorf("unexpected datum mismatch: %+v", res.DatumMismatch)
	}
	if res.TileCount != 1 {
		t.Errorf("tile count = %d", res.TileCount)
	}
	if filepath.Base(res.IndexPath) != "index" {
		t.Errorf("index path = %s", res.IndexPath)
	}

	m, err := mosaic.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	xsize, ysize := m.Size()
	if xsize != 10 || ysize != 6 {
		t.Fatalf("mosaic size = %d x %d", xsize, ysize)
	}
	if !m.Meta.TopBottom || !m.Meta.LittleEndian {
		t.Error("tiles must be written top_bottom little endian")
	}
	if m.Meta.MissingValue == nil || *m.Meta.MissingValue != 255 {
		t.Errorf("missing value = %v", m.Meta.MissingValue)
	}

	band, err := m.Band(0)
	if err != nil {
		t.Fatal(err)
	}
	gt := band.GeoTransform()
	for i, want := range src.Transform {
		if math.Abs(gt[i]-want) > 1e-9 {
			t.Errorf("geotransform[%d] = %g, want %g", i, gt[i], want)
		}
	}
	got, err := band.ReadWindow(0, 0, 10, 6)
	if err != nil {
		t.Fatal(err)
	}
	for i := range src.Data {
		if got[i] != src.Data[i] {
			t.Fatalf("sample %d: got %g, want %g", i, got[i], src.Data[i])
		}
	}
}

func TestWriteSouthUpSource(t *testing.T) {
	src := northUpByteSource(4, 4, 255)
	src.Transform = raster.GeoTransform{-180, 1, 0, -90, 0, 1} // rows south to north
	dir := filepath.Join(t.TempDir(), "out")

	if _, err := Write(src, dir, Options{}); err != nil {
		t.Fatal(err)
	}
	m, err := mosaic.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	band, err := m.Band(0)
	if err != nil {
		t.Fatal(err)
	}
	if gt := band.GeoTransform(); gt[5] >= 0 {
		t.Errorf("mosaic must be north-up, dy = %g", gt[5])
	}
	got, err := band.ReadWindow(0, 0, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	// The mosaic's first row is the source's last (northernmost) row.
	for col := 0; col < 4; col++ {
		if got[col] != src.Data[3*4+col] {
			t.Errorf("row 0 col %d: got %g, want %g", col, got[col], src.Data[3*4+col])
		}
		if got[3*4+col] != src.Data[col] {
			t.Errorf("row 3 col %d: got %g, want %g", col, got[3*4+col], src.Data[col])
		}
	}
}

func TestWriteFloatScaling(t *testing.T) {
	nodata := -999.0
	src := &raster.MemSource{
		XSize: 2, YSize: 2,
		Data:        []float64{0.5, 0.9, 0.95, -999},
		Type:        raster.Float32,
		NoDataValue: &nodata,
		Transform:   raster.GeoTransform{0, 1, 0, 2, 0, -1},
		SRef:        lonLatSRef(),
	}
	dir := filepath.Join(t.TempDir(), "out")
	if _, err := Write(src, dir, Options{}); err != nil {
		t.Fatal(err)
	}

	m, err := mosaic.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Meta.ScaleFactor != 0.01 {
		t.Errorf("scale factor = %g, want 0.01", m.Meta.ScaleFactor)
	}
	if m.Meta.WordSize != 1 || m.Meta.Signed {
		t.Errorf("storage = wordsize %d signed %v, want unsigned byte", m.Meta.WordSize, m.Meta.Signed)
	}
	if m.Meta.MissingValue == nil || *m.Meta.MissingValue != 255 {
		t.Errorf("missing value = %v, sentinel must sit at the top of the byte range", m.Meta.MissingValue)
	}

	band, err := m.Band(0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := band.ReadScaled(0, 0, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.5, 0.9, 0.95, math.NaN()}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("sample %d: got %g, want NaN", i, got[i])
			}
			continue
		}
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestWriteImperfectTilingPads(t *testing.T) {
	// 2401 columns cannot be tiled evenly with the fallback size, so the
	// second tile is padded with the no-data value.
	xsize := 2401
	data := make([]float64, xsize)
	for i := range data {
		data[i] = float64(1 + i%20)
	}
	nodata := 255.0
	src := &raster.MemSource{
		XSize: xsize, YSize: 1,
		Data:        data,
		Type:        raster.Byte,
		NoDataValue: &nodata,
		Transform:   raster.GeoTransform{-180, 0.1, 0, 90, 0, -0.1},
		SRef:        lonLatSRef(),
	}
	dir := filepath.Join(t.TempDir(), "out")
	res, err := Write(src, dir, Options{Categorical: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.TileCount != 2 {
		t.Fatalf("tile count = %d", res.TileCount)
	}
	if _, err := os.Stat(filepath.Join(dir, "00001-02400.00001-00001")); err != nil {
		t.Error(err)
	}
	second := filepath.Join(dir, "02401-04800.00001-00001")
	raw, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 2400 {
		t.Fatalf("second tile has %d bytes", len(raw))
	}
	if raw[0] != byte(data[2400]) {
		t.Errorf("first sample of second tile = %d, want %g", raw[0], data[2400])
	}
	for i := 1; i < len(raw); i++ {
		if raw[i] != 255 {
			t.Fatalf("pad byte %d = %d, want 255", i, raw[i])
		}
	}

	// The mosaic extent includes the padding; reading across the seam
	// returns real samples then the sentinel.
	m, err := mosaic.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	mx, _ := m.Size()
	if mx != 4800 {
		t.Fatalf("mosaic xsize = %d", mx)
	}
	band, err := m.Band(0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := band.ReadWindow(2398, 0, 6, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != data[2398] || got[2] != data[2400] {
		t.Errorf("seam samples = %v", got[:3])
	}
	if got[3] != 255 || got[5] != 255 {
		t.Errorf("padding samples = %v, want sentinel", got[3:])
	}
}

func TestWriteCategoricalIndex(t *testing.T) {
	src := northUpByteSource(8, 8, 255)
	for i := range src.Data {
		src.Data[i] = float64(1 + i%24)
	}
	dir := filepath.Join(t.TempDir(), "out")
	if _, err := Write(src, dir, Options{Categorical: true}); err != nil {
		t.Fatal(err)
	}
	m, err := mosaic.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Meta.Categorical {
		t.Fatal("expected categorical dataset")
	}
	if *m.Meta.CategoryMin != 1 || *m.Meta.CategoryMax != 24 {
		t.Errorf("category range = %d..%d", *m.Meta.CategoryMin, *m.Meta.CategoryMax)
	}
	if m.Meta.Units != "category" {
		t.Errorf("units = %q, must default for categorical data", m.Meta.Units)
	}
	if m.Meta.TileBdr != 0 {
		t.Errorf("categorical data must not carry a halo, got %d", m.Meta.TileBdr)
	}
}

func TestWriteDatumMismatch(t *testing.T) {
	src := northUpByteSource(4, 4, 255)
	src.SRef = crs.SpatialReference{Geographic: true, Datum: crs.DatumWGS84}

	// Strict is the default: a mismatched datum fails the conversion.
	if _, err := Write(src, filepath.Join(t.TempDir(), "strict"), Options{}); err == nil {
		t.Fatal("default options must reject a WGS84 source")
	}

	res, err := Write(src, filepath.Join(t.TempDir(), "lax"), Options{AllowDatumMismatch: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.DatumMismatch == nil {
		t.Fatal("mismatch must be reported when allowed through")
	}
	if res.DatumMismatch.Expected != "WRF Sphere (6370km)" {
		t.Errorf("expected datum = %q", res.DatumMismatch.Expected)
	}
}

func TestWriteErrors(t *testing.T) {
	t.Run("non-empty folder", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "leftover"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Write(northUpByteSource(4, 4, 255), dir, Options{}); err == nil ||
			!strings.Contains(err.Error(), "must be empty") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("categorical float", func(t *testing.T) {
		src := &raster.MemSource{
			XSize: 2, YSize: 2,
			Data:      []float64{1, 2, 3, 4},
			Type:      raster.Float64,
			Transform: raster.GeoTransform{0, 1, 0, 2, 0, -1},
			SRef:      lonLatSRef(),
		}
		if _, err := Write(src, filepath.Join(t.TempDir(), "out"), Options{Categorical: true}); err == nil {
			t.Error("float categorical data must be rejected")
		}
	})

	t.Run("integer offset", func(t *testing.T) {
		src := northUpByteSource(4, 4, 255)
		src.OffsetValue = 10
		if _, err := Write(src, filepath.Join(t.TempDir(), "out"), Options{}); err == nil {
			t.Error("integer data with offset must be rejected")
		}
	})

	t.Run("imperfect tiling without nodata", func(t *testing.T) {
		// A prime axis size has no divisor in the search range, so the
		// fallback tile size leaves a padded remainder.
		data := make([]float64, 2411)
		src := &raster.MemSource{
			XSize: 2411, YSize: 1,
			Data:      data,
			Type:      raster.Byte,
			Transform: raster.GeoTransform{-180, 0.1, 0, 90, 0, -0.1},
			SRef:      lonLatSRef(),
		}
		if _, err := Write(src, filepath.Join(t.TempDir(), "out"), Options{Categorical: true}); err == nil ||
			!strings.Contains(err.Error(), "no-data") {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("halo without nodata", func(t *testing.T) {
		// Continuous multi-tile data needs a halo, and a halo needs a
		// no-data value. 4800 columns tile evenly (2400x2), so the only
		// missing piece is the sentinel.
		data := make([]float64, 4800)
		src := &raster.MemSource{
			XSize: 4800, YSize: 1,
			Data:      data,
			Type:      raster.Byte,
			Transform: raster.GeoTransform{-180, 0.05, 0, 90, 0, -0.05},
			SRef:      lonLatSRef(),
		}
		if _, err := Write(src, filepath.Join(t.TempDir(), "out"), Options{}); err == nil ||
			!strings.Contains(err.Error(), "halo") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestOptimalDataType(t *testing.T) {
	tests := []struct {
		min, max float64
		want     raster.DataType
	}{
		{0, 200, raster.Byte},
		{0, 300, raster.UInt16},
		{0, 70000, raster.UInt32},
		{-5, 100, raster.Int16},
		{-40000, 100, raster.Int32},
	}
	for _, tt := range tests {
		got, err := optimalDataType(tt.min, tt.max)
		if err != nil {
			t.Errorf("optimalDataType(%g, %g): %v", tt.min, tt.max, err)
			continue
		}
		if got != tt.want {
			t.Errorf("optimalDataType(%g, %g) = %s, want %s", tt.min, tt.max, got, tt.want)
		}
	}
	if _, err := optimalDataType(-1, 1e18); err == nil {
		t.Error("range beyond Int32 must fail")
	}
}

func TestNoDataValueFor(t *testing.T) {
	if v, err := noDataValueFor(raster.Byte, 0, 200); err != nil || v != 255 {
		t.Errorf("got %g, %v", v, err)
	}
	if v, err := noDataValueFor(raster.Int16, -32768, 32767); err == nil {
		t.Errorf("full-range data must fail, got %g", v)
	}
	if v, err := noDataValueFor(raster.Byte, 1, 255); err != nil || v != 0 {
		t.Errorf("got %g, %v", v, err)
	}
}
