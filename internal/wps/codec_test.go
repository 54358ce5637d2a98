package wps

import (
	"bytes"
	"testing"
)

func TestTileName(t *testing.T) {
	tests := []struct {
		r      TileRange
		digits int
		want   string
	}{
		{TileRange{1, 1200, 1, 1200}, 5, "00001-01200.00001-01200"},
		{TileRange{1201, 2400, 1, 1200}, 5, "01201-02400.00001-01200"},
		{TileRange{1, 100000, 1, 100000}, 6, "000001-100000.000001-100000"},
	}
	for _, tt := range tests {
		if got := TileName(tt.r, tt.digits); got != tt.want {
			t.Errorf("TileName(%+v, %d) = %q, want %q", tt.r, tt.digits, got, tt.want)
		}
	}
}

func TestParseTileName(t *testing.T) {
	r, ok := ParseTileName("00001-01200.01201-02400", 5)
	if !ok {
		t.Fatal("expected match")
	}
	want := TileRange{1, 1200, 1201, 2400}
	if r != want {
		t.Errorf("got %+v, want %+v", r, want)
	}

	for _, name := range []string{
		"index",
		"00001-01200.01201-02400", // wrong digits for 6
		"0001-1200.0001-1200",
		"00001-01200.01201-02400.txt",
	} {
		if _, ok := ParseTileName(name, 6); ok {
			t.Errorf("%q must not match with 6 digits", name)
		}
	}
}

func TestTileNameRoundTrip(t *testing.T) {
	for _, digits := range []int{5, 6} {
		r := TileRange{StartX: 301, EndX: 600, StartY: 1, EndY: 300}
		got, ok := ParseTileName(TileName(r, digits), digits)
		if !ok || got != r {
			t.Errorf("digits=%d: got %+v ok=%v", digits, got, ok)
		}
	}
}

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		meta IndexMeta
		vals []float64
	}{
		{"byte", IndexMeta{WordSize: 1}, []float64{0, 1, 127, 254, 255}},
		{"uint16 big", IndexMeta{WordSize: 2}, []float64{0, 255, 256, 65535}},
		{"uint16 little", IndexMeta{WordSize: 2, LittleEndian: true}, []float64{0, 255, 256, 65535}},
		{"int16 big", IndexMeta{WordSize: 2, Signed: true}, []float64{-32768, -1, 0, 1, 32767}},
		{"int16 little", IndexMeta{WordSize: 2, Signed: true, LittleEndian: true}, []float64{-32768, -1, 32767}},
		{"uint24", IndexMeta{WordSize: 3}, []float64{0, 65536, 16777215}},
		{"int24", IndexMeta{WordSize: 3, Signed: true}, []float64{-8388608, -1, 0, 8388607}},
		{"uint32", IndexMeta{WordSize: 4}, []float64{0, 1 << 24, 4294967295}},
		{"int32 little", IndexMeta{WordSize: 4, Signed: true, LittleEndian: true}, []float64{-2147483648, -1, 0, 2147483647}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeSamples(tt.vals, &tt.meta)
			if err != nil {
				t.Fatal(err)
			}
			if len(raw) != len(tt.vals)*tt.meta.WordSize {
				t.Fatalf("encoded %d bytes, want %d", len(raw), len(tt.vals)*tt.meta.WordSize)
			}
			got, err := DecodeSamples(raw, &tt.meta)
			if err != nil {
				t.Fatal(err)
			}
			for i := range tt.vals {
				if got[i] != tt.vals[i] {
					t.Errorf("value %d: got %g, want %g", i, got[i], tt.vals[i])
				}
			}
		})
	}
}

func TestEncodeKnownBytes(t *testing.T) {
	m := IndexMeta{WordSize: 2}
	raw, err := EncodeSamples([]float64{0x0102}, &m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, []byte{0x01, 0x02}) {
		t.Errorf("big endian bytes = %x", raw)
	}

	m.LittleEndian = true
	raw, err = EncodeSamples([]float64{0x0102}, &m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, []byte{0x02, 0x01}) {
		t.Errorf("little endian bytes = %x", raw)
	}
}

func TestEncodeThreeByteExtremes(t *testing.T) {
	m := IndexMeta{WordSize: 3, Signed: true, LittleEndian: true}
	raw, err := EncodeSamples([]float64{-1}, &m)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, []byte{0xff, 0xff, 0xff}) {
		t.Errorf("-1 as int24 = %x", raw)
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		meta IndexMeta
		val  float64
	}{
		{"byte overflow", IndexMeta{WordSize: 1}, 256},
		{"unsigned negative", IndexMeta{WordSize: 2}, -1},
		{"int16 overflow", IndexMeta{WordSize: 2, Signed: true}, 32768},
		{"int24 underflow", IndexMeta{WordSize: 3, Signed: true}, -8388609},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeSamples([]float64{tt.val}, &tt.meta); err == nil {
				t.Errorf("value %g must not encode", tt.val)
			}
		})
	}
}

func TestDecodeBadLength(t *testing.T) {
	m := IndexMeta{WordSize: 2}
	if _, err := DecodeSamples([]byte{1, 2, 3}, &m); err == nil {
		t.Error("expected length error")
	}
}
