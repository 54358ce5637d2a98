package landuse

import (
	"image/color"
	"reflect"
	"testing"

	"github.com/geosim/geo2wps/internal/wps"
)

func intp(v int) *int { return &v }

func TestSchemes(t *testing.T) {
	if got := Schemes(SchemeUSGS)[16].Label; got != "Water Bodies" {
		t.Errorf("USGS 16 = %q", got)
	}
	if got := Schemes(SchemeMODIS)[17].Label; got != "Water" {
		t.Errorf("MODIS 17 = %q", got)
	}
	if Schemes("NLCD") != nil {
		t.Error("unknown scheme must be nil")
	}
}

func TestCategoriesForOverlay(t *testing.T) {
	m := &wps.IndexMeta{
		Categorical:   true,
		CategoryMin:   intp(1),
		CategoryMax:   intp(40),
		LanduseScheme: SchemeUSGS,
		IsWater:       intp(16), // scheme already defines 16, keep scheme entry
		IsUrban:       intp(40), // undefined in scheme, overlay applies
		IsLake:        intp(50), // out of range, dropped
	}
	cats := CategoriesFor(m)
	if cats[16].Label != "Water Bodies" {
		t.Errorf("code 16 = %q, scheme entry must win", cats[16].Label)
	}
	if cats[40].Label != "Urban" {
		t.Errorf("code 40 = %q", cats[40].Label)
	}
	if _, ok := cats[50]; ok {
		t.Error("out-of-range islake code must be dropped")
	}
}

func TestCategoriesForNoLanduse(t *testing.T) {
	m := &wps.IndexMeta{Categorical: true, CategoryMin: intp(1), CategoryMax: intp(5)}
	if cats := CategoriesFor(m); len(cats) != 0 {
		t.Errorf("non-landuse dataset must have no scheme, got %d entries", len(cats))
	}
}

func TestWaterCodes(t *testing.T) {
	tests := []struct {
		name string
		meta wps.IndexMeta
		want []int
	}{
		{"usgs default", wps.IndexMeta{LanduseScheme: SchemeUSGS}, []int{16}},
		{"modis", wps.IndexMeta{LanduseScheme: SchemeMODIS}, []int{17}},
		{"declared lake", wps.IndexMeta{LanduseScheme: SchemeUSGS, IsLake: intp(28)}, []int{16, 28}},
		{"iswater duplicate", wps.IndexMeta{LanduseScheme: SchemeUSGS, IsWater: intp(16)}, []int{16}},
		{"iswater only implies usgs", wps.IndexMeta{IsWater: intp(3)}, []int{3, 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WaterCodes(&tt.meta)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWaterCodesUnsupportedScheme(t *testing.T) {
	if _, err := WaterCodes(&wps.IndexMeta{LanduseScheme: "NLCD"}); err == nil {
		t.Error("expected error for unknown scheme")
	}
	if _, err := WaterCodes(&wps.IndexMeta{}); err == nil {
		t.Error("expected error without land-use semantics")
	}
}

func TestBuildPalette(t *testing.T) {
	p := BuildPalette(Schemes(SchemeUSGS), 1, 33)
	if p.Min != 1 || p.Max() != 33 || len(p.Entries) != 33 {
		t.Fatalf("palette covers %d..%d with %d entries", p.Min, p.Max(), len(p.Entries))
	}
	if cat, ok := p.Lookup(24); !ok || cat.Label != "Snow or Ice" {
		t.Errorf("code 24 = %+v", cat)
	}
	// 29 and 30 have no USGS class and get generated entries.
	cat, ok := p.Lookup(29)
	if !ok || cat.Label != "Category 29" {
		t.Errorf("code 29 = %+v", cat)
	}
	if cat.Color.A != 0xFF {
		t.Error("placeholder color must be opaque")
	}
	again, _ := BuildPalette(Schemes(SchemeUSGS), 1, 33).Lookup(29)
	if again != cat {
		t.Error("placeholder entries must be deterministic")
	}
	if _, ok := p.Lookup(0); ok {
		t.Error("code below range must not resolve")
	}
	if _, ok := p.Lookup(34); ok {
		t.Error("code above range must not resolve")
	}
}

func TestBuildPaletteClipsScheme(t *testing.T) {
	p := BuildPalette(Schemes(SchemeUSGS), 1, 24)
	if p.Max() != 24 {
		t.Errorf("Max = %d", p.Max())
	}
	if _, ok := p.Lookup(31); ok {
		t.Error("codes outside the declared range must be clipped")
	}
}

func TestPaletteFor(t *testing.T) {
	m := &wps.IndexMeta{
		Categorical:   true,
		CategoryMin:   intp(1),
		CategoryMax:   intp(24),
		LanduseScheme: SchemeUSGS,
	}
	p, err := PaletteFor(m)
	if err != nil {
		t.Fatal(err)
	}
	if cat, _ := p.Lookup(1); cat.Color != (color.RGBA{0xFF, 0, 0, 0xFF}) {
		t.Errorf("code 1 color = %+v", cat.Color)
	}

	if _, err := PaletteFor(&wps.IndexMeta{}); err == nil {
		t.Error("continuous dataset has no palette")
	}
}
