// Package landuse carries the WRF land-use category schemes and derives
// display palettes for categorical datasets.
package landuse

import (
	"fmt"
	"hash/fnv"
	"image/color"
	"sort"

	"github.com/geosim/geo2wps/internal/wps"
)

// Category is one land-use class: a human-readable label and a display color.
type Category struct {
	Label string
	Color color.RGBA
}

// Scheme maps category codes to classes. Codes need not be contiguous.
type Scheme map[int]Category

// The schemes from WRF's LANDUSE.TBL. Codes 31-33 are the NLCD urban
// sub-classes shared by both schemes.
const (
	SchemeUSGS  = "USGS"
	SchemeMODIS = "MODIFIED_IGBP_MODIS_NOAH"
)

// Schemes returns the named scheme, or nil if unknown.
func Schemes(name string) Scheme {
	switch name {
	case SchemeUSGS:
		return usgs
	case SchemeMODIS:
		return modis
	}
	return nil
}

var usgs = Scheme{
	1:  {"Urban and Built-Up Land", rgb(0xFF0000)},
	2:  {"Dryland Cropland and Pasture", rgb(0xFFFF00)},
	3:  {"Irrigated Cropland and Pasture", rgb(0xFFF054)},
	4:  {"Mixed Dryland/Irrigated Cropland and Pasture", rgb(0xF9FF56)},
	5:  {"Cropland/Grassland Mosaic", rgb(0xDEFF68)},
	6:  {"Cropland/Woodland Mosaic", rgb(0xFFE36B)},
	7:  {"Grassland", rgb(0xFF9900)},
	8:  {"Shrubland", rgb(0x993366)},
	9:  {"Mixed Shrubland/Grassland", rgb(0xFFCC99)},
	10: {"Savanna", rgb(0xFFCC00)},
	11: {"Deciduous Broadleaf Forest", rgb(0x99FF99)},
	12: {"Deciduous Needleleaf Forest", rgb(0x99CC00)},
	13: {"Evergreen Broadleaf Forest", rgb(0x00FF00)},
	14: {"Evergreen Needleleaf Forest", rgb(0x008000)},
	15: {"Mixed Forest", rgb(0x339966)},
	16: {"Water Bodies", rgb(0x000080)},
	17: {"Herbaceous Wetland", rgb(0x008299)},
	18: {"Wooded Wetland", rgb(0x006699)},
	19: {"Barren or Sparsely Vegetated", rgb(0x808080)},
	20: {"Herbaceous Tundra", rgb(0x378754)},
	21: {"Wooded Tundra", rgb(0x008833)},
	22: {"Mixed Tundra", rgb(0x4A8760)},
	23: {"Bare Ground Tundra", rgb(0x748760)},
	24: {"Snow or Ice", rgb(0xBAECFF)},
	25: {"Playa", rgb(0xC2DFA9)},
	26: {"Lava", rgb(0xC23E29)},
	27: {"White Sand", rgb(0xDEE8CD)},
	28: {"Lake", rgb(0x0000FF)},
	31: {"Low Intensity Residential", rgb(0x686868)},
	32: {"High Intensity Residential", rgb(0x515151)},
	33: {"Industrial or Commercial", rgb(0x2D2D2D)},
}

var modis = Scheme{
	1:  {"Evergreen Needleleaf Forest", rgb(0x008000)},
	2:  {"Evergreen Broadleaf Forest", rgb(0x00FF00)},
	3:  {"Deciduous Needleleaf Forest", rgb(0x99CC00)},
	4:  {"Deciduous Broadleaf Forest", rgb(0x99FF99)},
	5:  {"Mixed Forests", rgb(0x339966)},
	6:  {"Closed Shrublands", rgb(0x993366)},
	7:  {"Open Shrublands", rgb(0xFFCC99)},
	8:  {"Woody Savannas", rgb(0xCCFFCC)},
	9:  {"Savannas", rgb(0xFFCC00)},
	10: {"Grasslands", rgb(0xFF9900)},
	11: {"Permanent wetlands", rgb(0x006699)},
	12: {"Croplands", rgb(0xFFFF00)},
	13: {"Urban and Built-Up", rgb(0xFF0000)},
	14: {"Cropland/Natural Vegetation Mosaic", rgb(0x999966)},
	15: {"Snow and Ice", rgb(0xBAECFF)},
	16: {"Barren or Sparsely Vegetated", rgb(0x808080)},
	17: {"Water", rgb(0x000080)},
	18: {"Wooded Tundra", rgb(0x008833)},
	19: {"Mixed Tundra", rgb(0x4A8760)},
	20: {"Barren Tundra", rgb(0x748760)},
	21: {"Lake", rgb(0x0000FF)},
	31: {"Low Intensity Residential", rgb(0x686868)},
	32: {"High Intensity Residential", rgb(0x515151)},
	33: {"Industrial or Commercial", rgb(0x2D2D2D)},
}

// specialFields are the classes a dataset can declare directly in its index,
// used when the scheme itself does not define the declared code.
var specialFields = []struct {
	code func(m *wps.IndexMeta) *int
	cat  Category
}{
	{func(m *wps.IndexMeta) *int { return m.IsWater }, Category{"Water", rgb(0x001DB1)}},
	{func(m *wps.IndexMeta) *int { return m.IsLake }, Category{"Lake", rgb(0x0000FF)}},
	{func(m *wps.IndexMeta) *int { return m.IsIce }, Category{"Ice", rgb(0xBAECFF)}},
	{func(m *wps.IndexMeta) *int { return m.IsUrban }, Category{"Urban", rgb(0x000000)}},
}

// CategoriesFor resolves the category scheme of a dataset. The base scheme is
// looked up by mminlu (defaulting to USGS); codes declared through the
// iswater/islake/isice/isurban fields overlay it, but never override a code
// the scheme already defines, and are dropped when they fall outside the
// declared category range.
func CategoriesFor(m *wps.IndexMeta) Scheme {
	out := Scheme{}
	if !m.IsLanduse() {
		return out
	}
	for code, cat := range Schemes(m.LanduseSchemeOrDefault()) {
		out[code] = cat
	}
	for _, f := range specialFields {
		v := f.code(m)
		if v == nil {
			continue
		}
		if m.CategoryMin != nil && m.CategoryMax != nil &&
			(*v < *m.CategoryMin || *v > *m.CategoryMax) {
			continue
		}
		if _, ok := out[*v]; ok {
			continue
		}
		out[*v] = f.cat
	}
	return out
}

// WaterCodes returns the sorted category codes that count as water for
// landmask purposes: the scheme's well-known water code plus any declared
// iswater/islake codes.
func WaterCodes(m *wps.IndexMeta) ([]int, error) {
	if !m.IsLanduse() {
		return nil, fmt.Errorf("landuse: dataset declares no land-use semantics")
	}
	water := map[int]bool{}
	if m.IsWater != nil {
		water[*m.IsWater] = true
	}
	if m.IsLake != nil {
		water[*m.IsLake] = true
	}
	switch scheme := m.LanduseSchemeOrDefault(); scheme {
	case SchemeUSGS:
		water[16] = true
	case SchemeMODIS:
		water[17] = true
	default:
		return nil, fmt.Errorf("landuse: scheme %s is not supported", scheme)
	}
	codes := make([]int, 0, len(water))
	for c := range water {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes, nil
}

// Palette is a dense category table over an inclusive code range, suitable
// for rendering and attribute output.
type Palette struct {
	Min     int
	Entries []Category // Entries[i] describes code Min+i
}

// Max returns the last code the palette covers.
func (p *Palette) Max() int { return p.Min + len(p.Entries) - 1 }

// Lookup returns the entry for a code.
func (p *Palette) Lookup(code int) (Category, bool) {
	if code < p.Min || code > p.Max() {
		return Category{}, false
	}
	return p.Entries[code-p.Min], true
}

// BuildPalette densifies a scheme over [min, max]. Codes the scheme does not
// define get a generated label and a color derived from the code, so the
// result is stable across runs.
func BuildPalette(s Scheme, min, max int) *Palette {
	p := &Palette{Min: min}
	for code := min; code <= max; code++ {
		if cat, ok := s[code]; ok {
			p.Entries = append(p.Entries, cat)
			continue
		}
		p.Entries = append(p.Entries, Category{
			Label: fmt.Sprintf("Category %d", code),
			Color: placeholderColor(code),
		})
	}
	return p
}

// PaletteFor builds the palette for a categorical dataset from its resolved
// scheme and declared category range.
func PaletteFor(m *wps.IndexMeta) (*Palette, error) {
	if !m.Categorical || m.CategoryMin == nil || m.CategoryMax == nil {
		return nil, fmt.Errorf("landuse: dataset is not categorical")
	}
	return BuildPalette(CategoriesFor(m), *m.CategoryMin, *m.CategoryMax), nil
}

func rgb(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

// placeholderColor spreads undefined codes over the color cube
// deterministically.
func placeholderColor(code int) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte{byte(code >> 24), byte(code >> 16), byte(code >> 8), byte(code)})
	v := h.Sum32()
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}
