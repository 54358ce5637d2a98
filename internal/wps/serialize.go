package wps

import (
	"sort"
	"strconv"
	"strings"
)

// quotedKeys are the index fields whose values are written double-quoted.
var quotedKeys = map[string]bool{
	"units":       true,
	"description": true,
	"mminlu":      true,
}

// SerializeIndex renders the index sidecar text: one `key = value` per line,
// keys in sorted order. ParseIndex(SerializeIndex(m)) reproduces m.
func SerializeIndex(m *IndexMeta) string {
	fields := map[string]string{}

	if m.Categorical {
		fields["type"] = "categorical"
	} else {
		fields["type"] = "continuous"
	}
	if m.LittleEndian {
		fields["endian"] = "little"
	} else {
		fields["endian"] = "big"
	}
	if m.Signed {
		fields["signed"] = "yes"
	} else {
		fields["signed"] = "no"
	}
	fields["wordsize"] = strconv.Itoa(m.WordSize)
	if m.TopBottom {
		fields["row_order"] = "top_bottom"
	} else {
		fields["row_order"] = "bottom_top"
	}
	fields["projection"] = string(m.Projection)
	fields["dx"] = formatFloat(m.DX)
	fields["dy"] = formatFloat(m.DY)
	fields["known_x"] = formatFloat(m.KnownX)
	fields["known_y"] = formatFloat(m.KnownY)
	fields["known_lat"] = formatFloat(m.KnownLat)
	fields["known_lon"] = formatFloat(m.KnownLon)
	fields["tile_x"] = strconv.Itoa(m.TileX)
	fields["tile_y"] = strconv.Itoa(m.TileY)
	if m.TileZStart == 1 {
		fields["tile_z"] = strconv.Itoa(m.TileZEnd)
	} else {
		fields["tile_z_start"] = strconv.Itoa(m.TileZStart)
		fields["tile_z_end"] = strconv.Itoa(m.TileZEnd)
	}
	fields["tile_bdr"] = strconv.Itoa(m.TileBdr)

	if m.FilenameDigits > DefaultFilenameDigits {
		fields["filename_digits"] = strconv.Itoa(m.FilenameDigits)
	}
	if m.ScaleFactor != 1 {
		fields["scale_factor"] = formatFloat(m.ScaleFactor)
	}
	if m.MissingValue != nil {
		fields["missing_value"] = formatFloat(*m.MissingValue)
	}
	if m.Categorical {
		fields["category_min"] = strconv.Itoa(*m.CategoryMin)
		fields["category_max"] = strconv.Itoa(*m.CategoryMax)
	}
	if m.Truelat1 != nil {
		fields["truelat1"] = formatFloat(*m.Truelat1)
	}
	if m.Truelat2 != nil {
		fields["truelat2"] = formatFloat(*m.Truelat2)
	}
	if m.StdLon != nil {
		fields["stdlon"] = formatFloat(*m.StdLon)
	}
	if m.LanduseScheme != "" {
		fields["mminlu"] = m.LanduseScheme
	}
	if m.IsWater != nil {
		fields["iswater"] = strconv.Itoa(*m.IsWater)
	}
	if m.IsLake != nil {
		fields["islake"] = strconv.Itoa(*m.IsLake)
	}
	if m.IsIce != nil {
		fields["isice"] = strconv.Itoa(*m.IsIce)
	}
	if m.IsUrban != nil {
		fields["isurban"] = strconv.Itoa(*m.IsUrban)
	}
	if m.Units != "" {
		fields["units"] = m.Units
	}
	if m.Description != "" {
		fields["description"] = m.Description
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := fields[k]
		if quotedKeys[k] {
			v = `"` + v + `"`
		}
		b.WriteString(k)
		b.WriteString(" = ")
		b.WriteString(v)
		b.WriteString("\n")
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
