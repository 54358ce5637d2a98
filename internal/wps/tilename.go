package wps

import (
	"fmt"
	"regexp"
	"strconv"
)

// TileRange is the 1-based inclusive pixel range a tile file covers, as
// encoded in its filename. Coordinates are output (core) pixels; the halo is
// not part of the range.
type TileRange struct {
	StartX, EndX int
	StartY, EndY int
}

// TileName formats the fixed filename convention
// {start_x}-{end_x}.{start_y}-{end_y}, zero-padded to digits.
func TileName(r TileRange, digits int) string {
	return fmt.Sprintf("%0[1]*[2]d-%0[1]*[3]d.%0[1]*[4]d-%0[1]*[5]d",
		digits, r.StartX, r.EndX, r.StartY, r.EndY)
}

// TileNamePattern returns the anchored pattern matching tile filenames with
// the given digit count.
func TileNamePattern(digits int) *regexp.Regexp {
	d := fmt.Sprintf(`(\d{%d})`, digits)
	return regexp.MustCompile(`^` + d + `-` + d + `\.` + d + `-` + d + `$`)
}

// ParseTileName parses a tile filename against the given digit count.
func ParseTileName(name string, digits int) (TileRange, bool) {
	m := TileNamePattern(digits).FindStringSubmatch(name)
	if m == nil {
		return TileRange{}, false
	}
	var r TileRange
	r.StartX, _ = strconv.Atoi(m[1])
	r.EndX, _ = strconv.Atoi(m[2])
	r.StartY, _ = strconv.Atoi(m[3])
	r.EndY, _ = strconv.Atoi(m[4])
	return r, true
}
