package wps

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geosim/geo2wps/internal/crs"
)

// ParseError reports a missing or malformed index file.
type ParseError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("index %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("index %s: %s", e.Path, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseIndexFile reads and parses the index sidecar of a dataset folder.
func ParseIndexFile(folder string) (*IndexMeta, error) {
	path := filepath.Join(folder, IndexFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Msg: "not a valid WPS Binary dataset", Err: err}
	}
	m, err := ParseIndex(string(data))
	if err != nil {
		var perr *ParseError
		if ok := asParseError(err, &perr); ok {
			perr.Path = path
			return nil, perr
		}
		return nil, &ParseError{Path: path, Msg: "malformed index", Err: err}
	}
	return m, nil
}

func asParseError(err error, target **ParseError) bool {
	p, ok := err.(*ParseError)
	if ok {
		*target = p
	}
	return ok
}

// ParseIndex parses index text: one `key = value` pair per line, keys
// case-insensitive, values optionally double-quoted, `#` starting a comment
// outside quotes. Unknown keys are ignored for forward compatibility.
func ParseIndex(text string) (*IndexMeta, error) {
	kv := make(map[string]string)
	for i, raw := range strings.Split(text, "\n") {
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, val, found := strings.Cut(line, "=")
		if !found {
			return nil, &ParseError{Msg: fmt.Sprintf("line %d: expected key = value, got %q", i+1, strings.TrimSpace(raw))}
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		val = strings.Trim(val, `"`)
		kv[key] = val
	}

	p := &indexParser{kv: kv}

	m := &IndexMeta{}

	// encoding
	m.LittleEndian = kv["endian"] == "little"
	m.Signed = kv["signed"] == "yes"
	m.TopBottom = kv["row_order"] == "top_bottom"
	m.WordSize = p.mustInt("wordsize")
	m.ScaleFactor = p.floatDefault("scale_factor", 1)
	m.MissingValue = p.optFloat("missing_value")

	// tile geometry
	m.TileX = p.mustInt("tile_x")
	m.TileY = p.mustInt("tile_y")
	if _, ok := kv["tile_z_start"]; ok {
		m.TileZStart = p.mustInt("tile_z_start")
		m.TileZEnd = p.mustInt("tile_z_end")
	} else {
		m.TileZStart = 1
		m.TileZEnd = p.mustInt("tile_z")
	}
	m.TileBdr = p.intDefault("tile_bdr", 0)

	// projection
	m.Projection = crs.ProjectionID(kv["projection"])
	m.StdLon = p.optFloat("stdlon")
	m.Truelat1 = p.optFloat("truelat1")
	m.Truelat2 = p.optFloat("truelat2")

	// georeferencing
	m.DX = p.mustFloat("dx")
	m.DY = p.mustFloat("dy")
	m.KnownLon = p.mustFloat("known_lon")
	m.KnownLat = p.mustFloat("known_lat")
	m.KnownX = p.floatDefault("known_x", 1)
	m.KnownY = p.floatDefault("known_y", 1)

	// categories
	m.Categorical = kv["type"] == "categorical"
	m.CategoryMin = p.optInt("category_min")
	m.CategoryMax = p.optInt("category_max")

	// land use
	m.LanduseScheme = kv["mminlu"]
	m.IsWater = p.optInt("iswater")
	m.IsLake = p.optInt("islake")
	m.IsIce = p.optInt("isice")
	m.IsUrban = p.optInt("isurban")

	// other
	m.FilenameDigits = p.intDefault("filename_digits", DefaultFilenameDigits)
	m.Units = kv["units"]
	m.Description = kv["description"]

	if p.err != nil {
		return nil, p.err
	}
	if _, ok := kv["type"]; !ok {
		return nil, &ParseError{Msg: "missing mandatory key type"}
	}
	if _, ok := kv["projection"]; !ok {
		return nil, &ParseError{Msg: "missing mandatory key projection"}
	}
	if err := m.Validate(); err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}
	return m, nil
}

// stripComment removes a trailing # comment, respecting double quotes.
func stripComment(line string) string {
	inQuote := false
	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}

// indexParser accumulates the first conversion error so the field
// extraction above can stay flat.
type indexParser struct {
	kv  map[string]string
	err error
}

func (p *indexParser) fail(key, val string, err error) {
	if p.err == nil {
		p.err = &ParseError{Msg: fmt.Sprintf("key %s: invalid value %q", key, val), Err: err}
	}
}

func (p *indexParser) mustInt(key string) int {
	val, ok := p.kv[key]
	if !ok {
		if p.err == nil {
			p.err = &ParseError{Msg: "missing mandatory key " + key}
		}
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
	}
	return n
}

func (p *indexParser) intDefault(key string, def int) int {
	val, ok := p.kv[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
	}
	return n
}

func (p *indexParser) optInt(key string) *int {
	val, ok := p.kv[key]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.fail(key, val, err)
		return nil
	}
	return &n
}

func (p *indexParser) mustFloat(key string) float64 {
	val, ok := p.kv[key]
	if !ok {
		if p.err == nil {
			p.err = &ParseError{Msg: "missing mandatory key " + key}
		}
		return 0
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
	}
	return f
}

func (p *indexParser) floatDefault(key string, def float64) float64 {
	val, ok := p.kv[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
	}
	return f
}

func (p *indexParser) optFloat(key string) *float64 {
	val, ok := p.kv[key]
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		p.fail(key, val, err)
		return nil
	}
	return &f
}
