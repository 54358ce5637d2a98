package geotiff

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/geosim/geo2wps/internal/raster"
)

// A world file is six lines: pixel dx, row rotation, column rotation,
// pixel dy, center x of the upper-left pixel, center y.
type worldFile struct {
	DX, RotX, RotY, DY float64
	CenterX, CenterY   float64
}

func parseWorldFile(data []byte) (worldFile, error) {
	lines := strings.Fields(string(data))
	if len(lines) < 6 {
		return worldFile{}, fmt.Errorf("world file has %d values, need 6", len(lines))
	}
	var vals [6]float64
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseFloat(lines[i], 64)
		if err != nil {
			return worldFile{}, fmt.Errorf("world file line %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return worldFile{
		DX: vals[0], RotX: vals[1], RotY: vals[2], DY: vals[3],
		CenterX: vals[4], CenterY: vals[5],
	}, nil
}

// geoTransform converts the pixel-center anchor to the corner convention.
func (w worldFile) geoTransform() raster.GeoTransform {
	return raster.GeoTransform{
		w.CenterX - w.DX/2 - w.RotX/2,
		w.DX,
		w.RotX,
		w.CenterY - w.RotY/2 - w.DY/2,
		w.RotY,
		w.DY,
	}
}

// findWorldFile looks for a sidecar world file next to the raster, trying
// the conventional extensions.
func findWorldFile(tiffPath string) (worldFile, bool) {
	base := strings.TrimSuffix(tiffPath, filepath.Ext(tiffPath))
	for _, ext := range []string{".tfw", ".tifw", ".wld", ".TFW"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			continue
		}
		w, err := parseWorldFile(data)
		if err != nil {
			continue
		}
		return w, true
	}
	return worldFile{}, false
}
