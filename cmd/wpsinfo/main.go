package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/geosim/geo2wps/internal/landuse"
	"github.com/geosim/geo2wps/internal/mosaic"
	"github.com/geosim/geo2wps/internal/preview"
)

func main() {
	var (
		previewPath string
		level       int
		maxDim      int
		quality     int
	)

	flag.StringVar(&previewPath, "quicklook", "", "Write a quicklook image to this path (.png, .jpg or .webp)")
	flag.IntVar(&level, "level", 0, "Vertical level to preview (0-based)")
	flag.IntVar(&maxDim, "max-dim", 1024, "Maximum preview dimension in pixels")
	flag.IntVar(&quality, "quality", 85, "JPEG/WebP preview quality 1-100")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wpsinfo [flags] <dataset-folder>\n\n")
		fmt.Fprintf(os.Stderr, "Inspect a WPS Binary dataset folder.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	folder := flag.Arg(0)

	m, err := mosaic.Open(folder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	printInfo(os.Stdout, m, folder)

	if previewPath != "" {
		if err := writePreview(m, previewPath, level, maxDim, quality); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Preview: %s\n", previewPath)
	}
}

func printInfo(w io.Writer, m *mosaic.Mosaic, folder string) {
	meta := m.Meta
	xsize, ysize := m.Size()

	fmt.Fprintf(w, "Dataset: %s\n", folder)
	fmt.Fprintf(w, "Title: %s\n", m.Title())
	fmt.Fprintf(w, "Size: %d x %d pixels, %d level(s)\n", xsize, ysize, meta.ZSize())
	fmt.Fprintf(w, "Projection: %s\n", meta.Projection)
	fmt.Fprintf(w, "Cell size: dx=%g dy=%g\n", meta.DX, meta.DY)
	fmt.Fprintf(w, "Anchor: pixel (%g, %g) at lon=%g lat=%g\n",
		meta.KnownX, meta.KnownY, meta.KnownLon, meta.KnownLat)
	if dtype, err := meta.DataType(); err == nil {
		fmt.Fprintf(w, "Storage: %s, %d byte word(s), scale factor %g\n",
			dtype, meta.WordSize, meta.ScaleFactor)
	} else {
		fmt.Fprintf(w, "Storage: %d byte word(s), scale factor %g\n",
			meta.WordSize, meta.ScaleFactor)
	}
	if meta.MissingValue != nil {
		fmt.Fprintf(w, "Missing value: %g\n", *meta.MissingValue)
	}
	fmt.Fprintf(w, "Tiles: %d file(s), %d x %d pixels, border %d\n",
		m.TileCount(), meta.TileX, meta.TileY, meta.TileBdr)
	if meta.Categorical {
		fmt.Fprintf(w, "Categorical: codes %d..%d\n", *meta.CategoryMin, *meta.CategoryMax)
	}
	if meta.IsLanduse() {
		fmt.Fprintf(w, "Landuse scheme: %s\n", meta.LanduseSchemeOrDefault())
		if codes, err := landuse.WaterCodes(meta); err == nil {
			fmt.Fprintf(w, "Landmask water codes: %v\n", codes)
		}
	}

	b, err := m.Band(0)
	if err != nil {
		return
	}
	gt := b.GeoTransform()
	fmt.Fprintf(w, "Origin (CRS): X=%g, Y=%g\n", gt[0], gt[3])
}

func writePreview(m *mosaic.Mosaic, path string, level, maxDim, quality int) error {
	enc, err := preview.EncoderForPath(path, quality)
	if err != nil {
		return err
	}

	b, err := m.Band(level)
	if err != nil {
		return err
	}

	img, err := preview.Render(b, m.Palette, maxDim)
	if err != nil {
		return err
	}

	data, err := enc.Encode(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
