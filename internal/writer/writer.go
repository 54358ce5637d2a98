// Package writer converts a raster source into a WPS Binary dataset folder.
package writer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/geosim/geo2wps/internal/crs"
	"github.com/geosim/geo2wps/internal/raster"
	"github.com/geosim/geo2wps/internal/tiling"
	"github.com/geosim/geo2wps/internal/wps"
)

// MaxSize is the maximum number of rows or columns a dataset can have.
const MaxSize = 999999

// Halo rows/columns around continuous tiles. Interpolation in the consumer
// reads across tile seams, so continuous multi-tile datasets carry overlap.
const continuousHalo = 3

// Options configures a conversion.
type Options struct {
	// Categorical marks the data as class codes rather than measurements.
	Categorical bool

	// Units and Description are carried verbatim into the index. Units
	// defaults to "category" for categorical data.
	Units       string
	Description string

	// AllowDatumMismatch lets the conversion proceed when the source datum
	// does not match the one the target projection assumes; the mismatch is
	// then reported in the result. By default the conversion fails.
	AllowDatumMismatch bool

	// Concurrency is the number of tiles written in parallel. The source
	// must support concurrent ReadWindow calls when set above 1.
	Concurrency int

	Logger zerolog.Logger
}

// Result describes a completed conversion.
type Result struct {
	IndexPath     string
	DatumMismatch *crs.DatumMismatch
	TileCount     int
}

// Write converts src into a WPS Binary dataset in outputFolder. The folder
// is created if missing and must be empty. Floating point sources are scaled
// to integers losslessly up to the estimated significant digits; the index
// file is written last so a complete index marks a complete dataset.
func Write(src raster.Source, outputFolder string, opts Options) (*Result, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	log := opts.Logger

	if err := os.MkdirAll(outputFolder, 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(outputFolder)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return nil, fmt.Errorf("writer: output folder %s must be empty", outputFolder)
	}

	xsize, ysize := src.Size()
	if xsize > MaxSize || ysize > MaxSize {
		return nil, fmt.Errorf("writer: dataset has more than %d rows or columns: %d x %d", MaxSize, ysize, xsize)
	}
	if src.Bands() > 1 {
		return nil, fmt.Errorf("writer: dataset has more than one band")
	}

	filenameDigits := wps.DefaultFilenameDigits
	if xsize > 99999 || ysize > 99999 {
		filenameDigits = 6
	}

	_, hasNoData := src.NoData()

	// Without a no-data value there is nothing to pad incomplete edge tiles
	// with, so the tile size search must not give up on finding an exact
	// divisor early.
	tileX := tiling.FindTileSize(xsize, !hasNoData)
	tileY := tiling.FindTileSize(ysize, !hasNoData)
	plan := &tiling.Plan{XSize: xsize, YSize: ysize, TileX: tileX, TileY: tileY}

	if opts.Categorical || (tileX == xsize && tileY == ysize) {
		plan.Halo = 0
	} else {
		plan.Halo = continuousHalo
	}
	if plan.Halo > 0 && !hasNoData {
		return nil, fmt.Errorf("writer: no-data value required as dataset is continuous and halo is non-zero")
	}
	if !plan.Perfect() && !hasNoData {
		return nil, fmt.Errorf("writer: no-data value required as no perfect tile size could be found")
	}

	log.Debug().
		Int("xsize", xsize).Int("ysize", ysize).
		Int("tile_x", tileX).Int("tile_y", tileY).
		Int("halo", plan.Halo).Bool("perfect", plan.Perfect()).
		Msg("tiling chosen")

	meta, mismatch, sc, err := buildIndex(src, plan, filenameDigits, opts)
	if err != nil {
		return nil, err
	}

	if err := writeTiles(src, outputFolder, plan, meta, sc, opts.Concurrency); err != nil {
		return nil, err
	}

	indexPath := filepath.Join(outputFolder, wps.IndexFilename)
	if err := os.WriteFile(indexPath, []byte(wps.SerializeIndex(meta)), 0o644); err != nil {
		return nil, err
	}
	log.Info().Str("index", indexPath).Int("tiles", len(plan.Tiles())).Msg("dataset written")

	return &Result{
		IndexPath:     indexPath,
		DatumMismatch: mismatch,
		TileCount:     len(plan.Tiles()),
	}, nil
}

// writeTiles runs the per-tile conversion across a worker pool.
func writeTiles(src raster.Source, folder string, plan *tiling.Plan, meta *wps.IndexMeta, sc *scaling, concurrency int) error {
	tiles := plan.Tiles()
	gt := src.GeoTransform()

	jobs := make(chan tiling.Tile, concurrency*2)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				if err := writeTile(src, folder, plan, meta, sc, gt[5], t); err != nil {
					select {
					case errCh <- err:
					default:
					}
					return
				}
			}
		}()
	}
	for _, t := range tiles {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
	}
	return nil
}

func writeTile(src raster.Source, folder string, plan *tiling.Plan, meta *wps.IndexMeta, sc *scaling, dy float64, t tiling.Tile) error {
	data, err := src.ReadWindow(t.OffsetX, t.OffsetY, t.DataW, t.DataH)
	if err != nil {
		return fmt.Errorf("writer: read window: %w", err)
	}
	if dy > 0 {
		// Source stores rows south to north; tile files are north to south.
		flipRows(data, t.DataW, t.DataH)
	}

	if sc.needed {
		for i, v := range data {
			if sc.hasNoData && v == sc.srcNoData {
				data[i] = sc.dstNoData
				continue
			}
			data[i] = math.Round(v * sc.invFactor)
		}
	}

	bdrW := plan.TileX + 2*plan.Halo
	bdrH := plan.TileY + 2*plan.Halo
	var buf []float64
	if t.Complete(plan.TileX, plan.TileY, plan.Halo) {
		buf = data
	} else {
		// Incomplete tiles only happen when a no-data value exists.
		buf = make([]float64, bdrW*bdrH)
		for i := range buf {
			buf[i] = sc.tileFill
		}
		for row := 0; row < t.DataH; row++ {
			copy(buf[(t.DstY+row)*bdrW+t.DstX:], data[row*t.DataW:(row+1)*t.DataW])
		}
	}

	raw, err := wps.EncodeSamples(buf, meta)
	if err != nil {
		return fmt.Errorf("writer: tile %d-%d: %w", t.StartX+1, t.StartY+1, err)
	}

	name := tileFilename(t, plan, meta, dy)
	return writeFileAtomic(filepath.Join(folder, name), raw)
}

// tileFilename maps the 0-based tile rectangle to the 1-based filename
// convention. With a north-up source the y axis flips: the filename counts
// rows from the south while tile rows are stored from the north.
func tileFilename(t tiling.Tile, plan *tiling.Plan, meta *wps.IndexMeta, dy float64) string {
	startY, endY := t.StartY, t.EndY
	if dy < 0 {
		endY = plan.YSizePad() - t.StartY - 1
		startY = endY - plan.TileY + 1
	}
	r := wps.TileRange{
		StartX: t.StartX + 1, EndX: t.EndX + 1,
		StartY: startY + 1, EndY: endY + 1,
	}
	return wps.TileName(r, meta.FilenameDigits)
}

func flipRows(data []float64, w, h int) {
	tmp := make([]float64, w)
	for top, bot := 0, h-1; top < bot; top, bot = top+1, bot-1 {
		copy(tmp, data[top*w:(top+1)*w])
		copy(data[top*w:], data[bot*w:(bot+1)*w])
		copy(data[bot*w:], tmp)
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
