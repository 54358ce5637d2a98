package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/geosim/geo2wps/internal/geotiff"
	"github.com/geosim/geo2wps/internal/writer"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		categorical   bool
		units         string
		description   string
		allowMismatch bool
		concurrency   int
		verbose       bool
		showVersion   bool
	)

	flag.BoolVar(&categorical, "categorical", false, "Treat samples as class codes (landuse etc.) rather than measurements")
	flag.StringVar(&units, "units", "", "Units string for the index file")
	flag.StringVar(&description, "description", "", "Description string for the index file")
	flag.BoolVar(&allowMismatch, "allow-datum-mismatch", false, "Proceed with a warning when the source datum does not match the projection's assumed datum (default: fail)")
	flag.IntVar(&concurrency, "concurrency", runtime.NumCPU(), "Number of tiles written in parallel")
	flag.BoolVar(&verbose, "verbose", false, "Verbose progress output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: geo2wps [flags] <input.tif> <output-folder>\n\n")
		fmt.Fprintf(os.Stderr, "Convert a GeoTIFF raster to a WPS Binary dataset.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("geo2wps %s (commit %s, built %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	inputPath, outputFolder := args[0], args[1]

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()

	src, err := geotiff.Open(inputPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening input")
	}
	defer src.Close()

	start := time.Now()
	res, err := writer.Write(src, outputFolder, writer.Options{
		Categorical:        categorical,
		Units:              units,
		Description:        description,
		AllowDatumMismatch: allowMismatch,
		Concurrency:        concurrency,
		Logger:             logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("conversion failed")
	}

	if res.DatumMismatch != nil {
		logger.Warn().
			Str("expected", res.DatumMismatch.Expected).
			Str("actual", res.DatumMismatch.Actual).
			Msg("datum mismatch: model output may be subtly offset")
	}
	logger.Info().
		Int("tiles", res.TileCount).
		Str("index", res.IndexPath).
		Dur("elapsed", time.Since(start)).
		Msg("dataset written")
}
