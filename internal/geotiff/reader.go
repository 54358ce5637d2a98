// Package geotiff reads single-band GeoTIFF rasters: classic and BigTIFF
// layouts, strip and tile organization, uncompressed, LZW and Deflate
// compression, with georeferencing taken from the embedded geokeys or a
// sidecar world file. It exposes rasters through the raster.Source
// interface the converter consumes.
package geotiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/geosim/geo2wps/internal/crs"
	"github.com/geosim/geo2wps/internal/raster"
)

// Compression values (tag 259).
const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionDeflateOld = 32946
)

const (
	predictorNone       = 1
	predictorHorizontal = 2
)

// Reader reads one GeoTIFF file. The file is mapped into memory; Close
// releases the mapping.
type Reader struct {
	path  string
	file  *os.File
	data  []byte
	bo    binary.ByteOrder
	ifd   *ifd
	dtype raster.DataType

	geo    raster.GeoTransform
	sref   crs.SpatialReference
	nodata *float64
}

var _ raster.Source = (*Reader)(nil)

// Open memory-maps the file at path and parses its first IFD. Overview
// IFDs, if present, are ignored; the converter always reads full
// resolution.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	data, err := mmapFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}

	r := &Reader{path: path, file: f, data: data}
	if err := r.parse(); err != nil {
		r.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Close releases the memory mapping and the file handle.
func (r *Reader) Close() error {
	var err error
	if r.data != nil {
		err = munmapFile(r.data)
		r.data = nil
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
		r.file = nil
	}
	return err
}

func (r *Reader) parse() error {
	ifds, bo, err := parseTIFF(bytes.NewReader(r.data))
	if err != nil {
		return err
	}
	if len(ifds) == 0 {
		return fmt.Errorf("no image directories")
	}
	r.bo = bo
	r.ifd = &ifds[0]

	d := r.ifd
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("missing image dimensions")
	}
	if d.PlanarConfig != 1 {
		return fmt.Errorf("unsupported planar configuration %d", d.PlanarConfig)
	}
	switch d.Compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld:
	default:
		return fmt.Errorf("unsupported compression %d", d.Compression)
	}
	offsets, counts := d.blockOffsets()
	if len(offsets) == 0 {
		return fmt.Errorf("no tile or strip offsets")
	}
	if len(counts) != len(offsets) {
		return fmt.Errorf("offset/bytecount length mismatch: %d vs %d", len(offsets), len(counts))
	}

	dtype, err := sampleType(d)
	if err != nil {
		return err
	}
	r.dtype = dtype

	if d.NoDataASCII != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(d.NoDataASCII), 64)
		if err != nil {
			return fmt.Errorf("parsing nodata value %q: %w", d.NoDataASCII, err)
		}
		r.nodata = &v
	}

	if err := r.parseGeo(); err != nil {
		return err
	}
	return nil
}

// sampleType maps BitsPerSample and SampleFormat to a raster type.
func sampleType(d *ifd) (raster.DataType, error) {
	bits := uint16(8)
	if len(d.BitsPerSample) > 0 {
		bits = d.BitsPerSample[0]
	}
	switch d.SampleFormat {
	case sfUnsigned:
		switch bits {
		case 8:
			return raster.Byte, nil
		case 16:
			return raster.UInt16, nil
		case 32:
			return raster.UInt32, nil
		}
	case sfSigned:
		switch bits {
		case 16:
			return raster.Int16, nil
		case 32:
			return raster.Int32, nil
		}
	case sfFloat:
		switch bits {
		case 32:
			return raster.Float32, nil
		case 64:
			return raster.Float64, nil
		}
	}
	return 0, fmt.Errorf("unsupported sample type: format %d, %d bits", d.SampleFormat, bits)
}

// parseGeo derives the geotransform from ModelPixelScale + ModelTiepoint,
// falling back to a sidecar world file, and the spatial reference from the
// geokey directory.
func (r *Reader) parseGeo() error {
	d := r.ifd

	switch {
	case len(d.ModelPixelScale) >= 2 && len(d.ModelTiepoint) >= 6:
		sx, sy := d.ModelPixelScale[0], d.ModelPixelScale[1]
		// Tiepoint maps raster (I,J) to model (X,Y).
		i, j := d.ModelTiepoint[0], d.ModelTiepoint[1]
		x, y := d.ModelTiepoint[3], d.ModelTiepoint[4]
		r.geo = raster.GeoTransform{
			x - i*sx, sx, 0,
			y + j*sy, 0, -sy,
		}
	default:
		w, ok := findWorldFile(r.path)
		if !ok {
			return fmt.Errorf("no georeferencing: missing model tiepoint/scale tags and no world file")
		}
		r.geo = w.geoTransform()
	}

	if len(d.GeoKeys) == 0 {
		return fmt.Errorf("no geokey directory; cannot determine coordinate reference system")
	}
	keys, err := parseGeoKeys(d)
	if err != nil {
		return err
	}
	sr, err := keys.spatialReference()
	if err != nil {
		return err
	}
	r.sref = sr
	return nil
}

// Path returns the file path the reader was opened from.
func (r *Reader) Path() string { return r.path }

func (r *Reader) Size() (int, int) { return int(r.ifd.Width), int(r.ifd.Height) }

func (r *Reader) Bands() int { return int(r.ifd.SamplesPerPixel) }

func (r *Reader) DataType() raster.DataType { return r.dtype }

func (r *Reader) NoData() (float64, bool) {
	if r.nodata == nil {
		return 0, false
	}
	return *r.nodata, true
}

func (r *Reader) BlockSize() (int, int) { return r.ifd.BlockDims() }

func (r *Reader) GeoTransform() raster.GeoTransform { return r.geo }

func (r *Reader) SpatialReference() crs.SpatialReference { return r.sref }

// Scale and Offset: GeoTIFF has no standard linear-transform tags, so the
// stored values are the real values.
func (r *Reader) Scale() float64  { return 1 }
func (r *Reader) Offset() float64 { return 0 }

// ReadWindow reads a w×h window of the first sample with its top-left
// corner at (x, y), decoding every block the window touches.
func (r *Reader) ReadWindow(x, y, w, h int) ([]float64, error) {
	width, height := r.Size()
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > width || y+h > height {
		return nil, fmt.Errorf("window %dx%d at (%d,%d) outside raster %dx%d", w, h, x, y, width, height)
	}

	out := make([]float64, w*h)
	blockW, blockH := r.ifd.BlockDims()

	bx0 := x / blockW
	bx1 := (x + w - 1) / blockW
	by0 := y / blockH
	by1 := (y + h - 1) / blockH

	for by := by0; by <= by1; by++ {
		for bx := bx0; bx <= bx1; bx++ {
			block, err := r.readBlock(bx, by)
			if err != nil {
				return nil, err
			}
			r.copyBlock(out, block, x, y, w, h, bx, by, blockW, blockH)
		}
	}
	return out, nil
}

// copyBlock copies the intersection of decoded block (bx,by) into the
// output window.
func (r *Reader) copyBlock(out, block []float64, x, y, w, h, bx, by, blockW, blockH int) {
	x0 := max(x, bx*blockW)
	y0 := max(y, by*blockH)
	x1 := min(x+w, (bx+1)*blockW)
	y1 := min(y+h, (by+1)*blockH)

	for row := y0; row < y1; row++ {
		srcOff := (row-by*blockH)*blockW + (x0 - bx*blockW)
		dstOff := (row-y)*w + (x0 - x)
		copy(out[dstOff:dstOff+(x1-x0)], block[srcOff:srcOff+(x1-x0)])
	}
}

// readBlock decodes one tile or strip into float64 samples of the first
// band, blockW×blockH row-major. Edge blocks are padded with zeros.
func (r *Reader) readBlock(bx, by int) ([]float64, error) {
	d := r.ifd
	blockW, blockH := d.BlockDims()
	idx := by*d.blocksAcross() + bx
	offsets, counts := d.blockOffsets()
	if idx >= len(offsets) {
		return nil, fmt.Errorf("block (%d,%d) index %d out of range", bx, by, idx)
	}

	offset, count := offsets[idx], counts[idx]
	if offset+count > uint64(len(r.data)) {
		return nil, fmt.Errorf("block %d extends past end of file", idx)
	}
	compressed := r.data[offset : offset+count]

	spp := int(d.SamplesPerPixel)
	bytesPer := r.dtype.Size()

	// Strips at the bottom edge may be short.
	rows := blockH
	if !d.Tiled() {
		if remain := int(d.Height) - by*blockH; remain < rows {
			rows = remain
		}
	}
	rawSize := blockW * rows * spp * bytesPer

	raw, err := r.decompress(compressed, rawSize)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", idx, err)
	}
	if len(raw) < rawSize {
		return nil, fmt.Errorf("block %d: decoded %d bytes, want %d", idx, len(raw), rawSize)
	}

	if d.Predictor == predictorHorizontal {
		undoHorizontalPredictor(raw, blockW, rows, spp, bytesPer, r.bo)
	}

	out := make([]float64, blockW*blockH)
	for row := 0; row < rows; row++ {
		for col := 0; col < blockW; col++ {
			off := (row*blockW + col) * spp * bytesPer
			out[row*blockW+col] = r.decodeSample(raw[off : off+bytesPer])
		}
	}
	return out, nil
}

func (r *Reader) decompress(src []byte, max int) ([]byte, error) {
	switch r.ifd.Compression {
	case compressionNone:
		// Copy out of the read-only mapping; the predictor pass mutates.
		out := make([]byte, len(src))
		copy(out, src)
		return out, nil
	case compressionLZW:
		return lzwDecode(src, max)
	case compressionDeflate, compressionDeflateOld:
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		out := make([]byte, max)
		n, err := io.ReadFull(zr, out)
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return out[:n], nil
		}
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported compression %d", r.ifd.Compression)
}

func (r *Reader) decodeSample(b []byte) float64 {
	switch r.dtype {
	case raster.Byte:
		return float64(b[0])
	case raster.UInt16:
		return float64(r.bo.Uint16(b))
	case raster.Int16:
		return float64(int16(r.bo.Uint16(b)))
	case raster.UInt32:
		return float64(r.bo.Uint32(b))
	case raster.Int32:
		return float64(int32(r.bo.Uint32(b)))
	case raster.Float32:
		return float64(math.Float32frombits(r.bo.Uint32(b)))
	case raster.Float64:
		return math.Float64frombits(r.bo.Uint64(b))
	}
	return 0
}

// undoHorizontalPredictor reverses per-row horizontal differencing in
// place. Differencing operates on the native word size per sample.
func undoHorizontalPredictor(raw []byte, width, rows, spp, bytesPer int, bo binary.ByteOrder) {
	stride := width * spp
	for row := 0; row < rows; row++ {
		base := row * stride * bytesPer
		switch bytesPer {
		case 1:
			for i := spp; i < stride; i++ {
				raw[base+i] += raw[base+i-spp]
			}
		case 2:
			for i := spp; i < stride; i++ {
				off := base + i*2
				prev := bo.Uint16(raw[off-spp*2 : off-spp*2+2])
				bo.PutUint16(raw[off:off+2], bo.Uint16(raw[off:off+2])+prev)
			}
		case 4:
			for i := spp; i < stride; i++ {
				off := base + i*4
				prev := bo.Uint32(raw[off-spp*4 : off-spp*4+4])
				bo.PutUint32(raw[off:off+4], bo.Uint32(raw[off:off+4])+prev)
			}
		}
	}
}
