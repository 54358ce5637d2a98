package wps

import (
	"fmt"
	"math"

	"github.com/geosim/geo2wps/internal/raster"
)

// DecodeSamples decodes raw tile bytes into float64 samples according to the
// index word size, signedness and endianness. The 3-byte word size has no
// native machine type and is widened to 32 bits.
func DecodeSamples(raw []byte, m *IndexMeta) ([]float64, error) {
	if len(raw)%m.WordSize != 0 {
		return nil, fmt.Errorf("wps: raw length %d not a multiple of word size %d", len(raw), m.WordSize)
	}
	n := len(raw) / m.WordSize
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		u := decodeWord(raw[i*m.WordSize:], m.WordSize, m.LittleEndian)
		if m.Signed {
			out[i] = float64(signExtend(u, m.WordSize))
		} else {
			out[i] = float64(u)
		}
	}
	return out, nil
}

// EncodeSamples encodes float64 samples into raw bytes. Values are rounded to
// the nearest integer and must fit the target word; out-of-range values are an
// error rather than silently truncated.
func EncodeSamples(vals []float64, m *IndexMeta) ([]byte, error) {
	lo, hi := wordRange(m.WordSize, m.Signed)
	raw := make([]byte, len(vals)*m.WordSize)
	for i, v := range vals {
		r := math.Round(v)
		if r < lo || r > hi || math.IsNaN(r) {
			return nil, fmt.Errorf("wps: value %g out of range [%g, %g] for word size %d", v, lo, hi, m.WordSize)
		}
		var u uint32
		if m.Signed {
			u = uint32(int32(r))
		} else {
			u = uint32(r)
		}
		encodeWord(raw[i*m.WordSize:], u, m.WordSize, m.LittleEndian)
	}
	return raw, nil
}

func decodeWord(b []byte, size int, little bool) uint32 {
	var u uint32
	if little {
		for i := size - 1; i >= 0; i-- {
			u = u<<8 | uint32(b[i])
		}
	} else {
		for i := 0; i < size; i++ {
			u = u<<8 | uint32(b[i])
		}
	}
	return u
}

func encodeWord(b []byte, u uint32, size int, little bool) {
	if little {
		for i := 0; i < size; i++ {
			b[i] = byte(u >> (8 * i))
		}
	} else {
		for i := 0; i < size; i++ {
			b[size-1-i] = byte(u >> (8 * i))
		}
	}
}

func signExtend(u uint32, size int) int32 {
	shift := 32 - 8*size
	return int32(u<<shift) >> shift
}

func wordRange(size int, signed bool) (float64, float64) {
	bits := 8 * size
	if signed {
		hi := math.Pow(2, float64(bits-1)) - 1
		return -hi - 1, hi
	}
	return 0, math.Pow(2, float64(bits)) - 1
}

// WordRangeFor reports the representable value range for a word size and
// signedness, matching the limits enforced by EncodeSamples.
func WordRangeFor(size int, signed bool) (min, max float64) {
	return wordRange(size, signed)
}

// WordSizeFor returns the word size in bytes for a raster data type that maps
// onto the format, or an error for floating point types.
func WordSizeFor(dt raster.DataType) (size int, signed bool, err error) {
	switch dt {
	case raster.Byte:
		return 1, false, nil
	case raster.UInt16:
		return 2, false, nil
	case raster.Int16:
		return 2, true, nil
	case raster.UInt32:
		return 4, false, nil
	case raster.Int32:
		return 4, true, nil
	default:
		return 0, false, fmt.Errorf("wps: data type %s has no binary word size", dt)
	}
}
