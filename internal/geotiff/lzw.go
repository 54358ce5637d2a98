package geotiff

import (
	"fmt"
)

// TIFF LZW differs from the GIF flavor: codes are packed MSB-first and the
// code width grows one code early, so the stdlib compress/lzw reader cannot
// decode it.

const (
	lzwClearCode = 256
	lzwEOICode   = 257
	lzwFirstCode = 258
	lzwMaxWidth  = 12
)

type lzwEntry struct {
	prefix int
	suffix byte
	length int
}

type lzwReader struct {
	src    []byte
	pos    int // bit position
	table  []lzwEntry
	output []byte
}

// lzwDecode decompresses a TIFF LZW block, producing at most max bytes.
func lzwDecode(src []byte, max int) ([]byte, error) {
	r := &lzwReader{
		src:    src,
		output: make([]byte, 0, max),
	}

	codeWidth := 9
	prevCode := -1

	for {
		code, ok := r.readBits(codeWidth)
		if !ok {
			break
		}

		switch {
		case code == lzwClearCode:
			r.resetTable()
			codeWidth = 9
			prevCode = -1
			continue
		case code == lzwEOICode:
			return r.output, nil
		}

		if prevCode < 0 {
			if code > 255 {
				return nil, fmt.Errorf("lzw: first code %d out of range", code)
			}
			r.output = append(r.output, byte(code))
			prevCode = code
		} else {
			nextCode := lzwFirstCode + len(r.table)
			switch {
			case code < nextCode:
				seq := r.expand(code)
				r.output = append(r.output, seq...)
				r.addEntry(prevCode, seq[0])
			case code == nextCode:
				// KwKwK: the code being defined right now.
				seq := r.expand(prevCode)
				seq = append(seq, seq[0])
				r.output = append(r.output, seq...)
				r.addEntry(prevCode, seq[0])
			default:
				return nil, fmt.Errorf("lzw: code %d out of range (table size %d)", code, len(r.table))
			}
			prevCode = code
		}

		// Width bumps one code before the table fills (TIFF deferred increment).
		if lzwFirstCode+len(r.table)+1 >= 1<<codeWidth && codeWidth < lzwMaxWidth {
			codeWidth++
		}

		if len(r.output) >= max {
			return r.output[:max], nil
		}
	}

	return r.output, nil
}

func (r *lzwReader) readBits(n int) (int, bool) {
	if (r.pos+n+7)/8 > len(r.src) {
		return 0, false
	}
	v := 0
	for i := 0; i < n; i++ {
		byteIdx := r.pos / 8
		bitIdx := 7 - r.pos%8
		v = v<<1 | int(r.src[byteIdx]>>bitIdx)&1
		r.pos++
	}
	return v, true
}

func (r *lzwReader) resetTable() {
	r.table = r.table[:0]
}

func (r *lzwReader) addEntry(prefix int, suffix byte) {
	length := 2
	if prefix >= lzwFirstCode {
		length = r.table[prefix-lzwFirstCode].length + 1
	}
	r.table = append(r.table, lzwEntry{prefix: prefix, suffix: suffix, length: length})
}

// expand resolves a code to its byte sequence.
func (r *lzwReader) expand(code int) []byte {
	if code < 256 {
		return []byte{byte(code)}
	}
	e := r.table[code-lzwFirstCode]
	seq := make([]byte, e.length)
	i := e.length - 1
	for {
		seq[i] = e.suffix
		i--
		if e.prefix < 256 {
			seq[i] = byte(e.prefix)
			break
		}
		e = r.table[e.prefix-lzwFirstCode]
	}
	return seq
}
