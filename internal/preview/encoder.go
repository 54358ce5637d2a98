// Package preview renders dataset bands to quicklook images for visual
// inspection: palette colors for categorical data, a grayscale stretch for
// continuous data.
package preview

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// Encoder encodes an image into preview bytes.
type Encoder interface {
	// Encode encodes an image to bytes in the preview format.
	Encode(img image.Image) ([]byte, error)

	// Format returns the format name (e.g. "jpeg", "png", "webp").
	Format() string

	// FileExtension returns the appropriate file extension.
	FileExtension() string
}

// NewEncoder creates an encoder for the given format and quality.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch format {
	case "jpeg", "jpg":
		return &JPEGEncoder{Quality: quality}, nil
	case "png":
		return &PNGEncoder{}, nil
	case "webp":
		return newWebPEncoder(quality)
	default:
		return nil, fmt.Errorf("unsupported preview format: %q (supported: jpeg, png, webp)", format)
	}
}

// EncoderForPath picks an encoder from the output filename extension.
func EncoderForPath(path string, quality int) (Encoder, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return nil, fmt.Errorf("preview path %q has no extension", path)
	}
	return NewEncoder(ext, quality)
}
