//go:build !unix

package geotiff

import (
	"io"
	"os"
)

// Fallback for platforms without mmap: read the whole file.
func mmapFile(f *os.File) ([]byte, error) {
	return io.ReadAll(f)
}

func munmapFile(data []byte) error {
	return nil
}
