// Package compression provides the codecs used to store field values.
package compression

import "fmt"

type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var (
	_ Compressor = ZstdCompressor{}
	_ Compressor = GzipCompressor{}
)

const (
	Zstd = "zstd"
	Gzip = "gzip"
)

// New returns the codec registered under name. An empty name selects zstd.
func New(name string) (Compressor, error) {
	switch name {
	case Zstd, "":
		return ZstdCompressor{}, nil
	case Gzip:
		return GzipCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression: %s (supported: %s, %s)", name, Zstd, Gzip)
	}
}
