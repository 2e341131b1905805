package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressors(t *testing.T) {
	compressors := map[string]Compressor{
		"zstd": ZstdCompressor{},
		"gzip": GzipCompressor{},
	}
	inputs := [][]byte{
		[]byte(""),
		[]byte("Welcome"),
		[]byte(strings.Repeat("Bienvenue sur notre site. ", 200)),
	}

	for name, c := range compressors {
		t.Run(name, func(t *testing.T) {
			for _, in := range inputs {
				compressed, err := c.Compress(in)
				if err != nil {
					t.Fatalf("Compress failed: %v", err)
				}
				out, err := c.Decompress(compressed)
				if err != nil {
					t.Fatalf("Decompress failed: %v", err)
				}
				if !bytes.Equal(in, out) {
					t.Errorf("Expected %q back, got %q", in, out)
				}
			}
		})
	}

	t.Run("zstd rejects garbage", func(t *testing.T) {
		if _, err := (ZstdCompressor{}).Decompress([]byte("not zstd")); err == nil {
			t.Error("Expected error decompressing garbage")
		}
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		want    Compressor
		wantErr bool
	}{
		{"", ZstdCompressor{}, false},
		{Zstd, ZstdCompressor{}, false},
		{Gzip, GzipCompressor{}, false},
		{"brotli", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %T, got %T", tt.want, got)
			}
		})
	}
}
