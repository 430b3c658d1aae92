// Package compression wraps the codecs Velo reads feed files and writes
// exports with. Every codec is exposed as a streaming reader and writer plus
// whole-buffer helpers.
//
// # Basic Usage
//
//	// Decompress a file picked up from a directory source
//	alg, base := compression.FromExtension("stop_times.txt.zst")
//	data, err := compression.Decompress(alg, raw)
//
//	// Compress an export stream
//	w, err := compression.NewWriter(compression.Gzip, file, compression.Default)
//	defer w.Close()
//
// Speed (fastest to slowest): LZ4 > Snappy/S2 > Zstd > Gzip/Deflate
// Compression ratio (best to worst): Zstd > Gzip/Deflate > Snappy/S2 > LZ4
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents raw deflate compression
	Deflate Algorithm = "deflate"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

var extensions = map[string]Algorithm{
	".gz":      Gzip,
	".zst":     Zstd,
	".lz4":     LZ4,
	".sz":      Snappy,
	".snappy":  Snappy,
	".s2":      S2,
	".deflate": Deflate,
}

// Extensions lists the file extensions FromExtension recognizes.
func Extensions() []string {
	return []string{".gz", ".zst", ".lz4", ".sz", ".snappy", ".s2", ".deflate"}
}

// FromExtension returns the algorithm implied by name's final extension and
// name with that extension removed. Unknown extensions yield None and name.
func FromExtension(name string) (Algorithm, string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return None, name
	}
	if alg, ok := extensions[strings.ToLower(name[i:])]; ok {
		return alg, name[:i]
	}
	return None, name
}

// Extension returns the canonical file extension for alg, or "" for None.
func Extension(alg Algorithm) string {
	switch alg {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	case Snappy:
		return ".sz"
	case S2:
		return ".s2"
	case Deflate:
		return ".deflate"
	default:
		return ""
	}
}

// Parse returns the algorithm named s.
func Parse(s string) (Algorithm, error) {
	switch alg := Algorithm(strings.ToLower(strings.TrimSpace(s))); alg {
	case "":
		return None, nil
	case None, Gzip, Snappy, LZ4, Zstd, S2, Deflate:
		return alg, nil
	default:
		return "", fmt.Errorf("unsupported compression algorithm: %s", s)
	}
}

// NewReader returns a reader that decompresses src.
func NewReader(alg Algorithm, src io.Reader) (io.ReadCloser, error) {
	switch alg {
	case None, "":
		return io.NopCloser(src), nil
	case Gzip:
		return gzip.NewReader(src)
	case Snappy:
		return io.NopCloser(snappy.NewReader(src)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(src)), nil
	case Zstd:
		d, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(src)), nil
	case Deflate:
		return flate.NewReader(src), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

// NewWriter returns a writer that compresses into dst. Close flushes the
// stream but does not close dst.
func NewWriter(alg Algorithm, dst io.Writer, level Level) (io.WriteCloser, error) {
	switch alg {
	case None, "":
		return nopWriteCloser{dst}, nil
	case Gzip:
		return gzip.NewWriterLevel(dst, mapGzipLevel(level))
	case Snappy:
		return snappy.NewBufferedWriter(dst), nil
	case LZ4:
		w := lz4.NewWriter(dst)
		if err := w.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, err
		}
		return w, nil
	case Zstd:
		return zstd.NewWriter(dst, zstd.WithEncoderLevel(mapZstdLevel(level)))
	case S2:
		if level >= Better {
			return s2.NewWriter(dst, s2.WriterBetterCompression()), nil
		}
		return s2.NewWriter(dst), nil
	case Deflate:
		return flate.NewWriter(dst, mapDeflateLevel(level))
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", alg)
	}
}

// Decompress decompresses data in full. None returns data unchanged.
func Decompress(alg Algorithm, data []byte) ([]byte, error) {
	if alg == None || alg == "" {
		return data, nil
	}
	r, err := NewReader(alg, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s stream: %w", alg, err)
	}
	defer r.Close()

	var out bytes.Buffer
	out.Grow(len(data) * 4)
	if _, err := io.Copy(&out, r); err != nil { //nolint:gosec // G110: inputs are local feed files
		return nil, fmt.Errorf("failed to decompress %s: %w", alg, err)
	}
	return out.Bytes(), nil
}

// Compress compresses data in full. None returns data unchanged.
func Compress(alg Algorithm, data []byte, level Level) ([]byte, error) {
	if alg == None || alg == "" {
		return data, nil
	}
	var out bytes.Buffer
	w, err := NewWriter(alg, &out, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
