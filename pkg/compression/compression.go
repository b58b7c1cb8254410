// Package compression implements AIFS's single compression algorithm, zstd
// (spec §4.4), via github.com/klauspost/compress/zstd: level range,
// magic-byte detection of already-compressed payloads, streaming chunking.
package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/cuemby/aifs/pkg/aifserrors"
)

const (
	MinLevel     = 1
	MaxLevel     = 22
	DefaultLevel = 1

	streamChunkSize = 1 << 20 // 1 MiB, matches compression.py's compress_stream default
)

// zstdMagic is the four-byte zstd frame magic number, used to opportunistically
// detect already-compressed legacy payloads during migration (spec §4.4).
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Service compresses and decompresses bytes at a configured zstd level.
type Service struct {
	level zstd.EncoderLevel
	raw   int
}

// New builds a compression Service at the given zstd level, 1-22.
func New(level int) (*Service, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, aifserrors.InvalidArgumentf("compression_level", fmt.Sprintf("must be in [%d,%d]", MinLevel, MaxLevel))
	}
	return &Service{level: zstd.EncoderLevelFromZstd(level), raw: level}, nil
}

// Level returns the configured zstd level (1-22).
func (s *Service) Level() int { return s.raw }

// Compress zstd-compresses data.
func (s *Service) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(s.level))
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "create zstd encoder", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
}

// Decompress reverses Compress.
func (s *Service) Decompress(compressed []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.Internal, "create zstd decoder", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, aifserrors.Wrap(aifserrors.DataCorruption, "zstd decode failed", err)
	}
	return out, nil
}

// CompressStream compresses data read from r, chunking reads at streamChunkSize,
// for large payloads that should not be materialized twice in memory.
func (s *Service) CompressStream(w io.Writer, r io.Reader) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(s.level))
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "create zstd encoder", err)
	}
	buf := make([]byte, streamChunkSize)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := enc.Write(buf[:n]); werr != nil {
				_ = enc.Close()
				return aifserrors.Wrap(aifserrors.Internal, "zstd stream write", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = enc.Close()
			return aifserrors.Wrap(aifserrors.Internal, "read stream input", rerr)
		}
	}
	return enc.Close()
}

// DecompressStream decompresses r into w.
func (s *Service) DecompressStream(w io.Writer, r io.Reader) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return aifserrors.Wrap(aifserrors.Internal, "create zstd decoder", err)
	}
	defer dec.Close()
	if _, err := io.Copy(w, dec); err != nil {
		return aifserrors.Wrap(aifserrors.DataCorruption, "zstd stream decode failed", err)
	}
	return nil
}

// IsCompressed reports whether data begins with the zstd frame magic,
// used to distinguish legacy uncompressed payloads during migration.
func IsCompressed(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], zstdMagic)
}

// Info summarizes the effect of compression on one payload.
type Info struct {
	OriginalSize       int64
	CompressedSize     int64
	CompressionRatio   float64
	SpaceSaved         int64
	SpaceSavedPercent  float64
}

// Stats computes compression statistics for a before/after size pair.
func Stats(originalSize, compressedSize int64) Info {
	if originalSize == 0 {
		return Info{}
	}
	saved := originalSize - compressedSize
	return Info{
		OriginalSize:      originalSize,
		CompressedSize:    compressedSize,
		CompressionRatio:  float64(compressedSize) / float64(originalSize),
		SpaceSaved:        saved,
		SpaceSavedPercent: float64(saved) / float64(originalSize) * 100,
	}
}
