package clipstore

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is the compression of a stored blob. Values are persisted.
type Codec uint8

const (
	CodecNone Codec = 0
	CodecZstd Codec = 1
	CodecLZ4  Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCodec parses a codec name. The empty string means zstd.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "zstd":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	case "none":
		return CodecNone, nil
	default:
		return 0, fmt.Errorf("clipstore: unknown codec %q", name)
	}
}

var errIncompressible = errors.New("clipstore: incompressible")

// Encoder and decoder are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("clipstore: zstd encoder: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("clipstore: zstd decoder: " + err.Error())
	}
}

// compress returns data encoded with c, or unchanged with CodecNone when
// c does not make it smaller.
func compress(data []byte, c Codec) (Codec, []byte, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case CodecNone:
		return CodecNone, data, nil
	case CodecZstd:
		out = zstdEncoder.EncodeAll(data, nil)
		if len(out) >= len(data) {
			err = errIncompressible
		}
	case CodecLZ4:
		out = make([]byte, lz4.CompressBlockBound(len(data)))
		var n int
		n, err = lz4.CompressBlock(data, out, nil)
		if err == nil && (n == 0 || n >= len(data)) {
			err = errIncompressible
		}
		out = out[:n]
	default:
		return 0, nil, fmt.Errorf("clipstore: unsupported codec %d", c)
	}
	if errors.Is(err, errIncompressible) {
		return CodecNone, data, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("clipstore: %s compress: %w", c, err)
	}
	return c, out, nil
}

func decompress(data []byte, c Codec, rawSize int) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case CodecNone:
		out = data
	case CodecZstd:
		out, err = zstdDecoder.DecodeAll(data, make([]byte, 0, rawSize))
	case CodecLZ4:
		out = make([]byte, rawSize)
		var n int
		n, err = lz4.UncompressBlock(data, out)
		out = out[:n]
	default:
		return nil, fmt.Errorf("clipstore: unsupported codec %d", c)
	}
	if err != nil {
		return nil, fmt.Errorf("clipstore: %s decompress: %w", c, err)
	}
	if len(out) != rawSize {
		return nil, fmt.Errorf("clipstore: %s decompress: got %d bytes, want %d", c, len(out), rawSize)
	}
	return out, nil
}
