// Package bundle encodes and decodes export bundles, optionally wrapped in
// zstd. Encoders and decoders are pooled because exports and archive runs
// are frequent and small.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"laborcurve/internal/types"
)

// Encoding names stored alongside archived bundles.
const (
	EncodingJSON = "json"
	EncodingZstd = "zstd"
)

// ContentTypeZstd is the media type of a compressed bundle response.
const ContentTypeZstd = "application/zstd"

// zstdMagic prefixes every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec marshals bundles and handles zstd framing.
type Codec struct {
	encoderPool sync.Pool
	decoderPool sync.Pool
}

// NewCodec creates a Codec with empty encoder and decoder pools.
func NewCodec() *Codec {
	return &Codec{
		encoderPool: sync.Pool{
			New: func() any {
				e, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
				}
				return e
			},
		},
		decoderPool: sync.Pool{
			New: func() any {
				d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
				}
				return d
			},
		},
	}
}

// Encode marshals b as indented JSON, compressing it when compress is set.
func (c *Codec) Encode(b *types.Bundle, compress bool) ([]byte, error) {
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode bundle", err)
	}
	if !compress {
		return raw, nil
	}
	return c.Compress(raw), nil
}

// Compress wraps data in a zstd frame.
func (c *Codec) Compress(data []byte) []byte {
	encoder := c.encoderPool.Get().(*zstd.Encoder)
	defer c.encoderPool.Put(encoder)
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

// Decompress unwraps a zstd frame. Output larger than maxBytes is rejected.
func (c *Codec) Decompress(data []byte, maxBytes int64) ([]byte, error) {
	decoder := c.decoderPool.Get().(*zstd.Decoder)
	defer c.decoderPool.Put(decoder)

	if err := decoder.Reset(bytes.NewReader(data)); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationBundle, "invalid zstd stream", err)
	}
	out, err := io.ReadAll(io.LimitReader(decoder, maxBytes+1))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationBundle, "zstd decompression failed", err)
	}
	if int64(len(out)) > maxBytes {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationBundle,
			"decompressed bundle is too large", nil,
			map[string]any{"max_bytes": maxBytes})
	}
	return out, nil
}

// IsCompressed reports whether data starts with the zstd magic number.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Decode parses a bundle, transparently decompressing zstd input. The
// envelope is normalized and validated; individual records are not.
func (c *Codec) Decode(data []byte, maxBytes int64) (*types.Bundle, error) {
	if IsCompressed(data) {
		raw, err := c.Decompress(data, maxBytes)
		if err != nil {
			return nil, err
		}
		data = raw
	}

	var b types.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, types.NewAppError(types.ErrCodeValidationBundle, "bundle is not valid JSON", err)
	}
	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
