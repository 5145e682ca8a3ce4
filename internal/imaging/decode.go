// Package imaging decodes, resizes and annotates the images exchanged with the
// generation service.
package imaging

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/webp"

	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

// DecodeError reports image bytes that could not be decoded.
type DecodeError struct {
	// Source names where the bytes came from ("upload", "composite", ...).
	Source string
	Size   int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s image (%d bytes): %v", e.Source, e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode decodes data in any registered format (png, jpeg, gif, webp).
func Decode(source string, data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &DecodeError{Source: source, Err: fmt.Errorf("empty payload")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Source: source, Size: len(data), Err: err}
	}
	return img, format, nil
}

// Inspect validates data and returns it as a history payload with its
// dimensions. The bytes are kept as-is.
func Inspect(source string, data []byte) (history.Image, error) {
	if len(data) == 0 {
		return history.Image{}, &DecodeError{Source: source, Err: fmt.Errorf("empty payload")}
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return history.Image{}, &DecodeError{Source: source, Size: len(data), Err: err}
	}
	return history.Image{
		Data:     data,
		MIMEType: "image/" + format,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// EncodePNG encodes img as a PNG history payload.
func EncodePNG(img image.Image) (history.Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return history.Image{}, fmt.Errorf("encode png: %w", err)
	}
	b := img.Bounds()
	return history.Image{
		Data:     buf.Bytes(),
		MIMEType: "image/png",
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}

// Extension returns the file extension for a MIME type produced by Inspect.
func Extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// Digest returns a hex BLAKE2b-256 digest of data, used as a content ETag.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
