package storage

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxImageBytes bounds how much of a source is read before decoding.
const DefaultMaxImageBytes int64 = 10 * 1024 * 1024

var (
	// ErrDecode marks content that is not a supported image.
	ErrDecode = errors.New("unsupported or corrupt image")

	// ErrTooLarge marks a source larger than the read limit.
	ErrTooLarge = errors.New("image exceeds size limit")
)

// DecodeImage decodes one image from r, reading at most maxBytes.
// maxBytes <= 0 uses DefaultMaxImageBytes.
func DecodeImage(r io.Reader, maxBytes int64) (image.Image, string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	limited := &io.LimitedReader{R: r, N: maxBytes + 1}
	img, format, err := image.Decode(limited)
	if limited.N <= 0 {
		return nil, "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, maxBytes)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}
