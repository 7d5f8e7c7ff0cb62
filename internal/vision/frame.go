// Package vision holds the pixel-level primitives shared by the diagnosis
// stages: an RGB frame type, OpenCV-compatible color conversions, and the
// filters (Gaussian, Sobel, Laplacian, Canny, CLAHE, non-local means) they
// are built from.
package vision

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrEmptyImage is returned for images with a zero dimension.
var ErrEmptyImage = errors.New("image has zero width or height")

// Frame is an 8-bit RGB pixel grid stored row-major, three bytes per pixel.
// Frames are treated as immutable once built; transforms return new frames.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// FromImage converts any decoded image into an RGB frame. Gray images are
// replicated across channels and alpha is dropped without compositing.
func FromImage(img image.Image) (*Frame, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	nrgba := imaging.Clone(img)
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+f.Width*4]
		dst := f.Pix[y*f.Width*3 : (y+1)*f.Width*3]
		for x := 0; x < f.Width; x++ {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return f, nil
}

// Bound returns a copy of f shrunk so that its longest side does not exceed
// maxDim, or f itself when it already fits. maxDim <= 0 disables the bound.
func (f *Frame) Bound(maxDim int) (*Frame, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if maxDim <= 0 || (f.Width <= maxDim && f.Height <= maxDim) {
		return f, nil
	}
	return FromImage(imaging.Fit(f.ToNRGBA(), maxDim, maxDim, imaging.Lanczos))
}

// Validate checks the frame's dimensions against its buffer.
func (f *Frame) Validate() error {
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return ErrEmptyImage
	}
	if len(f.Pix) != f.Width*f.Height*3 {
		return fmt.Errorf("frame buffer holds %d bytes, want %d for %dx%dx3",
			len(f.Pix), f.Width*f.Height*3, f.Width, f.Height)
	}
	return nil
}

// RGB returns the pixel at (x, y).
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB writes the pixel at (x, y).
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

func (f *Frame) Clone() *Frame {
	cp := &Frame{Width: f.Width, Height: f.Height, Pix: make([]uint8, len(f.Pix))}
	copy(cp.Pix, f.Pix)
	return cp
}

// ToNRGBA renders the frame as an opaque image.
func (f *Frame) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
