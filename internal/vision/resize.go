package vision

import (
	"github.com/nfnt/resize"
)

// Resize scales a frame to exactly width×height with bilinear interpolation.
func Resize(f *Frame, width, height int) (*Frame, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Width == width && f.Height == height {
		return f.Clone(), nil
	}
	resized := resize.Resize(uint(width), uint(height), f.ToNRGBA(), resize.Bilinear)
	return FromImage(resized)
}
