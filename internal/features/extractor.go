package features

import (
	"fmt"
	"math"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"github.com/sirupsen/logrus"
)

// InputSize is the classifier's fixed spatial resolution.
const InputSize = 224

// Set holds the three co-indexed classifier inputs, all laid out
// height×width×3 in row-major order.
type Set struct {
	Width  int
	Height int

	// RGB is the resized frame itself, 0..255.
	RGB []uint8
	// Color is [Lab a*, HSV saturation, Lab lightness], each in [0,1].
	Color []float32
	// Texture is [gray, gradient magnitude, |Laplacian|], each in [0,1].
	Texture []float32

	// Frame is the resized frame all three were derived from.
	Frame *vision.Frame
}

// Extractor resizes a preprocessed frame and derives the classifier inputs.
type Extractor interface {
	Extract(frame *vision.Frame) (*Set, error)
}

type extractor struct {
	width, height int
}

// NewExtractor creates an extractor for 224x224 classifier inputs
func NewExtractor() Extractor {
	return &extractor{width: InputSize, height: InputSize}
}

// NewExtractorWithSize creates an extractor for a custom input resolution
func NewExtractorWithSize(width, height int) Extractor {
	return &extractor{width: width, height: height}
}

func (e *extractor) Extract(frame *vision.Frame) (*Set, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}
	if e.width <= 0 || e.height <= 0 {
		return nil, fmt.Errorf("invalid input size %dx%d", e.width, e.height)
	}

	resized := frame
	if frame.Width != e.width || frame.Height != e.height {
		var err error
		if resized, err = vision.Resize(frame, e.width, e.height); err != nil {
			return nil, fmt.Errorf("resize to %dx%d: %w", e.width, e.height, err)
		}
	}

	set := &Set{
		Width:   e.width,
		Height:  e.height,
		RGB:     append([]uint8(nil), resized.Pix...),
		Color:   ColorFeatures(resized),
		Texture: TextureFeatures(resized),
		Frame:   resized,
	}

	logger.WithFields(logrus.Fields{
		"width":  set.Width,
		"height": set.Height,
	}).Debug("Features extracted")

	return set, nil
}

// ColorFeatures stacks Lab a*, HSV saturation and Lab lightness, scaled to [0,1].
func ColorFeatures(frame *vision.Frame) []float32 {
	lab := vision.ToLab(frame)
	hsv := vision.ToHSV(frame)
	return interleave(lab.A, hsv.S, lab.L)
}

// TextureFeatures stacks gray, Sobel gradient magnitude and absolute
// Laplacian, each truncated to 8 bits and scaled to [0,1].
func TextureFeatures(frame *vision.Frame) []float32 {
	gray := vision.Gray(frame)
	grad := truncate8(vision.GradientMagnitude(gray))
	lap := truncate8(vision.Laplacian(gray).Abs())
	return interleave(gray, grad, lap)
}

// truncate8 clips to [0,255] and drops the fraction, as an unsigned 8-bit cast would.
func truncate8(p *vision.Plane) *vision.Plane {
	out := p.Clip(0, 255)
	for i, v := range out.Data {
		out.Data[i] = math.Floor(v)
	}
	return out
}

func interleave(c0, c1, c2 *vision.Plane) []float32 {
	out := make([]float32, len(c0.Data)*3)
	for i := range c0.Data {
		out[i*3] = float32(c0.Data[i] / 255)
		out[i*3+1] = float32(c1.Data[i] / 255)
		out[i*3+2] = float32(c2.Data[i] / 255)
	}
	return out
}
