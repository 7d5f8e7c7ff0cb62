package preprocess

import (
	"fmt"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"github.com/sirupsen/logrus"
)

// Options tunes the two preprocessing transforms.
type Options struct {
	// Non-local means
	DenoiseStrength float64
	TemplateWindow  int
	SearchWindow    int

	// CLAHE on the lightness channel
	ClipLimit float64
	TileGrid  int
}

// DefaultOptions returns moderate denoising and 8x8 CLAHE at clip limit 2.0
func DefaultOptions() Options {
	return Options{
		DenoiseStrength: 7,
		TemplateWindow:  7,
		SearchWindow:    21,
		ClipLimit:       2.0,
		TileGrid:        8,
	}
}

// Filters is an image-processing backend able to run both transforms.
type Filters interface {
	Name() string
	Denoise(frame *vision.Frame, opts Options) (*vision.Frame, error)
	EqualizeLightness(frame *vision.Frame, opts Options) (*vision.Frame, error)
}

// Preprocessor denoises and normalizes lighting. The returned frame is new;
// the input is never modified.
type Preprocessor interface {
	Preprocess(frame *vision.Frame) (*vision.Frame, error)
}

type preprocessor struct {
	filters Filters
	opts    Options
}

// NewPreprocessor creates a preprocessor on the build's default backend
func NewPreprocessor() Preprocessor {
	return NewPreprocessorWithFilters(DefaultFilters(), DefaultOptions())
}

// NewPreprocessorWithFilters creates a preprocessor on an explicit backend
func NewPreprocessorWithFilters(filters Filters, opts Options) Preprocessor {
	return &preprocessor{filters: filters, opts: opts}
}

func (p *preprocessor) Preprocess(frame *vision.Frame) (*vision.Frame, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	start := time.Now()

	denoised, err := p.filters.Denoise(frame, p.opts)
	if err != nil {
		return nil, fmt.Errorf("denoise: %w", err)
	}
	equalized, err := p.filters.EqualizeLightness(denoised, p.opts)
	if err != nil {
		return nil, fmt.Errorf("equalize lightness: %w", err)
	}
	if equalized.Width != frame.Width || equalized.Height != frame.Height {
		return nil, fmt.Errorf("backend %s changed dimensions from %dx%d to %dx%d",
			p.filters.Name(), frame.Width, frame.Height, equalized.Width, equalized.Height)
	}

	logger.WithFields(logrus.Fields{
		"backend":  p.filters.Name(),
		"width":    frame.Width,
		"height":   frame.Height,
		"duration": time.Since(start).String(),
	}).Debug("Image preprocessed")

	return equalized, nil
}
