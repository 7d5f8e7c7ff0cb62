// Package saliency renders a heuristic attention heatmap for a leaf image.
//
// The map is built from image structure alone: a Canny edge map and the
// absolute Laplacian, smoothed and contrast-boosted. It does not read the
// classifier's gradients or activations and must not be presented as an
// explanation of the model's decision. It highlights edges and texture,
// which is where lesions usually show.
package saliency

import (
	"fmt"
	"math"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Options tunes the heatmap.
type Options struct {
	CannyLow        float64
	CannyHigh       float64
	EdgeWeight      float64
	LaplacianWeight float64
	BlurPasses      int
	BlurKernel      int
	BlurSigma       float64
	Gamma           float64
}

// DefaultOptions returns the standard heatmap settings.
func DefaultOptions() Options {
	return Options{
		CannyLow:        50,
		CannyHigh:       150,
		EdgeWeight:      0.6,
		LaplacianWeight: 0.4,
		BlurPasses:      3,
		BlurKernel:      31,
		BlurSigma:       2.0,
		Gamma:           0.8,
	}
}

// Renderer produces a saliency heatmap with values in [0,1], one per pixel.
type Renderer interface {
	Render(frame *vision.Frame) (*vision.Plane, error)
}

type renderer struct {
	opts Options
}

// NewRenderer creates a renderer with default options.
func NewRenderer() Renderer {
	return &renderer{opts: DefaultOptions()}
}

// NewRendererWithOptions creates a renderer with custom options.
func NewRendererWithOptions(opts Options) Renderer {
	return &renderer{opts: opts}
}

func (r *renderer) Render(frame *vision.Frame) (*vision.Plane, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("saliency: %w", err)
	}
	gray := vision.Gray(frame)

	edges := vision.Canny(gray, r.opts.CannyLow, r.opts.CannyHigh)
	heat := vision.NewPlane(gray.Width, gray.Height)
	for i, on := range edges.Bits {
		if on {
			heat.Data[i] = r.opts.EdgeWeight
		}
	}

	lap := vision.Laplacian(gray).Abs()
	floats.AddScaled(heat.Data, r.opts.LaplacianWeight/(floats.Max(lap.Data)+1e-6), lap.Data)

	for i := 0; i < r.opts.BlurPasses; i++ {
		heat = vision.GaussianBlur(heat, r.opts.BlurKernel, r.opts.BlurSigma)
	}

	lo, hi := heat.MinMax()
	if hi > lo {
		floats.AddConst(-lo, heat.Data)
		floats.Scale(1/(hi-lo), heat.Data)
		for i, v := range heat.Data {
			heat.Data[i] = math.Pow(v, r.opts.Gamma)
		}
	} else {
		for i := range heat.Data {
			heat.Data[i] = 0
		}
	}

	logger.WithFields(logrus.Fields{
		"width":      heat.Width,
		"height":     heat.Height,
		"edge_count": edges.Count(),
	}).Debug("Saliency heatmap rendered")
	return heat, nil
}
