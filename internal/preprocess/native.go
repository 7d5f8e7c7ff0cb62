package preprocess

import (
	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
)

// nativeFilters runs both transforms in pure Go on 8-bit CIELab planes.
type nativeFilters struct{}

// NewNativeFilters returns the pure-Go backend
func NewNativeFilters() Filters {
	return nativeFilters{}
}

func (nativeFilters) Name() string { return "native" }

// Denoise applies non-local means to the three Lab channels jointly, so
// chroma noise is smoothed without shifting hue.
func (nativeFilters) Denoise(frame *vision.Frame, opts Options) (*vision.Frame, error) {
	lab := vision.ToLab(frame)
	planes, err := vision.NonLocalMeans(
		[]*vision.Plane{lab.L, lab.A, lab.B},
		opts.DenoiseStrength, opts.TemplateWindow, opts.SearchWindow,
	)
	if err != nil {
		return nil, err
	}
	return vision.FromLab(vision.Lab{L: planes[0], A: planes[1], B: planes[2]}), nil
}

// EqualizeLightness runs CLAHE on L and leaves a and b untouched.
func (nativeFilters) EqualizeLightness(frame *vision.Frame, opts Options) (*vision.Frame, error) {
	lab := vision.ToLab(frame)
	lab.L = vision.CLAHE(lab.L, opts.ClipLimit, opts.TileGrid, opts.TileGrid)
	return vision.FromLab(lab), nil
}
