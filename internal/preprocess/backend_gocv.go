//go:build gocv

package preprocess

import (
	"fmt"
	"image"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"gocv.io/x/gocv"
)

// DefaultFilters returns the OpenCV backend.
func DefaultFilters() Filters {
	return NewOpenCVFilters()
}

// openCVFilters delegates both transforms to OpenCV through gocv.
type openCVFilters struct{}

// NewOpenCVFilters returns the OpenCV backend
func NewOpenCVFilters() Filters {
	return openCVFilters{}
}

func (openCVFilters) Name() string { return "opencv" }

func (openCVFilters) Denoise(frame *vision.Frame, opts Options) (*vision.Frame, error) {
	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap frame: %w", err)
	}
	defer src.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(src, &bgr, gocv.ColorRGBToBGR)

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.FastNlMeansDenoisingColoredWithParams(bgr, &dst,
		float32(opts.DenoiseStrength), float32(opts.DenoiseStrength),
		opts.TemplateWindow, opts.SearchWindow)

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(dst, &rgb, gocv.ColorBGRToRGB)

	return matToFrame(rgb, frame.Width, frame.Height)
}

func (openCVFilters) EqualizeLightness(frame *vision.Frame, opts Options) (*vision.Frame, error) {
	src, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap frame: %w", err)
	}
	defer src.Close()

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(src, &lab, gocv.ColorRGBToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	clahe := gocv.NewCLAHEWithParams(opts.ClipLimit, image.Point{X: opts.TileGrid, Y: opts.TileGrid})
	defer clahe.Close()

	equalized := gocv.NewMat()
	defer equalized.Close()
	clahe.Apply(channels[0], &equalized)
	channels[0].Close()
	channels[0] = equalized.Clone()

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(merged, &rgb, gocv.ColorLabToRGB)

	return matToFrame(rgb, frame.Width, frame.Height)
}

func matToFrame(m gocv.Mat, width, height int) (*vision.Frame, error) {
	data := m.ToBytes()
	if len(data) != width*height*3 {
		return nil, fmt.Errorf("opencv returned %d bytes, want %d", len(data), width*height*3)
	}
	f := vision.NewFrame(width, height)
	copy(f.Pix, data)
	return f, nil
}
