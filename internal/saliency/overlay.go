package saliency

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
)

// DefaultAlpha is the heatmap weight in the overlay.
const DefaultAlpha = 0.4

// Colorize maps a [0,1] heatmap to the JET colormap, blue for cold and red for hot.
func Colorize(heat *vision.Plane) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, heat.Width, heat.Height))
	for y := 0; y < heat.Height; y++ {
		for x := 0; x < heat.Width; x++ {
			img.SetRGBA(x, y, Jet(heat.At(x, y)))
		}
	}
	return img
}

// Jet returns the JET color for v in [0,1]. v is quantized to 8 bits first.
func Jet(v float64) color.RGBA {
	q := math.Floor(math.Min(math.Max(v, 0), 1) * 255)
	t := q / 255
	channel := func(center float64) uint8 {
		c := 1.5 - math.Abs(4*t-center)
		return uint8(math.Round(math.Min(math.Max(c, 0), 1) * 255))
	}
	return color.RGBA{R: channel(3), G: channel(2), B: channel(1), A: 0xff}
}

// Overlay blends the colorized heatmap over frame with the given alpha.
// The heatmap is resized to the frame if their sizes differ.
func Overlay(frame *vision.Frame, heat *vision.Plane, alpha float64) (image.Image, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}
	if heat == nil || heat.Width <= 0 || heat.Height <= 0 {
		return nil, fmt.Errorf("overlay: empty heatmap")
	}

	var colored image.Image = Colorize(heat)
	if heat.Width != frame.Width || heat.Height != frame.Height {
		colored = imaging.Resize(colored, frame.Width, frame.Height, imaging.Linear)
	}
	return blend.Opacity(frame.ToNRGBA(), colored, alpha), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Embed encodes img as a base64 PNG for JSON responses.
func Embed(img image.Image) (*models.HeatmapImage, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &models.HeatmapImage{
		Format: "png",
		Width:  b.Dx(),
		Height: b.Dy(),
		Data:   base64.StdEncoding.EncodeToString(data),
	}, nil
}
