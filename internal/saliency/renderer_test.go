package saliency

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
)

func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}
	return img
}

func mustFrame(t *testing.T, img image.Image) *vision.Frame {
	t.Helper()
	f, err := vision.FromImage(img)
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}
	return f
}

// squareImage is a dark background with a bright square in the top-left quadrant.
func squareImage(size int) *image.RGBA {
	img := createTestImage(size, size, color.RGBA{20, 20, 20, 255})
	for y := size / 8; y < size*3/8; y++ {
		for x := size / 8; x < size*3/8; x++ {
			img.Set(x, y, color.RGBA{230, 230, 230, 255})
		}
	}
	return img
}

func TestRender_FlatImageIsZero(t *testing.T) {
	heat, err := NewRenderer().Render(mustFrame(t, createTestImage(40, 30, color.RGBA{90, 160, 70, 255})))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if heat.Width != 40 || heat.Height != 30 {
		t.Errorf("Expected 40x30, got %dx%d", heat.Width, heat.Height)
	}
	for i, v := range heat.Data {
		if v != 0 {
			t.Fatalf("Expected zero heat at %d, got %f", i, v)
		}
	}
}

func TestRender_RangeAndLocality(t *testing.T) {
	const size = 96
	heat, err := NewRenderer().Render(mustFrame(t, squareImage(size)))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	lo, hi := heat.MinMax()
	if lo < 0 || hi > 1 {
		t.Errorf("Expected values in [0,1], got [%f,%f]", lo, hi)
	}
	if math.Abs(hi-1) > 1e-9 {
		t.Errorf("Expected normalized maximum 1, got %f", hi)
	}

	// Square border versus the far corner.
	near := heat.At(size/8, size/4)
	far := heat.At(size-4, size-4)
	if near <= far {
		t.Errorf("Expected more heat on the square's edge (%f) than the far corner (%f)", near, far)
	}
}

func TestRender_InvalidFrame(t *testing.T) {
	if _, err := NewRenderer().Render(&vision.Frame{}); err == nil {
		t.Error("Expected error for empty frame")
	}
}

func TestJet(t *testing.T) {
	tests := []struct {
		v    float64
		want color.RGBA
	}{
		{0, color.RGBA{0, 0, 128, 255}},
		{1, color.RGBA{128, 0, 0, 255}},
		{-3, color.RGBA{0, 0, 128, 255}},
		{7, color.RGBA{128, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := Jet(tt.v); got != tt.want {
			t.Errorf("Jet(%f) = %v, want %v", tt.v, got, tt.want)
		}
	}
	if mid := Jet(0.5); mid.G != 255 {
		t.Errorf("Expected full green at the midpoint, got %v", mid)
	}
}

func TestOverlay(t *testing.T) {
	frame := mustFrame(t, createTestImage(20, 10, color.RGBA{0, 0, 0, 255}))
	heat := vision.NewPlane(20, 10)

	out, err := Overlay(frame, heat, DefaultAlpha)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 10 {
		t.Fatalf("Expected 20x10 overlay, got %v", out.Bounds())
	}
	r, _, b, _ := out.At(5, 5).RGBA()
	if r>>8 != 0 || b>>8 < 50 || b>>8 > 52 {
		t.Errorf("Expected 40%% of JET blue over black, got r=%d b=%d", r>>8, b>>8)
	}
}

func TestOverlay_ResizesHeatmap(t *testing.T) {
	frame := mustFrame(t, squareImage(64))
	out, err := Overlay(frame, vision.NewPlane(16, 16), DefaultAlpha)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
		t.Errorf("Expected overlay at frame size, got %v", out.Bounds())
	}

	if _, err := Overlay(frame, nil, DefaultAlpha); err == nil {
		t.Error("Expected error for nil heatmap")
	}
}

func TestEmbed(t *testing.T) {
	frame := mustFrame(t, squareImage(32))
	heat, _ := NewRenderer().Render(frame)
	out, _ := Overlay(frame, heat, DefaultAlpha)

	embedded, err := Embed(out)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if embedded.Format != "png" || embedded.Width != 32 || embedded.Height != 32 {
		t.Errorf("Unexpected metadata %+v", embedded)
	}
	raw, err := base64.StdEncoding.DecodeString(embedded.Data)
	if err != nil {
		t.Fatalf("Invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Invalid PNG: %v", err)
	}
	if img.Bounds().Dx() != 32 {
		t.Errorf("Expected width 32, got %d", img.Bounds().Dx())
	}
}
