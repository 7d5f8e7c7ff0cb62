package features

import (
	"image"
	"image/color"
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

func veinedLeaf(width, height int) *image.RGBA {
	img := createTestImage(width, height, color.RGBA{250, 250, 250, 255})
	for y := height / 8; y < height*7/8; y++ {
		for x := width / 8; x < width*7/8; x++ {
			if x%9 == 0 || y%13 == 0 {
				img.Set(x, y, color.RGBA{30, 90, 25, 255})
			} else {
				img.Set(x, y, color.RGBA{70, 150, 60, 255})
			}
		}
	}
	return img
}

func TestExtract_ShapesAndRanges(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"upscaled", 100, 60},
		{"downscaled", 500, 400},
		{"already sized", 224, 224},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := vision.FromImage(veinedLeaf(tt.width, tt.height))
			if err != nil {
				t.Fatal(err)
			}
			set, err := NewExtractor().Extract(frame)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			want := InputSize * InputSize * 3
			if set.Width != InputSize || set.Height != InputSize {
				t.Errorf("Expected %dx%d, got %dx%d", InputSize, InputSize, set.Width, set.Height)
			}
			if len(set.RGB) != want || len(set.Color) != want || len(set.Texture) != want {
				t.Fatalf("Expected %d values per tensor, got rgb=%d color=%d texture=%d",
					want, len(set.RGB), len(set.Color), len(set.Texture))
			}
			for i := range set.Color {
				if set.Color[i] < 0 || set.Color[i] > 1 || set.Texture[i] < 0 || set.Texture[i] > 1 {
					t.Fatalf("index %d out of [0,1]: color=%v texture=%v", i, set.Color[i], set.Texture[i])
				}
			}
		})
	}
}

func TestExtract_TensorsShareTheResizedFrame(t *testing.T) {
	frame, err := vision.FromImage(veinedLeaf(300, 300))
	if err != nil {
		t.Fatal(err)
	}
	set, err := NewExtractor().Extract(frame)
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range [][2]int{{0, 0}, {112, 112}, {200, 50}} {
		x, y := p[0], p[1]
		i := (y*set.Width + x) * 3
		r, g, b := set.Frame.RGB(x, y)
		if set.RGB[i] != r || set.RGB[i+1] != g || set.RGB[i+2] != b {
			t.Errorf("(%d,%d): rgb tensor differs from resized frame", x, y)
		}
		gray := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		if math.Abs(float64(set.Texture[i])*255-math.Round(gray)) > 0.01 {
			t.Errorf("(%d,%d): expected texture gray %v, got %v", x, y, math.Round(gray), set.Texture[i]*255)
		}
		l, _, _ := vision.Lab8(r, g, b)
		if math.Abs(float64(set.Color[i+2])*255-l) > 0.01 {
			t.Errorf("(%d,%d): expected lightness %v, got %v", x, y, l, set.Color[i+2]*255)
		}
	}
}

func TestColorFeaturesOfUniformGreen(t *testing.T) {
	frame, _ := vision.FromImage(createTestImage(4, 4, color.RGBA{0, 200, 0, 255}))
	feats := ColorFeatures(frame)

	// Green sits below the neutral a* of 128 and is fully saturated.
	if a := feats[0] * 255; a >= 128 {
		t.Errorf("Expected a* below 128, got %v", a)
	}
	if s := feats[1]; s != 1 {
		t.Errorf("Expected saturation 1, got %v", s)
	}
}

func TestTextureFeaturesOfFlatFrame(t *testing.T) {
	frame, _ := vision.FromImage(createTestImage(10, 10, color.RGBA{120, 120, 120, 255}))
	feats := TextureFeatures(frame)
	for i := 0; i < len(feats); i += 3 {
		if math.Abs(float64(feats[i])-120.0/255) > 1e-6 {
			t.Fatalf("Expected gray 120/255, got %v", feats[i])
		}
		if feats[i+1] != 0 || feats[i+2] != 0 {
			t.Fatalf("Expected no gradient on flat frame, got %v %v", feats[i+1], feats[i+2])
		}
	}
}

func TestTextureFeaturesClipStrongEdges(t *testing.T) {
	img := createTestImage(12, 12, color.RGBA{0, 0, 0, 255})
	for y := 0; y < 12; y++ {
		for x := 6; x < 12; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	frame, _ := vision.FromImage(img)
	feats := TextureFeatures(frame)

	// The Sobel response across a full black-white step is 1020, clipped to 1.
	i := (6*12 + 6) * 3
	if feats[i+1] != 1 {
		t.Errorf("Expected clipped gradient 1, got %v", feats[i+1])
	}
}

func TestExtract_RejectsMalformedFrame(t *testing.T) {
	if _, err := NewExtractor().Extract(&vision.Frame{}); err == nil {
		t.Error("Expected error for empty frame")
	}
	if _, err := NewExtractorWithSize(0, 10).Extract(vision.NewFrame(4, 4)); err == nil {
		t.Error("Expected error for invalid size")
	}
}
