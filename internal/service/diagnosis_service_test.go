package service

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/inference"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/observer"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/strategy"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/validation"
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

// leafImage is a striped mid-green frame with strong vein-like edges.
func leafImage(size int) *image.RGBA {
	img := createTestImage(size, size, color.RGBA{40, 160, 40, 255})
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/4)%2 == 1 {
				img.Set(x, y, color.RGBA{20, 100, 20, 255})
			}
		}
	}
	return img
}

type scriptedEngine struct {
	scores []float32
}

func (e *scriptedEngine) Inputs() []models.TensorSpec {
	shape := []int64{1, 224, 224, 3}
	return []models.TensorSpec{
		{Name: "rgb_input", Shape: shape, DType: inference.DTypeUint8},
		{Name: "color_input", Shape: shape, DType: inference.DTypeFloat32},
		{Name: "texture_input", Shape: shape, DType: inference.DTypeFloat32},
	}
}
func (e *scriptedEngine) Outputs() []models.TensorSpec {
	return []models.TensorSpec{{Name: "probs", Shape: []int64{1, 7}, DType: inference.DTypeFloat32}}
}
func (e *scriptedEngine) Run([]inference.Input) ([]float32, error) { return e.scores, nil }
func (e *scriptedEngine) Close() error                             { return nil }

func modelPredictor(scores []float32) *strategy.PredictionContext {
	provider := inference.NewProvider(func() (inference.Engine, error) {
		return &scriptedEngine{scores: scores}, nil
	})
	return strategy.NewPredictionContext(strategy.NewModelPredictionStrategy(provider, time.Second, "test.onnx"))
}

func newService(predictor *strategy.PredictionContext, opts Options) (DiagnosisService, *observer.MetricsObserver) {
	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(metrics)
	return NewDiagnosisService(nil, DefaultStages(predictor, 40), opts, publisher), metrics
}

func TestDiagnose_BlankImageWarnsButConfidenceDecides(t *testing.T) {
	svc, _ := newService(strategy.NewPredictionContext(strategy.NewDemoPredictionStrategy(42)), Options{})

	resp, err := svc.DiagnoseImage(context.Background(), createTestImage(48, 48, color.RGBA{255, 255, 255, 255}), DiagnoseOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Plausibility.Plausible {
		t.Error("Expected the leaf check to flag a blank image")
	}
	if !contains(resp.Warnings, WarningNotLeaf) {
		t.Errorf("Expected not-a-leaf warning, got %v", resp.Warnings)
	}
	// Demo confidence is at least 50, so the floor accepts it.
	if resp.Outcome != models.DecisionAccepted || resp.Mode != models.SourceDemo {
		t.Errorf("Expected accepted demo result, got %s/%s", resp.Outcome, resp.Mode)
	}
	if resp.Quality.Acceptable {
		t.Error("Expected a flat white image to fail the quality check")
	}
	if resp.ID == "" {
		t.Error("Expected a diagnosis ID")
	}
}

func TestDiagnose_ShortOutputIsPadded(t *testing.T) {
	svc, metrics := newService(modelPredictor([]float32{0.3, 0.7}), Options{})

	resp, err := svc.DiagnoseImage(context.Background(), leafImage(48), DiagnoseOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !resp.Plausibility.Plausible {
		t.Errorf("Expected leaf image to pass the leaf check, got %+v", resp.Plausibility)
	}
	if resp.InferenceStatus != models.StatusDegraded || resp.InferenceReason != inference.ReasonOutputLength {
		t.Errorf("Expected degraded result, got %s/%s", resp.InferenceStatus, resp.InferenceReason)
	}
	if len(resp.Distribution) != 7 {
		t.Fatalf("Expected 7 scores, got %d", len(resp.Distribution))
	}
	for _, s := range resp.Distribution[2:] {
		if s.Probability != 0 {
			t.Errorf("Expected zero padding for %s, got %f", s.Label, s.Probability)
		}
	}
	if resp.Label != models.LabelGrayBlight || resp.ConfidenceBand != models.BandMedium {
		t.Errorf("Expected Gray_Blight at medium confidence, got %s/%s", resp.Label, resp.ConfidenceBand)
	}
	if m := metrics.GetMetrics(); m.DegradedDiagnoses != 1 || m.CompletedDiagnoses != 1 {
		t.Errorf("Unexpected metrics %+v", m)
	}
}

func TestDiagnose_ConfidenceFloorBoundary(t *testing.T) {
	tests := []struct {
		name  string
		score float32
		want  models.DecisionState
	}{
		{"39.9 rejected", 0.399, models.DecisionRejectedLowConfidence},
		{"40.0 accepted", 0.400, models.DecisionAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scores := []float32{tt.score, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}
			svc, metrics := newService(modelPredictor(scores), Options{})

			resp, err := svc.DiagnoseImage(context.Background(), leafImage(48), DiagnoseOptions{})
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if resp.Outcome != tt.want {
				t.Errorf("Expected %s, got %s at %f", tt.want, resp.Outcome, resp.Confidence)
			}
			if tt.want == models.DecisionRejectedLowConfidence {
				if resp.Label != "" || resp.Distribution != nil {
					t.Error("Expected no disease information on rejection")
				}
				if metrics.GetMetrics().RejectedDiagnoses != 1 {
					t.Error("Expected a rejection event")
				}
			}
		})
	}
}

func TestDiagnose_ModelUnavailable(t *testing.T) {
	provider := inference.NewProvider(func() (inference.Engine, error) { return nil, errors.New("missing") })
	predictor := strategy.NewPredictionContext(strategy.NewModelPredictionStrategy(provider, time.Second, "missing.onnx"))
	svc, metrics := newService(predictor, Options{})

	_, err := svc.DiagnoseImage(context.Background(), leafImage(32), DiagnoseOptions{})
	if !apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable) {
		t.Fatalf("Expected model_unavailable, got %v", err)
	}
	if metrics.GetMetrics().FailedDiagnoses != 1 {
		t.Error("Expected a failure event")
	}
}

func TestDiagnose_EnforceQuality(t *testing.T) {
	demo := strategy.NewPredictionContext(strategy.NewDemoPredictionStrategy(1))
	svc, _ := newService(demo, Options{EnforceQuality: true})

	_, err := svc.DiagnoseImage(context.Background(), createTestImage(32, 32, color.RGBA{0, 0, 0, 255}), DiagnoseOptions{})
	if !apperrors.IsType(err, apperrors.ErrorTypeDegenerateImage) {
		t.Errorf("Expected degenerate_image, got %v", err)
	}

	if _, err := svc.DiagnoseImage(context.Background(), leafImage(32), DiagnoseOptions{}); err != nil {
		t.Errorf("Expected a textured leaf to pass enforced quality, got %v", err)
	}
}

// blurryCapture is a smooth horizontal sinusoid: blurry at full size, but sharp
// enough once shrunk by the dimension bound.
func blurryCapture(size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for x := 0; x < size; x++ {
		v := uint8(math.Round(128 + 100*math.Sin(2*math.Pi*float64(x)/60)))
		for y := 0; y < size; y++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestDiagnose_QualityMeasuredBeforeDimensionBound(t *testing.T) {
	demo := strategy.NewPredictionContext(strategy.NewDemoPredictionStrategy(1))
	svc, _ := newService(demo, Options{EnforceQuality: true, MaxImageDimension: 256})
	img := blurryCapture(768)

	report, err := svc.AssessQuality(context.Background(), img)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.Acceptable || !report.HasIssue(validation.IssueExtremelyBlurry) {
		t.Errorf("Expected full-size capture flagged extremely blurry, got %+v", report)
	}

	_, err = svc.DiagnoseImage(context.Background(), img, DiagnoseOptions{})
	if !apperrors.IsType(err, apperrors.ErrorTypeDegenerateImage) {
		t.Errorf("Expected degenerate_image for blurry capture, got %v", err)
	}
}

func TestDiagnose_SkipLeafCheck(t *testing.T) {
	demo := strategy.NewPredictionContext(strategy.NewDemoPredictionStrategy(3))
	blank := createTestImage(32, 32, color.RGBA{255, 255, 255, 255})

	svc, _ := newService(demo, Options{})
	resp, err := svc.DiagnoseImage(context.Background(), blank, DiagnoseOptions{SkipLeafCheck: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Plausibility.Status != models.PlausibilitySkipped || contains(resp.Warnings, WarningNotLeaf) {
		t.Errorf("Expected skipped leaf check without warning, got %+v", resp.Plausibility)
	}

	global, _ := newService(demo, Options{SkipLeafCheck: true})
	resp, _ = global.DiagnoseImage(context.Background(), blank, DiagnoseOptions{})
	if resp.Plausibility.Status != models.PlausibilitySkipped {
		t.Error("Expected the global switch to skip the leaf check")
	}
}

func TestDiagnose_Heatmap(t *testing.T) {
	svc, _ := newService(modelPredictor([]float32{0.9, 0.02, 0.02, 0.02, 0.02, 0.01, 0.01}), Options{})

	resp, err := svc.DiagnoseImage(context.Background(), leafImage(40), DiagnoseOptions{Heatmap: true})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Heatmap == nil || resp.Heatmap.Width != 40 || resp.Heatmap.Data == "" {
		t.Errorf("Expected an embedded 40px heatmap, got %+v", resp.Heatmap)
	}
	if resp.ConfidenceBand != models.BandHigh || resp.Severity != models.SeverityMedium {
		t.Errorf("Expected high-confidence Brown_Blight, got %s/%s", resp.ConfidenceBand, resp.Severity)
	}

	img, err := svc.RenderHeatmap(context.Background(), leafImage(40))
	if err != nil || img.Bounds().Dx() != 40 {
		t.Errorf("Expected 40px overlay, got %v", err)
	}
}

func TestDiagnose_EmptyImage(t *testing.T) {
	svc, _ := newService(strategy.NewPredictionContext(strategy.NewDemoPredictionStrategy(1)), Options{})
	_, err := svc.DiagnoseImage(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)), DiagnoseOptions{})
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

type stubRepository struct {
	img image.Image
	err error
}

func (r stubRepository) FetchImage(context.Context, string) (image.Image, error) { return r.img, r.err }
func (r stubRepository) ValidateImageURL(source string) error {
	if source == "" {
		return apperrors.NewValidationError("Image source cannot be empty", nil)
	}
	return nil
}

func TestDiagnoseSource(t *testing.T) {
	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(metrics)
	demo := strategy.NewPredictionContext(strategy.NewDemoPredictionStrategy(5))

	svc := NewDiagnosisService(stubRepository{img: leafImage(32)}, DefaultStages(demo, 40), Options{}, publisher)
	resp, err := svc.DiagnoseSource(context.Background(), "https://example.com/leaf.png", DiagnoseOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if resp.Source != "https://example.com/leaf.png" {
		t.Errorf("Expected source on response, got %q", resp.Source)
	}

	failing := NewDiagnosisService(stubRepository{err: apperrors.NewNetworkError("Failed to fetch image", nil)}, DefaultStages(demo, 40), Options{}, publisher)
	if _, err := failing.DiagnoseSource(context.Background(), "https://example.com/x.png", DiagnoseOptions{}); !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Errorf("Expected network error, got %v", err)
	}
	if _, err := failing.DiagnoseSource(context.Background(), "", DiagnoseOptions{}); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}

	m := metrics.GetMetrics()
	if m.ImagesFetched != 1 || m.ImageFetchFailures != 1 {
		t.Errorf("Unexpected fetch metrics %+v", m)
	}
}

func TestDescribeModel(t *testing.T) {
	svc, _ := newService(modelPredictor(nil), Options{})
	info, err := svc.DescribeModel()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !info.Bound || info.Strategy != strategy.NameModel || info.ModelPath != "test.onnx" {
		t.Errorf("Unexpected model info %+v", info)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
