package strategy

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/inference"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/models"
)

func TestDemoStrategy_Deterministic(t *testing.T) {
	s := NewDemoPredictionStrategy(42)

	first, err := s.Predict(context.Background(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, _ := s.Predict(context.Background(), nil)
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("Expected identical predictions for the same seed, got %+v and %+v", first, next)
		}
	}

	again, _ := NewDemoPredictionStrategy(42).Predict(context.Background(), nil)
	if !reflect.DeepEqual(first, again) {
		t.Error("Expected a fresh strategy with the same seed to agree")
	}
}

func TestDemoStrategy_Shape(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		pred, _ := NewDemoPredictionStrategy(seed).Predict(context.Background(), nil)

		if pred.Source != models.SourceDemo {
			t.Fatalf("Expected demo source, got %s", pred.Source)
		}
		if pred.Confidence < 50 || pred.Confidence >= 95 {
			t.Errorf("seed %d: confidence %f outside [50,95)", seed, pred.Confidence)
		}
		if len(pred.Distribution) != models.LabelCount {
			t.Fatalf("seed %d: expected %d entries", seed, models.LabelCount)
		}
		idx := models.LabelIndex(pred.Label)
		if idx < 0 || pred.Distribution[idx] != pred.Confidence {
			t.Errorf("seed %d: distribution does not carry the confidence at %s", seed, pred.Label)
		}
		best, _ := pred.Distribution.ArgMax()
		if best != idx {
			t.Errorf("seed %d: expected %s to be the arg-max", seed, pred.Label)
		}
	}
}

func TestDemoStrategy_SeedsDiffer(t *testing.T) {
	seen := map[string]bool{}
	for seed := uint64(0); seed < 20; seed++ {
		pred, _ := NewDemoPredictionStrategy(seed).Predict(context.Background(), nil)
		seen[pred.Label] = true
	}
	if len(seen) < 2 {
		t.Error("Expected different seeds to produce different labels")
	}
}

func TestModelStrategy_ModelUnavailable(t *testing.T) {
	provider := inference.NewProvider(func() (inference.Engine, error) {
		return nil, errors.New("model file missing")
	})
	pc := NewPredictionContext(NewModelPredictionStrategy(provider, time.Second, "models/missing.onnx"))

	if pc.GetCurrentStrategy() != NameModel {
		t.Errorf("Expected %s, got %s", NameModel, pc.GetCurrentStrategy())
	}
	if _, err := pc.ExecutePrediction(context.Background(), nil); !apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable) {
		t.Errorf("Expected model_unavailable, got %v", err)
	}
	info, err := pc.Describe(224, 224)
	if err == nil {
		t.Error("Expected describe to fail without a model")
	}
	if info.Strategy != NameModel || info.ModelPath != "models/missing.onnx" {
		t.Errorf("Expected strategy and path in info, got %+v", info)
	}
	if err := pc.Close(); err != nil {
		t.Errorf("Unexpected close error: %v", err)
	}
}

func TestPredictionContext_Demo(t *testing.T) {
	pc := NewPredictionContext(NewDemoPredictionStrategy(7))
	info, err := pc.Describe(224, 224)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info.Strategy != NameDemo || len(info.Labels) != models.LabelCount {
		t.Errorf("Unexpected info %+v", info)
	}
}
