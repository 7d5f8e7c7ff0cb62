package factory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/config"
	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/inference"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/strategy"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               "8080",
		RequestTimeout:     time.Second,
		ImageFetchTimeout:  time.Second,
		InferenceTimeout:   time.Second,
		MaxRequestBodySize: 1 << 20,
		ModelPath:          "models/missing.onnx",
		PredictionMode:     config.ModeModel,
		DemoSeed:           42,
		ConfidenceFloor:    40,
	}
}

func TestCreateStrategy(t *testing.T) {
	f := NewStrategyFactoryWithLoader(testConfig(), func() (inference.Engine, error) {
		return nil, errors.New("not loaded in tests")
	})

	model, err := f.CreateStrategy(config.ModeModel)
	if err != nil || model.GetStrategyName() != strategy.NameModel {
		t.Fatalf("Expected model strategy, got %v %v", model, err)
	}
	if _, err := model.Predict(context.Background(), nil); !apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable) {
		t.Errorf("Expected model_unavailable, got %v", err)
	}

	demo, err := f.CreateStrategy(config.ModeDemo)
	if err != nil || demo.GetStrategyName() != strategy.NameDemo {
		t.Fatalf("Expected demo strategy, got %v %v", demo, err)
	}

	if _, err := f.CreateStrategy("oracle"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestCreateStorage(t *testing.T) {
	f := NewStorageFactory(testConfig(), t.TempDir())

	for _, st := range []StorageType{HTTPStorage, LocalStorage} {
		if s, err := f.CreateStorage(st); err != nil || s == nil {
			t.Errorf("Expected %s storage, got %v", st, err)
		}
	}
	if _, err := f.CreateStorage(AzureStorage); err == nil {
		t.Error("Expected azure storage to require credentials")
	}
	if _, err := f.CreateStorage("ftp"); err == nil {
		t.Error("Expected error for unknown storage type")
	}
}

func TestCreateRepository(t *testing.T) {
	cfg := testConfig()
	cf := NewComponentFactory(cfg, t.TempDir())

	apiRepo, err := cf.CreateRepository(cfg, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := apiRepo.ValidateImageURL("leaf.jpg"); err == nil {
		t.Error("Expected local paths to be rejected without the local store")
	}

	cliRepo, err := cf.CreateRepository(cfg, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := cliRepo.ValidateImageURL("leaf.jpg"); err != nil {
		t.Errorf("Expected local paths to be accepted, got %v", err)
	}
}
