package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "PREDICTION_MODE", "CONFIDENCE_FLOOR", "DEMO_SEED", "SKIP_LEAF_CHECK"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected defaults to load, got %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected 0.0.0.0:8080, got %s", cfg.ServerAddress())
	}
	if cfg.PredictionMode != ModeModel {
		t.Errorf("Expected model mode, got %s", cfg.PredictionMode)
	}
	if cfg.ConfidenceFloor != 40 {
		t.Errorf("Expected floor 40, got %v", cfg.ConfidenceFloor)
	}
	if cfg.DemoSeed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.DemoSeed)
	}
	if cfg.InferenceTimeout != 10*time.Second {
		t.Errorf("Expected 10s inference timeout, got %s", cfg.InferenceTimeout)
	}
	if cfg.SkipLeafCheck {
		t.Error("Expected leaf check enabled by default")
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("PREDICTION_MODE", "DEMO")
	t.Setenv("DEMO_SEED", "7")
	t.Setenv("SKIP_LEAF_CHECK", "true")
	t.Setenv("CONFIDENCE_FLOOR", "55.5")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.PredictionMode != ModeDemo {
		t.Errorf("Expected demo mode, got %s", cfg.PredictionMode)
	}
	if cfg.DemoSeed != 7 {
		t.Errorf("Expected seed 7, got %d", cfg.DemoSeed)
	}
	if !cfg.SkipLeafCheck {
		t.Error("Expected leaf check to be skipped")
	}
	if cfg.ConfidenceFloor != 55.5 {
		t.Errorf("Expected floor 55.5, got %v", cfg.ConfidenceFloor)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Port = "99999" }},
		{"unknown mode", func(c *Config) { c.PredictionMode = "guess" }},
		{"floor above range", func(c *Config) { c.ConfidenceFloor = 120 }},
		{"negative dimension", func(c *Config) { c.MaxImageDimension = -1 }},
		{"zero timeout", func(c *Config) { c.InferenceTimeout = 0 }},
		{"missing model", func(c *Config) { c.ModelPath = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     time.Second,
		ImageFetchTimeout:  time.Second,
		InferenceTimeout:   time.Second,
		MaxRequestBodySize: 1024,
		ModelPath:          "model.onnx",
		PredictionMode:     ModeModel,
		ConfidenceFloor:    40,
		MaxImageDimension:  1024,
	}
}
