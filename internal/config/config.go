package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Prediction modes. The strategy is fixed for the lifetime of the process.
const (
	ModeModel = "model"
	ModeDemo  = "demo"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	InferenceTimeout   time.Duration
	MaxRequestBodySize int64

	ModelPath        string
	ONNXLibraryPath  string
	InferenceThreads int

	PredictionMode  string
	DemoSeed        int64
	ConfidenceFloor float64

	EnforceQuality    bool
	SkipLeafCheck     bool
	MaxImageDimension int

	AzureAccountName string
	AzureAccountKey  string

	LogLevel string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob credentials are configured.
func (c *Config) AzureEnabled() bool {
	return c.AzureAccountName != "" && c.AzureAccountKey != ""
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		InferenceTimeout:   parseDurationOrDefault("INFERENCE_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB

		ModelPath:        getEnvOrDefault("MODEL_PATH", "models/tea_doctor.onnx"),
		ONNXLibraryPath:  getEnvOrDefault("ONNXRUNTIME_LIB", ""),
		InferenceThreads: int(parseIntOrDefault("INFERENCE_THREADS", 0)),

		PredictionMode:  strings.ToLower(getEnvOrDefault("PREDICTION_MODE", ModeModel)),
		DemoSeed:        parseIntOrDefault("DEMO_SEED", 42),
		ConfidenceFloor: parseFloatOrDefault("CONFIDENCE_FLOOR", 40),

		EnforceQuality:    parseBoolOrDefault("ENFORCE_QUALITY", false),
		SkipLeafCheck:     parseBoolOrDefault("SKIP_LEAF_CHECK", false),
		MaxImageDimension: int(parseIntOrDefault("MAX_IMAGE_DIMENSION", 1024)),

		AzureAccountName: getEnvOrDefault("AZURE_STORAGE_ACCOUNT", ""),
		AzureAccountKey:  getEnvOrDefault("AZURE_STORAGE_KEY", ""),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges of every field.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.InferenceTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, inference=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.InferenceTimeout)
	}
	if c.PredictionMode != ModeModel && c.PredictionMode != ModeDemo {
		return fmt.Errorf("PREDICTION_MODE must be %q or %q (got %q)", ModeModel, ModeDemo, c.PredictionMode)
	}
	if c.PredictionMode == ModeModel && strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("MODEL_PATH is required in %s mode", ModeModel)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 100 {
		return fmt.Errorf("CONFIDENCE_FLOOR must be within [0,100] (got %g)", c.ConfidenceFloor)
	}
	if c.MaxImageDimension < 0 {
		return fmt.Errorf("MAX_IMAGE_DIMENSION must be >= 0 (got %d)", c.MaxImageDimension)
	}
	if c.InferenceThreads < 0 {
		return fmt.Errorf("INFERENCE_THREADS must be >= 0 (got %d)", c.InferenceThreads)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
