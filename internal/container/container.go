package container

import (
	"fmt"
	"net/http"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/config"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/factory"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/observer"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/repository"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/service"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/strategy"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/transport"
	"github.com/sirupsen/logrus"
)

// Options select which surfaces the container enables.
type Options struct {
	// AllowLocal enables file:// and bare-path sources. The HTTP API leaves it off.
	AllowLocal bool
	// LocalRoot confines local sources; empty allows any path.
	LocalRoot string
	// StrategyFactory overrides the config-driven strategy factory.
	StrategyFactory factory.StrategyFactory
}

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	imageRepository  repository.ImageRepository
	predictor        *strategy.PredictionContext
	metrics          *observer.MetricsObserver
	diagnosisService service.DiagnosisService
	handler          http.Handler
}

// NewContainer builds the dependency graph from cfg
func NewContainer(cfg *config.Config, opts Options) (*Container, error) {
	components := factory.NewComponentFactory(cfg, opts.LocalRoot)
	if opts.StrategyFactory != nil {
		components.StrategyFactory = opts.StrategyFactory
	}

	imageRepository, err := components.CreateRepository(cfg, opts.AllowLocal)
	if err != nil {
		return nil, fmt.Errorf("failed to create image repository: %w", err)
	}

	predictionStrategy, err := components.StrategyFactory.CreateStrategy(cfg.PredictionMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction strategy: %w", err)
	}
	predictor := strategy.NewPredictionContext(predictionStrategy)

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	diagnosisService := service.NewDiagnosisService(
		imageRepository,
		service.DefaultStages(predictor, cfg.ConfidenceFloor),
		service.Options{
			EnforceQuality:    cfg.EnforceQuality,
			SkipLeafCheck:     cfg.SkipLeafCheck,
			MaxImageDimension: cfg.MaxImageDimension,
		},
		publisher,
	)

	logger.WithFields(logrus.Fields{
		"mode":            cfg.PredictionMode,
		"model_path":      cfg.ModelPath,
		"floor":           cfg.ConfidenceFloor,
		"enforce_quality": cfg.EnforceQuality,
		"skip_leaf_check": cfg.SkipLeafCheck,
		"azure":           cfg.AzureEnabled(),
		"local_sources":   opts.AllowLocal,
	}).Info("Components initialized")

	return &Container{
		config:           cfg,
		imageRepository:  imageRepository,
		predictor:        predictor,
		metrics:          metrics,
		diagnosisService: diagnosisService,
		handler:          transport.NewHandler(diagnosisService, metrics, cfg),
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the diagnosis service
func (c *Container) Service() service.DiagnosisService {
	return c.diagnosisService
}

// Metrics returns the metrics observer
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close releases the classifier session, if one was loaded.
func (c *Container) Close() error {
	return c.predictor.Close()
}
