package factory

import (
	"fmt"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/config"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/inference"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/repository"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/storage"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/strategy"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// StrategyFactory creates prediction strategies
type StrategyFactory interface {
	CreateStrategy(mode string) (strategy.PredictionStrategy, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// strategyFactory implements StrategyFactory
type strategyFactory struct {
	cfg    *config.Config
	loader inference.Loader
}

// NewStrategyFactory creates a strategy factory. The model strategy loads
// the ONNX classifier named by the config.
func NewStrategyFactory(cfg *config.Config) StrategyFactory {
	return NewStrategyFactoryWithLoader(cfg, inference.ONNXLoader(inference.ONNXOptions{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.ONNXLibraryPath,
		Threads:     cfg.InferenceThreads,
	}))
}

// NewStrategyFactoryWithLoader creates a strategy factory with a custom engine loader.
func NewStrategyFactoryWithLoader(cfg *config.Config, loader inference.Loader) StrategyFactory {
	return &strategyFactory{cfg: cfg, loader: loader}
}

// CreateStrategy creates a strategy for the given prediction mode
func (f *strategyFactory) CreateStrategy(mode string) (strategy.PredictionStrategy, error) {
	switch mode {
	case config.ModeModel:
		provider := inference.NewProvider(f.loader)
		return strategy.NewModelPredictionStrategy(provider, f.cfg.InferenceTimeout, f.cfg.ModelPath), nil
	case config.ModeDemo:
		return strategy.NewDemoPredictionStrategy(uint64(f.cfg.DemoSeed)), nil
	default:
		return nil, fmt.Errorf("unsupported prediction mode: %s", mode)
	}
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg       *config.Config
	localRoot string
}

// NewStorageFactory creates a new storage factory. localRoot confines the
// local store; empty allows any path.
func NewStorageFactory(cfg *config.Config, localRoot string) StorageFactory {
	return &storageFactory{cfg: cfg, localRoot: localRoot}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		opts := storage.DefaultHTTPFetcherOptions()
		opts.Timeout = f.cfg.ImageFetchTimeout
		opts.MaxBytes = f.cfg.MaxRequestBodySize
		return storage.NewHTTPImageFetcherWithOptions(opts), nil
	case AzureStorage:
		if !f.cfg.AzureEnabled() {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		return storage.NewAzureStorage(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, f.cfg.MaxRequestBodySize)
	case LocalStorage:
		return storage.NewLocalImageStore(f.localRoot, f.cfg.MaxRequestBodySize), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StrategyFactory StrategyFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config, localRoot string) *ComponentFactory {
	return &ComponentFactory{
		StrategyFactory: NewStrategyFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg, localRoot),
	}
}

// CreateRepository builds a source repository. HTTP is always enabled,
// Azure when credentials are configured and the local store when allowLocal is set.
func (f *ComponentFactory) CreateRepository(cfg *config.Config, allowLocal bool) (repository.ImageRepository, error) {
	var backends repository.Backends
	var err error

	if backends.HTTP, err = f.StorageFactory.CreateStorage(HTTPStorage); err != nil {
		return nil, err
	}
	if cfg.AzureEnabled() {
		if backends.Azure, err = f.StorageFactory.CreateStorage(AzureStorage); err != nil {
			return nil, err
		}
	}
	if allowLocal {
		if backends.Local, err = f.StorageFactory.CreateStorage(LocalStorage); err != nil {
			return nil, err
		}
	}
	return repository.NewSourceRepository(backends), nil
}
