package inference

import (
	"sync"

	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
)

// Loader builds an engine. It is called at most once per Provider.
type Loader func() (Engine, error)

// Provider owns the process-wide classifier handle. The engine is loaded
// lazily on first use; a load failure is kept and returned on every call.
type Provider struct {
	load Loader

	once   sync.Once
	engine Engine
	err    error

	mu     sync.Mutex
	closed bool
}

// NewProvider creates a provider that loads its engine on first use
func NewProvider(load Loader) *Provider {
	return &Provider{load: load}
}

// Engine returns the loaded engine or a model_unavailable error.
func (p *Provider) Engine() (Engine, error) {
	p.once.Do(func() {
		engine, err := p.load()
		if err != nil {
			p.err = apperrors.NewModelUnavailableError("Classifier could not be loaded", err)
			logger.WithError(err).Error("Failed to load classifier")
			return
		}
		p.engine = engine
		logger.WithField("inputs", len(engine.Inputs())).Info("Classifier loaded")
	})

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, apperrors.NewModelUnavailableError("Classifier has been shut down", nil)
	}
	return p.engine, p.err
}

// Close releases the engine if it was loaded.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.engine != nil {
		return p.engine.Close()
	}
	return nil
}
