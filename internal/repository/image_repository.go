package repository

import (
	"context"
	"fmt"
	"image"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/storage"
	"github.com/anime-shed/tea-leaf-inspector-go/pkg/validation"
)

// Backends groups the fetchers a repository can route to. Nil entries
// disable their scheme.
type Backends struct {
	HTTP  storage.ImageFetcher
	Azure storage.ImageFetcher
	Local storage.ImageFetcher
}

// SourceRepository routes each source to the fetcher for its scheme.
type SourceRepository struct {
	backends  Backends
	validator *validation.URLValidator
}

// NewSourceRepository creates a repository. Allowed schemes follow the
// configured backends.
func NewSourceRepository(backends Backends) ImageRepository {
	var schemes []string
	if backends.HTTP != nil || backends.Azure != nil {
		schemes = append(schemes, validation.SchemeHTTP, validation.SchemeHTTPS)
	}
	if backends.Azure != nil {
		schemes = append(schemes, validation.SchemeAzure)
	}
	if backends.Local != nil {
		schemes = append(schemes, validation.SchemeFile)
	}
	return &SourceRepository{
		backends:  backends,
		validator: validation.NewURLValidatorWithOptions(schemes, nil),
	}
}

// FetchImage validates source and fetches it through the matching backend.
func (r *SourceRepository) FetchImage(ctx context.Context, source string) (image.Image, error) {
	if err := r.ValidateImageURL(source); err != nil {
		return nil, err
	}
	fetcher, err := r.route(source)
	if err != nil {
		return nil, classify(err)
	}

	img, err := fetcher.FetchImage(ctx, source)
	if err != nil {
		logger.WithField("source", source).WithError(err).Warn("Image fetch failed")
		return nil, classify(err)
	}
	return img, nil
}

// ValidateImageURL validates if the provided source is acceptable
func (r *SourceRepository) ValidateImageURL(source string) error {
	return r.validator.ValidateImageURL(source)
}

func (r *SourceRepository) route(source string) (storage.ImageFetcher, error) {
	u, err := validation.ParseSource(source)
	if err != nil {
		return nil, err
	}
	var fetcher storage.ImageFetcher
	switch u.Scheme {
	case validation.SchemeAzure:
		fetcher = r.backends.Azure
	case validation.SchemeFile:
		fetcher = r.backends.Local
	case validation.SchemeHTTPS:
		if r.backends.Azure != nil && storage.IsBlobURL(source) {
			fetcher = r.backends.Azure
		} else {
			fetcher = r.backends.HTTP
		}
	case validation.SchemeHTTP:
		fetcher = r.backends.HTTP
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, u.Scheme)
	}
	return fetcher, nil
}
