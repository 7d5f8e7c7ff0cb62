package repository

import (
	"context"
	"image"
)

// ImageRepository resolves an image source to a decoded image.
type ImageRepository interface {
	// FetchImage retrieves an image from a source
	FetchImage(ctx context.Context, source string) (image.Image, error)

	// ValidateImageURL validates if the provided source is acceptable
	ValidateImageURL(source string) error
}
