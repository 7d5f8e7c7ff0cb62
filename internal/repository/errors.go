package repository

import (
	"context"
	"errors"

	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/storage"
)

var (
	// ErrSourceUnavailable indicates no backend is configured for a source scheme
	ErrSourceUnavailable = errors.New("image source unavailable")
)

// classify converts a storage error to an AppError.
func classify(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.NewNotFoundError("Image not found", err)
	case errors.Is(err, storage.ErrDecode):
		return apperrors.NewValidationError("Source is not a supported image", err)
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.NewValidationError("Image exceeds the size limit", err)
	case errors.Is(err, ErrSourceUnavailable):
		return apperrors.NewValidationError("Image source is not configured", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("Image fetch timed out", err)
	default:
		return apperrors.NewNetworkError("Failed to fetch image", err)
	}
}
