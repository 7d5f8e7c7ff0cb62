package storage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound marks a local source that does not exist.
var ErrNotFound = errors.New("image not found")

// LocalImageStore reads images from the filesystem, optionally confined to a root.
type LocalImageStore struct {
	root     string
	maxBytes int64
}

// NewLocalImageStore creates a filesystem fetcher. An empty root allows any path.
func NewLocalImageStore(root string, maxBytes int64) *LocalImageStore {
	return &LocalImageStore{root: root, maxBytes: maxBytes}
}

// FetchImage accepts a bare path or a file:// URL.
func (s *LocalImageStore) FetchImage(ctx context.Context, source string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(source)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := DecodeImage(f, s.maxBytes)
	return img, err
}

func (s *LocalImageStore) resolve(source string) (string, error) {
	path := source
	if strings.HasPrefix(strings.ToLower(source), "file://") {
		u, err := url.Parse(source)
		if err != nil {
			return "", fmt.Errorf("invalid file URL: %w", err)
		}
		path = u.Path
	}
	if path == "" {
		return "", errors.New("empty file path")
	}
	if s.root == "" {
		return filepath.Clean(path), nil
	}

	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(root, full)
	}
	full = filepath.Clean(full)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", source, s.root)
	}
	return full, nil
}
