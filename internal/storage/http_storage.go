package storage

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/sirupsen/logrus"
)

// ImageFetcher retrieves and decodes one image from a source.
type ImageFetcher interface {
	FetchImage(ctx context.Context, source string) (image.Image, error)
}

// HTTPFetcherOptions tunes the HTTP fetcher.
type HTTPFetcherOptions struct {
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration // multiplied by the attempt number
	MaxBytes int64
}

// DefaultHTTPFetcherOptions returns 3 attempts with 1s linear backoff.
func DefaultHTTPFetcherOptions() HTTPFetcherOptions {
	return HTTPFetcherOptions{
		Timeout:  15 * time.Second,
		Attempts: 3,
		Backoff:  time.Second,
		MaxBytes: DefaultMaxImageBytes,
	}
}

// HTTPImageFetcher downloads images over HTTP(S), retrying transient failures.
type HTTPImageFetcher struct {
	client *http.Client
	opts   HTTPFetcherOptions
}

// NewHTTPImageFetcher creates an HTTP image fetcher with default options.
func NewHTTPImageFetcher() ImageFetcher {
	return NewHTTPImageFetcherWithOptions(DefaultHTTPFetcherOptions())
}

// NewHTTPImageFetcherWithOptions creates an HTTP image fetcher.
func NewHTTPImageFetcherWithOptions(opts HTTPFetcherOptions) ImageFetcher {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	transport := &http.Transport{
		// Single image downloads, a small idle pool is enough.
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		opts: opts,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// FetchImage downloads and decodes source. Network errors and 5xx responses
// are retried; 4xx responses are not.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, source string) (image.Image, error) {
	var lastErr error

	for attempt := 0; attempt < h.opts.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempt) * h.opts.Backoff):
			}
		}

		img, retry, err := h.fetchOnce(ctx, source)
		if err == nil {
			return img, nil
		}
		lastErr = err
		logger.WithFields(logrus.Fields{
			"source":  source,
			"attempt": attempt + 1,
			"retry":   retry,
		}).WithError(err).Debug("Image fetch attempt failed")
		if !retry {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.opts.Attempts, lastErr)
}

// fetchOnce performs one request. The bool reports whether the failure is retryable.
func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, source string) (image.Image, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, image/tiff, image/bmp, */*")
	req.Header.Set("User-Agent", "Tea-Leaf-Inspector/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	img, _, err := DecodeImage(resp.Body, h.opts.MaxBytes)
	if err != nil {
		return nil, false, err
	}
	return img, false, nil
}
