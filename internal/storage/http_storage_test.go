package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/bmp"
)

func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}
	return img
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(width, height, color.RGBA{60, 140, 50, 255})); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func fastFetcher() ImageFetcher {
	opts := DefaultHTTPFetcherOptions()
	opts.Backoff = 10 * time.Millisecond
	return NewHTTPImageFetcherWithOptions(opts)
}

func TestHTTPImageFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "4xx client error - no retry",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 404},
			expectRetries: 2,
			expectError:   true,
			errorContains: "client error: status code 404",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32
			body := pngBytes(t, 2, 2)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&requestCount, 1)) - 1
				if n >= len(tt.responses) {
					w.WriteHeader(500)
					return
				}
				if status := tt.responses[n]; status != 200 {
					w.WriteHeader(status)
					w.Write([]byte(fmt.Sprintf("Error %d", status)))
					return
				}
				w.Header().Set("Content-Type", "image/png")
				w.Write(body)
			}))
			defer server.Close()

			img, err := fastFetcher().FetchImage(context.Background(), server.URL)

			if int(requestCount) != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, requestCount)
			}
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, but got none")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %s", err.Error())
			}
			if img.Bounds().Dx() != 2 {
				t.Errorf("Expected 2px wide image, got %v", img.Bounds())
			}
		})
	}
}

func TestHTTPImageFetcher_NetworkError_Retry(t *testing.T) {
	var requestCount int32
	body := pngBytes(t, 1, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) < 3 {
			// Drop the connection.
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Write(body)
	}))
	defer server.Close()

	opts := DefaultHTTPFetcherOptions()
	opts.Backoff = 50 * time.Millisecond
	start := time.Now()
	_, err := NewHTTPImageFetcherWithOptions(opts).FetchImage(context.Background(), server.URL)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected success after retries, got error: %s", err.Error())
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
	// Linear backoff: 50ms + 100ms.
	if duration < 150*time.Millisecond {
		t.Errorf("Expected at least 150ms of backoff, took %v", duration)
	}
}

func TestHTTPImageFetcher_CancelDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer server.Close()

	opts := DefaultHTTPFetcherOptions()
	opts.Backoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPImageFetcherWithOptions(opts).FetchImage(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestHTTPImageFetcher_NotAnImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	_, err := fastFetcher().FetchImage(context.Background(), server.URL)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected decode error, got %v", err)
	}
}

func TestDecodeImage(t *testing.T) {
	img, format, err := DecodeImage(bytes.NewReader(pngBytes(t, 4, 3)), 0)
	if err != nil || format != "png" || img.Bounds().Dy() != 3 {
		t.Errorf("Expected 4x3 png, got %v %s %v", img, format, err)
	}

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, createTestImage(5, 5, color.RGBA{10, 200, 10, 255})); err != nil {
		t.Fatalf("bmp encode: %v", err)
	}
	if _, format, err := DecodeImage(&buf, 0); err != nil || format != "bmp" {
		t.Errorf("Expected bmp to decode, got %s %v", format, err)
	}

	big := pngBytes(t, 64, 64)
	if _, _, err := DecodeImage(bytes.NewReader(big), 16); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected size limit error, got %v", err)
	}
}

func TestLocalImageStore(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "leaf.png"), pngBytes(t, 3, 3), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	unrestricted := NewLocalImageStore("", 0)
	for _, src := range []string{filepath.Join(dir, "leaf.png"), "file://" + filepath.Join(dir, "leaf.png")} {
		if _, err := unrestricted.FetchImage(ctx, src); err != nil {
			t.Errorf("Expected %s to load, got %v", src, err)
		}
	}

	rooted := NewLocalImageStore(dir, 0)
	if _, err := rooted.FetchImage(ctx, "leaf.png"); err != nil {
		t.Errorf("Expected relative path under root to load, got %v", err)
	}
	if _, err := rooted.FetchImage(ctx, "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if _, err := rooted.FetchImage(ctx, "../outside.png"); err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Errorf("Expected escape rejection, got %v", err)
	}
}

func TestParseBlobSource(t *testing.T) {
	tests := []struct {
		source    string
		container string
		blob      string
		wantErr   bool
	}{
		{"azure://samples/2024/leaf.jpg", "samples", "2024/leaf.jpg", false},
		{"https://estate.blob.core.windows.net/samples/leaf.jpg", "samples", "leaf.jpg", false},
		{"azure://samples", "", "", true},
	}
	for _, tt := range tests {
		container, blob, err := ParseBlobSource(tt.source)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: unexpected error state %v", tt.source, err)
			continue
		}
		if container != tt.container || blob != tt.blob {
			t.Errorf("%s: got %s/%s", tt.source, container, blob)
		}
	}

	if !IsBlobURL("https://estate.blob.core.windows.net/samples/leaf.jpg") {
		t.Error("Expected blob endpoint to be recognized")
	}
	if IsBlobURL("https://example.com/leaf.jpg") {
		t.Error("Expected plain https URL not to be a blob URL")
	}
}
