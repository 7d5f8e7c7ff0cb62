//go:build !gocv

package preprocess

// DefaultFilters returns the pure-Go backend. Build with -tags gocv to use OpenCV.
func DefaultFilters() Filters {
	return NewNativeFilters()
}
