package analyzer

import (
	"runtime"
	"sync"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/vision"
	"gonum.org/v1/gonum/stat"
)

// metricsCalculator implements MetricsCalculator with Gonum statistics
type metricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{}
}

// CalculateLaplacianVariance computes the population variance of the
// 4-neighbour Laplacian, the usual sharpness proxy.
func (mc *metricsCalculator) CalculateLaplacianVariance(gray *vision.Plane) float64 {
	if gray == nil || len(gray.Data) == 0 {
		return 0
	}
	return stat.PopVariance(vision.Laplacian(gray).Data, nil)
}

// CalculateContrast computes the population standard deviation of gray levels
func (mc *metricsCalculator) CalculateContrast(gray *vision.Plane) float64 {
	if gray == nil || len(gray.Data) == 0 {
		return 0
	}
	return stat.PopStdDev(gray.Data, nil)
}

// CalculateBrightness computes average brightness with parallel processing
func (mc *metricsCalculator) CalculateBrightness(gray *vision.Plane) float64 {
	if gray == nil || len(gray.Data) == 0 {
		return 0
	}
	width, height := gray.Width, gray.Height

	// For small images, use simple sequential processing
	if width*height < 100000 {
		return stat.Mean(gray.Data, nil)
	}

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	results := make(chan float64, numWorkers)
	var wg sync.WaitGroup

	for startY := 0; startY < height; startY += rowsPerWorker {
		endY := startY + rowsPerWorker
		if endY > height {
			endY = height
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()

			var total float64
			for _, v := range gray.Data[startY*width : endY*width] {
				total += v
			}
			results <- total
		}(startY, endY)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var totalBrightness float64
	for brightness := range results {
		totalBrightness += brightness
	}

	return totalBrightness / float64(width*height)
}
