package vision

import (
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Plane is a single-channel float grid. Planes derived from 8-bit data keep
// the 0..255 scale.
type Plane struct {
	Width  int
	Height int
	Data   []float64
}

// NewPlane allocates a zero-filled plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Data: make([]float64, width*height)}
}

func (p *Plane) At(x, y int) float64 {
	return p.Data[y*p.Width+x]
}

func (p *Plane) Set(x, y int, v float64) {
	p.Data[y*p.Width+x] = v
}

// AtReflect reads with BORDER_REFLECT_101 semantics for out-of-range coordinates.
func (p *Plane) AtReflect(x, y int) float64 {
	return p.Data[reflect101(y, p.Height)*p.Width+reflect101(x, p.Width)]
}

func (p *Plane) Clone() *Plane {
	cp := NewPlane(p.Width, p.Height)
	copy(cp.Data, p.Data)
	return cp
}

// Round8 rounds every value and saturates it to 0..255, as an 8-bit store would.
func (p *Plane) Round8() *Plane {
	out := NewPlane(p.Width, p.Height)
	for i, v := range p.Data {
		out.Data[i] = Saturate8(v)
	}
	return out
}

// Abs returns |p|.
func (p *Plane) Abs() *Plane {
	out := NewPlane(p.Width, p.Height)
	for i, v := range p.Data {
		out.Data[i] = math.Abs(v)
	}
	return out
}

// Clip bounds every value to [lo, hi].
func (p *Plane) Clip(lo, hi float64) *Plane {
	out := NewPlane(p.Width, p.Height)
	for i, v := range p.Data {
		out.Data[i] = math.Min(math.Max(v, lo), hi)
	}
	return out
}

// MinMax returns the extreme values. An empty plane yields (0, 0).
func (p *Plane) MinMax() (float64, float64) {
	if len(p.Data) == 0 {
		return 0, 0
	}
	return floats.Min(p.Data), floats.Max(p.Data)
}

// Saturate8 rounds half away from zero and clamps to the 8-bit range.
func Saturate8(v float64) float64 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return r
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// parallelRows splits [0, height) into one horizontal strip per CPU.
func parallelRows(height int, fn func(y0, y1 int)) {
	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	if numWorkers <= 1 {
		fn(0, height)
		return
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < height; start += rowsPerWorker {
		end := start + rowsPerWorker
		if end > height {
			end = height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(start, end)
	}
	wg.Wait()
}
