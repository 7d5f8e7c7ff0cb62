package vision

import "math"

// Small Gaussian kernels OpenCV uses when sigma is not given.
var fixedGaussian = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// GaussianKernel returns a normalized 1-D kernel of odd length ksize.
// sigma <= 0 derives sigma from ksize the way cv2.getGaussianKernel does.
func GaussianKernel(ksize int, sigma float64) []float64 {
	if sigma <= 0 {
		if k, ok := fixedGaussian[ksize]; ok {
			out := make([]float64, len(k))
			copy(out, k)
			return out
		}
		sigma = 0.3*(float64(ksize-1)*0.5-1) + 0.8
	}
	k := make([]float64, ksize)
	c := float64(ksize-1) / 2
	var sum float64
	for i := range k {
		d := float64(i) - c
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// SepFilter correlates p with rowKernel horizontally, then colKernel vertically,
// reflecting at the borders.
func SepFilter(p *Plane, rowKernel, colKernel []float64) *Plane {
	w, h := p.Width, p.Height
	tmp := NewPlane(w, h)
	rc := len(rowKernel) / 2
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := p.Data[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				var acc float64
				for k, kv := range rowKernel {
					acc += kv * row[reflect101(x+k-rc, w)]
				}
				tmp.Data[y*w+x] = acc
			}
		}
	})

	out := NewPlane(w, h)
	cc := len(colKernel) / 2
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				var acc float64
				for k, kv := range colKernel {
					acc += kv * tmp.Data[reflect101(y+k-cc, h)*w+x]
				}
				out.Data[y*w+x] = acc
			}
		}
	})
	return out
}

// GaussianBlur smooths p with a square ksize×ksize Gaussian.
func GaussianBlur(p *Plane, ksize int, sigma float64) *Plane {
	k := GaussianKernel(ksize, sigma)
	return SepFilter(p, k, k)
}

var (
	sobelDiff   = []float64{-1, 0, 1}
	sobelSmooth = []float64{1, 2, 1}
)

// SobelX is the 3×3 horizontal derivative.
func SobelX(p *Plane) *Plane {
	return SepFilter(p, sobelDiff, sobelSmooth)
}

// SobelY is the 3×3 vertical derivative.
func SobelY(p *Plane) *Plane {
	return SepFilter(p, sobelSmooth, sobelDiff)
}

// GradientMagnitude returns sqrt(gx² + gy²) of the 3×3 Sobel derivatives.
func GradientMagnitude(p *Plane) *Plane {
	gx, gy := SobelX(p), SobelY(p)
	out := NewPlane(p.Width, p.Height)
	for i := range out.Data {
		out.Data[i] = math.Hypot(gx.Data[i], gy.Data[i])
	}
	return out
}

// Laplacian applies the 4-neighbour kernel [0 1 0; 1 -4 1; 0 1 0].
func Laplacian(p *Plane) *Plane {
	w, h := p.Width, p.Height
	out := NewPlane(w, h)
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			up := reflect101(y-1, h) * w
			down := reflect101(y+1, h) * w
			for x := 0; x < w; x++ {
				left := reflect101(x-1, w)
				right := reflect101(x+1, w)
				out.Data[y*w+x] = p.Data[up+x] + p.Data[down+x] +
					p.Data[y*w+left] + p.Data[y*w+right] - 4*p.Data[y*w+x]
			}
		}
	})
	return out
}
