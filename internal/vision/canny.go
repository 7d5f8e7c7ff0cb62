package vision

import "math"

var (
	tan22 = math.Tan(22.5 * math.Pi / 180)
	tan67 = math.Tan(67.5 * math.Pi / 180)
)

// Canny detects edges on an 8-bit grayscale plane with 3×3 Sobel gradients,
// L1 magnitude, non-maximum suppression and hysteresis between low and high.
// No smoothing is applied; blur beforehand if needed.
func Canny(gray *Plane, low, high float64) *Mask {
	w, h := gray.Width, gray.Height
	if low > high {
		low, high = high, low
	}
	gx, gy := SobelX(gray), SobelY(gray)
	mag := make([]float64, w*h)
	for i := range mag {
		mag[i] = math.Abs(gx.Data[i]) + math.Abs(gy.Data[i])
	}
	at := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				m := mag[i]
				if m <= low {
					continue
				}
				ax, ay := math.Abs(gx.Data[i]), math.Abs(gy.Data[i])
				var isMax bool
				switch {
				case ay < ax*tan22:
					isMax = m > at(x-1, y) && m >= at(x+1, y)
				case ay > ax*tan67:
					isMax = m > at(x, y-1) && m >= at(x, y+1)
				default:
					s := 1
					if (gx.Data[i] < 0) != (gy.Data[i] < 0) {
						s = -1
					}
					isMax = m > at(x-s, y-1) && m > at(x+s, y+1)
				}
				if !isMax {
					continue
				}
				if m > high {
					state[i] = strong
				} else {
					state[i] = weak
				}
			}
		}
	})

	// Hysteresis: grow strong edges through 8-connected weak pixels.
	edges := NewMask(w, h)
	stack := make([]int, 0, 1024)
	for i, s := range state {
		if s == strong && !edges.Bits[i] {
			edges.Bits[i] = true
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := j%w, j/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					n := ny*w + nx
					if state[n] != none && !edges.Bits[n] {
						edges.Bits[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
	}
	return edges
}
