package vision

import (
	"fmt"
	"math"
)

// NonLocalMeans denoises co-registered 8-bit channels jointly. Every output
// pixel is the weighted mean of the pixels in a search×search window, each
// weighted by exp(-d/(h²·channels)) where d is the mean squared difference
// between the template×template patches around the two pixels. Weights
// below 0.001 are discarded.
func NonLocalMeans(channels []*Plane, h float64, template, search int) ([]*Plane, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels to denoise")
	}
	w, ht := channels[0].Width, channels[0].Height
	for _, c := range channels[1:] {
		if c.Width != w || c.Height != ht {
			return nil, fmt.Errorf("channel size %dx%d differs from %dx%d", c.Width, c.Height, w, ht)
		}
	}
	if template%2 == 0 || search%2 == 0 || template < 1 || search < 1 {
		return nil, fmt.Errorf("window sizes must be odd and positive (template=%d, search=%d)", template, search)
	}
	if h <= 0 {
		out := make([]*Plane, len(channels))
		for i, c := range channels {
			out[i] = c.Clone()
		}
		return out, nil
	}

	tr, sr := template/2, search/2
	area := float64(template * template)
	denom := h * h * float64(len(channels))

	out := make([]*Plane, len(channels))
	for i := range out {
		out[i] = NewPlane(w, ht)
	}

	parallelRows(ht, func(y0, y1 int) {
		rows := y1 - y0
		// Patch sums need tr extra rows/columns on each side of the strip.
		bw, bh := w+2*tr, rows+2*tr
		diff := make([]float64, bw*bh)
		integral := make([]float64, (bw+1)*(bh+1))
		weightSum := make([]float64, w*rows)
		acc := make([][]float64, len(channels))
		for c := range acc {
			acc[c] = make([]float64, w*rows)
		}

		for dy := -sr; dy <= sr; dy++ {
			for dx := -sr; dx <= sr; dx++ {
				for by := 0; by < bh; by++ {
					y := reflect101(y0+by-tr, ht)
					yn := reflect101(y0+by-tr+dy, ht)
					for bx := 0; bx < bw; bx++ {
						x := reflect101(bx-tr, w)
						xn := reflect101(bx-tr+dx, w)
						var d float64
						for _, c := range channels {
							v := c.Data[y*w+x] - c.Data[yn*w+xn]
							d += v * v
						}
						diff[by*bw+bx] = d
					}
				}

				for by := 0; by < bh; by++ {
					var rowSum float64
					for bx := 0; bx < bw; bx++ {
						rowSum += diff[by*bw+bx]
						integral[(by+1)*(bw+1)+bx+1] = integral[by*(bw+1)+bx+1] + rowSum
					}
				}

				for ry := 0; ry < rows; ry++ {
					yn := reflect101(y0+ry+dy, ht)
					for x := 0; x < w; x++ {
						// Patch centred at (x, ry) spans [x, x+template) in buffer coordinates.
						x0, yb0 := x, ry
						x1, yb1 := x+template, ry+template
						ssd := integral[yb1*(bw+1)+x1] - integral[yb0*(bw+1)+x1] -
							integral[yb1*(bw+1)+x0] + integral[yb0*(bw+1)+x0]
						wt := math.Exp(-(ssd / area) / denom)
						if wt < 0.001 {
							continue
						}
						xn := reflect101(x+dx, w)
						k := ry*w + x
						weightSum[k] += wt
						for c, ch := range channels {
							acc[c][k] += wt * ch.Data[yn*w+xn]
						}
					}
				}
			}
		}

		for ry := 0; ry < rows; ry++ {
			for x := 0; x < w; x++ {
				k := ry*w + x
				dst := (y0+ry)*w + x
				for c, ch := range channels {
					if weightSum[k] == 0 {
						out[c].Data[dst] = ch.Data[dst]
						continue
					}
					out[c].Data[dst] = Saturate8(acc[c][k] / weightSum[k])
				}
			}
		}
	})
	return out, nil
}
