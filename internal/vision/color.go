package vision

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color planes use OpenCV's 8-bit conventions so that thresholds written
// against cv2 carry over unchanged:
//   HSV: H in [0,180), S and V in [0,255]
//   Lab: L scaled to [0,255], a and b offset by 128

// Gray converts to luma with BT.601 weights, rounded to 8 bits.
func Gray(f *Frame) *Plane {
	p := NewPlane(f.Width, f.Height)
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+1 {
		p.Data[j] = Saturate8(0.299*float64(f.Pix[i]) + 0.587*float64(f.Pix[i+1]) + 0.114*float64(f.Pix[i+2]))
	}
	return p
}

// HSV holds the three hue/saturation/value planes of a frame.
type HSV struct {
	H, S, V *Plane
}

// ToHSV converts a frame to 8-bit OpenCV HSV.
func ToHSV(f *Frame) HSV {
	out := HSV{
		H: NewPlane(f.Width, f.Height),
		S: NewPlane(f.Width, f.Height),
		V: NewPlane(f.Width, f.Height),
	}
	parallelRows(f.Height, func(y0, y1 int) {
		for j := y0 * f.Width; j < y1*f.Width; j++ {
			i := j * 3
			h, s, v := HSV8(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
			out.H.Data[j] = h
			out.S.Data[j] = s
			out.V.Data[j] = v
		}
	})
	return out
}

// HSV8 converts one RGB pixel to 8-bit OpenCV HSV.
func HSV8(r, g, b uint8) (h, s, v float64) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	hd, sf, vf := c.Hsv()
	h = math.Round(hd / 2)
	if h >= 180 {
		h -= 180
	}
	return h, Saturate8(sf * 255), Saturate8(vf * 255)
}

// Lab holds the three CIELab planes of a frame in 8-bit scaling.
type Lab struct {
	L, A, B *Plane
}

// ToLab converts a frame to 8-bit OpenCV CIELab (D65, sRGB companding).
func ToLab(f *Frame) Lab {
	out := Lab{
		L: NewPlane(f.Width, f.Height),
		A: NewPlane(f.Width, f.Height),
		B: NewPlane(f.Width, f.Height),
	}
	parallelRows(f.Height, func(y0, y1 int) {
		for j := y0 * f.Width; j < y1*f.Width; j++ {
			i := j * 3
			l, a, b := Lab8(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
			out.L.Data[j] = l
			out.A.Data[j] = a
			out.B.Data[j] = b
		}
	})
	return out
}

// Lab8 converts one RGB pixel to 8-bit OpenCV Lab.
func Lab8(r, g, b uint8) (l, a, bb float64) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	lf, af, bf := c.Lab()
	return Saturate8(lf * 255), Saturate8(af*100 + 128), Saturate8(bf*100 + 128)
}

// FromLab rebuilds an RGB frame from 8-bit Lab planes. Out-of-gamut colors are clamped.
func FromLab(lab Lab) *Frame {
	w, h := lab.L.Width, lab.L.Height
	f := NewFrame(w, h)
	parallelRows(h, func(y0, y1 int) {
		for j := y0 * w; j < y1*w; j++ {
			c := colorful.Lab(lab.L.Data[j]/255, (lab.A.Data[j]-128)/100, (lab.B.Data[j]-128)/100).Clamped()
			i := j * 3
			f.Pix[i] = uint8(Saturate8(c.R * 255))
			f.Pix[i+1] = uint8(Saturate8(c.G * 255))
			f.Pix[i+2] = uint8(Saturate8(c.B * 255))
		}
	})
	return f
}

// InRange marks pixels whose HSV triple lies inside [lo, hi] on every channel, inclusive.
func InRange(hsv HSV, lo, hi [3]float64) *Mask {
	m := NewMask(hsv.H.Width, hsv.H.Height)
	for i := range m.Bits {
		h, s, v := hsv.H.Data[i], hsv.S.Data[i], hsv.V.Data[i]
		m.Bits[i] = h >= lo[0] && h <= hi[0] &&
			s >= lo[1] && s <= hi[1] &&
			v >= lo[2] && v <= hi[2]
	}
	return m
}
