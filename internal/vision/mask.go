package vision

// Mask is a binary pixel grid.
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask allocates a mask with every pixel cleared.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Not returns the complement.
func (m *Mask) Not() *Mask {
	out := NewMask(m.Width, m.Height)
	for i, b := range m.Bits {
		out.Bits[i] = !b
	}
	return out
}

// Or returns the union of m and others.
func (m *Mask) Or(others ...*Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	copy(out.Bits, m.Bits)
	for _, o := range others {
		for i, b := range o.Bits {
			out.Bits[i] = out.Bits[i] || b
		}
	}
	return out
}

// And returns the intersection of m and o.
func (m *Mask) And(o *Mask) *Mask {
	out := NewMask(m.Width, m.Height)
	for i := range m.Bits {
		out.Bits[i] = m.Bits[i] && o.Bits[i]
	}
	return out
}

// Select returns the plane values at set pixels.
func (m *Mask) Select(p *Plane) []float64 {
	out := make([]float64, 0, m.Count())
	for i, b := range m.Bits {
		if b {
			out = append(out, p.Data[i])
		}
	}
	return out
}
