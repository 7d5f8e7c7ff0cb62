package vision

import "math"

// CLAHE performs contrast-limited adaptive histogram equalization on an
// 8-bit plane using tilesX×tilesY context regions, following OpenCV:
// the plane is reflect-padded to a whole number of tiles, each tile
// histogram is clipped at clipLimit×area/256 with the excess spread evenly,
// and output values are bilinearly interpolated between tile mappings.
func CLAHE(p *Plane, clipLimit float64, tilesX, tilesY int) *Plane {
	w, h := p.Width, p.Height
	if tilesX <= 0 || tilesY <= 0 || w == 0 || h == 0 {
		return p.Clone()
	}
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY
	tileArea := tileW * tileH

	limit := 0
	if clipLimit > 0 {
		limit = int(clipLimit * float64(tileArea) / 256)
		if limit < 1 {
			limit = 1
		}
	}
	lutScale := 255.0 / float64(tileArea)

	luts := make([][256]float64, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			var hist [256]int
			for y := ty * tileH; y < (ty+1)*tileH; y++ {
				for x := tx * tileW; x < (tx+1)*tileW; x++ {
					hist[int(Saturate8(p.AtReflect(x, y)))]++
				}
			}

			if limit > 0 {
				clipped := 0
				for i := range hist {
					if hist[i] > limit {
						clipped += hist[i] - limit
						hist[i] = limit
					}
				}
				batch := clipped / 256
				residual := clipped - batch*256
				for i := range hist {
					hist[i] += batch
				}
				if residual > 0 {
					step := 256 / residual
					if step < 1 {
						step = 1
					}
					for i := 0; i < 256 && residual > 0; i += step {
						hist[i]++
						residual--
					}
				}
			}

			lut := &luts[ty*tilesX+tx]
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = Saturate8(float64(sum) * lutScale)
			}
		}
	}

	out := NewPlane(w, h)
	invTW, invTH := 1/float64(tileW), 1/float64(tileH)
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			tyf := float64(y)*invTH - 0.5
			ty1 := int(math.Floor(tyf))
			ty2 := ty1 + 1
			ya := tyf - float64(ty1)
			ya1 := 1 - ya
			if ty1 < 0 {
				ty1 = 0
			}
			if ty2 >= tilesY {
				ty2 = tilesY - 1
			}
			for x := 0; x < w; x++ {
				txf := float64(x)*invTW - 0.5
				tx1 := int(math.Floor(txf))
				tx2 := tx1 + 1
				xa := txf - float64(tx1)
				xa1 := 1 - xa
				if tx1 < 0 {
					tx1 = 0
				}
				if tx2 >= tilesX {
					tx2 = tilesX - 1
				}
				v := int(Saturate8(p.Data[y*w+x]))
				top := luts[ty1*tilesX+tx1][v]*xa1 + luts[ty1*tilesX+tx2][v]*xa
				bottom := luts[ty2*tilesX+tx1][v]*xa1 + luts[ty2*tilesX+tx2][v]*xa
				out.Data[y*w+x] = Saturate8(top*ya1 + bottom*ya)
			}
		}
	})
	return out
}
