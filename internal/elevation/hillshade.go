package elevation

import "math"

// ShadeParams configures the illumination model
type ShadeParams struct {
	AzimuthDeg  float64 // light direction, clockwise from north
	AltitudeDeg float64 // light elevation above the horizon
	ZFactor     float64 // vertical exaggeration
}

// DefaultShadeParams is the conventional northwest illumination
func DefaultShadeParams() ShadeParams {
	return ShadeParams{AzimuthDeg: 315, AltitudeDeg: 45, ZFactor: 1}
}

// Hillshade computes per-cell illumination in [0,1] using Horn's
// slope/aspect estimate over the 3x3 neighborhood. Cells without data,
// or whose neighborhood is incomplete, return ok=false and are left
// transparent by the compositor.
func Hillshade(g *Grid, p ShadeParams) ([]float64, []bool) {
	shade := make([]float64, g.Width*g.Height)
	valid := make([]bool, g.Width*g.Height)

	azimuth := (360 - p.AzimuthDeg + 90) * math.Pi / 180
	zenith := (90 - p.AltitudeDeg) * math.Pi / 180
	cosZenith := math.Cos(zenith)
	sinZenith := math.Sin(zenith)

	cell := g.MetersPerCell
	if cell <= 0 {
		cell = 1
	}

	for y := 1; y < g.Height-1; y++ {
		for x := 1; x < g.Width-1; x++ {
			var n [3][3]float64
			ok := true
			for dy := -1; dy <= 1 && ok; dy++ {
				for dx := -1; dx <= 1; dx++ {
					v, has := g.At(x+dx, y+dy)
					if !has {
						ok = false
						break
					}
					n[dy+1][dx+1] = v
				}
			}
			if !ok {
				continue
			}

			dzdx := ((n[0][2] + 2*n[1][2] + n[2][2]) - (n[0][0] + 2*n[1][0] + n[2][0])) / (8 * cell) * p.ZFactor
			dzdy := ((n[2][0] + 2*n[2][1] + n[2][2]) - (n[0][0] + 2*n[0][1] + n[0][2])) / (8 * cell) * p.ZFactor

			slope := math.Atan(math.Hypot(dzdx, dzdy))

			var aspect float64
			if dzdx != 0 {
				aspect = math.Atan2(dzdy, -dzdx)
				if aspect < 0 {
					aspect += 2 * math.Pi
				}
			} else if dzdy > 0 {
				aspect = math.Pi / 2
			} else if dzdy < 0 {
				aspect = 2*math.Pi - math.Pi/2
			}

			v := cosZenith*math.Cos(slope) + sinZenith*math.Sin(slope)*math.Cos(azimuth-aspect)
			if v < 0 {
				v = 0
			}

			i := y*g.Width + x
			shade[i] = v
			valid[i] = true
		}
	}

	return shade, valid
}
