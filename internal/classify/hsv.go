package classify

import "math"

// rgbToHSV converts 8-bit RGB to the half-degree HSV scale used by the
// indicator bands: H in [0,180], S and V in [0,255].
func rgbToHSV(r, g, b uint8) (h, s, v uint8) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	maxc := math.Max(rf, math.Max(gf, bf))
	minc := math.Min(rf, math.Min(gf, bf))
	diff := maxc - minc

	v = uint8(maxc)
	if maxc > 0 {
		s = uint8(math.Round(255 * diff / maxc))
	}
	if diff == 0 {
		return h, s, v
	}

	var deg float64
	switch maxc {
	case rf:
		deg = 60 * (gf - bf) / diff
	case gf:
		deg = 120 + 60*(bf-rf)/diff
	default:
		deg = 240 + 60*(rf-gf)/diff
	}
	if deg < 0 {
		deg += 360
	}
	h = uint8(math.Round(deg / 2))
	return h, s, v
}
