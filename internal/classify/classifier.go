package classify

import (
	"image"

	"github.com/statuswatch/statuswatch/internal/geom"
)

// Indicator color bands on the half-degree hue scale. Green and yellow
// deliberately overlap at 35; the priority order below breaks the tie.
const (
	greenHueLo   = 35
	greenHueHi   = 85
	redLowHueHi  = 10
	redHighHueLo = 160
	yellowHueLo  = 15
	yellowHueHi  = 35

	minSaturation = 80
	minValue      = 80

	grayMaxSaturation = 30
	grayValueLo       = 60
	grayValueHi       = 200
)

// Tuning holds the classifier knobs.
type Tuning struct {
	SampleRadius   int `yaml:"sampleRadius"`   // half-width of the sample window
	MinColorPixels int `yaml:"minColorPixels"` // more than this many pixels to call a color
	MinGrayPixels  int `yaml:"minGrayPixels"`  // more than this many pixels to call offline
}

// DefaultTuning returns the values the classifier was calibrated with.
func DefaultTuning() Tuning {
	return Tuning{SampleRadius: 20, MinColorPixels: 5, MinGrayPixels: 20}
}

// WithDefaults replaces non-positive knobs with their defaults.
func (t Tuning) WithDefaults() Tuning {
	d := DefaultTuning()
	if t.SampleRadius <= 0 {
		t.SampleRadius = d.SampleRadius
	}
	if t.MinColorPixels <= 0 {
		t.MinColorPixels = d.MinColorPixels
	}
	if t.MinGrayPixels <= 0 {
		t.MinGrayPixels = d.MinGrayPixels
	}
	return t
}

// Window returns the sample window around anchor, shifted back inside the
// image when the anchor sits near an edge.
func Window(bounds image.Rectangle, anchor geom.Point, radius int) image.Rectangle {
	size := 2 * radius
	x := max(bounds.Min.X, anchor.X-radius)
	y := max(bounds.Min.Y, anchor.Y-radius)
	x = min(x, bounds.Max.X-size)
	y = min(y, bounds.Max.Y-size)
	return image.Rect(x, y, x+size, y+size).Intersect(bounds)
}

// Classify samples the window around anchor and votes on the status color.
// An empty window is unknown, never an error.
func Classify(img image.Image, anchor geom.Point, t Tuning) Status {
	if img == nil {
		return StatusUnknown
	}
	win := Window(img.Bounds(), anchor, t.SampleRadius)
	if win.Empty() {
		return StatusUnknown
	}

	var green, red, yellow, gray int
	for y := win.Min.Y; y < win.Max.Y; y++ {
		for x := win.Min.X; x < win.Max.X; x++ {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			h, s, v := rgbToHSV(uint8(r16>>8), uint8(g16>>8), uint8(b16>>8))

			colored := s >= minSaturation && v >= minValue
			if colored && h >= greenHueLo && h <= greenHueHi {
				green++
			}
			if colored && (h <= redLowHueHi || h >= redHighHueLo) {
				red++
			}
			if colored && h >= yellowHueLo && h <= yellowHueHi {
				yellow++
			}
			if s <= grayMaxSaturation && v >= grayValueLo && v <= grayValueHi {
				gray++
			}
		}
	}

	switch {
	case green > t.MinColorPixels && green >= red && green >= yellow:
		return StatusGreen
	case red > t.MinColorPixels && red > green && red > yellow:
		return StatusRed
	case yellow > t.MinColorPixels && yellow > green && yellow > red:
		return StatusYellow
	case gray > t.MinGrayPixels:
		return StatusOffline
	default:
		return StatusUnknown
	}
}
