// Package calibrate derives and bounds the offset between a matched name
// and its status indicator.
package calibrate

import "github.com/statuswatch/statuswatch/internal/geom"

// Envelope for usable offsets. The indicator sits left of the name and
// roughly on the same line; anything outside this box is a misclick or a
// stale profile value.
const (
	MinDX = -100
	MaxDX = -20
	MinDY = -20
	MaxDY = 30
)

// Click sanity limits. Beyond these the click was nowhere near an
// indicator and only the direction is kept.
const (
	maxClickDX = 150
	maxClickDY = 50
)

// Offset is the indicator position relative to the matched name's top-left.
type Offset struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// DefaultOffset returns the offset that fits the common sidebar layout.
func DefaultOffset() Offset { return Offset{DX: -40, DY: 5} }

// FallbackOffset is applied when a calibration click lands right of the
// name, where no indicator can be.
func FallbackOffset() Offset { return Offset{DX: -50, DY: 10} }

// Clamp pulls an offset into the envelope.
func (o Offset) Clamp() Offset {
	return Offset{
		DX: max(MinDX, min(MaxDX, o.DX)),
		DY: max(MinDY, min(MaxDY, o.DY)),
	}
}

// Note reports which branch a calibration click took.
type Note string

const (
	NoteStored   Note = "stored"   // offset taken exactly as clicked
	NoteClamped  Note = "clamped"  // click far from the name, pulled into the envelope
	NoteFallback Note = "fallback" // click right of the name, standard offset applied
)

// ProcessClick turns a calibration click into an offset. click and name are
// in the same coordinate space (capture-relative). Offsets from plausible
// clicks are stored verbatim even outside the envelope; the classifier
// clamps at sample time.
func ProcessClick(click, name geom.Point) (Offset, Note) {
	raw := Offset{DX: click.X - name.X, DY: click.Y - name.Y}

	if raw.DX > 0 {
		return FallbackOffset(), NoteFallback
	}
	if abs(raw.DX) > maxClickDX || abs(raw.DY) > maxClickDY {
		return raw.Clamp(), NoteClamped
	}
	return raw, NoteStored
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
