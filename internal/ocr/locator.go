// Package ocr turns captured pixels into positioned text fragments.
package ocr

import (
	"context"
	"image"
)

// Fragment is one recognized word with its box in capture coordinates.
// Fragments keep their recognition order; neighbors in the slice are
// neighbors in reading order.
type Fragment struct {
	Text string
	X    int
	Y    int
	W    int
	H    int
	Conf float64
}

// Locator recognizes text fragments in an image.
type Locator interface {
	Locate(ctx context.Context, img image.Image) ([]Fragment, error)
}
