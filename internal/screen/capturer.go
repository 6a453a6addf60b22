// Package screen grabs desktop pixels for detection.
//
// Captures are normalized to zero-origin RGBA images so downstream code
// can treat all coordinates as region-relative. A zero Region selects
// the whole primary display.
package screen

import (
	"context"
	"image"

	"golang.org/x/image/draw"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/geom"
)

// Capturer grabs a rectangular region of the desktop.
type Capturer interface {
	Capture(ctx context.Context, region geom.Region) (*image.RGBA, error)
	Close() error
}

// regionRect validates an explicit capture region. Negative origins are
// legal; multi-display layouts put monitors left of or above the primary
// display's origin, so the platform call decides what it can serve.
func regionRect(region geom.Region) (image.Rectangle, error) {
	if !region.Valid() {
		return image.Rectangle{}, apperrors.Newf(apperrors.CodeCaptureFailed, "invalid capture region %s", region)
	}
	return region.Rect(), nil
}

// toRGBA rebases img to a zero-origin RGBA, copying only when the
// backend handed back something else.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return dst
}
