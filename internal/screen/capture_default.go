//go:build !darwin

package screen

import (
	"context"
	"image"

	"github.com/vova616/screenshot"

	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/geom"
)

type grabCapturer struct{}

// New creates the platform screen capturer.
func New() Capturer {
	return &grabCapturer{}
}

func (g *grabCapturer) Capture(ctx context.Context, region geom.Region) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if region.IsZero() {
		img, err := screenshot.CaptureScreen()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "capture display")
		}
		return toRGBA(img), nil
	}

	r, err := regionRect(region)
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCaptureFailed, "capture region")
	}
	return toRGBA(img), nil
}

func (g *grabCapturer) Close() error { return nil }
