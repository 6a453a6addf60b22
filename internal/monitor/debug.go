package monitor

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/statuswatch/statuswatch/internal/classify"
	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/geom"
	"github.com/statuswatch/statuswatch/internal/match"
)

// Debug artifact names, overwritten on each dump.
const (
	debugSampleFile = "debug_sample.png"
	debugFrameFile  = "debug_frame.png"
)

// dumpDebug writes the color-sampling window and an annotated copy of
// the frame (name box in green, sample window in red) into the data
// directory.
func (l *Loop) dumpDebug(frame *image.RGBA, m match.Match, anchor geom.Point) error {
	dir := l.dataDir
	if dir == "" {
		dir = "."
	}

	window := classify.Window(frame.Bounds(), anchor, l.tuning.Classifier.SampleRadius)
	if err := writePNG(filepath.Join(dir, debugSampleFile), frame.SubImage(window)); err != nil {
		return err
	}

	annotated := image.NewRGBA(frame.Bounds())
	draw.Copy(annotated, frame.Bounds().Min, frame, frame.Bounds(), draw.Src, nil)
	outline(annotated, image.Rect(m.X, m.Y, m.X+m.W, m.Y+m.H), color.RGBA{G: 255, A: 255})
	outline(annotated, window, color.RGBA{R: 255, A: 255})
	return writePNG(filepath.Join(dir, debugFrameFile), annotated)
}

// outline draws a one-pixel rectangle border.
func outline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "create debug file")
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "encode debug png")
	}
	return nil
}
