package monitor

import (
	"context"
	"log/slog"
	"strings"

	"github.com/statuswatch/statuswatch/internal/calibrate"
	"github.com/statuswatch/statuswatch/internal/config"
	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/geom"
	"github.com/statuswatch/statuswatch/internal/match"
	"github.com/statuswatch/statuswatch/internal/trace"
)

// CalibrateClick derives a status offset from a click on the indicator
// dot, given in absolute screen coordinates, and persists it. The name
// must be visible: calibration never runs against a cached match.
func (l *Loop) CalibrateClick(ctx context.Context, click geom.Point) (calibrate.Offset, calibrate.Note, error) {
	ctx, span := trace.StartSpan(ctx, "calibrate_click")
	defer span.End()
	span.SetAttr("click_x", click.X)
	span.SetAttr("click_y", click.Y)

	p := l.store.Snapshot()
	if strings.TrimSpace(p.TargetPerson) == "" {
		return calibrate.Offset{}, "", apperrors.New(apperrors.CodeCalibration, "no target person configured")
	}

	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()

	frame, err := l.capturer.Capture(ctx, p.Region)
	if err != nil {
		return calibrate.Offset{}, "", apperrors.Wrap(err, apperrors.CodeCalibration, "calibration capture")
	}

	l.recognizer.Configure(p.TesseractPath, p.OCRLangs, l.tuning.OCR.Scale)
	frags, err := l.recognizer.Locate(ctx, frame)
	if err != nil {
		return calibrate.Offset{}, "", err
	}
	m, ok := match.Find(frags, p.TargetPerson, l.tuning.Matcher)
	if !ok {
		return calibrate.Offset{}, "", apperrors.Newf(apperrors.CodeCalibration, "%s not found on screen", p.TargetPerson)
	}

	rel := p.Region.ToRelative(click)
	off, note := calibrate.ProcessClick(rel, geom.Point{X: m.X, Y: m.Y})

	if _, err := l.store.Update(func(prof *config.Profile) {
		prof.OffsetX = off.DX
		prof.OffsetY = off.DY
		prof.CalibMode = config.CalibModeOffset
		prof.CalibPoint = geom.Point{}
	}); err != nil {
		return calibrate.Offset{}, "", err
	}

	trace.Logger(ctx).Info("calibration stored", "dx", off.DX, "dy", off.DY, "note", note)
	return off, note, nil
}

// CalibratePoint pins sampling to a fixed point in absolute screen
// coordinates and switches to point mode. The point must lie inside the
// configured region.
func (l *Loop) CalibratePoint(pt geom.Point) error {
	p := l.store.Snapshot()
	if !p.Region.IsZero() && !p.Region.Contains(pt) {
		return apperrors.Newf(apperrors.CodeCalibration, "point (%d,%d) outside region %s", pt.X, pt.Y, p.Region)
	}

	rel := p.Region.ToRelative(pt)
	_, err := l.store.Update(func(prof *config.Profile) {
		prof.CalibMode = config.CalibModePoint
		prof.CalibPoint = rel
	})
	if err == nil {
		slog.Info("point calibration stored", "x", rel.X, "y", rel.Y)
	}
	return err
}
