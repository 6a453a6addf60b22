package monitor

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/statuswatch/statuswatch/internal/calibrate"
	"github.com/statuswatch/statuswatch/internal/classify"
	"github.com/statuswatch/statuswatch/internal/config"
	"github.com/statuswatch/statuswatch/internal/geom"
	"github.com/statuswatch/statuswatch/internal/history"
	"github.com/statuswatch/statuswatch/internal/match"
	"github.com/statuswatch/statuswatch/internal/metrics"
	"github.com/statuswatch/statuswatch/internal/trace"
)

// DetectOnce runs a single detection outside the loop, without touching
// the notification path. With debug set, the sampled window and an
// annotated frame are written to the data directory.
func (l *Loop) DetectOnce(ctx context.Context, debug bool) history.Entry {
	ctx, span := trace.StartSpan(ctx, "detect_once")
	defer span.End()

	p := l.store.Snapshot()

	l.cycleMu.Lock()
	entry := l.detect(ctx, p, false, debug)
	l.cycleMu.Unlock()

	l.record(entry)
	return entry
}

// detect runs one full pipeline pass. Callers hold cycleMu.
func (l *Loop) detect(ctx context.Context, p config.Profile, allowNotify, debug bool) history.Entry {
	log := trace.Logger(ctx)
	entry := history.Entry{
		Time:   time.Now(),
		Person: p.TargetPerson,
		Status: classify.StatusUnknown,
	}

	if strings.TrimSpace(p.TargetPerson) == "" {
		entry.Err = "no target person configured"
		metrics.RecordFailure("config")
		return entry
	}

	// A target change makes the cached match meaningless.
	if p.TargetPerson != l.lastTarget {
		l.lastTarget = p.TargetPerson
		l.lastHash = nil
		l.lastMatch = nil
	}

	frame, err := l.capturer.Capture(ctx, p.Region)
	if err != nil {
		log.Error("capture failed", "error", err)
		entry.Err = err.Error()
		metrics.RecordFailure("capture")
		return entry
	}

	m, found, err := l.locate(ctx, p, frame)
	if err != nil {
		log.Error("recognition failed", "error", err)
		entry.Err = err.Error()
		metrics.RecordFailure("ocr")
		return entry
	}
	if !found {
		entry.Reason = "searching for " + p.TargetPerson
		metrics.RecordMatch(metrics.MatchNone)
		log.Debug("name not found", "person", p.TargetPerson)
		return entry
	}

	entry.Found = true
	entry.MatchedText = m.Text
	entry.FullMatch = m.Full
	entry.X, entry.Y, entry.W, entry.H = m.X, m.Y, m.W, m.H
	if m.Full {
		metrics.RecordMatch(metrics.MatchFull)
	} else {
		metrics.RecordMatch(metrics.MatchPartial)
	}

	anchor := l.anchor(p, m)
	status := classify.Classify(frame, anchor, l.tuning.Classifier)
	entry.Status = status
	metrics.RecordDetection(string(status))
	log.Debug("detected", "person", p.TargetPerson, "status", status, "x", m.X, "y", m.Y, "full", m.Full)

	if debug {
		if derr := l.dumpDebug(frame, m, anchor); derr != nil {
			log.Warn("debug dump failed", "error", derr)
		}
	}

	if allowNotify {
		l.maybeNotify(ctx, p, status, &entry)
	}

	return entry
}

// locate returns the name box for the target. OCR is skipped when the
// frame is near-identical to the last frame OCR actually ran on and that
// run produced a match; a miss always re-scans. Classification still
// happens on the fresh pixels either way.
func (l *Loop) locate(ctx context.Context, p config.Profile, frame image.Image) (match.Match, bool, error) {
	hash, herr := goimagehash.PerceptionHash(frame)
	if herr == nil && l.lastHash != nil && l.lastMatch != nil {
		if dist, derr := l.lastHash.Distance(hash); derr == nil && dist <= l.tuning.OCR.HashDistance {
			trace.Logger(ctx).Debug("frame unchanged, reusing last match", "distance", dist)
			metrics.RecordOCRSkip()
			return *l.lastMatch, true, nil
		}
	}

	l.recognizer.Configure(p.TesseractPath, p.OCRLangs, l.tuning.OCR.Scale)
	frags, err := l.recognizer.Locate(ctx, frame)
	if err != nil {
		return match.Match{}, false, err
	}
	if herr == nil {
		l.lastHash = hash
	}

	m, ok := match.Find(frags, p.TargetPerson, l.tuning.Matcher)
	if ok {
		l.lastMatch = &m
	} else {
		l.lastMatch = nil
	}
	return m, ok, nil
}

// anchor derives the pixel to sample around. Offset mode is relative to
// the name box with the envelope clamp applied at use; point mode uses
// the calibrated region-relative point as is.
func (l *Loop) anchor(p config.Profile, m match.Match) geom.Point {
	if p.CalibMode == config.CalibModePoint && p.CalibPoint != (geom.Point{}) {
		return p.CalibPoint
	}
	off := calibrate.Offset{DX: p.OffsetX, DY: p.OffsetY}.Clamp()
	return geom.Point{X: m.X + off.DX, Y: m.Y + off.DY}
}
