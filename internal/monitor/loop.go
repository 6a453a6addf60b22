// Package monitor glues capture, recognition, classification, and
// notification into the polling detection loop.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/statuswatch/statuswatch/internal/classify"
	"github.com/statuswatch/statuswatch/internal/config"
	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/history"
	"github.com/statuswatch/statuswatch/internal/match"
	"github.com/statuswatch/statuswatch/internal/metrics"
	"github.com/statuswatch/statuswatch/internal/notify"
	"github.com/statuswatch/statuswatch/internal/ocr"
	"github.com/statuswatch/statuswatch/internal/screen"
)

// updateBuffer bounds the update channel; a slow consumer drops events.
const updateBuffer = 16

// Recognizer is the OCR surface the loop needs: locating text plus
// per-cycle reconfiguration from the profile snapshot.
type Recognizer interface {
	ocr.Locator
	Configure(engine, langs string, scale int)
}

// Config wires a Loop. BuildSinks may be overridden in tests; nil uses
// the real delivery stack with SMTPPassword applied.
type Config struct {
	Store        *config.Store
	Tuning       config.Tuning
	Capturer     screen.Capturer
	Recognizer   Recognizer
	History      *history.Store
	Throttle     *notify.Throttle
	SMTPPassword string
	DataDir      string
	BuildSinks   func(config.Profile) notify.Notifier
}

// Loop runs detection cycles until stopped. One-shot detection and
// calibration share the cycle mutex, so no two detections overlap.
type Loop struct {
	store      *config.Store
	tuning     config.Tuning
	capturer   screen.Capturer
	recognizer Recognizer
	hist       *history.Store
	throttle   *notify.Throttle
	buildSinks func(config.Profile) notify.Notifier
	dataDir    string

	updates chan history.Entry

	mu      sync.Mutex // guards start/stop transitions
	running atomic.Bool
	stopCh  chan struct{}

	// Detection state below is guarded by cycleMu.
	cycleMu    sync.Mutex
	lastStatus classify.Status
	lastTarget string
	lastHash   *goimagehash.ImageHash
	lastMatch  *match.Match
}

// New creates a stopped loop.
func New(cfg Config) *Loop {
	l := &Loop{
		store:      cfg.Store,
		tuning:     cfg.Tuning,
		capturer:   cfg.Capturer,
		recognizer: cfg.Recognizer,
		hist:       cfg.History,
		throttle:   cfg.Throttle,
		buildSinks: cfg.BuildSinks,
		dataDir:    cfg.DataDir,
		updates:    make(chan history.Entry, updateBuffer),
	}
	if l.throttle == nil {
		l.throttle = notify.NewThrottle(time.Local)
	}
	if l.buildSinks == nil {
		pw := cfg.SMTPPassword
		l.buildSinks = func(p config.Profile) notify.Notifier {
			return notify.Build(p, pw)
		}
	}
	return l
}

// Start launches the loop goroutine. Detection state is reset so the
// first cycle after a restart can notify again.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running.Load() {
		return apperrors.New(apperrors.CodeInvalidArgument, "monitor already running")
	}

	l.cycleMu.Lock()
	l.lastStatus = ""
	l.lastHash = nil
	l.lastMatch = nil
	l.cycleMu.Unlock()

	stopCh := make(chan struct{})
	l.stopCh = stopCh
	l.running.Store(true)
	go l.run(ctx, stopCh)

	slog.Info("monitor started", "person", l.store.Snapshot().TargetPerson)
	return nil
}

// Stop signals the loop to exit at the next iteration boundary. A cycle
// in progress is never preempted.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running.Load() {
		return
	}
	close(l.stopCh)
	l.stopCh = nil
	l.running.Store(false)
	slog.Info("monitor stopped")
}

// Running reports whether the loop goroutine is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Updates returns the stream of cycle outcomes. Emission never blocks;
// events are dropped when the buffer is full.
func (l *Loop) Updates() <-chan history.Entry {
	return l.updates
}

func (l *Loop) run(ctx context.Context, stopCh <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		p := l.store.Snapshot()

		start := time.Now()
		entry := l.cycle(ctx, p, true)
		metrics.ObserveCycle(time.Since(start))
		l.record(entry)

		timer := time.NewTimer(time.Duration(p.Interval) * time.Second)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (l *Loop) cycle(ctx context.Context, p config.Profile, allowNotify bool) history.Entry {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()
	return l.detect(ctx, p, allowNotify, false)
}

func (l *Loop) record(e history.Entry) {
	l.hist.Add(e)
	select {
	case l.updates <- e:
	default:
		slog.Debug("update channel full, dropping event")
	}
}

// maybeNotify runs the candidacy and throttle checks for a freshly
// detected status and attempts delivery when both pass. The last-status
// tracker advances on every transition no matter how the send went.
func (l *Loop) maybeNotify(ctx context.Context, p config.Profile, status classify.Status, entry *history.Entry) {
	if status == l.lastStatus {
		return
	}
	defer func() { l.lastStatus = status }()

	if !notifiable(p, status) || !notify.Configured(p) {
		return
	}

	dec := l.throttle.Check(status, p.EmailStartHour, p.EmailRateLimit)
	if !dec.Allow {
		entry.Reason = dec.Reason
		metrics.RecordNotification(string(status), metrics.ResultSuppressed)
		slog.Info("notification suppressed", "status", status, "reason", dec.Reason)
		return
	}

	ev := notify.Event{
		Person:       p.TargetPerson,
		Status:       status,
		When:         time.Now(),
		RateLimitMin: p.EmailRateLimit,
	}
	if err := l.buildSinks(p).Notify(ctx, ev); err != nil {
		entry.Reason = "delivery failed: " + err.Error()
		metrics.RecordNotification(string(status), metrics.ResultFailed)
		slog.Error("notification failed", "status", status, "error", err)
		return
	}

	l.throttle.MarkSent(status)
	entry.Notified = true
	metrics.RecordNotification(string(status), metrics.ResultSent)
	slog.Info("notification sent", "person", p.TargetPerson, "status", status)
}

// notifiable applies the per-status profile flags.
func notifiable(p config.Profile, status classify.Status) bool {
	switch status {
	case classify.StatusGreen:
		return p.NotifyGreen
	case classify.StatusRed:
		return p.NotifyRed
	default:
		return false
	}
}
