// Package notify throttles and delivers status-change alerts.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/statuswatch/statuswatch/internal/classify"
)

// State is what the throttle remembers between sends. It only changes on
// confirmed delivery, so a failed send leaves the next qualifying
// transition free to retry.
type State struct {
	LastNotified classify.Status
	LastSentAt   time.Time
}

// Decision is the outcome of a throttle check.
type Decision struct {
	Allow  bool
	Reason string // set when suppressed
}

// Throttle gates notifications behind the quiet-hours window, the rate
// limit, and status dedupe, in that order. It is owned by the monitor loop
// and is not safe for concurrent use.
type Throttle struct {
	state State
	loc   *time.Location
	now   func() time.Time
}

// NewThrottle creates a throttle evaluating hours in the given zone.
func NewThrottle(loc *time.Location) *Throttle {
	if loc == nil {
		loc = time.Local
	}
	return &Throttle{loc: loc, now: time.Now}
}

// Check decides whether an alert for status may go out now. startHour is
// inclusive: at exactly startHour the window is open. rateLimitMin 0
// disables the rate gate.
func (t *Throttle) Check(status classify.Status, startHour, rateLimitMin int) Decision {
	now := t.now().In(t.loc)

	if now.Hour() < startHour {
		return Decision{Reason: fmt.Sprintf("before %d:00 %s (current hour %d)", startHour, t.loc, now.Hour())}
	}

	if rateLimitMin > 0 && !t.state.LastSentAt.IsZero() {
		limit := time.Duration(rateLimitMin) * time.Minute
		if elapsed := now.Sub(t.state.LastSentAt); elapsed < limit {
			remaining := int((limit - elapsed).Minutes())
			return Decision{Reason: fmt.Sprintf("rate limited, %d more minutes", remaining)}
		}
	}

	if t.state.LastNotified == status {
		return Decision{Reason: fmt.Sprintf("already notified for %s", status)}
	}

	return Decision{Allow: true}
}

// MarkSent records a confirmed delivery. Call only after the transport
// reported success.
func (t *Throttle) MarkSent(status classify.Status) {
	t.state.LastSentAt = t.now()
	t.state.LastNotified = status
}

// LoadZone resolves the notification timezone, falling back to local time
// when the zone database does not know the name.
func LoadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("timezone unavailable, using local time", "zone", name, "error", err)
		return time.Local
	}
	return loc
}
