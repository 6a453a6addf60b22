package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/statuswatch/statuswatch/internal/classify"
)

var testZone = time.FixedZone("CET", 3600)

// throttleAt returns a throttle whose clock is frozen at the given hour and
// a handle to advance it.
func throttleAt(hour int) (*Throttle, *time.Time) {
	now := time.Date(2026, 1, 5, hour, 0, 0, 0, testZone)
	th := NewThrottle(testZone)
	th.now = func() time.Time { return now }
	return th, &now
}

func TestThrottleHourGate(t *testing.T) {
	th, _ := throttleAt(8)

	d := th.Check(classify.StatusGreen, 9, 60)

	if d.Allow {
		t.Fatal("8:00 with start hour 9 should suppress")
	}
	if !strings.Contains(d.Reason, "before 9:00") {
		t.Errorf("reason = %q, want the window start", d.Reason)
	}
}

func TestThrottleHourBoundaryInclusive(t *testing.T) {
	th, _ := throttleAt(9)

	if d := th.Check(classify.StatusGreen, 9, 60); !d.Allow {
		t.Errorf("9:00 with start hour 9 should pass, got %q", d.Reason)
	}
}

func TestThrottleRateLimit(t *testing.T) {
	th, now := throttleAt(10)

	if d := th.Check(classify.StatusGreen, 0, 60); !d.Allow {
		t.Fatalf("first check suppressed: %q", d.Reason)
	}
	th.MarkSent(classify.StatusGreen)

	*now = now.Add(59 * time.Minute)
	d := th.Check(classify.StatusRed, 0, 60)
	if d.Allow {
		t.Fatal("59 minutes after a send should suppress")
	}
	if !strings.Contains(d.Reason, "1 more minute") {
		t.Errorf("reason = %q, want remaining minutes", d.Reason)
	}

	*now = now.Add(1 * time.Minute)
	if d := th.Check(classify.StatusRed, 0, 60); !d.Allow {
		t.Errorf("exactly at the limit should pass, got %q", d.Reason)
	}
}

func TestThrottleRateLimitZeroDisabled(t *testing.T) {
	th, _ := throttleAt(10)
	th.MarkSent(classify.StatusGreen)

	if d := th.Check(classify.StatusRed, 0, 0); !d.Allow {
		t.Errorf("rate limit 0 should not suppress, got %q", d.Reason)
	}
}

func TestThrottleDedupe(t *testing.T) {
	th, now := throttleAt(10)
	th.MarkSent(classify.StatusGreen)
	*now = now.Add(2 * time.Hour)

	d := th.Check(classify.StatusGreen, 0, 60)
	if d.Allow {
		t.Fatal("repeat of the last notified status should suppress")
	}
	if !strings.Contains(d.Reason, "already notified") {
		t.Errorf("reason = %q", d.Reason)
	}

	if d := th.Check(classify.StatusRed, 0, 60); !d.Allow {
		t.Errorf("different status should pass, got %q", d.Reason)
	}
}

func TestThrottleStatusReeligibleAfterOther(t *testing.T) {
	th, now := throttleAt(10)

	th.MarkSent(classify.StatusGreen)
	*now = now.Add(2 * time.Hour)
	th.MarkSent(classify.StatusRed)
	*now = now.Add(2 * time.Hour)

	if d := th.Check(classify.StatusGreen, 0, 60); !d.Allow {
		t.Errorf("green after a red send should pass, got %q", d.Reason)
	}
}

func TestThrottleGateOrder(t *testing.T) {
	th, now := throttleAt(5)
	th.MarkSent(classify.StatusGreen)
	*now = now.Add(time.Minute)

	// Both the hour gate and the rate limit apply; the hour gate reports.
	d := th.Check(classify.StatusGreen, 9, 60)
	if d.Allow {
		t.Fatal("check should suppress")
	}
	if !strings.Contains(d.Reason, "before 9:00") {
		t.Errorf("reason = %q, want the hour gate to fire first", d.Reason)
	}
}

func TestThrottleFailedSendLeavesStateUntouched(t *testing.T) {
	th, _ := throttleAt(10)

	if d := th.Check(classify.StatusGreen, 0, 60); !d.Allow {
		t.Fatalf("first check suppressed: %q", d.Reason)
	}
	// Transport failed; MarkSent is not called. The same status must
	// still be eligible on the next transition.
	if d := th.Check(classify.StatusGreen, 0, 60); !d.Allow {
		t.Errorf("retry after failed send suppressed: %q", d.Reason)
	}
}

func TestLoadZoneFallback(t *testing.T) {
	if loc := LoadZone("Not/AZone"); loc != time.Local {
		t.Errorf("LoadZone on unknown name = %v, want local", loc)
	}
}
