// Package resilience provides the retry and circuit breaker plumbing for
// the external pieces the monitor leans on: the OCR engine process and
// the mail transport.
package resilience

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the breaker position.
type State uint32

const (
	Closed   State = iota // calls pass through
	Open                  // calls fail fast
	HalfOpen              // probing whether the dependency recovered
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrOpen is returned while the breaker is failing fast.
var ErrOpen = errors.New("circuit breaker open")

// Breaker trips open after a streak of failures and fails calls fast
// until the cooldown passes; probes then run until enough succeed to
// close it again. All state lives in atomics; methods may be called
// from any goroutine.
type Breaker struct {
	cfg  Config
	hook func(from, to State)

	state    atomic.Uint32
	streak   atomic.Int32 // consecutive failures
	probes   atomic.Int32 // successful probes while half-open
	failedAt atomic.Int64 // unix nanos of the most recent failure
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	b := &Breaker{cfg: cfg.withDefaults()}
	b.state.Store(uint32(Closed))
	return b
}

// WithHook registers a state change callback.
func (b *Breaker) WithHook(fn func(from, to State)) *Breaker {
	b.hook = fn
	return b
}

// State returns the current position.
func (b *Breaker) State() State {
	return State(b.state.Load())
}

// Allow reports whether a call may proceed. The first caller after the
// cooldown moves an open breaker to half-open; callers that lose that
// race go through as probes too.
func (b *Breaker) Allow() error {
	if State(b.state.Load()) != Open {
		return nil
	}
	last := b.failedAt.Load()
	if last != 0 && time.Since(time.Unix(0, last)) <= b.cfg.ResetTimeout {
		return ErrOpen
	}
	b.shift(Open, HalfOpen)
	return nil
}

// Success records a completed call. While closed it ends the failure
// streak; while half-open it counts toward reclosing.
func (b *Breaker) Success() {
	switch State(b.state.Load()) {
	case Closed:
		b.streak.Store(0)
	case HalfOpen:
		if int(b.probes.Add(1)) >= b.cfg.HalfOpenSuccesses {
			b.shift(HalfOpen, Closed)
		}
	}
}

// Failure records a failed call. A failed probe reopens immediately; a
// streak while closed trips the breaker at the threshold.
func (b *Breaker) Failure() {
	b.failedAt.Store(time.Now().UnixNano())
	streak := b.streak.Add(1)

	switch State(b.state.Load()) {
	case HalfOpen:
		b.shift(HalfOpen, Open)
	case Closed:
		if int(streak) >= b.cfg.Threshold {
			b.shift(Closed, Open)
		}
	}
}

// Reset forces the breaker closed from any state.
func (b *Breaker) Reset() {
	if from := State(b.state.Swap(uint32(Closed))); from != Closed {
		b.settle(from, Closed)
	}
}

// shift moves the breaker from one state to another. The comparison
// makes a lost race a no-op; the winner already ran the side effects.
func (b *Breaker) shift(from, to State) {
	if b.state.CompareAndSwap(uint32(from), uint32(to)) {
		b.settle(from, to)
	}
}

// settle runs the side effects of a transition that already happened:
// counter resets, the log line, and the hook.
func (b *Breaker) settle(from, to State) {
	b.probes.Store(0)
	switch to {
	case Open:
		slog.Warn("breaker tripped open", "failures", b.streak.Load())
	case HalfOpen:
		slog.Info("breaker half-open, probing")
	case Closed:
		b.streak.Store(0)
		slog.Info("breaker closed")
	}
	if b.hook != nil {
		b.hook(from, to)
	}
}

// Execute runs fn behind the breaker.
func (b *Breaker) Execute(fn func() error) error {
	_, err := ExecuteWithResult(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// ExecuteWithResult runs a value-returning fn behind the breaker. The
// fn is skipped entirely while the breaker is failing fast.
func ExecuteWithResult[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	v, err := fn()
	if err != nil {
		b.Failure()
		return zero, err
	}
	b.Success()
	return v, nil
}
