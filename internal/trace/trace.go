// Package trace stamps requests and poll cycles with correlation IDs
// and hands out loggers that carry them. IDs follow the W3C trace
// context shape (16-byte trace, 8-byte span, hex encoded); nothing is
// exported to a collector, the IDs exist to line up log records.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"
)

// Header names used for HTTP propagation.
const (
	TraceIDKey = "x-trace-id"
	SpanIDKey  = "x-span-id"
)

// Context identifies one span within a trace.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// New mints a root context with fresh IDs.
func New() Context {
	return Context{TraceID: newTraceID(), SpanID: newSpanID()}
}

// NewChild mints a context under parent, keeping its trace ID.
func NewChild(parent Context) Context {
	return Context{
		TraceID:      parent.TraceID,
		ParentSpanID: parent.SpanID,
		SpanID:       newSpanID(),
	}
}

type ctxKey struct{}

// WithContext attaches tc to ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext reads the trace context off ctx, if one is attached.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// EnsureContext returns ctx unchanged when it already carries a trace,
// otherwise attaches a fresh root.
func EnsureContext(ctx context.Context) (context.Context, Context) {
	tc, ok := FromContext(ctx)
	if !ok {
		tc = New()
		ctx = WithContext(ctx, tc)
	}
	return ctx, tc
}

// Span is one timed operation. End closes it and emits a debug record
// carrying the collected attributes.
type Span struct {
	Ctx       Context
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Attrs     map[string]any
}

// StartSpan opens a span under the trace in ctx, minting a root trace
// when there is none, and returns ctx rebound to the new span.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	tc := New()
	if parent, ok := FromContext(ctx); ok {
		tc = NewChild(parent)
	}
	s := &Span{
		Ctx:       tc,
		Name:      name,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	return WithContext(ctx, tc), s
}

// SetAttr records an attribute on the span.
func (s *Span) SetAttr(key string, val any) {
	s.Attrs[key] = val
}

// End closes the span and logs it at debug level.
func (s *Span) End() {
	s.EndTime = time.Now()
	slog.Debug("span finished", "span", s)
}

// Duration returns the measured time, zero until End is called.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// LogValue renders the span for slog.
func (s *Span) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 5+len(s.Attrs))
	attrs = append(attrs,
		slog.String("span_name", s.Name),
		slog.String("trace_id", s.Ctx.TraceID),
		slog.String("span_id", s.Ctx.SpanID),
		slog.Duration("duration", s.Duration()),
	)
	if s.Ctx.ParentSpanID != "" {
		attrs = append(attrs, slog.String("parent_span_id", s.Ctx.ParentSpanID))
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, slog.Any(k, v))
	}
	return slog.GroupValue(attrs...)
}

// Logger returns the default logger preloaded with the trace IDs from
// ctx, or the bare default when ctx has none.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	log := slog.Default().With("trace_id", tc.TraceID, "span_id", tc.SpanID)
	if tc.ParentSpanID != "" {
		log = log.With("parent_span_id", tc.ParentSpanID)
	}
	return log
}

func newTraceID() string { return randHex(16) }

func newSpanID() string { return randHex(8) }

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
