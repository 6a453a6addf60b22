package trace

import (
	"encoding/json"
	"net/http"
)

// Middleware tags every request with a trace context, minting one when
// the caller sent no x-trace-id header. The trace id is echoed on the
// response so clients can quote it back.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := fromHeaders(r)
		w.Header().Set(TraceIDKey, tc.TraceID)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), tc)))
	})
}

// fromHeaders builds a span for the request. The caller's span, when
// present, becomes the parent.
func fromHeaders(r *http.Request) Context {
	tc := Context{
		TraceID:      r.Header.Get(TraceIDKey),
		ParentSpanID: r.Header.Get(SpanIDKey),
		SpanID:       newSpanID(),
	}
	if tc.TraceID == "" {
		tc.TraceID = newTraceID()
	}
	return tc
}

// ExtractFromJSON pulls a trace_id out of a raw WebSocket message so
// command handlers join the caller's trace.
func ExtractFromJSON(data []byte) (Context, bool) {
	var probe struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(data, &probe); err != nil || probe.TraceID == "" {
		return Context{}, false
	}
	return Context{TraceID: probe.TraceID, SpanID: newSpanID()}, true
}
