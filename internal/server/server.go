// Package server provides the HTTP and WebSocket control surface.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/statuswatch/statuswatch/internal/calibrate"
	"github.com/statuswatch/statuswatch/internal/config"
	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/geom"
	"github.com/statuswatch/statuswatch/internal/history"
	"github.com/statuswatch/statuswatch/internal/trace"
)

// Monitor is the loop surface the server drives.
type Monitor interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
	DetectOnce(ctx context.Context, debug bool) history.Entry
	CalibrateClick(ctx context.Context, click geom.Point) (calibrate.Offset, calibrate.Note, error)
	CalibratePoint(pt geom.Point) error
	Updates() <-chan history.Entry
}

// Message is the type-only envelope shared by all WebSocket frames.
type Message struct {
	Type string `json:"type"`
}

// UpdateMessage carries one cycle outcome to WebSocket clients.
type UpdateMessage struct {
	Type string `json:"type"`
	history.Entry
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Running bool           `json:"running"`
	Last    *history.Entry `json:"last,omitempty"`
}

// DetectRequest is the optional /api/detect payload.
type DetectRequest struct {
	Debug bool `json:"debug"`
}

// CalibrateRequest carries either a click (offset flow) or a fixed
// point, in absolute screen coordinates.
type CalibrateRequest struct {
	ClickX *int `json:"click_x"`
	ClickY *int `json:"click_y"`
	PointX *int `json:"point_x"`
	PointY *int `json:"point_y"`
}

// rateLimiter admits a bounded number of messages per sliding window.
// Each WebSocket connection gets its own limiter.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow drops stamps older than the window, then admits and records the
// message if there is room.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	keep := r.timestamps[:0]
	for _, ts := range r.timestamps {
		if ts.After(cutoff) {
			keep = append(keep, ts)
		}
	}
	r.timestamps = keep

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server exposes the monitor over REST endpoints and a WebSocket
// update stream.
type Server struct {
	baseCtx context.Context // lifetime context handed to monitor starts
	mon     Monitor
	store   *config.Store
	hist    *history.Store

	mu    sync.RWMutex
	conns map[*websocket.Conn]struct{}
}

// New creates a server and starts the update broadcaster.
func New(ctx context.Context, mon Monitor, store *config.Store, hist *history.Store) *Server {
	s := &Server{
		baseCtx: ctx,
		mon:     mon,
		store:   store,
		hist:    hist,
		conns:   make(map[*websocket.Conn]struct{}),
	}

	go s.broadcastUpdates()

	return s
}

// Handler builds the route table wrapped in trace and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/config", s.handleConfigGet)
	mux.HandleFunc("PUT /api/config", s.handleConfigPut)
	mux.HandleFunc("POST /api/monitor/start", s.handleMonitorStart)
	mux.HandleFunc("POST /api/monitor/stop", s.handleMonitorStop)
	mux.HandleFunc("POST /api/detect", s.handleDetect)
	mux.HandleFunc("POST /api/calibrate", s.handleCalibrate)
	mux.HandleFunc("POST /api/region", s.handleRegion)
	mux.Handle("GET /metrics", promhttp.Handler())

	// trace runs innermost so handlers see the request IDs.
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidArgument, apperrors.CodeConfigInvalid:
		status = http.StatusBadRequest
	case apperrors.CodeCalibration:
		status = http.StatusUnprocessableEntity
	case apperrors.CodeUnavailable, apperrors.CodeTimeout:
		status = http.StatusServiceUnavailable
	case apperrors.CodeConfigMissing:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Running: s.mon.Running()}
	if last, ok := s.hist.Latest(); ok {
		resp.Last = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := DefaultHistoryN
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, apperrors.Newf(apperrors.CodeInvalidArgument, "bad history size %q", raw))
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.hist.Recent(n)})
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Snapshot().Redacted().Encode()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleConfigPut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "read body"))
		return
	}

	// Dry-run the merge on a copy so a bad payload never hits disk.
	probe := s.store.Snapshot()
	if err := probe.Merge(body); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeConfigInvalid, "merge profile"))
		return
	}

	updated, err := s.store.Update(func(prof *config.Profile) {
		_ = prof.Merge(body)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	trace.Logger(r.Context()).Info("profile updated", "person", updated.TargetPerson)
	data, err := updated.Redacted().Encode()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleMonitorStart(w http.ResponseWriter, r *http.Request) {
	if err := s.mon.Start(s.baseCtx); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "monitoring_started"})
}

func (s *Server) handleMonitorStop(w http.ResponseWriter, r *http.Request) {
	s.mon.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "monitoring_stopped"})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req)

	entry := s.mon.DetectOnce(r.Context(), req.Debug)
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req CalibrateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode body"))
		return
	}

	switch {
	case req.ClickX != nil && req.ClickY != nil:
		off, note, err := s.mon.CalibrateClick(r.Context(), geom.Point{X: *req.ClickX, Y: *req.ClickY})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"offset_x": off.DX,
			"offset_y": off.DY,
			"note":     string(note),
		})
	case req.PointX != nil && req.PointY != nil:
		if err := s.mon.CalibratePoint(geom.Point{X: *req.PointX, Y: *req.PointY}); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"mode": config.CalibModePoint})
	default:
		writeError(w, apperrors.New(apperrors.CodeInvalidArgument, "click_x/click_y or point_x/point_y required"))
	}
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	var reg geom.Region
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&reg); err != nil {
		writeError(w, apperrors.Wrap(err, apperrors.CodeInvalidArgument, "decode body"))
		return
	}
	if !reg.IsZero() && !reg.Valid() {
		writeError(w, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid region %s", reg))
		return
	}

	updated, err := s.store.Update(func(prof *config.Profile) {
		prof.Region = reg
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"region": updated.Region})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.addConn(conn)
	defer s.dropConn(conn)

	log := trace.Logger(r.Context())
	log.Info("websocket connected", "remote", r.RemoteAddr)

	s.serveConn(r.Context(), conn, log, r.RemoteAddr)
}

func (s *Server) addConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// serveConn reads command frames until the peer goes away. The rate
// limiter lives for exactly as long as the connection does.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn, log *slog.Logger, remote string) {
	var rl rateLimiter
	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", remote)
			_ = wsjson.Write(ctx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		if base.Type != "detect" {
			continue
		}

		// A frame may carry a trace_id; otherwise open a fresh trace.
		cmdCtx := ctx
		if tc, ok := trace.ExtractFromJSON(msg); ok {
			cmdCtx = trace.WithContext(cmdCtx, tc)
		} else {
			cmdCtx, _ = trace.EnsureContext(cmdCtx)
		}
		entry := s.mon.DetectOnce(cmdCtx, false)
		_ = wsjson.Write(cmdCtx, conn, UpdateMessage{Type: "update", Entry: entry})
	}
}

// broadcastUpdates fans loop events out to every connected client.
func (s *Server) broadcastUpdates() {
	for e := range s.mon.Updates() {
		msg := UpdateMessage{Type: "update", Entry: e}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				_ = wsjson.Write(context.Background(), c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}
