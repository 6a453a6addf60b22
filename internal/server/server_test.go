package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/statuswatch/statuswatch/internal/calibrate"
	"github.com/statuswatch/statuswatch/internal/classify"
	"github.com/statuswatch/statuswatch/internal/config"
	apperrors "github.com/statuswatch/statuswatch/internal/errors"
	"github.com/statuswatch/statuswatch/internal/geom"
	"github.com/statuswatch/statuswatch/internal/history"
)

// mockMonitor for testing.
type mockMonitor struct {
	mu          sync.Mutex
	running     bool
	startErr    error
	lastDebug   bool
	detectEntry history.Entry
	clickOff    calibrate.Offset
	clickNote   calibrate.Note
	clickErr    error
	lastClick   geom.Point
	pointErr    error
	lastPoint   geom.Point
	updates     chan history.Entry
}

func newMockMonitor() *mockMonitor {
	return &mockMonitor{
		detectEntry: history.Entry{Person: "Ann Lee", Status: classify.StatusGreen, Found: true},
		clickOff:    calibrate.Offset{DX: -60, DY: 8},
		clickNote:   calibrate.NoteStored,
		updates:     make(chan history.Entry, 8),
	}
}

func (m *mockMonitor) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.running = true
	return nil
}

func (m *mockMonitor) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

func (m *mockMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *mockMonitor) DetectOnce(_ context.Context, debug bool) history.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDebug = debug
	return m.detectEntry
}

func (m *mockMonitor) CalibrateClick(_ context.Context, click geom.Point) (calibrate.Offset, calibrate.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastClick = click
	return m.clickOff, m.clickNote, m.clickErr
}

func (m *mockMonitor) CalibratePoint(pt geom.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPoint = pt
	return m.pointErr
}

func (m *mockMonitor) Updates() <-chan history.Entry { return m.updates }

func newTestServer(t *testing.T) (*Server, *mockMonitor) {
	t.Helper()

	store := config.NewStore(filepath.Join(t.TempDir(), "monitor_config.json"))
	if err := store.Load(); err != nil {
		t.Fatalf("store load: %v", err)
	}
	mon := newMockMonitor()
	return New(context.Background(), mon, store, history.NewStore(20)), mon
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd *bytes.Reader
	if body == "" {
		rd = bytes.NewReader(nil)
	} else {
		rd = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	s, mon := newTestServer(t)
	mon.running = true
	s.hist.Add(history.Entry{Person: "Ann Lee", Status: classify.StatusGreen, Found: true})

	rec := doRequest(t, s, "GET", "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Running {
		t.Error("running = false, want true")
	}
	if resp.Last == nil || resp.Last.Person != "Ann Lee" {
		t.Errorf("last = %+v, want the seeded entry", resp.Last)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	for _, p := range []string{"a", "b", "c"} {
		s.hist.Add(history.Entry{Person: p})
	}

	rec := doRequest(t, s, "GET", "/api/history?n=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Entries []history.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(resp.Entries))
	}
	if resp.Entries[0].Person != "b" || resp.Entries[1].Person != "c" {
		t.Errorf("entries out of order: %+v", resp.Entries)
	}

	if rec := doRequest(t, s, "GET", "/api/history?n=zero", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad n status = %d, want 400", rec.Code)
	}
}

func TestConfigGetRedactsSecrets(t *testing.T) {
	s, _ := newTestServer(t)
	if _, err := s.store.Update(func(p *config.Profile) {
		p.TargetPerson = "Ann Lee"
		p.SenderPassword = "hunter2"
		p.TelegramToken = "123:abc"
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	rec := doRequest(t, s, "GET", "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "hunter2") || strings.Contains(body, "123:abc") {
		t.Error("credentials leaked into the config response")
	}
	if !strings.Contains(body, `"target_person": "Ann Lee"`) {
		t.Errorf("body missing target_person: %s", body)
	}
}

func TestConfigPutPartialUpdate(t *testing.T) {
	s, _ := newTestServer(t)
	if _, err := s.store.Update(func(p *config.Profile) {
		p.TargetPerson = "Ann Lee"
		p.SMTPServer = "mail.example.com"
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	rec := doRequest(t, s, "PUT", "/api/config", `{"target_person": "Jo Brandt", "interval": "7"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	snap := s.store.Snapshot()
	if snap.TargetPerson != "Jo Brandt" {
		t.Errorf("target = %q, want Jo Brandt", snap.TargetPerson)
	}
	if snap.Interval != 7 {
		t.Errorf("interval = %d, want 7", snap.Interval)
	}
	if snap.SMTPServer != "mail.example.com" {
		t.Error("untouched fields must survive a partial update")
	}

	// Legacy numerics stay strings on the wire.
	if !strings.Contains(rec.Body.String(), `"interval": "7"`) {
		t.Errorf("interval not re-encoded as string: %s", rec.Body.String())
	}
}

func TestConfigPutRejectsBadPayload(t *testing.T) {
	s, _ := newTestServer(t)
	before := s.store.Snapshot()

	rec := doRequest(t, s, "PUT", "/api/config", `{"interval": "seven"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if s.store.Snapshot() != before {
		t.Error("rejected payload must not change the profile")
	}
}

func TestMonitorStartStop(t *testing.T) {
	s, mon := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/monitor/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, want 200", rec.Code)
	}
	if !mon.Running() {
		t.Error("monitor should be running")
	}

	mon.startErr = apperrors.New(apperrors.CodeInvalidArgument, "monitor already running")
	if rec := doRequest(t, s, "POST", "/api/monitor/start", ""); rec.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", rec.Code)
	}

	if rec := doRequest(t, s, "POST", "/api/monitor/stop", ""); rec.Code != http.StatusOK {
		t.Errorf("stop status = %d, want 200", rec.Code)
	}
	if mon.Running() {
		t.Error("monitor should be stopped")
	}
}

func TestDetectEndpoint(t *testing.T) {
	s, mon := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/detect", `{"debug": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !mon.lastDebug {
		t.Error("debug flag not passed through")
	}

	var entry history.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Person != "Ann Lee" || entry.Status != classify.StatusGreen {
		t.Errorf("entry = %+v, want the mock detection", entry)
	}

	// Empty body means no debug.
	doRequest(t, s, "POST", "/api/detect", "")
	if mon.lastDebug {
		t.Error("empty body should default debug to false")
	}
}

func TestCalibrateClickEndpoint(t *testing.T) {
	s, mon := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/calibrate", `{"click_x": 160, "click_y": 258}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if mon.lastClick != (geom.Point{X: 160, Y: 258}) {
		t.Errorf("click = %+v, want (160,258)", mon.lastClick)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["offset_x"] != float64(-60) || resp["offset_y"] != float64(8) {
		t.Errorf("offsets = %v/%v, want -60/8", resp["offset_x"], resp["offset_y"])
	}
	if resp["note"] != string(calibrate.NoteStored) {
		t.Errorf("note = %v, want stored", resp["note"])
	}
}

func TestCalibrateClickNotFound(t *testing.T) {
	s, mon := newTestServer(t)
	mon.clickErr = apperrors.New(apperrors.CodeCalibration, "Ann Lee not found on screen")

	rec := doRequest(t, s, "POST", "/api/calibrate", `{"click_x": 10, "click_y": 10}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestCalibratePointEndpoint(t *testing.T) {
	s, mon := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/calibrate", `{"point_x": 180, "point_y": 250}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if mon.lastPoint != (geom.Point{X: 180, Y: 250}) {
		t.Errorf("point = %+v, want (180,250)", mon.lastPoint)
	}
}

func TestCalibrateRequiresCoordinates(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/calibrate", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRegionEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "POST", "/api/region", `{"x1": 100, "y1": 100, "x2": 500, "y2": 400}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := geom.Region{X1: 100, Y1: 100, X2: 500, Y2: 400}
	if s.store.Snapshot().Region != want {
		t.Errorf("region = %v, want %v", s.store.Snapshot().Region, want)
	}

	if rec := doRequest(t, s, "POST", "/api/region", `{"x1": 500, "y1": 400, "x2": 100, "y2": 100}`); rec.Code != http.StatusBadRequest {
		t.Errorf("inverted region status = %d, want 400", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics exposition looks empty")
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/test", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin = %q, want %q", v, "*")
	}

	req = httptest.NewRequest("GET", "/test", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin on GET = %q, want %q", v, "*")
	}
}

func TestUpdateMessageShape(t *testing.T) {
	msg := UpdateMessage{
		Type: "update",
		Entry: history.Entry{
			Person: "Ann Lee",
			Status: classify.StatusRed,
			Found:  true,
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}

	var base Message
	if err := json.Unmarshal(data, &base); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if base.Type != "update" {
		t.Errorf("type = %q, want %q", base.Type, "update")
	}

	// Entry fields flatten into the same object.
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if flat["person"] != "Ann Lee" || flat["status"] != "red" {
		t.Errorf("flattened entry = %v", flat)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{}

	for i := 0; i < RateLimitMessages; i++ {
		if !rl.allow() {
			t.Fatalf("message %d rejected inside the window budget", i)
		}
	}
	if rl.allow() {
		t.Error("message over budget should be rejected")
	}
}
