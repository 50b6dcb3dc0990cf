package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/pkg/protocol"
	"github.com/teslashibe/go-facetrack/pkg/tracking"
	"github.com/teslashibe/go-facetrack/pkg/tracking/detection"
)

func newTestServer(addr string) *Server {
	cfg := DefaultConfig()
	cfg.Addr = addr
	return NewServer(cfg, "test-session", tracking.DefaultConfig())
}

func startTestServer(t *testing.T, addr string) *Server {
	t.Helper()
	s := newTestServer(addr)
	s.StartAsync(context.Background())
	t.Cleanup(func() { s.Shutdown() })
	time.Sleep(100 * time.Millisecond)
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func sentReport(frame uint64, dx, dy int) tracking.Report {
	d := protocol.Displacement{DX: dx, DY: dy}
	return tracking.Report{
		Frame:        frame,
		Time:         time.Now(),
		Faces:        []detection.Box{{X: 100, Y: 100, Width: 80, Height: 80}},
		Displacement: &d,
		Sent:         true,
		Payload:      string(protocol.Encode(d)),
		State:        tracking.Running,
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("DefaultConfig invalid: %v", errs)
	}

	bad := Config{Addr: "", FrameInterval: -time.Second, JPEGQuality: 0}
	if errs := bad.Validate(); len(errs) != 3 {
		t.Errorf("Expected 3 errors, got %v", errs)
	}
}

func TestAPIStatus(t *testing.T) {
	s := newTestServer(":0")

	req := httptest.NewRequest("GET", "/api/status", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var st struct {
		Session string `json:"session"`
		State   string `json:"state"`
		Stats   struct {
			Frames int `json:"frames"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("Invalid JSON %q: %v", body, err)
	}
	if st.Session != "test-session" {
		t.Errorf("session = %q", st.Session)
	}
	if st.State != "running" {
		t.Errorf("state = %q, want running", st.State)
	}
	if st.Stats.Frames != 0 {
		t.Errorf("frames = %d, want 0", st.Stats.Frames)
	}
}

func TestAPIConfig(t *testing.T) {
	s := newTestServer(":0")

	req := httptest.NewRequest("GET", "/api/config", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}

	var view ConfigView
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("Invalid JSON %q: %v", body, err)
	}
	if view.Threshold != 30 || view.Midpoint != [2]int{300, 300} || view.Policy != "largest" {
		t.Errorf("unexpected config view %+v", view)
	}
	if view.ExitKey != 27 || view.PollDelayMS != 30 {
		t.Errorf("unexpected key settings %+v", view)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(":0")

	req := httptest.NewRequest("GET", "/ws/status", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("Status = %d, want 426", resp.StatusCode)
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(":0")

	resp, err := s.App().Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestObserve(t *testing.T) {
	s := newTestServer(":0")

	s.Observe(sentReport(1, 45, -12))
	s.Observe(tracking.Report{Frame: 2, State: tracking.Running})
	s.Observe(tracking.Report{Frame: 3, State: tracking.Stopped})

	st := s.Status()
	if st.Stats.Frames != 3 {
		t.Errorf("Frames = %d, want 3", st.Stats.Frames)
	}
	if st.Stats.Faces != 1 || st.Stats.Writes != 1 {
		t.Errorf("Stats = %+v", st.Stats)
	}
	if st.LastPayload != "X45Y-12" {
		t.Errorf("LastPayload = %q", st.LastPayload)
	}
	if st.Displacement != nil {
		t.Error("Displacement should clear on a frame without faces")
	}
	if st.State != tracking.Stopped {
		t.Errorf("State = %v, want stopped", st.State)
	}
}

func TestObserveFrameWithoutViewers(t *testing.T) {
	s := newTestServer(":0")
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	s.ObserveFrame(frame)

	if !s.lastFrame.IsZero() {
		t.Error("frames should not be encoded without camera viewers")
	}
}

func TestEncodeJPEG(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 223, 255, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	data, err := EncodeJPEG(frame, 70)
	if err != nil {
		t.Fatalf("EncodeJPEG error: %v", err)
	}
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("output is not a JPEG: % x", data[:min(4, len(data))])
	}
}

func TestStatusWebSocket(t *testing.T) {
	s := startTestServer(t, ":18090")

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18090/ws/status", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	// Snapshot first
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("Invalid snapshot %q: %v", data, err)
	}
	if st.Session != "test-session" {
		t.Errorf("session = %q", st.Session)
	}

	waitFor(t, func() bool { return s.statusHub.ClientCount() == 1 })

	s.Observe(sentReport(7, -60, 60))

	_, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	var r struct {
		Frame   uint64 `json:"frame"`
		Sent    bool   `json:"sent"`
		Payload string `json:"payload"`
		State   string `json:"state"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Invalid report %q: %v", data, err)
	}
	if r.Frame != 7 || !r.Sent || r.Payload != "X-60Y60" || r.State != "running" {
		t.Errorf("unexpected report %+v", r)
	}
}

func TestCameraWebSocket(t *testing.T) {
	s := startTestServer(t, ":18091")

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18091/ws/camera", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	waitFor(t, func() bool { return s.cameraHub.ClientCount() == 1 })

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 255, 0, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	s.ObserveFrame(frame)
	s.ObserveFrame(frame) // inside FrameInterval, skipped

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if mt != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", mt)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("camera message is not a JPEG")
	}

	time.Sleep(50 * time.Millisecond)
	if sent := s.cameraHub.Stats().Sent; sent != 1 {
		t.Errorf("camera frames sent = %d, want 1 (throttled)", sent)
	}
}

func TestStatusStreams(t *testing.T) {
	s := newTestServer(":0")

	st := s.Status()
	if len(st.Streams) != 2 || st.Streams[0].Name != "status" || st.Streams[1].Name != "camera" {
		t.Fatalf("Streams = %+v, want status and camera", st.Streams)
	}
	if st.Streams[0].Clients != 0 || st.Streams[1].Sent != 0 {
		t.Errorf("fresh server should report idle streams: %+v", st.Streams)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	s := newTestServer("127.0.0.1:0")

	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown before Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrServerClosed) {
		t.Errorf("Start after Shutdown = %v, want ErrServerClosed", err)
	}
	if s.Addr() != nil {
		t.Errorf("nothing should be bound, got %v", s.Addr())
	}
}

func TestShutdownBeforeServe(t *testing.T) {
	s := newTestServer("127.0.0.1:0")

	if err := s.bind(context.Background()); err != nil {
		t.Fatalf("bind: %v", err)
	}
	addr := s.Addr().String()
	s.Shutdown()

	done := make(chan error, 1)
	go func() { done <- s.serve() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve after Shutdown = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve kept running after Shutdown")
	}

	if conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		conn.Close()
		t.Errorf("%s still accepting connections after Shutdown", addr)
	}
}

func TestStartAsyncBindsBeforeReturning(t *testing.T) {
	s := newTestServer("127.0.0.1:0")
	s.StartAsync(context.Background())
	defer s.Shutdown()

	if s.Addr() == nil {
		t.Fatal("StartAsync returned without a bound listener")
	}
	conn, err := net.DialTimeout("tcp", s.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial monitor: %v", err)
	}
	conn.Close()
}
