// Package web serves a live monitor for the tracking loop: JSON status over
// HTTP and websockets, plus the annotated camera feed as JPEG frames.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/internal/log"
	"github.com/teslashibe/go-facetrack/pkg/hub"
	"github.com/teslashibe/go-facetrack/pkg/protocol"
	"github.com/teslashibe/go-facetrack/pkg/tracking"
)

// Status is the monitor's view of the tracker
type Status struct {
	Session      string                 `json:"session"`
	Started      time.Time              `json:"started"`
	Uptime       string                 `json:"uptime"`
	State        tracking.State         `json:"state"`
	Stats        tracking.Stats         `json:"stats"`
	Displacement *protocol.Displacement `json:"displacement,omitempty"`
	LastPayload  string                 `json:"last_payload,omitempty"`
	Streams      []hub.Stats            `json:"streams"`
}

// ErrServerClosed is returned by Start after Shutdown.
var ErrServerClosed = errors.New("web: server closed")

// ConfigView is the effective tracking configuration as served by /api/config
type ConfigView struct {
	Threshold       int    `json:"threshold"`
	Midpoint        [2]int `json:"midpoint"`
	Policy          string `json:"policy"`
	LegacyCenter    bool   `json:"legacy_center"`
	PollDelayMS     int64  `json:"poll_delay_ms"`
	ExitKey         int    `json:"exit_key"`
	FrameIntervalMS int64  `json:"frame_interval_ms"`
}

// Server is the monitor. It implements tracking.Observer and
// tracking.FrameObserver.
type Server struct {
	app     *fiber.App
	config  Config
	view    ConfigView
	session string
	started time.Time

	mu          sync.RWMutex
	state       tracking.State
	stats       tracking.Stats
	last        *protocol.Displacement
	lastPayload string
	lastFrame   time.Time

	statusHub *hub.Hub
	cameraHub *hub.Hub

	ln      net.Listener
	cancel  context.CancelFunc
	stopped bool
}

// NewServer creates a monitor for a tracker running with tc
func NewServer(cfg Config, session string, tc tracking.Config) *Server {
	s := &Server{
		config:  cfg,
		session: session,
		started: time.Now(),
		view: ConfigView{
			Threshold:       tc.Threshold,
			Midpoint:        [2]int{tc.Midpoint.X, tc.Midpoint.Y},
			Policy:          string(tc.Policy),
			LegacyCenter:    tc.LegacyCenter,
			PollDelayMS:     tc.PollDelay.Milliseconds(),
			ExitKey:         tc.ExitKey,
			FrameIntervalMS: cfg.FrameInterval.Milliseconds(),
		},
		statusHub: hub.New("status"),
		cameraHub: hub.New("camera"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "facetrack monitor",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/", s.handleIndex)

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s
}

// App exposes the fiber app for in-process requests
func (s *Server) App() *fiber.App {
	return s.app
}

// Session returns the session id reported in /api/status
func (s *Server) Session() string {
	return s.session
}

// Start binds the address, runs the hubs and serves until Shutdown. It blocks.
func (s *Server) Start(ctx context.Context) error {
	if err := s.bind(ctx); err != nil {
		return err
	}
	return s.serve()
}

// StartAsync binds before returning and serves in the background. A bind
// failure is logged and the tracker keeps running without a monitor.
func (s *Server) StartAsync(ctx context.Context) {
	if err := s.bind(ctx); err != nil {
		log.Warn("monitor disabled", "error", err)
		return
	}
	go func() {
		if err := s.serve(); err != nil {
			log.Warn("monitor stopped", "error", err)
		}
	}()
}

func (s *Server) bind(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrServerClosed
	}
	if s.ln != nil {
		return fmt.Errorf("web: already listening on %s", s.ln.Addr())
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("monitor listen %s: %w", s.config.Addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.ln, s.cancel = ln, cancel
	go s.statusHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	log.Info("monitor listening", "addr", ln.Addr().String(), "session", s.session)
	return nil
}

func (s *Server) serve() error {
	s.mu.RLock()
	ln := s.ln
	s.mu.RUnlock()

	err := s.app.Listener(ln)

	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if err != nil && !stopped {
		return fmt.Errorf("monitor serve: %w", err)
	}
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops the listener and disconnects all clients. It is safe to call
// before Start, and a later Start returns ErrServerClosed.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	ln, cancel := s.ln, s.cancel
	s.mu.Unlock()

	if ln == nil {
		return nil
	}

	cancel()
	err := s.app.Shutdown()
	// Serving may not have begun yet; closing the listener makes it return at once.
	ln.Close()
	<-s.statusHub.Done()
	<-s.cameraHub.Done()
	return err
}

// Observe records a tracker report and pushes it to status subscribers
func (s *Server) Observe(r tracking.Report) {
	s.mu.Lock()
	s.state = r.State
	s.stats.Frames = r.Frame
	s.stats.Faces += uint64(len(r.Faces))
	if r.Sent {
		s.stats.Writes++
		s.lastPayload = r.Payload
	}
	s.last = r.Displacement
	s.mu.Unlock()

	if s.statusHub.ClientCount() == 0 {
		return
	}
	if err := s.statusHub.BroadcastJSON(r); err != nil {
		log.Warn("status broadcast failed", "error", err)
	}
}

// ObserveFrame streams the annotated frame to camera subscribers, at most
// once per FrameInterval. Nothing is encoded while nobody is watching.
func (s *Server) ObserveFrame(frame gocv.Mat) {
	if s.cameraHub.ClientCount() == 0 || frame.Empty() {
		return
	}

	now := time.Now()
	s.mu.Lock()
	if now.Sub(s.lastFrame) < s.config.FrameInterval {
		s.mu.Unlock()
		return
	}
	s.lastFrame = now
	s.mu.Unlock()

	data, err := EncodeJPEG(frame, s.config.JPEGQuality)
	if err != nil {
		log.Warn("frame encode failed", "error", err)
		return
	}
	s.cameraHub.BroadcastBinary(data)
}

// Status returns the current status snapshot
func (s *Server) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		Session:      s.session,
		Started:      s.started,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		State:        s.state,
		Stats:        s.stats,
		Displacement: s.last,
		LastPayload:  s.lastPayload,
		Streams:      []hub.Stats{s.statusHub.Stats(), s.cameraHub.Stats()},
	}
}

// EncodeJPEG compresses frame at the given quality
func EncodeJPEG(frame gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
