// facetrack keeps a pan/tilt mount pointed at a face.
//
// It reads frames from a webcam, finds faces with a Haar cascade (or YuNet),
// and sends X<dx>Y<dy> corrections to the mount controller over serial
// whenever the face leaves the dead zone around the window midpoint.
// Press ESC in the preview window or Ctrl+C to stop.
//
// Usage:
//
//	facetrack -port /dev/ttyACM0 -camera 1
//	facetrack -dry-run -headless -monitor :8090
//	facetrack -legacy -port COM4
//	facetrack -list-ports
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facetrack/internal/config"
	"github.com/teslashibe/go-facetrack/internal/log"
	"github.com/teslashibe/go-facetrack/pkg/camera"
	"github.com/teslashibe/go-facetrack/pkg/display"
	"github.com/teslashibe/go-facetrack/pkg/link"
	"github.com/teslashibe/go-facetrack/pkg/tracking"
	"github.com/teslashibe/go-facetrack/pkg/tracking/detection"
	"github.com/teslashibe/go-facetrack/pkg/web"
)

// Exit codes
const (
	exitOK     = 0
	exitFatal  = 1
	exitConfig = 2
)

type deviceLink interface {
	link.Writer
	io.Closer
	Writes() uint64
}

type frameSource interface {
	tracking.FrameSource
	io.Closer
}

// openers acquire the hardware. Tests swap them for fakes.
type openers struct {
	link     func(ctx context.Context, cfg link.Config) (deviceLink, error)
	detector func(cfg detection.Config) (detection.Detector, error)
	camera   func(cfg camera.Config) (frameSource, error)
	display  func(cfg display.Config) display.Sink
}

func defaultOpeners() openers {
	return openers{
		link: func(ctx context.Context, cfg link.Config) (deviceLink, error) {
			if cfg.DryRun {
				return link.NewDryRun(), nil
			}
			s, err := link.Connect(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		detector: detection.New,
		camera: func(cfg camera.Config) (frameSource, error) {
			c, err := camera.Open(cfg)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		display: display.New,
	}
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	app, listPorts, err := parseConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "facetrack:", err)
		return exitConfig
	}

	session := uuid.NewString()
	app.Log.Attrs = []any{"session", session}
	log.Init(app.Log)
	defer log.Close()

	if listPorts {
		return printPorts(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, app, session, defaultOpeners())
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted during startup")
		return exitOK
	}
	if err != nil {
		log.Error("facetrack stopped with error", "error", err)
		if hint := connectHint(err); hint != "" {
			log.Error(hint, "port", app.Link.Port)
		}
		return exitFatal
	}
	return exitOK
}

// connectHint suggests a fix for the common ways opening the port fails.
func connectHint(err error) string {
	var ce *link.ConnectError
	if !errors.As(err, &ce) {
		return ""
	}
	switch {
	case ce.IsBusy():
		return "serial port is held by another program, close the serial monitor or firmware uploader"
	case ce.IsNotFound():
		return "serial port not found, check the cable or pick one from -list-ports"
	}
	return ""
}

// parseConfig layers command-line flags over the environment.
func parseConfig(args []string) (config.App, bool, error) {
	app, err := config.Load()
	if err != nil {
		return app, false, err
	}

	fs := flag.NewFlagSet("facetrack", flag.ContinueOnError)
	port := fs.String("port", app.Link.Port, "Serial port of the mount controller")
	baud := fs.Int("baud", app.Link.BaudRate, "Serial baud rate")
	dryRun := fs.Bool("dry-run", app.Link.DryRun, "Log corrections instead of opening the serial port")
	cam := fs.Int("camera", app.Camera.Index, "Capture device index")
	backend := fs.String("backend", app.Detection.Backend, "Face detector: haar or yunet")
	model := fs.String("model", app.Detection.ModelPath, "Cascade XML or YuNet ONNX model file")
	strictness := fs.Float64("strictness", app.Detection.Strictness, "Cascade scale factor, higher finds fewer faces")
	threshold := fs.Int("threshold", app.Tracking.Threshold, "Dead zone in pixels")
	policy := fs.String("policy", string(app.Tracking.Policy), "Face that drives the mount: last, largest or nearest")
	legacyCenter := fs.Bool("legacy-center", app.Tracking.LegacyCenter, "Use the width/height-swapped face center")
	legacy := fs.Bool("legacy", false, "Reproduce the first mount setup: swapped center and last face wins")
	window := fs.Int("window", app.Display.Size, "Preview window size in pixels")
	headless := fs.Bool("headless", app.Display.Headless, "Run without a preview window")
	monitor := fs.String("monitor", app.Monitor.Addr, "Serve the live monitor on this address, e.g. :8090")
	debug := fs.Bool("debug", false, "Enable debug logging")
	listPorts := fs.Bool("list-ports", false, "Print available serial ports and exit")

	if err := fs.Parse(args); err != nil {
		return app, false, err
	}

	app.Link.Port = *port
	app.Link.BaudRate = *baud
	app.Link.DryRun = *dryRun
	app.Camera.Index = *cam
	app.Detection.Backend = strings.ToLower(*backend)
	app.Detection.ModelPath = config.ModelForBackend(app.Detection.Backend, *model)
	app.Detection.Strictness = *strictness
	app.Tracking.Threshold = *threshold
	app.Tracking.Policy = detection.Policy(strings.ToLower(*policy))
	app.Tracking.LegacyCenter = *legacyCenter
	if *legacy {
		app.UseLegacyTracking()
	}
	app.SetWindowSize(*window)
	app.Display.Headless = *headless
	app.Monitor.Addr = *monitor
	if *debug {
		app.Log.Level = "debug"
	}

	if *listPorts {
		return app, true, nil
	}
	if err := app.Validate(); err != nil {
		return app, false, err
	}
	return app, false, nil
}

// run acquires everything in order and releases it in reverse on every path.
// The link comes first so a missing device fails before the camera or window
// are touched.
func run(ctx context.Context, app config.App, session string, open openers) error {
	log.Info("facetrack starting",
		"port", app.Link.Port,
		"baud", app.Link.BaudRate,
		"dry_run", app.Link.DryRun,
		"camera", app.Camera.Index,
		"backend", app.Detection.Backend)

	dev, err := open.link(ctx, app.Link)
	if err != nil {
		return fmt.Errorf("connect mount: %w", err)
	}
	defer func() {
		log.Info("link closed", "port", app.Link.Port, "writes", dev.Writes())
		closeLogged("link", dev)
	}()

	det, err := open.detector(app.Detection)
	if err != nil {
		return fmt.Errorf("load detector: %w", err)
	}
	defer closeLogged("detector", det)

	src, err := open.camera(app.Camera)
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer closeLogged("camera", src)

	sink := open.display(app.Display)
	defer closeLogged("display", sink)

	deps := tracking.Deps{
		Source:  src,
		Locator: det,
		Link:    dev,
		Display: sink,
		Overlay: display.NewOverlay(app.Display),
	}

	if app.MonitorEnabled() {
		mon := web.NewServer(app.Monitor, session, app.Tracking)
		mon.StartAsync(ctx)
		defer mon.Shutdown()
		deps.Observer = mon
	}

	tr := tracking.New(app.Tracking, deps)
	defer tr.Close()

	return tr.Run(ctx)
}

func closeLogged(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", "resource", name, "error", err)
	}
}

func printPorts(w io.Writer) int {
	ports, err := link.ListPorts()
	if err != nil {
		log.Error("list serial ports", "error", err)
		return exitFatal
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return exitOK
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return exitOK
}
