// Package config assembles go-facetrack settings from built-in defaults, an
// optional .env file and FACETRACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-facetrack/internal/log"
	"github.com/teslashibe/go-facetrack/pkg/camera"
	"github.com/teslashibe/go-facetrack/pkg/display"
	"github.com/teslashibe/go-facetrack/pkg/link"
	"github.com/teslashibe/go-facetrack/pkg/tracking"
	"github.com/teslashibe/go-facetrack/pkg/tracking/detection"
	"github.com/teslashibe/go-facetrack/pkg/web"
)

// ErrInvalid is wrapped by every configuration error.
var ErrInvalid = errors.New("config: invalid")

// DefaultYuNetModel is used when the yunet backend is chosen without a model path.
const DefaultYuNetModel = "face_detection_yunet.onnx"

// App is the complete runtime configuration.
type App struct {
	Link      link.Config
	Camera    camera.Config
	Detection detection.Config
	Tracking  tracking.Config
	Display   display.Config

	// Monitor is served only when Monitor.Addr is set.
	Monitor web.Config

	Log log.Options
}

// Default returns the configuration used when nothing is overridden.
func Default() App {
	mon := web.DefaultConfig()
	mon.Addr = ""

	return App{
		Link:      link.DefaultConfig(),
		Camera:    camera.DefaultConfig(),
		Detection: detection.DefaultConfig(),
		Tracking:  tracking.DefaultConfig(),
		Display:   display.DefaultConfig(),
		Monitor:   mon,
		Log:       log.Options{Level: "info"},
	}
}

// Load reads the given .env files (".env" when none are named), then applies
// the environment on top of Default. A missing .env file is not an error.
func Load(files ...string) (App, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return App{}, fmt.Errorf("%w: %s: %v", ErrInvalid, f, err)
		}
	}
	return FromEnv(Default())
}

// FromEnv applies environment overrides to base. Unparseable values are
// reported, not silently ignored.
func FromEnv(base App) (App, error) {
	e := &env{}
	a := base

	a.Link.Port = e.get("FACETRACK_PORT", a.Link.Port)
	a.Link.BaudRate = e.asInt("FACETRACK_BAUD", a.Link.BaudRate)
	a.Link.SettleDelay = e.asDuration("FACETRACK_SETTLE", a.Link.SettleDelay)
	a.Link.DryRun = e.asBool("FACETRACK_DRY_RUN", a.Link.DryRun)

	a.Camera.Index = e.asInt("FACETRACK_CAMERA", a.Camera.Index)

	a.Detection.Backend = strings.ToLower(e.get("FACETRACK_BACKEND", a.Detection.Backend))
	a.Detection.ModelPath = ModelForBackend(a.Detection.Backend, a.Detection.ModelPath)
	a.Detection.ModelPath = e.get("FACETRACK_MODEL", a.Detection.ModelPath)
	a.Detection.Strictness = e.asFloat("FACETRACK_STRICTNESS", a.Detection.Strictness)

	a.Tracking.Threshold = e.asInt("FACETRACK_THRESHOLD", a.Tracking.Threshold)
	a.Tracking.Policy = detection.Policy(strings.ToLower(e.get("FACETRACK_POLICY", string(a.Tracking.Policy))))
	a.Tracking.LegacyCenter = e.asBool("FACETRACK_LEGACY_CENTER", a.Tracking.LegacyCenter)
	if e.asBool("FACETRACK_LEGACY", false) {
		a.UseLegacyTracking()
	}
	if size := e.asInt("FACETRACK_WINDOW", a.Display.Size); size != a.Display.Size {
		a.SetWindowSize(size)
	}

	a.Display.Headless = e.asBool("FACETRACK_HEADLESS", a.Display.Headless)
	a.Monitor.Addr = e.get("FACETRACK_MONITOR", a.Monitor.Addr)

	a.Log.Level = e.get("LOG_LEVEL", a.Log.Level)
	a.Log.File = e.get("LOG_FILE", a.Log.File)
	a.Log.JSON = a.Log.JSON || os.Getenv("GO_ENV") == "production"

	if err := e.err(); err != nil {
		return base, err
	}
	return a, nil
}

// SetWindowSize resizes the preview window and moves the midpoint with it.
func (a *App) SetWindowSize(size int) {
	a.Display.Size = size
	a.Tracking.Midpoint = tracking.MidpointFor(size)
}

// UseLegacyTracking switches to the first mount setup (swapped center,
// last face wins). The dead zone and midpoint are left alone.
func (a *App) UseLegacyTracking() {
	legacy := tracking.LegacyConfig()
	a.Tracking.Policy = legacy.Policy
	a.Tracking.LegacyCenter = legacy.LegacyCenter
}

// ModelForBackend swaps a default model path for the default of backend.
// Explicitly chosen paths are returned unchanged.
func ModelForBackend(backend, model string) string {
	haar := detection.DefaultConfig().ModelPath
	switch {
	case backend == detection.BackendYuNet && model == haar:
		return DefaultYuNetModel
	case backend == detection.BackendHaar && model == DefaultYuNetModel:
		return haar
	}
	return model
}

// MonitorEnabled reports whether the monitor should be started.
func (a *App) MonitorEnabled() bool {
	return a.Monitor.Addr != ""
}

// Validate checks every section and returns an error wrapping ErrInvalid
// that lists all problems, or nil.
func (a *App) Validate() error {
	var problems []string
	add := func(section string, errs []string) {
		for _, e := range errs {
			problems = append(problems, section+": "+e)
		}
	}

	add("link", a.Link.Validate())
	add("camera", a.Camera.Validate())
	add("detection", a.Detection.Validate())
	add("tracking", a.Tracking.Validate())
	add("display", a.Display.Validate())
	if a.MonitorEnabled() {
		add("monitor", a.Monitor.Validate())
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// env reads typed variables and remembers which ones failed to parse.
type env struct {
	bad []string
}

func (e *env) get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (e *env) asInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.bad = append(e.bad, fmt.Sprintf("%s=%q is not an integer", key, v))
		return def
	}
	return n
}

func (e *env) asFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.bad = append(e.bad, fmt.Sprintf("%s=%q is not a number", key, v))
		return def
	}
	return f
}

func (e *env) asBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.bad = append(e.bad, fmt.Sprintf("%s=%q is not a boolean", key, v))
		return def
	}
	return b
}

func (e *env) asDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.bad = append(e.bad, fmt.Sprintf("%s=%q is not a duration", key, v))
		return def
	}
	return d
}

func (e *env) err() error {
	if len(e.bad) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(e.bad, "; "))
}
