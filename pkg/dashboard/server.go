// Package dashboard serves the control panel for the detection process:
// start and stop it, trigger calibration, edit settings, tail its output
// and preview the webcam.
package dashboard

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-blindaid/pkg/hub"
)

//go:embed static
var staticFS embed.FS

// Defaults for the dashboard.
const (
	DefaultPort     = "8181"
	DefaultLogTail  = 25
	CalibrationHint = "Say 'calibrate' after the window opens."
)

// PreviewFunc returns a JPEG snapshot of the webcam.
type PreviewFunc func() ([]byte, error)

// Config configures the dashboard server.
type Config struct {
	Port         string
	SettingsPath string
	LogTail      int

	// Preview is optional; without it /api/preview.jpg answers 404.
	Preview PreviewFunc

	Supervisor SupervisorConfig
	Logger     *slog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	sup    *Supervisor
	logHub *hub.Hub

	// ctx bounds supervised processes; set by Run.
	ctxMu sync.RWMutex
	ctx   context.Context

	// serializes settings read-modify-write
	settingsMu sync.Mutex
}

// NewServer wires routes and the supervisor. Call Run to serve.
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}
	if cfg.LogTail <= 0 {
		cfg.LogTail = DefaultLogTail
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "dashboard.server"),
		logHub: hub.New("logs", cfg.Logger),
		ctx:    context.Background(),
	}
	supCfg := cfg.Supervisor
	if supCfg.SettingsPath == "" {
		supCfg.SettingsPath = cfg.SettingsPath
	}
	if supCfg.Logger == nil {
		supCfg.Logger = cfg.Logger
	}
	supCfg.Hub = s.logHub
	s.sup = NewSupervisor(supCfg)

	app := fiber.New(fiber.Config{
		AppName:               "BlindAid Dashboard",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/detection/start", s.handleStart)
	api.Post("/detection/stop", s.handleStop)
	api.Post("/calibration", s.handleCalibration)
	api.Get("/settings", s.handleGetSettings)
	api.Put("/settings", s.handlePutSettings)
	api.Get("/logs", s.handleGetLogs)
	api.Get("/preview.jpg", s.handlePreview)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	app.Use("/", filesystem.New(filesystem.Config{
		Root:       http.FS(staticFS),
		PathPrefix: "static",
		Index:      "index.html",
	}))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Supervisor returns the detection process supervisor.
func (s *Server) Supervisor() *Supervisor {
	return s.sup
}

// Run serves until ctx is done, then stops any running detection process
// and shuts the server down.
func (s *Server) Run(ctx context.Context) error {
	s.ctxMu.Lock()
	s.ctx = ctx
	s.ctxMu.Unlock()

	go s.logHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "url", "http://localhost:"+s.cfg.Port)
		errCh <- s.app.Listen(":" + s.cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*DefaultStopTimeout)
	defer cancel()
	if err := s.sup.Stop(stopCtx); err != nil && !errors.Is(err, ErrNotRunning) {
		s.logger.Warn("stop detection process", "error", err)
	}
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

func (s *Server) processContext() context.Context {
	s.ctxMu.RLock()
	defer s.ctxMu.RUnlock()
	return s.ctx
}
