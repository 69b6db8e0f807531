// Package api serves the local control API: settings, live results,
// on-demand explanations and metrics.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TechnicallyShaun/askollama/internal/screenshot"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/logging"
	"github.com/TechnicallyShaun/askollama/internal/screenshot/pubsub"
)

// DefaultHeartbeat is the interval between SSE keep-alive comments.
const DefaultHeartbeat = 15 * time.Second

// Backend is the part of the service the API exposes.
type Backend interface {
	Settings() *screenshot.SettingsStore
	SaveSettings() error
	ReloadSettings() (screenshot.Settings, error)
	Explainer() screenshot.Explainer
	Broker() *pubsub.Broker
	Registry() *prometheus.Registry
}

// Server is the HTTP control API.
type Server struct {
	app  *fiber.App
	addr string
}

// Option configures the Server.
type Option func(*Handler)

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewServer creates the API server listening on addr.
func NewServer(addr string, backend Backend, logger *logging.FileLogger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("api")

	handler := NewHandler(backend, logger)
	for _, opt := range opts {
		opt(handler)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
		AppName:               "askollama",
		DisableStartupMessage: true,
	})

	app.Use(RequestLogger(logger))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	RegisterRoutes(app, handler)
	app.Get("/metrics", adaptor.HTTPHandler(
		promhttp.HandlerFor(backend.Registry(), promhttp.HandlerOpts{}),
	))

	return &Server{app: app, addr: addr}
}

// RegisterRoutes registers the settings, events and explain routes.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/settings", handler.GetSettings)
	app.Put("/settings", handler.PutSettings)
	app.Post("/settings/save", handler.SaveSettings)
	app.Post("/settings/reload", handler.ReloadSettings)

	app.Get("/events", handler.Events)
	app.Post("/explain", handler.Explain)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	return s.app.Listen(s.addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
