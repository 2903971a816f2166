package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hearthhome/hearth-core/internal/audit"
	"github.com/hearthhome/hearth-core/internal/automation"
	"github.com/hearthhome/hearth-core/internal/bus"
	"github.com/hearthhome/hearth-core/internal/device"
	"github.com/hearthhome/hearth-core/internal/infrastructure/config"
	"github.com/hearthhome/hearth-core/internal/infrastructure/logging"
	"github.com/hearthhome/hearth-core/internal/location"
	"github.com/hearthhome/hearth-core/internal/seed"
	"github.com/hearthhome/hearth-core/internal/settings"
	"github.com/hearthhome/hearth-core/internal/simulator"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Logger       *logging.Logger
	Registry     *device.Registry
	LocationRepo location.Repository
	RuleRepo     automation.Repository
	AuditRepo    audit.Repository
	Recorder     *audit.Recorder
	SettingsRepo settings.Repository
	Manager      *simulator.Manager
	Engine       *automation.Engine
	Seeder       *seed.Seeder
	Bus          *bus.Bus
	Version      string
}

// Server is the HTTP API server for Hearth Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	logger       *logging.Logger
	registry     *device.Registry
	locationRepo location.Repository
	ruleRepo     automation.Repository
	auditRepo    audit.Repository
	recorder     *audit.Recorder
	settingsRepo settings.Repository
	manager      *simulator.Manager
	engine       *automation.Engine
	seeder       *seed.Seeder
	events       *bus.Bus
	version      string
	server       *http.Server
	hub          *Hub
	cancel       context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Manager == nil {
		return nil, fmt.Errorf("simulator manager is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("automation engine is required")
	}

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		registry:     deps.Registry,
		locationRepo: deps.LocationRepo,
		ruleRepo:     deps.RuleRepo,
		auditRepo:    deps.AuditRepo,
		recorder:     deps.Recorder,
		settingsRepo: deps.SettingsRepo,
		manager:      deps.Manager,
		engine:       deps.Engine,
		seeder:       deps.Seeder,
		events:       deps.Bus,
		version:      deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, subscribes to the event
// bus for real-time WebSocket broadcast, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay bus events to WebSocket clients.
	if s.events != nil {
		s.hub.SubscribeBus(s.events)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// refreshSnapshot reloads the rule and device sets into the automation
// engine. Callers invoke it after any mutation that changes what the
// engine should see.
func (s *Server) refreshSnapshot(ctx context.Context) {
	rules, err := s.ruleRepo.List(ctx)
	if err != nil {
		s.logger.Error("failed to reload rules for engine", "error", err)
		return
	}
	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		s.logger.Error("failed to reload devices for engine", "error", err)
		return
	}
	s.engine.SetSnapshot(rules, devices)
}
