// Hearth Core - Smart Home Simulation Engine
//
// This is the main entry point for the Hearth Core application. Hearth
// simulates a small smart home: virtual sensors produce readings on
// timers, actuators respond to commands, and an if-then rule engine
// reacts to sensor events. Everything is persisted in SQLite and exposed
// over a REST API with a WebSocket event stream.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/hearthhome/hearth-core/migrations"

	"github.com/hearthhome/hearth-core/internal/api"
	"github.com/hearthhome/hearth-core/internal/audit"
	"github.com/hearthhome/hearth-core/internal/automation"
	"github.com/hearthhome/hearth-core/internal/bus"
	"github.com/hearthhome/hearth-core/internal/device"
	"github.com/hearthhome/hearth-core/internal/infrastructure/config"
	"github.com/hearthhome/hearth-core/internal/infrastructure/database"
	"github.com/hearthhome/hearth-core/internal/infrastructure/logging"
	"github.com/hearthhome/hearth-core/internal/location"
	"github.com/hearthhome/hearth-core/internal/seed"
	"github.com/hearthhome/hearth-core/internal/settings"
	"github.com/hearthhome/hearth-core/internal/simulator"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration; a missing file means defaults.
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	roomRepo := location.NewSQLiteRepository(db.DB)
	ruleRepo := automation.NewSQLiteRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	settingsRepo := settings.NewSQLiteRepository(db.DB)

	// Device registry
	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}

	// Event bus with audit trail
	events := bus.New(log)
	recorder := audit.NewRecorder(auditRepo, audit.WithLogger(log))
	recorder.Subscribe(events)

	// Rule engine reacts to sensor updates
	engine := automation.NewEngine(events, automation.WithLogger(log))
	events.Subscribe(bus.EventSensorUpdate, engine.HandleSensorUpdate)

	// Simulator manager executes rule actions and actuator commands
	manager := simulator.NewManager(events, registry,
		simulator.WithLogger(log),
		simulator.WithDefaultInterval(cfg.DefaultSensorInterval()))
	events.Subscribe(bus.EventRuleTriggered, manager.HandleRuleTriggered)
	manager.Start(ctx)
	defer manager.StopAll()

	// Seed demo data into an empty store
	seeder := seed.New(roomRepo, registry, ruleRepo, auditRepo, settingsRepo, events,
		seed.WithLogger(log))
	if cfg.Simulator.SeedDemoData {
		if seedErr := seeder.EnsureSeeded(ctx); seedErr != nil {
			return fmt.Errorf("seeding demo data: %w", seedErr)
		}
	}

	// Start a simulator per device
	devices, err := registry.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	for i := range devices {
		manager.AddDevice(&devices[i])
	}
	log.Info("simulators started", "devices", manager.Count())

	// Load the initial rule set into the engine
	rules, err := ruleRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing rules: %w", err)
	}
	engine.SetSnapshot(rules, devices)
	log.Info("rule engine initialised", "rules", len(rules))

	// Start API server
	server, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Logger:       log,
		Registry:     registry,
		LocationRepo: roomRepo,
		RuleRepo:     ruleRepo,
		AuditRepo:    auditRepo,
		Recorder:     recorder,
		SettingsRepo: settingsRepo,
		Manager:      manager,
		Engine:       engine,
		Seeder:       seeder,
		Bus:          events,
		Version:      version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	recorder.System("Application started")
	log.Info("Hearth Core running",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")
	recorder.System("Application stopped")

	return nil
}

// loadConfig reads the configuration file named by HEARTH_CONFIG (or the
// default path). A missing file is not an error; defaults apply.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("HEARTH_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return config.Load(path)
}
