package seed

import (
	"context"
	"fmt"

	"github.com/hearthhome/hearth-core/internal/automation"
	"github.com/hearthhome/hearth-core/internal/bus"
	"github.com/hearthhome/hearth-core/internal/device"
	"github.com/hearthhome/hearth-core/internal/location"
	"github.com/hearthhome/hearth-core/internal/settings"
)

// Logger is the minimal logging interface the seeder needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bus is the event emission surface used during a reset.
type Bus interface {
	Emit(eventType string, payload map[string]any)
}

// Seeder installs the demo dataset and handles full resets back to it.
type Seeder struct {
	rooms    location.Repository
	devices  *device.Registry
	rules    automation.Repository
	logs     audit
	settings settings.Repository
	events   Bus
	logger   Logger
}

// audit is the slice of the audit repository the seeder touches.
type audit interface {
	DeleteAll(ctx context.Context) (int64, error)
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithLogger attaches a logger.
func WithLogger(logger Logger) Option {
	return func(s *Seeder) { s.logger = logger }
}

// New creates a Seeder over the given stores. events may be nil when no
// reset notifications are wanted.
func New(rooms location.Repository, devices *device.Registry, rules automation.Repository, logs audit, sets settings.Repository, events Bus, opts ...Option) *Seeder {
	s := &Seeder{
		rooms:    rooms,
		devices:  devices,
		rules:    rules,
		logs:     logs,
		settings: sets,
		events:   events,
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSeeded installs the demo dataset if the store holds no rooms and
// no devices. Existing data is left untouched.
func (s *Seeder) EnsureSeeded(ctx context.Context) error {
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("listing rooms: %w", err)
	}
	devices, err := s.devices.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	if len(rooms) > 0 || len(devices) > 0 {
		s.logger.Debug("store already populated, skipping seed",
			"rooms", len(rooms), "devices", len(devices))
		return nil
	}

	s.logger.Info("empty store, installing demo dataset")
	return s.apply(ctx)
}

// Reset wipes every collection, restores the demo dataset and default
// settings, and emits a data_reset event.
func (s *Seeder) Reset(ctx context.Context) error {
	if _, err := s.rules.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clearing rules: %w", err)
	}
	if _, err := s.devices.DeleteAllDevices(ctx); err != nil {
		return fmt.Errorf("clearing devices: %w", err)
	}
	if _, err := s.rooms.DeleteAllRooms(ctx); err != nil {
		return fmt.Errorf("clearing rooms: %w", err)
	}
	if _, err := s.logs.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clearing logs: %w", err)
	}
	if err := s.settings.Reset(ctx); err != nil {
		return fmt.Errorf("resetting settings: %w", err)
	}

	if err := s.apply(ctx); err != nil {
		return err
	}

	s.logger.Info("store reset to demo dataset")
	if s.events != nil {
		s.events.Emit(bus.EventDataReset, map[string]any{})
	}
	return nil
}

func (s *Seeder) apply(ctx context.Context) error {
	for _, room := range DefaultRooms() {
		r := room
		if err := s.rooms.CreateRoom(ctx, &r); err != nil {
			return fmt.Errorf("seeding room %s: %w", room.ID, err)
		}
	}
	for _, dev := range DefaultDevices() {
		d := dev
		if err := s.devices.CreateDevice(ctx, &d); err != nil {
			return fmt.Errorf("seeding device %s: %w", dev.ID, err)
		}
	}
	for _, rule := range DefaultRules() {
		r := rule
		if err := s.rules.Create(ctx, &r); err != nil {
			return fmt.Errorf("seeding rule %s: %w", rule.ID, err)
		}
	}
	return nil
}
