package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Mode selects the execution backend.
type Mode string

// Mode constants. ModeMQTT is accepted and persisted but has no
// execution backend; selecting it changes nothing in the core.
const (
	ModeLocal Mode = "local"
	ModeMQTT  Mode = "mqtt"
)

// AllModes returns all valid mode values.
func AllModes() []Mode {
	return []Mode{ModeLocal, ModeMQTT}
}

// ErrInvalidSettings is returned when a settings patch fails validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds the application settings singleton.
type Settings struct {
	Mode Mode       `json:"mode"`
	MQTT MQTTConfig `json:"mqtt"`
}

// MQTTConfig holds broker parameters for the unimplemented remote mode.
type MQTTConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	BaseTopic string `json:"base_topic"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Mode: ModeLocal,
		MQTT: MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "smarthome",
		},
	}
}

// Validate checks a settings value.
func (s Settings) Validate() error {
	switch s.Mode {
	case ModeLocal, ModeMQTT:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSettings, s.Mode)
	}
	if s.MQTT.Host == "" {
		return fmt.Errorf("%w: missing mqtt host", ErrInvalidSettings)
	}
	if s.MQTT.Port < 1 || s.MQTT.Port > 65535 {
		return fmt.Errorf("%w: mqtt port %d out of range", ErrInvalidSettings, s.MQTT.Port)
	}
	if s.MQTT.BaseTopic == "" {
		return fmt.Errorf("%w: missing mqtt base_topic", ErrInvalidSettings)
	}
	return nil
}

// Repository defines the interface for settings persistence.
type Repository interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, s Settings) error
	Reset(ctx context.Context) error
}

// SQLiteRepository implements Repository on the single-row settings
// table. A missing row reads as the defaults.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed settings repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the stored settings, or the defaults when no row exists.
func (r *SQLiteRepository) Get(ctx context.Context) (Settings, error) {
	const query = `SELECT mode, mqtt_host, mqtt_port, mqtt_base_topic FROM settings WHERE id = 1`

	var s Settings
	var mode string
	err := r.db.QueryRowContext(ctx, query).Scan(&mode, &s.MQTT.Host, &s.MQTT.Port, &s.MQTT.BaseTopic)
	if err != nil {
		if err == sql.ErrNoRows {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}
	s.Mode = Mode(mode)
	return s, nil
}

// Update replaces the stored settings after validation.
func (r *SQLiteRepository) Update(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	const query = `INSERT INTO settings (id, mode, mqtt_host, mqtt_port, mqtt_base_topic, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode = excluded.mode,
			mqtt_host = excluded.mqtt_host,
			mqtt_port = excluded.mqtt_port,
			mqtt_base_topic = excluded.mqtt_base_topic,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		string(s.Mode), s.MQTT.Host, s.MQTT.Port, s.MQTT.BaseTopic,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Reset restores the default settings.
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	return r.Update(ctx, Default())
}
