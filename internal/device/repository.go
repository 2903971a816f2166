package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
type Repository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, id string) (*Device, error)
	List(ctx context.Context) ([]Device, error)
	ListByRoom(ctx context.Context, roomID string) ([]Device, error)
	ListByCategory(ctx context.Context, category Category) ([]Device, error)
	Update(ctx context.Context, device *Device) error
	UpdateState(ctx context.Context, id string, state State, lastSeen time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository using SQLite. State and config
// are stored as JSON text columns.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const deviceColumns = `id, name, category, type, room_id, state, config, last_seen, created_at, updated_at`

// Create inserts a new device into the database.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	if err := ValidateDevice(device); err != nil {
		return err
	}

	now := time.Now().UTC()
	device.CreatedAt = now
	device.UpdatedAt = now

	stateJSON, configJSON, err := marshalDevice(device)
	if err != nil {
		return err
	}

	const query = `INSERT INTO devices (` + deviceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		device.ID, device.Name, string(device.Category), device.Type, device.RoomID,
		stateJSON, configJSON, nullTime(device.LastSeen),
		formatTime(device.CreatedAt), formatTime(device.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDeviceExists, device.ID)
		}
		return fmt.Errorf("inserting device %s: %w", device.ID, err)
	}
	return nil
}

// GetByID returns a single device by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	const query = `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDevice(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}
	return d, nil
}

// List returns all devices ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	const query = `SELECT ` + deviceColumns + ` FROM devices ORDER BY id`
	return r.queryDevices(ctx, query)
}

// ListByRoom returns devices in a specific room.
func (r *SQLiteRepository) ListByRoom(ctx context.Context, roomID string) ([]Device, error) {
	const query = `SELECT ` + deviceColumns + ` FROM devices WHERE room_id = ? ORDER BY id`
	return r.queryDevices(ctx, query, roomID)
}

// ListByCategory returns devices of a specific category.
func (r *SQLiteRepository) ListByCategory(ctx context.Context, category Category) ([]Device, error) {
	const query = `SELECT ` + deviceColumns + ` FROM devices WHERE category = ? ORDER BY id`
	return r.queryDevices(ctx, query, string(category))
}

// Update replaces an existing device record. Category is not written;
// it is fixed at creation.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	if err := ValidateDevice(device); err != nil {
		return err
	}

	device.UpdatedAt = time.Now().UTC()

	stateJSON, configJSON, err := marshalDevice(device)
	if err != nil {
		return err
	}

	const query = `UPDATE devices
		SET name = ?, type = ?, room_id = ?, state = ?, config = ?, last_seen = ?, updated_at = ?
		WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		device.Name, device.Type, device.RoomID, stateJSON, configJSON,
		nullTime(device.LastSeen), formatTime(device.UpdatedAt), device.ID)
	if err != nil {
		return fmt.Errorf("updating device %s: %w", device.ID, err)
	}
	return checkAffected(result, ErrDeviceNotFound)
}

// UpdateState writes only the state and last_seen columns. Used on the
// hot path for every sensor tick and actuator command.
func (r *SQLiteRepository) UpdateState(ctx context.Context, id string, state State, lastSeen time.Time) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	const query = `UPDATE devices SET state = ?, last_seen = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		string(stateJSON), formatTime(lastSeen), formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("updating device state %s: %w", id, err)
	}
	return checkAffected(result, ErrDeviceNotFound)
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device %s: %w", id, err)
	}
	return checkAffected(result, ErrDeviceNotFound)
}

// DeleteAll removes every device. Used by the reset operation.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices`)
	if err != nil {
		return 0, fmt.Errorf("deleting all devices: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking delete result: %w", err)
	}
	return affected, nil
}

// queryDevices executes a query and returns a slice of Device.
func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only query

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// scanDevice scans one device row via the provided scan function, so
// QueryRow and Rows share the same column handling.
func scanDevice(scan func(dest ...any) error) (*Device, error) {
	var d Device
	var category, stateJSON, configJSON string
	var lastSeen sql.NullString
	var createdAt, updatedAt string

	err := scan(&d.ID, &d.Name, &category, &d.Type, &d.RoomID,
		&stateJSON, &configJSON, &lastSeen, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	d.Category = Category(category)
	if err := json.Unmarshal([]byte(stateJSON), &d.State); err != nil {
		return nil, fmt.Errorf("parsing state JSON: %w", err)
	}
	if configJSON != "" && configJSON != "{}" && configJSON != "null" {
		var cfg SensorConfig
		if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config JSON: %w", err)
		}
		d.Config = &cfg
	}
	if lastSeen.Valid {
		t := parseTime(lastSeen.String)
		d.LastSeen = &t
	}
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

// marshalDevice renders the state and config columns.
func marshalDevice(device *Device) (stateJSON, configJSON string, err error) {
	sb, err := json.Marshal(device.State)
	if err != nil {
		return "", "", fmt.Errorf("marshalling state: %w", err)
	}
	configJSON = "{}"
	if device.Config != nil {
		cb, err := json.Marshal(device.Config)
		if err != nil {
			return "", "", fmt.Errorf("marshalling config: %w", err)
		}
		configJSON = string(cb)
	}
	return string(sb), configJSON, nil
}

// checkAffected maps a zero-row result to a not-found error.
func checkAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking result: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

// nullTime converts an optional timestamp for a nullable column.
func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// formatTime renders a timestamp for storage as RFC3339 UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime converts a stored RFC3339 string back to time.Time.
// Unparseable values return the zero time rather than failing the scan.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
