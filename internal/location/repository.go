package location

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for room persistence operations.
type Repository interface {
	CreateRoom(ctx context.Context, room *Room) error
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id string) (*Room, error)
	UpdateRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, id string) error
	DeleteAllRooms(ctx context.Context) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed room repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateRoom inserts a new room into the database.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	if err := validateRoom(room); err != nil {
		return err
	}

	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now

	const query = `INSERT INTO rooms (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		room.ID, room.Name, formatTime(room.CreatedAt), formatTime(room.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrRoomExists, room.ID)
		}
		return fmt.Errorf("inserting room %s: %w", room.ID, err)
	}
	return nil
}

// ListRooms returns all rooms ordered by name.
func (r *SQLiteRepository) ListRooms(ctx context.Context) ([]Room, error) {
	const query = `SELECT id, name, created_at, updated_at FROM rooms ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only query

	var rooms []Room
	for rows.Next() {
		rm, err := scanRoomRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		rooms = append(rooms, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room rows: %w", err)
	}
	return rooms, nil
}

// GetRoom returns a single room by ID.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id string) (*Room, error) {
	const query = `SELECT id, name, created_at, updated_at FROM rooms WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)

	var rm Room
	var createdAt, updatedAt string
	err := row.Scan(&rm.ID, &rm.Name, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("scanning room: %w", err)
	}
	rm.CreatedAt = parseTime(createdAt)
	rm.UpdatedAt = parseTime(updatedAt)
	return &rm, nil
}

// UpdateRoom updates an existing room's name.
func (r *SQLiteRepository) UpdateRoom(ctx context.Context, room *Room) error {
	if err := validateRoom(room); err != nil {
		return err
	}

	room.UpdatedAt = time.Now().UTC()

	const query = `UPDATE rooms SET name = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, room.Name, formatTime(room.UpdatedAt), room.ID)
	if err != nil {
		return fmt.Errorf("updating room %s: %w", room.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteRoom removes a room by ID. Devices in the room are removed by
// the foreign key cascade.
func (r *SQLiteRepository) DeleteRoom(ctx context.Context, id string) error {
	const query = `DELETE FROM rooms WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting room %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeleteAllRooms removes every room. Used by the reset operation.
func (r *SQLiteRepository) DeleteAllRooms(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms`)
	if err != nil {
		return 0, fmt.Errorf("deleting all rooms: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking delete result: %w", err)
	}
	return affected, nil
}

// scanRoomRow scans a room from a Rows cursor.
func scanRoomRow(rows *sql.Rows) (*Room, error) {
	var rm Room
	var createdAt, updatedAt string

	if err := rows.Scan(&rm.ID, &rm.Name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rm.CreatedAt = parseTime(createdAt)
	rm.UpdatedAt = parseTime(updatedAt)
	return &rm, nil
}

// validateRoom checks structural validity before persistence.
func validateRoom(room *Room) error {
	if room == nil {
		return fmt.Errorf("%w: nil room", ErrInvalidRoom)
	}
	if room.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRoom)
	}
	if room.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRoom)
	}
	return nil
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

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
