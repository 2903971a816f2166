package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			category TEXT NOT NULL,
			type TEXT NOT NULL,
			room_id TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '{}',
			config TEXT NOT NULL DEFAULT '{}',
			last_seen TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testSensor("dev_1")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "dev_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Category != CategorySensor {
		t.Errorf("Category = %q, want sensor", got.Category)
	}
	if got.Config == nil || got.Config.UpdateInterval != 2000 {
		t.Errorf("Config not round-tripped: %+v", got.Config)
	}
	if got.Config.Mode != ModeSmooth {
		t.Errorf("Mode = %q, want smooth", got.Config.Mode)
	}
	if v, ok := got.State.Value.(float64); !ok || v != 21.5 {
		t.Errorf("State.Value = %v, want 21.5", got.State.Value)
	}
}

func TestRepositoryActuatorRoundTrip(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testActuator("dev_8")
	level := 75.0
	d.State.Level = &level
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "dev_8")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.State.Powered == nil || *got.State.Powered {
		t.Errorf("Powered = %v, want false", got.State.Powered)
	}
	if got.State.Level == nil || *got.State.Level != 75.0 {
		t.Errorf("Level = %v, want 75", got.State.Level)
	}
	if got.Config != nil {
		t.Errorf("actuator Config = %+v, want nil", got.Config)
	}
}

func TestRepositoryDuplicateCreate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testSensor("dev_1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, testSensor("dev_1")); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("error = %v, want ErrDeviceExists", err)
	}
}

func TestRepositoryUpdateState(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testSensor("dev_1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now := time.Now().UTC()
	if err := repo.UpdateState(ctx, "dev_1", NewSensorState(25.1), now); err != nil {
		t.Fatalf("UpdateState() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "dev_1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if v, ok := got.State.Value.(float64); !ok || v != 25.1 {
		t.Errorf("State.Value = %v, want 25.1", got.State.Value)
	}
	if got.LastSeen == nil {
		t.Error("LastSeen not persisted")
	}
}

func TestRepositoryUpdateStateNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.UpdateState(context.Background(), "missing", NewSensorState(1.0), time.Now())
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRepositoryListByRoomAndCategory(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	s1 := testSensor("dev_1")
	s2 := testSensor("dev_2")
	s2.RoomID = "room_2"
	a1 := testActuator("dev_8")

	for _, d := range []*Device{s1, s2, a1} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.ID, err)
		}
	}

	room1, err := repo.ListByRoom(ctx, "room_1")
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(room1) != 2 {
		t.Errorf("len(room1) = %d, want 2", len(room1))
	}

	sensors, err := repo.ListByCategory(ctx, CategorySensor)
	if err != nil {
		t.Fatalf("ListByCategory() error = %v", err)
	}
	if len(sensors) != 2 {
		t.Errorf("len(sensors) = %d, want 2", len(sensors))
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testSensor("dev_1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, "dev_1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "dev_1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second delete error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRepositoryDeleteAll(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"dev_1", "dev_2", "dev_3"} {
		if err := repo.Create(ctx, testSensor(id)); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	n, err := repo.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d devices, want 3", n)
	}
}

func TestDeviceDeepCopy(t *testing.T) {
	d := testActuator("dev_8")
	level := 50.0
	d.State.Level = &level
	now := time.Now().UTC()
	d.LastSeen = &now

	cpy := d.DeepCopy()
	*cpy.State.Powered = true
	*cpy.State.Level = 99.0
	cpy.Name = "Changed"

	if d.State.IsPowered() {
		t.Error("original powered flag mutated through copy")
	}
	if *d.State.Level != 50.0 {
		t.Error("original level mutated through copy")
	}
	if d.Name != "Test Actuator" {
		t.Error("original name mutated through copy")
	}
}
