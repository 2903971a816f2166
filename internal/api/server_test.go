package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"

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

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
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
		CREATE TABLE rules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			enabled INTEGER NOT NULL DEFAULT 1,
			trigger TEXT NOT NULL,
			action TEXT NOT NULL,
			position INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
		CREATE TABLE logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			type TEXT NOT NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL
		) STRICT;
		CREATE TABLE settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			mode TEXT NOT NULL DEFAULT 'local',
			mqtt_host TEXT NOT NULL DEFAULT 'localhost',
			mqtt_port INTEGER NOT NULL DEFAULT 1883,
			mqtt_base_topic TEXT NOT NULL DEFAULT 'smarthome',
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

// testEnv holds the fully wired application components behind a test server.
type testEnv struct {
	srv      *Server
	router   http.Handler
	registry *device.Registry
	events   *bus.Bus
	manager  *simulator.Manager
	engine   *automation.Engine
	rules    automation.Repository
	logs     audit.Repository
}

// testServer wires the full application stack over in-memory SQLite and
// returns it behind an httptest-compatible router.
func testServer(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	ctx := context.Background()

	roomRepo := location.NewSQLiteRepository(db)
	registry := device.NewRegistry(device.NewSQLiteRepository(db))
	ruleRepo := automation.NewSQLiteRepository(db)
	auditRepo := audit.NewSQLiteRepository(db)
	settingsRepo := settings.NewSQLiteRepository(db)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	events := bus.New(nil)
	recorder := audit.NewRecorder(auditRepo)
	recorder.Subscribe(events)

	engine := automation.NewEngine(events)
	events.Subscribe(bus.EventSensorUpdate, engine.HandleSensorUpdate)

	manager := simulator.NewManager(events, registry,
		simulator.WithRand(rand.New(rand.NewSource(1)))) //nolint:gosec // Deterministic test source
	events.Subscribe(bus.EventRuleTriggered, manager.HandleRuleTriggered)
	manager.Start(ctx)

	seeder := seed.New(roomRepo, registry, ruleRepo, auditRepo, settingsRepo, events)
	if err := seeder.EnsureSeeded(ctx); err != nil {
		t.Fatalf("EnsureSeeded() error = %v", err)
	}

	devices, err := registry.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	// Keep timers out of deterministic tests.
	for i := range devices {
		if devices[i].Config != nil {
			devices[i].Config.UpdateInterval = 3600000
		}
		manager.AddDevice(&devices[i])
	}
	t.Cleanup(manager.StopAll)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
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
		Version:      "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv.hub = NewHub(srv.wsCfg, log)
	srv.refreshSnapshot(ctx)

	return &testEnv{
		srv:      srv,
		router:   srv.buildRouter(),
		registry: registry,
		events:   events,
		manager:  manager,
		engine:   engine,
		rules:    ruleRepo,
		logs:     auditRepo,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["version"] != "test" {
		t.Errorf("version field = %v, want test", body["version"])
	}
}

func TestRoomEndpoints(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/rooms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["count"].(float64) != 3 {
		t.Errorf("seeded room count = %v, want 3", body["count"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/rooms", map[string]any{"id": "room_4", "name": "Garage"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/rooms", map[string]any{"id": "room_4", "name": "Garage"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/rooms/room_4", map[string]any{"name": "Workshop"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/rooms/room_4", nil)
	if body := decodeBody(t, rec); body["name"] != "Workshop" {
		t.Errorf("updated name = %v, want Workshop", body["name"])
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/rooms/room_4", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/rooms/room_4", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestDeleteRoomRemovesDevices(t *testing.T) {
	env := testServer(t)
	ctx := context.Background()

	// room_3 (Hallway) contains dev_3 and dev_5.
	rec := env.do(t, http.MethodDelete, "/api/v1/rooms/room_3", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	if _, err := env.registry.GetDevice(ctx, "dev_3"); err == nil {
		t.Error("dev_3 should be gone after its room was deleted")
	}
	if env.manager.Device("dev_3") != nil {
		t.Error("dev_3 simulator should be stopped after room delete")
	}
}

func TestDeviceEndpoints(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/devices", nil)
	if body := decodeBody(t, rec); body["count"].(float64) != 9 {
		t.Fatalf("seeded device count = %v, want 9", body["count"])
	}

	rec = env.do(t, http.MethodGet, "/api/v1/devices?room_id=room_2", nil)
	if body := decodeBody(t, rec); body["count"].(float64) != 4 {
		t.Errorf("room_2 device count = %v, want 4", body["count"])
	}

	rec = env.do(t, http.MethodGet, "/api/v1/devices?category=actuator", nil)
	if body := decodeBody(t, rec); body["count"].(float64) != 5 {
		t.Errorf("actuator count = %v, want 5", body["count"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/devices", map[string]any{
		"id":       "dev_10",
		"name":     "Porch Light",
		"room_id":  "room_3",
		"category": "actuator",
		"type":     "light",
		"state":    map[string]any{"powered": false},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if env.manager.Device("dev_10") == nil {
		t.Error("created device should have a simulator")
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/devices/dev_10", map[string]any{"category": "sensor"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("category change status = %d, want 422", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/devices/dev_10", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	if env.manager.Device("dev_10") != nil {
		t.Error("deleted device should have no simulator")
	}

	rec = env.do(t, http.MethodGet, "/api/v1/devices/dev_10", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestControlDevice(t *testing.T) {
	env := testServer(t)
	ctx := context.Background()

	rec := env.do(t, http.MethodPost, "/api/v1/devices/dev_8/control", map[string]any{"action": "on"})
	if rec.Code != http.StatusOK {
		t.Fatalf("control status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	fan, err := env.registry.GetDevice(ctx, "dev_8")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if !fan.State.IsPowered() {
		t.Error("dev_8 should be powered on after control")
	}

	rec = env.do(t, http.MethodPost, "/api/v1/devices/dev_8/control", map[string]any{
		"action": "set_level",
		"value":  55.0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set_level status = %d, want 200", rec.Code)
	}
	fan, _ = env.registry.GetDevice(ctx, "dev_8")
	if fan.State.Level == nil || *fan.State.Level != 55.0 {
		t.Errorf("dev_8 level = %v, want 55", fan.State.Level)
	}

	// Sensors do not accept commands.
	rec = env.do(t, http.MethodPost, "/api/v1/devices/dev_1/control", map[string]any{"action": "on"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("sensor control status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/devices/no_such/control", map[string]any{"action": "on"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown device control status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/devices/dev_8/control", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing action status = %d, want 400", rec.Code)
	}
}

func TestRuleEndpoints(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/rules", nil)
	if body := decodeBody(t, rec); body["count"].(float64) != 2 {
		t.Fatalf("seeded rule count = %v, want 2", body["count"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/rules", map[string]any{
		"name":           "Kettle on high humidity",
		"enabled":        true,
		"if_sensor_id":   "dev_2",
		"condition":      ">",
		"value":          70.0,
		"then_device_id": "dev_7",
		"action":         "on",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("created rule should have a generated ID")
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/rules/"+id, map[string]any{"enabled": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/rules/"+id, nil)
	if body := decodeBody(t, rec); body["enabled"] != false {
		t.Errorf("enabled = %v, want false", body["enabled"])
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/rules/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/rules/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

func TestLogEndpoints(t *testing.T) {
	env := testServer(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		entry := &audit.LogEntry{Type: audit.EntrySystem, Source: "System", Message: fmt.Sprintf("entry %d", i)}
		if err := env.logs.Append(ctx, entry); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	rec := env.do(t, http.MethodGet, "/api/v1/logs", nil)
	if body := decodeBody(t, rec); body["count"].(float64) != 5 {
		t.Errorf("log count = %v, want 5", body["count"])
	}

	rec = env.do(t, http.MethodGet, "/api/v1/logs?limit=2", nil)
	if body := decodeBody(t, rec); body["count"].(float64) != 2 {
		t.Errorf("limited log count = %v, want 2", body["count"])
	}

	rec = env.do(t, http.MethodGet, "/api/v1/logs?limit=0", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero limit status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/logs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d, want 200", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/logs", nil)
	if body := decodeBody(t, rec); body["count"].(float64) != 0 {
		t.Errorf("log count after clear = %v, want 0", body["count"])
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := testServer(t)

	rec := env.do(t, http.MethodGet, "/api/v1/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	if body := decodeBody(t, rec); body["mode"] != "local" {
		t.Errorf("default mode = %v, want local", body["mode"])
	}

	rec = env.do(t, http.MethodPut, "/api/v1/settings", map[string]any{
		"mode": "mqtt",
		"mqtt": map[string]any{"host": "broker.lan", "port": 8883, "base_topic": "home"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPut, "/api/v1/settings", map[string]any{
		"mode": "carrier-pigeon",
		"mqtt": map[string]any{"host": "broker.lan", "port": 8883, "base_topic": "home"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid mode status = %d, want 422", rec.Code)
	}
}

func TestSystemReset(t *testing.T) {
	env := testServer(t)
	ctx := context.Background()

	// Drift away from the defaults.
	rec := env.do(t, http.MethodDelete, "/api/v1/devices/dev_9", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/devices/dev_8/control", map[string]any{"action": "on"})
	if rec.Code != http.StatusOK {
		t.Fatalf("control status = %d, want 200", rec.Code)
	}

	var resets int
	env.events.Subscribe(bus.EventDataReset, func(bus.Event) { resets++ })

	rec = env.do(t, http.MethodPost, "/api/v1/system/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	devices, err := env.registry.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 9 {
		t.Errorf("devices after reset = %d, want 9", len(devices))
	}
	fan, err := env.registry.GetDevice(ctx, "dev_8")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if fan.State.IsPowered() {
		t.Error("dev_8 should be back to powered off after reset")
	}
	if resets != 1 {
		t.Errorf("data_reset events = %d, want 1", resets)
	}
	if env.manager.Count() != 9 {
		t.Errorf("simulators after reset = %d, want 9", env.manager.Count())
	}

	// Reset writes a system entry after clearing the log.
	entries, err := env.logs.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "Data reset to default state" {
		t.Errorf("log after reset = %+v, want single system entry", entries)
	}
}
