package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hearthhome/hearth-core/internal/bus"
	"github.com/hearthhome/hearth-core/internal/device"
)

// Manager owns the live simulator instances, keyed by device ID. A
// simulator exists for as long as its device exists in the registry.
//
// Two mutexes split the work. The state mutex guards the simulator map
// and all device state; it is never held while an event is emitted, so
// bus handlers may call back into the Manager. The dispatch mutex
// serializes complete tick and control cycles, including the rule
// cascade a tick's emission triggers, so cycles never interleave.
type Manager struct {
	events   Bus
	states   StateWriter
	logger   Logger
	rng      *rand.Rand
	now      func() time.Time
	interval time.Duration

	dispatch sync.Mutex
	mu       sync.Mutex
	sims     map[string]*DeviceSimulator

	ctx context.Context
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithRand sets the random source used by all generators. Tests inject
// a seeded source for deterministic readings.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithClock sets the time source. Tests inject a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithDefaultInterval sets the sensor tick period used when a device's
// config does not specify one.
func WithDefaultInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// NewManager creates a simulator manager. Call Start before adding
// devices.
func NewManager(events Bus, states StateWriter, opts ...Option) *Manager {
	m := &Manager{
		events: events,
		states: states,
		logger: noopLogger{},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // Simulation noise, not cryptography
		now:    time.Now,
		sims:   make(map[string]*DeviceSimulator),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start binds the manager to a lifecycle context. Sensor tick
// goroutines stop when the context is cancelled. Individual simulators
// stop through their own stop channel, so StopAll does not consume the
// context and devices added afterwards still tick.
func (m *Manager) Start(ctx context.Context) {
	m.ctx = ctx
}

// AddDevice creates and starts a simulator for the device. If one
// already exists for the ID it is stopped and replaced, which is also
// how reconfiguration works: there is no live update of a running
// simulator.
func (m *Manager) AddDevice(d *device.Device) {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sims[d.ID]; ok {
		existing.stop()
	}

	sim := &DeviceSimulator{
		dev:      d.DeepCopy(),
		gen:      newGenerators(m.rng, m.now),
		events:   m.events,
		states:   m.states,
		logger:   m.logger,
		now:      m.now,
		mu:       &m.mu,
		dispatch: &m.dispatch,
		interval: m.interval,
		stopCh:   make(chan struct{}),
	}
	m.sims[d.ID] = sim
	sim.start(m.lifecycle())

	m.logger.Debug("simulator added", "device_id", d.ID, "category", d.Category, "type", d.Type)
}

// RemoveDevice stops and discards the simulator for the ID. No-op if
// absent.
func (m *Manager) RemoveDevice(id string) {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	sim, ok := m.sims[id]
	if !ok {
		return
	}
	sim.stop()
	delete(m.sims, id)

	m.logger.Debug("simulator removed", "device_id", id)
}

// ControlDevice routes an actuator command to the matching simulator.
// Unknown device IDs are silently dropped.
func (m *Manager) ControlDevice(id, action string, value any) {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	sim, ok := m.lookup(id)
	if !ok {
		m.logger.Debug("control for unknown device dropped", "device_id", id, "action", action)
		return
	}
	sim.control(m.lifecycle(), action, value)
}

// HandleRuleTriggered executes the actuator command carried by a
// rule_triggered event. Subscribe it to bus.EventRuleTriggered.
//
// Rule evaluation usually runs inside a tick cycle that already holds
// the dispatch mutex, so this handler must not take it. It is still
// safe off that path: everything it touches is guarded by the state
// mutex, which is free whenever an event is being emitted.
func (m *Manager) HandleRuleTriggered(evt bus.Event) {
	id, _ := evt.Payload["device_id"].(string)
	action, _ := evt.Payload["action"].(string)
	if id == "" || action == "" {
		return
	}

	sim, ok := m.lookup(id)
	if !ok {
		m.logger.Debug("rule action for unknown device dropped", "device_id", id, "action", action)
		return
	}
	sim.control(m.lifecycle(), action, evt.Payload["action_value"])
}

// Tick runs one generation cycle for the device immediately, outside
// its timer. Unknown IDs are ignored.
func (m *Manager) Tick(id string) {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()

	if sim, ok := m.lookup(id); ok {
		sim.tick(m.lifecycle())
	}
}

// Device returns a copy of the simulator's device, or nil if no
// simulator exists for the ID.
func (m *Manager) Device(id string) *device.Device {
	m.mu.Lock()
	defer m.mu.Unlock()

	sim, ok := m.sims[id]
	if !ok {
		return nil
	}
	return sim.dev.DeepCopy()
}

// Count returns the number of live simulators.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sims)
}

// StopAll stops every simulator and clears the registry. The manager
// stays usable: devices added afterwards run normally, which is what a
// data reset relies on.
func (m *Manager) StopAll() {
	m.dispatch.Lock()
	defer m.dispatch.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sim := range m.sims {
		sim.stop()
	}
	m.sims = make(map[string]*DeviceSimulator)

	m.logger.Info("all simulators stopped")
}

// lookup fetches a simulator under the state mutex. The returned
// simulator may be stopped by the time it is used; tick and control
// re-check and bail.
func (m *Manager) lookup(id string) (*DeviceSimulator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sim, ok := m.sims[id]
	return sim, ok
}

func (m *Manager) lifecycle() context.Context {
	if m.ctx != nil {
		return m.ctx
	}
	return context.Background()
}
