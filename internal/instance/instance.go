// Package instance implements the lifecycle of a single embedded PostgreSQL
// instance: provisioning, start, stop and one-shot teardown, with bounded
// lifecycle operations and cached connection information.
package instance

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/pgembed/internal/engine"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
)

// DriverFactory creates the engine driver for an instance configuration.
// The manager calls it lazily, the first time a driver is needed.
type DriverFactory func(cfg model.InstanceConfig) (engine.Driver, error)

// ManagerConfig is the configuration for the instance manager.
type ManagerConfig struct {
	// Config is the instance configuration. Defaults are applied and the
	// result validated on New.
	Config model.InstanceConfig
	// DriverFactory creates the engine driver the first time one is needed.
	// Required unless Driver is set.
	DriverFactory DriverFactory
	// Driver is an already provisioned driver to adopt, for resuming
	// instances whose server is tracked externally. Optional.
	Driver engine.Driver
	// InitialStatus seeds the lifecycle status, for resuming instances whose
	// server is tracked externally (e.g. the CLI registry). Defaults to
	// stopped.
	InitialStatus model.InstanceStatus
	Logger        log.Logger
}

func (c *ManagerConfig) defaults() error {
	if c.DriverFactory == nil && c.Driver == nil {
		return fmt.Errorf("driver factory is required")
	}

	c.Config = c.Config.Defaults()
	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("invalid instance config: %w", err)
	}

	if c.InitialStatus == "" {
		c.InitialStatus = model.InstanceStatusStopped
	}
	if !c.InitialStatus.Valid() {
		return fmt.Errorf("unknown initial status %q: %w", c.InitialStatus, model.ErrNotValid)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Manager owns one PostgreSQL instance and drives its lifecycle
// (stopped -> starting -> running -> stopping -> stopped).
//
// The manager serializes its recorded state, not whole operations: two
// overlapping Start calls can both observe stopped and race on the driver.
// A manager is meant to have a single owner issuing one lifecycle operation
// at a time; what is guaranteed is that the recorded state is never corrupted
// and teardown happens exactly once.
type Manager struct {
	id          string
	fingerprint string
	cfg         model.InstanceConfig
	newDriver   DriverFactory
	logger      log.Logger

	state *stateStore
	cache *connCache
	guard *disposeGuard

	mu     sync.Mutex // Guards driver.
	driver engine.Driver

	startupMu   sync.Mutex // Guards startupTime.
	startupTime *time.Duration
}

// disposeGuard is the one-shot teardown flag, shared between explicit Cleanup
// and the best-effort implicit cleanup so they can't both release resources.
type disposeGuard struct {
	disposed atomic.Bool
}

// implicitCleanup holds what the garbage-collection cleanup needs. It must
// not reference the Manager itself.
type implicitCleanup struct {
	id     string
	guard  *disposeGuard
	state  *stateStore
	logger log.Logger
}

// NewManager creates a new instance manager in the stopped state, without
// provisioning anything: the driver is created lazily on Setup/Start.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	fingerprint := Fingerprint(cfg.Config.Host, cfg.Config.Port, cfg.Config.Username, cfg.Config.Password)
	logger := cfg.Logger.WithValues(log.Kv{"svc": "instance.Manager", "instance-id": id})

	m := &Manager{
		id:          id,
		fingerprint: fingerprint,
		cfg:         cfg.Config,
		newDriver:   cfg.DriverFactory,
		logger:      logger,
		state:       newStateStore(cfg.InitialStatus, logger),
		cache:       newConnCache(logger),
		guard:       &disposeGuard{},
		driver:      cfg.Driver,
	}

	// Implicit cleanup for managers dropped without Cleanup. It is a caller
	// bug safety net, not a teardown path: it can't do asynchronous work, so
	// it only resets in-process state and reports the leak. The server
	// process, if any, is left to the OS.
	runtime.AddCleanup(m, func(ic implicitCleanup) {
		if !ic.guard.disposed.CompareAndSwap(false, true) {
			return
		}
		ic.logger.Warningf("instance %s discarded without Cleanup, releasing in-process state only", ic.id)
		ic.state.Write(model.InstanceStatusStopped)
	}, implicitCleanup{id: id, guard: m.guard, state: m.state, logger: logger})

	logger.Debugf("created instance manager (fingerprint: %s)", fingerprint)

	return m, nil
}

// ID returns the process-unique, time-ordered instance identifier.
func (m *Manager) ID() string { return m.id }

// Fingerprint returns the stable configuration fingerprint, usable as a
// cache/deduplication key by callers.
func (m *Manager) Fingerprint() string { return m.fingerprint }

// Config returns the instance configuration with defaults applied.
func (m *Manager) Config() model.InstanceConfig { return m.cfg }

// Status returns the current lifecycle status.
func (m *Manager) Status() model.InstanceStatus { return m.state.Read() }

// Healthy returns whether the instance is running and has a live driver.
func (m *Manager) Healthy() bool {
	return m.state.Read() == model.InstanceStatusRunning && m.getDriver() != nil
}

// Setup provisions the instance without starting it. It can be called from
// any state; Start calls it automatically when needed.
func (m *Manager) Setup(ctx context.Context) error {
	m.logger.Infof("provisioning instance on port %d", m.cfg.Port)
	m.state.Write(model.InstanceStatusStarting)

	drv := m.getDriver()
	if drv == nil {
		if m.newDriver == nil {
			m.state.Write(model.InstanceStatusStopped)
			return fmt.Errorf("adopted driver already released and no factory available: %w", model.ErrSetupFailed)
		}
		var err error
		drv, err = m.newDriver(m.cfg)
		if err != nil {
			m.state.Write(model.InstanceStatusStopped)
			return fmt.Errorf("could not create driver: %v: %w", err, model.ErrSetupFailed)
		}
	}

	if err := drv.Provision(ctx); err != nil {
		m.state.Write(model.InstanceStatusStopped)
		// Don't retain a half-provisioned driver.
		m.setDriver(nil)
		if closeErr := drv.Close(context.WithoutCancel(ctx)); closeErr != nil {
			m.logger.Warningf("could not release driver after failed provisioning: %v", closeErr)
		}
		return fmt.Errorf("could not provision instance: %v: %w", err, model.ErrSetupFailed)
	}

	m.setDriver(drv)
	m.state.Write(model.InstanceStatusStopped)
	m.logger.Infof("instance provisioned")

	return nil
}

// Start starts the instance and waits until it accepts connections, honoring
// the context deadline. If the instance was never provisioned it provisions
// it first.
//
// Starting an already running or starting instance is an error, not a no-op.
// If the deadline elapses the instance is presumed not running: the state is
// forced to stopped and the operation's eventual outcome is disregarded.
func (m *Manager) Start(ctx context.Context) error {
	switch st := m.state.Read(); st {
	case model.InstanceStatusRunning:
		return fmt.Errorf("instance is already running: %w", model.ErrStartFailed)
	case model.InstanceStatusStarting:
		return fmt.Errorf("instance is already starting: %w", model.ErrStartFailed)
	}

	startT := time.Now()
	m.logger.Infof("starting instance on port %d", m.cfg.Port)

	// Lazy provisioning: the common case is Start without a previous Setup.
	if m.getDriver() == nil {
		if err := m.Setup(ctx); err != nil {
			return err
		}
	}

	m.state.Write(model.InstanceStatusStarting)

	drv := m.getDriver()
	if drv == nil {
		m.state.Write(model.InstanceStatusStopped)
		return fmt.Errorf("driver missing after provisioning: %w", model.ErrInternal)
	}

	err := m.waitBounded(ctx, "start", drv.Start)
	switch {
	case errors.Is(err, model.ErrTimeout):
		m.state.Write(model.InstanceStatusStopped)
		return fmt.Errorf("%w: %w", model.ErrStartFailed, err)
	case err != nil:
		m.state.Write(model.InstanceStatusStopped)
		return fmt.Errorf("could not start instance: %v: %w", err, model.ErrStartFailed)
	}

	m.setStartupTime(time.Since(startT))
	m.state.Write(model.InstanceStatusRunning)
	m.logger.Infof("instance started in %s", time.Since(startT))

	return nil
}

// Stop gracefully stops a running instance, honoring the context deadline.
//
// Stopping an already stopped or stopping instance is an error, not a no-op.
// If the deadline elapses the real outcome is unknown, so the recorded state
// is left untouched.
func (m *Manager) Stop(ctx context.Context) error {
	return m.stop(ctx, false)
}

func (m *Manager) stop(ctx context.Context, cleanup bool) error {
	switch st := m.state.Read(); st {
	case model.InstanceStatusStopped:
		if cleanup {
			return nil
		}
		return fmt.Errorf("instance is already stopped: %w", model.ErrStopFailed)
	case model.InstanceStatusStopping:
		if cleanup {
			return nil
		}
		return fmt.Errorf("instance is already stopping: %w", model.ErrStopFailed)
	}

	m.logger.Infof("stopping instance")
	m.state.Write(model.InstanceStatusStopping)

	drv := m.getDriver()
	if drv == nil {
		m.state.Write(model.InstanceStatusStopped)
		if cleanup {
			return nil
		}
		return fmt.Errorf("instance was never provisioned: %w", model.ErrStopFailed)
	}

	err := m.waitBounded(ctx, "stop", drv.Stop)
	switch {
	case err == nil:
		m.state.Write(model.InstanceStatusStopped)
		m.logger.Infof("instance stopped")
		return nil

	case cleanup:
		// Cleanup must converge to stopped no matter what the driver said.
		m.logger.Warningf("stop failed during cleanup, forcing stopped state: %v", err)
		m.state.Write(model.InstanceStatusStopped)
		return nil

	case errors.Is(err, model.ErrTimeout):
		// Outcome unknown: don't guess a state.
		return fmt.Errorf("%w: %w", model.ErrStopFailed, err)

	default:
		m.state.Write(model.InstanceStatusRunning)
		return fmt.Errorf("could not stop instance: %v: %w", err, model.ErrStopFailed)
	}
}

// StartWithTimeout is a convenience over Start with a derived deadline.
func (m *Manager) StartWithTimeout(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.Start(ctx)
}

// StopWithTimeout is a convenience over Stop with a derived deadline.
func (m *Manager) StopWithTimeout(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.Stop(ctx)
}

// waitBounded races op against the context. If the context ends first the
// caller gets a timeout error immediately; op keeps running in its goroutine
// until it honors the context itself, and its result is discarded.
func (m *Manager) waitBounded(ctx context.Context, name string, op func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		m.logger.Errorf("%s did not finish before the deadline", name)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s deadline exceeded: %w", name, model.ErrTimeout)
		}
		return fmt.Errorf("%s canceled: %w", name, model.ErrTimeout)
	}
}

// CreateDatabase creates a database on the running instance.
func (m *Manager) CreateDatabase(ctx context.Context, name string) error {
	drv, err := m.databaseOpDriver(name)
	if err != nil {
		return err
	}

	if err := drv.CreateDatabase(ctx, name); err != nil {
		return fmt.Errorf("could not create database %q: %v: %w", name, err, model.ErrDatabaseOperation)
	}

	m.logger.Infof("created database %q", name)
	return nil
}

// DropDatabase drops a database from the running instance.
func (m *Manager) DropDatabase(ctx context.Context, name string) error {
	drv, err := m.databaseOpDriver(name)
	if err != nil {
		return err
	}

	if err := drv.DropDatabase(ctx, name); err != nil {
		return fmt.Errorf("could not drop database %q: %v: %w", name, err, model.ErrDatabaseOperation)
	}

	m.logger.Infof("dropped database %q", name)
	return nil
}

// DatabaseExists returns whether a database exists on the running instance.
func (m *Manager) DatabaseExists(ctx context.Context, name string) (bool, error) {
	drv, err := m.databaseOpDriver(name)
	if err != nil {
		return false, err
	}

	exists, err := drv.DatabaseExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("could not check database %q: %v: %w", name, err, model.ErrDatabaseOperation)
	}

	return exists, nil
}

// databaseOpDriver validates a database admin operation synchronously, before
// any driver work is attempted.
func (m *Manager) databaseOpDriver(name string) (engine.Driver, error) {
	if name == "" {
		return nil, fmt.Errorf("database name can't be empty: %w", model.ErrDatabaseOperation)
	}

	if st := m.state.Read(); st != model.InstanceStatusRunning {
		return nil, fmt.Errorf("instance is not running (status: %s): %w", st, model.ErrDatabaseOperation)
	}

	drv := m.getDriver()
	if drv == nil {
		return nil, fmt.Errorf("running instance has no driver: %w", model.ErrInternal)
	}

	return drv, nil
}

// ConnectionInfo returns the connection parameters of the running instance,
// cached for a short period.
func (m *Manager) ConnectionInfo() (*model.ConnectionInfo, error) {
	if st := m.state.Read(); st != model.InstanceStatusRunning {
		return nil, fmt.Errorf("instance is not running (status: %s): %w", st, model.ErrConnectionUnavailable)
	}

	info := m.cache.Get(func() model.ConnectionInfo {
		return model.ConnectionInfo{
			Host:     m.cfg.Host,
			Port:     m.cfg.Port,
			Username: m.cfg.Username,
			Password: m.cfg.Password,
			Database: m.cfg.Database,
		}
	})

	return &info, nil
}

// InvalidateConnectionCache clears the cached connection info, forcing the
// next ConnectionInfo call to rebuild it.
func (m *Manager) InvalidateConnectionCache() {
	m.cache.Invalidate()
	m.logger.Debugf("connection cache invalidated")
}

// ConnectionCacheValid returns whether a non-stale cached connection info
// exists, without creating one.
func (m *Manager) ConnectionCacheValid() bool {
	return m.cache.Valid()
}

// StartupTime returns the duration of the last successful start, or false if
// the instance hasn't been started (or was cleaned up).
func (m *Manager) StartupTime() (time.Duration, bool) {
	m.startupMu.Lock()
	defer m.startupMu.Unlock()

	if m.startupTime == nil {
		return 0, false
	}
	return *m.startupTime, true
}

// BinDir returns the directory with the PostgreSQL binaries of the
// provisioned instance, for tool invocations.
func (m *Manager) BinDir() (string, error) {
	drv := m.getDriver()
	if drv == nil {
		return "", fmt.Errorf("instance has not been provisioned yet: %w", model.ErrSetupFailed)
	}
	return drv.BinDir(), nil
}

// DataDir returns the cluster data directory of the provisioned instance.
func (m *Manager) DataDir() (string, error) {
	drv := m.getDriver()
	if drv == nil {
		return "", fmt.Errorf("instance has not been provisioned yet: %w", model.ErrSetupFailed)
	}
	return drv.DataDir(), nil
}

// Cleanup releases every resource owned by the manager exactly once: it
// best-effort stops the server, releases the driver, clears the cached
// connection info and the recorded startup time, and forces the state to
// stopped. Subsequent calls are no-ops returning nil.
//
// Cleanup never fails once begun: underlying stop and release failures are
// logged, not returned.
func (m *Manager) Cleanup(ctx context.Context) error {
	if !m.guard.disposed.CompareAndSwap(false, true) {
		m.logger.Debugf("cleanup already performed, skipping")
		return nil
	}

	m.logger.Infof("cleaning up instance resources")

	if err := m.stop(ctx, true); err != nil {
		// stop in cleanup mode already downgrades failures, this is belt and braces.
		m.logger.Warningf("graceful stop failed during cleanup: %v", err)
	}

	// Take the driver out of the handle so it is released exactly once.
	m.mu.Lock()
	drv := m.driver
	m.driver = nil
	m.mu.Unlock()

	if drv != nil {
		if err := drv.Close(context.WithoutCancel(ctx)); err != nil {
			m.logger.Warningf("could not release driver during cleanup: %v", err)
		}
	}

	m.cache.Invalidate()
	m.clearStartupTime()
	m.state.Write(model.InstanceStatusStopped)
	m.logger.Infof("instance cleanup completed")

	return nil
}

func (m *Manager) getDriver() engine.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driver
}

func (m *Manager) setDriver(drv engine.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = drv
}

func (m *Manager) setStartupTime(d time.Duration) {
	m.startupMu.Lock()
	defer m.startupMu.Unlock()
	m.startupTime = &d
}

func (m *Manager) clearStartupTime() {
	m.startupMu.Lock()
	defer m.startupMu.Unlock()
	m.startupTime = nil
}
