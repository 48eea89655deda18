package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
)

// DriverConfig is the configuration for the fake driver.
type DriverConfig struct {
	Config model.InstanceConfig
	Logger log.Logger
}

func (c *DriverConfig) defaults() error {
	c.Config = c.Config.Defaults()

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Fake"})

	return nil
}

// Driver is a fake implementation of the engine.Driver interface.
// It simulates a PostgreSQL server without spawning any process.
type Driver struct {
	cfg model.InstanceConfig

	mu          sync.Mutex
	provisioned bool
	running     bool
	databases   map[string]bool

	logger log.Logger
}

// NewDriver creates a new fake driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Driver{
		cfg:       cfg.Config,
		databases: map[string]bool{},
		logger:    cfg.Logger,
	}, nil
}

// Provision marks the fake server as provisioned.
func (d *Driver) Provision(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.provisioned {
		d.logger.Debugf("fake server already provisioned")
		return nil
	}

	d.provisioned = true
	d.databases[d.cfg.Database] = true
	d.logger.Debugf("fake server provisioned")

	return nil
}

// Start marks the fake server as running.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.provisioned {
		return fmt.Errorf("server is not provisioned")
	}

	d.running = true
	d.logger.Debugf("fake server started")

	return nil
}

// Stop marks the fake server as stopped.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("server is not running")
	}

	d.running = false
	d.logger.Debugf("fake server stopped")

	return nil
}

// CreateDatabase creates a database on the fake server.
func (d *Driver) CreateDatabase(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("server is not running")
	}
	if d.databases[name] {
		return fmt.Errorf("database %q: %w", name, model.ErrAlreadyExists)
	}

	d.databases[name] = true

	return nil
}

// DropDatabase drops a database from the fake server.
func (d *Driver) DropDatabase(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return fmt.Errorf("server is not running")
	}
	if !d.databases[name] {
		return fmt.Errorf("database %q: %w", name, model.ErrNotFound)
	}

	delete(d.databases, name)

	return nil
}

// DatabaseExists returns whether a database exists on the fake server.
func (d *Driver) DatabaseExists(ctx context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return false, fmt.Errorf("server is not running")
	}

	return d.databases[name], nil
}

// BinDir returns an empty directory, the fake driver has no binaries.
func (d *Driver) BinDir() string { return "" }

// DataDir returns an empty directory, the fake driver has no data on disk.
func (d *Driver) DataDir() string { return "" }

// Close releases the fake server state.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.running = false
	d.provisioned = false
	d.databases = map[string]bool{}
	d.logger.Debugf("fake server released")

	return nil
}
