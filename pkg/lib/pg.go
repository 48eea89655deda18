package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slok/pgembed/internal/conventions"
	"github.com/slok/pgembed/internal/engine"
	"github.com/slok/pgembed/internal/engine/docker"
	"github.com/slok/pgembed/internal/engine/fake"
	"github.com/slok/pgembed/internal/engine/local"
	"github.com/slok/pgembed/internal/instance"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
)

// Config configures an embedded PostgreSQL instance.
//
// All fields are optional: an empty Config{} runs a local PostgreSQL from the
// binaries found in PATH, on port 5432, with postgres/postgres credentials.
type Config struct {
	// Host is the listen/connection host. Default: localhost.
	Host string
	// Port is the server port. Default: 5432.
	Port int
	// Username is the superuser name. Default: postgres.
	Username string
	// Password is the superuser password. Default: postgres.
	Password string
	// Database is the default database. Default: postgres.
	Database string

	// Persistent keeps the data directory when the instance is closed.
	Persistent bool

	// StartTimeout bounds Start. Default: 30s.
	StartTimeout time.Duration
	// StopTimeout bounds Stop. Default: 30s.
	StopTimeout time.Duration

	// Engine selects the engine implementation. Default: [EngineLocal].
	//
	// Set this to [EngineFake] for testing without a real server.
	Engine EngineType

	// BinDir is the directory with the PostgreSQL binaries (initdb, pg_ctl...).
	// If empty, they are resolved from PATH. Only used by [EngineLocal].
	BinDir string
	// DataDir is the cluster data directory. If empty, a managed directory
	// under ~/.pgembed is used and removed on Close unless Persistent is set.
	// Only used by [EngineLocal].
	DataDir string

	// Image is the PostgreSQL container image (e.g. "postgres:17").
	// Required by [EngineDocker], ignored otherwise.
	Image string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Engine == "" {
		c.Engine = EngineLocal
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

func (c Config) toInstanceConfig() model.InstanceConfig {
	cfg := model.InstanceConfig{
		Host:         c.Host,
		Port:         c.Port,
		Username:     c.Username,
		Password:     c.Password,
		Database:     c.Database,
		Persistent:   c.Persistent,
		StartTimeout: c.StartTimeout,
		StopTimeout:  c.StopTimeout,
	}

	switch c.Engine {
	case EngineDocker:
		cfg.DockerEngine = &model.DockerEngineConfig{Image: c.Image}
	default:
		cfg.LocalEngine = &model.LocalEngineConfig{BinDir: c.BinDir, DataDir: c.DataDir}
	}

	return cfg
}

// Postgres is an embedded PostgreSQL instance.
//
// Create one with [New], start it with [Postgres.Start] and release all its
// resources with [Postgres.Close]. Close is safe to call more than once.
type Postgres struct {
	manager    *instance.Manager
	engineType EngineType
	logger     log.Logger
}

// New creates a new embedded PostgreSQL instance in the stopped state.
// Nothing is provisioned until [Postgres.Setup] or [Postgres.Start].
//
// The caller must call [Postgres.Close] when done, typically with defer:
//
//	pg, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer pg.Close(ctx)
func New(ctx context.Context, cfg Config) (*Postgres, error) {
	if err := cfg.defaults(); err != nil {
		return nil, mapError(fmt.Errorf("invalid config: %w", err))
	}

	factory, err := driverFactory(cfg)
	if err != nil {
		return nil, mapError(err)
	}

	mgr, err := instance.NewManager(instance.ManagerConfig{
		Config:        cfg.toInstanceConfig(),
		DriverFactory: factory,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, mapError(fmt.Errorf("could not create instance: %w", err))
	}

	return &Postgres{
		manager:    mgr,
		engineType: cfg.Engine,
		logger:     cfg.Logger,
	}, nil
}

// driverFactory returns the lazy driver constructor for the configured engine.
// The manager calls it at most once, the first time a driver is needed.
func driverFactory(cfg Config) (instance.DriverFactory, error) {
	switch cfg.Engine {
	case EngineLocal:
		return func(icfg model.InstanceConfig) (engine.Driver, error) {
			baseDataDir, err := defaultBaseDataDir()
			if err != nil {
				return nil, err
			}
			return local.NewDriver(local.DriverConfig{
				InstanceID:  instance.Fingerprint(icfg.Host, icfg.Port, icfg.Username, icfg.Password),
				Config:      icfg,
				BaseDataDir: baseDataDir,
				Logger:      cfg.Logger,
			})
		}, nil

	case EngineDocker:
		return func(icfg model.InstanceConfig) (engine.Driver, error) {
			return docker.NewDriver(docker.DriverConfig{
				InstanceID: instance.Fingerprint(icfg.Host, icfg.Port, icfg.Username, icfg.Password),
				Config:     icfg,
				Logger:     cfg.Logger,
			})
		}, nil

	case EngineFake:
		return func(icfg model.InstanceConfig) (engine.Driver, error) {
			return fake.NewDriver(fake.DriverConfig{
				Config: icfg,
				Logger: cfg.Logger,
			})
		}, nil

	default:
		return nil, fmt.Errorf("unsupported engine type: %s: %w", cfg.Engine, model.ErrNotValid)
	}
}

func defaultBaseDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get user home dir: %w", err)
	}
	return filepath.Join(home, conventions.DefaultDataDir), nil
}

// Setup provisions the instance without starting it (e.g. runs initdb for the
// local engine). Start calls it automatically when needed.
func (p *Postgres) Setup(ctx context.Context) error {
	return mapError(p.manager.Setup(ctx))
}

// Start starts the server and blocks until it accepts connections, honoring
// the context deadline and the configured StartTimeout.
//
// Starting an already running instance returns [ErrStartFailed].
func (p *Postgres) Start(ctx context.Context) error {
	return mapError(p.manager.StartWithTimeout(ctx, p.manager.Config().StartTimeout))
}

// StartWithTimeout is like [Postgres.Start] with an explicit timeout instead
// of the configured one.
func (p *Postgres) StartWithTimeout(ctx context.Context, timeout time.Duration) error {
	return mapError(p.manager.StartWithTimeout(ctx, timeout))
}

// Stop gracefully stops a running server, honoring the context deadline and
// the configured StopTimeout.
//
// Stopping an already stopped instance returns [ErrStopFailed]. If the
// timeout elapses the real outcome is unknown and the recorded status is left
// untouched.
func (p *Postgres) Stop(ctx context.Context) error {
	return mapError(p.manager.StopWithTimeout(ctx, p.manager.Config().StopTimeout))
}

// StopWithTimeout is like [Postgres.Stop] with an explicit timeout instead of
// the configured one.
func (p *Postgres) StopWithTimeout(ctx context.Context, timeout time.Duration) error {
	return mapError(p.manager.StopWithTimeout(ctx, timeout))
}

// Status returns the current lifecycle status.
func (p *Postgres) Status() Status {
	return Status(p.manager.Status())
}

// ID returns the process-unique, time-ordered instance identifier.
func (p *Postgres) ID() string {
	return p.manager.ID()
}

// Fingerprint returns the stable configuration fingerprint, usable as a
// cache or deduplication key: two instances with the same connection settings
// share the same fingerprint.
func (p *Postgres) Fingerprint() string {
	return p.manager.Fingerprint()
}

// StartupTime returns how long the last successful start took, or false if
// the instance hasn't been started.
func (p *Postgres) StartupTime() (time.Duration, bool) {
	return p.manager.StartupTime()
}

// ConnectionInfo returns the connection parameters of the running instance.
// Results are cached for a short period; use
// [Postgres.InvalidateConnectionCache] to force a rebuild.
//
// Returns [ErrConnectionUnavailable] if the instance is not running.
func (p *Postgres) ConnectionInfo() (*ConnectionInfo, error) {
	info, err := p.manager.ConnectionInfo()
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalConnectionInfo(*info)
	return &out, nil
}

// InvalidateConnectionCache clears the cached connection information.
func (p *Postgres) InvalidateConnectionCache() {
	p.manager.InvalidateConnectionCache()
}

// ConnectionCacheValid returns whether a non-stale cached connection info
// exists, without creating one.
func (p *Postgres) ConnectionCacheValid() bool {
	return p.manager.ConnectionCacheValid()
}

// CreateDatabase creates a database on the running instance.
func (p *Postgres) CreateDatabase(ctx context.Context, name string) error {
	return mapError(p.manager.CreateDatabase(ctx, name))
}

// DropDatabase drops a database from the running instance.
func (p *Postgres) DropDatabase(ctx context.Context, name string) error {
	return mapError(p.manager.DropDatabase(ctx, name))
}

// DatabaseExists returns whether a database exists on the running instance.
func (p *Postgres) DatabaseExists(ctx context.Context, name string) (bool, error) {
	exists, err := p.manager.DatabaseExists(ctx, name)
	return exists, mapError(err)
}

// Close releases every resource owned by the instance exactly once: it
// best-effort stops the server, releases the engine resources and, for
// non-persistent instances, removes the data directory. Subsequent calls are
// no-ops returning nil.
func (p *Postgres) Close(ctx context.Context) error {
	return mapError(p.manager.Cleanup(ctx))
}
