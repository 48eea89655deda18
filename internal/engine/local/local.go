// Package local implements the engine driver on top of locally installed
// PostgreSQL binaries (initdb, pg_ctl, createdb...).
package local

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/slok/pgembed/internal/conventions"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/tool"
)

// readyPollInterval is how often the driver polls pg_isready while waiting
// for the server to accept connections.
const readyPollInterval = 100 * time.Millisecond

// sqlRunner is the subset of the tool runner the driver needs.
type sqlRunner interface {
	SQL(ctx context.Context, opts tool.SQLOptions) (*model.ToolResult, error)
	IsReady(ctx context.Context, opts tool.IsReadyOptions) (bool, error)
}

// DriverConfig is the configuration for the local driver.
type DriverConfig struct {
	// InstanceID scopes the instance files inside BaseDataDir.
	InstanceID string
	Config     model.InstanceConfig
	// BaseDataDir is the pgembed data directory where instance data lives when
	// the instance config doesn't pin one.
	BaseDataDir string
	Logger      log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.InstanceID == "" {
		return fmt.Errorf("instance id is required")
	}

	c.Config = c.Config.Defaults()
	if c.Config.LocalEngine == nil {
		c.Config.LocalEngine = &model.LocalEngineConfig{}
	}
	if c.Config.LocalEngine.DataDir == "" && c.BaseDataDir == "" {
		return fmt.Errorf("a data directory or a base data directory is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Local", "instance-id": c.InstanceID})

	return nil
}

// Driver runs a PostgreSQL server from local binaries.
type Driver struct {
	cfg     model.InstanceConfig
	binDir  string
	dataDir string
	logDir  string
	logger  log.Logger

	runner sqlRunner
	// execCmd is swappable in tests.
	execCmd func(ctx context.Context, bin string, args ...string) (string, error)
}

// NewDriver creates a new local driver. The binaries directory comes from the
// instance config, or is resolved from PATH via initdb.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	binDir := cfg.Config.LocalEngine.BinDir
	if binDir == "" {
		initdb, err := exec.LookPath("initdb")
		if err != nil {
			return nil, fmt.Errorf("postgresql binaries not found in PATH: %w", err)
		}
		binDir = filepath.Dir(initdb)
	}

	dataDir := cfg.Config.LocalEngine.DataDir
	logDir := dataDir
	if dataDir == "" {
		dataDir = conventions.InstancePGData(cfg.BaseDataDir, cfg.InstanceID)
		logDir = conventions.InstanceDir(cfg.BaseDataDir, cfg.InstanceID)
	}

	runner, err := tool.NewRunner(tool.RunnerConfig{BinDir: binDir, Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create tool runner: %w", err)
	}

	d := &Driver{
		cfg:     cfg.Config,
		binDir:  binDir,
		dataDir: dataDir,
		logDir:  logDir,
		logger:  cfg.Logger,
		runner:  runner,
	}
	d.execCmd = d.runBinary

	return d, nil
}

// Provision initializes the cluster data directory with initdb. An already
// initialized directory is left untouched.
func (d *Driver) Provision(ctx context.Context) error {
	if d.initialized() {
		d.logger.Debugf("data directory %s already initialized", d.dataDir)
		return nil
	}

	if err := os.MkdirAll(d.dataDir, 0o700); err != nil {
		return fmt.Errorf("could not create data directory: %w", err)
	}

	// initdb reads the superuser password from a file, never from argv.
	pwFile := filepath.Join(d.logDir, conventions.PasswordFile)
	if err := os.WriteFile(pwFile, []byte(d.cfg.Password+"\n"), 0o600); err != nil {
		return fmt.Errorf("could not write password file: %w", err)
	}
	defer os.Remove(pwFile)

	args := []string{
		"--pgdata", d.dataDir,
		"--username", d.cfg.Username,
		"--pwfile", pwFile,
		"--auth", "password",
		"--encoding", "UTF8",
	}
	if out, err := d.execCmd(ctx, "initdb", args...); err != nil {
		return fmt.Errorf("initdb failed: %s: %w", strings.TrimSpace(out), err)
	}

	d.logger.Infof("initialized data directory %s", d.dataDir)

	return nil
}

// Start starts the server with pg_ctl and waits until it accepts connections.
func (d *Driver) Start(ctx context.Context) error {
	serverOpts := fmt.Sprintf("-p %d -c listen_addresses=%s", d.cfg.Port, d.cfg.Host)
	args := []string{
		"--pgdata", d.dataDir,
		"--log", filepath.Join(d.logDir, conventions.ServerLogFile),
		"--options", serverOpts,
		"--wait",
		"start",
	}
	if out, err := d.execCmd(ctx, "pg_ctl", args...); err != nil {
		return fmt.Errorf("pg_ctl start failed: %s: %w", strings.TrimSpace(out), err)
	}

	if err := d.waitReady(ctx); err != nil {
		return err
	}

	if err := d.ensureDefaultDatabase(ctx); err != nil {
		return err
	}

	d.logger.Debugf("server accepting connections on port %d", d.cfg.Port)

	return nil
}

// Stop stops the server with a fast shutdown.
func (d *Driver) Stop(ctx context.Context) error {
	args := []string{
		"--pgdata", d.dataDir,
		"--mode", "fast",
		"--wait",
		"stop",
	}
	if out, err := d.execCmd(ctx, "pg_ctl", args...); err != nil {
		return fmt.Errorf("pg_ctl stop failed: %s: %w", strings.TrimSpace(out), err)
	}

	return nil
}

// CreateDatabase creates a database with createdb.
func (d *Driver) CreateDatabase(ctx context.Context, name string) error {
	args := append(d.connArgs(), name)
	if out, err := d.execCmd(ctx, "createdb", args...); err != nil {
		return fmt.Errorf("createdb failed: %s: %w", strings.TrimSpace(out), err)
	}

	return nil
}

// DropDatabase drops a database with dropdb.
func (d *Driver) DropDatabase(ctx context.Context, name string) error {
	args := append(d.connArgs(), name)
	if out, err := d.execCmd(ctx, "dropdb", args...); err != nil {
		return fmt.Errorf("dropdb failed: %s: %w", strings.TrimSpace(out), err)
	}

	return nil
}

// DatabaseExists checks the pg_database catalog through psql.
func (d *Driver) DatabaseExists(ctx context.Context, name string) (bool, error) {
	res, err := d.runner.SQL(ctx, tool.SQLOptions{
		Connection: d.conn(),
		Command:    fmt.Sprintf("SELECT 1 FROM pg_database WHERE datname = '%s'", strings.ReplaceAll(name, "'", "''")),
		TuplesOnly: true,
		NoAlign:    true,
	})
	if err != nil {
		return false, err
	}
	if res.ExitCode != 0 {
		return false, fmt.Errorf("catalog query failed: %s", strings.TrimSpace(res.Stderr))
	}

	return strings.TrimSpace(res.Stdout) == "1", nil
}

// BinDir returns the resolved PostgreSQL binaries directory.
func (d *Driver) BinDir() string { return d.binDir }

// DataDir returns the cluster data directory.
func (d *Driver) DataDir() string { return d.dataDir }

// Close removes the instance files unless the instance is persistent.
func (d *Driver) Close(ctx context.Context) error {
	if d.cfg.Persistent {
		d.logger.Debugf("persistent instance, keeping data directory %s", d.dataDir)
		return nil
	}

	if err := os.RemoveAll(d.logDir); err != nil {
		return fmt.Errorf("could not remove instance directory: %w", err)
	}
	d.logger.Infof("removed instance directory %s", d.logDir)

	return nil
}

// waitReady polls pg_isready until the server answers or the context ends.
func (d *Driver) waitReady(ctx context.Context) error {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		ready, err := d.runner.IsReady(ctx, tool.IsReadyOptions{Connection: d.conn(), Timeout: 1})
		if err == nil && ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("server not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// ensureDefaultDatabase creates the configured database when needed. initdb
// only creates the postgres and template databases.
func (d *Driver) ensureDefaultDatabase(ctx context.Context) error {
	if d.cfg.Database == "postgres" {
		return nil
	}

	exists, err := d.DatabaseExists(ctx, d.cfg.Database)
	if err != nil {
		return fmt.Errorf("could not check default database: %w", err)
	}
	if exists {
		return nil
	}

	if err := d.CreateDatabase(ctx, d.cfg.Database); err != nil {
		return fmt.Errorf("could not create default database: %w", err)
	}
	d.logger.Infof("created default database %q", d.cfg.Database)

	return nil
}

func (d *Driver) initialized() bool {
	_, err := os.Stat(filepath.Join(d.dataDir, "PG_VERSION"))
	return err == nil
}

// conn is the admin connection, always against the postgres maintenance
// database so admin ops work before the configured database exists.
func (d *Driver) conn() tool.ConnectionConfig {
	return tool.ConnectionConfig{
		Host:     d.cfg.Host,
		Port:     d.cfg.Port,
		Username: d.cfg.Username,
		Password: d.cfg.Password,
		Database: "postgres",
	}
}

func (d *Driver) connArgs() []string {
	return []string{
		"--host", d.cfg.Host,
		"--port", fmt.Sprintf("%d", d.cfg.Port),
		"--username", d.cfg.Username,
	}
}

func (d *Driver) runBinary(ctx context.Context, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, filepath.Join(d.binDir, bin), args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+d.cfg.Password)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
