// Package toolrun implements the application service that runs PostgreSQL
// client tools (pg_dump, pg_restore, psql) against a registered instance.
package toolrun

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/pgembed/internal/engine"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage"
	"github.com/slok/pgembed/internal/tool"
)

// ServiceConfig is the configuration for the toolrun service.
type ServiceConfig struct {
	DriverFactory engine.Factory
	Repository    storage.Repository
	Logger        log.Logger

	// NewRunner is swappable in tests. Defaults to tool.NewRunner.
	NewRunner func(cfg tool.RunnerConfig) (*tool.Runner, error)
}

func (c *ServiceConfig) defaults() error {
	if c.DriverFactory == nil {
		return fmt.Errorf("driver factory is required")
	}

	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.NewRunner == nil {
		c.NewRunner = tool.NewRunner
	}

	return nil
}

// Service runs client tools against running instances.
type Service struct {
	newDriver engine.Factory
	newRunner func(cfg tool.RunnerConfig) (*tool.Runner, error)
	repo      storage.Repository
	logger    log.Logger
}

// NewService creates a new toolrun service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		newDriver: cfg.DriverFactory,
		newRunner: cfg.NewRunner,
		repo:      cfg.Repository,
		logger:    cfg.Logger,
	}, nil
}

// Dump runs pg_dump against a running instance. The connection settings of
// the options are filled from the registry record.
func (s *Service) Dump(ctx context.Context, nameOrID string, opts tool.DumpOptions) (*model.ToolResult, error) {
	runner, conn, err := s.runner(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	opts.Connection = conn
	return runner.Dump(ctx, opts)
}

// DumpAll runs pg_dumpall against a running instance.
func (s *Service) DumpAll(ctx context.Context, nameOrID string, opts tool.DumpAllOptions) (*model.ToolResult, error) {
	runner, conn, err := s.runner(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	opts.Connection = conn
	return runner.DumpAll(ctx, opts)
}

// Restore runs pg_restore against a running instance.
func (s *Service) Restore(ctx context.Context, nameOrID string, opts tool.RestoreOptions) (*model.ToolResult, error) {
	runner, conn, err := s.runner(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	opts.Connection = conn
	return runner.Restore(ctx, opts)
}

// SQL runs a SQL command on a running instance through psql.
func (s *Service) SQL(ctx context.Context, nameOrID string, opts tool.SQLOptions) (*model.ToolResult, error) {
	runner, conn, err := s.runner(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	opts.Connection = conn
	return runner.SQL(ctx, opts)
}

// SQLFile runs a SQL script on a running instance through psql.
func (s *Service) SQLFile(ctx context.Context, nameOrID string, opts tool.SQLFileOptions) (*model.ToolResult, error) {
	runner, conn, err := s.runner(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	opts.Connection = conn
	return runner.SQLFile(ctx, opts)
}

// runner builds a tool runner for a registered, running instance, with the
// binaries directory resolved from its engine driver.
func (s *Service) runner(ctx context.Context, nameOrID string) (*tool.Runner, tool.ConnectionConfig, error) {
	inst, err := getInstance(ctx, s.repo, nameOrID)
	if err != nil {
		return nil, tool.ConnectionConfig{}, err
	}

	if inst.Status != model.InstanceStatusRunning {
		return nil, tool.ConnectionConfig{}, fmt.Errorf("instance is not running (current status: %s): %w", inst.Status, model.ErrNotValid)
	}

	drv, err := s.newDriver(inst.ID, inst.Config)
	if err != nil {
		return nil, tool.ConnectionConfig{}, fmt.Errorf("could not create driver: %w", err)
	}

	runner, err := s.newRunner(tool.RunnerConfig{
		BinDir: drv.BinDir(),
		Logger: s.logger,
	})
	if err != nil {
		return nil, tool.ConnectionConfig{}, fmt.Errorf("could not create tool runner: %w", err)
	}

	conn := tool.ConnectionConfig{
		Host:     inst.Config.Host,
		Port:     inst.Config.Port,
		Username: inst.Config.Username,
		Password: inst.Config.Password,
		Database: inst.Config.Database,
	}

	return runner, conn, nil
}

// getInstance looks up an instance by name first, then by ID if it looks like
// a ULID.
func getInstance(ctx context.Context, repo storage.Repository, nameOrID string) (*model.Instance, error) {
	inst, err := repo.GetInstanceByName(ctx, nameOrID)
	if errors.Is(err, model.ErrNotFound) && looksLikeULID(nameOrID) {
		inst, err = repo.GetInstance(ctx, nameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("instance not found: %s: %w", nameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get instance: %w", err)
	}

	return inst, nil
}

// looksLikeULID checks if a string looks like a ULID (26 characters, alphanumeric uppercase).
func looksLikeULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
