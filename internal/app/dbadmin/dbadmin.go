// Package dbadmin implements the application service for database
// administration on a running instance.
package dbadmin

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/pgembed/internal/engine"
	"github.com/slok/pgembed/internal/instance"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage"
)

// ServiceConfig is the configuration for the dbadmin service.
type ServiceConfig struct {
	DriverFactory engine.Factory
	Repository    storage.Repository
	Logger        log.Logger
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

	return nil
}

// Service runs database admin operations against a running instance.
type Service struct {
	newDriver engine.Factory
	repo      storage.Repository
	logger    log.Logger
}

// NewService creates a new dbadmin service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		newDriver: cfg.DriverFactory,
		repo:      cfg.Repository,
		logger:    cfg.Logger,
	}, nil
}

// Request represents a database admin request.
type Request struct {
	// NameOrID is the instance name or ID to operate on.
	NameOrID string
	// Database is the database name.
	Database string
}

// CreateDatabase creates a database on a running instance.
func (s *Service) CreateDatabase(ctx context.Context, req Request) error {
	mgr, err := s.manager(ctx, req.NameOrID)
	if err != nil {
		return err
	}

	if err := mgr.CreateDatabase(ctx, req.Database); err != nil {
		return fmt.Errorf("could not create database: %w", err)
	}

	return nil
}

// DropDatabase drops a database from a running instance.
func (s *Service) DropDatabase(ctx context.Context, req Request) error {
	mgr, err := s.manager(ctx, req.NameOrID)
	if err != nil {
		return err
	}

	if err := mgr.DropDatabase(ctx, req.Database); err != nil {
		return fmt.Errorf("could not drop database: %w", err)
	}

	return nil
}

// DatabaseExists returns whether a database exists on a running instance.
func (s *Service) DatabaseExists(ctx context.Context, req Request) (bool, error) {
	mgr, err := s.manager(ctx, req.NameOrID)
	if err != nil {
		return false, err
	}

	exists, err := mgr.DatabaseExists(ctx, req.Database)
	if err != nil {
		return false, fmt.Errorf("could not check database: %w", err)
	}

	return exists, nil
}

// manager rebuilds an instance manager for a registered, running instance.
func (s *Service) manager(ctx context.Context, nameOrID string) (*instance.Manager, error) {
	inst, err := getInstance(ctx, s.repo, nameOrID)
	if err != nil {
		return nil, err
	}

	if inst.Status != model.InstanceStatusRunning {
		return nil, fmt.Errorf("instance is not running (current status: %s): %w", inst.Status, model.ErrNotValid)
	}

	drv, err := s.newDriver(inst.ID, inst.Config)
	if err != nil {
		return nil, fmt.Errorf("could not create driver: %w", err)
	}

	mgr, err := instance.NewManager(instance.ManagerConfig{
		Config:        inst.Config,
		Driver:        drv,
		InitialStatus: model.InstanceStatusRunning,
		Logger:        s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create instance manager: %w", err)
	}

	return mgr, nil
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
