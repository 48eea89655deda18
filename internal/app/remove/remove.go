// Package remove implements the application service that removes an instance
// and releases its resources.
package remove

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

// ServiceConfig is the configuration for the remove service.
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

// Service removes instances.
type Service struct {
	newDriver engine.Factory
	repo      storage.Repository
	logger    log.Logger
}

// NewService creates a new remove service.
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

// Request represents the remove request parameters.
type Request struct {
	// NameOrID is the instance name or ID to remove.
	NameOrID string
	// Force removes a running instance, stopping it first.
	Force bool
}

// Run removes an instance by name or ID: it tears down the server resources
// and deletes the registry record. Persistent data directories are kept.
func (s *Service) Run(ctx context.Context, req Request) error {
	s.logger.Debugf("removing instance: %s", req.NameOrID)

	inst, err := getInstance(ctx, s.repo, req.NameOrID)
	if err != nil {
		return err
	}

	if inst.Status == model.InstanceStatusRunning && !req.Force {
		return fmt.Errorf("cannot remove a running instance without force: %w", model.ErrNotValid)
	}

	drv, err := s.newDriver(inst.ID, inst.Config)
	if err != nil {
		return fmt.Errorf("could not create driver: %w", err)
	}

	mgr, err := instance.NewManager(instance.ManagerConfig{
		Config:        inst.Config,
		Driver:        drv,
		InitialStatus: inst.Status,
		Logger:        s.logger,
	})
	if err != nil {
		return fmt.Errorf("could not create instance manager: %w", err)
	}

	if err := mgr.Cleanup(ctx); err != nil {
		return fmt.Errorf("could not clean up instance: %w", err)
	}

	if err := s.repo.DeleteInstance(ctx, inst.ID); err != nil {
		return fmt.Errorf("could not delete instance: %w", err)
	}

	s.logger.Infof("removed instance: %s (ID: %s)", inst.Name, inst.ID)
	return nil
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
