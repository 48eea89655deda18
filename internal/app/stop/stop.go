// Package stop implements the application service that stops a running
// instance.
package stop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/pgembed/internal/engine"
	"github.com/slok/pgembed/internal/instance"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage"
)

// ServiceConfig is the configuration for the stop service.
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

// Service stops a running instance.
type Service struct {
	newDriver engine.Factory
	repo      storage.Repository
	logger    log.Logger
}

// NewService creates a new stop service.
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

// Request represents the stop request parameters.
type Request struct {
	// NameOrID is the instance name or ID to stop.
	NameOrID string
}

// Run stops an instance by name or ID.
// It validates the instance is running before attempting to stop it.
func (s *Service) Run(ctx context.Context, req Request) (*model.Instance, error) {
	s.logger.Debugf("stopping instance: %s", req.NameOrID)

	inst, err := getInstance(ctx, s.repo, req.NameOrID)
	if err != nil {
		return nil, err
	}

	if inst.Status != model.InstanceStatusRunning {
		return nil, fmt.Errorf("cannot stop instance: not running (current status: %s): %w", inst.Status, model.ErrNotValid)
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

	if err := mgr.StopWithTimeout(ctx, inst.Config.StopTimeout); err != nil {
		// A timed out stop has an unknown outcome, keep the recorded status.
		return nil, fmt.Errorf("could not stop instance: %w", err)
	}

	now := time.Now().UTC()
	inst.Status = model.InstanceStatusStopped
	inst.StoppedAt = &now

	if err := s.repo.UpdateInstance(ctx, *inst); err != nil {
		return nil, fmt.Errorf("could not update instance: %w", err)
	}

	s.logger.Infof("stopped instance: %s (ID: %s)", inst.Name, inst.ID)
	return inst, nil
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
