// Package start implements the application service that starts a registered
// instance.
package start

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

// ServiceConfig is the configuration for the start service.
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

// Service starts a registered instance.
type Service struct {
	newDriver engine.Factory
	repo      storage.Repository
	logger    log.Logger
}

// NewService creates a new start service.
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

// Request represents the start request parameters.
type Request struct {
	// NameOrID is the instance name or ID to start.
	NameOrID string
}

// Run starts an instance by name or ID, provisioning it first if needed, and
// persists the new status in the registry.
func (s *Service) Run(ctx context.Context, req Request) (*model.Instance, error) {
	s.logger.Debugf("starting instance: %s", req.NameOrID)

	inst, err := getInstance(ctx, s.repo, req.NameOrID)
	if err != nil {
		return nil, err
	}

	if inst.Status == model.InstanceStatusRunning {
		return nil, fmt.Errorf("cannot start instance: already running: %w", model.ErrNotValid)
	}

	drv, err := s.newDriver(inst.ID, inst.Config)
	if err != nil {
		return nil, fmt.Errorf("could not create driver: %w", err)
	}

	mgr, err := instance.NewManager(instance.ManagerConfig{
		Config: inst.Config,
		Driver: drv,
		Logger: s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create instance manager: %w", err)
	}

	// Provision explicitly: driver provisioning is idempotent, so this covers
	// both the first start and restarts of an existing data directory.
	if err := mgr.Setup(ctx); err != nil {
		return nil, fmt.Errorf("could not provision instance: %w", err)
	}

	if err := mgr.StartWithTimeout(ctx, inst.Config.StartTimeout); err != nil {
		return nil, fmt.Errorf("could not start instance: %w", err)
	}

	now := time.Now().UTC()
	inst.Status = model.InstanceStatusRunning
	inst.StartedAt = &now
	inst.StoppedAt = nil

	if err := s.repo.UpdateInstance(ctx, *inst); err != nil {
		return nil, fmt.Errorf("could not update instance: %w", err)
	}

	s.logger.Infof("started instance: %s (ID: %s)", inst.Name, inst.ID)
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
