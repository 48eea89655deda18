// Package create implements the application service that registers a new
// instance in the registry.
package create

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/pgembed/internal/instance"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage"
)

// ServiceConfig is the configuration for the create service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service registers new instances. Provisioning is lazy, it happens on the
// first start.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new create service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the create request parameters.
type Request struct {
	// Config is the instance configuration. The name is required so the
	// instance can be addressed on later invocations.
	Config model.InstanceConfig
}

// Run registers a new instance in the registry.
func (s *Service) Run(ctx context.Context, req Request) (*model.Instance, error) {
	cfg := req.Config.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instance config: %w", err)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("instance name is required: %w", model.ErrNotValid)
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	inst := model.Instance{
		ID:          id,
		Name:        cfg.Name,
		Status:      model.InstanceStatusStopped,
		Config:      cfg,
		Fingerprint: instance.Fingerprint(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("could not create instance: %w", err)
	}

	s.logger.Infof("created instance: %s (ID: %s)", inst.Name, inst.ID)
	return &inst, nil
}
