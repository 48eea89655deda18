// Package status implements the application service that retrieves the
// details of a registered instance.
package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage"
)

// ServiceConfig is the configuration for the status service.
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

// Service retrieves instance details.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the status request parameters.
type Request struct {
	// NameOrID is the instance name or ID to look up.
	NameOrID string
}

// Response is the status result.
type Response struct {
	Instance model.Instance
	// ConnectionInfo is only set when the instance is running.
	ConnectionInfo *model.ConnectionInfo
}

// Run returns the details of an instance by name or ID.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	s.logger.Debugf("getting instance status: %s", req.NameOrID)

	inst, err := s.repo.GetInstanceByName(ctx, req.NameOrID)
	if errors.Is(err, model.ErrNotFound) && looksLikeULID(req.NameOrID) {
		inst, err = s.repo.GetInstance(ctx, req.NameOrID)
	}
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("instance not found: %s: %w", req.NameOrID, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not get instance: %w", err)
	}

	resp := Response{Instance: *inst}
	if inst.Status == model.InstanceStatusRunning {
		resp.ConnectionInfo = &model.ConnectionInfo{
			Host:     inst.Config.Host,
			Port:     inst.Config.Port,
			Username: inst.Config.Username,
			Password: inst.Config.Password,
			Database: inst.Config.Database,
		}
	}

	return &resp, nil
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
