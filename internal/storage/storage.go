package storage

import (
	"context"

	"github.com/slok/pgembed/internal/model"
)

// Repository is the interface for instance persistence.
type Repository interface {
	CreateInstance(ctx context.Context, i model.Instance) error
	GetInstance(ctx context.Context, id string) (*model.Instance, error)
	GetInstanceByName(ctx context.Context, name string) (*model.Instance, error)
	ListInstances(ctx context.Context) ([]model.Instance, error)
	UpdateInstance(ctx context.Context, i model.Instance) error
	DeleteInstance(ctx context.Context, id string) error
}
