// Package storagemock contains a hand written mock of the storage
// repository for tests.
package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/pgembed/internal/model"
)

// Repository is a mock implementation of storage.Repository.
type Repository struct {
	mock.Mock
}

// CreateInstance satisfies storage.Repository.
func (m *Repository) CreateInstance(ctx context.Context, i model.Instance) error {
	args := m.Called(ctx, i)
	return args.Error(0)
}

// GetInstance satisfies storage.Repository.
func (m *Repository) GetInstance(ctx context.Context, id string) (*model.Instance, error) {
	args := m.Called(ctx, id)
	i, _ := args.Get(0).(*model.Instance)
	return i, args.Error(1)
}

// GetInstanceByName satisfies storage.Repository.
func (m *Repository) GetInstanceByName(ctx context.Context, name string) (*model.Instance, error) {
	args := m.Called(ctx, name)
	i, _ := args.Get(0).(*model.Instance)
	return i, args.Error(1)
}

// ListInstances satisfies storage.Repository.
func (m *Repository) ListInstances(ctx context.Context) ([]model.Instance, error) {
	args := m.Called(ctx)
	i, _ := args.Get(0).([]model.Instance)
	return i, args.Error(1)
}

// UpdateInstance satisfies storage.Repository.
func (m *Repository) UpdateInstance(ctx context.Context, i model.Instance) error {
	args := m.Called(ctx, i)
	return args.Error(0)
}

// DeleteInstance satisfies storage.Repository.
func (m *Repository) DeleteInstance(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
