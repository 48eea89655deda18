// Package enginemock contains a mock of the engine.Driver interface for tests.
package enginemock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDriver is a mock implementation of engine.Driver.
type MockDriver struct {
	mock.Mock
}

// Provision mocks engine.Driver.Provision.
func (m *MockDriver) Provision(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Start mocks engine.Driver.Start.
func (m *MockDriver) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Stop mocks engine.Driver.Stop.
func (m *MockDriver) Stop(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// CreateDatabase mocks engine.Driver.CreateDatabase.
func (m *MockDriver) CreateDatabase(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// DropDatabase mocks engine.Driver.DropDatabase.
func (m *MockDriver) DropDatabase(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// DatabaseExists mocks engine.Driver.DatabaseExists.
func (m *MockDriver) DatabaseExists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// BinDir mocks engine.Driver.BinDir.
func (m *MockDriver) BinDir() string {
	args := m.Called()
	return args.String(0)
}

// DataDir mocks engine.Driver.DataDir.
func (m *MockDriver) DataDir() string {
	args := m.Called()
	return args.String(0)
}

// Close mocks engine.Driver.Close.
func (m *MockDriver) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
