package engine

import (
	"context"

	"github.com/slok/pgembed/internal/model"
)

// Driver is the interface for the PostgreSQL server primitives.
//
// Implementations own the server process (or container) and the on-disk data
// directory. They don't track lifecycle state, that is the instance manager's
// responsibility.
type Driver interface {
	// Provision prepares the server so it can be started (e.g. initdb on a
	// fresh data directory). It must be idempotent over an already
	// provisioned data directory.
	Provision(ctx context.Context) error
	// Start starts the server and blocks until it accepts connections.
	Start(ctx context.Context) error
	// Stop shuts the server down gracefully.
	Stop(ctx context.Context) error

	CreateDatabase(ctx context.Context, name string) error
	DropDatabase(ctx context.Context, name string) error
	DatabaseExists(ctx context.Context, name string) (bool, error)

	// BinDir returns the directory holding the PostgreSQL client binaries,
	// used to hand off tool invocations. Empty if unknown (e.g. container
	// engines resolve binaries internally).
	BinDir() string
	// DataDir returns the cluster data directory. Empty if not applicable.
	DataDir() string

	// Close releases the resources held by the driver (processes, containers,
	// non-persistent data directories). It must be safe to call after Stop
	// and on a never-started driver.
	Close(ctx context.Context) error
}

// Factory creates a driver for an instance. The application layer uses it to
// rebuild drivers for instances loaded from the registry.
type Factory func(instanceID string, cfg model.InstanceConfig) (Driver, error)

