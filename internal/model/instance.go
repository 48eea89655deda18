package model

import (
	"fmt"
	"time"
)

// InstanceStatus represents the lifecycle status of a PostgreSQL instance.
type InstanceStatus string

const (
	// InstanceStatusStopped indicates no server process is running. It is the
	// initial and terminal status.
	InstanceStatusStopped InstanceStatus = "stopped"
	// InstanceStatusStarting indicates a transition towards running is in progress.
	InstanceStatusStarting InstanceStatus = "starting"
	// InstanceStatusRunning indicates the server is accepting operations.
	InstanceStatusRunning InstanceStatus = "running"
	// InstanceStatusStopping indicates a transition towards stopped is in progress.
	InstanceStatusStopping InstanceStatus = "stopping"
)

// Valid returns true if the status is one of the known lifecycle statuses.
func (s InstanceStatus) Valid() bool {
	switch s {
	case InstanceStatusStopped, InstanceStatusStarting, InstanceStatusRunning, InstanceStatusStopping:
		return true
	}
	return false
}

// Instance represents a managed PostgreSQL instance.
type Instance struct {
	ID          string
	Name        string
	Status      InstanceStatus
	Config      InstanceConfig
	Fingerprint string
	CreatedAt   time.Time
	StartedAt   *time.Time
	StoppedAt   *time.Time
}

// InstanceConfig is the static configuration of a PostgreSQL instance.
// These settings are immutable after creation.
type InstanceConfig struct {
	Name     string
	Host     string
	Port     int
	Username string
	Password string
	Database string

	// Persistent keeps the data directory between runs.
	Persistent bool

	// StartTimeout and StopTimeout bound the lifecycle operations.
	StartTimeout time.Duration
	StopTimeout  time.Duration

	LocalEngine  *LocalEngineConfig
	DockerEngine *DockerEngineConfig
}

// LocalEngineConfig contains local-process engine configuration.
type LocalEngineConfig struct {
	// BinDir is the directory containing the PostgreSQL binaries (initdb, pg_ctl...).
	BinDir string
	// DataDir is the cluster data directory. Empty means a managed directory
	// under the pgembed data dir.
	DataDir string
}

// DockerEngineConfig contains Docker engine configuration.
type DockerEngineConfig struct {
	// Image is the PostgreSQL container image (e.g. "postgres:17").
	Image string
}

const (
	// DefaultHost is the connection host used when none is configured.
	DefaultHost = "localhost"
	// DefaultPort is the server port used when none is configured.
	DefaultPort = 5432
	// DefaultUsername is the superuser name used when none is configured.
	DefaultUsername = "postgres"
	// DefaultPassword is the superuser password used when none is configured.
	DefaultPassword = "postgres"
	// DefaultDatabase is the default database name used when none is configured.
	DefaultDatabase = "postgres"
	// DefaultStartTimeout bounds the start operation when none is configured.
	DefaultStartTimeout = 30 * time.Second
	// DefaultStopTimeout bounds the stop operation when none is configured.
	DefaultStopTimeout = 30 * time.Second
)

// Defaults returns a copy of the configuration with default values applied on
// the empty fields.
func (c InstanceConfig) Defaults() InstanceConfig {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	if c.Password == "" {
		c.Password = DefaultPassword
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.StartTimeout == 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.LocalEngine == nil && c.DockerEngine == nil {
		c.LocalEngine = &LocalEngineConfig{}
	}

	return c
}

// Validate validates the instance configuration.
func (c *InstanceConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535: %w", ErrNotValid)
	}

	if c.Username == "" {
		return fmt.Errorf("username is required: %w", ErrNotValid)
	}

	if c.Database == "" {
		return fmt.Errorf("database is required: %w", ErrNotValid)
	}

	if c.StartTimeout < 0 || c.StopTimeout < 0 {
		return fmt.Errorf("timeouts must be positive: %w", ErrNotValid)
	}

	if c.LocalEngine != nil && c.DockerEngine != nil {
		return fmt.Errorf("only one engine can be configured at a time: %w", ErrNotValid)
	}

	if c.DockerEngine != nil && c.DockerEngine.Image == "" {
		return fmt.Errorf("docker engine image is required: %w", ErrNotValid)
	}

	return nil
}
