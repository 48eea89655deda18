package lib

import (
	"errors"
	"fmt"

	"github.com/slok/pgembed/internal/model"
)

// EngineType identifies the engine implementation running the server.
type EngineType string

const (
	// EngineLocal runs PostgreSQL from locally installed binaries
	// (initdb, pg_ctl...). This is the default.
	EngineLocal EngineType = "local"

	// EngineDocker runs PostgreSQL inside a Docker container.
	// Requires a reachable Docker daemon and [Config].Image.
	EngineDocker EngineType = "docker"

	// EngineFake uses an in-memory simulation (no real server).
	// Use this for unit testing without infrastructure dependencies.
	EngineFake EngineType = "fake"
)

// Status represents the lifecycle state of an instance.
//
// The lifecycle is:
//
//	stopped -> starting -> running -> stopping -> stopped
type Status string

const (
	// StatusStopped indicates no server process is running.
	StatusStopped Status = "stopped"
	// StatusStarting indicates a transition towards running is in progress.
	StatusStarting Status = "starting"
	// StatusRunning indicates the server is accepting operations.
	StatusRunning Status = "running"
	// StatusStopping indicates a transition towards stopped is in progress.
	StatusStopping Status = "stopping"
)

// ConnectionInfo holds the parameters to connect to a running instance.
type ConnectionInfo struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// URL returns the postgresql:// connection string.
func (c ConnectionInfo) URL() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s", c.Username, c.Password, c.Host, c.Port, c.Database)
}

// SafeURL returns the connection string with the password redacted, safe for logs.
func (c ConnectionInfo) SafeURL() string {
	return fmt.Sprintf("postgresql://%s:***@%s:%d/%s", c.Username, c.Host, c.Port, c.Database)
}

// JDBCURL returns the connection string in JDBC format.
func (c ConnectionInfo) JDBCURL() string {
	return fmt.Sprintf("jdbc:postgresql://%s:%d/%s?user=%s&password=%s", c.Host, c.Port, c.Database, c.Username, c.Password)
}

// ToolResult is the outcome of a PostgreSQL client tool invocation. A
// non-zero exit code is not a Go error: callers inspect the result and
// decide.
type ToolResult struct {
	// ExitCode is the process exit code.
	ExitCode int
	// Stdout is the captured standard output.
	Stdout string
	// Stderr is the captured standard error.
	Stderr string
}

// Success returns whether the tool exited with code zero.
func (r ToolResult) Success() bool { return r.ExitCode == 0 }

// Sentinel errors returned by the SDK. Match them with errors.Is.
var (
	// ErrNotValid is returned on invalid configuration or arguments.
	ErrNotValid = errors.New("not valid")
	// ErrSetupFailed is returned when provisioning fails.
	ErrSetupFailed = errors.New("setup failed")
	// ErrStartFailed is returned when the instance can't be started, including
	// starting an already running instance.
	ErrStartFailed = errors.New("start failed")
	// ErrStopFailed is returned when the instance can't be stopped, including
	// stopping an already stopped instance.
	ErrStopFailed = errors.New("stop failed")
	// ErrTimeout is returned when a lifecycle operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrDatabaseOperation is returned when a database admin operation fails
	// or the instance is not running.
	ErrDatabaseOperation = errors.New("database operation failed")
	// ErrConnectionUnavailable is returned when connection information is
	// requested while the instance is not running.
	ErrConnectionUnavailable = errors.New("connection unavailable")
	// ErrToolExecution is returned when a PostgreSQL client tool can't be run.
	ErrToolExecution = errors.New("tool execution failed")
)

func fromInternalConnectionInfo(info model.ConnectionInfo) ConnectionInfo {
	return ConnectionInfo{
		Host:     info.Host,
		Port:     info.Port,
		Username: info.Username,
		Password: info.Password,
		Database: info.Database,
	}
}

func fromInternalToolResult(r model.ToolResult) ToolResult {
	return ToolResult{
		ExitCode: r.ExitCode,
		Stdout:   r.Stdout,
		Stderr:   r.Stderr,
	}
}

// mapError translates internal sentinel errors into the exported ones so SDK
// users never depend on internal packages for errors.Is checks.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrSetupFailed):
		return joinErrors(err, ErrSetupFailed)
	case errors.Is(err, model.ErrTimeout) && errors.Is(err, model.ErrStartFailed):
		return joinErrors(joinErrors(err, ErrTimeout), ErrStartFailed)
	case errors.Is(err, model.ErrTimeout) && errors.Is(err, model.ErrStopFailed):
		return joinErrors(joinErrors(err, ErrTimeout), ErrStopFailed)
	case errors.Is(err, model.ErrStartFailed):
		return joinErrors(err, ErrStartFailed)
	case errors.Is(err, model.ErrStopFailed):
		return joinErrors(err, ErrStopFailed)
	case errors.Is(err, model.ErrTimeout):
		return joinErrors(err, ErrTimeout)
	case errors.Is(err, model.ErrDatabaseOperation):
		return joinErrors(err, ErrDatabaseOperation)
	case errors.Is(err, model.ErrConnectionUnavailable):
		return joinErrors(err, ErrConnectionUnavailable)
	case errors.Is(err, model.ErrToolExecution):
		return joinErrors(err, ErrToolExecution)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
