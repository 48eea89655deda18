package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a configuration or argument is not valid.
	ErrNotValid = errors.New("not valid")

	// ErrSetupFailed is returned when instance provisioning fails.
	ErrSetupFailed = errors.New("setup failed")
	// ErrStartFailed is returned when the instance can't be started, including
	// attempts to start an instance that is already running or starting.
	ErrStartFailed = errors.New("start failed")
	// ErrStopFailed is returned when the instance can't be stopped, including
	// attempts to stop an instance that is already stopped or stopping.
	ErrStopFailed = errors.New("stop failed")
	// ErrDatabaseOperation is returned when a database admin operation fails
	// or is invoked while the instance is not running.
	ErrDatabaseOperation = errors.New("database operation failed")
	// ErrConnectionUnavailable is returned when connection information is
	// requested while the instance is not running.
	ErrConnectionUnavailable = errors.New("connection unavailable")
	// ErrTimeout is returned when a lifecycle operation exceeds its deadline.
	ErrTimeout = errors.New("operation timed out")
	// ErrToolExecution is returned when an external PostgreSQL tool fails to run.
	ErrToolExecution = errors.New("tool execution failed")
	// ErrInternal is returned on states that should be unreachable.
	ErrInternal = errors.New("internal error")
)
