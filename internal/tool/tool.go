// Package tool invokes the PostgreSQL client utilities (pg_dump, pg_restore,
// psql...) from a resolved binaries directory and returns their raw results.
package tool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
)

// ConnectionConfig is how a tool connects to a PostgreSQL server. Empty
// fields are omitted from the produced arguments and the tool's own defaults
// apply.
type ConnectionConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// FromConnectionInfo creates a ConnectionConfig from a server's connection
// information.
func FromConnectionInfo(info model.ConnectionInfo) ConnectionConfig {
	return ConnectionConfig{
		Host:     info.Host,
		Port:     info.Port,
		Username: info.Username,
		Password: info.Password,
		Database: info.Database,
	}
}

// args renders the standard connection flags shared by most tools. The
// password never goes on the command line, it travels via PGPASSWORD.
func (c ConnectionConfig) args() []string {
	var args []string
	if c.Host != "" {
		args = append(args, "--host", c.Host)
	}
	if c.Port != 0 {
		args = append(args, "--port", strconv.Itoa(c.Port))
	}
	if c.Username != "" {
		args = append(args, "--username", c.Username)
	}
	if c.Database != "" {
		args = append(args, "--dbname", c.Database)
	}
	return args
}

// env returns the extra environment the tool process needs.
func (c ConnectionConfig) env() []string {
	if c.Password == "" {
		return nil
	}
	return []string{"PGPASSWORD=" + c.Password}
}

// conninfo renders the config as a libpq keyword/value connection string,
// used where a tool takes a whole connection string (e.g. pg_rewind
// --source-server).
func (c ConnectionConfig) conninfo() string {
	var parts []string
	if c.Host != "" {
		parts = append(parts, "host="+c.Host)
	}
	if c.Port != 0 {
		parts = append(parts, "port="+strconv.Itoa(c.Port))
	}
	if c.Username != "" {
		parts = append(parts, "user="+c.Username)
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	if c.Database != "" {
		parts = append(parts, "dbname="+c.Database)
	}
	return strings.Join(parts, " ")
}

// RunnerConfig is the configuration for the tool runner.
type RunnerConfig struct {
	// BinDir is the directory with the PostgreSQL binaries. Empty means the
	// tools are resolved from PATH.
	BinDir string
	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tool.Runner"})

	return nil
}

// Runner executes PostgreSQL client tools from a binaries directory.
//
// Non-zero tool exits are not Go errors: the caller gets the exit code plus
// the captured output and decides. Errors are reserved for not being able to
// run the tool at all.
type Runner struct {
	binDir string
	logger log.Logger

	// execute is swappable in tests.
	execute func(ctx context.Context, bin string, args []string, env []string) (*model.ToolResult, error)
}

// NewRunner creates a new tool runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := &Runner{
		binDir: cfg.BinDir,
		logger: cfg.Logger,
	}
	r.execute = r.executeCmd

	return r, nil
}

// Dump runs pg_dump.
func (r *Runner) Dump(ctx context.Context, opts DumpOptions) (*model.ToolResult, error) {
	return r.run(ctx, "pg_dump", opts.args(), opts.Connection.env())
}

// DumpAll runs pg_dumpall.
func (r *Runner) DumpAll(ctx context.Context, opts DumpAllOptions) (*model.ToolResult, error) {
	return r.run(ctx, "pg_dumpall", opts.args(), opts.Connection.env())
}

// Restore runs pg_restore.
func (r *Runner) Restore(ctx context.Context, opts RestoreOptions) (*model.ToolResult, error) {
	if opts.File == "" {
		return nil, fmt.Errorf("restore input file is required: %w", model.ErrNotValid)
	}
	return r.run(ctx, "pg_restore", opts.args(), opts.Connection.env())
}

// BaseBackup runs pg_basebackup.
func (r *Runner) BaseBackup(ctx context.Context, opts BaseBackupOptions) (*model.ToolResult, error) {
	if opts.PgData == "" {
		return nil, fmt.Errorf("base backup target directory is required: %w", model.ErrNotValid)
	}
	return r.run(ctx, "pg_basebackup", opts.args(), opts.Connection.env())
}

// Rewind runs pg_rewind.
func (r *Runner) Rewind(ctx context.Context, opts RewindOptions) (*model.ToolResult, error) {
	if opts.TargetPgData == "" {
		return nil, fmt.Errorf("rewind target data directory is required: %w", model.ErrNotValid)
	}
	if opts.SourcePgData == "" && opts.SourceServer.conninfo() == "" {
		return nil, fmt.Errorf("rewind needs a source data directory or a source server: %w", model.ErrNotValid)
	}
	return r.run(ctx, "pg_rewind", opts.args(), nil)
}

// SQL runs a SQL command through psql.
func (r *Runner) SQL(ctx context.Context, opts SQLOptions) (*model.ToolResult, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("sql command is required: %w", model.ErrNotValid)
	}
	return r.run(ctx, "psql", opts.args(), opts.Connection.env())
}

// SQLFile runs a SQL script file through psql.
func (r *Runner) SQLFile(ctx context.Context, opts SQLFileOptions) (*model.ToolResult, error) {
	if opts.File == "" {
		return nil, fmt.Errorf("sql script file is required: %w", model.ErrNotValid)
	}
	return r.run(ctx, "psql", opts.args(), opts.Connection.env())
}

// IsReady runs pg_isready and returns whether the server accepts connections.
func (r *Runner) IsReady(ctx context.Context, opts IsReadyOptions) (bool, error) {
	res, err := r.run(ctx, "pg_isready", opts.args(), opts.Connection.env())
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

func (r *Runner) run(ctx context.Context, tool string, args []string, env []string) (*model.ToolResult, error) {
	bin := tool
	if r.binDir != "" {
		bin = filepath.Join(r.binDir, tool)
	}

	r.logger.Debugf("running %s %s", tool, strings.Join(args, " "))

	res, err := r.execute(ctx, bin, args, env)
	if err != nil {
		return nil, fmt.Errorf("could not run %s: %v: %w", tool, err, model.ErrToolExecution)
	}

	if res.ExitCode != 0 {
		r.logger.Warningf("%s exited with code %d", tool, res.ExitCode)
	}

	return res, nil
}

func (r *Runner) executeCmd(ctx context.Context, bin string, args []string, env []string) (*model.ToolResult, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		exitCode = exitErr.ExitCode()
	}

	return &model.ToolResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
