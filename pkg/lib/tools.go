package lib

import (
	"context"
	"fmt"

	"github.com/slok/pgembed/internal/tool"
)

// DumpOpts configures [Postgres.Dump] (pg_dump).
type DumpOpts struct {
	// File is where the dump is written. Empty dumps to stdout.
	File string
	// Format is the output format: p (plain), c (custom), d (directory),
	// t (tar).
	Format     string
	DataOnly   bool
	SchemaOnly bool
	Clean      bool
	Create     bool
	NoOwner    bool
	// Compression is the compression level (0-9) for supported formats.
	Compression int
}

// RestoreOpts configures [Postgres.Restore] (pg_restore).
type RestoreOpts struct {
	// File is the archive to restore from (required).
	File string
	// Format of the archive. Empty lets pg_restore detect it.
	Format            string
	Clean             bool
	Create            bool
	ExitOnError       bool
	SingleTransaction bool
	// Jobs runs the restore with this many concurrent jobs.
	Jobs int
}

// RewindOpts configures [Postgres.Rewind] (pg_rewind).
type RewindOpts struct {
	// TargetPgData is the data directory to rewind (required).
	TargetPgData string
	// DryRun reports what would be done without touching the target.
	DryRun bool
	// Progress enables progress reporting on stderr.
	Progress bool
}

// BaseBackupOpts configures [Postgres.BaseBackup] (pg_basebackup).
type BaseBackupOpts struct {
	// PgData is the target directory for the backup (required).
	PgData string
	// Format is the output format: p (plain) or t (tar).
	Format string
	// WalMethod is how WAL is included: none, fetch or stream.
	WalMethod string
}

// toolRunner builds the runner for the provisioned instance, with the
// binaries directory resolved from its engine driver and the connection from
// the running server.
func (p *Postgres) toolRunner() (*tool.Runner, tool.ConnectionConfig, error) {
	info, err := p.manager.ConnectionInfo()
	if err != nil {
		return nil, tool.ConnectionConfig{}, mapError(err)
	}

	binDir, err := p.manager.BinDir()
	if err != nil {
		return nil, tool.ConnectionConfig{}, mapError(err)
	}

	runner, err := tool.NewRunner(tool.RunnerConfig{BinDir: binDir, Logger: p.logger})
	if err != nil {
		return nil, tool.ConnectionConfig{}, mapError(fmt.Errorf("could not create tool runner: %w", err))
	}

	return runner, tool.FromConnectionInfo(*info), nil
}

// Dump runs pg_dump against the running instance.
//
// A non-zero tool exit is reported through the result, not as an error.
func (p *Postgres) Dump(ctx context.Context, opts DumpOpts) (*ToolResult, error) {
	runner, conn, err := p.toolRunner()
	if err != nil {
		return nil, err
	}

	result, err := runner.Dump(ctx, tool.DumpOptions{
		Connection:  conn,
		File:        opts.File,
		Format:      opts.Format,
		DataOnly:    opts.DataOnly,
		SchemaOnly:  opts.SchemaOnly,
		Clean:       opts.Clean,
		Create:      opts.Create,
		NoOwner:     opts.NoOwner,
		Compression: opts.Compression,
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalToolResult(*result)
	return &out, nil
}

// Restore runs pg_restore against the running instance.
func (p *Postgres) Restore(ctx context.Context, opts RestoreOpts) (*ToolResult, error) {
	runner, conn, err := p.toolRunner()
	if err != nil {
		return nil, err
	}

	result, err := runner.Restore(ctx, tool.RestoreOptions{
		Connection:        conn,
		File:              opts.File,
		Format:            opts.Format,
		Clean:             opts.Clean,
		Create:            opts.Create,
		ExitOnError:       opts.ExitOnError,
		SingleTransaction: opts.SingleTransaction,
		Jobs:              opts.Jobs,
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalToolResult(*result)
	return &out, nil
}

// BaseBackup runs pg_basebackup against the running instance.
func (p *Postgres) BaseBackup(ctx context.Context, opts BaseBackupOpts) (*ToolResult, error) {
	runner, conn, err := p.toolRunner()
	if err != nil {
		return nil, err
	}

	result, err := runner.BaseBackup(ctx, tool.BaseBackupOptions{
		Connection: conn,
		PgData:     opts.PgData,
		Format:     opts.Format,
		WalMethod:  opts.WalMethod,
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalToolResult(*result)
	return &out, nil
}

// Rewind runs pg_rewind, synchronizing the target data directory with this
// running instance as the source server.
func (p *Postgres) Rewind(ctx context.Context, opts RewindOpts) (*ToolResult, error) {
	runner, conn, err := p.toolRunner()
	if err != nil {
		return nil, err
	}

	result, err := runner.Rewind(ctx, tool.RewindOptions{
		TargetPgData: opts.TargetPgData,
		SourceServer: conn,
		DryRun:       opts.DryRun,
		Progress:     opts.Progress,
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalToolResult(*result)
	return &out, nil
}

// SQL runs a SQL command on the running instance through psql and returns its
// raw output.
func (p *Postgres) SQL(ctx context.Context, command string) (*ToolResult, error) {
	runner, conn, err := p.toolRunner()
	if err != nil {
		return nil, err
	}

	result, err := runner.SQL(ctx, tool.SQLOptions{
		Connection: conn,
		Command:    command,
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalToolResult(*result)
	return &out, nil
}

// SQLFile runs a SQL script file on the running instance through psql.
func (p *Postgres) SQLFile(ctx context.Context, path string) (*ToolResult, error) {
	runner, conn, err := p.toolRunner()
	if err != nil {
		return nil, err
	}

	result, err := runner.SQLFile(ctx, tool.SQLFileOptions{
		Connection:  conn,
		File:        path,
		StopOnError: true,
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := fromInternalToolResult(*result)
	return &out, nil
}

// IsReady checks with pg_isready whether the server accepts connections.
func (p *Postgres) IsReady(ctx context.Context) (bool, error) {
	runner, conn, err := p.toolRunner()
	if err != nil {
		return false, err
	}

	ready, err := runner.IsReady(ctx, tool.IsReadyOptions{Connection: conn})
	if err != nil {
		return false, mapError(err)
	}

	return ready, nil
}
