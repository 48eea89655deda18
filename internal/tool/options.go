package tool

import "strconv"

// DumpOptions are the pg_dump options. Only the commonly used flags are
// modeled, zero values are omitted.
type DumpOptions struct {
	Connection ConnectionConfig

	// File is where the dump is written. Empty dumps to stdout.
	File string
	// Format is the output format: p (plain), c (custom), d (directory),
	// t (tar).
	Format        string
	DataOnly      bool
	SchemaOnly    bool
	Clean         bool
	Create        bool
	NoOwner       bool
	NoPrivileges  bool
	Inserts       bool
	ColumnInserts bool
	Encoding      string
	Schema        string
	ExcludeSchema string
	Table         string
	ExcludeTable  string
	Jobs          int
	Compression   int
	Verbose       bool
}

func (o DumpOptions) args() []string {
	args := o.Connection.args()

	if o.File != "" {
		args = append(args, "--file", o.File)
	}
	if o.Format != "" {
		args = append(args, "--format", o.Format)
	}
	if o.DataOnly {
		args = append(args, "--data-only")
	}
	if o.SchemaOnly {
		args = append(args, "--schema-only")
	}
	if o.Clean {
		args = append(args, "--clean")
	}
	if o.Create {
		args = append(args, "--create")
	}
	if o.NoOwner {
		args = append(args, "--no-owner")
	}
	if o.NoPrivileges {
		args = append(args, "--no-privileges")
	}
	if o.Inserts {
		args = append(args, "--inserts")
	}
	if o.ColumnInserts {
		args = append(args, "--column-inserts")
	}
	if o.Encoding != "" {
		args = append(args, "--encoding", o.Encoding)
	}
	if o.Schema != "" {
		args = append(args, "--schema", o.Schema)
	}
	if o.ExcludeSchema != "" {
		args = append(args, "--exclude-schema", o.ExcludeSchema)
	}
	if o.Table != "" {
		args = append(args, "--table", o.Table)
	}
	if o.ExcludeTable != "" {
		args = append(args, "--exclude-table", o.ExcludeTable)
	}
	if o.Jobs > 0 {
		args = append(args, "--jobs", strconv.Itoa(o.Jobs))
	}
	if o.Compression > 0 {
		args = append(args, "--compress", strconv.Itoa(o.Compression))
	}
	if o.Verbose {
		args = append(args, "--verbose")
	}

	return args
}

// DumpAllOptions are the pg_dumpall options.
type DumpAllOptions struct {
	Connection ConnectionConfig

	File            string
	GlobalsOnly     bool
	RolesOnly       bool
	TablespacesOnly bool
	Clean           bool
	NoOwner         bool
	NoPrivileges    bool
	Verbose         bool
}

func (o DumpAllOptions) args() []string {
	// pg_dumpall has no --dbname, it iterates every database itself.
	conn := o.Connection
	conn.Database = ""
	args := conn.args()

	if o.File != "" {
		args = append(args, "--file", o.File)
	}
	if o.GlobalsOnly {
		args = append(args, "--globals-only")
	}
	if o.RolesOnly {
		args = append(args, "--roles-only")
	}
	if o.TablespacesOnly {
		args = append(args, "--tablespaces-only")
	}
	if o.Clean {
		args = append(args, "--clean")
	}
	if o.NoOwner {
		args = append(args, "--no-owner")
	}
	if o.NoPrivileges {
		args = append(args, "--no-privileges")
	}
	if o.Verbose {
		args = append(args, "--verbose")
	}

	return args
}

// RestoreOptions are the pg_restore options.
type RestoreOptions struct {
	Connection ConnectionConfig

	// File is the archive to restore (required).
	File              string
	Format            string
	Clean             bool
	Create            bool
	ExitOnError       bool
	SingleTransaction bool
	DataOnly          bool
	SchemaOnly        bool
	NoOwner           bool
	NoPrivileges      bool
	Jobs              int
	Tables            []string
	Verbose           bool
}

func (o RestoreOptions) args() []string {
	args := o.Connection.args()

	if o.Format != "" {
		args = append(args, "--format", o.Format)
	}
	if o.Clean {
		args = append(args, "--clean")
	}
	if o.Create {
		args = append(args, "--create")
	}
	if o.ExitOnError {
		args = append(args, "--exit-on-error")
	}
	if o.SingleTransaction {
		args = append(args, "--single-transaction")
	}
	if o.DataOnly {
		args = append(args, "--data-only")
	}
	if o.SchemaOnly {
		args = append(args, "--schema-only")
	}
	if o.NoOwner {
		args = append(args, "--no-owner")
	}
	if o.NoPrivileges {
		args = append(args, "--no-privileges")
	}
	if o.Jobs > 0 {
		args = append(args, "--jobs", strconv.Itoa(o.Jobs))
	}
	for _, t := range o.Tables {
		args = append(args, "--table", t)
	}
	if o.Verbose {
		args = append(args, "--verbose")
	}

	// The archive is the trailing positional argument.
	args = append(args, o.File)

	return args
}

// BaseBackupOptions are the pg_basebackup options.
type BaseBackupOptions struct {
	Connection ConnectionConfig

	// PgData is the target directory for the backup (required).
	PgData     string
	Format     string
	Checkpoint string
	MaxRate    string
	WalMethod  string
	CreateSlot bool
	Verbose    bool
}

func (o BaseBackupOptions) args() []string {
	// pg_basebackup connects to a server, not to a database.
	conn := o.Connection
	conn.Database = ""
	args := conn.args()

	args = append(args, "--pgdata", o.PgData)
	if o.Format != "" {
		args = append(args, "--format", o.Format)
	}
	if o.Checkpoint != "" {
		args = append(args, "--checkpoint", o.Checkpoint)
	}
	if o.MaxRate != "" {
		args = append(args, "--max-rate", o.MaxRate)
	}
	if o.WalMethod != "" {
		args = append(args, "--wal-method", o.WalMethod)
	}
	if o.CreateSlot {
		args = append(args, "--create-slot")
	}
	if o.Verbose {
		args = append(args, "--verbose")
	}

	return args
}

// RewindOptions are the pg_rewind options. The source is either a local data
// directory or a live server.
type RewindOptions struct {
	// TargetPgData is the data directory to rewind (required).
	TargetPgData string
	// SourcePgData is the source data directory, exclusive with SourceServer.
	SourcePgData string
	// SourceServer is the source server connection, rendered as a libpq
	// connection string.
	SourceServer ConnectionConfig

	DryRun           bool
	Progress         bool
	RestoreTargetWal bool
}

func (o RewindOptions) args() []string {
	args := []string{"--target-pgdata", o.TargetPgData}

	if o.SourcePgData != "" {
		args = append(args, "--source-pgdata", o.SourcePgData)
	} else if conninfo := o.SourceServer.conninfo(); conninfo != "" {
		args = append(args, "--source-server", conninfo)
	}

	if o.DryRun {
		args = append(args, "--dry-run")
	}
	if o.Progress {
		args = append(args, "--progress")
	}
	if o.RestoreTargetWal {
		args = append(args, "--restore-target-wal")
	}

	return args
}

// SQLOptions are the psql options for running a single SQL command.
type SQLOptions struct {
	Connection ConnectionConfig

	// Command is the SQL to run (required).
	Command string

	TuplesOnly        bool
	NoAlign           bool
	CSV               bool
	Quiet             bool
	SingleTransaction bool
}

func (o SQLOptions) args() []string {
	args := o.Connection.args()
	args = append(args, "--no-psqlrc", "--command", o.Command)
	args = append(args, o.formatArgs()...)
	return args
}

func (o SQLOptions) formatArgs() []string {
	var args []string
	if o.TuplesOnly {
		args = append(args, "--tuples-only")
	}
	if o.NoAlign {
		args = append(args, "--no-align")
	}
	if o.CSV {
		args = append(args, "--csv")
	}
	if o.Quiet {
		args = append(args, "--quiet")
	}
	if o.SingleTransaction {
		args = append(args, "--single-transaction")
	}
	return args
}

// SQLFileOptions are the psql options for running a SQL script file.
type SQLFileOptions struct {
	Connection ConnectionConfig

	// File is the SQL script to run (required).
	File string

	Quiet             bool
	SingleTransaction bool
	// StopOnError makes psql exit with code 3 on the first failing statement.
	StopOnError bool
}

func (o SQLFileOptions) args() []string {
	args := o.Connection.args()
	args = append(args, "--no-psqlrc", "--file", o.File)
	if o.Quiet {
		args = append(args, "--quiet")
	}
	if o.SingleTransaction {
		args = append(args, "--single-transaction")
	}
	if o.StopOnError {
		args = append(args, "--variable", "ON_ERROR_STOP=1")
	}
	return args
}

// IsReadyOptions are the pg_isready options.
type IsReadyOptions struct {
	Connection ConnectionConfig

	// Timeout in seconds to wait for the connection attempt. 0 uses the tool
	// default.
	Timeout int
}

func (o IsReadyOptions) args() []string {
	args := o.Connection.args()
	if o.Timeout > 0 {
		args = append(args, "--timeout", strconv.Itoa(o.Timeout))
	}
	return args
}
