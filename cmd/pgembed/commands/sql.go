package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/pgembed/internal/app/toolrun"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/tool"
)

type SQLCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	command  string
	file     string
	csv      bool
}

// NewSQLCommand returns the sql command.
func NewSQLCommand(rootCmd *RootCommand, app *kingpin.Application) *SQLCommand {
	c := &SQLCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("sql", "Run SQL on a running instance through psql.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("command", "SQL command to run.").Short('c').StringVar(&c.command)
	c.Cmd.Flag("file", "SQL script file to run.").Short('f').StringVar(&c.file)
	c.Cmd.Flag("csv", "CSV output.").BoolVar(&c.csv)

	return c
}

func (c SQLCommand) Name() string { return c.Cmd.FullCommand() }

func (c SQLCommand) Run(ctx context.Context) error {
	if (c.command == "") == (c.file == "") {
		return fmt.Errorf("exactly one of --command or --file is required")
	}

	svc, closeRepo, err := newToolrunService(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	var result *model.ToolResult
	if c.command != "" {
		result, err = svc.SQL(ctx, c.nameOrID, tool.SQLOptions{Command: c.command, CSV: c.csv})
	} else {
		result, err = svc.SQLFile(ctx, c.nameOrID, tool.SQLFileOptions{File: c.file, StopOnError: true})
	}
	if err != nil {
		return fmt.Errorf("could not run SQL: %w", err)
	}

	return printToolResult(c.rootCmd, result)
}

func newToolrunService(ctx context.Context, rootCmd *RootCommand) (*toolrun.Service, func() error, error) {
	repo, err := newRepository(ctx, rootCmd)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create repository: %w", err)
	}

	svc, err := toolrun.NewService(toolrun.ServiceConfig{
		DriverFactory: newDriverFactory(rootCmd),
		Repository:    repo,
		Logger:        rootCmd.Logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, nil, fmt.Errorf("could not create service: %w", err)
	}

	return svc, repo.Close, nil
}

// printToolResult forwards the tool output unchanged and mirrors its exit
// code as command failure.
func printToolResult(rootCmd *RootCommand, result *model.ToolResult) error {
	if result.Stdout != "" {
		fmt.Fprint(rootCmd.Stdout, result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprint(rootCmd.Stderr, result.Stderr)
	}

	if result.ExitCode != 0 {
		return fmt.Errorf("tool exited with code %d", result.ExitCode)
	}

	return nil
}
