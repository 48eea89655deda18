package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/pgembed/internal/app/dbadmin"
	"github.com/slok/pgembed/internal/printer"
)

// NewDBCommand returns the parent command for database administration.
func NewDBCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("db", "Manage databases on a running instance.")
}

func newDBAdminService(ctx context.Context, rootCmd *RootCommand) (*dbadmin.Service, func() error, error) {
	repo, err := newRepository(ctx, rootCmd)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create repository: %w", err)
	}

	svc, err := dbadmin.NewService(dbadmin.ServiceConfig{
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

type DBCreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	database string
}

// NewDBCreateCommand returns the db create command.
func NewDBCreateCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *DBCreateCommand {
	c := &DBCreateCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("create", "Create a database.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Arg("database", "Database name.").Required().StringVar(&c.database)

	return c
}

func (c DBCreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c DBCreateCommand) Run(ctx context.Context) error {
	svc, closeRepo, err := newDBAdminService(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	if err := svc.CreateDatabase(ctx, dbadmin.Request{NameOrID: c.nameOrID, Database: c.database}); err != nil {
		return fmt.Errorf("could not create database: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Created database: %s", c.database)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}

type DBDropCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	database string
}

// NewDBDropCommand returns the db drop command.
func NewDBDropCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *DBDropCommand {
	c := &DBDropCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("drop", "Drop a database.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Arg("database", "Database name.").Required().StringVar(&c.database)

	return c
}

func (c DBDropCommand) Name() string { return c.Cmd.FullCommand() }

func (c DBDropCommand) Run(ctx context.Context) error {
	svc, closeRepo, err := newDBAdminService(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	if err := svc.DropDatabase(ctx, dbadmin.Request{NameOrID: c.nameOrID, Database: c.database}); err != nil {
		return fmt.Errorf("could not drop database: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Dropped database: %s", c.database)); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}

type DBExistsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
	database string
}

// NewDBExistsCommand returns the db exists command.
func NewDBExistsCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *DBExistsCommand {
	c := &DBExistsCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("exists", "Check whether a database exists.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Arg("database", "Database name.").Required().StringVar(&c.database)

	return c
}

func (c DBExistsCommand) Name() string { return c.Cmd.FullCommand() }

func (c DBExistsCommand) Run(ctx context.Context) error {
	svc, closeRepo, err := newDBAdminService(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	exists, err := svc.DatabaseExists(ctx, dbadmin.Request{NameOrID: c.nameOrID, Database: c.database})
	if err != nil {
		return fmt.Errorf("could not check database: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	msg := fmt.Sprintf("Database %s does not exist", c.database)
	if exists {
		msg = fmt.Sprintf("Database %s exists", c.database)
	}
	if err := p.PrintMessage(msg); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
