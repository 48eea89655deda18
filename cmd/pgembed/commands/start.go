package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/pgembed/internal/app/start"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/printer"
)

type StartCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID string
}

// NewStartCommand returns the start command.
func NewStartCommand(rootCmd *RootCommand, app *kingpin.Application) *StartCommand {
	c := &StartCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("start", "Start a registered instance.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)

	return c
}

func (c StartCommand) Name() string { return c.Cmd.FullCommand() }

func (c StartCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	// Initialize storage (SQLite).
	repo, err := newRepository(ctx, c.rootCmd)
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Create start service.
	svc, err := start.NewService(start.ServiceConfig{
		DriverFactory: newDriverFactory(c.rootCmd),
		Repository:    repo,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute start.
	inst, err := svc.Run(ctx, start.Request{NameOrID: c.nameOrID})
	if err != nil {
		return fmt.Errorf("could not start instance: %w", err)
	}

	conn := model.ConnectionInfo{
		Host:     inst.Config.Host,
		Port:     inst.Config.Port,
		Username: inst.Config.Username,
		Password: inst.Config.Password,
		Database: inst.Config.Database,
	}

	// Print success message.
	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	if err := p.PrintMessage(fmt.Sprintf("Started instance: %s (%s)", inst.Name, conn.SafeURL())); err != nil {
		return fmt.Errorf("could not print message: %w", err)
	}

	return nil
}
