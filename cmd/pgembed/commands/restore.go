package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/pgembed/internal/tool"
)

type RestoreCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID          string
	file              string
	format            string
	clean             bool
	singleTransaction bool
	jobs              int
}

// NewRestoreCommand returns the restore command.
func NewRestoreCommand(rootCmd *RootCommand, app *kingpin.Application) *RestoreCommand {
	c := &RestoreCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("restore", "Restore an archive into a running instance with pg_restore.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Arg("file", "Archive file to restore.").Required().StringVar(&c.file)
	c.Cmd.Flag("format", "Archive format, auto-detected when empty.").EnumVar(&c.format, "c", "d", "t")
	c.Cmd.Flag("clean", "Drop database objects before recreating them.").BoolVar(&c.clean)
	c.Cmd.Flag("single-transaction", "Restore as a single transaction.").BoolVar(&c.singleTransaction)
	c.Cmd.Flag("jobs", "Number of concurrent restore jobs.").Short('j').IntVar(&c.jobs)

	return c
}

func (c RestoreCommand) Name() string { return c.Cmd.FullCommand() }

func (c RestoreCommand) Run(ctx context.Context) error {
	svc, closeRepo, err := newToolrunService(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	result, err := svc.Restore(ctx, c.nameOrID, tool.RestoreOptions{
		File:              c.file,
		Format:            c.format,
		Clean:             c.clean,
		SingleTransaction: c.singleTransaction,
		ExitOnError:       true,
		Jobs:              c.jobs,
	})
	if err != nil {
		return fmt.Errorf("could not restore archive: %w", err)
	}

	return printToolResult(c.rootCmd, result)
}
