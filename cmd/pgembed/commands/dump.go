package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/pgembed/internal/tool"
)

type DumpCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	nameOrID   string
	file       string
	format     string
	schemaOnly bool
	dataOnly   bool
	clean      bool
	all        bool
}

// NewDumpCommand returns the dump command.
func NewDumpCommand(rootCmd *RootCommand, app *kingpin.Application) *DumpCommand {
	c := &DumpCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("dump", "Dump a running instance with pg_dump.")
	c.Cmd.Arg("name-or-id", "Instance name or ID.").Required().StringVar(&c.nameOrID)
	c.Cmd.Flag("file", "Output file, stdout when empty.").Short('f').StringVar(&c.file)
	c.Cmd.Flag("format", "Output format (p, c, d, t).").Default("p").EnumVar(&c.format, "p", "c", "d", "t")
	c.Cmd.Flag("schema-only", "Dump only the schema.").BoolVar(&c.schemaOnly)
	c.Cmd.Flag("data-only", "Dump only the data.").BoolVar(&c.dataOnly)
	c.Cmd.Flag("clean", "Include drop statements.").BoolVar(&c.clean)
	c.Cmd.Flag("all", "Dump the whole cluster with pg_dumpall instead.").BoolVar(&c.all)

	return c
}

func (c DumpCommand) Name() string { return c.Cmd.FullCommand() }

func (c DumpCommand) Run(ctx context.Context) error {
	svc, closeRepo, err := newToolrunService(ctx, c.rootCmd)
	if err != nil {
		return err
	}
	defer closeRepo()

	if c.all {
		result, err := svc.DumpAll(ctx, c.nameOrID, tool.DumpAllOptions{
			File:  c.file,
			Clean: c.clean,
		})
		if err != nil {
			return fmt.Errorf("could not dump cluster: %w", err)
		}
		return printToolResult(c.rootCmd, result)
	}

	result, err := svc.Dump(ctx, c.nameOrID, tool.DumpOptions{
		File:       c.file,
		Format:     c.format,
		SchemaOnly: c.schemaOnly,
		DataOnly:   c.dataOnly,
		Clean:      c.clean,
	})
	if err != nil {
		return fmt.Errorf("could not dump database: %w", err)
	}

	return printToolResult(c.rootCmd, result)
}
