package printer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/slok/pgembed/internal/model"
)

// TablePrinter prints instance information in a table format.
type TablePrinter struct {
	writer io.Writer

	// timeNow is swappable for deterministic tests.
	timeNow func() time.Time
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{
		writer:  w,
		timeNow: time.Now,
	}
}

// PrintList prints instances in a table format.
func (t *TablePrinter) PrintList(instances []model.Instance) error {
	if len(instances) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header
	fmt.Fprintln(tw, "NAME\tSTATUS\tENGINE\tPORT\tAGE")

	// Print rows
	now := t.timeNow()
	for _, i := range instances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", i.Name, i.Status, engineName(i.Config), i.Config.Port, age(i.CreatedAt, now))
	}

	return nil
}

// PrintStatus prints detailed instance status.
func (t *TablePrinter) PrintStatus(instance model.Instance, conn *model.ConnectionInfo) error {
	fmt.Fprintf(t.writer, "Name:         %s\n", instance.Name)
	fmt.Fprintf(t.writer, "ID:           %s\n", instance.ID)
	fmt.Fprintf(t.writer, "Status:       %s\n", instance.Status)
	fmt.Fprintf(t.writer, "Fingerprint:  %s\n", instance.Fingerprint)

	// Print engine-specific info
	switch {
	case instance.Config.DockerEngine != nil:
		fmt.Fprintf(t.writer, "Engine:       docker\n")
		fmt.Fprintf(t.writer, "Image:        %s\n", instance.Config.DockerEngine.Image)
	case instance.Config.LocalEngine != nil:
		fmt.Fprintf(t.writer, "Engine:       local\n")
		if instance.Config.LocalEngine.BinDir != "" {
			fmt.Fprintf(t.writer, "Binaries:     %s\n", instance.Config.LocalEngine.BinDir)
		}
		if instance.Config.LocalEngine.DataDir != "" {
			fmt.Fprintf(t.writer, "Data:         %s\n", instance.Config.LocalEngine.DataDir)
		}
	}

	fmt.Fprintf(t.writer, "Port:         %d\n", instance.Config.Port)
	fmt.Fprintf(t.writer, "Database:     %s\n", instance.Config.Database)
	fmt.Fprintf(t.writer, "Persistent:   %t\n", instance.Config.Persistent)
	fmt.Fprintf(t.writer, "Created:      %s\n", timestamp(instance.CreatedAt))

	if instance.StartedAt != nil {
		fmt.Fprintf(t.writer, "Started:      %s\n", timestamp(*instance.StartedAt))
		if instance.Status == model.InstanceStatusRunning {
			fmt.Fprintf(t.writer, "Uptime:       %s\n", uptime(*instance.StartedAt, t.timeNow()))
		}
	}

	if instance.StoppedAt != nil {
		fmt.Fprintf(t.writer, "Stopped:      %s\n", timestamp(*instance.StoppedAt))
	}

	if conn != nil {
		fmt.Fprintf(t.writer, "URL:          %s\n", conn.SafeURL())
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func engineName(cfg model.InstanceConfig) string {
	if cfg.DockerEngine != nil {
		return "docker"
	}
	return "local"
}
