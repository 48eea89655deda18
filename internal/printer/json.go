package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/pgembed/internal/model"
)

// JSONPrinter prints instance information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// listItem represents an instance in the list output (subset of fields).
type listItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Engine    string    `json:"engine"`
	Port      int       `json:"port"`
	CreatedAt time.Time `json:"created_at"`
}

// statusOutput represents the full instance status output.
type statusOutput struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      string            `json:"status"`
	Fingerprint string            `json:"fingerprint"`
	Engine      *engineOutput     `json:"engine,omitempty"`
	Port        int               `json:"port"`
	Database    string            `json:"database"`
	Persistent  bool              `json:"persistent"`
	Connection  *connectionOutput `json:"connection,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at"`
	StoppedAt   *time.Time        `json:"stopped_at"`
}

// engineOutput represents engine configuration output.
type engineOutput struct {
	Type    string `json:"type"`
	Image   string `json:"image,omitempty"`
	BinDir  string `json:"bin_dir,omitempty"`
	DataDir string `json:"data_dir,omitempty"`
}

// connectionOutput represents connection information output. The password is
// not included, the URL field is already redacted.
type connectionOutput struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Database string `json:"database"`
	URL      string `json:"url"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintList prints instances in JSON format with a subset of fields.
func (j *JSONPrinter) PrintList(instances []model.Instance) error {
	items := make([]listItem, len(instances))
	for i, inst := range instances {
		items[i] = listItem{
			ID:        inst.ID,
			Name:      inst.Name,
			Status:    string(inst.Status),
			Engine:    engineName(inst.Config),
			Port:      inst.Config.Port,
			CreatedAt: inst.CreatedAt.UTC(),
		}
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// PrintStatus prints detailed instance status in JSON format.
func (j *JSONPrinter) PrintStatus(instance model.Instance, conn *model.ConnectionInfo) error {
	output := statusOutput{
		ID:          instance.ID,
		Name:        instance.Name,
		Status:      string(instance.Status),
		Fingerprint: instance.Fingerprint,
		Port:        instance.Config.Port,
		Database:    instance.Config.Database,
		Persistent:  instance.Config.Persistent,
		CreatedAt:   instance.CreatedAt.UTC(),
		StartedAt:   nil,
		StoppedAt:   nil,
	}

	// Add engine info
	switch {
	case instance.Config.DockerEngine != nil:
		output.Engine = &engineOutput{
			Type:  "docker",
			Image: instance.Config.DockerEngine.Image,
		}
	case instance.Config.LocalEngine != nil:
		output.Engine = &engineOutput{
			Type:    "local",
			BinDir:  instance.Config.LocalEngine.BinDir,
			DataDir: instance.Config.LocalEngine.DataDir,
		}
	}

	if conn != nil {
		output.Connection = &connectionOutput{
			Host:     conn.Host,
			Port:     conn.Port,
			Username: conn.Username,
			Database: conn.Database,
			URL:      conn.SafeURL(),
		}
	}

	if instance.StartedAt != nil {
		utcTime := instance.StartedAt.UTC()
		output.StartedAt = &utcTime
	}

	if instance.StoppedAt != nil {
		utcTime := instance.StoppedAt.UTC()
		output.StoppedAt = &utcTime
	}

	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	output := messageOutput{Message: msg}
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
