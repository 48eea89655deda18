package commands

import (
	"context"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/pgembed/internal/conventions"
	"github.com/slok/pgembed/internal/engine"
	"github.com/slok/pgembed/internal/engine/docker"
	"github.com/slok/pgembed/internal/engine/local"
	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage/sqlite"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string
	DataDir    string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Base directory for managed instance data.").Envar("PGEMBED_DATA_DIR").Default(defaultDataDir).StringVar(&c.DataDir)

	defaultDBPath := filepath.Join(defaultDataDir, conventions.DBFile)
	app.Flag("db-path", "Path to the SQLite registry file.").Envar("PGEMBED_DB_PATH").Default(defaultDBPath).StringVar(&c.DBPath)

	return c
}

// newRepository opens the SQLite instance registry.
func newRepository(ctx context.Context, rootCmd *RootCommand) (*sqlite.Repository, error) {
	return sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: rootCmd.DBPath,
		Logger: rootCmd.Logger,
	})
}

// newDriverFactory returns the driver factory the application services use to
// rebuild engine drivers for registered instances.
func newDriverFactory(rootCmd *RootCommand) engine.Factory {
	return func(instanceID string, cfg model.InstanceConfig) (engine.Driver, error) {
		if cfg.DockerEngine != nil {
			return docker.NewDriver(docker.DriverConfig{
				InstanceID: instanceID,
				Config:     cfg,
				Logger:     rootCmd.Logger,
			})
		}

		return local.NewDriver(local.DriverConfig{
			InstanceID:  instanceID,
			Config:      cfg,
			BaseDataDir: rootCmd.DataDir,
			Logger:      rootCmd.Logger,
		})
	}
}
