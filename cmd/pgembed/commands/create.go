package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/pgembed/internal/app/create"
	"github.com/slok/pgembed/internal/model"
	storageio "github.com/slok/pgembed/internal/storage/io"
)

type CreateCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	name       string
	engine     string
	configFile string

	// Connection flags.
	host     string
	port     int
	username string
	password string
	database string

	// Lifecycle flags.
	persistent   bool
	startTimeout time.Duration
	stopTimeout  time.Duration

	// Local-engine flags.
	binDir  string
	dataDir string

	// Docker-engine flags.
	image string
}

// NewCreateCommand returns the create command.
func NewCreateCommand(rootCmd *RootCommand, app *kingpin.Application) *CreateCommand {
	c := &CreateCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("create", "Register a new PostgreSQL instance.")

	c.Cmd.Flag("name", "Name for the instance.").Short('n').StringVar(&c.name)
	c.Cmd.Flag("engine", "Engine type (local, docker).").Default("local").EnumVar(&c.engine, "local", "docker")
	c.Cmd.Flag("config", "YAML file with the instance configuration, flags override nothing when set.").Short('c').StringVar(&c.configFile)

	c.Cmd.Flag("host", "Connection host.").StringVar(&c.host)
	c.Cmd.Flag("port", "Server port.").Short('p').IntVar(&c.port)
	c.Cmd.Flag("username", "Superuser name.").Short('U').StringVar(&c.username)
	c.Cmd.Flag("password", "Superuser password.").StringVar(&c.password)
	c.Cmd.Flag("database", "Default database name.").Short('d').StringVar(&c.database)

	c.Cmd.Flag("persistent", "Keep the data directory when the instance is removed.").BoolVar(&c.persistent)
	c.Cmd.Flag("start-timeout", "Start operation timeout.").DurationVar(&c.startTimeout)
	c.Cmd.Flag("stop-timeout", "Stop operation timeout.").DurationVar(&c.stopTimeout)

	c.Cmd.Flag("bin-dir", "Directory with the PostgreSQL binaries (local engine).").StringVar(&c.binDir)
	c.Cmd.Flag("pg-data-dir", "Cluster data directory (local engine).").StringVar(&c.dataDir)

	c.Cmd.Flag("image", "PostgreSQL container image (docker engine).").StringVar(&c.image)

	return c
}

func (c CreateCommand) Name() string { return c.Cmd.FullCommand() }

func (c CreateCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.instanceConfig(ctx)
	if err != nil {
		return err
	}

	// Initialize storage (SQLite).
	repo, err := newRepository(ctx, c.rootCmd)
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Create service.
	svc, err := create.NewService(create.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute create.
	inst, err := svc.Run(ctx, create.Request{Config: cfg})
	if err != nil {
		return fmt.Errorf("could not create instance: %w", err)
	}

	// Output success message.
	fmt.Fprintf(c.rootCmd.Stdout, "Instance created successfully!\n")
	fmt.Fprintf(c.rootCmd.Stdout, "  ID:     %s\n", inst.ID)
	fmt.Fprintf(c.rootCmd.Stdout, "  Name:   %s\n", inst.Name)
	fmt.Fprintf(c.rootCmd.Stdout, "  Status: %s\n", inst.Status)
	fmt.Fprintf(c.rootCmd.Stdout, "  Port:   %d\n", inst.Config.Port)

	return nil
}

// instanceConfig builds the configuration from a YAML file or from flags.
func (c CreateCommand) instanceConfig(ctx context.Context) (model.InstanceConfig, error) {
	if c.configFile != "" {
		repo := storageio.NewConfigYAMLRepository(os.DirFS("/"))
		cfg, err := repo.GetConfig(ctx, relRootPath(c.configFile))
		if err != nil {
			return model.InstanceConfig{}, fmt.Errorf("could not load config file: %w", err)
		}
		return cfg, nil
	}

	if c.name == "" {
		return model.InstanceConfig{}, fmt.Errorf("--name is required when no config file is used")
	}

	cfg := model.InstanceConfig{
		Name:         c.name,
		Host:         c.host,
		Port:         c.port,
		Username:     c.username,
		Password:     c.password,
		Database:     c.database,
		Persistent:   c.persistent,
		StartTimeout: c.startTimeout,
		StopTimeout:  c.stopTimeout,
	}

	switch c.engine {
	case "docker":
		if c.image == "" {
			return model.InstanceConfig{}, fmt.Errorf("--image is required when using the docker engine")
		}
		cfg.DockerEngine = &model.DockerEngineConfig{Image: c.image}
	default:
		cfg.LocalEngine = &model.LocalEngineConfig{BinDir: c.binDir, DataDir: c.dataDir}
	}

	return cfg, nil
}

// relRootPath turns a user path into one addressable from the root FS.
func relRootPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return strings.TrimPrefix(abs, "/")
}
