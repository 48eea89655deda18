// Package docker implements the engine driver on top of the official
// PostgreSQL Docker image.
package docker

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
)

// containerPort is the port PostgreSQL listens on inside the container.
const containerPort = "5432/tcp"

// stopTimeoutSeconds is the grace period given to the server on container stop.
const stopTimeoutSeconds = 10

// readyPollInterval is how often the driver polls pg_isready while waiting
// for the server to accept connections.
const readyPollInterval = 100 * time.Millisecond

// DockerClient is the interface for the Docker operations that we use.
// This allows us to mock the Docker client for testing.
type DockerClient interface {
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
}

// DriverConfig is the configuration for the Docker driver.
type DriverConfig struct {
	// InstanceID names the container.
	InstanceID string
	Config     model.InstanceConfig
	// Client is the Docker API client. Created from the environment when not
	// set.
	Client DockerClient
	Logger log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.InstanceID == "" {
		return fmt.Errorf("instance id is required")
	}
	if c.Config.DockerEngine == nil || c.Config.DockerEngine.Image == "" {
		return fmt.Errorf("docker engine configuration with an image is required")
	}

	c.Config = c.Config.Defaults()

	if c.Client == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("could not create Docker client: %w", err)
		}
		c.Client = cli
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "engine.Docker", "instance-id": c.InstanceID})

	return nil
}

// Driver runs a PostgreSQL server inside a Docker container.
type Driver struct {
	cfg           model.InstanceConfig
	containerName string
	client        DockerClient
	logger        log.Logger

	// execDocker is swappable in tests. It runs the docker CLI, used for
	// in-container psql invocations.
	execDocker func(ctx context.Context, args ...string) (string, int, error)
}

// NewDriver creates a new Docker driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	d := &Driver{
		cfg:           cfg.Config,
		containerName: fmt.Sprintf("pgembed-%s", strings.ToLower(cfg.InstanceID)),
		client:        cfg.Client,
		logger:        cfg.Logger,
	}
	d.execDocker = d.runDockerCLI

	return d, nil
}

// Provision pulls the image and creates the server container. An existing
// container is reused.
func (d *Driver) Provision(ctx context.Context) error {
	if _, err := d.client.ContainerInspect(ctx, d.containerName); err == nil {
		d.logger.Debugf("container %s already exists", d.containerName)
		return nil
	}

	img := d.cfg.DockerEngine.Image
	d.logger.Infof("pulling image %s", img)
	pullResp, err := d.client.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("could not pull image %s: %w", img, err)
	}
	// Consume the pull response to ensure it completes.
	_, _ = io.Copy(io.Discard, pullResp)
	pullResp.Close()

	containerConfig := &container.Config{
		Image: img,
		Env: []string{
			"POSTGRES_USER=" + d.cfg.Username,
			"POSTGRES_PASSWORD=" + d.cfg.Password,
			"POSTGRES_DB=" + d.cfg.Database,
		},
		ExposedPorts: nat.PortSet{containerPort: struct{}{}},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			containerPort: []nat.PortBinding{{
				HostIP:   "127.0.0.1",
				HostPort: strconv.Itoa(d.cfg.Port),
			}},
		},
	}

	d.logger.Infof("creating container %s", d.containerName)
	if _, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, d.containerName); err != nil {
		return fmt.Errorf("could not create container %s: %w", d.containerName, err)
	}

	return nil
}

// Start starts the container and waits until the server inside accepts
// connections.
func (d *Driver) Start(ctx context.Context) error {
	if err := d.client.ContainerStart(ctx, d.containerName, container.StartOptions{}); err != nil {
		if strings.Contains(err.Error(), "already started") || strings.Contains(err.Error(), "is already running") {
			d.logger.Debugf("container %s is already running", d.containerName)
		} else {
			return fmt.Errorf("could not start container %s: %w", d.containerName, err)
		}
	}

	return d.waitReady(ctx)
}

// Stop stops the container gracefully.
func (d *Driver) Stop(ctx context.Context) error {
	timeout := stopTimeoutSeconds
	if err := d.client.ContainerStop(ctx, d.containerName, container.StopOptions{Timeout: &timeout}); err != nil {
		if strings.Contains(err.Error(), "is already stopped") || strings.Contains(err.Error(), "is not running") {
			d.logger.Debugf("container %s is already stopped", d.containerName)
			return nil
		}
		return fmt.Errorf("could not stop container %s: %w", d.containerName, err)
	}

	return nil
}

// CreateDatabase creates a database through psql inside the container.
func (d *Driver) CreateDatabase(ctx context.Context, name string) error {
	out, code, err := d.psql(ctx, fmt.Sprintf("CREATE DATABASE %s", quoteIdent(name)))
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("create database failed: %s", strings.TrimSpace(out))
	}

	return nil
}

// DropDatabase drops a database through psql inside the container.
func (d *Driver) DropDatabase(ctx context.Context, name string) error {
	out, code, err := d.psql(ctx, fmt.Sprintf("DROP DATABASE %s", quoteIdent(name)))
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("drop database failed: %s", strings.TrimSpace(out))
	}

	return nil
}

// DatabaseExists checks the pg_database catalog through psql inside the
// container.
func (d *Driver) DatabaseExists(ctx context.Context, name string) (bool, error) {
	query := fmt.Sprintf("SELECT 1 FROM pg_database WHERE datname = '%s'", strings.ReplaceAll(name, "'", "''"))
	out, code, err := d.psql(ctx, query)
	if err != nil {
		return false, err
	}
	if code != 0 {
		return false, fmt.Errorf("catalog query failed: %s", strings.TrimSpace(out))
	}

	return strings.TrimSpace(out) == "1", nil
}

// BinDir returns empty, the binaries live inside the container.
func (d *Driver) BinDir() string { return "" }

// DataDir returns empty, the cluster data lives inside the container.
func (d *Driver) DataDir() string { return "" }

// Close stops and removes the container. Persistent instances keep their
// stopped container (and its data volume) around for the next run.
func (d *Driver) Close(ctx context.Context) error {
	timeout := stopTimeoutSeconds
	if err := d.client.ContainerStop(ctx, d.containerName, container.StopOptions{Timeout: &timeout}); err != nil {
		if !strings.Contains(err.Error(), "No such container") {
			d.logger.Warningf("could not stop container %s: %v", d.containerName, err)
		}
	}

	if d.cfg.Persistent {
		d.logger.Debugf("persistent instance, keeping container %s", d.containerName)
		return nil
	}

	if err := d.client.ContainerRemove(ctx, d.containerName, container.RemoveOptions{Force: true}); err != nil {
		if strings.Contains(err.Error(), "No such container") {
			return nil
		}
		return fmt.Errorf("could not remove container %s: %w", d.containerName, err)
	}
	d.logger.Infof("removed container %s", d.containerName)

	return nil
}

// waitReady polls pg_isready inside the container until the server answers or
// the context ends.
func (d *Driver) waitReady(ctx context.Context) error {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		_, code, err := d.execDocker(ctx, "exec", d.containerName,
			"pg_isready", "--username", d.cfg.Username, "--timeout", "1")
		if err == nil && code == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("server not ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// psql runs a SQL command through psql inside the container, against the
// postgres maintenance database.
func (d *Driver) psql(ctx context.Context, command string) (string, int, error) {
	return d.execDocker(ctx, "exec",
		"-e", "PGPASSWORD="+d.cfg.Password,
		d.containerName,
		"psql",
		"--username", d.cfg.Username,
		"--dbname", "postgres",
		"--no-psqlrc",
		"--tuples-only",
		"--no-align",
		"--command", command,
	)
}

func (d *Driver) runDockerCLI(ctx context.Context, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)

	out, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return "", 0, fmt.Errorf("could not run docker: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return string(out), exitCode, nil
}

// quoteIdent quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
