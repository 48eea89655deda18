// Package io loads instance configuration from YAML files.
package io

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/slok/pgembed/internal/model"
)

// ConfigYAMLRepository loads instance configuration from YAML files.
type ConfigYAMLRepository struct {
	fs fs.FS
}

// NewConfigYAMLRepository creates a new YAML config repository.
func NewConfigYAMLRepository(filesystem fs.FS) *ConfigYAMLRepository {
	return &ConfigYAMLRepository{fs: filesystem}
}

// GetConfig loads an instance configuration from a YAML file and returns a
// validated domain model.
func (r *ConfigYAMLRepository) GetConfig(ctx context.Context, path string) (model.InstanceConfig, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.InstanceConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.InstanceConfig{}, ctx.Err()
	}

	var cfg InstanceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.InstanceConfig{}, fmt.Errorf("parsing YAML: %w", err)
	}

	mcfg, err := cfg.toModel()
	if err != nil {
		return model.InstanceConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	mcfg = mcfg.Defaults()
	if err := mcfg.Validate(); err != nil {
		return model.InstanceConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return mcfg, nil
}

// InstanceConfig represents the YAML structure for instance configuration.
type InstanceConfig struct {
	Name       string       `yaml:"name"`
	Host       string       `yaml:"host,omitempty"`
	Port       int          `yaml:"port,omitempty"`
	Username   string       `yaml:"username,omitempty"`
	Password   string       `yaml:"password,omitempty"`
	Database   string       `yaml:"database,omitempty"`
	Persistent bool         `yaml:"persistent,omitempty"`
	Engine     EngineConfig `yaml:"engine,omitempty"`

	// Timeouts are Go duration strings (e.g. "45s").
	StartTimeout string `yaml:"start_timeout,omitempty"`
	StopTimeout  string `yaml:"stop_timeout,omitempty"`
}

// EngineConfig represents the YAML structure for engine configuration.
type EngineConfig struct {
	Local  *LocalEngineConfig  `yaml:"local,omitempty"`
	Docker *DockerEngineConfig `yaml:"docker,omitempty"`
}

// LocalEngineConfig represents the YAML structure for the local engine.
type LocalEngineConfig struct {
	BinDir  string `yaml:"bin_dir,omitempty"`
	DataDir string `yaml:"data_dir,omitempty"`
}

// DockerEngineConfig represents the YAML structure for the Docker engine.
type DockerEngineConfig struct {
	Image string `yaml:"image"`
}

func (c InstanceConfig) toModel() (model.InstanceConfig, error) {
	startTimeout, err := parseDuration(c.StartTimeout)
	if err != nil {
		return model.InstanceConfig{}, fmt.Errorf("invalid start_timeout: %w", err)
	}
	stopTimeout, err := parseDuration(c.StopTimeout)
	if err != nil {
		return model.InstanceConfig{}, fmt.Errorf("invalid stop_timeout: %w", err)
	}

	mcfg := model.InstanceConfig{
		Name:         c.Name,
		Host:         c.Host,
		Port:         c.Port,
		Username:     c.Username,
		Password:     c.Password,
		Database:     c.Database,
		Persistent:   c.Persistent,
		StartTimeout: startTimeout,
		StopTimeout:  stopTimeout,
	}

	if c.Engine.Local != nil {
		mcfg.LocalEngine = &model.LocalEngineConfig{
			BinDir:  c.Engine.Local.BinDir,
			DataDir: c.Engine.Local.DataDir,
		}
	}
	if c.Engine.Docker != nil {
		mcfg.DockerEngine = &model.DockerEngineConfig{Image: c.Engine.Docker.Image}
	}

	return mcfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
