package io_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/model"
	storageio "github.com/slok/pgembed/internal/storage/io"
)

func TestGetConfig(t *testing.T) {
	tests := map[string]struct {
		yaml      string
		expConfig model.InstanceConfig
		expErr    bool
	}{
		"A full config should load with its values": {
			yaml: `
name: analytics
host: 127.0.0.1
port: 5433
username: admin
password: s3cret
database: analytics
persistent: true
start_timeout: 45s
stop_timeout: 20s
engine:
  local:
    bin_dir: /opt/pg/bin
    data_dir: /data/analytics
`,
			expConfig: model.InstanceConfig{
				Name:         "analytics",
				Host:         "127.0.0.1",
				Port:         5433,
				Username:     "admin",
				Password:     "s3cret",
				Database:     "analytics",
				Persistent:   true,
				StartTimeout: 45 * time.Second,
				StopTimeout:  20 * time.Second,
				LocalEngine:  &model.LocalEngineConfig{BinDir: "/opt/pg/bin", DataDir: "/data/analytics"},
			},
		},
		"A minimal config should get the defaults": {
			yaml: `
name: minimal
`,
			expConfig: model.InstanceConfig{
				Name:         "minimal",
				Host:         "localhost",
				Port:         5432,
				Username:     "postgres",
				Password:     "postgres",
				Database:     "postgres",
				StartTimeout: 30 * time.Second,
				StopTimeout:  30 * time.Second,
				LocalEngine:  &model.LocalEngineConfig{},
			},
		},
		"A docker engine config should load the image": {
			yaml: `
name: dockerized
engine:
  docker:
    image: postgres:17
`,
			expConfig: model.InstanceConfig{
				Name:         "dockerized",
				Host:         "localhost",
				Port:         5432,
				Username:     "postgres",
				Password:     "postgres",
				Database:     "postgres",
				StartTimeout: 30 * time.Second,
				StopTimeout:  30 * time.Second,
				DockerEngine: &model.DockerEngineConfig{Image: "postgres:17"},
			},
		},
		"Two engines at once should fail validation": {
			yaml: `
name: broken
engine:
  local: {}
  docker:
    image: postgres:17
`,
			expErr: true,
		},
		"A docker engine without image should fail validation": {
			yaml: `
name: broken
engine:
  docker: {}
`,
			expErr: true,
		},
		"Invalid YAML should fail": {
			yaml:   `name: [`,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{
				"config.yaml": &fstest.MapFile{Data: []byte(test.yaml)},
			}
			repo := storageio.NewConfigYAMLRepository(fsys)

			got, err := repo.GetConfig(context.Background(), "config.yaml")
			if test.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expConfig, got)
		})
	}
}

func TestGetConfigMissingFile(t *testing.T) {
	repo := storageio.NewConfigYAMLRepository(fstest.MapFS{})

	_, err := repo.GetConfig(context.Background(), "missing.yaml")
	require.Error(t, err)
}
