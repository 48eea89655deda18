package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/tool"
)

type stubRunner struct {
	ready     bool
	sqlResult *model.ToolResult
	sqlErr    error
	gotSQL    tool.SQLOptions
}

func (s *stubRunner) SQL(_ context.Context, opts tool.SQLOptions) (*model.ToolResult, error) {
	s.gotSQL = opts
	return s.sqlResult, s.sqlErr
}

func (s *stubRunner) IsReady(_ context.Context, _ tool.IsReadyOptions) (bool, error) {
	return s.ready, nil
}

type execCall struct {
	bin  string
	args []string
}

func newTestDriver(t *testing.T) (*Driver, *[]execCall, *stubRunner) {
	t.Helper()

	d, err := NewDriver(DriverConfig{
		InstanceID: "01TEST",
		Config: model.InstanceConfig{
			LocalEngine: &model.LocalEngineConfig{BinDir: "/opt/pg/bin"},
		},
		BaseDataDir: t.TempDir(),
	})
	require.NoError(t, err)

	calls := &[]execCall{}
	d.execCmd = func(_ context.Context, bin string, args ...string) (string, error) {
		*calls = append(*calls, execCall{bin: bin, args: args})
		return "", nil
	}

	runner := &stubRunner{ready: true, sqlResult: &model.ToolResult{ExitCode: 0}}
	d.runner = runner

	return d, calls, runner
}

func TestNewDriver(t *testing.T) {
	tests := map[string]struct {
		config func(t *testing.T) DriverConfig
		expErr bool
	}{
		"A valid config should create the driver": {
			config: func(t *testing.T) DriverConfig {
				return DriverConfig{
					InstanceID:  "01TEST",
					Config:      model.InstanceConfig{LocalEngine: &model.LocalEngineConfig{BinDir: "/opt/pg/bin"}},
					BaseDataDir: t.TempDir(),
				}
			},
		},
		"Missing instance id should fail": {
			config: func(t *testing.T) DriverConfig {
				return DriverConfig{
					Config:      model.InstanceConfig{LocalEngine: &model.LocalEngineConfig{BinDir: "/opt/pg/bin"}},
					BaseDataDir: t.TempDir(),
				}
			},
			expErr: true,
		},
		"Missing data directories should fail": {
			config: func(t *testing.T) DriverConfig {
				return DriverConfig{
					InstanceID: "01TEST",
					Config:     model.InstanceConfig{LocalEngine: &model.LocalEngineConfig{BinDir: "/opt/pg/bin"}},
				}
			},
			expErr: true,
		},
		"A pinned data directory should not need a base data dir": {
			config: func(t *testing.T) DriverConfig {
				return DriverConfig{
					InstanceID: "01TEST",
					Config: model.InstanceConfig{LocalEngine: &model.LocalEngineConfig{
						BinDir:  "/opt/pg/bin",
						DataDir: t.TempDir(),
					}},
				}
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewDriver(test.config(t))
			if test.expErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDriverProvision(t *testing.T) {
	t.Run("A fresh data directory should be initialized with initdb", func(t *testing.T) {
		d, calls, _ := newTestDriver(t)

		require.NoError(t, d.Provision(context.Background()))

		require.Len(t, *calls, 1)
		call := (*calls)[0]
		assert.Equal(t, "initdb", call.bin)
		assert.Contains(t, call.args, "--pgdata")
		assert.Contains(t, call.args, d.DataDir())
		assert.Contains(t, call.args, "--username")
		assert.Contains(t, call.args, "postgres")
		assert.Contains(t, call.args, "--pwfile")
	})

	t.Run("An initialized data directory should be left untouched", func(t *testing.T) {
		d, calls, _ := newTestDriver(t)

		require.NoError(t, os.MkdirAll(d.DataDir(), 0o700))
		require.NoError(t, os.WriteFile(filepath.Join(d.DataDir(), "PG_VERSION"), []byte("17\n"), 0o600))

		require.NoError(t, d.Provision(context.Background()))
		assert.Empty(t, *calls)
	})

	t.Run("A failed initdb should surface the output", func(t *testing.T) {
		d, _, _ := newTestDriver(t)
		d.execCmd = func(_ context.Context, _ string, _ ...string) (string, error) {
			return "initdb: error: invalid locale", fmt.Errorf("exit status 1")
		}

		err := d.Provision(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid locale")
	})
}

func TestDriverStartStop(t *testing.T) {
	d, calls, _ := newTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Stop(ctx))

	require.Len(t, *calls, 2)

	start := (*calls)[0]
	assert.Equal(t, "pg_ctl", start.bin)
	assert.Contains(t, start.args, "start")
	assert.Contains(t, start.args, "--wait")
	assert.Contains(t, start.args, "-p 5432 -c listen_addresses=localhost")

	stop := (*calls)[1]
	assert.Equal(t, "pg_ctl", stop.bin)
	assert.Contains(t, stop.args, "stop")
	assert.Contains(t, stop.args, "fast")
}

func TestDriverStartWaitsForReadiness(t *testing.T) {
	d, _, runner := newTestDriver(t)
	runner.ready = false

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	err := d.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDriverDatabaseAdmin(t *testing.T) {
	d, calls, _ := newTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.CreateDatabase(ctx, "app"))
	require.NoError(t, d.DropDatabase(ctx, "app"))

	require.Len(t, *calls, 2)

	create := (*calls)[0]
	assert.Equal(t, "createdb", create.bin)
	assert.Equal(t, []string{"--host", "localhost", "--port", "5432", "--username", "postgres", "app"}, create.args)

	drop := (*calls)[1]
	assert.Equal(t, "dropdb", drop.bin)
	assert.Equal(t, "app", drop.args[len(drop.args)-1])
}

func TestDriverDatabaseExists(t *testing.T) {
	tests := map[string]struct {
		result    *model.ToolResult
		expExists bool
		expErr    bool
	}{
		"A row back from the catalog means the database exists": {
			result:    &model.ToolResult{ExitCode: 0, Stdout: "1\n"},
			expExists: true,
		},
		"No rows back means the database does not exist": {
			result: &model.ToolResult{ExitCode: 0, Stdout: "\n"},
		},
		"A failed query should be an error": {
			result: &model.ToolResult{ExitCode: 2, Stderr: "connection refused"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			d, _, runner := newTestDriver(t)
			runner.sqlResult = test.result

			exists, err := d.DatabaseExists(context.Background(), "app")
			if test.expErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expExists, exists)
			assert.Contains(t, runner.gotSQL.Command, "pg_database")
			assert.Equal(t, "postgres", runner.gotSQL.Connection.Database)
		})
	}
}

func TestDriverDatabaseExistsQuotesName(t *testing.T) {
	d, _, runner := newTestDriver(t)
	runner.sqlResult = &model.ToolResult{ExitCode: 0}

	_, err := d.DatabaseExists(context.Background(), "we'ird")
	require.NoError(t, err)
	assert.Contains(t, runner.gotSQL.Command, "we''ird")
}

func TestDriverClose(t *testing.T) {
	t.Run("A non-persistent instance should remove its files", func(t *testing.T) {
		d, _, _ := newTestDriver(t)
		require.NoError(t, os.MkdirAll(d.DataDir(), 0o700))

		require.NoError(t, d.Close(context.Background()))

		_, err := os.Stat(d.DataDir())
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("A persistent instance should keep its files", func(t *testing.T) {
		base := t.TempDir()
		d, err := NewDriver(DriverConfig{
			InstanceID: "01TEST",
			Config: model.InstanceConfig{
				Persistent:  true,
				LocalEngine: &model.LocalEngineConfig{BinDir: "/opt/pg/bin"},
			},
			BaseDataDir: base,
		})
		require.NoError(t, err)
		require.NoError(t, os.MkdirAll(d.DataDir(), 0o700))

		require.NoError(t, d.Close(context.Background()))

		_, err = os.Stat(d.DataDir())
		assert.NoError(t, err)
	})
}
