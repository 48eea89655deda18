package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/log"
	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage/sqlite"
)

func instanceFixture(id, name string) model.Instance {
	now := time.Now().UTC().Truncate(time.Second)
	return model.Instance{
		ID:          id,
		Name:        name,
		Status:      model.InstanceStatusStopped,
		Fingerprint: "abcd1234abcd1234",
		CreatedAt:   now,
		Config: model.InstanceConfig{
			Name:        name,
			LocalEngine: &model.LocalEngineConfig{BinDir: "/opt/pg/bin", DataDir: "/data/" + id},
		}.Defaults(),
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	inst := instanceFixture("id-1", "pg-1")
	require.NoError(t, repo.CreateInstance(ctx, inst))

	got, err := repo.GetInstance(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "pg-1", got.Name)
	assert.Equal(t, model.InstanceStatusStopped, got.Status)
	assert.Equal(t, "abcd1234abcd1234", got.Fingerprint)
	require.NotNil(t, got.Config.LocalEngine)
	assert.Equal(t, "/opt/pg/bin", got.Config.LocalEngine.BinDir)
	assert.Equal(t, "/data/id-1", got.Config.LocalEngine.DataDir)
	assert.Equal(t, inst.CreatedAt, got.CreatedAt)
	assert.Equal(t, 30*time.Second, got.Config.StartTimeout)

	gotByName, err := repo.GetInstanceByName(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", gotByName.ID)

	all, err := repo.ListInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	now := time.Now().UTC().Truncate(time.Second)
	inst.Status = model.InstanceStatusRunning
	inst.StartedAt = &now
	require.NoError(t, repo.UpdateInstance(ctx, inst))

	got, err = repo.GetInstance(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, now, *got.StartedAt)

	require.NoError(t, repo.DeleteInstance(ctx, "id-1"))
	_, err = repo.GetInstance(ctx, "id-1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryDockerEngineRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	inst := instanceFixture("id-docker", "pg-docker")
	inst.Config.LocalEngine = nil
	inst.Config.DockerEngine = &model.DockerEngineConfig{Image: "postgres:17"}
	require.NoError(t, repo.CreateInstance(ctx, inst))

	got, err := repo.GetInstance(ctx, "id-docker")
	require.NoError(t, err)
	assert.Nil(t, got.Config.LocalEngine)
	require.NotNil(t, got.Config.DockerEngine)
	assert.Equal(t, "postgres:17", got.Config.DockerEngine.Image)
}

func TestRepositoryDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.CreateInstance(ctx, instanceFixture("id-1", "pg-1")))

	err := repo.CreateInstance(ctx, instanceFixture("id-1", "pg-other"))
	assert.ErrorIs(t, err, model.ErrAlreadyExists)

	err = repo.CreateInstance(ctx, instanceFixture("id-2", "pg-1"))
	assert.ErrorIs(t, err, model.ErrAlreadyExists)
}

func TestRepositoryMissing(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.GetInstance(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = repo.GetInstanceByName(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = repo.UpdateInstance(ctx, instanceFixture("missing", "pg-x"))
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = repo.DeleteInstance(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRepositoryMissingEngine(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	inst := instanceFixture("id-1", "pg-1")
	inst.Config.LocalEngine = nil

	err := repo.CreateInstance(ctx, inst)
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestRepositoryListOrder(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	older := instanceFixture("id-old", "pg-old")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	newer := instanceFixture("id-new", "pg-new")

	require.NoError(t, repo.CreateInstance(ctx, older))
	require.NoError(t, repo.CreateInstance(ctx, newer))

	all, err := repo.ListInstances(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "id-new", all[0].ID)
	assert.Equal(t, "id-old", all[1].ID)
}
