package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/pgembed/internal/model"
	"github.com/slok/pgembed/internal/storage/memory"
)

func instanceFixture(id, name string) model.Instance {
	now := time.Now().UTC()
	return model.Instance{
		ID:          id,
		Name:        name,
		Status:      model.InstanceStatusStopped,
		Fingerprint: "abcd1234abcd1234",
		CreatedAt:   now,
		Config: model.InstanceConfig{
			Name:        name,
			LocalEngine: &model.LocalEngineConfig{},
		}.Defaults(),
	}
}

func newRepo(t *testing.T) *memory.Repository {
	t.Helper()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
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

	gotByName, err := repo.GetInstanceByName(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, "id-1", gotByName.ID)

	all, err := repo.ListInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	inst.Status = model.InstanceStatusRunning
	require.NoError(t, repo.UpdateInstance(ctx, inst))
	got, err = repo.GetInstance(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, model.InstanceStatusRunning, got.Status)

	require.NoError(t, repo.DeleteInstance(ctx, "id-1"))
	_, err = repo.GetInstance(ctx, "id-1")
	assert.ErrorIs(t, err, model.ErrNotFound)
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

func TestRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	require.NoError(t, repo.CreateInstance(ctx, instanceFixture("id-1", "pg-1")))

	got, err := repo.GetInstance(ctx, "id-1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := repo.GetInstance(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "pg-1", again.Name)
}
