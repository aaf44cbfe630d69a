package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexushealth/data-explorer/internal/metadata"
)

func TestMockRepository_CreateGetRoundTrip(t *testing.T) {
	repo := NewMockRepository()
	table := &metadata.TableMetadata{ID: "a.b", Schema: "a", Table: "b"}

	require.NoError(t, repo.Create(context.Background(), table))

	got, err := repo.Get(context.Background(), "a.b")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Table)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMockRepository_CreateRejectsDuplicate(t *testing.T) {
	repo := NewMockRepository()
	table := &metadata.TableMetadata{ID: "a.b"}
	require.NoError(t, repo.Create(context.Background(), table))

	err := repo.Create(context.Background(), table)
	assert.Error(t, err)
}

func TestMockRepository_CreateRespectsSimulatedPersistenceFailure(t *testing.T) {
	repo := NewMockRepository()
	repo.SetPersistenceFailure(true)

	err := repo.Create(context.Background(), &metadata.TableMetadata{ID: "a.b"})
	assert.Error(t, err)
}

func TestMockRepository_UpdateRequiresExistingRow(t *testing.T) {
	repo := NewMockRepository()
	err := repo.Update(context.Background(), &metadata.TableMetadata{ID: "missing"})
	assert.Error(t, err)
}

func TestMockRepository_DeleteRemovesRow(t *testing.T) {
	repo := NewMockRepository()
	require.NoError(t, repo.Create(context.Background(), &metadata.TableMetadata{ID: "a.b"}))
	require.NoError(t, repo.Delete(context.Background(), "a.b"))

	_, err := repo.Get(context.Background(), "a.b")
	assert.Error(t, err)
}

func TestMockRepository_ListReturnsEmptySliceNotNil(t *testing.T) {
	repo := NewMockRepository()
	tables, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tables)
	assert.Empty(t, tables)
}

func TestMockRepository_Exists(t *testing.T) {
	repo := NewMockRepository()
	require.NoError(t, repo.Create(context.Background(), &metadata.TableMetadata{ID: "a.b"}))

	ok, err := repo.Exists(context.Background(), "a.b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMockRepository_CheckConnectivityTracksCallAndSimulatedFailure(t *testing.T) {
	repo := NewMockRepository()
	assert.False(t, repo.ConnectivityCheckCalled())

	require.NoError(t, repo.CheckConnectivity(context.Background()))
	assert.True(t, repo.ConnectivityCheckCalled())

	repo.SetConnectivityFailure(true)
	assert.Error(t, repo.CheckConnectivity(context.Background()))
}

func TestMockRepository_RespectsCancelledContext(t *testing.T) {
	repo := NewMockRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx)
	assert.Error(t, err)
}

func TestMockRepository_GetReturnsDefensiveCopy(t *testing.T) {
	repo := NewMockRepository()
	require.NoError(t, repo.Create(context.Background(), &metadata.TableMetadata{
		ID: "a.b", Columns: []metadata.ColumnMetadata{{Name: "id"}},
	}))

	got, err := repo.Get(context.Background(), "a.b")
	require.NoError(t, err)
	got.Columns[0].Name = "mutated"

	got2, err := repo.Get(context.Background(), "a.b")
	require.NoError(t, err)
	assert.Equal(t, "id", got2.Columns[0].Name)
}
