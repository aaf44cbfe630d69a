package duckdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_ExecuteSimpleSelect(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()

	result, err := a.Execute(context.Background(), "SELECT 1 AS value", 0)
	require.NoError(t, err)
	require.Len(t, result.Columns, 1)
	assert.Equal(t, 1, result.RowCount)
}

func TestAdapter_ExecuteReturnsColumnNames(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()

	result, err := a.Execute(context.Background(), "SELECT 1 AS a, 2 AS b, 'hello' AS c", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result.Columns)
}

func TestAdapter_ExecuteReturnsAllRows(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()

	result, err := a.Execute(context.Background(), "SELECT * FROM (VALUES (1), (2), (3)) AS t(num)", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
	assert.Len(t, result.Rows, 3)
}

func TestAdapter_ExecuteRespectsRowCap(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()

	result, err := a.Execute(context.Background(), "SELECT * FROM (VALUES (1), (2), (3)) AS t(num)", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestAdapter_ExecuteEmptyResult(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()

	result, err := a.Execute(context.Background(), "SELECT * FROM (VALUES (1)) AS t(num) WHERE num > 100", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
}

func TestAdapter_ExecuteFailsOnInvalidSQL(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()

	_, err := a.Execute(context.Background(), "SELECT FROM nowhere", 0)
	assert.Error(t, err)
}

func TestAdapter_NameIsDuckDB(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()
	assert.Equal(t, "duckdb", a.Name())
}

func TestAdapter_Ping(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()
	assert.NoError(t, a.Ping(context.Background()))
}

func TestAdapter_CheckHealth(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()
	assert.NoError(t, a.CheckHealth(context.Background()))
}

func TestAdapter_CloseIsIdempotent(t *testing.T) {
	a := NewAdapter(Config{})
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestAdapter_OperationsFailAfterClose(t *testing.T) {
	a := NewAdapter(Config{})
	require.NoError(t, a.Close())

	_, err := a.Execute(context.Background(), "SELECT 1", 0)
	assert.Error(t, err)
	assert.Error(t, a.Ping(context.Background()))
	assert.Error(t, a.CheckHealth(context.Background()))
}

func TestAdapter_ResultMetadataNamesEngine(t *testing.T) {
	a := NewAdapter(Config{})
	defer a.Close()

	result, err := a.Execute(context.Background(), "SELECT 1 AS value", 0)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", result.Metadata["engine"])
}

func TestAdapter_DefaultsToInMemoryDatabase(t *testing.T) {
	a := NewAdapter(Config{DatabasePath: ""})
	defer a.Close()
	assert.NoError(t, a.Ping(context.Background()))
}
