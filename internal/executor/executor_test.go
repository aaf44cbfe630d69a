package executor

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipelineerrors "github.com/nexushealth/data-explorer/internal/errors"

	_ "modernc.org/sqlite"
)

type fakeEngine struct {
	name    string
	result  *Result
	err     error
	sleepMs int
}

func (f *fakeEngine) Name() string { return f.name }
func (f *fakeEngine) Execute(ctx context.Context, sql string, rowCap int) (*Result, error) {
	if f.sleepMs > 0 {
		select {
		case <-time.After(time.Duration(f.sleepMs) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}
func (f *fakeEngine) Ping(ctx context.Context) error        { return nil }
func (f *fakeEngine) CheckHealth(ctx context.Context) error { return nil }
func (f *fakeEngine) Close() error                          { return nil }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeEngine{name: "duckdb"})

	e, ok := r.Get("duckdb")
	require.True(t, ok)
	assert.Equal(t, "duckdb", e.Name())

	_, ok = r.Get("trino")
	assert.False(t, ok)
}

func TestRegistry_Available(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeEngine{name: "duckdb"})
	r.Register(&fakeEngine{name: "trino"})

	assert.ElementsMatch(t, []string{"duckdb", "trino"}, r.Available())
}

func TestRegistry_CloseAll_ReturnsLastError(t *testing.T) {
	r := NewRegistry()
	r.Register(&closingEngine{fakeEngine: fakeEngine{name: "ok"}})
	r.Register(&closingEngine{fakeEngine: fakeEngine{name: "bad"}, closeErr: errors.New("boom")})

	err := r.CloseAll()
	assert.Error(t, err)
}

type closingEngine struct {
	fakeEngine
	closeErr error
}

func (c *closingEngine) Close() error { return c.closeErr }

func TestExecutor_Run_UnknownEngineFails(t *testing.T) {
	e := NewExecutor(NewRegistry())
	_, err := e.Run(context.Background(), "missing", "SELECT 1", 10, 0)
	require.Error(t, err)

	var execErr *pipelineerrors.ErrExecutionFailed
	require.ErrorAs(t, err, &execErr)
}

func TestExecutor_Run_DefaultsTimeoutWhenUnset(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeEngine{name: "duckdb", result: &Result{Columns: []string{"id"}}})
	e := NewExecutor(r)

	result, err := e.Run(context.Background(), "duckdb", "SELECT 1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "duckdb", result.Engine)
}

func TestExecutor_Run_ClampsTimeoutAboveMax(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeEngine{name: "duckdb", result: &Result{}})
	e := NewExecutor(r)

	_, err := e.Run(context.Background(), "duckdb", "SELECT 1", 10, 999*time.Second)
	require.NoError(t, err)
}

func TestExecutor_Run_ConvertsDeadlineExceededToTimeout(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeEngine{name: "slow", sleepMs: 50})
	e := NewExecutor(r)

	_, err := e.Run(context.Background(), "slow", "SELECT 1", 10, 5*time.Millisecond)
	require.Error(t, err)

	var timeoutErr *pipelineerrors.ErrTimeout
	require.ErrorAs(t, err, &timeoutErr)
}

func TestExecutor_Run_WrapsNonTimeoutEngineErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeEngine{name: "duckdb", err: errors.New("connection refused")})
	e := NewExecutor(r)

	_, err := e.Run(context.Background(), "duckdb", "SELECT 1", 10, time.Second)
	require.Error(t, err)

	var execErr *pipelineerrors.ErrExecutionFailed
	require.ErrorAs(t, err, &execErr)
}

func newCollectRowsDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE widgets (id INTEGER, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO widgets (id, name) VALUES (1, 'a'), (2, 'b'), (3, 'c')`)
	require.NoError(t, err)
	return db
}

func TestCollectRows_ReadsAllRowsUnderCap(t *testing.T) {
	db := newCollectRowsDB(t)
	rows, err := db.Query(`SELECT id, name FROM widgets ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	result, err := CollectRows(rows, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Equal(t, 3, result.RowCount)
	assert.False(t, result.Truncated)
}

func TestCollectRows_StopsEarlyAndMarksTruncated(t *testing.T) {
	db := newCollectRowsDB(t)
	rows, err := db.Query(`SELECT id, name FROM widgets ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	result, err := CollectRows(rows, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestCollectRows_ZeroCapReadsEverything(t *testing.T) {
	db := newCollectRowsDB(t)
	rows, err := db.Query(`SELECT id, name FROM widgets ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	result, err := CollectRows(rows, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount)
	assert.False(t, result.Truncated)
}
