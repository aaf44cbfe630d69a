package discovery

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/caller"
	pipelineerrors "github.com/nexushealth/data-explorer/internal/errors"
	"github.com/nexushealth/data-explorer/internal/metadata"
)

// errPermanent is a typed pipeline error (non-empty errors.KindOf), used
// to script a non-retryable catalog failure; a bare error would be
// classified as transient by isTransientCatalogError.
func errPermanent() error {
	return pipelineerrors.NewInternalInvariantViolation("catalog unreachable", "simulated permanent failure")
}

// fakeCatalog is a scripted Catalog: each call returns the response or
// error configured for its database or table key, the same on every
// call, letting a test drive exactly the error-aggregation path it wants
// to exercise.
type fakeCatalog struct {
	name string

	listDatabasesErr   error
	databases          []string
	listTablesErrs     map[string]error
	tables             map[string][]TableInfo
	getTableErrs       map[string]error
	details            map[string]*TableDetail
	listDatabasesCalls int
}

func (f *fakeCatalog) Name() string { return f.name }

func (f *fakeCatalog) ListDatabases(ctx context.Context) ([]string, error) {
	f.listDatabasesCalls++
	if f.listDatabasesErr != nil {
		return nil, f.listDatabasesErr
	}
	return f.databases, nil
}

func (f *fakeCatalog) ListTables(ctx context.Context, database string) ([]TableInfo, error) {
	if err := f.listTablesErrs[database]; err != nil {
		return nil, err
	}
	return f.tables[database], nil
}

func (f *fakeCatalog) GetTable(ctx context.Context, database, table string) (*TableDetail, error) {
	key := database + "." + table
	if err := f.getTableErrs[key]; err != nil {
		return nil, err
	}
	return f.details[key], nil
}

func (f *fakeCatalog) CheckConnectivity(ctx context.Context) error { return nil }
func (f *fakeCatalog) Close() error                                { return nil }

func newTestMetadataService(t *testing.T) *metadata.Service {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE catalogued_tables (
		id INTEGER PRIMARY KEY,
		schema_name TEXT NOT NULL,
		table_name TEXT NOT NULL,
		description TEXT,
		is_active INTEGER,
		updated_at TIMESTAMP,
		UNIQUE(schema_name, table_name)
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE catalogued_columns (
		table_id TEXT, name TEXT, data_type TEXT, nullable INTEGER,
		description TEXT, semantic_tag TEXT, ordinal_position INTEGER
	)`)
	require.NoError(t, err)

	return metadata.NewService(db, authz.NewEvaluator())
}

func superAdminCaller(t *testing.T) *caller.Context {
	t.Helper()
	c, err := caller.New("discovery-test", true, "", nil, nil, nil)
	require.NoError(t, err)
	return c
}

func readOnlyCaller(t *testing.T) *caller.Context {
	t.Helper()
	c, err := caller.New("discovery-test", false, "org-1", []string{"data-explorer:metadata:read"}, nil, nil)
	require.NoError(t, err)
	return c
}

func TestSyncAll_RequiresDiscoveryRunPermission(t *testing.T) {
	s := NewSyncer(nil, newTestMetadataService(t), authz.NewEvaluator())
	_, err := s.SyncAll(context.Background(), readOnlyCaller(t))
	assert.Error(t, err)
}

func TestSyncAll_RunsEveryConfiguredCatalog(t *testing.T) {
	cat1 := &fakeCatalog{name: "glue-1"}
	cat2 := &fakeCatalog{name: "glue-2"}
	s := NewSyncer([]Catalog{cat1, cat2}, newTestMetadataService(t), authz.NewEvaluator())

	results, err := s.SyncAll(context.Background(), superAdminCaller(t))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "glue-1", results[0].CatalogName)
	assert.Equal(t, "glue-2", results[1].CatalogName)
}

func TestSyncOne_RecordsErrorWhenListDatabasesFailsPermanently(t *testing.T) {
	cat := &fakeCatalog{name: "glue", listDatabasesErr: errPermanent()}
	s := NewSyncer([]Catalog{cat}, newTestMetadataService(t), authz.NewEvaluator())

	results, err := s.SyncAll(context.Background(), superAdminCaller(t))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].DatabasesSeen)
	require.Len(t, results[0].Errors, 1)
	assert.Contains(t, results[0].Errors[0], "list databases")
}

func TestSyncOne_RecordsErrorWhenListTablesFails(t *testing.T) {
	cat := &fakeCatalog{
		name:      "glue",
		databases: []string{"analytics"},
		listTablesErrs: map[string]error{
			"analytics": errPermanent(),
		},
	}
	s := NewSyncer([]Catalog{cat}, newTestMetadataService(t), authz.NewEvaluator())

	results, err := s.SyncAll(context.Background(), superAdminCaller(t))
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].DatabasesSeen)
	assert.Equal(t, 0, results[0].TablesSynced)
	require.Len(t, results[0].Errors, 1)
	assert.Contains(t, results[0].Errors[0], "list tables in analytics")
}

func TestSyncOne_RecordsErrorWhenGetTableFails(t *testing.T) {
	cat := &fakeCatalog{
		name:      "glue",
		databases: []string{"analytics"},
		tables: map[string][]TableInfo{
			"analytics": {{Database: "analytics", Name: "encounters"}},
		},
		getTableErrs: map[string]error{
			"analytics.encounters": errPermanent(),
		},
	}
	s := NewSyncer([]Catalog{cat}, newTestMetadataService(t), authz.NewEvaluator())

	results, err := s.SyncAll(context.Background(), superAdminCaller(t))
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].TablesFailed)
	assert.Equal(t, 0, results[0].TablesSynced)
	require.Len(t, results[0].Errors, 1)
	assert.Contains(t, results[0].Errors[0], "get table analytics.encounters")
}

func TestSyncOne_RecordsErrorWhenUpsertFails(t *testing.T) {
	// UpsertTable's SQL uses PostgreSQL's NOW(), which the in-memory
	// SQLite backing newTestMetadataService doesn't support, so the
	// upsert step always fails here; this exercises the failure path
	// (TablesFailed + Errors), not the success path, which would need a
	// live PostgreSQL database to exercise end to end.
	cat := &fakeCatalog{
		name:      "glue",
		databases: []string{"analytics"},
		tables: map[string][]TableInfo{
			"analytics": {{Database: "analytics", Name: "encounters"}},
		},
		details: map[string]*TableDetail{
			"analytics.encounters": {Database: "analytics", Name: "encounters"},
		},
	}
	s := NewSyncer([]Catalog{cat}, newTestMetadataService(t), authz.NewEvaluator())

	results, err := s.SyncAll(context.Background(), superAdminCaller(t))
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].TablesFailed)
	require.Len(t, results[0].Errors, 1)
	assert.Contains(t, results[0].Errors[0], "upsert analytics.encounters")
}

func TestIsTransientCatalogError_TreatsPlainErrorsAsTransient(t *testing.T) {
	assert.True(t, isTransientCatalogError(stderrors.New("network blip")))
}

func TestIsTransientCatalogError_TreatsTypedPipelineErrorsAsPermanent(t *testing.T) {
	assert.False(t, isTransientCatalogError(errPermanent()))
}
