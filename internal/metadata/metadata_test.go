package metadata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/caller"
	pipelineerrors "github.com/nexushealth/data-explorer/internal/errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE catalogued_tables (
		id TEXT PRIMARY KEY,
		schema_name TEXT NOT NULL,
		table_name TEXT NOT NULL,
		description TEXT,
		is_active INTEGER,
		updated_at TIMESTAMP
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE catalogued_columns (
		table_id TEXT,
		ordinal_position INTEGER,
		name TEXT,
		data_type TEXT,
		nullable INTEGER,
		description TEXT,
		semantic_tag TEXT
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE column_mappings (
		data_source_id TEXT PRIMARY KEY,
		date_field TEXT,
		measure_field TEXT,
		measure_type_field TEXT,
		time_period_field TEXT,
		practice_field TEXT,
		provider_field TEXT
	)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO catalogued_tables (id, schema_name, table_name, description, is_active, updated_at)
		VALUES ('t1', 'analytics', 'encounters', 'patient encounters', 1, ?)`, time.Now())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO catalogued_tables (id, schema_name, table_name, description, is_active, updated_at)
		VALUES ('t2', 'analytics', 'archived_encounters', '', 0, ?)`, time.Now())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO catalogued_columns (table_id, ordinal_position, name, data_type, nullable, description, semantic_tag)
		VALUES ('t1', 1, 'id', 'bigint', 0, 'primary key', 'identifier')`)
	require.NoError(t, err)

	return NewService(db, authz.NewEvaluator())
}

func readCaller(t *testing.T) *caller.Context {
	t.Helper()
	c, err := caller.New("c1", false, "org-1", []string{"data-explorer:metadata:read"}, nil, nil)
	require.NoError(t, err)
	return c
}

func TestListTables_RequiresReadPermission(t *testing.T) {
	svc := newTestService(t)
	noPerm, err := caller.New("c1", false, "org-1", nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.ListTables(context.Background(), noPerm, Filter{})
	require.Error(t, err)
	var denied *pipelineerrors.ErrPermissionDenied
	require.ErrorAs(t, err, &denied)
}

func TestListTables_ActiveOnlyFilter(t *testing.T) {
	svc := newTestService(t)
	tables, err := svc.ListTables(context.Background(), readCaller(t), Filter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "encounters", tables[0].Table)
}

func TestListTables_SchemaFilter(t *testing.T) {
	svc := newTestService(t)
	tables, err := svc.ListTables(context.Background(), readCaller(t), Filter{Schema: "analytics"})
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestGetColumns_ReturnsOrderedColumns(t *testing.T) {
	svc := newTestService(t)
	cols, err := svc.GetColumns(context.Background(), readCaller(t), "t1")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "identifier", cols[0].SemanticTag)
}

func TestCompleteness_ComputesFraction(t *testing.T) {
	svc := newTestService(t)
	frac, err := svc.Completeness(context.Background(), readCaller(t), "t1")
	require.NoError(t, err)
	assert.Greater(t, frac, 0.0)
}

func TestCompleteness_UnknownTableFails(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Completeness(context.Background(), readCaller(t), "missing")
	require.Error(t, err)
}

func TestLoadAllowedTables_ReturnsOnlyActiveTables(t *testing.T) {
	svc := newTestService(t)
	ids, err := svc.LoadAllowedTables(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "encounters", ids[0].Table)
}

func TestColumnMapping_LoadsAndCaches(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.db.Exec(`INSERT INTO column_mappings (data_source_id, date_field, measure_field, measure_type_field, time_period_field, practice_field, provider_field)
		VALUES ('ds1', 'visit_date', 'amount', 'visit_type', 'visit_date', 'practice_uid', NULL)`)
	require.NoError(t, err)

	cm, err := svc.ColumnMapping(context.Background(), "ds1")
	require.NoError(t, err)
	assert.Equal(t, "amount", cm.MeasureField)
	assert.Equal(t, "practice_uid", cm.PracticeField)
	assert.Empty(t, cm.ProviderField)

	cm2, err := svc.ColumnMapping(context.Background(), "ds1")
	require.NoError(t, err)
	assert.Same(t, cm, cm2)
}

func TestColumnMapping_UnknownDataSourceFails(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.ColumnMapping(context.Background(), "missing")
	require.Error(t, err)
}

func TestInvalidateColumnMapping_ForcesReload(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.db.Exec(`INSERT INTO column_mappings (data_source_id, date_field, measure_field, measure_type_field, time_period_field, practice_field, provider_field)
		VALUES ('ds1', 'visit_date', 'amount', 'visit_type', 'visit_date', NULL, NULL)`)
	require.NoError(t, err)

	cm1, err := svc.ColumnMapping(context.Background(), "ds1")
	require.NoError(t, err)

	svc.InvalidateColumnMapping("ds1")

	cm2, err := svc.ColumnMapping(context.Background(), "ds1")
	require.NoError(t, err)
	assert.NotSame(t, cm1, cm2)
	assert.Equal(t, cm1.MeasureField, cm2.MeasureField)
}

func TestUpsertTable_RequiresWritePermission(t *testing.T) {
	svc := newTestService(t)
	err := svc.UpsertTable(context.Background(), readCaller(t), TableMetadata{Schema: "analytics", Table: "payers"})
	require.Error(t, err)
	var denied *pipelineerrors.ErrPermissionDenied
	require.ErrorAs(t, err, &denied)
}

func TestTableMetadata_Identity(t *testing.T) {
	tm := TableMetadata{Schema: "Analytics", Table: "Encounters"}
	id := tm.Identity()
	assert.Equal(t, "analytics", id.Schema)
	assert.Equal(t, "encounters", id.Table)
}

func TestTableMetadata_CompletenessFraction(t *testing.T) {
	tm := TableMetadata{
		Description: "patient encounters",
		Columns: []ColumnMetadata{
			{Name: "id", Description: "primary key", SemanticTag: "identifier"},
			{Name: "visit_date"},
		},
	}
	assert.InDelta(t, 0.6, tm.Completeness(), 0.01)
}

func TestTableMetadata_CompletenessNoColumns(t *testing.T) {
	tm := TableMetadata{Description: "x"}
	assert.Equal(t, 1.0, tm.Completeness())

	empty := TableMetadata{}
	assert.Equal(t, 0.0, empty.Completeness())
}
