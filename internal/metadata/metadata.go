// Package metadata implements the Schema Metadata Service (C6):
// read-only access (plus permission-gated curation writes) to a curated
// catalogue of tables, columns, descriptions, and semantic tags, backed
// by PostgreSQL. C2's Table Allow-List Cache and C7's NL-to-SQL
// Generator both read from this package; metadata edits here never
// mutate the analytics database itself.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/caller"
	"github.com/nexushealth/data-explorer/internal/errors"
	"github.com/nexushealth/data-explorer/internal/sqlsafety"
)

// ColumnMetadata describes one column of a catalogued table.
type ColumnMetadata struct {
	Name        string
	Type        string
	Nullable    bool
	Description string
	SemanticTag string
}

// TableMetadata is one row of the curated catalogue.
type TableMetadata struct {
	ID          string
	Schema      string
	Table       string
	Description string
	IsActive    bool
	Columns     []ColumnMetadata
	UpdatedAt   time.Time
}

// Identity returns the normalized (schema, table) identity, the same
// form the Allow-List Cache and the SQL parser compare against.
func (t TableMetadata) Identity() sqlsafety.TableIdentity {
	return sqlsafety.NormalizeIdentity(t.Schema, t.Table)
}

// Completeness returns the fraction of documentation fields populated
// across the table's description and its columns' descriptions/semantic
// tags, used to drive curation UIs.
func (t TableMetadata) Completeness() float64 {
	total := 1 + 2*len(t.Columns)
	if total == 1 {
		if t.Description != "" {
			return 1.0
		}
		return 0.0
	}
	filled := 0
	if t.Description != "" {
		filled++
	}
	for _, c := range t.Columns {
		if c.Description != "" {
			filled++
		}
		if c.SemanticTag != "" {
			filled++
		}
	}
	return float64(filled) / float64(total)
}

// Filter narrows list_tables by schema and/or a case-insensitive
// substring of the table name. Zero value matches everything.
type Filter struct {
	Schema        string
	NameContains  string
	ActiveOnly    bool
}

// Service implements C6's list_tables/get_columns/completeness
// operations over a PostgreSQL-backed catalogue, gated by
// metadata:read/metadata:write permissions.
type Service struct {
	db    *sql.DB
	authz *authz.Evaluator

	mu             sync.RWMutex
	cache          map[string]*TableMetadata
	cacheAt        time.Time
	cacheTTL       time.Duration
	columnMappings map[string]*ColumnMapping
}

// NewService creates a Schema Metadata Service over db.
func NewService(db *sql.DB, evaluator *authz.Evaluator) *Service {
	return &Service{
		db:             db,
		authz:          evaluator,
		cache:          make(map[string]*TableMetadata),
		cacheTTL:       5 * time.Minute,
		columnMappings: make(map[string]*ColumnMapping),
	}
}

// ListTables returns catalogued tables matching filter, intersected
// with the permission evaluator's allow — every call requires
// metadata:read.
func (s *Service) ListTables(ctx context.Context, c *caller.Context, filter Filter) ([]*TableMetadata, error) {
	if err := s.authz.RequirePermission(ctx, c, authz.ResourceMetadata, "read"); err != nil {
		return nil, err
	}

	query := `SELECT id, schema_name, table_name, description, is_active, updated_at
		FROM catalogued_tables WHERE 1=1`
	args := []interface{}{}
	argN := 1
	if filter.Schema != "" {
		query += fmt.Sprintf(" AND schema_name = $%d", argN)
		args = append(args, filter.Schema)
		argN++
	}
	if filter.NameContains != "" {
		query += fmt.Sprintf(" AND table_name ILIKE $%d", argN)
		args = append(args, "%"+filter.NameContains+"%")
		argN++
	}
	if filter.ActiveOnly {
		query += " AND is_active = true"
	}
	query += " ORDER BY schema_name, table_name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternalInvariantViolation("metadata query failed", err.Error())
	}
	defer rows.Close()

	var out []*TableMetadata
	for rows.Next() {
		t := &TableMetadata{}
		if err := rows.Scan(&t.ID, &t.Schema, &t.Table, &t.Description, &t.IsActive, &t.UpdatedAt); err != nil {
			return nil, errors.NewInternalInvariantViolation("metadata scan failed", err.Error())
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternalInvariantViolation("metadata scan failed", err.Error())
	}
	return out, nil
}

// GetColumns returns the column metadata for tableID, requiring
// metadata:read.
func (s *Service) GetColumns(ctx context.Context, c *caller.Context, tableID string) ([]ColumnMetadata, error) {
	if err := s.authz.RequirePermission(ctx, c, authz.ResourceMetadata, "read"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, data_type, nullable, description, semantic_tag
		FROM catalogued_columns WHERE table_id = $1 ORDER BY ordinal_position
	`, tableID)
	if err != nil {
		return nil, errors.NewInternalInvariantViolation("column query failed", err.Error())
	}
	defer rows.Close()

	var out []ColumnMetadata
	for rows.Next() {
		var c ColumnMetadata
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable, &c.Description, &c.SemanticTag); err != nil {
			return nil, errors.NewInternalInvariantViolation("column scan failed", err.Error())
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Completeness returns the documentation completeness fraction for
// tableID, requiring metadata:read. Loads columns internally so callers
// don't have to sequence GetColumns first.
func (s *Service) Completeness(ctx context.Context, c *caller.Context, tableID string) (float64, error) {
	if err := s.authz.RequirePermission(ctx, c, authz.ResourceMetadata, "read"); err != nil {
		return 0, err
	}
	var t TableMetadata
	err := s.db.QueryRowContext(ctx,
		`SELECT description FROM catalogued_tables WHERE id = $1`, tableID,
	).Scan(&t.Description)
	if err == sql.ErrNoRows {
		return 0, errors.NewInternalInvariantViolation("table not found", tableID)
	}
	if err != nil {
		return 0, errors.NewInternalInvariantViolation("completeness query failed", err.Error())
	}
	cols, err := s.GetColumns(ctx, c, tableID)
	if err != nil {
		return 0, err
	}
	t.Columns = cols
	return t.Completeness(), nil
}

// UpsertTable registers or updates a curated catalogue row, requiring
// metadata:write. Never touches the analytics database itself — only
// this service's own PostgreSQL-backed catalogue.
func (s *Service) UpsertTable(ctx context.Context, c *caller.Context, t TableMetadata) error {
	if err := s.authz.RequirePermission(ctx, c, authz.ResourceMetadata, "write"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalogued_tables (schema_name, table_name, description, is_active, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (schema_name, table_name) DO UPDATE
		SET description = EXCLUDED.description, is_active = EXCLUDED.is_active, updated_at = NOW()
	`, t.Schema, t.Table, t.Description, t.IsActive)
	if err != nil {
		return errors.NewInternalInvariantViolation("metadata upsert failed", err.Error())
	}
	s.invalidateCache()
	return nil
}

// LoadAllowedTables implements allowlist.Source: every catalogued,
// active table is a candidate the Allow-List Cache may serve.
func (s *Service) LoadAllowedTables(ctx context.Context) ([]sqlsafety.TableIdentity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name, table_name FROM catalogued_tables WHERE is_active = true
	`)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to load allow-list source: %w", err)
	}
	defer rows.Close()

	var out []sqlsafety.TableIdentity
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, fmt.Errorf("metadata: failed to scan allow-list row: %w", err)
		}
		out = append(out, sqlsafety.NormalizeIdentity(schema, table))
		// Also register the bare form so unqualified references (some
		// generators emit "FROM patients" instead of "FROM analytics.patients")
		// still resolve against the same active table.
		out = append(out, sqlsafety.NormalizeIdentity("", table))
	}
	return out, rows.Err()
}

func (s *Service) invalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*TableMetadata)
	s.cacheAt = time.Time{}
	s.columnMappings = make(map[string]*ColumnMapping)
}

// ColumnMapping is the per-data-source record the chart-data surface
// reads, derived from the curated catalogue. Cached indefinitely,
// invalidated only explicitly (via UpsertTable or InvalidateColumnMapping),
// matching the teacher's table-capability caching idiom
// (cache populated on first access, never silently expired).
type ColumnMapping struct {
	DataSourceID     string
	DateField        string
	MeasureField     string
	MeasureTypeField string
	TimePeriodField  string
	PracticeField    string
	ProviderField    string
}

// ColumnMapping returns the cached mapping for dataSourceID, loading it
// from the curated catalogue on first access.
func (s *Service) ColumnMapping(ctx context.Context, dataSourceID string) (*ColumnMapping, error) {
	s.mu.RLock()
	if cm, ok := s.columnMappings[dataSourceID]; ok {
		s.mu.RUnlock()
		return cm, nil
	}
	s.mu.RUnlock()

	var cm ColumnMapping
	cm.DataSourceID = dataSourceID
	var practiceField, providerField sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT date_field, measure_field, measure_type_field, time_period_field,
		       practice_field, provider_field
		FROM column_mappings WHERE data_source_id = $1
	`, dataSourceID).Scan(&cm.DateField, &cm.MeasureField, &cm.MeasureTypeField,
		&cm.TimePeriodField, &practiceField, &providerField)
	if err == sql.ErrNoRows {
		return nil, errors.NewInternalInvariantViolation("column mapping not found", dataSourceID)
	}
	if err != nil {
		return nil, errors.NewInternalInvariantViolation("column mapping query failed", err.Error())
	}
	cm.PracticeField = practiceField.String
	cm.ProviderField = providerField.String

	s.mu.Lock()
	s.columnMappings[dataSourceID] = &cm
	s.mu.Unlock()

	return &cm, nil
}

// InvalidateColumnMapping forces the next ColumnMapping call for
// dataSourceID to reload from the catalogue.
func (s *Service) InvalidateColumnMapping(dataSourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.columnMappings, dataSourceID)
}
