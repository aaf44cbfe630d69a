// Package storage provides persistence for the data-explorer control
// plane.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nexushealth/data-explorer/internal/metadata"
)

// PostgresRepository implements MetadataRepository using PostgreSQL.
// It persists the same catalogued_tables/catalogued_columns schema that
// internal/metadata.Service reads at request time, so rows written by
// a bootstrap apply are immediately visible to the query pipeline.
type PostgresRepository struct {
	db *sql.DB
}

// PostgresConfig configures the PostgreSQL repository.
type PostgresConfig struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create registers a new catalogue table and its columns.
func (r *PostgresRepository) Create(ctx context.Context, table *metadata.TableMetadata) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM catalogued_tables WHERE id = $1)", table.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check table existence: %w", err)
	}
	if exists {
		return fmt.Errorf("table already exists: %s", table.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalogued_tables (id, schema_name, table_name, description, is_active, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		table.ID, table.Schema, table.Table, table.Description, table.IsActive,
	); err != nil {
		return fmt.Errorf("failed to insert catalog table: %w", err)
	}

	if err := r.replaceColumns(ctx, tx, table); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a catalogue table by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*metadata.TableMetadata, error) {
	if id == "" {
		return nil, fmt.Errorf("table id cannot be empty")
	}

	table := &metadata.TableMetadata{ID: id}
	var description sql.NullString
	var updatedAt time.Time

	err := r.db.QueryRowContext(ctx,
		`SELECT schema_name, table_name, description, is_active, updated_at
		 FROM catalogued_tables WHERE id = $1`,
		id,
	).Scan(&table.Schema, &table.Table, &description, &table.IsActive, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog table: %w", err)
	}
	table.Description = description.String
	table.UpdatedAt = updatedAt

	rows, err := r.db.QueryContext(ctx,
		`SELECT name, data_type, nullable, description, semantic_tag
		 FROM catalogued_columns WHERE table_id = $1 ORDER BY ordinal_position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col metadata.ColumnMetadata
		var description, semanticTag sql.NullString
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &description, &semanticTag); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Description = description.String
		col.SemanticTag = semanticTag.String
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	return table, nil
}

// Update modifies an existing catalogue table and replaces its columns.
func (r *PostgresRepository) Update(ctx context.Context, table *metadata.TableMetadata) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE catalogued_tables SET description = $1, is_active = $2, updated_at = NOW() WHERE id = $3`,
		table.Description, table.IsActive, table.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update catalog table: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("table not found: %s", table.ID)
	}

	if err := r.replaceColumns(ctx, tx, table); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a catalogue table by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("table id cannot be empty")
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM catalogued_tables WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog table: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("table not found: %s", id)
	}
	return nil
}

// List returns all registered catalogue tables.
func (r *PostgresRepository) List(ctx context.Context) ([]*metadata.TableMetadata, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM catalogued_tables ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog tables: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan table id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table ids: %w", err)
	}

	result := make([]*metadata.TableMetadata, 0, len(ids))
	for _, id := range ids {
		table, err := r.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get table %s: %w", id, err)
		}
		result = append(result, table)
	}
	return result, nil
}

// Exists checks if a table with the given id exists.
func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM catalogued_tables WHERE id = $1)", id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}

// CheckConnectivity verifies database connectivity.
func (r *PostgresRepository) CheckConnectivity(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) replaceColumns(ctx context.Context, tx *sql.Tx, table *metadata.TableMetadata) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM catalogued_columns WHERE table_id = $1", table.ID); err != nil {
		return fmt.Errorf("failed to delete columns: %w", err)
	}
	for i, col := range table.Columns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalogued_columns (table_id, name, data_type, nullable, description, semantic_tag, ordinal_position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			table.ID, col.Name, col.Type, col.Nullable, col.Description, col.SemanticTag, i,
		); err != nil {
			return fmt.Errorf("failed to insert column %s: %w", col.Name, err)
		}
	}
	return nil
}

// Verify PostgresRepository implements MetadataRepository.
var _ MetadataRepository = (*PostgresRepository)(nil)
