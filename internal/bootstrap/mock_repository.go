// Package bootstrap provides configuration loading and system initialization.
package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/nexushealth/data-explorer/internal/metadata"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu     sync.RWMutex
	tables map[string]*metadata.TableMetadata
}

// NewMockRepository creates a new mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		tables: make(map[string]*metadata.TableMetadata),
	}
}

// Create adds a new table to the repository.
func (r *MockRepository) Create(ctx context.Context, table *metadata.TableMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[table.ID]; exists {
		return fmt.Errorf("table already exists: %s", table.ID)
	}
	r.tables[table.ID] = table
	return nil
}

// Get retrieves a table by id.
func (r *MockRepository) Get(ctx context.Context, id string) (*metadata.TableMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, exists := r.tables[id]
	if !exists {
		return nil, fmt.Errorf("table not found: %s", id)
	}
	return table, nil
}

// Update modifies an existing table.
func (r *MockRepository) Update(ctx context.Context, table *metadata.TableMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[table.ID]; !exists {
		return fmt.Errorf("table not found: %s", table.ID)
	}
	r.tables[table.ID] = table
	return nil
}

// Delete removes a table by id.
func (r *MockRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[id]; !exists {
		return fmt.Errorf("table not found: %s", id)
	}
	delete(r.tables, id)
	return nil
}

// List returns all tables.
func (r *MockRepository) List(ctx context.Context) ([]*metadata.TableMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*metadata.TableMetadata, 0, len(r.tables))
	for _, table := range r.tables {
		result = append(result, table)
	}
	return result, nil
}

// Exists checks if a table exists.
func (r *MockRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tables[id]
	return exists, nil
}

// TableCount returns the number of tables.
func (r *MockRepository) TableCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// HasTable checks if a specific table exists.
func (r *MockRepository) HasTable(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tables[id]
	return exists
}
