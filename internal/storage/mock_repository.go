package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nexushealth/data-explorer/internal/metadata"
)

// MockRepository is an in-memory implementation of MetadataRepository
// for testing. It is thread-safe and respects context cancellation.
type MockRepository struct {
	mu     sync.RWMutex
	tables map[string]*metadata.TableMetadata

	connectivityFailure     bool
	persistenceFailure      bool
	connectivityCheckCalled bool
}

// NewMockRepository creates a new mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		tables: make(map[string]*metadata.TableMetadata),
	}
}

// checkContext verifies the context is not cancelled or timed out.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Create registers a new catalogue table.
func (r *MockRepository) Create(ctx context.Context, table *metadata.TableMetadata) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.persistenceFailure {
		return fmt.Errorf("persistence failure (simulated)")
	}

	if _, exists := r.tables[table.ID]; exists {
		return fmt.Errorf("table already exists: %s", table.ID)
	}

	tableCopy := copyTable(table)
	tableCopy.UpdatedAt = time.Now()
	r.tables[table.ID] = tableCopy
	return nil
}

// Get retrieves a catalogue table by id.
func (r *MockRepository) Get(ctx context.Context, id string) (*metadata.TableMetadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("table id cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	table, exists := r.tables[id]
	if !exists {
		return nil, fmt.Errorf("table not found: %s", id)
	}
	return copyTable(table), nil
}

// Update modifies an existing catalogue table.
func (r *MockRepository) Update(ctx context.Context, table *metadata.TableMetadata) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[table.ID]; !exists {
		return fmt.Errorf("table not found: %s", table.ID)
	}

	tableCopy := copyTable(table)
	tableCopy.UpdatedAt = time.Now()
	r.tables[table.ID] = tableCopy
	return nil
}

// Delete removes a catalogue table by id.
func (r *MockRepository) Delete(ctx context.Context, id string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("table id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[id]; !exists {
		return fmt.Errorf("table not found: %s", id)
	}
	delete(r.tables, id)
	return nil
}

// List returns all registered catalogue tables.
func (r *MockRepository) List(ctx context.Context) ([]*metadata.TableMetadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*metadata.TableMetadata, 0, len(r.tables))
	for _, table := range r.tables {
		result = append(result, copyTable(table))
	}
	return result, nil
}

// Exists checks if a table with the given id exists.
func (r *MockRepository) Exists(ctx context.Context, id string) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tables[id]
	return exists, nil
}

// copyTable creates a deep copy of a catalogue table.
func copyTable(src *metadata.TableMetadata) *metadata.TableMetadata {
	dst := &metadata.TableMetadata{
		ID:          src.ID,
		Schema:      src.Schema,
		Table:       src.Table,
		Description: src.Description,
		IsActive:    src.IsActive,
		UpdatedAt:   src.UpdatedAt,
	}
	if len(src.Columns) > 0 {
		dst.Columns = make([]metadata.ColumnMetadata, len(src.Columns))
		copy(dst.Columns, src.Columns)
	}
	return dst
}

// SetConnectivityFailure configures the mock to simulate connectivity failures.
func (r *MockRepository) SetConnectivityFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivityFailure = fail
}

// SetPersistenceFailure configures the mock to simulate persistence failures.
func (r *MockRepository) SetPersistenceFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistenceFailure = fail
}

// CheckConnectivity verifies database connectivity.
func (r *MockRepository) CheckConnectivity(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivityCheckCalled = true

	if r.connectivityFailure {
		return fmt.Errorf("mock connectivity failure")
	}
	return nil
}

// ConnectivityCheckCalled returns whether CheckConnectivity was called.
func (r *MockRepository) ConnectivityCheckCalled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connectivityCheckCalled
}

// Verify MockRepository implements MetadataRepository.
var _ MetadataRepository = (*MockRepository)(nil)
