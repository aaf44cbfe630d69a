// Package duckdb provides the DuckDB engine adapter. DuckDB is used
// for local development and as the default engine in the analytics
// pipeline's test deployments.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/nexushealth/data-explorer/internal/executor"

	_ "github.com/marcboeker/go-duckdb" // DuckDB driver
)

// Adapter implements executor.Engine for DuckDB.
type Adapter struct {
	mu               sync.RWMutex
	db               *sql.DB
	connectionString string
	closed           bool
}

// Config configures the DuckDB adapter.
type Config struct {
	// DatabasePath is the path to the DuckDB database file.
	// Use ":memory:" for in-memory database.
	DatabasePath string
}

// NewAdapter creates a DuckDB adapter. An empty DatabasePath defaults
// to an in-memory database.
func NewAdapter(config Config) *Adapter {
	connStr := config.DatabasePath
	if connStr == "" {
		connStr = ":memory:"
	}

	db, err := sql.Open("duckdb", connStr)
	if err != nil {
		return &Adapter{connectionString: connStr, closed: true}
	}

	return &Adapter{db: db, connectionString: connStr}
}

// Name returns the engine name.
func (a *Adapter) Name() string { return "duckdb" }

// Execute runs query against DuckDB, applying rowCap during the scan.
func (a *Adapter) Execute(ctx context.Context, query string, rowCap int) (*executor.Result, error) {
	a.mu.RLock()
	if a.closed || a.db == nil {
		a.mu.RUnlock()
		return nil, fmt.Errorf("duckdb: connection is closed")
	}
	db := a.db
	a.mu.RUnlock()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("duckdb: query failed: %w", err)
	}
	defer rows.Close()

	result, err := executor.CollectRows(rows, rowCap)
	if err != nil {
		return nil, fmt.Errorf("duckdb: %w", err)
	}
	result.Metadata = map[string]string{"engine": "duckdb"}
	return result, nil
}

// Ping checks if the engine is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return fmt.Errorf("duckdb: connection is closed")
	}
	return a.db.PingContext(ctx)
}

// CheckHealth validates connectivity with SELECT 1.
func (a *Adapter) CheckHealth(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return fmt.Errorf("duckdb: connection is closed")
	}
	var result int
	return a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}

// Close releases the underlying connection. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

var _ executor.Engine = (*Adapter)(nil)
