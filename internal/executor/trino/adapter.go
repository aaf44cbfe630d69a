// Package trino provides the Trino engine adapter, the primary
// federated read engine for the analytics pipeline.
package trino

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/nexushealth/data-explorer/internal/executor"

	_ "github.com/trinodb/trino-go-client/trino" // Trino driver
)

// Config configures the Trino adapter.
type Config struct {
	Host    string
	Port    int
	Catalog string
	Schema  string
	User    string
	SSLMode string // "", "disable", "require"

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// Adapter implements executor.Engine for Trino.
type Adapter struct {
	mu     sync.RWMutex
	db     *sql.DB
	config Config
	closed bool
}

// NewAdapter creates a Trino adapter, applying connection pool
// defaults.
func NewAdapter(config Config) *Adapter {
	if config.User == "" {
		config.User = "data-explorer"
	}
	if config.Catalog == "" {
		config.Catalog = "memory"
	}
	if config.Schema == "" {
		config.Schema = "default"
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.ConnMaxLifetime <= 0 {
		config.ConnMaxLifetime = 5 * time.Minute
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	scheme := "http"
	if config.SSLMode == "require" {
		scheme = "https"
	}
	dsn := fmt.Sprintf("%s://%s@%s:%d?catalog=%s&schema=%s",
		scheme, config.User, config.Host, config.Port, config.Catalog, config.Schema)

	db, err := sql.Open("trino", dsn)
	if err != nil {
		return &Adapter{config: config, closed: true}
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	return &Adapter{db: db, config: config}
}

// Name returns the engine name.
func (a *Adapter) Name() string { return "trino" }

// Execute runs query against Trino, applying rowCap during the scan.
func (a *Adapter) Execute(ctx context.Context, query string, rowCap int) (*executor.Result, error) {
	a.mu.RLock()
	if a.closed || a.db == nil {
		a.mu.RUnlock()
		return nil, fmt.Errorf("trino: connection is closed")
	}
	db := a.db
	a.mu.RUnlock()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("trino: query failed: %w", err)
	}
	defer rows.Close()

	result, err := executor.CollectRows(rows, rowCap)
	if err != nil {
		return nil, fmt.Errorf("trino: %w", err)
	}
	result.Metadata = map[string]string{
		"engine":  "trino",
		"catalog": a.config.Catalog,
		"schema":  a.config.Schema,
	}
	return result, nil
}

// Ping checks if Trino is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return fmt.Errorf("trino: connection is closed")
	}
	return a.db.PingContext(ctx)
}

// CheckHealth validates the connection with SELECT 1.
func (a *Adapter) CheckHealth(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return fmt.Errorf("trino: connection is closed")
	}
	healthCtx, cancel := context.WithTimeout(ctx, a.config.ConnectTimeout)
	defer cancel()
	var result int
	if err := a.db.QueryRowContext(healthCtx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("trino: health check failed: %w", err)
	}
	return nil
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
