// Package redshift provides the Amazon Redshift engine adapter, over
// the Postgres wire protocol Redshift speaks.
package redshift

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/nexushealth/data-explorer/internal/executor"

	_ "github.com/lib/pq" // Redshift speaks the Postgres wire protocol
)

// Config configures the Redshift adapter.
type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	SSLMode        string
	ConnectTimeout time.Duration
}

// Validate checks that Config carries enough information to connect.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("redshift: host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("redshift: database is required")
	}
	if c.User == "" {
		return fmt.Errorf("redshift: user is required")
	}
	if c.Password == "" {
		return fmt.Errorf("redshift: password is required")
	}
	return nil
}

// Adapter implements executor.Engine for Redshift.
type Adapter struct {
	mu     sync.RWMutex
	config Config
	db     *sql.DB
	closed bool
}

// NewAdapter opens a Redshift connection and verifies it with a ping.
func NewAdapter(ctx context.Context, config Config) (*Adapter, error) {
	if config.Port == 0 {
		config.Port = 5439
	}
	if config.SSLMode == "" {
		config.SSLMode = "require"
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database, config.User, config.Password, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("redshift: failed to connect: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("redshift: connection test failed: %w", err)
	}

	return &Adapter{config: config, db: db}, nil
}

// Name returns the engine name.
func (a *Adapter) Name() string { return "redshift" }

// Execute runs query against Redshift, applying rowCap during the
// scan.
func (a *Adapter) Execute(ctx context.Context, query string, rowCap int) (*executor.Result, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return nil, fmt.Errorf("redshift: connection is closed")
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("redshift: query failed: %w", err)
	}
	defer rows.Close()

	result, err := executor.CollectRows(rows, rowCap)
	if err != nil {
		return nil, fmt.Errorf("redshift: %w", err)
	}
	result.Metadata = map[string]string{
		"engine":   "redshift",
		"host":     a.config.Host,
		"database": a.config.Database,
	}
	return result, nil
}

// Ping checks if Redshift is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return fmt.Errorf("redshift: connection is closed")
	}
	return a.db.PingContext(ctx)
}

// CheckHealth validates connectivity with SELECT 1.
func (a *Adapter) CheckHealth(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return fmt.Errorf("redshift: connection is closed")
	}
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	var result int
	if err := a.db.QueryRowContext(healthCtx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("redshift: health check failed: %w", err)
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
