// Package snowflake provides the Snowflake warehouse engine adapter.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/nexushealth/data-explorer/internal/executor"

	_ "github.com/snowflakedb/gosnowflake" // registers the "snowflake" driver
)

// Config configures the Snowflake adapter.
type Config struct {
	Account        string
	User           string
	Password       string
	PrivateKey     string
	Database       string
	Schema         string
	Warehouse      string
	Role           string
	ConnectTimeout time.Duration
}

// Validate checks that Config carries enough information to connect.
func (c Config) Validate() error {
	if c.Account == "" {
		return fmt.Errorf("snowflake: account is required")
	}
	if c.User == "" {
		return fmt.Errorf("snowflake: user is required")
	}
	if c.Password == "" && c.PrivateKey == "" {
		return fmt.Errorf("snowflake: password or private_key is required")
	}
	if c.Warehouse == "" {
		return fmt.Errorf("snowflake: warehouse is required")
	}
	return nil
}

// Adapter implements executor.Engine for Snowflake.
type Adapter struct {
	mu     sync.RWMutex
	config Config
	db     *sql.DB
	closed bool
}

// NewAdapter opens a Snowflake connection and verifies it with a ping.
func NewAdapter(ctx context.Context, config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 30 * time.Second
	}

	dsn := fmt.Sprintf("%s:%s@%s/%s/%s?warehouse=%s",
		config.User, config.Password, config.Account, config.Database, config.Schema, config.Warehouse)
	if config.Role != "" {
		dsn += "&role=" + config.Role
	}
	dsn += fmt.Sprintf("&loginTimeout=%d", int(config.ConnectTimeout.Seconds()))

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("snowflake: failed to open connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("snowflake: connection test failed: %w", err)
	}

	return &Adapter{config: config, db: db}, nil
}

// Name returns the engine name.
func (a *Adapter) Name() string { return "snowflake" }

// Execute runs query against Snowflake, applying rowCap during the
// scan.
func (a *Adapter) Execute(ctx context.Context, query string, rowCap int) (*executor.Result, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return nil, fmt.Errorf("snowflake: connection not available")
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("snowflake: query failed: %w", err)
	}
	defer rows.Close()

	result, err := executor.CollectRows(rows, rowCap)
	if err != nil {
		return nil, fmt.Errorf("snowflake: %w", err)
	}
	result.Metadata = map[string]string{
		"engine":    "snowflake",
		"account":   a.config.Account,
		"warehouse": a.config.Warehouse,
	}
	return result, nil
}

// Ping checks if Snowflake is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return fmt.Errorf("snowflake: connection not available")
	}
	return a.db.PingContext(ctx)
}

// CheckHealth validates connectivity with SELECT 1.
func (a *Adapter) CheckHealth(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.db == nil {
		return fmt.Errorf("snowflake: connection not available")
	}
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	var result int
	if err := a.db.QueryRowContext(healthCtx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("snowflake: health check failed: %w", err)
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
