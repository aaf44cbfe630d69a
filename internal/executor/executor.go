// Package executor implements the Query Executor (C5): a registry of
// engine adapters plus the timeout and row-cap enforcement shared by
// all of them. Per spec §4.5, adapters stay stateless, thin, and
// explicit: no silent retries, no hidden fallbacks.
package executor

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/nexushealth/data-explorer/internal/errors"
)

// Result is the outcome of running one final query against one engine.
type Result struct {
	Columns   []string
	Rows      [][]interface{}
	RowCount  int
	Engine    string
	Duration  time.Duration
	Truncated bool
	Metadata  map[string]string
}

// Engine is the interface every engine adapter implements. sql and
// rowCap are the exact strings/values produced by the Security Filter
// Injector; the adapter's only job is to run them against its driver
// and report results, never to reinterpret either.
type Engine interface {
	Name() string
	Execute(ctx context.Context, sql string, rowCap int) (*Result, error)
	Ping(ctx context.Context) error
	CheckHealth(ctx context.Context) error
	Close() error
}

// Registry manages engine adapters, grounded on the teacher's
// AdapterRegistry.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an engine to the registry.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Name()] = e
}

// Get returns an engine by name.
func (r *Registry) Get(name string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[name]
	return e, ok
}

// Available returns the names of all registered engines.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}

// CloseAll closes every registered engine.
func (r *Registry) CloseAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var lastErr error
	for _, e := range r.engines {
		if err := e.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// CheckAllHealth probes every registered engine.
func (r *Registry) CheckAllHealth(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make(map[string]error, len(r.engines))
	for name, e := range r.engines {
		results[name] = e.CheckHealth(ctx)
	}
	return results
}

// Default and maximum per-query timeouts, per spec §5.
const (
	DefaultTimeout = 30 * time.Second
	MaxTimeout     = 120 * time.Second
)

// Executor runs a final query against a named engine with the
// timeout ceiling and row cap the pipeline computed.
type Executor struct {
	registry *Registry
}

// NewExecutor creates a query executor over registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry}
}

// Run executes sql against engineName, clamping timeout to
// (0, MaxTimeout] and defaulting to DefaultTimeout when unset.
func (e *Executor) Run(ctx context.Context, engineName, query string, rowCap int, timeout time.Duration) (*Result, error) {
	engine, ok := e.registry.Get(engineName)
	if !ok {
		return nil, errors.NewExecutionFailed(engineName, errors.NewInternalInvariantViolation(
			"unknown engine", "engine \""+engineName+"\" is not registered"))
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := engine.Execute(queryCtx, query, rowCap)
	if err != nil {
		if queryCtx.Err() == context.DeadlineExceeded {
			return nil, errors.NewTimeout(int(timeout.Milliseconds()))
		}
		return nil, errors.NewExecutionFailed(engineName, err)
	}

	result.Duration = time.Since(start)
	result.Engine = engineName
	return result, nil
}

// CollectRows reads a database/sql result set into a Result, stopping
// early once rowCap rows have been read rather than materializing the
// full result set and truncating after the fact. Shared by every
// adapter built on database/sql (duckdb, trino, snowflake, redshift).
func CollectRows(rows *sql.Rows, rowCap int) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	resultRows := make([][]interface{}, 0)
	truncated := false
	for rows.Next() {
		if rowCap > 0 && len(resultRows) >= rowCap {
			truncated = true
			break
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		resultRows = append(resultRows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Result{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}
