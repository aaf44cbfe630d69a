// Package bigquery provides the Google BigQuery engine adapter.
package bigquery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/nexushealth/data-explorer/internal/executor"
)

// Config configures the BigQuery adapter.
type Config struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	DefaultDataset  string
}

// Validate checks that Config carries a project to query against.
func (c Config) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("bigquery: project_id is required")
	}
	return nil
}

// Adapter implements executor.Engine for BigQuery.
type Adapter struct {
	mu     sync.RWMutex
	config Config
	client *bigquery.Client
	closed bool
}

// NewAdapter creates a BigQuery client. With no CredentialsJSON the
// SDK falls back to Application Default Credentials.
func NewAdapter(ctx context.Context, config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Location == "" {
		config.Location = "US"
	}

	var opts []option.ClientOption
	if config.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(config.CredentialsJSON)))
	}

	client, err := bigquery.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: failed to create client: %w", err)
	}

	return &Adapter{config: config, client: client}, nil
}

// Name returns the engine name.
func (a *Adapter) Name() string { return "bigquery" }

// Execute runs query against BigQuery, applying rowCap during the
// iterator walk.
func (a *Adapter) Execute(ctx context.Context, query string, rowCap int) (*executor.Result, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.client == nil {
		return nil, fmt.Errorf("bigquery: client not available")
	}

	q := a.client.Query(query)
	if a.config.DefaultDataset != "" {
		q.DefaultDatasetID = a.config.DefaultDataset
	}
	if a.config.Location != "" {
		q.Location = a.config.Location
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: query failed: %w", err)
	}

	columns := make([]string, len(it.Schema))
	for i, field := range it.Schema {
		columns[i] = field.Name
	}

	resultRows := make([][]interface{}, 0)
	truncated := false
	for {
		if rowCap > 0 && len(resultRows) >= rowCap {
			truncated = true
			break
		}
		var row []bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: failed to read row: %w", err)
		}
		rowData := make([]interface{}, len(row))
		for i, v := range row {
			rowData[i] = v
		}
		resultRows = append(resultRows, rowData)
	}

	return &executor.Result{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
		Metadata: map[string]string{
			"engine":   "bigquery",
			"project":  a.config.ProjectID,
			"location": a.config.Location,
		},
	}, nil
}

// Ping checks if BigQuery is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.client == nil {
		return fmt.Errorf("bigquery: client not available")
	}
	_, err := a.client.Query("SELECT 1").Read(ctx)
	if err != nil {
		return fmt.Errorf("bigquery: ping failed: %w", err)
	}
	return nil
}

// CheckHealth runs a trivial query end-to-end to verify connectivity.
func (a *Adapter) CheckHealth(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed || a.client == nil {
		return fmt.Errorf("bigquery: client not available")
	}
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	it, err := a.client.Query("SELECT 1").Read(healthCtx)
	if err != nil {
		return fmt.Errorf("bigquery: health check failed: %w", err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return fmt.Errorf("bigquery: health check read failed: %w", err)
	}
	return nil
}

// Close releases the underlying client. Idempotent.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

var _ executor.Engine = (*Adapter)(nil)
