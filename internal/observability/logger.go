// Package observability provides structured audit logging for the
// analytics query pipeline. Every invocation of the pipeline — accepted
// or rejected — must emit an audit record with caller, action, the
// tables it touched, whether the tenant filter was applied, and the
// outcome.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// AuditRecord is the audit shape produced by the pipeline for every
// request, per spec §6.
type AuditRecord struct {
	// CallerID identifies who issued the request. Required.
	CallerID string

	// Action describes what was attempted, e.g. "execute_query".
	Action string

	// InputHash is a content hash of the submitted SQL, so the raw
	// query text never has to be retained to investigate a pattern of
	// rejections.
	InputHash string

	// TablesReferenced are the normalized table identities the parser
	// found, populated even when the request is later rejected.
	TablesReferenced []string

	// FilterApplied reports whether the tenant-scoping predicate was
	// injected (false for a super-admin caller that bypassed it).
	FilterApplied bool

	// PracticeIDsScopeSize is the number of accessible practice ids
	// the filter was built from.
	PracticeIDsScopeSize int

	// Outcome is "success" or the rejection Kind (spec §7) that ended
	// the request.
	Outcome string

	// DurationMs is wall-clock time for the whole pipeline invocation.
	DurationMs int64
}

// Validate checks that the mandatory fields of a record are present.
func (r *AuditRecord) Validate() error {
	if r.CallerID == "" {
		return fmt.Errorf("observability: caller_id is required")
	}
	if r.Action == "" {
		return fmt.Errorf("observability: action is required")
	}
	if r.DurationMs < 0 {
		return fmt.Errorf("observability: duration_ms cannot be negative")
	}
	return nil
}

// AuditLogger is the interface for audit logging.
type AuditLogger interface {
	// LogQuery records one pipeline invocation.
	LogQuery(ctx context.Context, record AuditRecord) error

	// GetAuditSummary returns aggregated audit statistics.
	GetAuditSummary() *AuditSummary
}

// AuditSummary represents aggregated audit statistics. No raw query
// text is ever exposed through it.
type AuditSummary struct {
	AcceptedCount       int                   `json:"accepted_count"`
	RejectedCount       int                   `json:"rejected_count"`
	TopRejectionReasons []RejectionReasonStat `json:"top_rejection_reasons"`
	TopQueriedTables    []TableQueryStat      `json:"top_queried_tables"`
}

// RejectionReasonStat represents rejection reason statistics.
type RejectionReasonStat struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// TableQueryStat represents table query statistics.
type TableQueryStat struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

// jsonLogOutput is the structured format for JSON logs.
type jsonLogOutput struct {
	Timestamp             string   `json:"timestamp"`
	Level                 string   `json:"level"`
	CallerID              string   `json:"caller_id"`
	Action                string   `json:"action"`
	InputHash             string   `json:"input_hash"`
	TablesReferenced       []string `json:"tables_referenced"`
	FilterApplied          bool     `json:"filter_applied"`
	PracticeIDsScopeSize   int      `json:"practice_ids_scope_size"`
	Outcome                string   `json:"outcome"`
	DurationMs             int64    `json:"duration_ms"`
}

// JSONLogger implements AuditLogger with JSON output, tracking entries
// in memory for GetAuditSummary.
type JSONLogger struct {
	writer  io.Writer
	entries []AuditRecord
	mu      sync.RWMutex
}

// NewJSONLogger creates a new JSON logger writing to w.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{writer: w, entries: make([]AuditRecord, 0)}
}

// LogQuery logs a pipeline invocation as one JSON line.
func (l *JSONLogger) LogQuery(ctx context.Context, record AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := record.Validate(); err != nil {
		return err
	}

	level := "info"
	if record.Outcome != "success" {
		level = "warn"
	}

	output := jsonLogOutput{
		Timestamp:            time.Now().UTC().Format(time.RFC3339),
		Level:                level,
		CallerID:             record.CallerID,
		Action:               record.Action,
		InputHash:            record.InputHash,
		TablesReferenced:     record.TablesReferenced,
		FilterApplied:        record.FilterApplied,
		PracticeIDsScopeSize: record.PracticeIDsScopeSize,
		Outcome:              record.Outcome,
		DurationMs:           record.DurationMs,
	}
	if output.TablesReferenced == nil {
		output.TablesReferenced = []string{}
	}

	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}

	l.mu.Lock()
	l.entries = append(l.entries, record)
	l.mu.Unlock()

	return nil
}

// GetAuditSummary returns aggregated audit statistics from memory.
func (l *JSONLogger) GetAuditSummary() *AuditSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return summarize(l.entries)
}

// NoopLogger discards all audit records. Useful for tests.
type NoopLogger struct{}

// NewNoopLogger creates a logger that discards everything.
func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

// LogQuery does nothing and always succeeds.
func (l *NoopLogger) LogQuery(ctx context.Context, record AuditRecord) error { return nil }

// GetAuditSummary returns an empty summary.
func (l *NoopLogger) GetAuditSummary() *AuditSummary {
	return &AuditSummary{TopRejectionReasons: []RejectionReasonStat{}, TopQueriedTables: []TableQueryStat{}}
}

// PersistentLogger implements AuditLogger with PostgreSQL persistence,
// so audit history survives a pipeline restart.
type PersistentLogger struct {
	db     *sql.DB
	writer io.Writer
}

// NewPersistentLogger creates a logger that persists to PostgreSQL.
func NewPersistentLogger(db *sql.DB) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db}, nil
}

// NewPersistentLoggerWithWriter also mirrors each record to w.
func NewPersistentLoggerWithWriter(db *sql.DB, w io.Writer) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	return &PersistentLogger{db: db, writer: w}, nil
}

// LogQuery persists a pipeline invocation to the audit_logs table.
func (l *PersistentLogger) LogQuery(ctx context.Context, record AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := record.Validate(); err != nil {
		return err
	}

	tablesJSON, err := json.Marshal(record.TablesReferenced)
	if err != nil {
		tablesJSON = []byte("[]")
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			caller_id, action, input_hash, tables_json, filter_applied,
			practice_ids_scope_size, outcome, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		record.CallerID, record.Action, record.InputHash, tablesJSON,
		record.FilterApplied, record.PracticeIDsScopeSize, record.Outcome, record.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("observability: failed to persist audit log: %w", err)
	}

	if l.writer != nil {
		level := "info"
		if record.Outcome != "success" {
			level = "warn"
		}
		output := jsonLogOutput{
			Timestamp:            time.Now().UTC().Format(time.RFC3339),
			Level:                level,
			CallerID:             record.CallerID,
			Action:               record.Action,
			InputHash:            record.InputHash,
			TablesReferenced:     record.TablesReferenced,
			FilterApplied:        record.FilterApplied,
			PracticeIDsScopeSize: record.PracticeIDsScopeSize,
			Outcome:              record.Outcome,
			DurationMs:           record.DurationMs,
		}
		if data, err := json.Marshal(output); err == nil {
			l.writer.Write(append(data, '\n'))
		}
	}

	return nil
}

// GetAuditSummary returns aggregated audit statistics from the
// database.
func (l *PersistentLogger) GetAuditSummary() *AuditSummary {
	summary := &AuditSummary{
		TopRejectionReasons: []RejectionReasonStat{},
		TopQueriedTables:    []TableQueryStat{},
	}

	ctx := context.Background()

	l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE outcome = 'success'`).Scan(&summary.AcceptedCount)
	l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs WHERE outcome != 'success'`).Scan(&summary.RejectedCount)

	if rows, err := l.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) as cnt FROM audit_logs
		WHERE outcome != 'success'
		GROUP BY outcome ORDER BY cnt DESC LIMIT 5
	`); err == nil {
		defer rows.Close()
		for rows.Next() {
			var reason string
			var count int
			if rows.Scan(&reason, &count) == nil {
				summary.TopRejectionReasons = append(summary.TopRejectionReasons, RejectionReasonStat{Reason: reason, Count: count})
			}
		}
	}

	if rows, err := l.db.QueryContext(ctx, `
		SELECT table_name, COUNT(*) as cnt
		FROM audit_logs, jsonb_array_elements_text(tables_json) as table_name
		GROUP BY table_name ORDER BY cnt DESC LIMIT 5
	`); err == nil {
		defer rows.Close()
		for rows.Next() {
			var table string
			var count int
			if rows.Scan(&table, &count) == nil {
				summary.TopQueriedTables = append(summary.TopQueriedTables, TableQueryStat{Table: table, Count: count})
			}
		}
	}

	return summary
}

func summarize(entries []AuditRecord) *AuditSummary {
	summary := &AuditSummary{
		TopRejectionReasons: []RejectionReasonStat{},
		TopQueriedTables:    []TableQueryStat{},
	}

	rejectionReasons := make(map[string]int)
	tableCounts := make(map[string]int)

	for _, e := range entries {
		if e.Outcome == "success" {
			summary.AcceptedCount++
		} else {
			summary.RejectedCount++
			rejectionReasons[e.Outcome]++
		}
		for _, table := range e.TablesReferenced {
			tableCounts[table]++
		}
	}

	for reason, count := range rejectionReasons {
		summary.TopRejectionReasons = append(summary.TopRejectionReasons, RejectionReasonStat{Reason: reason, Count: count})
	}
	sort.Slice(summary.TopRejectionReasons, func(i, j int) bool {
		return summary.TopRejectionReasons[i].Count > summary.TopRejectionReasons[j].Count
	})
	if len(summary.TopRejectionReasons) > 5 {
		summary.TopRejectionReasons = summary.TopRejectionReasons[:5]
	}

	for table, count := range tableCounts {
		summary.TopQueriedTables = append(summary.TopQueriedTables, TableQueryStat{Table: table, Count: count})
	}
	sort.Slice(summary.TopQueriedTables, func(i, j int) bool {
		return summary.TopQueriedTables[i].Count > summary.TopQueriedTables[j].Count
	})
	if len(summary.TopQueriedTables) > 5 {
		summary.TopQueriedTables = summary.TopQueriedTables[:5]
	}

	return summary
}
