// Package models provides shared data models for the data-explorer
// public API: the wire format for query execution, explanation,
// metadata browsing, and NL-to-SQL generation, per spec §6.
package models

import (
	"time"
)

// TableInfo is the API response for a curated catalogue table.
type TableInfo struct {
	ID           string       `json:"id"`
	Schema       string       `json:"schema"`
	Table        string       `json:"table"`
	Description  string       `json:"description,omitempty"`
	Active       bool         `json:"active"`
	Columns      []ColumnInfo `json:"columns"`
	Completeness float64      `json:"completeness"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ColumnInfo is the API representation of one catalogued column.
type ColumnInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description,omitempty"`
	SemanticTag string `json:"semantic_tag,omitempty"`
}

// QueryRequest is the API request for executing a query.
type QueryRequest struct {
	SQL    string `json:"sql"`
	Engine string `json:"engine"`
	RowCap int    `json:"row_cap,omitempty"`
}

// QueryResponse is the API response for a query execution.
type QueryResponse struct {
	Columns   []string                 `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	RowCount  int                      `json:"row_count"`
	Engine    string                   `json:"engine"`
	Duration  string                   `json:"duration"`
	Truncated bool                     `json:"truncated"`
	Metadata  map[string]string        `json:"metadata,omitempty"`
}

// ExplainResponse is the API response for query explanation: the SQL
// that would actually run, without running it.
type ExplainResponse struct {
	SQL                  string   `json:"sql"`
	TablesReferenced     []string `json:"tables_referenced"`
	FilterApplied        bool     `json:"filter_applied"`
	PracticeIDsScopeSize int      `json:"practice_ids_scope_size"`
	RowCap               int      `json:"row_cap"`
}

// ValidationResult is the API response for query validation.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	SQL    string   `json:"sql"`
	Errors []string `json:"errors,omitempty"`
}

// GenerateRequest is the API request for NL-to-SQL generation.
type GenerateRequest struct {
	Question string `json:"question"`
}

// GenerateResponse is the API response for NL-to-SQL generation, per
// spec §6's output contract.
type GenerateResponse struct {
	SQL                 string   `json:"sql"`
	TablesUsed          []string `json:"tables_used"`
	EstimatedComplexity string   `json:"estimated_complexity"`
	ModelUsed           string   `json:"model_used"`
	PromptTokens        int      `json:"prompt_tokens"`
	CompletionTokens    int      `json:"completion_tokens"`
	Explanation         string   `json:"explanation,omitempty"`
}

// ChartDataRequest is the API request for a chart-data query.
type ChartDataRequest struct {
	DataSourceID string `json:"data_source_id"`
	From         string `json:"from"` // YYYY-MM-DD
	To           string `json:"to"`   // YYYY-MM-DD
	Engine       string `json:"engine,omitempty"`
}

// ChartPoint is one aggregated measure value for a time period.
type ChartPoint struct {
	TimePeriod string  `json:"time_period"`
	Measure    float64 `json:"measure"`
	Type       string  `json:"type,omitempty"`
}

// EngineInfo is the API response for engine information.
type EngineInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// DiscoveryResult is the API response for one catalog's discovery sync
// pass.
type DiscoveryResult struct {
	CatalogName   string   `json:"catalog_name"`
	DatabasesSeen int      `json:"databases_seen"`
	TablesSynced  int      `json:"tables_synced"`
	TablesFailed  int      `json:"tables_failed"`
	Errors        []string `json:"errors,omitempty"`
}

// AuditSummary is the API response for aggregated audit statistics. No
// raw query text is ever exposed through it.
type AuditSummary struct {
	AcceptedCount       int                   `json:"accepted_count"`
	RejectedCount       int                   `json:"rejected_count"`
	TopRejectionReasons []RejectionReasonStat `json:"top_rejection_reasons"`
	TopQueriedTables    []TableQueryStat      `json:"top_queried_tables"`
}

// RejectionReasonStat is one entry in AuditSummary.TopRejectionReasons.
type RejectionReasonStat struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// TableQueryStat is one entry in AuditSummary.TopQueriedTables.
type TableQueryStat struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

// AuthStatus is the API response for authentication status.
type AuthStatus struct {
	Authenticated  bool      `json:"authenticated"`
	CallerID       string    `json:"caller_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Permissions    []string  `json:"permissions,omitempty"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"`
}

// ErrorResponse is the API response for errors, mirroring
// internal/errors.PipelineError's caller-facing fields.
type ErrorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Code       int    `json:"code"`
}
