// Package api defines the public API endpoints and handlers for the
// data-explorer gateway.
package api

// API version
const Version = "0.1.0"

// API endpoints
const (
	EndpointQuery         = "/api/v1/query"
	EndpointQueryExplain  = "/api/v1/query/explain"
	EndpointQueryValidate = "/api/v1/query/validate"
	EndpointQueryGenerate = "/api/v1/query/generate"
	EndpointTables        = "/api/v1/metadata/tables"
	EndpointChartData     = "/api/v1/chart-data"
	EndpointEngines       = "/api/v1/engines"
	EndpointDiscoverySync = "/api/v1/discovery/sync"
	EndpointAuditSummary  = "/api/v1/audit/summary"
	EndpointAuth          = "/api/v1/auth"
	EndpointHealth        = "/health"
	EndpointReady         = "/ready"
)

// HTTP headers
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	HeaderQueryID       = "X-Query-ID"
)

// Content types
const (
	ContentTypeJSON = "application/json"
)
