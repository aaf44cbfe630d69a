// Package gateway exposes the Query Safety & Execution Pipeline and its
// supporting services over HTTP, per the endpoints and wire types
// named in pkg/api and pkg/models. It has no teacher file to adapt —
// the teacher's own cmd/gateway/main.go references an internal/gateway
// package that was never present in its source tree — so it is
// grounded instead on pkg/api's endpoint constants, pkg/models' wire
// shapes, and the teacher's internal/cli/gateway_client.go (the
// client-side mirror of this handler set) and internal/status/status.go
// (the ReadinessResult/ComponentStatus shape this package's /ready
// handler fills in). No HTTP router library appears anywhere in the
// retrieval pack, so handlers are registered on a plain
// http.ServeMux.
package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nexushealth/data-explorer/internal/auth"
	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/caller"
	"github.com/nexushealth/data-explorer/internal/chartdata"
	"github.com/nexushealth/data-explorer/internal/errors"
	"github.com/nexushealth/data-explorer/internal/executor"
	"github.com/nexushealth/data-explorer/internal/metadata"
	"github.com/nexushealth/data-explorer/internal/metadata/discovery"
	"github.com/nexushealth/data-explorer/internal/nlsql"
	"github.com/nexushealth/data-explorer/internal/observability"
	"github.com/nexushealth/data-explorer/internal/pipeline"
	"github.com/nexushealth/data-explorer/internal/sqlsafety"
	"github.com/nexushealth/data-explorer/pkg/api"
	"github.com/nexushealth/data-explorer/pkg/models"
)

// Config configures a Gateway.
type Config struct {
	Version         string
	ProductionMode  bool
	DefaultEngine   string
	RequestTimeout  time.Duration
}

// Gateway wires the Query Safety & Execution Pipeline (C8), the
// NL-to-SQL Generator (C7), the Schema Metadata Service (C6), the
// Chart Data surface, and the Discovery Syncer behind one HTTP
// handler.
type Gateway struct {
	cfg        Config
	authn      auth.Authenticator
	authz      *authz.Evaluator
	pipeline   *pipeline.Pipeline
	metadata   *metadata.Service
	generator  *nlsql.Generator // nil when NL-to-SQL is disabled
	chart      *chartdata.Service
	discoverer *discovery.Syncer // nil when no discovery catalogs are configured
	engines    *executor.Registry
	audit      observability.AuditLogger
	mux        *http.ServeMux
}

// New constructs a Gateway and registers its routes.
func New(
	cfg Config,
	authn auth.Authenticator,
	evaluator *authz.Evaluator,
	pl *pipeline.Pipeline,
	metadataService *metadata.Service,
	generator *nlsql.Generator,
	chartService *chartdata.Service,
	discoverer *discovery.Syncer,
	engines *executor.Registry,
	audit observability.AuditLogger,
) *Gateway {
	g := &Gateway{
		cfg:        cfg,
		authn:      authn,
		authz:      evaluator,
		pipeline:   pl,
		metadata:   metadataService,
		generator:  generator,
		chart:      chartService,
		discoverer: discoverer,
		engines:    engines,
		audit:      audit,
		mux:        http.NewServeMux(),
	}
	g.routes()
	return g
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *Gateway) routes() {
	g.mux.HandleFunc(api.EndpointHealth, g.handleHealth)
	g.mux.HandleFunc(api.EndpointReady, g.handleReady)
	g.mux.HandleFunc(api.EndpointAuth, g.withAuth(g.handleAuthStatus))
	g.mux.HandleFunc(api.EndpointQuery, g.withAuth(g.handleQuery))
	g.mux.HandleFunc(api.EndpointQueryExplain, g.withAuth(g.handleQueryExplain))
	g.mux.HandleFunc(api.EndpointQueryValidate, g.withAuth(g.handleQueryValidate))
	g.mux.HandleFunc(api.EndpointQueryGenerate, g.withAuth(g.handleQueryGenerate))
	g.mux.HandleFunc(api.EndpointTables, g.withAuth(g.handleTables))
	g.mux.HandleFunc(api.EndpointChartData, g.withAuth(g.handleChartData))
	g.mux.HandleFunc(api.EndpointEngines, g.withAuth(g.handleEngines))
	g.mux.HandleFunc(api.EndpointDiscoverySync, g.withAuth(g.handleDiscoverySync))
	g.mux.HandleFunc(api.EndpointAuditSummary, g.withAuth(g.handleAuditSummary))
}

// withAuth validates the bearer token, builds a caller.Context from the
// resulting auth.Principal, and attaches it to the request context
// before calling next. Every pipeline-facing handler is wrapped this
// way; health and readiness are not.
func (g *Gateway) withAuth(next func(http.ResponseWriter, *http.Request, *caller.Context)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get(api.HeaderAuthorization))
		principal, err := g.authn.ValidateToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "", "authentication failed", err.Error())
			return
		}
		c, err := caller.New(
			principal.ID,
			principal.IsSuperAdmin,
			principal.OrganizationID,
			principal.Permissions,
			principal.AccessiblePracticeIDs,
			principal.AccessibleProviderIDs,
		)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(errors.KindOf(err)), "malformed caller context", err.Error())
			return
		}
		next(w, r, c)
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return header
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": g.cfg.Version})
}

func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	components := map[string]bool{}
	ready := true

	if g.engines != nil {
		health := g.engines.CheckAllHealth(r.Context())
		for name, err := range health {
			ok := err == nil
			components[name] = ok
			if !ok {
				ready = false
			}
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ready":      ready,
		"components": components,
	})
}

func (g *Gateway) handleAuthStatus(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	perms := make([]string, 0)
	for _, p := range c.Permissions() {
		perms = append(perms, p.Resource+":"+p.Action)
	}
	writeJSON(w, http.StatusOK, models.AuthStatus{
		Authenticated:  true,
		CallerID:       c.ID(),
		OrganizationID: c.OrganizationID(),
		Permissions:    perms,
	})
}

func (g *Gateway) handleQuery(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "", "method not allowed", "")
		return
	}
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body", err.Error())
		return
	}

	engine := req.Engine
	if engine == "" {
		engine = g.cfg.DefaultEngine
	}

	resp, err := g.pipeline.Execute(r.Context(), pipeline.Request{
		Caller:     c,
		SQL:        req.SQL,
		EngineName: engine,
		RowCap:     req.RowCap,
		Timeout:    g.cfg.RequestTimeout,
	})
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toQueryResponse(resp.Result))
}

func (g *Gateway) handleQueryExplain(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body", err.Error())
		return
	}

	engine := req.Engine
	if engine == "" {
		engine = g.cfg.DefaultEngine
	}

	result, err := g.pipeline.Explain(r.Context(), pipeline.Request{
		Caller:     c,
		SQL:        req.SQL,
		EngineName: engine,
		RowCap:     req.RowCap,
	})
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ExplainResponse{
		SQL:                  result.SQL,
		TablesReferenced:     result.TablesReferenced,
		FilterApplied:        result.FilterApplied,
		PracticeIDsScopeSize: result.PracticeIDsScopeSize,
		RowCap:               result.RowCap,
	})
}

func (g *Gateway) handleQueryValidate(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body", err.Error())
		return
	}

	parser := sqlsafety.NewParser()
	result, err := parser.Parse(req.SQL)
	if err != nil {
		writeJSON(w, http.StatusOK, models.ValidationResult{
			Valid:  false,
			SQL:    req.SQL,
			Errors: []string{err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, models.ValidationResult{
		Valid:  result.Valid,
		SQL:    req.SQL,
		Errors: result.Errors,
	})
}

func (g *Gateway) handleQueryGenerate(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	if g.generator == nil {
		writeError(w, http.StatusNotImplemented, "", "NL-to-SQL generation is not configured", "")
		return
	}
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body", err.Error())
		return
	}

	gen, err := g.generator.Generate(r.Context(), c, req.Question)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.GenerateResponse{
		SQL:                 gen.SQL,
		TablesUsed:          gen.TablesUsed,
		EstimatedComplexity: string(gen.EstimatedComplexity),
		ModelUsed:           gen.ModelUsed,
		PromptTokens:        gen.PromptTokens,
		CompletionTokens:    gen.CompletionTokens,
		Explanation:         gen.Explanation,
	})
}

func (g *Gateway) handleTables(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	filter := metadata.Filter{
		Schema:       r.URL.Query().Get("schema"),
		NameContains: r.URL.Query().Get("q"),
		ActiveOnly:   r.URL.Query().Get("active") == "true",
	}

	tables, err := g.metadata.ListTables(r.Context(), c, filter)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	out := make([]models.TableInfo, 0, len(tables))
	for _, t := range tables {
		cols := make([]models.ColumnInfo, 0, len(t.Columns))
		for _, col := range t.Columns {
			cols = append(cols, models.ColumnInfo{
				Name:        col.Name,
				Type:        col.Type,
				Nullable:    col.Nullable,
				Description: col.Description,
				SemanticTag: col.SemanticTag,
			})
		}
		out = append(out, models.TableInfo{
			ID:           t.ID,
			Schema:       t.Schema,
			Table:        t.Table,
			Description:  t.Description,
			Active:       t.IsActive,
			Columns:      cols,
			Completeness: t.Completeness(),
			UpdatedAt:    t.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handleChartData(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	var req models.ChartDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body", err.Error())
		return
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid from date", err.Error())
		return
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid to date", err.Error())
		return
	}

	points, err := g.chart.Query(r.Context(), chartdata.Request{
		Caller:       c,
		DataSourceID: req.DataSourceID,
		From:         from,
		To:           to,
		EngineName:   req.Engine,
	})
	if err != nil {
		writePipelineError(w, err)
		return
	}

	out := make([]models.ChartPoint, 0, len(points))
	for _, p := range points {
		out = append(out, models.ChartPoint{TimePeriod: p.TimePeriod, Measure: p.Measure, Type: p.Type})
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handleAuditSummary(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	if err := g.authz.RequirePermission(r.Context(), c, authz.ResourceMetadata, "read"); err != nil {
		writePipelineError(w, err)
		return
	}

	summary := g.audit.GetAuditSummary()

	reasons := make([]models.RejectionReasonStat, 0, len(summary.TopRejectionReasons))
	for _, rr := range summary.TopRejectionReasons {
		reasons = append(reasons, models.RejectionReasonStat{Reason: rr.Reason, Count: rr.Count})
	}
	tables := make([]models.TableQueryStat, 0, len(summary.TopQueriedTables))
	for _, t := range summary.TopQueriedTables {
		tables = append(tables, models.TableQueryStat{Table: t.Table, Count: t.Count})
	}
	writeJSON(w, http.StatusOK, models.AuditSummary{
		AcceptedCount:       summary.AcceptedCount,
		RejectedCount:       summary.RejectedCount,
		TopRejectionReasons: reasons,
		TopQueriedTables:    tables,
	})
}

func (g *Gateway) handleEngines(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	names := g.engines.Available()
	out := make([]models.EngineInfo, 0, len(names))
	for _, name := range names {
		out = append(out, models.EngineInfo{Name: name, Available: true})
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *Gateway) handleDiscoverySync(w http.ResponseWriter, r *http.Request, c *caller.Context) {
	if g.discoverer == nil {
		writeError(w, http.StatusNotImplemented, "", "discovery is not configured", "")
		return
	}

	results, err := g.discoverer.SyncAll(r.Context(), c)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	out := make([]models.DiscoveryResult, 0, len(results))
	for _, res := range results {
		out = append(out, models.DiscoveryResult{
			CatalogName:   res.CatalogName,
			DatabasesSeen: res.DatabasesSeen,
			TablesSynced:  res.TablesSynced,
			TablesFailed:  res.TablesFailed,
			Errors:        res.Errors,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func toQueryResponse(r *executor.Result) models.QueryResponse {
	rows := make([]map[string]interface{}, 0, len(r.Rows))
	for _, row := range r.Rows {
		m := make(map[string]interface{}, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		rows = append(rows, m)
	}
	return models.QueryResponse{
		Columns:   r.Columns,
		Rows:      rows,
		RowCount:  r.RowCount,
		Engine:    r.Engine,
		Duration:  r.Duration.String(),
		Truncated: r.Truncated,
		Metadata:  r.Metadata,
	}
}

// writePipelineError maps a pipeline/metadata/nlsql error to an HTTP
// status by its Kind, falling back to 500 for untyped errors.
func writePipelineError(w http.ResponseWriter, err error) {
	kind := errors.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case errors.KindPermissionDenied, errors.KindNoAccessiblePractices:
		status = http.StatusForbidden
	case errors.KindMalformedCallerContext, errors.KindParseError, errors.KindNotSelect,
		errors.KindUnionForbidden, errors.KindSubqueryForbidden, errors.KindDestructiveKeyword,
		errors.KindTableNotAllowed, errors.KindRowCapExceeded:
		status = http.StatusBadRequest
	case errors.KindTimeout, errors.KindQueueTimeout:
		status = http.StatusGatewayTimeout
	case errors.KindAllowListUnavailable, errors.KindExecutionFailed:
		status = http.StatusServiceUnavailable
	case errors.KindNLGenerationFailed:
		status = http.StatusBadGateway
	case errors.KindInternalInvariantViolation:
		status = http.StatusInternalServerError
	}

	suggestion := ""
	if d, ok := err.(interface{ Detail() (string, string) }); ok {
		_, suggestion = d.Detail()
	}
	writeError(w, status, string(kind), err.Error(), suggestion)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set(api.HeaderContentType, api.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message, suggestion string) {
	writeJSON(w, status, models.ErrorResponse{
		Error:      message,
		Kind:       kind,
		Suggestion: suggestion,
		Code:       status,
	})
}
