// Package pipeline implements the Query Safety & Execution Pipeline
// orchestrator (C8): the sequential state machine that takes a caller
// context and a candidate SQL string through authorization, parsing,
// allow-list checking, filter injection, and execution, emitting one
// audit record on every exit path.
//
// Grounded on the teacher's deterministic, resolve-then-check-then-select
// shape in internal/planner/planner.go: each stage either advances the
// request or returns the first failure, with nothing run out of order.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/nexushealth/data-explorer/internal/allowlist"
	"github.com/nexushealth/data-explorer/internal/authz"
	"github.com/nexushealth/data-explorer/internal/caller"
	"github.com/nexushealth/data-explorer/internal/errors"
	"github.com/nexushealth/data-explorer/internal/executor"
	"github.com/nexushealth/data-explorer/internal/observability"
	"github.com/nexushealth/data-explorer/internal/sqlsafety"
)

// Stage names the point the request reached, for logging and for
// Explain-style diagnostics. Not part of the audit record itself.
type Stage string

const (
	StageReceived         Stage = "received"
	StageAuthzChecked     Stage = "authz_checked"
	StageParsed           Stage = "parsed"
	StageAllowListChecked Stage = "allow_list_checked"
	StageFilterInjected   Stage = "filter_injected"
	StageExecuted         Stage = "executed"
	StageReturned         Stage = "returned"
)

// Action is the audit action recorded for every request run through
// Execute.
const Action = "execute_query"

// Request is one candidate-SQL execution request.
type Request struct {
	Caller     *caller.Context
	SQL        string
	EngineName string
	RowCap     int
	Timeout    time.Duration
}

// Response is the successful outcome of Execute.
type Response struct {
	Result *executor.Result
	Audit  observability.AuditRecord
}

// Pipeline wires together the Permission Evaluator (C1), SQL AST
// Parser/Validator + Security Filter Injector (C3/C4), Table Allow-List
// Cache (C2), and Query Executor (C5), and emits one audit record (per
// spec §6) for every invocation regardless of where it stops.
type Pipeline struct {
	authz     *authz.Evaluator
	parser    *sqlsafety.Parser
	allowList *allowlist.Cache
	executor  *executor.Executor
	logger    observability.AuditLogger

	defaultRowCap int
	maxRowCap     int
}

// Config configures a Pipeline.
type Config struct {
	Authz     *authz.Evaluator
	Parser    *sqlsafety.Parser
	AllowList *allowlist.Cache
	Executor  *executor.Executor
	Logger    observability.AuditLogger

	// DefaultRowCap is used when a Request supplies no RowCap.
	DefaultRowCap int
	// MaxRowCap is the hard ceiling no Request may exceed.
	MaxRowCap int
}

// New constructs a Pipeline. A nil Logger is replaced with a NoopLogger
// rather than left nil, so Execute never has to special-case it.
func New(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNoopLogger()
	}
	if cfg.DefaultRowCap <= 0 {
		cfg.DefaultRowCap = 1000
	}
	if cfg.MaxRowCap <= 0 {
		cfg.MaxRowCap = 10000
	}
	return &Pipeline{
		authz:         cfg.Authz,
		parser:        cfg.Parser,
		allowList:     cfg.AllowList,
		executor:      cfg.Executor,
		logger:        cfg.Logger,
		defaultRowCap: cfg.DefaultRowCap,
		maxRowCap:     cfg.MaxRowCap,
	}
}

// Execute runs req through every stage in order, failing closed at the
// first rejection. An audit record is emitted unconditionally before
// returning, whether the request succeeded or failed at any stage.
func (p *Pipeline) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	rowCap := req.RowCap
	if rowCap <= 0 {
		rowCap = p.defaultRowCap
	}
	if rowCap > p.maxRowCap {
		rowCap = p.maxRowCap
	}

	record := observability.AuditRecord{
		Action:    Action,
		InputHash: hashSQL(req.SQL),
	}
	if req.Caller != nil {
		record.CallerID = req.Caller.ID()
	}

	fail := func(err error) (*Response, error) {
		record.Outcome = string(errors.KindOf(err))
		if record.Outcome == "" {
			record.Outcome = "error"
		}
		record.DurationMs = time.Since(start).Milliseconds()
		p.logger.LogQuery(ctx, record)
		return nil, err
	}

	// StageAuthzChecked
	if err := p.authz.RequirePermission(ctx, req.Caller, authz.ResourceExecute, "execute"); err != nil {
		return fail(err)
	}

	// StageParsed
	parsed, err := p.parser.Parse(req.SQL)
	if err != nil {
		return fail(err)
	}
	tableNames := make([]string, 0, len(parsed.Tables))
	for _, t := range parsed.Tables {
		tableNames = append(tableNames, t.Identity().String())
	}
	record.TablesReferenced = tableNames

	// StageAllowListChecked
	for _, t := range parsed.Tables {
		allowed, err := p.allowList.IsTableAllowed(ctx, t.Identity())
		if err != nil {
			return fail(err)
		}
		if !allowed {
			return fail(errors.NewTableNotAllowed(t.Identity().String()))
		}
	}

	// StageFilterInjected
	isSuperAdmin := p.authz.BypassTenantFilter(req.Caller)
	accessiblePracticeIDs := p.authz.AccessiblePracticeIDs(req.Caller)
	injected, err := sqlsafety.Inject(parsed, isSuperAdmin, accessiblePracticeIDs, rowCap)
	if err != nil {
		return fail(err)
	}
	record.FilterApplied = injected.FilterApplied
	record.PracticeIDsScopeSize = injected.FilteredPracticeCount

	// StageExecuted / StageReturned
	result, err := p.executor.Run(ctx, req.EngineName, injected.SQL, injected.RowCap, req.Timeout)
	if err != nil {
		return fail(err)
	}

	record.Outcome = "success"
	record.DurationMs = time.Since(start).Milliseconds()
	p.logger.LogQuery(ctx, record)

	return &Response{Result: result, Audit: record}, nil
}

// ExplainResult is the outcome of Explain: the SQL that would actually
// run, without running it.
type ExplainResult struct {
	SQL                   string
	TablesReferenced      []string
	FilterApplied         bool
	PracticeIDsScopeSize  int
	RowCap                int
}

// Explain runs req through every stage up to and including filter
// injection without calling the Query Executor, grounded on the
// teacher's Planner.Explain convenience method. Used by the NL-to-SQL
// path's "show me the SQL before running it" UX and by tests that want
// to assert on the rewritten SQL without standing up a real engine.
func (p *Pipeline) Explain(ctx context.Context, req Request) (*ExplainResult, error) {
	rowCap := req.RowCap
	if rowCap <= 0 {
		rowCap = p.defaultRowCap
	}
	if rowCap > p.maxRowCap {
		rowCap = p.maxRowCap
	}

	if err := p.authz.RequirePermission(ctx, req.Caller, authz.ResourceExecute, "execute"); err != nil {
		return nil, err
	}

	parsed, err := p.parser.Parse(req.SQL)
	if err != nil {
		return nil, err
	}

	tableNames := make([]string, 0, len(parsed.Tables))
	for _, t := range parsed.Tables {
		allowed, err := p.allowList.IsTableAllowed(ctx, t.Identity())
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, errors.NewTableNotAllowed(t.Identity().String())
		}
		tableNames = append(tableNames, t.Identity().String())
	}

	isSuperAdmin := p.authz.BypassTenantFilter(req.Caller)
	accessiblePracticeIDs := p.authz.AccessiblePracticeIDs(req.Caller)
	injected, err := sqlsafety.Inject(parsed, isSuperAdmin, accessiblePracticeIDs, rowCap)
	if err != nil {
		return nil, err
	}

	return &ExplainResult{
		SQL:                  injected.SQL,
		TablesReferenced:     tableNames,
		FilterApplied:        injected.FilterApplied,
		PracticeIDsScopeSize: injected.FilteredPracticeCount,
		RowCap:               injected.RowCap,
	}, nil
}

// hashSQL returns a content hash of sql so the audit trail never has to
// retain the raw query text to investigate a pattern of rejections.
func hashSQL(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}
