// Package errors provides explicit, human-readable error types for the
// data-explorer query safety pipeline. Every error carries a Reason and
// Suggestion in addition to its Message so failures are actionable both
// for the caller and for whoever reads the audit log.
package errors

import (
	"fmt"
)

// PipelineError is the base error type embedded by every typed error in
// this package. Kind is the stable taxonomy tag from spec §7; Code is the
// coarser dimension used for CLI exit codes and HTTP status mapping.
type PipelineError struct {
	Kind       Kind
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code / HTTP status mapping.
type ErrorCode int

const (
	CodeValidation ErrorCode = 1
	CodeAuth       ErrorCode = 2
	CodeEngine     ErrorCode = 3
	CodeInternal   ErrorCode = 4
)

// Kind is the stable error taxonomy tag. Never reuse a Kind for a
// different meaning across versions; callers match on it.
type Kind string

const (
	KindPermissionDenied          Kind = "PermissionDenied"
	KindMalformedCallerContext    Kind = "MalformedCallerContext"
	KindParseError                Kind = "ParseError"
	KindNotSelect                 Kind = "NotSelect"
	KindUnionForbidden             Kind = "UnionForbidden"
	KindSubqueryForbidden          Kind = "SubqueryForbidden"
	KindDestructiveKeyword         Kind = "DestructiveKeyword"
	KindTableNotAllowed            Kind = "TableNotAllowed"
	KindAllowListUnavailable       Kind = "AllowListUnavailable"
	KindNoAccessiblePractices      Kind = "NoAccessiblePractices"
	KindNLGenerationFailed         Kind = "NLGenerationFailed"
	KindTimeout                    Kind = "Timeout"
	KindQueueTimeout               Kind = "QueueTimeout"
	KindRowCapExceeded              Kind = "RowCapExceeded"
	KindInternalInvariantViolation Kind = "InternalInvariantViolation"
	KindExecutionFailed            Kind = "ExecutionFailed"
)

func (e *PipelineError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Detail returns the Reason and Suggestion carried by e. Promoted onto
// every typed error in this package through the embedded PipelineError,
// so callers (the HTTP/CLI layer) can surface both fields without a
// type switch over all sixteen Kinds.
func (e *PipelineError) Detail() (reason, suggestion string) {
	return e.Reason, e.Suggestion
}

// KindOf extracts the taxonomy tag from any error produced by this
// package, or "" if err does not carry one. Used by the HTTP/CLI layer
// to decide how to surface a failure without a long type switch.
func KindOf(err error) Kind {
	type kinder interface{ ErrorKind() Kind }
	if k, ok := err.(kinder); ok {
		return k.ErrorKind()
	}
	return ""
}

// ErrPermissionDenied is returned by C1 when a required permission token
// is absent from the caller's resolved set and the caller is not super-admin.
type ErrPermissionDenied struct {
	PipelineError
	Token string
}

func (e *ErrPermissionDenied) ErrorKind() Kind { return KindPermissionDenied }

// NewPermissionDenied creates an ErrPermissionDenied.
func NewPermissionDenied(token string) *ErrPermissionDenied {
	return &ErrPermissionDenied{
		PipelineError: PipelineError{
			Kind:       KindPermissionDenied,
			Code:       CodeAuth,
			Message:    fmt.Sprintf("permission denied: %s", token),
			Reason:     "the caller's resolved permission set does not include this token",
			Suggestion: "request the missing permission from an administrator",
		},
		Token: token,
	}
}

// ErrMalformedCallerContext is returned when the caller context fails a
// structural check (e.g. a non-integer accessible_practice_id).
type ErrMalformedCallerContext struct {
	PipelineError
	Field string
}

func (e *ErrMalformedCallerContext) ErrorKind() Kind { return KindMalformedCallerContext }

// NewMalformedCallerContext creates an ErrMalformedCallerContext.
func NewMalformedCallerContext(field, reason string) *ErrMalformedCallerContext {
	return &ErrMalformedCallerContext{
		PipelineError: PipelineError{
			Kind:       KindMalformedCallerContext,
			Code:       CodeValidation,
			Message:    "malformed caller context",
			Reason:     reason,
			Suggestion: "the authentication layer must supply a structurally valid caller context",
		},
		Field: field,
	}
}

// ErrParseError is returned when the SQL parser could not parse the input.
type ErrParseError struct {
	PipelineError
	SQL string
}

func (e *ErrParseError) ErrorKind() Kind { return KindParseError }

// NewParseError creates an ErrParseError.
func NewParseError(sql, reason string) *ErrParseError {
	return &ErrParseError{
		PipelineError: PipelineError{
			Kind:       KindParseError,
			Code:       CodeValidation,
			Message:    "could not parse query",
			Reason:     reason,
			Suggestion: "submit a single, well-formed SQL statement",
		},
		SQL: sql,
	}
}

// ErrNotSelect is returned when the statement is not a SELECT.
type ErrNotSelect struct {
	PipelineError
	StatementType string
}

func (e *ErrNotSelect) ErrorKind() Kind { return KindNotSelect }

// NewNotSelect creates an ErrNotSelect.
func NewNotSelect(statementType string) *ErrNotSelect {
	return &ErrNotSelect{
		PipelineError: PipelineError{
			Kind:       KindNotSelect,
			Code:       CodeValidation,
			Message:    fmt.Sprintf("%s statements are not allowed", statementType),
			Reason:     "only SELECT is accepted by the analytics endpoint",
			Suggestion: "rewrite the request as a SELECT",
		},
		StatementType: statementType,
	}
}

// ErrUnionForbidden is returned when the top-level query is a set operation.
type ErrUnionForbidden struct {
	PipelineError
}

func (e *ErrUnionForbidden) ErrorKind() Kind { return KindUnionForbidden }

// NewUnionForbidden creates an ErrUnionForbidden.
func NewUnionForbidden() *ErrUnionForbidden {
	return &ErrUnionForbidden{
		PipelineError: PipelineError{
			Kind:       KindUnionForbidden,
			Code:       CodeValidation,
			Message:    "UNION, INTERSECT and EXCEPT are not allowed",
			Reason:     "set operations combine two statements the pipeline cannot scope independently",
			Suggestion: "submit one SELECT at a time",
		},
	}
}

// ErrSubqueryForbidden is returned when a subquery or CTE is detected.
type ErrSubqueryForbidden struct {
	PipelineError
	Location string
}

func (e *ErrSubqueryForbidden) ErrorKind() Kind { return KindSubqueryForbidden }

// NewSubqueryForbidden creates an ErrSubqueryForbidden.
func NewSubqueryForbidden(location string) *ErrSubqueryForbidden {
	return &ErrSubqueryForbidden{
		PipelineError: PipelineError{
			Kind:       KindSubqueryForbidden,
			Code:       CodeValidation,
			Message:    "subqueries are not allowed",
			Reason:     fmt.Sprintf("a subquery was found in %s", location),
			Suggestion: "flatten the query into a single top-level SELECT",
		},
		Location: location,
	}
}

// ErrDestructiveKeyword is returned when a destructive keyword is found,
// whether by the tokenized regex sweep or by AST classification.
type ErrDestructiveKeyword struct {
	PipelineError
	Token string
}

func (e *ErrDestructiveKeyword) ErrorKind() Kind { return KindDestructiveKeyword }

// NewDestructiveKeyword creates an ErrDestructiveKeyword.
func NewDestructiveKeyword(token string) *ErrDestructiveKeyword {
	return &ErrDestructiveKeyword{
		PipelineError: PipelineError{
			Kind:       KindDestructiveKeyword,
			Code:       CodeValidation,
			Message:    fmt.Sprintf("destructive keyword detected: %s", token),
			Reason:     "the analytics endpoint is read-only; destructive SQL is rejected, never rewritten",
			Suggestion: "remove the destructive statement and resubmit a SELECT",
		},
		Token: token,
	}
}

// ErrTableNotAllowed is returned when a referenced table is outside the
// current allow-list.
type ErrTableNotAllowed struct {
	PipelineError
	Table string
}

func (e *ErrTableNotAllowed) ErrorKind() Kind { return KindTableNotAllowed }

// NewTableNotAllowed creates an ErrTableNotAllowed.
func NewTableNotAllowed(table string) *ErrTableNotAllowed {
	return &ErrTableNotAllowed{
		PipelineError: PipelineError{
			Kind:       KindTableNotAllowed,
			Code:       CodeValidation,
			Message:    fmt.Sprintf("table not allowed: %s", table),
			Reason:     "the table is not present in the current allow-list",
			Suggestion: "only query tables returned by the metadata service's list_tables",
		},
		Table: table,
	}
}

// ErrAllowListUnavailable is returned when the allow-list reload fails
// and no cached value exists to fall back on.
type ErrAllowListUnavailable struct {
	PipelineError
}

func (e *ErrAllowListUnavailable) ErrorKind() Kind { return KindAllowListUnavailable }

// NewAllowListUnavailable creates an ErrAllowListUnavailable.
func NewAllowListUnavailable(cause error) *ErrAllowListUnavailable {
	return &ErrAllowListUnavailable{
		PipelineError: PipelineError{
			Kind:       KindAllowListUnavailable,
			Code:       CodeInternal,
			Message:    "table allow-list unavailable",
			Reason:     "the metadata catalogue could not be read and no cached allow-list exists",
			Suggestion: "retry shortly; no table is implicitly allowed while this persists",
			Cause:      cause,
		},
	}
}

// ErrNoAccessiblePractices is returned when a non-super-admin caller has
// an empty accessible_practice_ids set.
type ErrNoAccessiblePractices struct {
	PipelineError
}

func (e *ErrNoAccessiblePractices) ErrorKind() Kind { return KindNoAccessiblePractices }

// NewNoAccessiblePractices creates an ErrNoAccessiblePractices.
func NewNoAccessiblePractices() *ErrNoAccessiblePractices {
	return &ErrNoAccessiblePractices{
		PipelineError: PipelineError{
			Kind:       KindNoAccessiblePractices,
			Code:       CodeAuth,
			Message:    "no accessible practices",
			Reason:     "the caller is not super-admin and has an empty accessible practice set",
			Suggestion: "request practice access from an administrator",
		},
	}
}

// ErrNLGenerationFailed is returned on LLM failure or when no SQL could
// be extracted from the model's response.
type ErrNLGenerationFailed struct {
	PipelineError
	ReasonCode string
}

func (e *ErrNLGenerationFailed) ErrorKind() Kind { return KindNLGenerationFailed }

// NewNLGenerationFailed creates an ErrNLGenerationFailed.
func NewNLGenerationFailed(reasonCode, detail string) *ErrNLGenerationFailed {
	return &ErrNLGenerationFailed{
		PipelineError: PipelineError{
			Kind:       KindNLGenerationFailed,
			Code:       CodeEngine,
			Message:    "could not generate SQL from the question",
			Reason:     detail,
			Suggestion: "rephrase the question or submit SQL directly",
		},
		ReasonCode: reasonCode,
	}
}

// ErrTimeout is returned when a query exceeds its deadline.
type ErrTimeout struct {
	PipelineError
	TimeoutMs int
}

func (e *ErrTimeout) ErrorKind() Kind { return KindTimeout }

// NewTimeout creates an ErrTimeout.
func NewTimeout(timeoutMs int) *ErrTimeout {
	return &ErrTimeout{
		PipelineError: PipelineError{
			Kind:       KindTimeout,
			Code:       CodeEngine,
			Message:    "query timed out",
			Reason:     fmt.Sprintf("execution exceeded %dms", timeoutMs),
			Suggestion: "narrow the query or increase query_timeout_ms up to the hard ceiling",
		},
		TimeoutMs: timeoutMs,
	}
}

// ErrQueueTimeout is returned when the connection pool is saturated.
type ErrQueueTimeout struct {
	PipelineError
}

func (e *ErrQueueTimeout) ErrorKind() Kind { return KindQueueTimeout }

// NewQueueTimeout creates an ErrQueueTimeout.
func NewQueueTimeout() *ErrQueueTimeout {
	return &ErrQueueTimeout{
		PipelineError: PipelineError{
			Kind:       KindQueueTimeout,
			Code:       CodeEngine,
			Message:    "connection pool saturated",
			Reason:     "no connection became available before queue_timeout_ms elapsed",
			Suggestion: "retry shortly",
		},
	}
}

// ErrRowCapExceeded is not fatal; it accompanies a truncated result.
type ErrRowCapExceeded struct {
	PipelineError
	RowCap int
}

func (e *ErrRowCapExceeded) ErrorKind() Kind { return KindRowCapExceeded }

// NewRowCapExceeded creates an ErrRowCapExceeded.
func NewRowCapExceeded(rowCap int) *ErrRowCapExceeded {
	return &ErrRowCapExceeded{
		PipelineError: PipelineError{
			Kind:       KindRowCapExceeded,
			Code:       CodeValidation,
			Message:    fmt.Sprintf("result truncated at %d rows", rowCap),
			Reason:     "the driver streamed more rows than row_cap permits",
			Suggestion: "add filters or aggregate to reduce result size",
		},
		RowCap: rowCap,
	}
}

// ErrInternalInvariantViolation signals a programmer error: an invariant
// from spec §3 did not hold where it must. Always logged in full detail;
// surfaced to the caller only as an opaque failure.
type ErrInternalInvariantViolation struct {
	PipelineError
	Invariant string
}

func (e *ErrInternalInvariantViolation) ErrorKind() Kind { return KindInternalInvariantViolation }

// NewInternalInvariantViolation creates an ErrInternalInvariantViolation.
func NewInternalInvariantViolation(invariant, detail string) *ErrInternalInvariantViolation {
	return &ErrInternalInvariantViolation{
		PipelineError: PipelineError{
			Kind:       KindInternalInvariantViolation,
			Code:       CodeInternal,
			Message:    "internal invariant violation",
			Reason:     detail,
			Suggestion: "this is a defect; the request has been logged at high severity",
		},
		Invariant: invariant,
	}
}

// ErrExecutionFailed wraps any other classified driver/engine failure.
type ErrExecutionFailed struct {
	PipelineError
	Engine string
}

func (e *ErrExecutionFailed) ErrorKind() Kind { return KindExecutionFailed }

// NewExecutionFailed creates an ErrExecutionFailed. The raw driver error
// is kept as Cause for logging but never rendered into Message/Reason.
func NewExecutionFailed(engine string, cause error) *ErrExecutionFailed {
	return &ErrExecutionFailed{
		PipelineError: PipelineError{
			Kind:       KindExecutionFailed,
			Code:       CodeEngine,
			Message:    fmt.Sprintf("query execution failed on %s", engine),
			Reason:     "the analytics engine reported a failure",
			Suggestion: "check engine health; the detailed error has been logged",
			Cause:      cause,
		},
		Engine: engine,
	}
}
