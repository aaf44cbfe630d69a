package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_ExtractsTaxonomyTag(t *testing.T) {
	err := NewPermissionDenied("data-explorer:query:read")
	assert.Equal(t, KindPermissionDenied, KindOf(err))
}

func TestKindOf_ReturnsEmptyForUnrelatedError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
}

func TestDetail_ReturnsReasonAndSuggestion(t *testing.T) {
	err := NewTableNotAllowed("analytics.secret")
	reason, suggestion := err.Detail()
	assert.NotEmpty(t, reason)
	assert.NotEmpty(t, suggestion)
}

func TestError_IncludesReasonSuggestionAndCause(t *testing.T) {
	cause := errors.New("underlying failure")
	err := NewAllowListUnavailable(cause)

	msg := err.Error()
	assert.Contains(t, msg, "Reason:")
	assert.Contains(t, msg, "Suggestion:")
	assert.Contains(t, msg, "underlying failure")
}

func TestUnwrap_ExposesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := NewExecutionFailed("duckdb", cause)

	require.ErrorIs(t, err, cause)
}

func TestEveryConstructor_ReportsADistinctKind(t *testing.T) {
	cases := []error{
		NewPermissionDenied("x"),
		NewMalformedCallerContext("f", "r"),
		NewParseError("sql", "r"),
		NewNotSelect("insert"),
		NewUnionForbidden(),
		NewSubqueryForbidden("WHERE"),
		NewDestructiveKeyword("DROP"),
		NewTableNotAllowed("t"),
		NewAllowListUnavailable(errors.New("x")),
		NewNoAccessiblePractices(),
		NewNLGenerationFailed("code", "detail"),
		NewTimeout(5000),
		NewQueueTimeout(),
		NewRowCapExceeded(1000),
		NewInternalInvariantViolation("inv", "detail"),
		NewExecutionFailed("duckdb", errors.New("x")),
	}

	seen := make(map[Kind]bool)
	for _, err := range cases {
		kind := KindOf(err)
		require.NotEmpty(t, kind)
		assert.False(t, seen[kind], "kind %s reused across constructors", kind)
		seen[kind] = true
	}
}
