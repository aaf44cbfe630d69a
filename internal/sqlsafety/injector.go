package sqlsafety

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"
	"github.com/nexushealth/data-explorer/internal/errors"
)

// InjectionResult is the FinalQuery value described in spec §3, minus the
// timeout field which the executor attaches.
type InjectionResult struct {
	SQL                    string
	RowCap                 int
	FilterApplied          bool
	FilteredPracticeCount  int
}

// Inject rewrites a validated SELECT's top-level WHERE to constrain
// practice_uid to accessiblePracticeIDs, and clamps/appends LIMIT to
// rowCap. Per spec §4.4 it runs only after every §4.3 rule has passed;
// it does not revalidate them — a missing AST handle here is a
// programmer error, not a user-facing rejection.
func Inject(result *ParseResult, isSuperAdmin bool, accessiblePracticeIDs []int, rowCap int) (*InjectionResult, error) {
	if result == nil || !result.Valid || result.stmt == nil {
		return nil, errors.NewInternalInvariantViolation("AST handle missing",
			"Inject called without a validated ParseResult")
	}
	sel, ok := result.stmt.(*sqlparser.Select)
	if !ok {
		return nil, errors.NewInternalInvariantViolation("not a SELECT AST",
			"Inject called on a non-SELECT statement handle")
	}

	filterApplied := false
	filteredCount := 0

	if isSuperAdmin {
		// Per spec §4.4: no rewrite performed; SQL passes through unchanged
		// except for the row cap, which still applies.
	} else {
		if len(accessiblePracticeIDs) == 0 {
			return nil, errors.NewNoAccessiblePractices()
		}
		predicateSQL := buildPracticePredicate(accessiblePracticeIDs)
		predicateExpr, err := parsePredicateExpr(predicateSQL)
		if err != nil {
			return nil, errors.NewInternalInvariantViolation("predicate construction failed", err.Error())
		}
		if sel.Where == nil {
			sel.Where = sqlparser.NewWhere(sqlparser.WhereStr, predicateExpr)
		} else {
			sel.Where.Expr = &sqlparser.AndExpr{Left: sel.Where.Expr, Right: predicateExpr}
		}
		filterApplied = true
		filteredCount = len(accessiblePracticeIDs)
	}

	sql := sqlparser.String(sel)
	sql = clampRowCap(sql, rowCap)

	return &InjectionResult{
		SQL:                   sql,
		RowCap:                rowCap,
		FilterApplied:         filterApplied,
		FilteredPracticeCount: filteredCount,
	}, nil
}

// buildPracticePredicate renders the tenant-scoping predicate as a
// literal-integer SQL fragment, per spec §4.4: the analytics endpoint in
// this deployment accepts only literal SQL in this path (spec §9 Open
// Question 4), and accessible practice ids are strictly integers already
// validated when the caller context was constructed.
func buildPracticePredicate(ids []int) string {
	if len(ids) == 1 {
		return fmt.Sprintf("practice_uid = %d", ids[0])
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("practice_uid IN (%s)", strings.Join(parts, ", "))
}

// parsePredicateExpr parses a standalone predicate fragment into an AST
// expression by round-tripping it through a throwaway SELECT. This keeps
// the injector from depending on vitess's internal expression
// constructors, which vary across forks and versions; the real parser is
// the one source of truth for what a valid expression AST looks like.
func parsePredicateExpr(predicateSQL string) (sqlparser.Expr, error) {
	dummy := "SELECT 1 FROM dual WHERE " + predicateSQL
	stmt, err := sqlparser.Parse(dummy)
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*sqlparser.Select)
	if !ok || sel.Where == nil {
		return nil, fmt.Errorf("sqlsafety: failed to parse predicate %q", predicateSQL)
	}
	return sel.Where.Expr, nil
}

// limitPattern matches a trailing top-level LIMIT clause. Safe to apply
// to the fully-rendered SQL string because the parser has already
// rejected every construct (subqueries, UNION, multiple statements) that
// could put a second LIMIT-like clause ahead of the real one.
var limitPattern = regexp.MustCompile(`(?i)\s+limit\s+(\d+)\s*$`)

// clampRowCap ensures the rendered SQL carries an explicit LIMIT not
// exceeding rowCap, appending one if absent and reducing one that is
// larger, per spec §4.4's "Row cap" rule.
func clampRowCap(sql string, rowCap int) string {
	if m := limitPattern.FindStringSubmatchIndex(sql); m != nil {
		existing, err := strconv.Atoi(sql[m[2]:m[3]])
		if err == nil && existing <= rowCap {
			return sql
		}
		return sql[:m[0]] + fmt.Sprintf(" limit %d", rowCap)
	}
	return sql + fmt.Sprintf(" limit %d", rowCap)
}
