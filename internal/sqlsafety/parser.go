// Package sqlsafety implements the SQL AST Parser/Validator (C3) and the
// Security Filter Injector (C4). The two share a package because the
// injector operates on the exact AST the parser produced — the pipeline
// owns the AST handle for the span between parse and rewrite and this
// package is where that handle lives (spec §9 "AST ownership").
//
// The parser is grounded on a real SQL AST (dolthub/vitess/go/vt/sqlparser)
// rather than a regex, per spec §4.3's "must be a real SQL parser producing
// a structural AST".
package sqlsafety

import (
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"
	"github.com/nexushealth/data-explorer/internal/errors"
)

// StatementType classifies the top-level statement.
type StatementType string

const (
	StatementSelect  StatementType = "select"
	StatementInsert  StatementType = "insert"
	StatementUpdate  StatementType = "update"
	StatementDelete  StatementType = "delete"
	StatementDDL     StatementType = "ddl"
	StatementUnknown StatementType = "unknown"
)

// TableRef is produced by the parser, one per table occurrence in the
// FROM/JOIN positions of the top-level SELECT.
type TableRef struct {
	Schema string // "" when unqualified
	Table  string
	Alias  string // "" when unaliased
}

// Identity returns the normalized identity used for every comparison.
func (t TableRef) Identity() TableIdentity {
	return NormalizeIdentity(t.Schema, t.Table)
}

// ParseResult is the outcome of parsing and validating a candidate SQL
// string, per spec §3.
type ParseResult struct {
	Valid         bool
	StatementType StatementType
	Tables        []TableRef
	HasUnion      bool
	HasSubquery   bool
	Errors        []string

	// stmt is the AST handle. Owned by the pipeline invocation for the
	// span between Parse and Inject; never exposed outside this package.
	stmt sqlparser.Statement
}

// Parser parses and validates candidate SQL against the rules of spec §4.3.
type Parser struct{}

// NewParser creates a SQL AST Parser/Validator.
func NewParser() *Parser {
	return &Parser{}
}

// Parse turns a candidate SQL string into a ParseResult, or returns the
// first category-level rejection per spec §4.3's rule table. The
// destructive-keyword sweep always runs, independent of and in addition
// to AST classification (spec §9 Open Question 3).
func (p *Parser) Parse(sql string) (*ParseResult, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, errors.NewParseError(sql, "empty query")
	}

	// Tokenized destructive-keyword sweep. Independent of AST parsing so
	// it fires even when the AST parser misclassifies the statement.
	if token, found := sweepDestructiveKeywords(sql); found {
		return nil, errors.NewDestructiveKeyword(token)
	}

	// single-statement rule.
	stmts, err := sqlparser.SplitStatementToPieces(sql)
	if err != nil {
		return nil, errors.NewParseError(sql, err.Error())
	}
	if len(stmts) > 1 {
		return nil, errors.NewParseError(sql, "more than one statement separated by ';'")
	}

	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, errors.NewParseError(sql, err.Error())
	}

	switch s := stmt.(type) {
	case *sqlparser.Select:
		return p.validateSelect(sql, s)
	case *sqlparser.ParenSelect:
		sel, ok := s.Select.(*sqlparser.Select)
		if !ok {
			return nil, errors.NewUnionForbidden()
		}
		return p.validateSelect(sql, sel)
	case *sqlparser.SetOp:
		return nil, errors.NewUnionForbidden()
	case *sqlparser.Insert:
		return nil, errors.NewNotSelect(string(StatementInsert))
	case *sqlparser.Update:
		return nil, errors.NewNotSelect(string(StatementUpdate))
	case *sqlparser.Delete:
		return nil, errors.NewNotSelect(string(StatementDelete))
	case *sqlparser.DDL, *sqlparser.DBDDL:
		return nil, errors.NewNotSelect(string(StatementDDL))
	default:
		return nil, errors.NewNotSelect(string(StatementUnknown))
	}
}

// validateSelect applies the no-UNION, no-subquery, and table-collection
// rules to a top-level SELECT. CTEs are rejected outright, treated as
// subqueries, per spec §4.3's algorithmic notes.
func (p *Parser) validateSelect(sql string, sel *sqlparser.Select) (*ParseResult, error) {
	if sel.With != nil {
		return nil, errors.NewSubqueryForbidden("WITH clause (CTE)")
	}

	if loc := firstSubqueryLocation(sel); loc != "" {
		return nil, errors.NewSubqueryForbidden(loc)
	}

	tables := collectTopLevelTables(sel)

	return &ParseResult{
		Valid:         true,
		StatementType: StatementSelect,
		Tables:        tables,
		HasUnion:      false,
		HasSubquery:   false,
		stmt:          sel,
	}, nil
}

// firstSubqueryLocation walks FROM, WHERE, HAVING, JOIN...ON and the
// SELECT projection of the top-level SELECT looking for any subquery.
// Returns a human-readable location, or "" if none is found.
func firstSubqueryLocation(sel *sqlparser.Select) string {
	for _, tableExpr := range sel.From {
		if hasSubqueryInTableExpr(tableExpr) {
			return "FROM/JOIN clause"
		}
	}
	if sel.Where != nil && hasSubqueryInExpr(sel.Where.Expr) {
		return "WHERE clause"
	}
	if sel.Having != nil && hasSubqueryInExpr(sel.Having.Expr) {
		return "HAVING clause"
	}
	for _, expr := range sel.SelectExprs {
		if aliased, ok := expr.(*sqlparser.AliasedExpr); ok {
			if hasSubqueryInExpr(aliased.Expr) {
				return "SELECT projection"
			}
		}
	}
	return ""
}

func hasSubqueryInTableExpr(expr sqlparser.TableExpr) bool {
	switch t := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		if _, ok := t.Expr.(*sqlparser.Subquery); ok {
			return true
		}
		return false
	case *sqlparser.JoinTableExpr:
		if hasSubqueryInTableExpr(t.LeftExpr) || hasSubqueryInTableExpr(t.RightExpr) {
			return true
		}
		return hasSubqueryInExpr(t.Condition.On)
	case *sqlparser.ParenTableExpr:
		for _, te := range t.Exprs {
			if hasSubqueryInTableExpr(te) {
				return true
			}
		}
	}
	return false
}

func hasSubqueryInExpr(expr sqlparser.Expr) bool {
	if expr == nil {
		return false
	}
	switch e := expr.(type) {
	case *sqlparser.Subquery:
		return true
	case *sqlparser.AndExpr:
		return hasSubqueryInExpr(e.Left) || hasSubqueryInExpr(e.Right)
	case *sqlparser.OrExpr:
		return hasSubqueryInExpr(e.Left) || hasSubqueryInExpr(e.Right)
	case *sqlparser.ComparisonExpr:
		return hasSubqueryInExpr(e.Left) || hasSubqueryInExpr(e.Right)
	case *sqlparser.ParenExpr:
		return hasSubqueryInExpr(e.Expr)
	case *sqlparser.RangeCond:
		return hasSubqueryInExpr(e.Left) || hasSubqueryInExpr(e.From) || hasSubqueryInExpr(e.To)
	case *sqlparser.IsExpr:
		return hasSubqueryInExpr(e.Expr)
	case *sqlparser.NotExpr:
		return hasSubqueryInExpr(e.Expr)
	case *sqlparser.ExistsExpr:
		return true
	case *sqlparser.FuncExpr:
		for _, arg := range e.Exprs {
			if aliased, ok := arg.(*sqlparser.AliasedExpr); ok {
				if hasSubqueryInExpr(aliased.Expr) {
					return true
				}
			}
		}
	case *sqlparser.CaseExpr:
		if hasSubqueryInExpr(e.Expr) {
			return true
		}
		for _, when := range e.Whens {
			if hasSubqueryInExpr(when.Cond) || hasSubqueryInExpr(when.Val) {
				return true
			}
		}
		return hasSubqueryInExpr(e.Else)
	}
	return false
}

// collectTopLevelTables walks only the top-level SELECT's FROM/JOIN
// clauses, per spec §4.3 "collection walks only the top-level SELECT's
// source clauses" — callers have already rejected any subquery, so there
// is nothing nested left to walk.
func collectTopLevelTables(sel *sqlparser.Select) []TableRef {
	var tables []TableRef
	seen := make(map[TableIdentity]bool)
	for _, tableExpr := range sel.From {
		collectTableExpr(tableExpr, &tables, seen)
	}
	return tables
}

func collectTableExpr(expr sqlparser.TableExpr, tables *[]TableRef, seen map[TableIdentity]bool) {
	switch t := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		tn, ok := t.Expr.(sqlparser.TableName)
		if !ok {
			return
		}
		ref := TableRef{
			Schema: tn.SchemaQualifier.String(),
			Table:  tn.Name.String(),
			Alias:  t.As.String(),
		}
		id := ref.Identity()
		if id.Table == "" || seen[id] {
			return
		}
		seen[id] = true
		*tables = append(*tables, ref)
	case *sqlparser.JoinTableExpr:
		collectTableExpr(t.LeftExpr, tables, seen)
		collectTableExpr(t.RightExpr, tables, seen)
	case *sqlparser.ParenTableExpr:
		for _, te := range t.Exprs {
			collectTableExpr(te, tables, seen)
		}
	}
}

// ContainsWindowFunction reports whether sql appears to use a window
// function. Used only by the NL-to-SQL complexity heuristic (C7); the
// parser itself does not reject window functions.
func ContainsWindowFunction(sql string) bool {
	upper := strings.ToUpper(sql)
	return strings.Contains(upper, " OVER (") || strings.Contains(upper, " OVER(")
}

// CountJoins returns the number of JoinTableExpr nodes in result's
// top-level FROM clause. Used only by the NL-to-SQL complexity
// heuristic (C7); counting TableRefs instead would undercount since
// TableRef collection dedups repeated identities.
func (r *ParseResult) CountJoins() int {
	if r.stmt == nil {
		return 0
	}
	sel, ok := r.stmt.(*sqlparser.Select)
	if !ok {
		return 0
	}
	count := 0
	for _, tableExpr := range sel.From {
		count += countJoinsInTableExpr(tableExpr)
	}
	return count
}

func countJoinsInTableExpr(expr sqlparser.TableExpr) int {
	switch t := expr.(type) {
	case *sqlparser.JoinTableExpr:
		return 1 + countJoinsInTableExpr(t.LeftExpr) + countJoinsInTableExpr(t.RightExpr)
	case *sqlparser.ParenTableExpr:
		count := 0
		for _, te := range t.Exprs {
			count += countJoinsInTableExpr(te)
		}
		return count
	default:
		return 0
	}
}
