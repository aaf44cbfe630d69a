package nlsql

import (
	"strings"

	"github.com/nexushealth/data-explorer/internal/sqlsafety"
)

// Complexity classifies a generated query per spec §4.7's exact rule:
// simple has zero joins and no aggregation beyond COUNT, moderate has
// one to three joins, complex has four or more joins or any window
// function.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ClassifyComplexity derives a Complexity from the parsed SQL and its
// join count.
func ClassifyComplexity(sql string, parsed *sqlsafety.ParseResult) Complexity {
	joins := parsed.CountJoins()

	if joins >= 4 || sqlsafety.ContainsWindowFunction(sql) {
		return ComplexityComplex
	}
	if joins >= 1 {
		return ComplexityModerate
	}
	if hasAggregationBeyondCount(sql) {
		return ComplexityModerate
	}
	return ComplexitySimple
}

var nonCountAggregates = []string{"SUM(", "AVG(", "MIN(", "MAX(", "GROUP_CONCAT(", "STDDEV(", "VARIANCE("}

// hasAggregationBeyondCount reports whether sql invokes an aggregate
// function other than COUNT. A string scan is sufficient here since it
// only ever widens the classification, never loosens a safety check.
func hasAggregationBeyondCount(sql string) bool {
	upper := strings.ToUpper(sql)
	for _, fn := range nonCountAggregates {
		if strings.Contains(upper, fn) {
			return true
		}
	}
	return false
}
