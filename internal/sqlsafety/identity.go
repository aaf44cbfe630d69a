package sqlsafety

import "strings"

// TableIdentity is the single normalized form every component compares
// table references against. Per spec §9 Open Question 2 this
// implementation normalizes once, here, rather than enumerating quoted
// and unquoted string variants at every comparison site.
type TableIdentity struct {
	Schema string // "" if the reference was unqualified
	Table  string
}

// NormalizeIdentity strips surrounding quotes/backticks and lower-cases
// both segments, matching spec §3's "(schema, table) case-insensitively,
// ignoring quoting" equality rule for TableRef.
func NormalizeIdentity(schema, table string) TableIdentity {
	return TableIdentity{
		Schema: normalizeSegment(schema),
		Table:  normalizeSegment(table),
	}
}

// ParseIdentity normalizes a "schema.table" or bare "table" string, as
// stored by the allow-list in either form (spec §4.2).
func ParseIdentity(raw string) TableIdentity {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, "."); idx >= 0 {
		return NormalizeIdentity(raw[:idx], raw[idx+1:])
	}
	return NormalizeIdentity("", raw)
}

func normalizeSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`+"`"+`'`)
	return strings.ToLower(s)
}

// String renders the identity as "schema.table", or bare "table" when
// unqualified.
func (t TableIdentity) String() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}
