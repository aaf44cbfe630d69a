package sqlsafety

import (
	"regexp"
	"strings"
)

// destructiveKeywords mirrors spec §4.3's belt-and-braces check: a
// case-insensitive regex sweep for these tokens, fired even if the AST
// classifies the statement as SELECT. This check is orthogonal to AST
// classification and both must independently pass (spec §9 Open
// Question 3).
var destructiveKeywords = []string{
	"DROP", "TRUNCATE", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE", "GRANT", "REVOKE",
}

var keywordPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(destructiveKeywords, "|") + `)\b`)

// sweepDestructiveKeywords tokenizes sql by stripping string literals and
// comments first, then regex-matches the remaining token stream. This is
// what keeps `WHERE note = 'please delete me'` from tripping the sweep
// (spec §4.3), since "delete" only ever appears inside the stripped
// literal.
func sweepDestructiveKeywords(sql string) (token string, found bool) {
	stripped := stripLiteralsAndComments(sql)
	match := keywordPattern.FindString(stripped)
	if match == "" {
		return "", false
	}
	return strings.ToUpper(match), true
}

// stripLiteralsAndComments replaces the contents of single-quoted string
// literals, double-quoted identifiers, line comments and block comments
// with spaces, preserving overall string length/positions so downstream
// regex matching never looks inside them.
func stripLiteralsAndComments(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	runes := []rune(sql)
	i := 0
	n := len(runes)
	for i < n {
		c := runes[i]
		switch {
		case c == '\'':
			b.WriteRune(' ')
			i++
			for i < n {
				if runes[i] == '\'' {
					if i+1 < n && runes[i+1] == '\'' {
						b.WriteRune(' ')
						b.WriteRune(' ')
						i += 2
						continue
					}
					b.WriteRune(' ')
					i++
					break
				}
				b.WriteRune(' ')
				i++
			}
		case c == '"':
			b.WriteRune(' ')
			i++
			for i < n && runes[i] != '"' {
				b.WriteRune(' ')
				i++
			}
			if i < n {
				b.WriteRune(' ')
				i++
			}
		case c == '-' && i+1 < n && runes[i+1] == '-':
			for i < n && runes[i] != '\n' {
				b.WriteRune(' ')
				i++
			}
		case c == '/' && i+1 < n && runes[i+1] == '*':
			b.WriteRune(' ')
			b.WriteRune(' ')
			i += 2
			for i < n && !(runes[i] == '*' && i+1 < n && runes[i+1] == '/') {
				if runes[i] == '\n' {
					b.WriteRune('\n')
				} else {
					b.WriteRune(' ')
				}
				i++
			}
			if i < n {
				b.WriteRune(' ')
				b.WriteRune(' ')
				i += 2
			}
		default:
			b.WriteRune(c)
			i++
		}
	}
	return b.String()
}
