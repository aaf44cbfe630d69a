package nlsql

import (
	"regexp"
	"strings"
)

var fencedSQLPattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)\\s*```")

// ExtractSQL pulls a single candidate SQL statement out of a raw model
// response. The model is instructed to answer with exactly one fenced
// code block; this looks for that block first and falls back to
// treating the whole trimmed response as the statement if no fence is
// present. It never validates the extracted text as SQL — that is C3's
// job, applied identically to model output and to user-submitted SQL.
func ExtractSQL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	if m := fencedSQLPattern.FindStringSubmatch(raw); m != nil {
		candidate := strings.TrimSpace(m[1])
		if candidate == "" {
			return "", false
		}
		return candidate, true
	}

	return raw, true
}
