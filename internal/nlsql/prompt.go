package nlsql

import (
	"fmt"
	"strings"

	"github.com/nexushealth/data-explorer/internal/metadata"
)

// DefaultPromptMetadataLimit bounds how many catalogued tables are
// described in the prompt, per spec §6's nl_prompt_metadata_limit.
const DefaultPromptMetadataLimit = 50

const systemPromptPreamble = `You translate a question about healthcare analytics data into a single SQL query.

Rules, all mandatory:
- Output exactly one SELECT statement. Never INSERT, UPDATE, DELETE, or any DDL.
- Never use UNION or subqueries.
- Always qualify table names with their schema, as shown in the catalogue below.
- Only reference tables and columns listed in the catalogue below. Never invent a table or column.
- Return only the SQL, inside a single fenced code block. No prose before or after.

Catalogue of tables you may query:
`

// BuildSystemPrompt assembles the bounded, schema-aware system prompt
// from a trimmed slice of catalogued tables. Tables beyond limit are
// silently excluded from the prompt only; a generated query that names
// one still goes through the same parser and allow-list checks as any
// other query.
func BuildSystemPrompt(tables []*metadata.TableMetadata, limit int) string {
	if limit <= 0 {
		limit = DefaultPromptMetadataLimit
	}
	if len(tables) > limit {
		tables = tables[:limit]
	}

	var b strings.Builder
	b.WriteString(systemPromptPreamble)
	for _, t := range tables {
		fmt.Fprintf(&b, "\n%s.%s", t.Schema, t.Table)
		if t.Description != "" {
			fmt.Fprintf(&b, " -- %s", t.Description)
		}
		for _, col := range t.Columns {
			fmt.Fprintf(&b, "\n  %s %s", col.Name, col.Type)
			if col.Description != "" {
				fmt.Fprintf(&b, " -- %s", col.Description)
			}
		}
	}
	return b.String()
}
