package nlsql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexushealth/data-explorer/internal/metadata"
)

func TestBuildSystemPrompt_IncludesTablesAndColumns(t *testing.T) {
	tables := []*metadata.TableMetadata{
		{
			Schema:      "analytics",
			Table:       "encounters",
			Description: "patient encounters",
			Columns: []metadata.ColumnMetadata{
				{Name: "id", Type: "bigint"},
				{Name: "patient_id", Type: "bigint", Description: "foreign key to patients"},
			},
		},
	}

	prompt := BuildSystemPrompt(tables, 0)

	assert.Contains(t, prompt, "analytics.encounters -- patient encounters")
	assert.Contains(t, prompt, "id bigint")
	assert.Contains(t, prompt, "patient_id bigint -- foreign key to patients")
	assert.Contains(t, prompt, "Never use UNION or subqueries")
}

func TestBuildSystemPrompt_TruncatesToLimit(t *testing.T) {
	tables := []*metadata.TableMetadata{
		{Schema: "a", Table: "t1"},
		{Schema: "a", Table: "t2"},
		{Schema: "a", Table: "t3"},
	}

	prompt := BuildSystemPrompt(tables, 2)

	assert.Contains(t, prompt, "a.t1")
	assert.Contains(t, prompt, "a.t2")
	assert.NotContains(t, prompt, "a.t3")
}

func TestBuildSystemPrompt_ZeroLimitWithNoTablesKeepsPreamble(t *testing.T) {
	prompt := BuildSystemPrompt(nil, 0)
	assert.Contains(t, prompt, "Catalogue of tables you may query")
}
