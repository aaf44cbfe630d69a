package nlsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSQL_PullsFromFencedBlock(t *testing.T) {
	raw := "Here is the query:\n```sql\nSELECT id FROM analytics.encounters\n```\n"
	sql, ok := ExtractSQL(raw)
	assert.True(t, ok)
	assert.Equal(t, "SELECT id FROM analytics.encounters", sql)
}

func TestExtractSQL_FencedBlockWithoutLanguageTag(t *testing.T) {
	raw := "```\nSELECT 1\n```"
	sql, ok := ExtractSQL(raw)
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1", sql)
}

func TestExtractSQL_FallsBackToWholeTrimmedResponse(t *testing.T) {
	sql, ok := ExtractSQL("  SELECT 1 FROM dual  ")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1 FROM dual", sql)
}

func TestExtractSQL_EmptyResponseFails(t *testing.T) {
	_, ok := ExtractSQL("   ")
	assert.False(t, ok)
}

func TestExtractSQL_EmptyFencedBlockFails(t *testing.T) {
	_, ok := ExtractSQL("```sql\n\n```")
	assert.False(t, ok)
}
