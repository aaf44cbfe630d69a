package sqlsafety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentity_CaseAndQuoteInsensitive(t *testing.T) {
	a := NormalizeIdentity("Analytics", "`Encounters`")
	b := NormalizeIdentity("analytics", "encounters")
	assert.Equal(t, a, b)
}

func TestParseIdentity_SplitsOnLastDot(t *testing.T) {
	id := ParseIdentity("analytics.encounters")
	assert.Equal(t, "analytics", id.Schema)
	assert.Equal(t, "encounters", id.Table)

	bare := ParseIdentity("encounters")
	assert.Equal(t, "", bare.Schema)
	assert.Equal(t, "encounters", bare.Table)
}

func TestTableIdentity_String(t *testing.T) {
	qualified := TableIdentity{Schema: "analytics", Table: "encounters"}
	assert.Equal(t, "analytics.encounters", qualified.String())

	bare := TableIdentity{Table: "encounters"}
	assert.Equal(t, "encounters", bare.String())
}
