package chartdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nexushealth/data-explorer/internal/metadata"
)

func TestBuildSQL_IncludesDateWindowAndGroupBy(t *testing.T) {
	mapping := &metadata.ColumnMapping{
		DateField:       "encounter_date",
		MeasureField:    "amount",
		TimePeriodField: "encounter_month",
	}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	sql := buildSQL("analytics.encounters", mapping, from, to)

	assert.Contains(t, sql, "FROM analytics.encounters")
	assert.Contains(t, sql, "encounter_date >= '2024-01-01'")
	assert.Contains(t, sql, "encounter_date < '2024-02-01'")
	assert.Contains(t, sql, "GROUP BY encounter_month")
	assert.NotContains(t, sql, "measure_type")
}

func TestBuildSQL_IncludesMeasureTypeWhenConfigured(t *testing.T) {
	mapping := &metadata.ColumnMapping{
		DateField:        "encounter_date",
		MeasureField:     "amount",
		TimePeriodField:  "encounter_month",
		MeasureTypeField: "claim_type",
	}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	sql := buildSQL("analytics.encounters", mapping, from, to)

	assert.Contains(t, sql, "SELECT encounter_month, SUM(amount) AS measure, claim_type")
	assert.Contains(t, sql, "GROUP BY encounter_month, claim_type")
}

func TestRowsToPoints_MapsColumnsByMappingFieldNames(t *testing.T) {
	mapping := &metadata.ColumnMapping{
		TimePeriodField:  "encounter_month",
		MeasureTypeField: "claim_type",
	}
	columns := []string{"encounter_month", "measure", "claim_type"}
	rows := [][]interface{}{
		{"2024-01", float64(120), "inpatient"},
		{"2024-02", int64(80), "outpatient"},
	}

	points := rowsToPoints(mapping, columns, rows)

	assert.Equal(t, []Point{
		{TimePeriod: "2024-01", Measure: 120, Type: "inpatient"},
		{TimePeriod: "2024-02", Measure: 80, Type: "outpatient"},
	}, points)
}

func TestRowsToPoints_EmptyWhenNoRows(t *testing.T) {
	mapping := &metadata.ColumnMapping{TimePeriodField: "p"}
	points := rowsToPoints(mapping, []string{"p", "measure"}, nil)
	assert.Empty(t, points)
}
