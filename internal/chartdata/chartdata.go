// Package chartdata implements the Chart Data surface layered over the
// same analytics tables the Query Safety & Execution Pipeline serves.
// It resolves a (data_source_id, date range) request into SQL using a
// data source's ColumnMapping, then runs that SQL through the exact
// same C1/C3/C4/C5 pipeline as any other query, so tenant scoping is the
// injector's practice_uid predicate, exactly as for hand-written SQL.
// ColumnMapping.PracticeField is loaded with the mapping but is not used
// in the generated SQL or in the tenant filter.
package chartdata

import (
	"context"
	"fmt"
	"time"

	"github.com/nexushealth/data-explorer/internal/caller"
	"github.com/nexushealth/data-explorer/internal/metadata"
	"github.com/nexushealth/data-explorer/internal/pipeline"
)

// Request describes one chart-data query.
type Request struct {
	Caller       *caller.Context
	DataSourceID string // the curated catalogue table id, e.g. "analytics.encounters"
	From         time.Time
	To           time.Time
	EngineName   string
}

// Point is one aggregated measure value for a time period.
type Point struct {
	TimePeriod string
	Measure    float64
	Type       string
}

// Service resolves chart-data requests against the Schema Metadata
// Service's column mappings and the Query Safety & Execution Pipeline.
type Service struct {
	metadata *metadata.Service
	pipeline *pipeline.Pipeline
}

// NewService creates a chartdata Service.
func NewService(metadataService *metadata.Service, pl *pipeline.Pipeline) *Service {
	return &Service{metadata: metadataService, pipeline: pl}
}

// Query resolves req into SQL built from the data source's
// ColumnMapping and runs it through the pipeline exactly like any
// user-submitted query — it receives no elevated privilege and no
// bypass of the tenant filter or allow-list.
func (s *Service) Query(ctx context.Context, req Request) ([]Point, error) {
	mapping, err := s.metadata.ColumnMapping(ctx, req.DataSourceID)
	if err != nil {
		return nil, err
	}

	sql := buildSQL(req.DataSourceID, mapping, req.From, req.To)

	resp, err := s.pipeline.Execute(ctx, pipeline.Request{
		Caller:     req.Caller,
		SQL:        sql,
		EngineName: req.EngineName,
	})
	if err != nil {
		return nil, err
	}

	return rowsToPoints(mapping, resp.Result.Columns, resp.Result.Rows), nil
}

// buildSQL constructs a SELECT over dataSourceID restricted to the
// [from, to) date window on mapping.DateField, grouped by
// mapping.TimePeriodField. The tenant scope is not applied here — that
// is the Security Filter Injector's job once this SQL reaches the
// pipeline, same as any other candidate query.
func buildSQL(dataSourceID string, mapping *metadata.ColumnMapping, from, to time.Time) string {
	selectCols := fmt.Sprintf("%s, SUM(%s) AS measure", mapping.TimePeriodField, mapping.MeasureField)
	if mapping.MeasureTypeField != "" {
		selectCols = fmt.Sprintf("%s, %s", selectCols, mapping.MeasureTypeField)
	}

	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s >= '%s' AND %s < '%s' GROUP BY %s%s",
		selectCols,
		dataSourceID,
		mapping.DateField, from.Format("2006-01-02"),
		mapping.DateField, to.Format("2006-01-02"),
		mapping.TimePeriodField,
		groupByMeasureType(mapping),
	)
}

func groupByMeasureType(mapping *metadata.ColumnMapping) string {
	if mapping.MeasureTypeField == "" {
		return ""
	}
	return ", " + mapping.MeasureTypeField
}

func rowsToPoints(mapping *metadata.ColumnMapping, columns []string, rows [][]interface{}) []Point {
	periodIdx, measureIdx, typeIdx := -1, -1, -1
	for i, c := range columns {
		switch c {
		case mapping.TimePeriodField:
			periodIdx = i
		case "measure":
			measureIdx = i
		case mapping.MeasureTypeField:
			typeIdx = i
		}
	}

	points := make([]Point, 0, len(rows))
	for _, row := range rows {
		p := Point{}
		if periodIdx >= 0 && periodIdx < len(row) {
			p.TimePeriod = fmt.Sprintf("%v", row[periodIdx])
		}
		if measureIdx >= 0 && measureIdx < len(row) {
			switch v := row[measureIdx].(type) {
			case float64:
				p.Measure = v
			case int64:
				p.Measure = float64(v)
			}
		}
		if typeIdx >= 0 && typeIdx < len(row) {
			p.Type = fmt.Sprintf("%v", row[typeIdx])
		}
		points = append(points, p)
	}
	return points
}
