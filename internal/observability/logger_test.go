package observability

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		caller_id TEXT NOT NULL,
		action TEXT NOT NULL,
		input_hash TEXT,
		tables_json TEXT DEFAULT '[]',
		filter_applied INTEGER,
		practice_ids_scope_size INTEGER,
		outcome TEXT,
		duration_ms INTEGER
	)`)
	require.NoError(t, err)
	return db
}

func TestAuditRecord_ValidateRequiresCallerIDAndAction(t *testing.T) {
	r := AuditRecord{}
	assert.Error(t, r.Validate())

	r.CallerID = "caller-1"
	assert.Error(t, r.Validate())

	r.Action = "execute_query"
	assert.NoError(t, r.Validate())
}

func TestAuditRecord_ValidateRejectsNegativeDuration(t *testing.T) {
	r := AuditRecord{CallerID: "c1", Action: "execute_query", DurationMs: -1}
	assert.Error(t, r.Validate())
}

func TestJSONLogger_WritesOneLinePerRecordAndTracksSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)

	err := logger.LogQuery(context.Background(), AuditRecord{
		CallerID:         "c1",
		Action:           "execute_query",
		TablesReferenced: []string{"analytics.encounters"},
		Outcome:          "success",
		DurationMs:       12,
	})
	require.NoError(t, err)

	var decoded jsonLogOutput
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "c1", decoded.CallerID)
	assert.Equal(t, "info", decoded.Level)

	summary := logger.GetAuditSummary()
	assert.Equal(t, 1, summary.AcceptedCount)
	assert.Equal(t, 0, summary.RejectedCount)
}

func TestJSONLogger_NonSuccessOutcomeLogsWarnAndCountsAsRejected(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)

	err := logger.LogQuery(context.Background(), AuditRecord{
		CallerID: "c1",
		Action:   "execute_query",
		Outcome:  "TableNotAllowed",
	})
	require.NoError(t, err)

	var decoded jsonLogOutput
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "warn", decoded.Level)

	summary := logger.GetAuditSummary()
	assert.Equal(t, 0, summary.AcceptedCount)
	assert.Equal(t, 1, summary.RejectedCount)
	require.Len(t, summary.TopRejectionReasons, 1)
	assert.Equal(t, "TableNotAllowed", summary.TopRejectionReasons[0].Reason)
}

func TestJSONLogger_RejectsInvalidRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)

	err := logger.LogQuery(context.Background(), AuditRecord{})
	require.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestNoopLogger_AlwaysSucceedsAndSummaryIsEmpty(t *testing.T) {
	logger := NewNoopLogger()
	require.NoError(t, logger.LogQuery(context.Background(), AuditRecord{}))

	summary := logger.GetAuditSummary()
	assert.Equal(t, 0, summary.AcceptedCount)
	assert.Empty(t, summary.TopRejectionReasons)
}

func TestSummarize_RanksTopTablesAndReasonsByCount(t *testing.T) {
	entries := []AuditRecord{
		{Outcome: "success", TablesReferenced: []string{"a"}},
		{Outcome: "success", TablesReferenced: []string{"a"}},
		{Outcome: "success", TablesReferenced: []string{"b"}},
		{Outcome: "TableNotAllowed", TablesReferenced: []string{"c"}},
		{Outcome: "TableNotAllowed", TablesReferenced: []string{"c"}},
		{Outcome: "PermissionDenied"},
	}

	summary := summarize(entries)
	assert.Equal(t, 3, summary.AcceptedCount)
	assert.Equal(t, 3, summary.RejectedCount)
	require.NotEmpty(t, summary.TopRejectionReasons)
	assert.Equal(t, "TableNotAllowed", summary.TopRejectionReasons[0].Reason)
	assert.Equal(t, 2, summary.TopRejectionReasons[0].Count)
	require.NotEmpty(t, summary.TopQueriedTables)
	assert.Equal(t, "a", summary.TopQueriedTables[0].Table)
	assert.Equal(t, 2, summary.TopQueriedTables[0].Count)
}

func TestSummarize_CapsTopListsAtFive(t *testing.T) {
	var entries []AuditRecord
	for i := 0; i < 8; i++ {
		entries = append(entries, AuditRecord{Outcome: "TableNotAllowed", TablesReferenced: []string{string(rune('a' + i))}})
	}

	summary := summarize(entries)
	assert.LessOrEqual(t, len(summary.TopQueriedTables), 5)
}

func TestNewPersistentLogger_RequiresDatabase(t *testing.T) {
	_, err := NewPersistentLogger(nil)
	assert.Error(t, err)
}

func TestPersistentLogger_LogQueryPersistsAndCounts(t *testing.T) {
	db := newTestDB(t)
	logger, err := NewPersistentLogger(db)
	require.NoError(t, err)

	require.NoError(t, logger.LogQuery(context.Background(), AuditRecord{
		CallerID: "c1", Action: "execute_query", Outcome: "success", TablesReferenced: []string{"a"},
	}))
	require.NoError(t, logger.LogQuery(context.Background(), AuditRecord{
		CallerID: "c2", Action: "execute_query", Outcome: "TableNotAllowed",
	}))

	summary := logger.GetAuditSummary()
	assert.Equal(t, 1, summary.AcceptedCount)
	assert.Equal(t, 1, summary.RejectedCount)
	require.Len(t, summary.TopRejectionReasons, 1)
	assert.Equal(t, "TableNotAllowed", summary.TopRejectionReasons[0].Reason)
}

func TestPersistentLogger_LogQueryRejectsInvalidRecord(t *testing.T) {
	db := newTestDB(t)
	logger, err := NewPersistentLogger(db)
	require.NoError(t, err)

	assert.Error(t, logger.LogQuery(context.Background(), AuditRecord{}))
}

func TestPersistentLogger_LogQueryRespectsCancelledContext(t *testing.T) {
	db := newTestDB(t)
	logger, err := NewPersistentLogger(db)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = logger.LogQuery(ctx, AuditRecord{CallerID: "c1", Action: "execute_query", Outcome: "success"})
	assert.Error(t, err)
}

func TestPersistentLogger_LogQueryMirrorsToWriter(t *testing.T) {
	db := newTestDB(t)
	var buf bytes.Buffer
	logger, err := NewPersistentLoggerWithWriter(db, &buf)
	require.NoError(t, err)

	require.NoError(t, logger.LogQuery(context.Background(), AuditRecord{
		CallerID: "c1", Action: "execute_query", Outcome: "success",
	}))

	var decoded jsonLogOutput
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded))
	assert.Equal(t, "c1", decoded.CallerID)
}
