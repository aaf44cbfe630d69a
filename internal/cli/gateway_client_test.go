package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexushealth/data-explorer/pkg/api"
	"github.com/nexushealth/data-explorer/pkg/models"
)

func TestGatewayClient_CheckHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.EndpointHealth, r.URL.Path)
		json.NewEncoder(w).Encode(HealthInfo{Status: "ok", Version: "1.0.0"})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "")
	ok, err := c.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGatewayClient_CheckHealth_NotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(HealthInfo{Status: "degraded"})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "")
	ok, err := c.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatewayClient_DoRequest_FailsWithoutEndpoint(t *testing.T) {
	c := NewGatewayClient("", "")
	_, err := c.GetHealthInfo(context.Background())
	assert.Error(t, err)
}

func TestGatewayClient_AuthedRequest_SetsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(api.HeaderAuthorization)
		json.NewEncoder(w).Encode(models.AuthStatus{Authenticated: true, CallerID: "caller-1"})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "tok-1")
	status, err := c.GetAuthStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "caller-1", status.CallerID)
}

func TestGatewayClient_GetAuthStatus_ParsesErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(models.ErrorResponse{Error: "authentication failed", Suggestion: "check your token"})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "bad-token")
	_, err := c.GetAuthStatus(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
	assert.Contains(t, err.Error(), "check your token")
}

func TestGatewayClient_ListTables_EncodesQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "analytics", r.URL.Query().Get("schema"))
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		json.NewEncoder(w).Encode([]models.TableInfo{{ID: "analytics.encounters"}})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "tok-1")
	tables, err := c.ListTables(context.Background(), "analytics", "", true)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "analytics.encounters", tables[0].ID)
}

func TestGatewayClient_ExecuteQuery_SendsRequestBodyAndParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SELECT 1", req.SQL)
		assert.Equal(t, "duckdb", req.Engine)

		json.NewEncoder(w).Encode(models.QueryResponse{RowCount: 1, Engine: "duckdb"})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "tok-1")
	resp, err := c.ExecuteQuery(context.Background(), "SELECT 1", "duckdb", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.RowCount)
}

func TestGatewayClient_ListEngines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]models.EngineInfo{{Name: "duckdb", Available: true}})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "tok-1")
	engines, err := c.ListEngines(context.Background())
	require.NoError(t, err)
	require.Len(t, engines, 1)
	assert.Equal(t, "duckdb", engines[0].Name)
}

func TestGatewayClient_GetAuditSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.EndpointAuditSummary, r.URL.Path)
		json.NewEncoder(w).Encode(models.AuditSummary{AcceptedCount: 5, RejectedCount: 2})
	}))
	defer srv.Close()

	c := NewGatewayClient(srv.URL, "tok-1")
	summary, err := c.GetAuditSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, summary.AcceptedCount)
	assert.Equal(t, 2, summary.RejectedCount)
}

func TestGatewayClient_EndpointAndTokenAccessors(t *testing.T) {
	c := NewGatewayClient("https://gateway.example.com", "tok-1")
	assert.Equal(t, "https://gateway.example.com", c.Endpoint())
	assert.Equal(t, "tok-1", c.Token())
}
