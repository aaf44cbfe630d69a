// Package cli provides the command-line interface for data-explorer.
//
// The CLI is a client, not an emulator: every command that reflects
// system state reaches the gateway over HTTP using the same endpoints
// and wire types (pkg/api, pkg/models) the gateway itself serves, never
// a local reimplementation of pipeline logic.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nexushealth/data-explorer/pkg/api"
	"github.com/nexushealth/data-explorer/pkg/models"
)

// GatewayClient is the HTTP client for communicating with the
// data-explorer gateway.
type GatewayClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewGatewayClient creates a new gateway client.
func NewGatewayClient(endpoint, token string) *GatewayClient {
	return &GatewayClient{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Endpoint returns the configured gateway endpoint.
func (c *GatewayClient) Endpoint() string {
	return c.endpoint
}

// Token returns the configured authentication token.
func (c *GatewayClient) Token() string {
	return c.token
}

// HealthInfo represents the gateway's /health response.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadinessResult represents the gateway's /ready response.
type ReadinessResult struct {
	Ready      bool            `json:"ready"`
	Components map[string]bool `json:"components"`
}

// CheckHealth verifies gateway connectivity.
func (c *GatewayClient) CheckHealth(ctx context.Context) (bool, error) {
	info, err := c.GetHealthInfo(ctx)
	if err != nil {
		return false, err
	}
	return info.Status == "ok", nil
}

// GetHealthInfo retrieves health status and version from the gateway.
func (c *GatewayClient) GetHealthInfo(ctx context.Context) (*HealthInfo, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, api.EndpointHealth, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info HealthInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &info, nil
}

// GetReadiness retrieves component readiness from the gateway.
func (c *GatewayClient) GetReadiness(ctx context.Context) (*ReadinessResult, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, api.EndpointReady, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result ReadinessResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// GetAuthStatus retrieves authentication status from the gateway.
func (c *GatewayClient) GetAuthStatus(ctx context.Context) (*models.AuthStatus, error) {
	resp, err := c.authedRequest(ctx, http.MethodGet, api.EndpointAuth, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result models.AuthStatus
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// ListTables retrieves curated catalogue tables visible to the caller.
func (c *GatewayClient) ListTables(ctx context.Context, schema, nameContains string, activeOnly bool) ([]models.TableInfo, error) {
	q := url.Values{}
	if schema != "" {
		q.Set("schema", schema)
	}
	if nameContains != "" {
		q.Set("q", nameContains)
	}
	if activeOnly {
		q.Set("active", "true")
	}

	path := api.EndpointTables
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := c.authedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result []models.TableInfo
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

// ExecuteQuery executes a query and returns the result.
func (c *GatewayClient) ExecuteQuery(ctx context.Context, sql, engine string, rowCap int) (*models.QueryResponse, error) {
	body, _ := json.Marshal(models.QueryRequest{SQL: sql, Engine: engine, RowCap: rowCap})
	resp, err := c.authedRequest(ctx, http.MethodPost, api.EndpointQuery, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// ExplainQuery gets the rewritten SQL and routing decision for a query
// without executing it.
func (c *GatewayClient) ExplainQuery(ctx context.Context, sql, engine string, rowCap int) (*models.ExplainResponse, error) {
	body, _ := json.Marshal(models.QueryRequest{SQL: sql, Engine: engine, RowCap: rowCap})
	resp, err := c.authedRequest(ctx, http.MethodPost, api.EndpointQueryExplain, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result models.ExplainResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// ValidateQuery validates a query without executing it.
func (c *GatewayClient) ValidateQuery(ctx context.Context, sql string) (*models.ValidationResult, error) {
	body, _ := json.Marshal(models.QueryRequest{SQL: sql})
	resp, err := c.authedRequest(ctx, http.MethodPost, api.EndpointQueryValidate, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result models.ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// GenerateQuery asks the gateway's NL-to-SQL Generator to turn a
// question into candidate SQL.
func (c *GatewayClient) GenerateQuery(ctx context.Context, question string) (*models.GenerateResponse, error) {
	body, _ := json.Marshal(models.GenerateRequest{Question: question})
	resp, err := c.authedRequest(ctx, http.MethodPost, api.EndpointQueryGenerate, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result models.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// ChartData fetches aggregated chart points for a curated catalogue
// table's ColumnMapping over [from, to).
func (c *GatewayClient) ChartData(ctx context.Context, dataSourceID, from, to, engine string) ([]models.ChartPoint, error) {
	body, _ := json.Marshal(models.ChartDataRequest{DataSourceID: dataSourceID, From: from, To: to, Engine: engine})
	resp, err := c.authedRequest(ctx, http.MethodPost, api.EndpointChartData, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result []models.ChartPoint
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

// ListEngines retrieves the engines registered with the gateway.
func (c *GatewayClient) ListEngines(ctx context.Context) ([]models.EngineInfo, error) {
	resp, err := c.authedRequest(ctx, http.MethodGet, api.EndpointEngines, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result []models.EngineInfo
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

// SyncDiscovery triggers the gateway's Discovery Syncer.
func (c *GatewayClient) SyncDiscovery(ctx context.Context) ([]models.DiscoveryResult, error) {
	resp, err := c.authedRequest(ctx, http.MethodPost, api.EndpointDiscoverySync, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result []models.DiscoveryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

// GetAuditSummary retrieves aggregated audit statistics from the
// gateway. No raw query text is ever exposed through it.
func (c *GatewayClient) GetAuditSummary(ctx context.Context) (*models.AuditSummary, error) {
	resp, err := c.authedRequest(ctx, http.MethodGet, api.EndpointAuditSummary, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var result models.AuditSummary
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// authedRequest performs doRequest with the Authorization header set,
// failing fast if no endpoint is configured.
func (c *GatewayClient) authedRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("no gateway endpoint configured")
	}
	return c.doRequest(ctx, method, path, body)
}

// doRequest performs an HTTP request to the gateway.
func (c *GatewayClient) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("no gateway endpoint configured")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(api.HeaderContentType, api.ContentTypeJSON)
	if c.token != "" {
		req.Header.Set(api.HeaderAuthorization, "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway unreachable at %s: %w", c.endpoint, err)
	}

	return resp, nil
}

// parseErrorResponse parses an error response from the gateway.
func (c *GatewayClient) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("gateway error: %s - %s", strconv.Itoa(resp.StatusCode), string(body))
	}

	if errResp.Suggestion != "" {
		return fmt.Errorf("%s: %s", errResp.Error, errResp.Suggestion)
	}
	return fmt.Errorf("%s", errResp.Error)
}
