package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the Sentinel gateway.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8000"
}

// SentinelClient is a pure HTTP client for the Sentinel admin API.
type SentinelClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewSentinelClient creates a new client for the Sentinel gateway.
func NewSentinelClient(cfg Config) *SentinelClient {
	return &SentinelClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the gateway.
type apiError struct {
	Error string `json:"error"`
}

// doRequest makes an HTTP request to the gateway and returns the response body.
func (c *SentinelClient) doRequest(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// GetThreatLog lists notarized threat records, optionally filtered.
func (c *SentinelClient) GetThreatLog(ctx context.Context, filter string) (json.RawMessage, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	return c.doRequest(ctx, http.MethodGet, "/api/v1/threat-log", q)
}

// GetThreatLogForUser lists notarized threat records for one user.
func (c *SentinelClient) GetThreatLogForUser(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/api/v1/threat-log/user/"+url.PathEscape(userID), nil)
}

// GetThreatStats returns aggregate threat statistics.
func (c *SentinelClient) GetThreatStats(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/api/v1/blockchain-stats", nil)
}

// ListUsers returns all known users with their suspicion scores.
func (c *SentinelClient) ListUsers(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/api/v1/users", nil)
}

// RecentQueries returns the newest fully audited log entries.
func (c *SentinelClient) RecentQueries(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/api/v1/admin/query-logs", q)
}

// ChainStatus returns the live notarization chain status.
func (c *SentinelClient) ChainStatus(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/api/blockchain/status", nil)
}
