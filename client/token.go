package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Token represents a registered token that the server is monitoring.
type Token struct {
	Mint            string        `json:"mint"`
	Name            string        `json:"name"`
	Symbol          string        `json:"symbol"`
	Creator         string        `json:"creator"`
	PoolVault       *string       `json:"pool_vault,omitempty"`
	LiquidityUSD    float64       `json:"liquidity_usd"`
	LiquidityLocked bool          `json:"liquidity_locked"`
	PollInterval    time.Duration `json:"poll_interval"`
	LastPollTime    *time.Time    `json:"last_poll_time,omitempty"`
	Status          string        `json:"status"` // active, paused, error
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Assessment is one risk assessment of a token.
type Assessment struct {
	ID         int64     `json:"id"`
	Mint       string    `json:"mint"`
	Score      float64   `json:"score"`
	RiskLevel  string    `json:"risk_level"`
	Suspicious bool      `json:"is_suspicious"`
	Patterns   []string  `json:"detected_patterns"`
	Confidence float64   `json:"confidence"`
	Commentary *string   `json:"commentary,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Alert is one published high-risk alert.
type Alert struct {
	ID        int64     `json:"id"`
	Mint      string    `json:"mint"`
	Score     float64   `json:"score"`
	RiskLevel string    `json:"risk_level"`
	Patterns  []string  `json:"detected_patterns"`
	Message   string    `json:"message"`
	Tweeted   bool      `json:"tweeted"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats holds aggregate monitoring statistics.
type Stats struct {
	TotalTokens      int64   `json:"total_tokens"`
	ActiveTokens     int64   `json:"active_tokens"`
	TotalAssessments int64   `json:"total_assessments"`
	TotalAlerts      int64   `json:"total_alerts"`
	HighRiskTokens   int64   `json:"high_risk_tokens"`
	AvgScore24h      float64 `json:"avg_score_24h"`
}

// RegisterParams describes a token to register for monitoring.
type RegisterParams struct {
	Mint            string
	Name            string
	Symbol          string
	Creator         string
	PoolVault       *string
	LiquidityUSD    float64
	LiquidityLocked bool
	PollInterval    time.Duration
}

// Client is the HTTP client for the soly token monitoring service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new token service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Register tells the server to start monitoring a token.
func (c *Client) Register(ctx context.Context, params RegisterParams) error {
	reqBody := map[string]interface{}{
		"mint":             params.Mint,
		"name":             params.Name,
		"symbol":           params.Symbol,
		"creator":          params.Creator,
		"liquidity_usd":    params.LiquidityUSD,
		"liquidity_locked": params.LiquidityLocked,
	}
	if params.PoolVault != nil {
		reqBody["pool_vault"] = *params.PoolVault
	}
	if params.PollInterval > 0 {
		reqBody["poll_interval"] = params.PollInterval.String()
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/tokens", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// 201 for a new registration, 200 when re-registering updates the interval
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("token registered", "mint", params.Mint, "poll_interval", params.PollInterval)
	return nil
}

// Unregister tells the server to stop monitoring a token.
func (c *Client) Unregister(ctx context.Context, mint string) error {
	u := fmt.Sprintf("%s/api/v1/tokens/%s", c.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, "DELETE", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return c.parseErrorResponse(resp)
	}

	c.logger.Debug("token unregistered", "mint", mint)
	return nil
}

// Get retrieves a token and its latest assessment, if any.
func (c *Client) Get(ctx context.Context, mint string) (*Token, *Assessment, error) {
	u := fmt.Sprintf("%s/api/v1/tokens/%s", c.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, c.parseErrorResponse(resp)
	}

	var response struct {
		Token            tokenResponse `json:"token"`
		LatestAssessment *Assessment   `json:"latest_assessment,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	token, err := responseToToken(&response.Token)
	if err != nil {
		return nil, nil, err
	}

	return token, response.LatestAssessment, nil
}

// List retrieves all monitored tokens.
func (c *Client) List(ctx context.Context) ([]*Token, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/tokens", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var response struct {
		Tokens []tokenResponse `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Convert API responses to domain tokens
	tokens := make([]*Token, len(response.Tokens))
	for i, apiToken := range response.Tokens {
		token, err := responseToToken(&apiToken)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token %s: %w", apiToken.Mint, err)
		}
		tokens[i] = token
	}

	return tokens, nil
}

// Analyze requests a synchronous on-demand analysis of a token and
// returns the resulting assessment.
func (c *Client) Analyze(ctx context.Context, mint string) (*Assessment, error) {
	u := fmt.Sprintf("%s/api/v1/tokens/%s/analyze", c.baseURL, url.PathEscape(mint))
	req, err := http.NewRequestWithContext(ctx, "POST", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var assessment Assessment
	if err := json.NewDecoder(resp.Body).Decode(&assessment); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &assessment, nil
}

// ListAssessments retrieves a token's assessment history, newest first.
func (c *Client) ListAssessments(ctx context.Context, mint string, limit, offset int) ([]*Assessment, error) {
	u := fmt.Sprintf("%s/api/v1/tokens/%s/assessments?limit=%d&offset=%d",
		c.baseURL, url.PathEscape(mint), limit, offset)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var response struct {
		Assessments []*Assessment `json:"assessments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return response.Assessments, nil
}

// ListAlerts retrieves published alerts, newest first. An empty mint
// returns alerts for all tokens.
func (c *Client) ListAlerts(ctx context.Context, mint string, limit, offset int) ([]*Alert, error) {
	u := fmt.Sprintf("%s/api/v1/alerts?limit=%d&offset=%d", c.baseURL, limit, offset)
	if mint != "" {
		u += "&mint=" + url.QueryEscape(mint)
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var response struct {
		Alerts []*Alert `json:"alerts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return response.Alerts, nil
}

// GetStats retrieves aggregate monitoring statistics.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/stats", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	var stats Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &stats, nil
}

// tokenResponse is the API response format for a token.
// The server returns poll_interval as a string (e.g. "30s").
type tokenResponse struct {
	Mint            string     `json:"mint"`
	Name            string     `json:"name"`
	Symbol          string     `json:"symbol"`
	Creator         string     `json:"creator"`
	PoolVault       *string    `json:"pool_vault,omitempty"`
	LiquidityUSD    float64    `json:"liquidity_usd"`
	LiquidityLocked bool       `json:"liquidity_locked"`
	PollInterval    string     `json:"poll_interval"`
	LastPollTime    *time.Time `json:"last_poll_time,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// responseToToken converts an API response to a domain Token.
func responseToToken(resp *tokenResponse) (*Token, error) {
	pollInterval, err := time.ParseDuration(resp.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid poll_interval %q: %w", resp.PollInterval, err)
	}

	return &Token{
		Mint:            resp.Mint,
		Name:            resp.Name,
		Symbol:          resp.Symbol,
		Creator:         resp.Creator,
		PoolVault:       resp.PoolVault,
		LiquidityUSD:    resp.LiquidityUSD,
		LiquidityLocked: resp.LiquidityLocked,
		PollInterval:    pollInterval,
		LastPollTime:    resp.LastPollTime,
		Status:          resp.Status,
		CreatedAt:       resp.CreatedAt,
		UpdatedAt:       resp.UpdatedAt,
	}, nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
