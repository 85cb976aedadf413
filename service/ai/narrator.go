// Package ai turns risk assessments into short human-readable
// commentary via an OpenAI-compatible chat completions API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
)

// Narrator generates commentary for a completed risk assessment.
type Narrator interface {
	Narrate(ctx context.Context, input Input) (string, error)
}

// Summarizer generates a daily recap across all monitored tokens.
type Summarizer interface {
	Summarize(ctx context.Context, input SummaryInput) (string, error)
}

// Input is everything the narrator knows about an assessment.
type Input struct {
	Mint       string
	Name       string
	Symbol     string
	Score      float64
	Level      risk.Level
	Suspicious bool
	Patterns   []string
	Breakdown  []risk.Contribution
}

// SummaryAlert is one alert line included in a daily summary prompt.
type SummaryAlert struct {
	Mint      string
	Score     float64
	RiskLevel string
}

// SummaryInput is the aggregate picture for one day of monitoring.
type SummaryInput struct {
	Date           time.Time
	TotalTokens    int64
	ActiveTokens   int64
	HighRiskTokens int64
	AlertCount     int
	AvgScore       float64
	Alerts         []SummaryAlert
}

// Config configures the OpenAI-compatible client.
type Config struct {
	APIKey  string
	BaseURL string // defaults to https://api.openai.com/v1
	Model   string // defaults to gpt-4o-mini
	Timeout time.Duration
}

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 30 * time.Second

	systemPrompt = "You are a concise analyst of newly launched Solana tokens. " +
		"Given a risk assessment, write 2-3 plain sentences for traders explaining " +
		"the main risk drivers. No hype, no financial advice, no hashtags."

	summarySystemPrompt = "You are a concise analyst of newly launched Solana tokens. " +
		"Given a day of monitoring statistics, write a 2-4 sentence recap of the " +
		"day's risk activity. No hype, no financial advice, no hashtags."
)

// OpenAINarrator calls a chat completions endpoint.
type OpenAINarrator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNarrator creates a Narrator backed by an OpenAI-compatible API.
func NewNarrator(cfg Config, logger *slog.Logger) (*OpenAINarrator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &OpenAINarrator{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Narrate asks the model for commentary on the assessment.
func (n *OpenAINarrator) Narrate(ctx context.Context, input Input) (string, error) {
	commentary, err := n.complete(ctx, systemPrompt, buildPrompt(input), 200)
	if err != nil {
		return "", err
	}

	n.logger.DebugContext(ctx, "generated commentary",
		"mint", input.Mint,
		"model", n.model,
		"length", len(commentary),
	)
	return commentary, nil
}

// Summarize asks the model for a recap of the day's monitoring activity.
func (n *OpenAINarrator) Summarize(ctx context.Context, input SummaryInput) (string, error) {
	summary, err := n.complete(ctx, summarySystemPrompt, buildSummaryPrompt(input), 300)
	if err != nil {
		return "", err
	}

	n.logger.DebugContext(ctx, "generated daily summary",
		"date", input.Date.Format("2006-01-02"),
		"model", n.model,
		"length", len(summary),
	)
	return summary, nil
}

func (n *OpenAINarrator) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model: n.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.4,
		MaxTokens:   maxTokens,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion returned empty content")
	}
	return content, nil
}

// buildPrompt renders the assessment into the user message.
func buildPrompt(input Input) string {
	var b strings.Builder
	name := input.Name
	if name == "" {
		name = input.Mint
	}
	fmt.Fprintf(&b, "Token: %s", name)
	if input.Symbol != "" {
		fmt.Fprintf(&b, " (%s)", input.Symbol)
	}
	fmt.Fprintf(&b, "\nRisk score: %.0f/100 (%s)\n", input.Score, input.Level)
	if input.Suspicious {
		b.WriteString("Flagged as suspicious.\n")
	}
	if len(input.Patterns) > 0 {
		fmt.Fprintf(&b, "Detected patterns: %s\n", strings.Join(input.Patterns, "; "))
	}
	if len(input.Breakdown) > 0 {
		b.WriteString("Score drivers:\n")
		for _, contrib := range input.Breakdown {
			fmt.Fprintf(&b, "- %s (+%.0f): %s\n", contrib.Factor, contrib.Points, contrib.Reason)
		}
	}
	return b.String()
}

// buildSummaryPrompt renders the day's statistics into the user message.
func buildSummaryPrompt(input SummaryInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", input.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Tokens monitored: %d (%d active)\n", input.TotalTokens, input.ActiveTokens)
	fmt.Fprintf(&b, "High-risk tokens: %d\n", input.HighRiskTokens)
	fmt.Fprintf(&b, "Alerts published: %d\n", input.AlertCount)
	fmt.Fprintf(&b, "Average risk score: %.1f/100\n", input.AvgScore)
	if len(input.Alerts) > 0 {
		b.WriteString("Alerted tokens:\n")
		for _, a := range input.Alerts {
			fmt.Fprintf(&b, "- %s score %.0f (%s)\n", a.Mint, a.Score, a.RiskLevel)
		}
	}
	return b.String()
}

// FallbackSummary produces a plain-text recap when no summarizer is
// configured or the API call fails.
func FallbackSummary(input SummaryInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily recap %s: %d tokens monitored, %d alerts",
		input.Date.Format("2006-01-02"), input.TotalTokens, input.AlertCount)
	if input.HighRiskTokens > 0 {
		fmt.Fprintf(&b, ", %d high risk", input.HighRiskTokens)
	}
	fmt.Fprintf(&b, ". Average score %.1f/100.", input.AvgScore)
	return b.String()
}

// FallbackCommentary produces a plain-text summary when no narrator is
// configured or the API call fails. Alerts still go out with this text.
func FallbackCommentary(input Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk score %.0f/100 (%s).", input.Score, input.Level)
	if len(input.Patterns) > 0 {
		fmt.Fprintf(&b, " %s.", strings.Join(input.Patterns, ". "))
	}
	if input.Suspicious {
		b.WriteString(" On-chain activity looks suspicious.")
	}
	return b.String()
}

func truncateBody(body []byte) string {
	const max = 256
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
