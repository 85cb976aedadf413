package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testInput() Input {
	return Input{
		Mint:       "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Name:       "Test Token",
		Symbol:     "TEST",
		Score:      75,
		Level:      risk.LevelHigh,
		Suspicious: true,
		Patterns:   []string{"Significant liquidity removal"},
		Breakdown: []risk.Contribution{
			{Factor: "liquidity_locked", Reason: "liquidity is not locked", Points: 20},
		},
	}
}

func TestNarrate(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  Liquidity is unlocked and concentrated.  "}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	narrator, err := NewNarrator(Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"}, testLogger())
	require.NoError(t, err)

	commentary, err := narrator.Narrate(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "Liquidity is unlocked and concentrated.", commentary)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)

	// The prompt carries the assessment details.
	require.Len(t, gotReq.Messages, 2)
	userPrompt := gotReq.Messages[1].Content
	assert.Contains(t, userPrompt, "Test Token")
	assert.Contains(t, userPrompt, "75/100")
	assert.Contains(t, userPrompt, "Significant liquidity removal")
	assert.Contains(t, userPrompt, "liquidity is not locked")
}

func TestNarrate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit"}}`))
	}))
	defer server.Close()

	narrator, err := NewNarrator(Config{APIKey: "test-key", BaseURL: server.URL}, testLogger())
	require.NoError(t, err)

	_, err = narrator.Narrate(context.Background(), testInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNarrate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	narrator, err := NewNarrator(Config{APIKey: "test-key", BaseURL: server.URL}, testLogger())
	require.NoError(t, err)

	_, err = narrator.Narrate(context.Background(), testInput())
	require.Error(t, err)
}

func testSummaryInput() SummaryInput {
	return SummaryInput{
		Date:           time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		TotalTokens:    12,
		ActiveTokens:   9,
		HighRiskTokens: 3,
		AlertCount:     4,
		AvgScore:       38.2,
		Alerts: []SummaryAlert{
			{Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Score: 85, RiskLevel: "HIGH"},
		},
	}
}

func TestSummarize(t *testing.T) {
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "A busy day with 4 alerts."}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	narrator, err := NewNarrator(Config{APIKey: "test-key", BaseURL: server.URL}, testLogger())
	require.NoError(t, err)

	summary, err := narrator.Summarize(context.Background(), testSummaryInput())
	require.NoError(t, err)
	assert.Equal(t, "A busy day with 4 alerts.", summary)

	require.Len(t, gotReq.Messages, 2)
	userPrompt := gotReq.Messages[1].Content
	assert.Contains(t, userPrompt, "2026-08-29")
	assert.Contains(t, userPrompt, "12 (9 active)")
	assert.Contains(t, userPrompt, "Alerts published: 4")
	assert.Contains(t, userPrompt, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
}

func TestFallbackSummary(t *testing.T) {
	text := FallbackSummary(testSummaryInput())
	assert.Contains(t, text, "2026-08-29")
	assert.Contains(t, text, "12 tokens monitored")
	assert.Contains(t, text, "4 alerts")
	assert.Contains(t, text, "3 high risk")

	quiet := FallbackSummary(SummaryInput{Date: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)})
	assert.NotContains(t, quiet, "high risk")
}

func TestNewNarrator_RequiresAPIKey(t *testing.T) {
	_, err := NewNarrator(Config{}, testLogger())
	require.Error(t, err)
}

func TestFallbackCommentary(t *testing.T) {
	text := FallbackCommentary(testInput())
	assert.Contains(t, text, "75/100")
	assert.Contains(t, text, "HIGH")
	assert.Contains(t, text, "Significant liquidity removal")
	assert.Contains(t, text, "suspicious")

	clean := FallbackCommentary(Input{Score: 0, Level: risk.LevelLow})
	assert.True(t, strings.HasPrefix(clean, "Risk score 0/100 (LOW)."))
	assert.NotContains(t, clean, "suspicious")
}
