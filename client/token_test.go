package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/tokens", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&body)
		require.NoError(t, err)

		assert.Equal(t, "mint123", body["mint"])
		assert.Equal(t, "creator123", body["creator"])
		assert.Equal(t, "30s", body["poll_interval"])

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.Register(context.Background(), RegisterParams{
		Mint:         "mint123",
		Name:         "Test Token",
		Symbol:       "TEST",
		Creator:      "creator123",
		PollInterval: 30 * time.Second,
	})
	assert.NoError(t, err)
}

func TestRegister_UpdateAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Re-registration returns 200 instead of 201
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.Register(context.Background(), RegisterParams{
		Mint:    "mint123",
		Creator: "creator123",
	})
	assert.NoError(t, err)
}

func TestRegister_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "invalid mint",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.Register(context.Background(), RegisterParams{
		Mint:    "bad",
		Creator: "creator123",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mint")
}

func TestUnregister_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/api/v1/tokens/mint123", r.URL.Path)

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.Unregister(context.Background(), "mint123")
	assert.NoError(t, err)
}

func TestUnregister_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "token not found",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	err := client.Unregister(context.Background(), "mint123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token not found")
}

func TestGet_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/tokens/mint123", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": map[string]interface{}{
				"mint":          "mint123",
				"name":          "Test Token",
				"symbol":        "TEST",
				"creator":       "creator123",
				"poll_interval": "30s",
				"status":        "active",
				"created_at":    now,
				"updated_at":    now,
			},
			"latest_assessment": map[string]interface{}{
				"id":         int64(7),
				"mint":       "mint123",
				"score":      82.5,
				"risk_level": "HIGH",
				"created_at": now,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	token, assessment, err := client.Get(context.Background(), "mint123")
	require.NoError(t, err)

	assert.Equal(t, "mint123", token.Mint)
	assert.Equal(t, "TEST", token.Symbol)
	assert.Equal(t, 30*time.Second, token.PollInterval)
	assert.Equal(t, "active", token.Status)

	require.NotNil(t, assessment)
	assert.Equal(t, 82.5, assessment.Score)
	assert.Equal(t, "HIGH", assessment.RiskLevel)
}

func TestGet_NoAssessmentYet(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": map[string]interface{}{
				"mint":          "mint123",
				"creator":       "creator123",
				"poll_interval": "1m",
				"status":        "active",
				"created_at":    now,
				"updated_at":    now,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	token, assessment, err := client.Get(context.Background(), "mint123")
	require.NoError(t, err)
	assert.Equal(t, "mint123", token.Mint)
	assert.Nil(t, assessment)
}

func TestGet_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "token not found",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, _, err := client.Get(context.Background(), "mint123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token not found")
}

func TestList_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/tokens", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"tokens": []map[string]interface{}{
				{
					"mint":          "mint1",
					"symbol":        "AAA",
					"creator":       "creator1",
					"poll_interval": "30s",
					"status":        "active",
					"created_at":    now,
					"updated_at":    now,
				},
				{
					"mint":          "mint2",
					"symbol":        "BBB",
					"creator":       "creator2",
					"poll_interval": "1m",
					"status":        "paused",
					"created_at":    now,
					"updated_at":    now,
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	tokens, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "mint1", tokens[0].Mint)
	assert.Equal(t, 30*time.Second, tokens[0].PollInterval)
	assert.Equal(t, "mint2", tokens[1].Mint)
	assert.Equal(t, "paused", tokens[1].Status)
}

func TestList_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"tokens": []map[string]interface{}{},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	tokens, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestAnalyze_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/tokens/mint123/analyze", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":                int64(3),
			"mint":              "mint123",
			"score":             64.0,
			"risk_level":        "MEDIUM",
			"is_suspicious":     false,
			"detected_patterns": []string{},
			"created_at":        time.Now().UTC(),
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	assessment, err := client.Analyze(context.Background(), "mint123")
	require.NoError(t, err)
	assert.Equal(t, "mint123", assessment.Mint)
	assert.Equal(t, 64.0, assessment.Score)
	assert.Equal(t, "MEDIUM", assessment.RiskLevel)
	assert.False(t, assessment.Suspicious)
}

func TestAnalyze_ChainFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "failed to fetch on-chain data",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	_, err := client.Analyze(context.Background(), "mint123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch on-chain data")
}

func TestListAlerts_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/alerts", r.URL.Path)
		assert.Equal(t, "mint123", r.URL.Query().Get("mint"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"alerts": []map[string]interface{}{
				{
					"id":         int64(1),
					"mint":       "mint123",
					"score":      91.0,
					"risk_level": "HIGH",
					"message":    "TEST risk HIGH (91/100)",
					"tweeted":    true,
					"created_at": time.Now().UTC(),
				},
			},
			"count": 1,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	alerts, err := client.ListAlerts(context.Background(), "mint123", 50, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 91.0, alerts[0].Score)
	assert.True(t, alerts[0].Tweeted)
}

func TestGetStats_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stats", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"total_tokens":      int64(10),
			"active_tokens":     int64(8),
			"total_assessments": int64(120),
			"total_alerts":      int64(4),
			"high_risk_tokens":  int64(2),
			"avg_score_24h":     38.5,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	stats, err := client.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalTokens)
	assert.Equal(t, int64(8), stats.ActiveTokens)
	assert.Equal(t, 38.5, stats.AvgScore24h)
}

func TestListAssessments_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tokens/mint123/assessments", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"assessments": []map[string]interface{}{
				{"id": int64(2), "mint": "mint123", "score": 70.0, "risk_level": "HIGH", "created_at": time.Now().UTC()},
				{"id": int64(1), "mint": "mint123", "score": 45.0, "risk_level": "MEDIUM", "created_at": time.Now().UTC()},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, nil)
	assessments, err := client.ListAssessments(context.Background(), "mint123", 100, 0)
	require.NoError(t, err)
	require.Len(t, assessments, 2)
	assert.Equal(t, 70.0, assessments[0].Score)
	assert.Equal(t, "MEDIUM", assessments[1].RiskLevel)
}
