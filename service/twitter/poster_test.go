package twitter

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
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPoster(t *testing.T, serverURL string, maxPerDay int, usedToday int) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BearerToken: "test-token",
		BaseURL:     serverURL,
		MaxPerDay:   maxPerDay,
		MinInterval: time.Nanosecond, // effectively disabled for tests
	}, usedToday, testLogger())
	require.NoError(t, err)
	return client
}

func TestPost(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/tweets", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1"}}`))
	}))
	defer server.Close()

	poster := newTestPoster(t, server.URL, 10, 0)

	err := poster.Post(context.Background(), "risk alert")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "risk alert", gotBody["text"])
}

func TestPost_DailyCap(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	poster := newTestPoster(t, server.URL, 2, 0)
	ctx := context.Background()

	require.NoError(t, poster.Post(ctx, "one"))
	require.NoError(t, poster.Post(ctx, "two"))

	err := poster.Post(ctx, "three")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, 2, calls)
}

func TestPost_SeededBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	// Two of three daily slots already used before restart.
	poster := newTestPoster(t, server.URL, 3, 2)
	ctx := context.Background()

	require.NoError(t, poster.Post(ctx, "one"))
	assert.ErrorIs(t, poster.Post(ctx, "two"), ErrBudgetExhausted)
}

func TestPost_BudgetResetsNextDay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	poster := newTestPoster(t, server.URL, 1, 1)
	ctx := context.Background()

	assert.ErrorIs(t, poster.Post(ctx, "blocked"), ErrBudgetExhausted)

	// Advance the clock past midnight UTC.
	poster.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	require.NoError(t, poster.Post(ctx, "fresh budget"))
}

func TestPost_MinInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		BearerToken: "test-token",
		BaseURL:     server.URL,
		MaxPerDay:   10,
		MinInterval: time.Hour,
	}, 0, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, client.Post(ctx, "first"))
	assert.ErrorIs(t, client.Post(ctx, "too soon"), ErrBudgetExhausted)
}

func TestPost_RefundsDailySlotOnAPIError(t *testing.T) {
	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	poster := newTestPoster(t, server.URL, 1, 0)
	ctx := context.Background()

	err := poster.Post(ctx, "fails")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBudgetExhausted)

	// The failed call did not consume the only daily slot.
	fail = false
	require.NoError(t, poster.Post(ctx, "succeeds"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short"))

	long := strings.Repeat("a", 400)
	got := Truncate(long)
	assert.Equal(t, maxTweetLen, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestBuildAlertText(t *testing.T) {
	text := BuildAlertText("SCAM", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", 85, "HIGH",
		[]string{"Significant liquidity removal"})
	assert.Contains(t, text, "$SCAM")
	assert.Contains(t, text, "85/100")
	assert.Contains(t, text, "Significant liquidity removal")
	assert.Contains(t, text, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	// Falls back to a shortened mint when there is no symbol.
	noSymbol := BuildAlertText("", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", 85, "HIGH", nil)
	assert.Contains(t, noSymbol, "$EPjF…Dt1v")

	assert.LessOrEqual(t, len([]rune(text)), maxTweetLen)
}
