// Package twitter posts high-risk alerts to X with a daily budget and a
// minimum interval between posts.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned when the daily tweet budget is spent
// or the minimum interval between tweets has not elapsed. Callers treat
// it as a skip, not a failure.
var ErrBudgetExhausted = errors.New("tweet budget exhausted")

// Poster posts alert text to a social feed.
type Poster interface {
	Post(ctx context.Context, text string) error
}

// Config configures the poster.
type Config struct {
	BearerToken string
	BaseURL     string        // defaults to https://api.twitter.com/2
	MaxPerDay   int           // defaults to 10
	MinInterval time.Duration // defaults to 15 minutes
	Timeout     time.Duration
}

const (
	defaultBaseURL     = "https://api.twitter.com/2"
	defaultMaxPerDay   = 10
	defaultMinInterval = 15 * time.Minute
	defaultTimeout     = 15 * time.Second

	// maxTweetLen is the X post character limit.
	maxTweetLen = 280
)

// Client posts tweets through the X v2 API.
type Client struct {
	bearerToken string
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger

	limiter   *rate.Limiter
	maxPerDay int

	mu        sync.Mutex
	dayStart  time.Time
	postedDay int

	now func() time.Time
}

// NewClient creates a poster. usedToday seeds the daily counter, so a
// restarted worker does not get a fresh budget (the store's
// CountTweetsSince supplies it).
func NewClient(cfg Config, usedToday int, logger *slog.Logger) (*Client, error) {
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxPerDay <= 0 {
		cfg.MaxPerDay = defaultMaxPerDay
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	now := time.Now().UTC()
	limiter := rate.NewLimiter(rate.Every(cfg.MinInterval), 1)

	return &Client{
		bearerToken: cfg.BearerToken,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
		limiter:     limiter,
		maxPerDay:   cfg.MaxPerDay,
		dayStart:    now.Truncate(24 * time.Hour),
		postedDay:   usedToday,
		now:         time.Now,
	}, nil
}

// Post publishes the text as a tweet, truncating it to the platform
// limit. It returns ErrBudgetExhausted when posting is throttled.
func (c *Client) Post(ctx context.Context, text string) error {
	if err := c.takeBudget(); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"text": Truncate(text)})
	if err != nil {
		return fmt.Errorf("failed to marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.refundBudget()
		return fmt.Errorf("tweet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		c.refundBudget()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tweet returned status %d: %s", resp.StatusCode, respBody)
	}

	c.logger.InfoContext(ctx, "posted alert tweet", "length", len(text))
	return nil
}

// takeBudget consumes one slot from the interval limiter and the daily
// counter. Both must allow the post.
func (c *Client) takeBudget() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UTC()
	day := now.Truncate(24 * time.Hour)
	if day.After(c.dayStart) {
		c.dayStart = day
		c.postedDay = 0
	}

	if c.postedDay >= c.maxPerDay {
		return fmt.Errorf("daily cap of %d reached: %w", c.maxPerDay, ErrBudgetExhausted)
	}
	if !c.limiter.AllowN(now, 1) {
		return fmt.Errorf("minimum tweet interval not elapsed: %w", ErrBudgetExhausted)
	}

	c.postedDay++
	return nil
}

// refundBudget returns the daily slot after a failed post. The interval
// slot is deliberately not refunded so a failing API is not hammered.
func (c *Client) refundBudget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.postedDay > 0 {
		c.postedDay--
	}
}

// Truncate shortens text to the tweet length limit, ending with an
// ellipsis when cut.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTweetLen {
		return text
	}
	return string(runes[:maxTweetLen-1]) + "…"
}

// BuildAlertText formats an alert for posting.
func BuildAlertText(symbol, mint string, score float64, level string, patterns []string) string {
	label := symbol
	if label == "" {
		label = shortMint(mint)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ $%s risk %s (%.0f/100)", label, level, score)
	for _, p := range patterns {
		fmt.Fprintf(&b, "\n• %s", p)
	}
	fmt.Fprintf(&b, "\nMint: %s", mint)
	return Truncate(b.String())
}

func shortMint(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:4] + "…" + mint[len(mint)-4:]
}
