package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URLS", "https://api.mainnet-beta.solana.com")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, ":8080", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)    // Default
	assert.Equal(t, float64(70), cfg.RugRiskThreshold)
	assert.Equal(t, 60*time.Second, cfg.DefaultPollInterval)
	assert.Equal(t, 10*time.Second, cfg.MinPollInterval)
	assert.Equal(t, 10, cfg.MaxTweetsPerDay)
	assert.Equal(t, 15*time.Minute, cfg.MinTweetInterval)
}

func TestLoad_MultipleRPCURLs(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URLS", "https://rpc-one.example.com, https://rpc-two.example.com")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://rpc-one.example.com", "https://rpc-two.example.com"}, cfg.SolanaRPCURLs)
}

func TestLoad_SingularRPCURLFallback(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.SolanaRPCURLs)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Setenv("SOLANA_RPC_URLS", "https://api.mainnet-beta.solana.com")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_MissingSolanaRPCURLs(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URLS is required")
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URLS", "https://api.mainnet-beta.solana.com")
	os.Setenv("DEFAULT_POLL_INTERVAL", "invalid")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_MinIntervalGreaterThanDefault(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URLS", "https://api.mainnet-beta.solana.com")
	os.Setenv("DEFAULT_POLL_INTERVAL", "10s")
	os.Setenv("MIN_POLL_INTERVAL", "30s")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "cannot be greater than")
}

func TestLoad_InvalidRiskThreshold(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URLS", "https://api.mainnet-beta.solana.com")
	os.Setenv("RUG_RISK_THRESHOLD", "150")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "RUG_RISK_THRESHOLD must be in [0,100]")
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URLS", "https://api.mainnet-beta.solana.com")
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("TEMPORAL_HOST", "temporal.example.com:7233")
	os.Setenv("RUG_RISK_THRESHOLD", "55")
	os.Setenv("DEFAULT_POLL_INTERVAL", "1m")
	os.Setenv("MIN_POLL_INTERVAL", "15s")
	os.Setenv("OPENAI_API_KEY", "sk-test")
	os.Setenv("AI_MODEL", "gpt-4o")
	os.Setenv("TWITTER_BEARER_TOKEN", "bearer-test")
	os.Setenv("MAX_TWEETS_PER_DAY", "5")
	os.Setenv("MIN_TWEET_INTERVAL", "30m")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "temporal.example.com:7233", cfg.TemporalHost)
	assert.Equal(t, float64(55), cfg.RugRiskThreshold)
	assert.Equal(t, time.Minute, cfg.DefaultPollInterval)
	assert.Equal(t, 15*time.Second, cfg.MinPollInterval)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o", cfg.AIModel)
	assert.Equal(t, "bearer-test", cfg.TwitterBearerToken)
	assert.Equal(t, 5, cfg.MaxTweetsPerDay)
	assert.Equal(t, 30*time.Minute, cfg.MinTweetInterval)
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		DatabaseURL:         "postgres://localhost/test",
		SolanaRPCURLs:       []string{"https://api.mainnet-beta.solana.com"},
		TemporalHost:        "localhost:7233",
		TemporalNamespace:   "default",
		TemporalTaskQueue:   "soly-token-analysis",
		RugRiskThreshold:    70,
		DefaultPollInterval: 30 * time.Second,
		MinPollInterval:     10 * time.Second,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_MissingDatabaseURL(t *testing.T) {
	cfg := &Config{
		SolanaRPCURLs:       []string{"https://api.mainnet-beta.solana.com"},
		TemporalHost:        "localhost:7233",
		TemporalNamespace:   "default",
		TemporalTaskQueue:   "soly-token-analysis",
		DefaultPollInterval: 30 * time.Second,
		MinPollInterval:     10 * time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL is required")
}

func TestValidate_InvalidIntervals(t *testing.T) {
	cfg := &Config{
		DatabaseURL:         "postgres://localhost/test",
		SolanaRPCURLs:       []string{"https://api.mainnet-beta.solana.com"},
		TemporalHost:        "localhost:7233",
		TemporalNamespace:   "default",
		TemporalTaskQueue:   "soly-token-analysis",
		DefaultPollInterval: 10 * time.Second,
		MinPollInterval:     30 * time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MinPollInterval cannot be greater than DefaultPollInterval")
}

func TestValidate_TooShortInterval(t *testing.T) {
	cfg := &Config{
		DatabaseURL:         "postgres://localhost/test",
		SolanaRPCURLs:       []string{"https://api.mainnet-beta.solana.com"},
		TemporalHost:        "localhost:7233",
		TemporalNamespace:   "default",
		TemporalTaskQueue:   "soly-token-analysis",
		DefaultPollInterval: 500 * time.Millisecond,
		MinPollInterval:     100 * time.Millisecond,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be at least 1 second")
}

func TestMustLoad_Panics(t *testing.T) {
	// Don't set required env vars
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SOLANA_RPC_URLS", "https://api.mainnet-beta.solana.com")
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("SOLANA_RPC_URLS")
	os.Unsetenv("SOLANA_RPC_URL")
	os.Unsetenv("SERVER_ADDR")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("NATS_URL")
	os.Unsetenv("TEMPORAL_HOST")
	os.Unsetenv("RUG_RISK_THRESHOLD")
	os.Unsetenv("DEFAULT_POLL_INTERVAL")
	os.Unsetenv("MIN_POLL_INTERVAL")
	os.Unsetenv("OPENAI_API_KEY")
	os.Unsetenv("AI_MODEL")
	os.Unsetenv("TWITTER_BEARER_TOKEN")
	os.Unsetenv("MAX_TWEETS_PER_DAY")
	os.Unsetenv("MIN_TWEET_INTERVAL")
}
