package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/config"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/metrics"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/solana"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/temporal"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB - plenty for token registration
	maxAddressLength   = 100     // Solana addresses are 44 chars, give buffer
	minPollInterval    = 10 * time.Second
	maxPollInterval    = 24 * time.Hour
)

var (
	// Valid Solana address characters: base58 (no 0, O, I, l)
	validAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
)

// Inspector fetches on-chain risk factors and transaction activity.
// Satisfied by *solana.Client; mocked in tests.
type Inspector interface {
	GetRiskFactors(ctx context.Context, p solana.FactorParams) (risk.Factors, error)
	GetTokenActivity(ctx context.Context, p solana.ActivityParams) ([]risk.TransactionRecord, error)
}

// handleRegisterToken returns a handler that registers a new token for
// monitoring and creates a Temporal schedule for periodic analysis.
// POST /api/v1/tokens
func handleRegisterToken(store *db.Store, scheduler temporal.Scheduler, cfg *config.Config, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Limit request body size to prevent memory exhaustion
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Mint            string  `json:"mint"`
			Name            string  `json:"name"`
			Symbol          string  `json:"symbol"`
			Creator         string  `json:"creator"`
			PoolVault       *string `json:"pool_vault,omitempty"`
			LiquidityUSD    float64 `json:"liquidity_usd"`
			LiquidityLocked bool    `json:"liquidity_locked"`
			PollInterval    string  `json:"poll_interval,omitempty"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode register request", "error", err)
			// Check if error is due to body size limit
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		// Validate mint address
		if err := validateMint(req.Mint); err != nil {
			logger.Debug("invalid mint", "mint", req.Mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Validate creator address
		if req.Creator == "" {
			writeError(w, "creator is required", http.StatusBadRequest)
			return
		}
		if err := validateAddress(req.Creator); err != nil {
			logger.Debug("invalid creator", "creator", req.Creator, "error", err)
			writeError(w, fmt.Sprintf("invalid creator: %v", err), http.StatusBadRequest)
			return
		}

		// Validate pool vault, if given
		if req.PoolVault != nil {
			if err := validateAddress(*req.PoolVault); err != nil {
				logger.Debug("invalid pool vault", "pool_vault", *req.PoolVault, "error", err)
				writeError(w, fmt.Sprintf("invalid pool_vault: %v", err), http.StatusBadRequest)
				return
			}
		}

		if req.LiquidityUSD < 0 {
			writeError(w, "liquidity_usd cannot be negative", http.StatusBadRequest)
			return
		}

		// Parse and validate poll interval; empty means the configured default
		pollInterval := cfg.DefaultPollInterval
		if req.PollInterval != "" {
			parsed, err := time.ParseDuration(req.PollInterval)
			if err != nil {
				logger.Debug("invalid poll interval", "interval", req.PollInterval, "error", err)
				writeError(w, "invalid poll_interval: must be a valid duration (e.g. '30s', '1m')", http.StatusBadRequest)
				return
			}
			pollInterval = parsed
		}

		if err := validatePollInterval(pollInterval); err != nil {
			logger.Debug("invalid poll interval value", "interval", pollInterval, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Try to create the token
		params := db.CreateTokenParams{
			Mint:            req.Mint,
			Name:            req.Name,
			Symbol:          req.Symbol,
			Creator:         req.Creator,
			PoolVault:       req.PoolVault,
			LiquidityUSD:    req.LiquidityUSD,
			LiquidityLocked: req.LiquidityLocked,
			PollInterval:    pollInterval,
			Status:          "active",
		}

		token, err := store.CreateToken(r.Context(), params)
		isUpdate := false
		statusCode := http.StatusCreated

		if err != nil {
			// Check for duplicate key error - if so, update instead
			if strings.Contains(err.Error(), "duplicate key") {
				logger.Debug("token already registered, updating poll interval",
					"mint", req.Mint,
				)

				token, err = store.UpdateTokenPollInterval(r.Context(), req.Mint, pollInterval)
				if err != nil {
					logger.Error("failed to update token poll interval", "mint", req.Mint, "error", err)
					writeError(w, "failed to update token", http.StatusInternalServerError)
					return
				}
				isUpdate = true
				statusCode = http.StatusOK
			} else {
				logger.Error("failed to create token", "mint", req.Mint, "error", err)
				writeError(w, "failed to register token", http.StatusInternalServerError)
				return
			}
		}

		// Create or update the Temporal schedule
		if isUpdate {
			if err := scheduler.UpsertTokenSchedule(r.Context(), req.Mint, cfg.RugRiskThreshold, pollInterval); err != nil {
				logger.Error("failed to update schedule", "mint", req.Mint, "error", err)
				writeError(w, "failed to update schedule for token", http.StatusInternalServerError)
				return
			}

			logger.Info("token updated with new schedule",
				"mint", token.Mint,
				"poll_interval", token.PollInterval,
			)
		} else {
			if err := scheduler.CreateTokenSchedule(r.Context(), req.Mint, cfg.RugRiskThreshold, pollInterval); err != nil {
				logger.Error("failed to create schedule", "mint", req.Mint, "error", err)

				// Rollback: delete the token we just created
				if delErr := store.DeleteToken(r.Context(), req.Mint); delErr != nil {
					logger.Error("failed to rollback token creation", "mint", req.Mint, "error", delErr)
				}

				writeError(w, "failed to create schedule for token", http.StatusInternalServerError)
				return
			}

			logger.Info("token registered with schedule",
				"mint", token.Mint,
				"symbol", token.Symbol,
				"poll_interval", token.PollInterval,
			)
		}

		writeJSON(w, tokenToResponse(token), statusCode)
	})
}

// handleUnregisterToken returns a handler that unregisters a token and
// deletes its Temporal schedule.
// DELETE /api/v1/tokens/{mint}
func handleUnregisterToken(store *db.Store, scheduler temporal.Scheduler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")

		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		exists, err := store.TokenExists(r.Context(), mint)
		if err != nil {
			logger.Error("failed to check token existence", "mint", mint, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if !exists {
			writeError(w, "token not found", http.StatusNotFound)
			return
		}

		// Delete the Temporal schedule first (before DB)
		// If this fails, we don't want to delete the token from DB
		if err := scheduler.DeleteTokenSchedule(r.Context(), mint); err != nil {
			logger.Error("failed to delete schedule", "mint", mint, "error", err)
			writeError(w, "failed to delete schedule for token", http.StatusInternalServerError)
			return
		}

		if err := store.DeleteToken(r.Context(), mint); err != nil {
			logger.Error("failed to delete token", "mint", mint, "error", err)
			// Schedule is already deleted but DB deletion failed
			// This is an inconsistent state, but schedule can be cleaned up by reconciliation
			writeError(w, "failed to unregister token", http.StatusInternalServerError)
			return
		}

		logger.Info("token unregistered", "mint", mint)
		w.WriteHeader(http.StatusNoContent)
	})
}

// handleGetToken returns a handler that retrieves a token and its latest
// risk assessment.
// GET /api/v1/tokens/{mint}
func handleGetToken(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")

		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		token, err := store.GetToken(r.Context(), mint)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, "token not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get token", "mint", mint, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := map[string]interface{}{
			"token": tokenToResponse(token),
		}

		// The latest assessment is optional: a freshly registered token
		// has none until the first analysis runs.
		latest, err := store.GetLatestAssessment(r.Context(), mint)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			logger.Error("failed to get latest assessment", "mint", mint, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if latest != nil {
			resp["latest_assessment"] = assessmentToResponse(latest)
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// handleListTokens returns a handler that lists all monitored tokens.
// GET /api/v1/tokens
func handleListTokens(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens, err := store.ListTokens(r.Context())
		if err != nil {
			logger.Error("failed to list tokens", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("tokens listed", "count", len(tokens))

		resp := make([]tokenResponse, len(tokens))
		for i, token := range tokens {
			resp[i] = tokenToResponse(token)
		}

		writeJSON(w, map[string]interface{}{
			"tokens": resp,
		}, http.StatusOK)
	})
}

// handleListAssessments returns a handler that lists the assessment
// history for a token, newest first.
// GET /api/v1/tokens/{mint}/assessments?limit=N&offset=N
func handleListAssessments(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")

		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		limit, offset, err := parsePagination(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		assessments, err := store.ListAssessmentsByToken(r.Context(), db.ListAssessmentsByTokenParams{
			Mint:   mint,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			logger.Error("failed to list assessments", "mint", mint, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("assessments listed", "mint", mint, "count", len(assessments))

		resp := make([]assessmentResponse, len(assessments))
		for i := range assessments {
			resp[i] = assessmentToResponse(assessments[i])
		}

		writeJSON(w, map[string]interface{}{
			"assessments": resp,
			"count":       len(resp),
			"limit":       limit,
			"offset":      offset,
		}, http.StatusOK)
	})
}

// handleAnalyzeToken returns a handler that runs a synchronous on-demand
// analysis of a registered token: fetch factors and activity, score,
// detect patterns, and persist the assessment. The scheduled workflow
// does the same work asynchronously; this endpoint exists for operators
// who want an answer now.
// POST /api/v1/tokens/{mint}/analyze
func handleAnalyzeToken(store *db.Store, inspector Inspector, cache *risk.Cache, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.PathValue("mint")

		if err := validateMint(mint); err != nil {
			logger.Debug("invalid mint", "mint", mint, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		token, err := store.GetToken(r.Context(), mint)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, "token not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get token", "mint", mint, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		mintKey, err := solanago.PublicKeyFromBase58(token.Mint)
		if err != nil {
			writeError(w, "invalid mint address", http.StatusBadRequest)
			return
		}
		creatorKey, err := solanago.PublicKeyFromBase58(token.Creator)
		if err != nil {
			logger.Error("stored creator address is invalid", "mint", mint, "creator", token.Creator, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		factors, err := inspector.GetRiskFactors(r.Context(), solana.FactorParams{
			Mint:            mintKey,
			Creator:         creatorKey,
			LiquidityUSD:    token.LiquidityUSD,
			LiquidityLocked: token.LiquidityLocked,
		})
		if err != nil {
			logger.Error("failed to fetch risk factors", "mint", mint, "error", err)
			writeError(w, "failed to fetch on-chain data", http.StatusBadGateway)
			return
		}

		var poolVault solanago.PublicKey
		if token.PoolVault != nil {
			poolVault, _ = solanago.PublicKeyFromBase58(*token.PoolVault)
		}
		history, err := inspector.GetTokenActivity(r.Context(), solana.ActivityParams{
			Mint:      mintKey,
			Creator:   creatorKey,
			PoolVault: poolVault,
			Limit:     100,
		})
		if err != nil {
			logger.Error("failed to fetch token activity", "mint", mint, "error", err)
			writeError(w, "failed to fetch on-chain data", http.StatusBadGateway)
			return
		}

		scored := cache.ScoreCached(factors)
		verdict := risk.DetectPatterns(history)

		level := riskLevelFor(scored.Value)
		if verdict.Level > level {
			level = verdict.Level
		}

		assessment, err := store.CreateAssessment(r.Context(), db.CreateAssessmentParams{
			Mint:       mint,
			Score:      scored.Value,
			RiskLevel:  level.String(),
			Suspicious: verdict.Suspicious,
			Patterns:   verdict.Patterns,
			Confidence: verdict.Confidence,
			Factors:    factors,
			Breakdown:  scored.Contributions,
		})
		if err != nil {
			logger.Error("failed to persist assessment", "mint", mint, "error", err)
			writeError(w, "failed to persist assessment", http.StatusInternalServerError)
			return
		}

		if m != nil {
			m.RecordAnalysis("ok")
			m.RecordRiskScore(assessment.RiskLevel, assessment.Score)
			for _, p := range verdict.Patterns {
				m.RecordPatternDetected(p)
			}
		}

		logger.Info("on-demand analysis complete",
			"mint", mint,
			"score", assessment.Score,
			"risk_level", assessment.RiskLevel,
			"suspicious", assessment.Suspicious,
		)

		writeJSON(w, assessmentToResponse(assessment), http.StatusOK)
	})
}

// handleListAlerts returns a handler that lists published alerts,
// newest first, optionally filtered by mint.
// GET /api/v1/alerts?mint=MINT&limit=N&offset=N
func handleListAlerts(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mint := r.URL.Query().Get("mint")
		if mint != "" {
			if err := validateAddress(mint); err != nil {
				logger.Debug("invalid mint filter", "mint", mint, "error", err)
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		limit, offset, err := parsePagination(r)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		alerts, err := store.ListAlerts(r.Context(), db.ListAlertsParams{
			Mint:   mint,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			logger.Error("failed to list alerts", "mint", mint, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		logger.Debug("alerts listed", "count", len(alerts))

		resp := make([]alertResponse, len(alerts))
		for i := range alerts {
			resp[i] = alertToResponse(alerts[i])
		}

		writeJSON(w, map[string]interface{}{
			"alerts": resp,
			"count":  len(resp),
			"limit":  limit,
			"offset": offset,
		}, http.StatusOK)
	})
}

// handleGetStats returns a handler that reports aggregate monitoring
// statistics.
// GET /api/v1/stats
func handleGetStats(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.GetStats(r.Context())
		if err != nil {
			logger.Error("failed to compute stats", "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"total_tokens":      stats.TotalTokens,
			"active_tokens":     stats.ActiveTokens,
			"total_assessments": stats.TotalAssessments,
			"total_alerts":      stats.TotalAlerts,
			"high_risk_tokens":  stats.HighRiskTokens,
			"avg_score_24h":     stats.AvgScore24h,
		}, http.StatusOK)
	})
}

// tokenResponse is the JSON response format for a monitored token.
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

// tokenToResponse converts a domain Token to a response format.
func tokenToResponse(t *db.Token) tokenResponse {
	return tokenResponse{
		Mint:            t.Mint,
		Name:            t.Name,
		Symbol:          t.Symbol,
		Creator:         t.Creator,
		PoolVault:       t.PoolVault,
		LiquidityUSD:    t.LiquidityUSD,
		LiquidityLocked: t.LiquidityLocked,
		PollInterval:    t.PollInterval.String(),
		LastPollTime:    t.LastPollTime,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// assessmentResponse is the JSON response format for a risk assessment.
type assessmentResponse struct {
	ID         int64               `json:"id"`
	Mint       string              `json:"mint"`
	Score      float64             `json:"score"`
	RiskLevel  string              `json:"risk_level"`
	Suspicious bool                `json:"is_suspicious"`
	Patterns   []string            `json:"detected_patterns"`
	Confidence float64             `json:"confidence"`
	Factors    risk.Factors        `json:"factors"`
	Breakdown  []risk.Contribution `json:"breakdown"`
	Commentary *string             `json:"commentary,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// assessmentToResponse converts a domain Assessment to a response format.
func assessmentToResponse(a *db.Assessment) assessmentResponse {
	resp := assessmentResponse{
		ID:         a.ID,
		Mint:       a.Mint,
		Score:      a.Score,
		RiskLevel:  a.RiskLevel,
		Suspicious: a.Suspicious,
		Patterns:   a.Patterns,
		Confidence: a.Confidence,
		Factors:    a.Factors,
		Breakdown:  a.Breakdown,
		Commentary: a.Commentary,
		CreatedAt:  a.CreatedAt,
	}
	if resp.Patterns == nil {
		resp.Patterns = []string{}
	}
	if resp.Breakdown == nil {
		resp.Breakdown = []risk.Contribution{}
	}
	return resp
}

// alertResponse is the JSON response format for a published alert.
type alertResponse struct {
	ID        int64     `json:"id"`
	Mint      string    `json:"mint"`
	Score     float64   `json:"score"`
	RiskLevel string    `json:"risk_level"`
	Patterns  []string  `json:"detected_patterns"`
	Message   string    `json:"message"`
	Tweeted   bool      `json:"tweeted"`
	CreatedAt time.Time `json:"created_at"`
}

// alertToResponse converts a domain Alert to a response format.
func alertToResponse(a *db.Alert) alertResponse {
	resp := alertResponse{
		ID:        a.ID,
		Mint:      a.Mint,
		Score:     a.Score,
		RiskLevel: a.RiskLevel,
		Patterns:  a.Patterns,
		Message:   a.Message,
		Tweeted:   a.Tweeted,
		CreatedAt: a.CreatedAt,
	}
	if resp.Patterns == nil {
		resp.Patterns = []string{}
	}
	return resp
}

// riskLevelFor maps a 0-100 score to its qualitative level.
func riskLevelFor(score float64) risk.Level {
	switch {
	case score >= 70:
		return risk.LevelHigh
	case score >= 40:
		return risk.LevelMedium
	default:
		return risk.LevelLow
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// validateMint validates a mint address path or body parameter.
func validateMint(mint string) error {
	if mint == "" {
		return errorf("mint is required")
	}
	if err := validateAddress(mint); err != nil {
		return errorf("invalid mint: %v", err)
	}
	return nil
}

// validateAddress validates a Solana address for security and format.
func validateAddress(address string) error {
	if address == "" {
		return errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	// Check for null bytes and control characters
	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return errorf("invalid characters in address: control characters not allowed")
		}
	}

	// Check for common SQL injection patterns
	lowerAddr := strings.ToLower(address)
	sqlPatterns := []string{"drop ", "delete ", "insert ", "update ", "select ", "--", "/*", "*/", ";"}
	for _, pattern := range sqlPatterns {
		if strings.Contains(lowerAddr, pattern) {
			return errorf("invalid characters in address: suspicious pattern detected")
		}
	}

	if !validAddressRegex.MatchString(address) {
		return errorf("invalid address format: must contain only valid base58 characters")
	}

	return nil
}

// validatePollInterval validates a poll interval for reasonable bounds.
func validatePollInterval(interval time.Duration) error {
	if interval <= 0 {
		return errorf("poll_interval must be positive")
	}

	if interval < minPollInterval {
		return errorf("poll_interval must be at least %v", minPollInterval)
	}

	if interval > maxPollInterval {
		return errorf("poll_interval cannot exceed %v", maxPollInterval)
	}

	return nil
}

// parsePagination parses limit (default 100, max 1000) and offset
// (default 0) query parameters.
func parsePagination(r *http.Request) (limit, offset int32, err error) {
	query := r.URL.Query()

	limit = 100
	if limitStr := query.Get("limit"); limitStr != "" {
		var parsed int
		if _, err := fmt.Sscanf(limitStr, "%d", &parsed); err != nil {
			return 0, 0, errorf("invalid limit parameter: must be an integer")
		}
		if parsed < 1 {
			return 0, 0, errorf("limit must be at least 1")
		}
		if parsed > 1000 {
			return 0, 0, errorf("limit cannot exceed 1000")
		}
		limit = int32(parsed)
	}

	offset = 0
	if offsetStr := query.Get("offset"); offsetStr != "" {
		var parsed int
		if _, err := fmt.Sscanf(offsetStr, "%d", &parsed); err != nil {
			return 0, 0, errorf("invalid offset parameter: must be an integer")
		}
		if parsed < 0 {
			return 0, 0, errorf("offset cannot be negative")
		}
		offset = int32(parsed)
	}

	return limit, offset, nil
}

// errorf is a helper to format error strings.
func errorf(format string, args ...interface{}) error {
	return &validationError{msg: strings.TrimSpace(fmt.Sprintf(format, args...))}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
