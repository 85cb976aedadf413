package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/ai"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/metrics"
	natspkg "github.com/SolyforTrenchers/SolyforTrenchers/service/nats"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/solana"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/twitter"
	solanago "github.com/gagliardetto/solana-go"
)

// AnalyzeTokenInput contains the input parameters for analyzing a token.
// The mint is the only identity the schedule carries; everything else is
// loaded from the token row so updates take effect without touching the
// schedule.
type AnalyzeTokenInput struct {
	Mint          string  `json:"mint"`
	RiskThreshold float64 `json:"risk_threshold"` // alert when score >= threshold
}

// AnalyzeTokenResult contains the outcome of one analysis run.
type AnalyzeTokenResult struct {
	Mint           string    `json:"mint"`
	Score          float64   `json:"score"`
	RiskLevel      string    `json:"risk_level"`
	Suspicious     bool      `json:"is_suspicious"`
	Patterns       []string  `json:"detected_patterns"`
	AlertPublished bool      `json:"alert_published"`
	Tweeted        bool      `json:"tweeted"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
	Error          *string   `json:"error,omitempty"`
}

// LoadTokenInput contains parameters for the LoadToken activity.
type LoadTokenInput struct {
	Mint string `json:"mint"`
}

// LoadTokenResult contains the token row fields the rest of the
// workflow needs.
type LoadTokenResult struct {
	Mint            string  `json:"mint"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	Creator         string  `json:"creator"`
	PoolVault       *string `json:"pool_vault,omitempty"`
	LiquidityUSD    float64 `json:"liquidity_usd"`
	LiquidityLocked bool    `json:"liquidity_locked"`
	Status          string  `json:"status"`
}

// FetchRiskFactorsInput contains parameters for the FetchRiskFactors activity.
type FetchRiskFactorsInput struct {
	Mint            string  `json:"mint"`
	Creator         string  `json:"creator"`
	LiquidityUSD    float64 `json:"liquidity_usd"`
	LiquidityLocked bool    `json:"liquidity_locked"`
}

// FetchRiskFactorsResult contains the on-chain factor snapshot.
type FetchRiskFactorsResult struct {
	Factors risk.Factors `json:"factors"`
}

// FetchTokenActivityInput contains parameters for the FetchTokenActivity activity.
type FetchTokenActivityInput struct {
	Mint      string  `json:"mint"`
	Creator   string  `json:"creator"`
	PoolVault *string `json:"pool_vault,omitempty"`
	Limit     int     `json:"limit"`
}

// FetchTokenActivityResult contains the classified transaction history.
type FetchTokenActivityResult struct {
	History []risk.TransactionRecord `json:"history"`
}

// AssessTokenInput contains parameters for the AssessToken activity.
type AssessTokenInput struct {
	Mint    string                   `json:"mint"`
	Factors risk.Factors             `json:"factors"`
	History []risk.TransactionRecord `json:"history"`
}

// AssessTokenResult contains the persisted assessment.
type AssessTokenResult struct {
	AssessmentID int64               `json:"assessment_id"`
	Score        float64             `json:"score"`
	RiskLevel    string              `json:"risk_level"`
	Suspicious   bool                `json:"is_suspicious"`
	Patterns     []string            `json:"detected_patterns"`
	Confidence   float64             `json:"confidence"`
	Breakdown    []risk.Contribution `json:"breakdown"`
}

// GenerateCommentaryInput contains parameters for the GenerateCommentary activity.
type GenerateCommentaryInput struct {
	AssessmentID int64               `json:"assessment_id"`
	Mint         string              `json:"mint"`
	Name         string              `json:"name"`
	Symbol       string              `json:"symbol"`
	Score        float64             `json:"score"`
	RiskLevel    string              `json:"risk_level"`
	Suspicious   bool                `json:"is_suspicious"`
	Patterns     []string            `json:"detected_patterns"`
	Breakdown    []risk.Contribution `json:"breakdown"`
}

// GenerateCommentaryResult contains the generated commentary.
type GenerateCommentaryResult struct {
	Commentary string `json:"commentary"`
	Fallback   bool   `json:"fallback"` // true when the narrator failed and canned text was used
}

// PublishAlertInput contains parameters for the PublishAlert activity.
type PublishAlertInput struct {
	Mint       string   `json:"mint"`
	Symbol     string   `json:"symbol"`
	Score      float64  `json:"score"`
	RiskLevel  string   `json:"risk_level"`
	Suspicious bool     `json:"is_suspicious"`
	Patterns   []string `json:"detected_patterns"`
	Confidence float64  `json:"confidence"`
	Commentary string   `json:"commentary,omitempty"`
}

// PublishAlertResult contains the stored alert.
type PublishAlertResult struct {
	AlertID int64  `json:"alert_id"`
	Message string `json:"message"`
}

// PostAlertTweetInput contains parameters for the PostAlertTweet activity.
type PostAlertTweetInput struct {
	AlertID   int64    `json:"alert_id"`
	Mint      string   `json:"mint"`
	Symbol    string   `json:"symbol"`
	Score     float64  `json:"score"`
	RiskLevel string   `json:"risk_level"`
	Patterns  []string `json:"detected_patterns"`
}

// PostAlertTweetResult contains the tweet outcome.
type PostAlertTweetResult struct {
	Posted  bool   `json:"posted"`
	Skipped string `json:"skipped,omitempty"` // reason the tweet was skipped, empty when posted
}

// UpdatePollTimeInput contains parameters for the UpdatePollTime activity.
type UpdatePollTimeInput struct {
	Mint     string    `json:"mint"`
	PollTime time.Time `json:"poll_time"`
}

// StoreInterface defines the database operations needed by activities.
// This allows for easy mocking in tests.
type StoreInterface interface {
	GetToken(ctx context.Context, mint string) (*db.Token, error)
	CreateAssessment(ctx context.Context, params db.CreateAssessmentParams) (*db.Assessment, error)
	UpdateAssessmentCommentary(ctx context.Context, id int64, commentary string) error
	CreateAlert(ctx context.Context, params db.CreateAlertParams) (*db.Alert, error)
	MarkAlertTweeted(ctx context.Context, id int64) error
	UpdateTokenPollTime(ctx context.Context, mint string, pollTime time.Time) (*db.Token, error)
	ListAlerts(ctx context.Context, params db.ListAlertsParams) ([]*db.Alert, error)
	GetStats(ctx context.Context) (*db.Stats, error)
	DeleteAssessmentsOlderThan(ctx context.Context, before time.Time) error
}

// InspectorInterface defines the on-chain inspection operations needed
// by activities. This allows for easy mocking in tests.
type InspectorInterface interface {
	GetRiskFactors(ctx context.Context, params solana.FactorParams) (risk.Factors, error)
	GetTokenActivity(ctx context.Context, params solana.ActivityParams) ([]risk.TransactionRecord, error)
}

// PublisherInterface defines the NATS publishing operations needed by
// activities. This allows for easy mocking in tests.
type PublisherInterface interface {
	PublishAlert(ctx context.Context, event *natspkg.AlertEvent) error
}

// NarratorInterface defines the commentary generation operations needed
// by activities. This allows for easy mocking in tests.
type NarratorInterface interface {
	Narrate(ctx context.Context, input ai.Input) (string, error)
}

// PosterInterface defines the social posting operations needed by
// activities. This allows for easy mocking in tests.
type PosterInterface interface {
	Post(ctx context.Context, text string) error
}

// Activities holds the dependencies needed by Temporal activities.
// All dependencies are explicit; narrator and poster may be nil, in
// which case the corresponding steps degrade gracefully.
type Activities struct {
	store     StoreInterface
	inspector InspectorInterface
	publisher PublisherInterface
	narrator  NarratorInterface
	poster    PosterInterface
	cache     *risk.Cache
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(
	store StoreInterface,
	inspector InspectorInterface,
	publisher PublisherInterface,
	narrator NarratorInterface,
	poster PosterInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		store:     store,
		inspector: inspector,
		publisher: publisher,
		narrator:  narrator,
		poster:    poster,
		cache:     risk.NewCache(),
		metrics:   m,
		logger:    logger,
	}
}

// LoadToken loads the token row the analysis run operates on.
func (a *Activities) LoadToken(ctx context.Context, input LoadTokenInput) (*LoadTokenResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("LoadToken", input.Mint, time.Since(start).Seconds())
		}
	}()

	token, err := a.store.GetToken(ctx, input.Mint)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to load token",
			"mint", input.Mint,
			"error", err,
		)
		return nil, fmt.Errorf("failed to load token %s: %w", input.Mint, err)
	}

	return &LoadTokenResult{
		Mint:            token.Mint,
		Name:            token.Name,
		Symbol:          token.Symbol,
		Creator:         token.Creator,
		PoolVault:       token.PoolVault,
		LiquidityUSD:    token.LiquidityUSD,
		LiquidityLocked: token.LiquidityLocked,
		Status:          token.Status,
	}, nil
}

// FetchRiskFactors reads the on-chain factor snapshot for a token: mint
// and freeze authority state, holder distribution, and dev holdings.
func (a *Activities) FetchRiskFactors(ctx context.Context, input FetchRiskFactorsInput) (*FetchRiskFactorsResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("FetchRiskFactors", input.Mint, time.Since(start).Seconds())
		}
	}()

	a.logger.DebugContext(ctx, "fetching risk factors", "mint", input.Mint)

	mint, err := solanago.PublicKeyFromBase58(input.Mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint address: %w", err)
	}
	creator, err := solanago.PublicKeyFromBase58(input.Creator)
	if err != nil {
		return nil, fmt.Errorf("invalid creator address: %w", err)
	}

	factors, err := a.inspector.GetRiskFactors(ctx, solana.FactorParams{
		Mint:            mint,
		Creator:         creator,
		LiquidityUSD:    input.LiquidityUSD,
		LiquidityLocked: input.LiquidityLocked,
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to fetch risk factors",
			"mint", input.Mint,
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch risk factors: %w", err)
	}

	a.logger.InfoContext(ctx, "fetched risk factors",
		"mint", input.Mint,
		"holder_count", factors.HolderCount,
		"top10_holdings_pct", factors.Top10HoldingsPct,
		"dev_holdings_pct", factors.DevHoldingsPct,
	)

	return &FetchRiskFactorsResult{Factors: factors}, nil
}

// FetchTokenActivity fetches recent transactions touching the mint and
// classifies them for the pattern detector.
func (a *Activities) FetchTokenActivity(ctx context.Context, input FetchTokenActivityInput) (*FetchTokenActivityResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("FetchTokenActivity", input.Mint, time.Since(start).Seconds())
		}
	}()

	a.logger.DebugContext(ctx, "fetching token activity",
		"mint", input.Mint,
		"limit", input.Limit,
	)

	mint, err := solanago.PublicKeyFromBase58(input.Mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint address: %w", err)
	}
	creator, err := solanago.PublicKeyFromBase58(input.Creator)
	if err != nil {
		return nil, fmt.Errorf("invalid creator address: %w", err)
	}

	var poolVault solanago.PublicKey
	if input.PoolVault != nil {
		poolVault, err = solanago.PublicKeyFromBase58(*input.PoolVault)
		if err != nil {
			return nil, fmt.Errorf("invalid pool vault address: %w", err)
		}
	}

	limit := input.Limit
	if limit == 0 {
		limit = 100
	}

	history, err := a.inspector.GetTokenActivity(ctx, solana.ActivityParams{
		Mint:      mint,
		Creator:   creator,
		PoolVault: poolVault,
		Limit:     limit,
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to fetch token activity",
			"mint", input.Mint,
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch token activity: %w", err)
	}

	a.logger.InfoContext(ctx, "fetched token activity",
		"mint", input.Mint,
		"count", len(history),
	)

	return &FetchTokenActivityResult{History: history}, nil
}

// AssessToken runs the risk engine over the factor snapshot and the
// transaction history and persists the result. Every score lands in the
// assessments table whether or not an alert fires.
func (a *Activities) AssessToken(ctx context.Context, input AssessTokenInput) (*AssessTokenResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("AssessToken", input.Mint, time.Since(start).Seconds())
		}
	}()

	assessment := a.cache.ScoreCached(input.Factors)
	verdict := risk.DetectPatterns(input.History)

	// The stored risk level reflects both the score and the pattern
	// verdict: a HIGH pattern verdict wins over a score-derived level.
	level := scoreLevel(assessment.Value)
	if verdict.Level > level {
		level = verdict.Level
	}

	stored, err := a.store.CreateAssessment(ctx, db.CreateAssessmentParams{
		Mint:       input.Mint,
		Score:      assessment.Value,
		RiskLevel:  level.String(),
		Suspicious: verdict.Suspicious,
		Patterns:   verdict.Patterns,
		Confidence: verdict.Confidence,
		Factors:    input.Factors,
		Breakdown:  assessment.Contributions,
	})
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordAnalysis("error")
		}
		a.logger.ErrorContext(ctx, "failed to persist assessment",
			"mint", input.Mint,
			"error", err,
		)
		return nil, fmt.Errorf("failed to persist assessment: %w", err)
	}

	a.logger.InfoContext(ctx, "assessed token",
		"mint", input.Mint,
		"score", assessment.Value,
		"risk_level", level.String(),
		"suspicious", verdict.Suspicious,
		"patterns", verdict.Patterns,
	)

	if a.metrics != nil {
		a.metrics.RecordAnalysis("ok")
		a.metrics.RecordRiskScore(level.String(), assessment.Value)
		for _, p := range verdict.Patterns {
			a.metrics.RecordPatternDetected(p)
		}
	}

	return &AssessTokenResult{
		AssessmentID: stored.ID,
		Score:        stored.Score,
		RiskLevel:    stored.RiskLevel,
		Suspicious:   stored.Suspicious,
		Patterns:     stored.Patterns,
		Confidence:   stored.Confidence,
		Breakdown:    stored.Breakdown,
	}, nil
}

// GenerateCommentary asks the narrator for a short human-readable take
// on the assessment and attaches it to the stored row. Narrator
// failures fall back to canned text; this activity only errors when the
// commentary cannot be persisted.
func (a *Activities) GenerateCommentary(ctx context.Context, input GenerateCommentaryInput) (*GenerateCommentaryResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("GenerateCommentary", input.Mint, time.Since(start).Seconds())
		}
	}()

	narratorInput := ai.Input{
		Mint:       input.Mint,
		Name:       input.Name,
		Symbol:     input.Symbol,
		Score:      input.Score,
		Level:      risk.ParseLevel(input.RiskLevel),
		Suspicious: input.Suspicious,
		Patterns:   input.Patterns,
		Breakdown:  input.Breakdown,
	}

	result := &GenerateCommentaryResult{}
	if a.narrator != nil {
		commentary, err := a.narrator.Narrate(ctx, narratorInput)
		if err == nil {
			result.Commentary = commentary
			if a.metrics != nil {
				a.metrics.RecordCommentaryRequest("ok")
			}
		} else {
			a.logger.WarnContext(ctx, "narrator failed, using fallback commentary",
				"mint", input.Mint,
				"error", err,
			)
			if a.metrics != nil {
				a.metrics.RecordCommentaryRequest("error")
			}
		}
	}
	if result.Commentary == "" {
		result.Commentary = ai.FallbackCommentary(narratorInput)
		result.Fallback = true
	}

	if err := a.store.UpdateAssessmentCommentary(ctx, input.AssessmentID, result.Commentary); err != nil {
		a.logger.ErrorContext(ctx, "failed to persist commentary",
			"mint", input.Mint,
			"assessment_id", input.AssessmentID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to persist commentary: %w", err)
	}

	return result, nil
}

// PublishAlert stores an alert row and publishes the alert event to
// NATS for real-time subscribers.
func (a *Activities) PublishAlert(ctx context.Context, input PublishAlertInput) (*PublishAlertResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("PublishAlert", input.Mint, time.Since(start).Seconds())
		}
	}()

	message := alertMessage(input)

	alert, err := a.store.CreateAlert(ctx, db.CreateAlertParams{
		Mint:      input.Mint,
		Score:     input.Score,
		RiskLevel: input.RiskLevel,
		Patterns:  input.Patterns,
		Message:   message,
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to store alert",
			"mint", input.Mint,
			"error", err,
		)
		return nil, fmt.Errorf("failed to store alert: %w", err)
	}

	event := &natspkg.AlertEvent{
		Mint:             input.Mint,
		Symbol:           input.Symbol,
		Score:            input.Score,
		RiskLevel:        input.RiskLevel,
		Suspicious:       input.Suspicious,
		DetectedPatterns: input.Patterns,
		Confidence:       input.Confidence,
		Message:          message,
		Commentary:       input.Commentary,
		AssessedAt:       alert.CreatedAt,
		PublishedAt:      time.Now().UTC(),
	}
	if event.DetectedPatterns == nil {
		event.DetectedPatterns = []string{}
	}

	if a.publisher != nil {
		if err := a.publisher.PublishAlert(ctx, event); err != nil {
			// Alert row is persisted; NATS delivery is best-effort.
			a.logger.ErrorContext(ctx, "failed to publish alert to NATS",
				"mint", input.Mint,
				"alert_id", alert.ID,
				"error", err,
			)
		}
	}

	if a.metrics != nil {
		a.metrics.RecordAlertPublished(input.RiskLevel)
	}

	a.logger.InfoContext(ctx, "published alert",
		"mint", input.Mint,
		"alert_id", alert.ID,
		"score", input.Score,
		"risk_level", input.RiskLevel,
	)

	return &PublishAlertResult{AlertID: alert.ID, Message: message}, nil
}

// PostAlertTweet posts the alert to X and marks the alert row. An
// exhausted tweet budget is a skip, not a failure; the next alert will
// try again.
func (a *Activities) PostAlertTweet(ctx context.Context, input PostAlertTweetInput) (*PostAlertTweetResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("PostAlertTweet", input.Mint, time.Since(start).Seconds())
		}
	}()

	if a.poster == nil {
		return &PostAlertTweetResult{Skipped: "poster not configured"}, nil
	}

	text := twitter.BuildAlertText(input.Symbol, input.Mint, input.Score, input.RiskLevel, input.Patterns)

	if err := a.poster.Post(ctx, text); err != nil {
		if errors.Is(err, twitter.ErrBudgetExhausted) {
			a.logger.WarnContext(ctx, "tweet budget exhausted, skipping alert tweet",
				"mint", input.Mint,
				"alert_id", input.AlertID,
			)
			if a.metrics != nil {
				a.metrics.RecordTweet("throttled")
			}
			return &PostAlertTweetResult{Skipped: "budget exhausted"}, nil
		}
		if a.metrics != nil {
			a.metrics.RecordTweet("error")
		}
		a.logger.ErrorContext(ctx, "failed to post alert tweet",
			"mint", input.Mint,
			"alert_id", input.AlertID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to post alert tweet: %w", err)
	}

	if err := a.store.MarkAlertTweeted(ctx, input.AlertID); err != nil {
		// Tweet went out; the bookkeeping miss is logged, not fatal.
		a.logger.WarnContext(ctx, "failed to mark alert as tweeted",
			"alert_id", input.AlertID,
			"error", err,
		)
	}

	if a.metrics != nil {
		a.metrics.RecordTweet("ok")
	}

	a.logger.InfoContext(ctx, "posted alert tweet",
		"mint", input.Mint,
		"alert_id", input.AlertID,
	)

	return &PostAlertTweetResult{Posted: true}, nil
}

// UpdatePollTime records when the token was last analyzed.
func (a *Activities) UpdatePollTime(ctx context.Context, input UpdatePollTimeInput) error {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("UpdatePollTime", input.Mint, time.Since(start).Seconds())
		}
	}()

	_, err := a.store.UpdateTokenPollTime(ctx, input.Mint, input.PollTime)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to update token poll time",
			"mint", input.Mint,
			"error", err,
		)
		return fmt.Errorf("failed to update token poll time: %w", err)
	}
	return nil
}

// scoreLevel maps a risk score to a qualitative level using the same
// bands the alert text uses.
func scoreLevel(score float64) risk.Level {
	switch {
	case score >= 70:
		return risk.LevelHigh
	case score >= 40:
		return risk.LevelMedium
	default:
		return risk.LevelLow
	}
}

// alertMessage renders the one-line alert summary stored with the alert
// and published to NATS.
func alertMessage(input PublishAlertInput) string {
	symbol := input.Symbol
	if symbol == "" {
		symbol = input.Mint
	}
	if len(input.Patterns) > 0 {
		return fmt.Sprintf("%s risk %s (%.0f/100): %s", symbol, input.RiskLevel, input.Score, strings.Join(input.Patterns, "; "))
	}
	return fmt.Sprintf("%s risk %s (%.0f/100)", symbol, input.RiskLevel, input.Score)
}
