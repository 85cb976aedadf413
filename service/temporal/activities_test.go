package temporal

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/ai"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
	natspkg "github.com/SolyforTrenchers/SolyforTrenchers/service/nats"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/risk"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/solana"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/twitter"
)

// Valid base58 addresses for activity inputs that parse pubkeys.
const (
	testMintAddr    = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	testCreatorAddr = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
)

// Mock Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetToken(ctx context.Context, mint string) (*db.Token, error) {
	args := m.Called(ctx, mint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Token), args.Error(1)
}

func (m *MockStore) CreateAssessment(ctx context.Context, params db.CreateAssessmentParams) (*db.Assessment, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Assessment), args.Error(1)
}

func (m *MockStore) UpdateAssessmentCommentary(ctx context.Context, id int64, commentary string) error {
	args := m.Called(ctx, id, commentary)
	return args.Error(0)
}

func (m *MockStore) CreateAlert(ctx context.Context, params db.CreateAlertParams) (*db.Alert, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Alert), args.Error(1)
}

func (m *MockStore) MarkAlertTweeted(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) UpdateTokenPollTime(ctx context.Context, mint string, pollTime time.Time) (*db.Token, error) {
	args := m.Called(ctx, mint, pollTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Token), args.Error(1)
}

func (m *MockStore) ListAlerts(ctx context.Context, params db.ListAlertsParams) ([]*db.Alert, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*db.Alert), args.Error(1)
}

func (m *MockStore) GetStats(ctx context.Context) (*db.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*db.Stats), args.Error(1)
}

func (m *MockStore) DeleteAssessmentsOlderThan(ctx context.Context, before time.Time) error {
	args := m.Called(ctx, before)
	return args.Error(0)
}

// Mock Inspector
type MockInspector struct {
	mock.Mock
}

func (m *MockInspector) GetRiskFactors(ctx context.Context, params solana.FactorParams) (risk.Factors, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(risk.Factors), args.Error(1)
}

func (m *MockInspector) GetTokenActivity(ctx context.Context, params solana.ActivityParams) ([]risk.TransactionRecord, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]risk.TransactionRecord), args.Error(1)
}

// Mock Narrator
type MockNarrator struct {
	mock.Mock
}

func (m *MockNarrator) Narrate(ctx context.Context, input ai.Input) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

// Mock Poster
type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) Post(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func newTestActivities(store StoreInterface, inspector InspectorInterface, publisher PublisherInterface, narrator NarratorInterface, poster PosterInterface) *Activities {
	logger := slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewActivities(store, inspector, publisher, narrator, poster, nil, logger)
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestActivities_LoadToken(t *testing.T) {
	store := &MockStore{}
	store.On("GetToken", mock.Anything, testMintAddr).Return(&db.Token{
		Mint:            testMintAddr,
		Name:            "Test Token",
		Symbol:          "TEST",
		Creator:         testCreatorAddr,
		LiquidityUSD:    5000,
		LiquidityLocked: true,
		Status:          "active",
	}, nil)

	activities := newTestActivities(store, nil, nil, nil, nil)

	result, err := activities.LoadToken(context.Background(), LoadTokenInput{Mint: testMintAddr})
	require.NoError(t, err)
	assert.Equal(t, testMintAddr, result.Mint)
	assert.Equal(t, "TEST", result.Symbol)
	assert.Equal(t, testCreatorAddr, result.Creator)
	assert.True(t, result.LiquidityLocked)
	assert.Equal(t, "active", result.Status)
	store.AssertExpectations(t)
}

func TestActivities_LoadToken_NotFound(t *testing.T) {
	store := &MockStore{}
	store.On("GetToken", mock.Anything, testMintAddr).Return(nil, errors.New("no rows in result set"))

	activities := newTestActivities(store, nil, nil, nil, nil)

	_, err := activities.LoadToken(context.Background(), LoadTokenInput{Mint: testMintAddr})
	assert.Error(t, err)
}

func TestActivities_FetchRiskFactors(t *testing.T) {
	inspector := &MockInspector{}
	inspector.On("GetRiskFactors", mock.Anything, mock.MatchedBy(func(p solana.FactorParams) bool {
		return p.Mint.String() == testMintAddr &&
			p.Creator.String() == testCreatorAddr &&
			p.LiquidityUSD == 5000 &&
			p.LiquidityLocked
	})).Return(risk.Factors{
		MintAuthorityRevoked: true,
		HolderCount:          120,
		Top10HoldingsPct:     35,
		LiquidityLocked:      true,
		LiquidityUSD:         5000,
	}, nil)

	activities := newTestActivities(nil, inspector, nil, nil, nil)

	result, err := activities.FetchRiskFactors(context.Background(), FetchRiskFactorsInput{
		Mint:            testMintAddr,
		Creator:         testCreatorAddr,
		LiquidityUSD:    5000,
		LiquidityLocked: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Factors.MintAuthorityRevoked)
	assert.Equal(t, 120, result.Factors.HolderCount)
	inspector.AssertExpectations(t)
}

func TestActivities_FetchRiskFactors_InvalidMint(t *testing.T) {
	activities := newTestActivities(nil, &MockInspector{}, nil, nil, nil)

	_, err := activities.FetchRiskFactors(context.Background(), FetchRiskFactorsInput{
		Mint:    "not-a-mint",
		Creator: testCreatorAddr,
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mint address")
}

func TestActivities_FetchTokenActivity(t *testing.T) {
	inspector := &MockInspector{}
	inspector.On("GetTokenActivity", mock.Anything, mock.MatchedBy(func(p solana.ActivityParams) bool {
		// No pool vault configured: zero value passed through.
		return p.Mint.String() == testMintAddr && p.PoolVault.IsZero() && p.Limit == 100
	})).Return([]risk.TransactionRecord{
		{Kind: risk.KindBuy, Amount: 50},
		{Kind: risk.KindDevSell, Amount: 1000},
	}, nil)

	activities := newTestActivities(nil, inspector, nil, nil, nil)

	result, err := activities.FetchTokenActivity(context.Background(), FetchTokenActivityInput{
		Mint:    testMintAddr,
		Creator: testCreatorAddr,
	})
	require.NoError(t, err)
	require.Len(t, result.History, 2)
	assert.Equal(t, risk.KindDevSell, result.History[1].Kind)
	inspector.AssertExpectations(t)
}

func TestActivities_AssessToken(t *testing.T) {
	factors := risk.Factors{
		HolderCount:      5,
		Top10HoldingsPct: 95,
		DevHoldingsPct:   40,
		LiquidityUSD:     500,
	}
	history := []risk.TransactionRecord{
		{Kind: risk.KindDevSell, Amount: 100},
		{Kind: risk.KindDevSell, Amount: 100},
		{Kind: risk.KindDevSell, Amount: 100},
		{Kind: risk.KindDevSell, Amount: 100},
	}

	store := &MockStore{}
	store.On("CreateAssessment", mock.Anything, mock.MatchedBy(func(p db.CreateAssessmentParams) bool {
		return p.Mint == testMintAddr &&
			p.Score > 0 &&
			p.Suspicious == false && // dev sells alone are MEDIUM, not suspicious
			len(p.Patterns) == 1 &&
			len(p.Breakdown) > 0
	})).Return(&db.Assessment{
		ID:         42,
		Mint:       testMintAddr,
		Score:      100,
		RiskLevel:  "HIGH",
		Patterns:   []string{risk.PatternDevSells},
		Confidence: 1.0,
	}, nil)

	activities := newTestActivities(store, nil, nil, nil, nil)

	result, err := activities.AssessToken(context.Background(), AssessTokenInput{
		Mint:    testMintAddr,
		Factors: factors,
		History: history,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.AssessmentID)
	assert.Equal(t, float64(100), result.Score)
	assert.Equal(t, "HIGH", result.RiskLevel)
	store.AssertExpectations(t)
}

func TestActivities_AssessToken_PatternLevelWins(t *testing.T) {
	// A clean factor snapshot scores 0 (LOW), but a liquidity drain in
	// the history must still surface as HIGH.
	factors := risk.Factors{
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: true,
		HolderCount:            500,
		Top10HoldingsPct:       10,
		DevHoldingsPct:         1,
		LiquidityLocked:        true,
		LiquidityUSD:           100000,
	}
	history := []risk.TransactionRecord{
		{Kind: risk.KindLPRemove, Amount: 80},
	}

	store := &MockStore{}
	store.On("CreateAssessment", mock.Anything, mock.MatchedBy(func(p db.CreateAssessmentParams) bool {
		return p.Score == 0 && p.RiskLevel == "HIGH" && p.Suspicious
	})).Return(&db.Assessment{
		ID:         7,
		Mint:       testMintAddr,
		Score:      0,
		RiskLevel:  "HIGH",
		Suspicious: true,
		Patterns:   []string{risk.PatternLiquidityRemoval},
		Confidence: 0.3,
	}, nil)

	activities := newTestActivities(store, nil, nil, nil, nil)

	result, err := activities.AssessToken(context.Background(), AssessTokenInput{
		Mint:    testMintAddr,
		Factors: factors,
		History: history,
	})
	require.NoError(t, err)
	assert.True(t, result.Suspicious)
	assert.Equal(t, "HIGH", result.RiskLevel)
	store.AssertExpectations(t)
}

func TestActivities_GenerateCommentary(t *testing.T) {
	narrator := &MockNarrator{}
	narrator.On("Narrate", mock.Anything, mock.MatchedBy(func(in ai.Input) bool {
		return in.Mint == testMintAddr && in.Level == risk.LevelHigh
	})).Return("This token shows classic rug signatures.", nil)

	store := &MockStore{}
	store.On("UpdateAssessmentCommentary", mock.Anything, int64(42), "This token shows classic rug signatures.").Return(nil)

	activities := newTestActivities(store, nil, nil, narrator, nil)

	result, err := activities.GenerateCommentary(context.Background(), GenerateCommentaryInput{
		AssessmentID: 42,
		Mint:         testMintAddr,
		Symbol:       "TEST",
		Score:        85,
		RiskLevel:    "HIGH",
		Patterns:     []string{risk.PatternDevSells},
	})
	require.NoError(t, err)
	assert.Equal(t, "This token shows classic rug signatures.", result.Commentary)
	assert.False(t, result.Fallback)
	store.AssertExpectations(t)
	narrator.AssertExpectations(t)
}

func TestActivities_GenerateCommentary_NarratorFailureUsesFallback(t *testing.T) {
	narrator := &MockNarrator{}
	narrator.On("Narrate", mock.Anything, mock.Anything).Return("", errors.New("api timeout"))

	store := &MockStore{}
	store.On("UpdateAssessmentCommentary", mock.Anything, int64(42), mock.AnythingOfType("string")).Return(nil)

	activities := newTestActivities(store, nil, nil, narrator, nil)

	result, err := activities.GenerateCommentary(context.Background(), GenerateCommentaryInput{
		AssessmentID: 42,
		Mint:         testMintAddr,
		Symbol:       "TEST",
		Score:        85,
		RiskLevel:    "HIGH",
	})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.NotEmpty(t, result.Commentary)
}

func TestActivities_GenerateCommentary_NilNarrator(t *testing.T) {
	store := &MockStore{}
	store.On("UpdateAssessmentCommentary", mock.Anything, int64(1), mock.AnythingOfType("string")).Return(nil)

	activities := newTestActivities(store, nil, nil, nil, nil)

	result, err := activities.GenerateCommentary(context.Background(), GenerateCommentaryInput{
		AssessmentID: 1,
		Mint:         testMintAddr,
		Score:        85,
		RiskLevel:    "HIGH",
	})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.NotEmpty(t, result.Commentary)
}

func TestActivities_PublishAlert(t *testing.T) {
	store := &MockStore{}
	store.On("CreateAlert", mock.Anything, mock.MatchedBy(func(p db.CreateAlertParams) bool {
		return p.Mint == testMintAddr && p.RiskLevel == "HIGH" && p.Message != ""
	})).Return(&db.Alert{
		ID:        9,
		Mint:      testMintAddr,
		Score:     85,
		RiskLevel: "HIGH",
		CreatedAt: time.Now(),
	}, nil)

	publisher := natspkg.NewMockPublisher()

	activities := newTestActivities(store, nil, publisher, nil, nil)

	result, err := activities.PublishAlert(context.Background(), PublishAlertInput{
		Mint:       testMintAddr,
		Symbol:     "TEST",
		Score:      85,
		RiskLevel:  "HIGH",
		Suspicious: true,
		Patterns:   []string{risk.PatternDevSells},
		Confidence: 0.9,
		Commentary: "classic rug setup",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.AlertID)
	assert.Contains(t, result.Message, "TEST")

	require.Equal(t, 1, publisher.GetPublishedEventCount())
	event := publisher.GetPublishedEvents()[0]
	assert.Equal(t, testMintAddr, event.Mint)
	assert.Equal(t, "HIGH", event.RiskLevel)
	assert.Equal(t, "classic rug setup", event.Commentary)
	store.AssertExpectations(t)
}

func TestActivities_PublishAlert_NATSFailureDoesNotFail(t *testing.T) {
	store := &MockStore{}
	store.On("CreateAlert", mock.Anything, mock.Anything).Return(&db.Alert{
		ID:        10,
		Mint:      testMintAddr,
		CreatedAt: time.Now(),
	}, nil)

	publisher := natspkg.NewMockPublisher()
	publisher.SetPublishError(errors.New("nats unavailable"))

	activities := newTestActivities(store, nil, publisher, nil, nil)

	result, err := activities.PublishAlert(context.Background(), PublishAlertInput{
		Mint:      testMintAddr,
		Score:     85,
		RiskLevel: "HIGH",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.AlertID)
}

func TestActivities_PostAlertTweet(t *testing.T) {
	poster := &MockPoster{}
	poster.On("Post", mock.Anything, mock.MatchedBy(func(text string) bool {
		return len(text) <= 280 && text != ""
	})).Return(nil)

	store := &MockStore{}
	store.On("MarkAlertTweeted", mock.Anything, int64(9)).Return(nil)

	activities := newTestActivities(store, nil, nil, nil, poster)

	result, err := activities.PostAlertTweet(context.Background(), PostAlertTweetInput{
		AlertID:   9,
		Mint:      testMintAddr,
		Symbol:    "TEST",
		Score:     85,
		RiskLevel: "HIGH",
		Patterns:  []string{risk.PatternDevSells},
	})
	require.NoError(t, err)
	assert.True(t, result.Posted)
	store.AssertExpectations(t)
	poster.AssertExpectations(t)
}

func TestActivities_PostAlertTweet_BudgetExhaustedIsSkip(t *testing.T) {
	poster := &MockPoster{}
	poster.On("Post", mock.Anything, mock.Anything).Return(twitter.ErrBudgetExhausted)

	activities := newTestActivities(&MockStore{}, nil, nil, nil, poster)

	result, err := activities.PostAlertTweet(context.Background(), PostAlertTweetInput{
		AlertID:   9,
		Mint:      testMintAddr,
		Score:     85,
		RiskLevel: "HIGH",
	})
	require.NoError(t, err)
	assert.False(t, result.Posted)
	assert.Equal(t, "budget exhausted", result.Skipped)
}

func TestActivities_PostAlertTweet_NilPoster(t *testing.T) {
	activities := newTestActivities(&MockStore{}, nil, nil, nil, nil)

	result, err := activities.PostAlertTweet(context.Background(), PostAlertTweetInput{
		AlertID: 9,
		Mint:    testMintAddr,
	})
	require.NoError(t, err)
	assert.False(t, result.Posted)
	assert.Equal(t, "poster not configured", result.Skipped)
}

func TestActivities_PostAlertTweet_APIError(t *testing.T) {
	poster := &MockPoster{}
	poster.On("Post", mock.Anything, mock.Anything).Return(errors.New("twitter 500"))

	activities := newTestActivities(&MockStore{}, nil, nil, nil, poster)

	_, err := activities.PostAlertTweet(context.Background(), PostAlertTweetInput{
		AlertID:   9,
		Mint:      testMintAddr,
		Score:     85,
		RiskLevel: "HIGH",
	})
	assert.Error(t, err)
}

func TestActivities_UpdatePollTime(t *testing.T) {
	store := &MockStore{}
	store.On("UpdateTokenPollTime", mock.Anything, testMintAddr, mock.AnythingOfType("time.Time")).
		Return(&db.Token{Mint: testMintAddr}, nil)

	activities := newTestActivities(store, nil, nil, nil, nil)

	err := activities.UpdatePollTime(context.Background(), UpdatePollTimeInput{
		Mint:     testMintAddr,
		PollTime: time.Now(),
	})
	require.NoError(t, err)
	store.AssertExpectations(t)
}
