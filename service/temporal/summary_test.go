package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/ai"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
)

// MockSummarizer narrates and summarizes.
type MockSummarizer struct {
	MockNarrator
}

func (m *MockSummarizer) Summarize(ctx context.Context, input ai.SummaryInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func summaryStats() *db.Stats {
	return &db.Stats{
		TotalTokens:      10,
		ActiveTokens:     8,
		TotalAssessments: 120,
		TotalAlerts:      3,
		HighRiskTokens:   2,
		AvgScore24h:      41.5,
	}
}

func TestActivities_BuildDailySummary_Fallback(t *testing.T) {
	store := &MockStore{}
	store.On("GetStats", mock.Anything).Return(summaryStats(), nil)
	store.On("ListAlerts", mock.Anything, mock.Anything).Return([]*db.Alert{
		{Mint: testMintAddr, Score: 85, RiskLevel: "HIGH", CreatedAt: time.Now().UTC()},
	}, nil)

	// No narrator configured: the template fallback carries the summary.
	activities := newTestActivities(store, nil, nil, nil, nil)

	result, err := activities.BuildDailySummary(context.Background(), BuildDailySummaryInput{
		Date: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AlertCount)
	assert.Contains(t, result.Summary, "10 tokens monitored")
	assert.Contains(t, result.Summary, "2 high risk")
	store.AssertExpectations(t)
}

func TestActivities_BuildDailySummary_ExcludesOlderAlerts(t *testing.T) {
	store := &MockStore{}
	store.On("GetStats", mock.Anything).Return(summaryStats(), nil)
	store.On("ListAlerts", mock.Anything, mock.Anything).Return([]*db.Alert{
		{Mint: testMintAddr, Score: 85, RiskLevel: "HIGH", CreatedAt: time.Now().UTC()},
		{Mint: testMintAddr, Score: 72, RiskLevel: "HIGH", CreatedAt: time.Now().UTC().Add(-48 * time.Hour)},
	}, nil)

	activities := newTestActivities(store, nil, nil, nil, nil)

	result, err := activities.BuildDailySummary(context.Background(), BuildDailySummaryInput{
		Date: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AlertCount)
}

func TestActivities_BuildDailySummary_UsesSummarizer(t *testing.T) {
	store := &MockStore{}
	store.On("GetStats", mock.Anything).Return(summaryStats(), nil)
	store.On("ListAlerts", mock.Anything, mock.Anything).Return([]*db.Alert{}, nil)

	narrator := &MockSummarizer{}
	narrator.On("Summarize", mock.Anything, mock.Anything).Return("quiet day on the trenches", nil)

	activities := newTestActivities(store, nil, nil, narrator, nil)

	result, err := activities.BuildDailySummary(context.Background(), BuildDailySummaryInput{
		Date: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, "quiet day on the trenches", result.Summary)
	narrator.AssertExpectations(t)
}

func TestActivities_BuildDailySummary_SummarizerFailureFallsBack(t *testing.T) {
	store := &MockStore{}
	store.On("GetStats", mock.Anything).Return(summaryStats(), nil)
	store.On("ListAlerts", mock.Anything, mock.Anything).Return([]*db.Alert{}, nil)

	narrator := &MockSummarizer{}
	narrator.On("Summarize", mock.Anything, mock.Anything).Return("", assert.AnError)

	activities := newTestActivities(store, nil, nil, narrator, nil)

	result, err := activities.BuildDailySummary(context.Background(), BuildDailySummaryInput{
		Date: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "Daily recap")
}

func TestActivities_PostDailySummary_NoPoster(t *testing.T) {
	activities := newTestActivities(&MockStore{}, nil, nil, nil, nil)

	result, err := activities.PostDailySummary(context.Background(), PostDailySummaryInput{
		Summary: "recap text",
	})
	require.NoError(t, err)
	assert.False(t, result.Posted)
}

func TestActivities_PostDailySummary_PostFailureIsNotFatal(t *testing.T) {
	poster := &MockPoster{}
	poster.On("Post", mock.Anything, "recap text").Return(assert.AnError)

	activities := newTestActivities(&MockStore{}, nil, nil, nil, poster)

	result, err := activities.PostDailySummary(context.Background(), PostDailySummaryInput{
		Summary: "recap text",
	})
	require.NoError(t, err)
	assert.False(t, result.Posted)
	poster.AssertExpectations(t)
}

func TestActivities_PruneAssessments(t *testing.T) {
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)

	store := &MockStore{}
	store.On("DeleteAssessmentsOlderThan", mock.Anything, cutoff).Return(nil)

	activities := newTestActivities(store, nil, nil, nil, nil)

	err := activities.PruneAssessments(context.Background(), PruneAssessmentsInput{Before: cutoff})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestDailySummaryWorkflow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	activities := &Activities{}
	env.RegisterActivity(activities.BuildDailySummary)
	env.RegisterActivity(activities.PostDailySummary)
	env.RegisterActivity(activities.PruneAssessments)

	env.OnActivity(activities.BuildDailySummary, mock.Anything, mock.Anything).
		Return(&BuildDailySummaryResult{Summary: "recap text", AlertCount: 2}, nil)
	env.OnActivity(activities.PostDailySummary, mock.Anything, PostDailySummaryInput{Summary: "recap text"}).
		Return(&PostDailySummaryResult{Posted: true}, nil)
	env.OnActivity(activities.PruneAssessments, mock.Anything, mock.Anything).
		Return(nil)

	env.ExecuteWorkflow(DailySummaryWorkflow)

	assert.NoError(t, env.GetWorkflowError())

	var result BuildDailySummaryResult
	assert.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, "recap text", result.Summary)
	assert.Equal(t, 2, result.AlertCount)
}
