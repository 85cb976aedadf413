package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/ai"
	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// BuildDailySummaryInput contains the input for building a daily summary.
type BuildDailySummaryInput struct {
	Date time.Time `json:"date"`
}

// BuildDailySummaryResult contains the rendered summary text.
type BuildDailySummaryResult struct {
	Summary    string `json:"summary"`
	AlertCount int    `json:"alert_count"`
}

// PostDailySummaryInput contains the summary to post.
type PostDailySummaryInput struct {
	Summary string `json:"summary"`
}

// PostDailySummaryResult reports whether the summary was posted.
type PostDailySummaryResult struct {
	Posted bool `json:"posted"`
}

// BuildDailySummary collects the day's statistics and alerts and renders
// a recap, via the narrator when it can summarize, with template fallback.
func (a *Activities) BuildDailySummary(ctx context.Context, input BuildDailySummaryInput) (*BuildDailySummaryResult, error) {
	start := time.Now()
	defer func() {
		if a.metrics != nil {
			a.metrics.RecordActivityDuration("BuildDailySummary", "", time.Since(start).Seconds())
		}
	}()

	stats, err := a.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	alerts, err := a.store.ListAlerts(ctx, db.ListAlertsParams{Limit: 50})
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}

	dayStart := input.Date.UTC().Truncate(24 * time.Hour)
	summaryInput := ai.SummaryInput{
		Date:           dayStart,
		TotalTokens:    stats.TotalTokens,
		ActiveTokens:   stats.ActiveTokens,
		HighRiskTokens: stats.HighRiskTokens,
		AvgScore:       stats.AvgScore24h,
	}
	for _, alert := range alerts {
		if alert.CreatedAt.Before(dayStart) {
			continue
		}
		summaryInput.AlertCount++
		if len(summaryInput.Alerts) < 10 {
			summaryInput.Alerts = append(summaryInput.Alerts, ai.SummaryAlert{
				Mint:      alert.Mint,
				Score:     alert.Score,
				RiskLevel: alert.RiskLevel,
			})
		}
	}

	summary := ""
	if summarizer, ok := a.narrator.(ai.Summarizer); ok && summarizer != nil {
		summary, err = summarizer.Summarize(ctx, summaryInput)
		if err != nil {
			a.logger.WarnContext(ctx, "daily summary generation failed, using fallback",
				"error", err,
			)
			summary = ""
		}
	}
	if summary == "" {
		summary = ai.FallbackSummary(summaryInput)
	}

	return &BuildDailySummaryResult{
		Summary:    summary,
		AlertCount: summaryInput.AlertCount,
	}, nil
}

// PostDailySummary posts the recap to social media. A missing poster or
// a post failure is not an error; the summary is still logged.
func (a *Activities) PostDailySummary(ctx context.Context, input PostDailySummaryInput) (*PostDailySummaryResult, error) {
	if a.poster == nil {
		a.logger.InfoContext(ctx, "no poster configured, daily summary not posted",
			"summary", input.Summary,
		)
		return &PostDailySummaryResult{Posted: false}, nil
	}

	if err := a.poster.Post(ctx, input.Summary); err != nil {
		a.logger.WarnContext(ctx, "failed to post daily summary",
			"error", err,
		)
		return &PostDailySummaryResult{Posted: false}, nil
	}

	if a.metrics != nil {
		a.metrics.RecordTweet("ok")
	}
	return &PostDailySummaryResult{Posted: true}, nil
}

// PruneAssessmentsInput contains the retention cutoff for old assessments.
type PruneAssessmentsInput struct {
	Before time.Time `json:"before"`
}

// PruneAssessments removes assessments older than the cutoff. Alerts are
// kept; they are the durable record of what fired.
func (a *Activities) PruneAssessments(ctx context.Context, input PruneAssessmentsInput) error {
	if err := a.store.DeleteAssessmentsOlderThan(ctx, input.Before); err != nil {
		return fmt.Errorf("failed to prune assessments: %w", err)
	}
	a.logger.InfoContext(ctx, "pruned old assessments", "before", input.Before)
	return nil
}

// assessmentRetention bounds the audit trail kept per token.
const assessmentRetention = 30 * 24 * time.Hour

// DailySummaryWorkflow builds and posts a recap of the day's monitoring
// activity. It is triggered by a daily cron schedule.
func DailySummaryWorkflow(ctx workflow.Context) (*BuildDailySummaryResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("DailySummaryWorkflow started")

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 120 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var summary *BuildDailySummaryResult
	err := workflow.ExecuteActivity(ctx, a.BuildDailySummary, BuildDailySummaryInput{
		Date: workflow.Now(ctx),
	}).Get(ctx, &summary)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily summary: %w", err)
	}

	var posted *PostDailySummaryResult
	err = workflow.ExecuteActivity(ctx, a.PostDailySummary, PostDailySummaryInput{
		Summary: summary.Summary,
	}).Get(ctx, &posted)
	if err != nil {
		logger.Warn("failed to post daily summary", "error", err)
	}

	err = workflow.ExecuteActivity(ctx, a.PruneAssessments, PruneAssessmentsInput{
		Before: workflow.Now(ctx).Add(-assessmentRetention),
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("failed to prune old assessments", "error", err)
	}

	logger.Info("DailySummaryWorkflow completed",
		"alert_count", summary.AlertCount,
		"posted", posted != nil && posted.Posted,
	)
	return summary, nil
}
