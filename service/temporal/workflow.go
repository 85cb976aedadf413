package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// AnalyzeTokenWorkflow is the Temporal workflow that analyzes a watched
// token. It is triggered by a per-token Temporal schedule at the
// token's configured poll interval.
//
// The workflow performs these steps:
//  1. Load the token row (LoadToken activity)
//  2. Fetch the on-chain factor snapshot (FetchRiskFactors activity)
//  3. Fetch and classify recent transactions (FetchTokenActivity activity)
//  4. Score + detect patterns and persist the assessment (AssessToken activity)
//  5. If the score crosses the threshold or the verdict is suspicious:
//     generate commentary, publish an alert, and tweet it
//  6. Record the poll time
//
// Commentary and tweet failures are warnings; the assessment is already
// persisted by the time they run.
func AnalyzeTokenWorkflow(ctx workflow.Context, input AnalyzeTokenInput) (*AnalyzeTokenResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("AnalyzeTokenWorkflow started", "mint", input.Mint)

	result := &AnalyzeTokenResult{
		Mint:       input.Mint,
		AnalyzedAt: workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 300 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Step 1: Load the token row
	var token *LoadTokenResult
	err := workflow.ExecuteActivity(ctx, a.LoadToken, LoadTokenInput{Mint: input.Mint}).Get(ctx, &token)
	if err != nil {
		errMsg := fmt.Sprintf("failed to load token: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to load token: %w", err)
	}

	if token.Status != "active" {
		logger.Info("token is not active, skipping analysis",
			"mint", input.Mint,
			"status", token.Status,
		)
		return result, nil
	}

	// Step 2: Fetch the on-chain factor snapshot
	var factorsResult *FetchRiskFactorsResult
	err = workflow.ExecuteActivity(ctx, a.FetchRiskFactors, FetchRiskFactorsInput{
		Mint:            token.Mint,
		Creator:         token.Creator,
		LiquidityUSD:    token.LiquidityUSD,
		LiquidityLocked: token.LiquidityLocked,
	}).Get(ctx, &factorsResult)
	if err != nil {
		logger.Error("failed to fetch risk factors", "mint", input.Mint, "error", err)
		errMsg := fmt.Sprintf("failed to fetch risk factors: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to fetch risk factors: %w", err)
	}

	// Step 3: Fetch and classify recent transactions
	var activityResult *FetchTokenActivityResult
	err = workflow.ExecuteActivity(ctx, a.FetchTokenActivity, FetchTokenActivityInput{
		Mint:      token.Mint,
		Creator:   token.Creator,
		PoolVault: token.PoolVault,
		Limit:     100,
	}).Get(ctx, &activityResult)
	if err != nil {
		logger.Error("failed to fetch token activity", "mint", input.Mint, "error", err)
		errMsg := fmt.Sprintf("failed to fetch token activity: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to fetch token activity: %w", err)
	}

	logger.Info("fetched token state",
		"mint", input.Mint,
		"holder_count", factorsResult.Factors.HolderCount,
		"transaction_count", len(activityResult.History),
	)

	// Step 4: Score, detect patterns, persist the assessment
	var assessment *AssessTokenResult
	err = workflow.ExecuteActivity(ctx, a.AssessToken, AssessTokenInput{
		Mint:    token.Mint,
		Factors: factorsResult.Factors,
		History: activityResult.History,
	}).Get(ctx, &assessment)
	if err != nil {
		logger.Error("failed to assess token", "mint", input.Mint, "error", err)
		errMsg := fmt.Sprintf("failed to assess token: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to assess token: %w", err)
	}

	result.Score = assessment.Score
	result.RiskLevel = assessment.RiskLevel
	result.Suspicious = assessment.Suspicious
	result.Patterns = assessment.Patterns

	logger.Info("assessed token",
		"mint", input.Mint,
		"score", assessment.Score,
		"risk_level", assessment.RiskLevel,
		"suspicious", assessment.Suspicious,
	)

	// Step 5: Alert pipeline. Fires when the score crosses the
	// threshold or the pattern verdict is suspicious.
	if assessment.Score < input.RiskThreshold && !assessment.Suspicious {
		logger.Info("token below alert threshold",
			"mint", input.Mint,
			"score", assessment.Score,
			"threshold", input.RiskThreshold,
		)
		return result, finishAnalysis(ctx, input.Mint)
	}

	// Commentary failures never block the alert.
	var commentary *GenerateCommentaryResult
	err = workflow.ExecuteActivity(ctx, a.GenerateCommentary, GenerateCommentaryInput{
		AssessmentID: assessment.AssessmentID,
		Mint:         token.Mint,
		Name:         token.Name,
		Symbol:       token.Symbol,
		Score:        assessment.Score,
		RiskLevel:    assessment.RiskLevel,
		Suspicious:   assessment.Suspicious,
		Patterns:     assessment.Patterns,
		Breakdown:    assessment.Breakdown,
	}).Get(ctx, &commentary)
	if err != nil {
		logger.Warn("failed to generate commentary", "mint", input.Mint, "error", err)
		commentary = &GenerateCommentaryResult{}
	}

	var alert *PublishAlertResult
	err = workflow.ExecuteActivity(ctx, a.PublishAlert, PublishAlertInput{
		Mint:       token.Mint,
		Symbol:     token.Symbol,
		Score:      assessment.Score,
		RiskLevel:  assessment.RiskLevel,
		Suspicious: assessment.Suspicious,
		Patterns:   assessment.Patterns,
		Confidence: assessment.Confidence,
		Commentary: commentary.Commentary,
	}).Get(ctx, &alert)
	if err != nil {
		logger.Error("failed to publish alert", "mint", input.Mint, "error", err)
		errMsg := fmt.Sprintf("failed to publish alert: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to publish alert: %w", err)
	}
	result.AlertPublished = true

	// Tweet failures are warnings; the alert is stored and published.
	var tweet *PostAlertTweetResult
	err = workflow.ExecuteActivity(ctx, a.PostAlertTweet, PostAlertTweetInput{
		AlertID:   alert.AlertID,
		Mint:      token.Mint,
		Symbol:    token.Symbol,
		Score:     assessment.Score,
		RiskLevel: assessment.RiskLevel,
		Patterns:  assessment.Patterns,
	}).Get(ctx, &tweet)
	if err != nil {
		logger.Warn("failed to post alert tweet", "mint", input.Mint, "error", err)
	} else {
		result.Tweeted = tweet.Posted
		if tweet.Skipped != "" {
			logger.Info("alert tweet skipped", "mint", input.Mint, "reason", tweet.Skipped)
		}
	}

	logger.Info("AnalyzeTokenWorkflow completed",
		"mint", input.Mint,
		"score", result.Score,
		"risk_level", result.RiskLevel,
		"alert_published", result.AlertPublished,
		"tweeted", result.Tweeted,
	)

	return result, finishAnalysis(ctx, input.Mint)
}

// finishAnalysis records the poll time. A failure here is logged but
// does not fail the workflow; the assessment already happened.
func finishAnalysis(ctx workflow.Context, mint string) error {
	logger := workflow.GetLogger(ctx)
	err := workflow.ExecuteActivity(ctx, a.UpdatePollTime, UpdatePollTimeInput{
		Mint:     mint,
		PollTime: workflow.Now(ctx),
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("failed to update token poll time", "mint", mint, "error", err)
	}
	return nil
}
