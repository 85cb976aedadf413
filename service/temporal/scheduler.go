package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for token analysis.
// Each watched token gets its own schedule that triggers the
// AnalyzeTokenWorkflow.
type Scheduler interface {
	// CreateTokenSchedule creates a new schedule for analyzing a token.
	// The schedule will trigger the AnalyzeTokenWorkflow on the given interval.
	CreateTokenSchedule(ctx context.Context, mint string, riskThreshold float64, interval time.Duration) error

	// UpsertTokenSchedule creates the schedule if it does not exist and
	// updates the interval if it does.
	UpsertTokenSchedule(ctx context.Context, mint string, riskThreshold float64, interval time.Duration) error

	// DeleteTokenSchedule deletes the schedule for a token.
	// This stops the token from being analyzed.
	DeleteTokenSchedule(ctx context.Context, mint string) error
}
