package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
)

// Client is a production implementation of Scheduler that talks to Temporal.
type Client struct {
	client    client.Client
	taskQueue string
	logger    *slog.Logger
}

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// CreateTokenSchedule creates a new Temporal schedule for analyzing a token.
func (c *Client) CreateTokenSchedule(ctx context.Context, mint string, riskThreshold float64, interval time.Duration) error {
	id := scheduleID(mint)

	c.logger.Debug("creating token schedule",
		"mint", mint,
		"schedule_id", id,
		"interval", interval,
	)

	scheduleSpec := client.ScheduleSpec{
		Intervals: []client.ScheduleIntervalSpec{
			{
				Every: interval,
			},
		},
	}

	// This will execute the AnalyzeTokenWorkflow on each trigger.
	workflowAction := client.ScheduleWorkflowAction{
		ID:        "analyze-token-" + mint,
		Workflow:  "AnalyzeTokenWorkflow",
		TaskQueue: c.taskQueue,
		Args: []interface{}{AnalyzeTokenInput{
			Mint:          mint,
			RiskThreshold: riskThreshold,
		}},
	}

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID:     id,
		Spec:   scheduleSpec,
		Action: &workflowAction,
		Memo: map[string]interface{}{
			"mint":           mint,
			"risk_threshold": riskThreshold,
			"created_by":     "soly",
		},
	})

	if err != nil {
		c.logger.Error("failed to create schedule",
			"mint", mint,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", id, err)
	}

	c.logger.Info("token schedule created",
		"mint", mint,
		"schedule_id", id,
		"interval", interval,
	)

	return nil
}

// UpsertTokenSchedule creates or updates a Temporal schedule for analyzing a token.
// If the schedule already exists, it updates the analysis interval. Otherwise,
// it creates a new schedule.
func (c *Client) UpsertTokenSchedule(ctx context.Context, mint string, riskThreshold float64, interval time.Duration) error {
	id := scheduleID(mint)

	c.logger.Debug("upserting token schedule",
		"mint", mint,
		"schedule_id", id,
		"interval", interval,
	)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	desc, err := handle.Describe(ctx)

	if err != nil {
		// Schedule doesn't exist or error getting it - create new one
		c.logger.Debug("schedule not found, creating new one",
			"schedule_id", id,
			"error", err,
		)
		return c.CreateTokenSchedule(ctx, mint, riskThreshold, interval)
	}

	c.logger.Debug("schedule exists, updating interval",
		"schedule_id", id,
		"old_interval", desc.Schedule.Spec.Intervals[0].Every,
		"new_interval", interval,
	)

	err = handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			input.Description.Schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
				{Every: interval},
			}
			return &client.ScheduleUpdate{
				Schedule: &input.Description.Schedule,
			}, nil
		},
	})

	if err != nil {
		c.logger.Error("failed to update schedule",
			"mint", mint,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to update schedule %q: %w", id, err)
	}

	c.logger.Info("token schedule updated",
		"mint", mint,
		"schedule_id", id,
		"interval", interval,
	)

	return nil
}

// DeleteTokenSchedule deletes the Temporal schedule for a token.
func (c *Client) DeleteTokenSchedule(ctx context.Context, mint string) error {
	id := scheduleID(mint)

	c.logger.Debug("deleting token schedule",
		"mint", mint,
		"schedule_id", id,
	)

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if err := handle.Delete(ctx); err != nil {
		c.logger.Error("failed to delete schedule",
			"mint", mint,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete schedule %q: %w", id, err)
	}

	c.logger.Info("token schedule deleted",
		"mint", mint,
		"schedule_id", id,
	)

	return nil
}

// EnsureDailySummarySchedule creates the daily summary cron schedule if
// it does not already exist.
func (c *Client) EnsureDailySummarySchedule(ctx context.Context) error {
	const id = "daily-summary"

	handle := c.client.ScheduleClient().GetHandle(ctx, id)
	if _, err := handle.Describe(ctx); err == nil {
		c.logger.Debug("daily summary schedule already exists", "schedule_id", id)
		return nil
	}

	_, err := c.client.ScheduleClient().Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			CronExpressions: []string{"0 0 * * *"},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        id,
			Workflow:  "DailySummaryWorkflow",
			TaskQueue: c.taskQueue,
			Memo: map[string]interface{}{
				"created_by": "soly",
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create daily summary schedule: %w", err)
	}

	c.logger.Info("daily summary schedule created", "schedule_id", id)
	return nil
}

// SDKClient returns the underlying Temporal SDK client for direct workflow operations.
func (c *Client) SDKClient() client.Client {
	return c.client
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	c.client.Close()
}

// scheduleID generates the schedule ID for a token mint.
func scheduleID(mint string) string {
	return "analyze-token-" + mint
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
