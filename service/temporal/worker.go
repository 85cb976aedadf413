package temporal

import (
	"fmt"
	"log/slog"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/metrics"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// WorkerConfig contains configuration for the Temporal worker.
type WorkerConfig struct {
	// Temporal connection settings
	TemporalHost      string
	TemporalNamespace string
	TaskQueue         string

	// Dependencies
	Store     StoreInterface
	Inspector InspectorInterface
	Publisher PublisherInterface
	Narrator  NarratorInterface // Optional: nil disables AI commentary
	Poster    PosterInterface   // Optional: nil disables tweeting
	Metrics   *metrics.Metrics  // Optional: if nil, no metrics will be recorded
	Logger    *slog.Logger
}

// Worker wraps a Temporal worker and provides lifecycle management.
type Worker struct {
	client client.Client
	worker worker.Worker
	logger *slog.Logger
}

// NewWorker creates and configures a new Temporal worker.
// The worker will process workflows and activities on the configured task queue.
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger.With("component", "temporal_worker")

	logger.Info("creating temporal worker",
		"host", config.TemporalHost,
		"namespace", config.TemporalNamespace,
		"task_queue", config.TaskQueue,
	)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  config.TemporalHost,
		Namespace: config.TemporalNamespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal: %w", err)
	}

	// Create worker
	w := worker.New(c, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     10,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	// Register workflow
	w.RegisterWorkflow(AnalyzeTokenWorkflow)
	logger.Info("registered workflow", "name", "AnalyzeTokenWorkflow")
	w.RegisterWorkflow(DailySummaryWorkflow)
	logger.Info("registered workflow", "name", "DailySummaryWorkflow")

	// Create activities instance with dependencies
	activities := NewActivities(
		config.Store,
		config.Inspector,
		config.Publisher,
		config.Narrator,
		config.Poster,
		config.Metrics,
		logger,
	)

	// Register activities
	// Activities are registered by name, matching the ExecuteActivity calls in the workflow
	w.RegisterActivity(activities.LoadToken)
	w.RegisterActivity(activities.FetchRiskFactors)
	w.RegisterActivity(activities.FetchTokenActivity)
	w.RegisterActivity(activities.AssessToken)
	w.RegisterActivity(activities.GenerateCommentary)
	w.RegisterActivity(activities.PublishAlert)
	w.RegisterActivity(activities.PostAlertTweet)
	w.RegisterActivity(activities.UpdatePollTime)
	w.RegisterActivity(activities.BuildDailySummary)
	w.RegisterActivity(activities.PostDailySummary)
	w.RegisterActivity(activities.PruneAssessments)

	logger.Info("registered activities",
		"activities", []string{
			"LoadToken", "FetchRiskFactors", "FetchTokenActivity", "AssessToken",
			"GenerateCommentary", "PublishAlert", "PostAlertTweet", "UpdatePollTime",
		},
	)

	return &Worker{
		client: c,
		worker: w,
		logger: logger,
	}, nil
}

// Start begins processing workflows and activities.
// This method blocks until Stop is called or an error occurs.
func (w *Worker) Start() error {
	w.logger.Info("starting temporal worker")
	err := w.worker.Run(worker.InterruptCh())
	if err != nil {
		w.logger.Error("worker stopped with error", "error", err)
		return fmt.Errorf("worker stopped with error: %w", err)
	}
	w.logger.Info("worker stopped gracefully")
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping temporal worker")
	w.worker.Stop()
	w.client.Close()
	w.logger.Info("temporal worker stopped")
}
