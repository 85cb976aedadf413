package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/temporal"
	"github.com/urfave/cli/v2"
	"go.temporal.io/sdk/client"
)

const schedulePrefix = "analyze-token-"

// getTemporalClient dials the Temporal server from the global flags.
func getTemporalClient(c *cli.Context) (client.Client, error) {
	temporalClient, err := client.Dial(client.Options{
		HostPort:  c.String("temporal-host"),
		Namespace: c.String("temporal-namespace"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}
	return temporalClient, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func listSchedulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-schedules",
		Usage: "List token analysis schedules",
		Action: func(c *cli.Context) error {
			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			iter, err := temporalClient.ScheduleClient().List(c.Context, client.ScheduleListOptions{})
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}

			type scheduleRow struct {
				ID   string `json:"id"`
				Mint string `json:"mint"`
			}
			var rows []scheduleRow
			for iter.HasNext() {
				entry, err := iter.Next()
				if err != nil {
					return fmt.Errorf("failed to iterate schedules: %w", err)
				}
				if !strings.HasPrefix(entry.ID, schedulePrefix) {
					continue
				}
				rows = append(rows, scheduleRow{
					ID:   entry.ID,
					Mint: strings.TrimPrefix(entry.ID, schedulePrefix),
				})
			}

			if c.Bool("json") {
				return outputJSON(rows)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "SCHEDULE ID\tMINT")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\n", r.ID, r.Mint)
			}
			return w.Flush()
		},
	}
}

func describeScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe-schedule",
		Usage:     "Show details of a token's analysis schedule",
		ArgsUsage: "MINT",
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			handle := temporalClient.ScheduleClient().GetHandle(c.Context, schedulePrefix+mint)
			desc, err := handle.Describe(c.Context)
			if err != nil {
				return fmt.Errorf("failed to describe schedule: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(desc)
			}

			fmt.Printf("Schedule ID:   %s\n", schedulePrefix+mint)
			fmt.Printf("Paused:        %v\n", desc.Schedule.State.Paused)
			if desc.Schedule.State.Paused && desc.Schedule.State.Note != "" {
				fmt.Printf("Note:          %s\n", desc.Schedule.State.Note)
			}
			for _, interval := range desc.Schedule.Spec.Intervals {
				fmt.Printf("Interval:      %s\n", interval.Every)
			}
			fmt.Printf("Total actions: %d\n", desc.Info.NumActions)
			if len(desc.Info.RecentActions) > 0 {
				last := desc.Info.RecentActions[len(desc.Info.RecentActions)-1]
				fmt.Printf("Last run:      %s\n", last.ActualTime.Format(time.RFC3339))
			}
			if len(desc.Info.NextActionTimes) > 0 {
				fmt.Printf("Next run:      %s\n", desc.Info.NextActionTimes[0].Format(time.RFC3339))
			}
			return nil
		},
	}
}

func pauseScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "pause-schedule",
		Usage:     "Pause a token's analysis schedule",
		ArgsUsage: "MINT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "note",
				Value: "paused via soly CLI",
				Usage: "Note attached to the pause",
			},
		},
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			handle := temporalClient.ScheduleClient().GetHandle(c.Context, schedulePrefix+mint)
			if err := handle.Pause(c.Context, client.SchedulePauseOptions{Note: c.String("note")}); err != nil {
				return fmt.Errorf("failed to pause schedule: %w", err)
			}

			fmt.Printf("Paused analysis schedule for %s\n", mint)
			return nil
		},
	}
}

func resumeScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "resume-schedule",
		Usage:     "Resume a paused analysis schedule",
		ArgsUsage: "MINT",
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			handle := temporalClient.ScheduleClient().GetHandle(c.Context, schedulePrefix+mint)
			if err := handle.Unpause(c.Context, client.ScheduleUnpauseOptions{Note: "resumed via soly CLI"}); err != nil {
				return fmt.Errorf("failed to resume schedule: %w", err)
			}

			fmt.Printf("Resumed analysis schedule for %s\n", mint)
			return nil
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-schedule",
		Usage:     "Delete a token's analysis schedule",
		ArgsUsage: "MINT",
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			handle := temporalClient.ScheduleClient().GetHandle(c.Context, schedulePrefix+mint)
			if err := handle.Delete(c.Context); err != nil {
				return fmt.Errorf("failed to delete schedule: %w", err)
			}

			fmt.Printf("Deleted analysis schedule for %s\n", mint)
			return nil
		},
	}
}

func createScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:      "create-schedule",
		Usage:     "Create an analysis schedule for a token",
		ArgsUsage: "MINT",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Value: 30 * time.Second,
				Usage: "Analysis interval",
			},
			&cli.Float64Flag{
				Name:  "risk-threshold",
				Value: 70,
				Usage: "Score at or above which alerts are published",
			},
			&cli.StringFlag{
				Name:  "task-queue",
				Value: getEnvOrDefault("TEMPORAL_TASK_QUEUE", "soly-token-analysis"),
				Usage: "Temporal task queue for analysis workflows",
			},
		},
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			_, err = temporalClient.ScheduleClient().Create(c.Context, client.ScheduleOptions{
				ID: schedulePrefix + mint,
				Spec: client.ScheduleSpec{
					Intervals: []client.ScheduleIntervalSpec{
						{Every: c.Duration("interval")},
					},
				},
				Action: &client.ScheduleWorkflowAction{
					ID:        schedulePrefix + mint,
					Workflow:  "AnalyzeTokenWorkflow",
					TaskQueue: c.String("task-queue"),
					Args: []interface{}{temporal.AnalyzeTokenInput{
						Mint:          mint,
						RiskThreshold: c.Float64("risk-threshold"),
					}},
				},
				Memo: map[string]interface{}{
					"mint":           mint,
					"risk_threshold": c.Float64("risk-threshold"),
					"created_by":     "soly-cli",
				},
			})
			if err != nil {
				return fmt.Errorf("failed to create schedule: %w", err)
			}

			fmt.Printf("Created analysis schedule for %s (every %s)\n", mint, c.Duration("interval"))
			return nil
		},
	}
}

// reconcileCommand compares active tokens in the database against the
// analysis schedules in Temporal and reports the drift. With --fix it
// creates missing schedules and deletes orphaned ones.
func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Reconcile database tokens against Temporal schedules",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "fix",
				Usage: "Create missing schedules and delete orphaned ones",
			},
			&cli.Float64Flag{
				Name:  "risk-threshold",
				Value: 70,
				Usage: "Risk threshold used for newly created schedules",
			},
			&cli.StringFlag{
				Name:  "task-queue",
				Value: getEnvOrDefault("TEMPORAL_TASK_QUEUE", "soly-token-analysis"),
				Usage: "Temporal task queue for analysis workflows",
			},
		},
		Action: func(c *cli.Context) error {
			store, cleanup, err := getStore(c)
			if err != nil {
				return err
			}
			defer cleanup()

			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			tokens, err := store.ListActiveTokens(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list active tokens: %w", err)
			}

			wanted := make(map[string]time.Duration, len(tokens))
			for _, t := range tokens {
				wanted[t.Mint] = t.PollInterval
			}

			scheduled := make(map[string]bool)
			iter, err := temporalClient.ScheduleClient().List(c.Context, client.ScheduleListOptions{})
			if err != nil {
				return fmt.Errorf("failed to list schedules: %w", err)
			}
			for iter.HasNext() {
				entry, err := iter.Next()
				if err != nil {
					return fmt.Errorf("failed to iterate schedules: %w", err)
				}
				if strings.HasPrefix(entry.ID, schedulePrefix) {
					scheduled[strings.TrimPrefix(entry.ID, schedulePrefix)] = true
				}
			}

			var missing, orphaned []string
			for mint := range wanted {
				if !scheduled[mint] {
					missing = append(missing, mint)
				}
			}
			for mint := range scheduled {
				if _, ok := wanted[mint]; !ok {
					orphaned = append(orphaned, mint)
				}
			}

			fmt.Printf("Active tokens: %d, schedules: %d\n", len(wanted), len(scheduled))
			fmt.Printf("Missing schedules: %d\n", len(missing))
			for _, mint := range missing {
				fmt.Printf("  %s\n", mint)
			}
			fmt.Printf("Orphaned schedules: %d\n", len(orphaned))
			for _, mint := range orphaned {
				fmt.Printf("  %s%s\n", schedulePrefix, mint)
			}

			if !c.Bool("fix") {
				if len(missing)+len(orphaned) > 0 {
					fmt.Println("Run with --fix to repair")
				}
				return nil
			}

			for _, mint := range missing {
				_, err := temporalClient.ScheduleClient().Create(c.Context, client.ScheduleOptions{
					ID: schedulePrefix + mint,
					Spec: client.ScheduleSpec{
						Intervals: []client.ScheduleIntervalSpec{
							{Every: wanted[mint]},
						},
					},
					Action: &client.ScheduleWorkflowAction{
						ID:        schedulePrefix + mint,
						Workflow:  "AnalyzeTokenWorkflow",
						TaskQueue: c.String("task-queue"),
						Args: []interface{}{temporal.AnalyzeTokenInput{
							Mint:          mint,
							RiskThreshold: c.Float64("risk-threshold"),
						}},
					},
				})
				if err != nil {
					return fmt.Errorf("failed to create schedule for %s: %w", mint, err)
				}
				fmt.Printf("Created schedule for %s\n", mint)
			}

			for _, mint := range orphaned {
				handle := temporalClient.ScheduleClient().GetHandle(c.Context, schedulePrefix+mint)
				if err := handle.Delete(c.Context); err != nil {
					return fmt.Errorf("failed to delete schedule for %s: %w", mint, err)
				}
				fmt.Printf("Deleted orphaned schedule %s%s\n", schedulePrefix, mint)
			}

			return nil
		},
	}
}
