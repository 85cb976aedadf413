package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Build info, set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "soly",
		Usage:   "Monitor newly launched Solana tokens for rug risk",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server host:port",
				Value:   "localhost:7233",
				EnvVars: []string{"TEMPORAL_HOST"},
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				Value:   "default",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "Soly HTTP server URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"SERVER_URL"},
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL",
				Value:   "nats://localhost:4222",
				EnvVars: []string{"NATS_URL"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "db",
				Usage: "Inspect the token database directly",
				Subcommands: []*cli.Command{
					listTokensCommand(),
					getTokenCommand(),
					listAssessmentsCommand(),
					listAlertsDBCommand(),
					setTokenStatusCommand(),
					statsCommand(),
				},
			},
			{
				Name:  "temporal",
				Usage: "Manage Temporal analysis schedules",
				Subcommands: []*cli.Command{
					listSchedulesCommand(),
					describeScheduleCommand(),
					pauseScheduleCommand(),
					resumeScheduleCommand(),
					deleteScheduleCommand(),
					createScheduleCommand(),
					reconcileCommand(),
				},
			},
			{
				Name:  "nats",
				Usage: "Inspect and subscribe to the alert stream",
				Subcommands: []*cli.Command{
					subscribeCommand(),
					inspectStreamCommand(),
				},
			},
			{
				Name:  "sse",
				Usage: "Stream alerts over Server-Sent Events",
				Subcommands: []*cli.Command{
					streamCommand(),
				},
			},
			{
				Name:    "token",
				Aliases: []string{"tokens"},
				Usage:   "Manage monitored tokens via the HTTP API",
				Subcommands: []*cli.Command{
					tokenAddCommand(),
					tokenRemoveCommand(),
					tokenGetCommand(),
					tokenListCommand(),
					tokenAnalyzeCommand(),
					tokenAssessmentsCommand(),
					tokenAlertsCommand(),
					tokenStatsCommand(),
					awaitAlertCommand(),
				},
			},
			{
				Name:  "server",
				Usage: "Server utilities",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
