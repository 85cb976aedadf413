package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/SolyforTrenchers/SolyforTrenchers/client"
	natspkg "github.com/SolyforTrenchers/SolyforTrenchers/service/nats"
	"github.com/itchyny/gojq"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

// getClient builds an HTTP API client from the --server-url flag.
func getClient(c *cli.Context) *client.Client {
	return client.NewClient(c.String("server-url"), nil, nil)
}

func tokenAddCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Aliases:   []string{"register"},
		Usage:     "Register a token for risk monitoring",
		ArgsUsage: "MINT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "name",
				Usage: "Token name",
			},
			&cli.StringFlag{
				Name:  "symbol",
				Usage: "Token symbol",
			},
			&cli.StringFlag{
				Name:     "creator",
				Usage:    "Creator wallet address",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "pool-vault",
				Usage: "Liquidity pool token vault address",
			},
			&cli.Float64Flag{
				Name:  "liquidity-usd",
				Usage: "Initial pool liquidity in USD",
			},
			&cli.BoolFlag{
				Name:  "liquidity-locked",
				Usage: "Whether the pool liquidity is locked",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Analysis interval (server default when omitted)",
			},
		},
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			params := client.RegisterParams{
				Mint:            mint,
				Name:            c.String("name"),
				Symbol:          c.String("symbol"),
				Creator:         c.String("creator"),
				LiquidityUSD:    c.Float64("liquidity-usd"),
				LiquidityLocked: c.Bool("liquidity-locked"),
				PollInterval:    c.Duration("interval"),
			}
			if pv := c.String("pool-vault"); pv != "" {
				params.PoolVault = &pv
			}

			if err := getClient(c).Register(c.Context, params); err != nil {
				return fmt.Errorf("failed to register token: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(map[string]string{"status": "registered", "mint": mint})
			}
			fmt.Printf("Registered token %s for monitoring\n", mint)
			return nil
		},
	}
}

func tokenRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm", "unregister"},
		Usage:     "Stop monitoring a token",
		ArgsUsage: "MINT",
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			if err := getClient(c).Unregister(c.Context, mint); err != nil {
				return fmt.Errorf("failed to unregister token: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(map[string]string{"status": "unregistered", "mint": mint})
			}
			fmt.Printf("Stopped monitoring token %s\n", mint)
			return nil
		},
	}
}

func tokenGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a monitored token and its latest assessment",
		ArgsUsage: "MINT",
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			token, latest, err := getClient(c).Get(c.Context, mint)
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(map[string]interface{}{
					"token":             token,
					"latest_assessment": latest,
				})
			}

			fmt.Printf("Mint:          %s\n", token.Mint)
			fmt.Printf("Symbol:        %s\n", token.Symbol)
			fmt.Printf("Creator:       %s\n", token.Creator)
			fmt.Printf("Status:        %s\n", token.Status)
			fmt.Printf("Interval:      %s\n", token.PollInterval)
			if latest != nil {
				fmt.Printf("Latest score:  %.1f (%s)\n", latest.Score, latest.RiskLevel)
				if len(latest.Patterns) > 0 {
					fmt.Printf("Patterns:      %s\n", strings.Join(latest.Patterns, ", "))
				}
			} else {
				fmt.Println("Latest score:  not assessed yet")
			}
			return nil
		},
	}
}

func tokenListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List all monitored tokens",
		Action: func(c *cli.Context) error {
			tokens, err := getClient(c).List(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list tokens: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(tokens)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "MINT\tSYMBOL\tSTATUS\tINTERVAL")
			for _, t := range tokens {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Mint, t.Symbol, t.Status, t.PollInterval)
			}
			return w.Flush()
		},
	}
}

func tokenAnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Run an on-demand risk analysis for a token",
		ArgsUsage: "MINT",
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			assessment, err := getClient(c).Analyze(c.Context, mint)
			if err != nil {
				return fmt.Errorf("failed to analyze token: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(assessment)
			}

			fmt.Printf("Score:       %.1f\n", assessment.Score)
			fmt.Printf("Risk level:  %s\n", assessment.RiskLevel)
			fmt.Printf("Suspicious:  %v\n", assessment.Suspicious)
			fmt.Printf("Confidence:  %.2f\n", assessment.Confidence)
			if len(assessment.Patterns) > 0 {
				fmt.Printf("Patterns:    %s\n", strings.Join(assessment.Patterns, ", "))
			}
			return nil
		},
	}
}

func tokenAssessmentsCommand() *cli.Command {
	return &cli.Command{
		Name:      "assessments",
		Usage:     "List assessment history for a token",
		ArgsUsage: "MINT",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Maximum number of assessments to show",
			},
			&cli.IntFlag{
				Name:  "offset",
				Value: 0,
				Usage: "Number of assessments to skip",
			},
		},
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			assessments, err := getClient(c).ListAssessments(c.Context, mint, c.Int("limit"), c.Int("offset"))
			if err != nil {
				return fmt.Errorf("failed to list assessments: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(assessments)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCORE\tLEVEL\tSUSPICIOUS\tASSESSED AT")
			for _, a := range assessments {
				fmt.Fprintf(w, "%d\t%.1f\t%s\t%v\t%s\n",
					a.ID, a.Score, a.RiskLevel, a.Suspicious, a.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func tokenAlertsCommand() *cli.Command {
	return &cli.Command{
		Name:      "alerts",
		Usage:     "List published alerts, optionally for one token",
		ArgsUsage: "[MINT]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Maximum number of alerts to show",
			},
			&cli.IntFlag{
				Name:  "offset",
				Value: 0,
				Usage: "Number of alerts to skip",
			},
		},
		Action: func(c *cli.Context) error {
			alerts, err := getClient(c).ListAlerts(c.Context, c.Args().First(), c.Int("limit"), c.Int("offset"))
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(alerts)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMINT\tSCORE\tLEVEL\tCREATED AT")
			for _, a := range alerts {
				fmt.Fprintf(w, "%d\t%s\t%.1f\t%s\t%s\n",
					a.ID, a.Mint, a.Score, a.RiskLevel, a.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func tokenStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show service-wide monitoring statistics",
		Action: func(c *cli.Context) error {
			stats, err := getClient(c).GetStats(c.Context)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(stats)
			}

			fmt.Printf("Total tokens:       %d\n", stats.TotalTokens)
			fmt.Printf("Active tokens:      %d\n", stats.ActiveTokens)
			fmt.Printf("Total assessments:  %d\n", stats.TotalAssessments)
			fmt.Printf("Total alerts:       %d\n", stats.TotalAlerts)
			fmt.Printf("High-risk tokens:   %d\n", stats.HighRiskTokens)
			fmt.Printf("Avg score (24h):    %.1f\n", stats.AvgScore24h)
			return nil
		},
	}
}

func awaitAlertCommand() *cli.Command {
	return &cli.Command{
		Name:      "await-alert",
		Usage:     "Block until a matching alert is published for a token",
		ArgsUsage: "MINT",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   5 * time.Minute,
				Usage:   "Maximum time to wait for a matching alert",
			},
			&cli.StringSliceFlag{
				Name:  "must-jq",
				Usage: "jq filter the alert payload must satisfy (repeatable, all must match)",
			},
		},
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			matcher, err := buildAlertMatcher(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			nc, err := nats.Connect(c.String("nats-url"),
				nats.Name("soly-await-alert"),
				nats.Timeout(10*time.Second),
			)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			cons, err := js.CreateOrUpdateConsumer(ctx, natspkg.StreamName, jetstream.ConsumerConfig{
				FilterSubject: fmt.Sprintf("alerts.%s", mint),
				AckPolicy:     jetstream.AckExplicitPolicy,
				DeliverPolicy: jetstream.DeliverNewPolicy,
			})
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Waiting for alert on %s...\n", mint)

			for {
				msgs, err := cons.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
				if err != nil {
					return fmt.Errorf("failed to fetch alert: %w", err)
				}
				for msg := range msgs.Messages() {
					ok, err := matcher(msg.Data())
					if err != nil {
						fmt.Fprintf(os.Stderr, "skipping unmatchable alert: %v\n", err)
					}
					msg.Ack()
					if !ok {
						continue
					}

					var event natspkg.AlertEvent
					if err := json.Unmarshal(msg.Data(), &event); err != nil {
						return fmt.Errorf("failed to decode alert: %w", err)
					}
					if c.Bool("json") {
						return outputJSON(event)
					}
					fmt.Printf("Alert for %s: score %.1f (%s)\n", event.Mint, event.Score, event.RiskLevel)
					if len(event.DetectedPatterns) > 0 {
						fmt.Printf("Patterns: %s\n", strings.Join(event.DetectedPatterns, ", "))
					}
					fmt.Println(event.Message)
					return nil
				}
				select {
				case <-ctx.Done():
					return fmt.Errorf("timed out waiting for alert on %s", mint)
				default:
				}
			}
		},
	}
}

// buildAlertMatcher compiles the --must-jq filters into a single predicate.
// Every filter must produce a truthy value against the alert JSON.
func buildAlertMatcher(filters []string) (func([]byte) (bool, error), error) {
	codes := make([]*gojq.Code, 0, len(filters))
	for _, f := range filters {
		query, err := gojq.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("invalid jq filter %q: %w", f, err)
		}
		code, err := gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", f, err)
		}
		codes = append(codes, code)
	}

	return func(data []byte) (bool, error) {
		if len(codes) == 0 {
			return true, nil
		}
		var payload interface{}
		if err := json.Unmarshal(data, &payload); err != nil {
			return false, fmt.Errorf("failed to parse alert JSON: %w", err)
		}
		for _, code := range codes {
			iter := code.Run(payload)
			matched := false
			for {
				v, ok := iter.Next()
				if !ok {
					break
				}
				if err, isErr := v.(error); isErr {
					return false, fmt.Errorf("jq filter error: %w", err)
				}
				if isTruthy(v) {
					matched = true
				}
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	}, nil
}

// isTruthy follows jq semantics: false and null are falsy, everything
// else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
