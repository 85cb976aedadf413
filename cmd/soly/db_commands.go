package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/SolyforTrenchers/SolyforTrenchers/service/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

// getStore opens a database connection from the --database-url flag.
// The returned cleanup function closes the pool.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database URL required (set --database-url or DATABASE_URL)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db.NewStore(pool), pool.Close, nil
}

// outputJSON prints v as indented JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}

func listTokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-tokens",
		Usage: "List all monitored tokens",
		Action: func(c *cli.Context) error {
			store, cleanup, err := getStore(c)
			if err != nil {
				return err
			}
			defer cleanup()

			tokens, err := store.ListTokens(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list tokens: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(tokens)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "MINT\tSYMBOL\tSTATUS\tINTERVAL\tLIQUIDITY\tLAST POLL")
			for _, t := range tokens {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.2f\t%s\n",
					t.Mint, t.Symbol, t.Status, t.PollInterval,
					t.LiquidityUSD, formatOptionalTime(t.LastPollTime))
			}
			return w.Flush()
		},
	}
}

func getTokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-token",
		Usage:     "Show a token and its latest assessment",
		ArgsUsage: "MINT",
		Action: func(c *cli.Context) error {
			mint := c.Args().First()
			if mint == "" {
				return fmt.Errorf("mint address required")
			}

			store, cleanup, err := getStore(c)
			if err != nil {
				return err
			}
			defer cleanup()

			token, err := store.GetToken(c.Context, mint)
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}

			latest, err := store.GetLatestAssessment(c.Context, mint)
			if err != nil {
				latest = nil
			}

			if c.Bool("json") {
				return outputJSON(map[string]interface{}{
					"token":             token,
					"latest_assessment": latest,
				})
			}

			fmt.Printf("Mint:             %s\n", token.Mint)
			fmt.Printf("Name:             %s\n", token.Name)
			fmt.Printf("Symbol:           %s\n", token.Symbol)
			fmt.Printf("Creator:          %s\n", token.Creator)
			if token.PoolVault != nil {
				fmt.Printf("Pool vault:       %s\n", *token.PoolVault)
			}
			fmt.Printf("Liquidity:        $%.2f (locked: %v)\n", token.LiquidityUSD, token.LiquidityLocked)
			fmt.Printf("Status:           %s\n", token.Status)
			fmt.Printf("Poll interval:    %s\n", token.PollInterval)
			fmt.Printf("Last poll:        %s\n", formatOptionalTime(token.LastPollTime))
			if latest != nil {
				fmt.Printf("Latest score:     %.1f (%s)\n", latest.Score, latest.RiskLevel)
				if len(latest.Patterns) > 0 {
					fmt.Printf("Patterns:         %s\n", strings.Join(latest.Patterns, ", "))
				}
			}
			return nil
		},
	}
}

func listAssessmentsCommand() *cli.Command {
	return &cli.Command{
		Name:      "list-assessments",
		Usage:     "List risk assessments for a token",
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

			store, cleanup, err := getStore(c)
			if err != nil {
				return err
			}
			defer cleanup()

			assessments, err := store.ListAssessmentsByToken(c.Context, db.ListAssessmentsByTokenParams{
				Mint:   mint,
				Limit:  int32(c.Int("limit")),
				Offset: int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list assessments: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(assessments)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCORE\tLEVEL\tSUSPICIOUS\tPATTERNS\tASSESSED AT")
			for _, a := range assessments {
				fmt.Fprintf(w, "%d\t%.1f\t%s\t%v\t%s\t%s\n",
					a.ID, a.Score, a.RiskLevel, a.Suspicious,
					strings.Join(a.Patterns, ","), a.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func listAlertsDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-alerts",
		Usage: "List published alerts, optionally filtered by token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mint",
				Usage: "Filter alerts by token mint",
			},
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
			store, cleanup, err := getStore(c)
			if err != nil {
				return err
			}
			defer cleanup()

			alerts, err := store.ListAlerts(c.Context, db.ListAlertsParams{
				Mint:   c.String("mint"),
				Limit:  int32(c.Int("limit")),
				Offset: int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list alerts: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(alerts)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMINT\tSCORE\tLEVEL\tTWEETED\tCREATED AT")
			for _, a := range alerts {
				fmt.Fprintf(w, "%d\t%s\t%.1f\t%s\t%v\t%s\n",
					a.ID, a.Mint, a.Score, a.RiskLevel, a.Tweeted,
					a.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func setTokenStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "set-status",
		Usage:     "Set a token's monitoring status",
		ArgsUsage: "MINT STATUS",
		Description: "STATUS is one of: active, paused, error. Pausing a token here\n" +
			"does not pause its Temporal schedule; use 'temporal pause-schedule' for that.",
		Action: func(c *cli.Context) error {
			mint := c.Args().Get(0)
			status := c.Args().Get(1)
			if mint == "" || status == "" {
				return fmt.Errorf("mint address and status required")
			}
			switch status {
			case "active", "paused", "error":
			default:
				return fmt.Errorf("invalid status %q (want active, paused, or error)", status)
			}

			store, cleanup, err := getStore(c)
			if err != nil {
				return err
			}
			defer cleanup()

			token, err := store.UpdateTokenStatus(c.Context, mint, status)
			if err != nil {
				return fmt.Errorf("failed to update token status: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(token)
			}
			fmt.Printf("Token %s status set to %s\n", token.Mint, token.Status)
			return nil
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregate monitoring statistics",
		Action: func(c *cli.Context) error {
			store, cleanup, err := getStore(c)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := store.GetStats(c.Context)
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
