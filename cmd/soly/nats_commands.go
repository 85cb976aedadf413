package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	natspkg "github.com/SolyforTrenchers/SolyforTrenchers/service/nats"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"
)

func connectNATS(c *cli.Context, name string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(c.String("nats-url"),
		nats.Name(name),
		nats.Timeout(10*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return nc, js, nil
}

func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Subscribe to published alerts (all tokens, or one mint)",
		ArgsUsage: "[MINT]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "durable",
				Usage: "Durable consumer name (ephemeral when omitted)",
			},
		},
		Action: func(c *cli.Context) error {
			subject := natspkg.StreamSubjects
			if mint := c.Args().First(); mint != "" {
				subject = fmt.Sprintf("alerts.%s", mint)
			}

			nc, js, err := connectNATS(c, "soly-subscribe")
			if err != nil {
				return err
			}
			defer nc.Close()

			cons, err := js.CreateOrUpdateConsumer(c.Context, natspkg.StreamName, jetstream.ConsumerConfig{
				Durable:       c.String("durable"),
				FilterSubject: subject,
				AckPolicy:     jetstream.AckExplicitPolicy,
				DeliverPolicy: jetstream.DeliverNewPolicy,
			})
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Subscribed to %s (Ctrl+C to stop)\n", subject)

			cc, err := cons.Consume(func(msg jetstream.Msg) {
				var event natspkg.AlertEvent
				if err := json.Unmarshal(msg.Data(), &event); err != nil {
					fmt.Fprintf(os.Stderr, "failed to decode alert: %v\n", err)
					msg.Ack()
					return
				}
				printAlertEvent(c.Bool("json"), &event)
				msg.Ack()
			})
			if err != nil {
				return fmt.Errorf("failed to start consuming: %w", err)
			}
			defer cc.Stop()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-shutdown:
			case <-c.Context.Done():
			}
			return nil
		},
	}
}

func printAlertEvent(asJSON bool, event *natspkg.AlertEvent) {
	if asJSON {
		outputJSON(event)
		return
	}
	fmt.Printf("[%s] %s score=%.1f level=%s suspicious=%v\n",
		event.PublishedAt.Format(time.RFC3339), event.Mint,
		event.Score, event.RiskLevel, event.Suspicious)
	if len(event.DetectedPatterns) > 0 {
		fmt.Printf("  patterns: %s\n", strings.Join(event.DetectedPatterns, ", "))
	}
	if event.Message != "" {
		fmt.Printf("  %s\n", event.Message)
	}
	if event.Commentary != "" {
		fmt.Printf("  %s\n", event.Commentary)
	}
}

func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Show the state of the alert stream",
		Action: func(c *cli.Context) error {
			nc, js, err := connectNATS(c, "soly-inspect-stream")
			if err != nil {
				return err
			}
			defer nc.Close()

			stream, err := js.Stream(c.Context, natspkg.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream %q: %w", natspkg.StreamName, err)
			}

			info, err := stream.Info(c.Context)
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(info)
			}

			fmt.Printf("Stream:     %s\n", info.Config.Name)
			fmt.Printf("Subjects:   %s\n", strings.Join(info.Config.Subjects, ", "))
			fmt.Printf("Messages:   %d\n", info.State.Msgs)
			fmt.Printf("Bytes:      %d\n", info.State.Bytes)
			fmt.Printf("First seq:  %d\n", info.State.FirstSeq)
			fmt.Printf("Last seq:   %d\n", info.State.LastSeq)
			fmt.Printf("Consumers:  %d\n", info.State.Consumers)
			return nil
		},
	}
}
