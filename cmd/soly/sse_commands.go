package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	natspkg "github.com/SolyforTrenchers/SolyforTrenchers/service/nats"
	"github.com/urfave/cli/v2"
)

func streamCommand() *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Stream alerts from the server over SSE",
		ArgsUsage: "[MINT]",
		Action: func(c *cli.Context) error {
			url := c.String("server-url") + "/api/v1/stream/alerts"
			if mint := c.Args().First(); mint != "" {
				url += "/" + mint
			}

			req, err := http.NewRequestWithContext(c.Context, http.MethodGet, url, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Accept", "text/event-stream")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to connect to stream: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("stream request failed with status %d", resp.StatusCode)
			}

			scanner := bufio.NewScanner(resp.Body)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)

			var eventType string
			for scanner.Scan() {
				line := scanner.Text()
				switch {
				case strings.HasPrefix(line, "event:"):
					eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				case strings.HasPrefix(line, "data:"):
					data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
					handleSSEEvent(c.Bool("json"), eventType, data)
				case line == "":
					eventType = ""
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("stream read failed: %w", err)
			}
			return nil
		},
	}
}

func handleSSEEvent(asJSON bool, eventType, data string) {
	switch eventType {
	case "connected":
		fmt.Fprintf(os.Stderr, "Connected: %s\n", data)
	case "alert":
		var event natspkg.AlertEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			fmt.Fprintf(os.Stderr, "failed to decode alert: %v\n", err)
			return
		}
		printAlertEvent(asJSON, &event)
	case "error":
		fmt.Fprintf(os.Stderr, "Stream error: %s\n", data)
	}
}
