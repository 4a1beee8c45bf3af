package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"netgauge/internal/results"
	"netgauge/internal/speedtest"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored speed test history",
	Run: func(cmd *cobra.Command, args []string) {
		server, _ := cmd.Flags().GetString("server")
		noColor, _ := cmd.Flags().GetBool("no-color")
		asJSON, _ := cmd.Flags().GetBool("json")

		if noColor {
			color.NoColor = true
		}

		rows, err := fetchHistory(context.Background(), server)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(rows); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(rows) == 0 {
			fmt.Println("No results yet.")
			return
		}

		header := color.New(color.Bold)
		header.Printf("%-20s  %8s  %14s  %-24s  %s\n", "WHEN", "LATENCY", "DOWNLOAD", "ISP", "LOCATION")
		for _, row := range rows {
			fmt.Printf("%-20s  %5d ms  %14s  %-24s  %s\n",
				row.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				row.LatencyMs,
				speedtest.FormatSpeed(row.DownloadMbps),
				truncate(row.ISP, 24),
				row.Location)
		}
	},
}

func fetchHistory(ctx context.Context, server string) ([]results.Result, error) {
	url := strings.TrimRight(server, "/") + "/api/history"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rows []results.Result
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return rows, nil
}

// truncate shortens s to at most max display runes. Cutting on runes keeps
// multi-byte ISP names valid UTF-8.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func init() {
	historyCmd.Flags().Bool("json", false, "Print raw JSON instead of a table")
}
