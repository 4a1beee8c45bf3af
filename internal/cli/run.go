package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"netgauge/internal/config"
	"netgauge/internal/lookup"
	"netgauge/internal/speedtest"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulated speed test and submit the result",
	Run: func(cmd *cobra.Command, args []string) {
		server, _ := cmd.Flags().GetString("server")
		noColor, _ := cmd.Flags().GetBool("no-color")
		noSubmit, _ := cmd.Flags().GetBool("no-submit")
		probeURL, _ := cmd.Flags().GetString("probe-url")
		lookupURL, _ := cmd.Flags().GetString("lookup-url")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		if noColor {
			color.NoColor = true
		}

		// Flags win; otherwise the NETGAUGE_* environment applies.
		cfg := config.GetConfig()
		if !cmd.Flags().Changed("probe-url") {
			probeURL = cfg.ProbeURL
		}
		if !cmd.Flags().Changed("lookup-url") {
			lookupURL = cfg.LookupURL
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		// Resolve ISP/location first so the result can carry it
		info := resolveLookup(ctx, lookupURL, logger)

		probeClient := &http.Client{Timeout: time.Duration(cfg.ProbeTimeoutSeconds) * time.Second}
		runner := speedtest.NewRunner(probeURL, logger, speedtest.WithClient(probeClient))
		result, err := runner.Run(ctx, printProgress)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		bold := color.New(color.Bold)
		fmt.Println()
		bold.Printf("Latency:  %d ms", result.LatencyMs)
		if result.LatencyFallback {
			color.New(color.FgYellow).Print("  (probe failed, estimated)")
		}
		fmt.Println()
		bold.Printf("Download: %s\n", speedtest.FormatSpeed(result.DownloadMbps))
		fmt.Printf("ISP:      %s\n", info.ISP())
		fmt.Printf("Location: %s\n", info.Location())

		if noSubmit {
			return
		}

		if err := submitResult(ctx, server, result, info); err != nil {
			// Submission failures do not fail the run; the numbers were printed.
			color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: could not submit result: %v\n", err)
			return
		}
		color.New(color.FgGreen).Printf("Result saved to %s\n", server)
	},
}

func printProgress(p speedtest.Progress) {
	switch p.Phase {
	case speedtest.PhasePinging:
		fmt.Print("Measuring latency... ")
	case speedtest.PhaseDownloading:
		if p.Step == 0 {
			fmt.Printf("%d ms\n", p.LatencyMs)
			return
		}
		fmt.Printf("  [%3.0f%%] %4.0f MB step: %s (avg %s)\n",
			p.Percent,
			p.Sample.SizeMB,
			speedtest.FormatSpeed(p.Sample.Mbps),
			speedtest.FormatSpeed(p.Sample.AvgMbps))
	}
}

func resolveLookup(ctx context.Context, lookupURL string, logger *slog.Logger) *lookup.Info {
	client := lookup.NewClient(lookupURL, logger)
	info, err := client.Lookup(ctx)
	if err != nil {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Warning: geolocation lookup failed: %v\n", err)
		return nil
	}
	return info
}

func submitResult(ctx context.Context, server string, result *speedtest.Result, info *lookup.Info) error {
	ip := ""
	if info != nil {
		ip = info.IP
	}
	payload := map[string]any{
		"latency":        result.LatencyMs,
		"download_speed": result.DownloadMbps,
		"isp":            info.ISP(),
		"ip":             ip,
		"location":       info.Location(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := strings.TrimRight(server, "/") + "/api/tests"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

func init() {
	runCmd.Flags().Bool("no-submit", false, "Run the test without submitting the result")
	runCmd.Flags().String("probe-url", "https://www.google.com/favicon.ico", "URL fetched once for the latency sample")
	runCmd.Flags().String("lookup-url", "https://ipapi.co/json/", "IP geolocation service URL")
	runCmd.Flags().Duration("timeout", 60*time.Second, "Overall timeout for the run")
}
