// Package cli implements the ngctl command line tool.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "ngctl",
	Short:   "Terminal client for the netgauge speed test dashboard",
	Version: version,
	Long: `ngctl runs the same simulated speed test sequence the netgauge dashboard
runs in the browser, and talks to a netgauge server's JSON API: it can
submit results and print the stored history.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().String("server", "http://localhost:3000", "Base URL of the netgauge server")
	RootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(historyCmd)
}
