// Package main implements the maskd CLI: a local secret scrubber and the
// maskd sidecar daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "maskd",
	Short: "Secret masking engine and sidecar",
	Long: `maskd detects and redacts secrets in text: registered literal values,
regex patterns, and a built-in rule set for well-known credential formats.

Run it as a one-shot scrubber (maskd scrub) or as an HTTP sidecar
(maskd serve).`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/maskd/config.yaml)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("maskd %s (commit %s, built %s)\n", version, gitCommit, buildDate))
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scrubCmd)
	rootCmd.AddCommand(rulesCmd)
}
