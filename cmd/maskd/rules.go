// cmd/maskd/rules.go
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

var rulesGitleaks bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the active detection rules",
	Long: `List the detection rules the modern engine applies, with moniker,
severity, and description.

Examples:
  # Built-in rules
  maskd rules

  # Including the gitleaks community set
  maskd rules --gitleaks`,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesGitleaks, "gitleaks", false, "include the gitleaks community rule set")
}

func runRules(cmd *cobra.Command, args []string) error {
	rules := masker.DefaultRules()
	if rulesGitleaks {
		extra, err := masker.GitleaksRules()
		if err != nil {
			return fmt.Errorf("loading gitleaks rules: %w", err)
		}
		rules = append(rules, extra...)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MONIKER\tSEVERITY\tCORRELATES\tDESCRIPTION")
	for _, rule := range rules {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", rule.Moniker, rule.Severity, rule.Correlate, rule.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d rules\n", len(rules))
	return nil
}
