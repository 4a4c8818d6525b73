// cmd/maskd/scrub.go
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

var (
	scrubEngine   string
	scrubGitleaks bool
	scrubValues   []string
	scrubPatterns []string
)

var scrubCmd = &cobra.Command{
	Use:   "scrub [file]",
	Short: "Scrub secrets from a file or stdin",
	Long: `Scrub secrets from a file or stdin and write the redacted text to
stdout. Runs a local engine; no server required.

Examples:
  # Scrub a file with the built-in rule set
  maskd scrub build.log

  # Scrub stdin
  terraform apply 2>&1 | maskd scrub -

  # Also redact specific values
  maskd scrub --value "$DB_PASSWORD" deploy.log

  # Include the gitleaks community rules
  maskd scrub --gitleaks audit.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScrub,
}

func init() {
	scrubCmd.Flags().StringVar(&scrubEngine, "engine", "modern", "engine to use (legacy or modern)")
	scrubCmd.Flags().BoolVar(&scrubGitleaks, "gitleaks", false, "include the gitleaks community rule set")
	scrubCmd.Flags().StringArrayVar(&scrubValues, "value", nil, "literal value to redact (repeatable)")
	scrubCmd.Flags().StringArrayVar(&scrubPatterns, "pattern", nil, "regex pattern to redact (repeatable)")
}

func runScrub(cmd *cobra.Command, args []string) error {
	var content []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
	}

	cfg := masker.DefaultConfig()
	cfg.Engine = masker.Engine(scrubEngine)
	cfg.UseGitleaksRules = scrubGitleaks

	m, err := masker.New(cfg)
	if err != nil {
		return fmt.Errorf("creating masking engine: %w", err)
	}
	defer func() { _ = m.Close() }()

	for _, value := range scrubValues {
		m.AddValue(value)
	}
	for _, pattern := range scrubPatterns {
		m.AddRegex(pattern)
	}

	if _, err := fmt.Fprint(os.Stdout, m.MaskSecrets(string(content))); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
