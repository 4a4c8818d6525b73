package masker

import (
	"fmt"
	"regexp"
)

// Engine selects the underlying matching implementation.
type Engine string

const (
	// EngineLegacy is the original value/regex scanner. Registration is
	// single-writer; all matches redact to the generic token.
	EngineLegacy Engine = "legacy"

	// EngineModern adds rule-based detection with monikers, correlating
	// identifiers, telemetry accounting, and internal locking.
	EngineModern Engine = "modern"
)

// Config configures an engine built by New.
type Config struct {
	// Engine chooses the implementation (default: modern).
	Engine Engine `koanf:"engine"`

	// MinSecretLength is the floor below which registered values and
	// patterns are dropped from active detection. Clamped to
	// [0, MinSecretLengthLimit].
	MinSecretLength int `koanf:"min_secret_length"`

	// BuiltinEncoders registers the standard escape encoders so literals
	// are masked in backslash-escaped, percent-escaped, JSON-escaped, and
	// base64 form (default: true).
	BuiltinEncoders bool `koanf:"builtin_encoders"`

	// Rules defines the detection rules for the modern engine. Ignored by
	// the legacy engine.
	Rules []Rule `koanf:"rules"`

	// UseGitleaksRules additionally imports the gitleaks community rule
	// set into the modern engine.
	UseGitleaksRules bool `koanf:"gitleaks_rules"`

	// AllowList contains content patterns exempt from rule-based
	// detection. Explicitly registered literals are never exempt.
	AllowList []string `koanf:"allow_list"`

	// compiled forms (populated by Validate)
	compiledRules     []*compiledRule
	compiledAllowList []*regexp.Regexp
}

// DefaultConfig returns a modern-engine configuration with the standard
// rule set, builtin encoders, and the default length floor.
func DefaultConfig() *Config {
	return &Config{
		Engine:          EngineModern,
		MinSecretLength: DefaultMinSecretLength,
		BuiltinEncoders: true,
		Rules:           DefaultRules(),
		AllowList:       []string{},
	}
}

// Validate normalizes the configuration and compiles rules and allow list
// patterns. Config-supplied rules are trusted input and fail fast, unlike
// patterns registered at runtime through AddRegex.
func (c *Config) Validate() error {
	if c.Engine == "" {
		c.Engine = EngineModern
	}
	c.MinSecretLength = clampMinLength(c.MinSecretLength)

	rules := c.Rules
	if c.UseGitleaksRules {
		extra, err := GitleaksRules()
		if err != nil {
			return fmt.Errorf("loading gitleaks rules: %w", err)
		}
		rules = append(append([]Rule{}, rules...), extra...)
	}

	compiled, err := compileRules(rules)
	if err != nil {
		return err
	}
	c.compiledRules = compiled

	c.compiledAllowList = make([]*regexp.Regexp, 0, len(c.AllowList))
	for i, pattern := range c.AllowList {
		// Value-blind: the error never carries the pattern text.
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: entry %d", ErrInvalidAllowList, i)
		}
		c.compiledAllowList = append(c.compiledAllowList, re)
	}

	return nil
}
