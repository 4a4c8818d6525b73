package masker

import (
	"fmt"
	"math"
	"regexp"
)

// Rule defines a secret detection rule for the modern engine.
type Rule struct {
	// Moniker is the unique rule identifier reported in detections.
	Moniker string `koanf:"moniker"`

	// Description explains what this rule detects.
	Description string `koanf:"description"`

	// Pattern is the regex matched against scanned text.
	Pattern string `koanf:"pattern"`

	// Keywords are optional cheap prefilters: the rule only runs when at
	// least one keyword is present in the text.
	Keywords []string `koanf:"keywords"`

	// Severity indicates the importance (high, medium, low).
	Severity string `koanf:"severity"`

	// Entropy is the minimum Shannon entropy a match must reach
	// (0 to disable the check).
	Entropy float64 `koanf:"entropy"`

	// Correlate marks high-confidence rules whose matches receive a
	// deterministic, non-reversible correlating identifier. Never set it
	// on rules that can match short or low-entropy text.
	Correlate bool `koanf:"correlate"`
}

// compiledRule holds a rule with its compiled pattern and keyword
// prefilters.
type compiledRule struct {
	Rule
	pattern  *regexp.Regexp
	keywords []*regexp.Regexp
}

// compileRules compiles trusted (config-supplied) rules, failing fast on
// the first invalid one. Errors carry the moniker, never the pattern text.
func compileRules(rules []Rule) ([]*compiledRule, error) {
	compiled := make([]*compiledRule, 0, len(rules))
	for i, rule := range rules {
		if rule.Moniker == "" {
			return nil, fmt.Errorf("%w: rule %d: moniker is required", ErrInvalidRule, i)
		}
		if rule.Pattern == "" {
			return nil, fmt.Errorf("%w: rule %s: pattern is required", ErrInvalidRule, rule.Moniker)
		}
		pattern, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %s: pattern does not compile", ErrInvalidRule, rule.Moniker)
		}

		cr := &compiledRule{
			Rule:     rule,
			pattern:  pattern,
			keywords: make([]*regexp.Regexp, 0, len(rule.Keywords)),
		}
		for _, kw := range rule.Keywords {
			kwPattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(kw))
			if err != nil {
				return nil, fmt.Errorf("%w: rule %s: keyword does not compile", ErrInvalidRule, rule.Moniker)
			}
			cr.keywords = append(cr.keywords, kwPattern)
		}
		compiled = append(compiled, cr)
	}
	return compiled, nil
}

// shannonEntropy computes the Shannon entropy of s in bits per byte.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}
	entropy := 0.0
	n := float64(len(s))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// DefaultRules returns the standard detection rule set. Based on common
// secret patterns from gitleaks and industry standards. Correlate is set
// only for self-identifying, high-entropy token families.
func DefaultRules() []Rule {
	return []Rule{
		// AWS
		{
			Moniker:     "aws-access-key-id",
			Description: "AWS Access Key ID",
			Pattern:     `(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`,
			Severity:    "high",
			Correlate:   true,
		},
		{
			Moniker:     "aws-secret-access-key",
			Description: "AWS Secret Access Key",
			Pattern:     `(?i)(?:aws_secret_access_key|aws_secret_key|secret_access_key)\s*[:=]\s*['"]?([A-Za-z0-9/+=]{40})['"]?`,
			Keywords:    []string{"aws", "secret"},
			Severity:    "high",
		},

		// Generic assignments
		{
			Moniker:     "generic-api-key",
			Description: "Generic API Key",
			Pattern:     `(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"]?([A-Za-z0-9_\-]{16,64})['"]?`,
			Keywords:    []string{"api", "key"},
			Severity:    "high",
		},
		{
			Moniker:     "generic-secret",
			Description: "Generic Secret",
			Pattern:     `(?i)(?:secret|password|passwd|pwd)\s*[:=]\s*['"]?([^\s'"]{8,})['"]?`,
			Keywords:    []string{"secret", "password"},
			Severity:    "high",
		},

		// Private keys
		{
			Moniker:     "private-key",
			Description: "Private Key",
			Pattern:     `-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`,
			Severity:    "high",
		},

		// GitHub (prefixes are self-identifying)
		{
			Moniker:     "github-token",
			Description: "GitHub Personal Access Token",
			Pattern:     `ghp_[A-Za-z0-9]{36}`,
			Severity:    "high",
			Entropy:     3.0,
			Correlate:   true,
		},
		{
			Moniker:     "github-oauth",
			Description: "GitHub OAuth Access Token",
			Pattern:     `gho_[A-Za-z0-9]{36}`,
			Severity:    "high",
			Entropy:     3.0,
			Correlate:   true,
		},
		{
			Moniker:     "github-app",
			Description: "GitHub App Token",
			Pattern:     `(?:ghu|ghs)_[A-Za-z0-9]{36}`,
			Severity:    "high",
			Entropy:     3.0,
			Correlate:   true,
		},
		{
			Moniker:     "github-fine-grained",
			Description: "GitHub Fine-grained Personal Access Token",
			Pattern:     `github_pat_[A-Za-z0-9_]{22,}`,
			Severity:    "high",
			Correlate:   true,
		},

		// GitLab
		{
			Moniker:     "gitlab-token",
			Description: "GitLab Personal Access Token",
			Pattern:     `glpat-[A-Za-z0-9\-]{20,}`,
			Severity:    "high",
			Correlate:   true,
		},

		// Slack
		{
			Moniker:     "slack-token",
			Description: "Slack Token",
			Pattern:     `xox[baprs]-[A-Za-z0-9\-]{10,}`,
			Severity:    "high",
			Correlate:   true,
		},

		// Stripe
		{
			Moniker:     "stripe-key",
			Description: "Stripe API Key",
			Pattern:     `(?:sk|pk)_(?:live|test)_[A-Za-z0-9]{24,}`,
			Severity:    "high",
			Correlate:   true,
		},

		// Database URLs
		{
			Moniker:     "database-url",
			Description: "Database Connection URL with credentials",
			Pattern:     `(?i)(?:postgres|mysql|mongodb|redis|amqp)://[^:\s]+:[^@\s]+@[^\s]+`,
			Keywords:    []string{"://"},
			Severity:    "high",
		},

		// JWT (eyJ prefix is a base64 JSON header)
		{
			Moniker:     "jwt",
			Description: "JSON Web Token",
			Pattern:     `eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*`,
			Severity:    "medium",
			Correlate:   true,
		},

		// Google
		{
			Moniker:     "google-api-key",
			Description: "Google API Key",
			Pattern:     `AIza[A-Za-z0-9_\-]{35}`,
			Severity:    "high",
			Correlate:   true,
		},

		// Azure
		{
			Moniker:     "azure-storage-key",
			Description: "Azure Storage Account Key",
			Pattern:     `(?i)(?:account_?key|storage_?key)\s*[:=]\s*['"]?([A-Za-z0-9+/]{86}==)['"]?`,
			Keywords:    []string{"azure", "storage", "account"},
			Severity:    "high",
		},

		// Anthropic
		{
			Moniker:     "anthropic-api-key",
			Description: "Anthropic API Key",
			Pattern:     `sk-ant-[A-Za-z0-9_\-]{90,}`,
			Severity:    "high",
			Entropy:     3.5,
			Correlate:   true,
		},

		// OpenAI
		{
			Moniker:     "openai-api-key",
			Description: "OpenAI API Key",
			Pattern:     `sk-[A-Za-z0-9]{48,}`,
			Severity:    "high",
			Entropy:     3.5,
			Correlate:   true,
		},

		// SendGrid
		{
			Moniker:     "sendgrid-api-key",
			Description: "SendGrid API Key",
			Pattern:     `SG\.[A-Za-z0-9_\-]{22,}\.[A-Za-z0-9_\-]{43,}`,
			Severity:    "high",
			Correlate:   true,
		},

		// npm
		{
			Moniker:     "npm-token",
			Description: "npm Access Token",
			Pattern:     `npm_[A-Za-z0-9]{36}`,
			Severity:    "high",
			Correlate:   true,
		},

		// Bearer tokens in headers
		{
			Moniker:     "bearer-token",
			Description: "Bearer Token in Authorization Header",
			Pattern:     `(?i)(?:authorization|bearer)\s*[:=]\s*['"]?bearer\s+([A-Za-z0-9_\-\.]{20,})['"]?`,
			Keywords:    []string{"authorization", "bearer"},
			Severity:    "medium",
		},

		// Sensitive environment variables
		{
			Moniker:     "env-credential",
			Description: "Environment Variable with Credential",
			Pattern:     `(?i)(?:^|[^A-Za-z0-9_])(?:DB_PASSWORD|DATABASE_PASSWORD|MYSQL_PASSWORD|POSTGRES_PASSWORD|REDIS_PASSWORD|MONGO_PASSWORD|API_SECRET|APP_SECRET|SECRET_KEY|ENCRYPTION_KEY|PRIVATE_KEY|AUTH_TOKEN|ACCESS_TOKEN|REFRESH_TOKEN)\s*[:=]\s*['"]?([^\s'"]{8,})['"]?`,
			Severity:    "high",
		},
	}
}
