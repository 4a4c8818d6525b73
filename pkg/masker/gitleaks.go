package masker

import (
	"sort"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// GitleaksRules imports the gitleaks default config (800+ community
// patterns) as detection rules for the modern engine. Rules with an
// entropy requirement are marked correlating: gitleaks only attaches
// entropy thresholds to high-confidence token families.
func GitleaksRules() ([]Rule, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(detector.Config.Rules))
	for _, r := range detector.Config.Rules {
		if r.Regex == nil {
			continue
		}
		rules = append(rules, Rule{
			Moniker:     r.RuleID,
			Description: r.Description,
			Pattern:     r.Regex.String(),
			Keywords:    r.Keywords,
			Severity:    "high",
			Entropy:     r.Entropy,
			Correlate:   r.Entropy > 0,
		})
	}

	// Map iteration order is random; keep rule order deterministic.
	sort.Slice(rules, func(i, j int) bool { return rules[i].Moniker < rules[j].Moniker })
	return rules, nil
}
