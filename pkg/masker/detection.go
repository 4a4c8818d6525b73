package masker

import (
	"crypto/sha256"
	"encoding/hex"
)

// ValueMoniker is reported for matches of explicitly registered literals
// and their encoded forms. Literal matches never carry a correlating
// identifier.
const ValueMoniker = "value"

// RegexMoniker is reported for matches of patterns registered through
// AddRegex, which carry no rule metadata.
const RegexMoniker = "regex"

// Detection is the ephemeral result of a single match during a scan. It
// carries the rule moniker and, for correlating rules, a C3ID, never the
// matched text.
type Detection struct {
	// Moniker names the rule or detector that matched.
	Moniker string

	// C3ID is a deterministic, non-reversible hash of the match, set only
	// for high-confidence correlating rules. Empty for literal matches,
	// plain regex matches, and non-correlating rules.
	C3ID string
}

// c3idSalt namespaces the correlation hash so C3IDs cannot be compared
// against hashes computed elsewhere.
const c3idSalt = "maskd/c3id/v1:"

// computeC3ID derives the correlating identifier for a matched value:
// hex(sha256(salt || match)) truncated to 16 characters. The value itself
// is never retained.
func computeC3ID(match string) string {
	sum := sha256.Sum256([]byte(c3idSalt + match))
	return hex.EncodeToString(sum[:])[:16]
}
