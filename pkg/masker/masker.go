package masker

import (
	"fmt"
	"sort"
)

const (
	// RedactionToken replaces every detected secret in masked output.
	RedactionToken = "***"

	// MinSecretLengthLimit is the hard ceiling for MinSecretLength.
	// Allowing masking of very short strings causes unacceptable
	// false-positive redaction of ordinary text (e.g. a token variable
	// set to "none").
	MinSecretLengthLimit = 6

	// DefaultMinSecretLength is the length floor applied when no explicit
	// value is configured.
	DefaultMinSecretLength = MinSecretLengthLimit
)

// Masker is the engine contract shared by the legacy and modern
// implementations.
//
// MaskSecrets is safe for concurrent use. The legacy engine assumes a
// single writer: registration must not run concurrently with scans without
// external coordination. The modern engine synchronizes registration and
// scans internally.
type Masker interface {
	// AddValue registers an exact literal to redact. Empty values are
	// ignored. Registered value encoders are applied to the literal so
	// that encoded appearances are redacted too.
	AddValue(value string)

	// AddRegex compiles and registers a detection pattern. Empty or
	// invalid patterns are ignored; a failing pattern never disturbs
	// previously registered detectors.
	AddRegex(pattern string)

	// AddValueEncoder registers an encoder applied to known literals to
	// generate additional masked forms. Encoders with a nil Encode
	// function are ignored.
	AddValueEncoder(enc ValueEncoder)

	// MaskSecrets scans input against all registered detectors and
	// returns the input with every match replaced by RedactionToken.
	// It never fails and always returns a string.
	MaskSecrets(input string) string

	// MinSecretLength returns the current length floor.
	MinSecretLength() int

	// SetMinSecretLength sets the length floor. Values above
	// MinSecretLengthLimit clamp to the limit; negative values clamp
	// to zero.
	SetMinSecretLength(n int)

	// RemoveShortSecrets drops registered literals and patterns shorter
	// than the current length floor from the active detection set.
	RemoveShortSecrets()

	// Close releases the engine. Closing twice is safe. A closed engine
	// keeps masking with the state it held at close time; registration
	// after close is a no-op.
	Close() error
}

// Cloner is implemented by engines that support snapshot copies. A clone
// shares no mutable state with the original: secrets added to either side
// afterwards are invisible to the other.
type Cloner interface {
	Clone() Masker
}

// Detector is implemented by engines that report per-match detections
// during a scan. The callback receives only rule monikers and correlating
// identifiers, never matched text.
type Detector interface {
	MaskSecretsDetect(input string, onDetection func(Detection)) string
}

// New builds an engine from cfg. A nil cfg uses DefaultConfig. The engine
// choice is explicit configuration threaded in at construction, never an
// ambient lookup.
func New(cfg *Config) (Masker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var m Masker
	switch cfg.Engine {
	case EngineLegacy:
		m = newLegacyMasker(cfg)
	case EngineModern:
		m = newModernMasker(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}

	if cfg.BuiltinEncoders {
		for _, enc := range BuiltinEncoders() {
			m.AddValueEncoder(enc)
		}
	}
	return m, nil
}

// MustNew builds an engine from cfg, panicking on error.
func MustNew(cfg *Config) Masker {
	m, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return m
}

// span tracks a half-open [start, end) range to redact.
type span struct {
	start, end int
	literal    bool
}

// mergeSpans merges overlapping or adjacent spans. Input must be sorted by
// start position ascending.
func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return spans
	}
	merged := []span{spans[0]}
	for i := 1; i < len(spans); i++ {
		last := &merged[len(merged)-1]
		curr := spans[i]
		if curr.start <= last.end {
			if curr.end > last.end {
				last.end = curr.end
			}
			last.literal = last.literal || curr.literal
		} else {
			merged = append(merged, curr)
		}
	}
	return merged
}

// applySpans replaces each span in input with RedactionToken. Spans are
// merged first, then applied back to front to preserve indices.
func applySpans(input string, spans []span) string {
	if len(spans) == 0 {
		return input
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := mergeSpans(spans)

	out := input
	for i := len(merged) - 1; i >= 0; i-- {
		r := merged[i]
		if r.start < 0 || r.end > len(out) || r.start >= r.end {
			continue
		}
		out = out[:r.start] + RedactionToken + out[r.end:]
	}
	return out
}

// overlapsLiteral reports whether [start, end) intersects any literal span.
func overlapsLiteral(spans []span, start, end int) bool {
	for _, s := range spans {
		if s.literal && start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// clampMinLength applies the engine-wide floor policy: negative values
// clamp to zero, values above the limit clamp to the limit.
func clampMinLength(n int) int {
	if n < 0 {
		return 0
	}
	if n > MinSecretLengthLimit {
		return MinSecretLengthLimit
	}
	return n
}
