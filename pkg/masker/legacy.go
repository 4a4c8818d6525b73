package masker

import (
	"regexp"
	"strings"
)

// literalPattern keeps the source text of a registered pattern alongside
// its compiled form so the length floor can be applied to patterns too.
type literalPattern struct {
	src string
	re  *regexp.Regexp
}

// legacyMasker is the original value/regex scanning engine. It keeps no
// internal lock: registration is single-writer, and concurrent scans are
// safe only against other scans. Every match redacts to the generic token.
type legacyMasker struct {
	minLen    int
	originals map[string]struct{}
	needles   map[string]struct{}
	patterns  []literalPattern
	encoders  []ValueEncoder
	closed    bool
}

func newLegacyMasker(cfg *Config) *legacyMasker {
	return &legacyMasker{
		minLen:    cfg.MinSecretLength,
		originals: make(map[string]struct{}),
		needles:   make(map[string]struct{}),
	}
}

// AddValue registers a literal and, eagerly, every encoded form the
// registered encoders produce for it.
func (m *legacyMasker) AddValue(value string) {
	if m.closed || value == "" || value == RedactionToken {
		return
	}
	m.originals[value] = struct{}{}
	m.needles[value] = struct{}{}
	for _, enc := range m.encoders {
		if derived := encodedForm(enc, value); derived != "" {
			m.needles[derived] = struct{}{}
		}
	}
}

// AddRegex compiles and registers a pattern. Empty and invalid patterns
// are ignored. This engine applies no special hardening to
// externally-supplied patterns beyond what RE2 semantics already provide.
func (m *legacyMasker) AddRegex(pattern string) {
	if m.closed || pattern == "" {
		return
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		// The failing pattern is the only one that fails to register.
		return
	}
	m.patterns = append(m.patterns, literalPattern{src: pattern, re: re})
}

// AddValueEncoder registers an encoder and eagerly re-encodes all known
// literals with it.
func (m *legacyMasker) AddValueEncoder(enc ValueEncoder) {
	if m.closed || enc.Encode == nil {
		return
	}
	m.encoders = append(m.encoders, enc)
	for value := range m.originals {
		if derived := encodedForm(enc, value); derived != "" {
			m.needles[derived] = struct{}{}
		}
	}
}

// MaskSecrets scans input against all registered literals and patterns and
// replaces every matched span with the redaction token.
func (m *legacyMasker) MaskSecrets(input string) string {
	if input == "" {
		return input
	}

	var spans []span
	for needle := range m.needles {
		spans = appendLiteralSpans(spans, input, needle)
	}
	for _, p := range m.patterns {
		for _, match := range p.re.FindAllStringIndex(input, -1) {
			spans = append(spans, span{start: match[0], end: match[1]})
		}
	}
	return applySpans(input, spans)
}

// appendLiteralSpans appends a span for every occurrence of needle.
func appendLiteralSpans(spans []span, input, needle string) []span {
	if needle == "" {
		return spans
	}
	for idx := 0; ; {
		i := strings.Index(input[idx:], needle)
		if i < 0 {
			return spans
		}
		start := idx + i
		end := start + len(needle)
		spans = append(spans, span{start: start, end: end, literal: true})
		idx = end
	}
}

func (m *legacyMasker) MinSecretLength() int { return m.minLen }

func (m *legacyMasker) SetMinSecretLength(n int) {
	if m.closed {
		return
	}
	m.minLen = clampMinLength(n)
}

// RemoveShortSecrets drops literals and patterns shorter than the length
// floor, then regenerates encoded forms from the surviving literals.
func (m *legacyMasker) RemoveShortSecrets() {
	if m.closed {
		return
	}
	for value := range m.originals {
		if len(value) < m.minLen {
			delete(m.originals, value)
		}
	}
	needles := make(map[string]struct{}, len(m.originals))
	for value := range m.originals {
		needles[value] = struct{}{}
		for _, enc := range m.encoders {
			if derived := encodedForm(enc, value); derived != "" && len(derived) >= m.minLen {
				needles[derived] = struct{}{}
			}
		}
	}
	m.needles = needles

	kept := m.patterns[:0]
	for _, p := range m.patterns {
		if len(p.src) >= m.minLen {
			kept = append(kept, p)
		}
	}
	m.patterns = kept
}

// Clone produces an independent snapshot sharing no mutable state with the
// original. Compiled regexps are shared; they are immutable.
func (m *legacyMasker) Clone() Masker {
	clone := &legacyMasker{
		minLen:    m.minLen,
		originals: make(map[string]struct{}, len(m.originals)),
		needles:   make(map[string]struct{}, len(m.needles)),
		patterns:  append([]literalPattern{}, m.patterns...),
		encoders:  append([]ValueEncoder{}, m.encoders...),
	}
	for v := range m.originals {
		clone.originals[v] = struct{}{}
	}
	for v := range m.needles {
		clone.needles[v] = struct{}{}
	}
	return clone
}

// Close marks the engine closed. Scans keep working against the state held
// at close time; further registration is ignored.
func (m *legacyMasker) Close() error {
	m.closed = true
	return nil
}

var (
	_ Masker = (*legacyMasker)(nil)
	_ Cloner = (*legacyMasker)(nil)
)
