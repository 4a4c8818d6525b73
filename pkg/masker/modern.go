package masker

import (
	"regexp"
	"sync"
	"time"
)

// maxExternalPatternLength bounds patterns registered through AddRegex.
// Patterns may originate from a partially-trusted job message; RE2
// semantics already exclude backtracking, and the length bound keeps
// compiled program size in check.
const maxExternalPatternLength = 512

// modernMasker is the high-performance engine: rule-based detection with
// monikers and correlating identifiers, telemetry accounting, and a
// reader/writer lock so scans run in parallel while registration is
// exclusive.
type modernMasker struct {
	mu sync.RWMutex

	minLen    int
	originals map[string]struct{}
	needles   map[string]struct{}
	patterns  []literalPattern
	rules     []*compiledRule
	allowList []*regexp.Regexp
	encoders  []ValueEncoder
	closed    bool

	// telemetry is recorded under the read lock and therefore only ever
	// uses atomic operations internally.
	telemetry *Aggregator
}

func newModernMasker(cfg *Config) *modernMasker {
	return &modernMasker{
		minLen:    cfg.MinSecretLength,
		originals: make(map[string]struct{}),
		needles:   make(map[string]struct{}),
		rules:     cfg.compiledRules,
		allowList: cfg.compiledAllowList,
	}
}

// SetTelemetry attaches an aggregator. Every subsequent scan records its
// input size and detections. Pass nil to detach.
func (m *modernMasker) SetTelemetry(agg *Aggregator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.telemetry = agg
}

func (m *modernMasker) AddValue(value string) {
	if value == "" || value == RedactionToken {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
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

// AddRegex registers an externally-supplied pattern. Conservative by
// contract: stdlib RE2 compilation (no backtracking constructs), a length
// bound, and silent rejection of invalid syntax so one bad pattern never
// disturbs the remaining detectors.
func (m *modernMasker) AddRegex(pattern string) {
	if pattern == "" || len(pattern) > maxExternalPatternLength {
		return
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.patterns = append(m.patterns, literalPattern{src: pattern, re: re})
}

func (m *modernMasker) AddValueEncoder(enc ValueEncoder) {
	if enc.Encode == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.encoders = append(m.encoders, enc)
	for value := range m.originals {
		if derived := encodedForm(enc, value); derived != "" {
			m.needles[derived] = struct{}{}
		}
	}
}

// MaskSecrets scans input against all registered detectors.
func (m *modernMasker) MaskSecrets(input string) string {
	return m.MaskSecretsDetect(input, nil)
}

// MaskSecretsDetect scans input and invokes onDetection once per match with
// the rule moniker and, for correlating rules, a C3ID. The callback never
// sees matched text. Runs under the read lock; concurrent scans proceed in
// parallel.
func (m *modernMasker) MaskSecretsDetect(input string, onDetection func(Detection)) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.telemetry != nil {
		// Interlocked counters only: recording must never need the
		// write lock.
		m.telemetry.RecordInput(input)
		defer func(start time.Time) {
			m.telemetry.RecordElapsed(time.Since(start))
		}(time.Now())
	}
	if input == "" {
		return input
	}

	report := func(d Detection) {
		if m.telemetry != nil {
			m.telemetry.RecordDetection(d)
		}
		if onDetection != nil {
			onDetection(d)
		}
	}

	// Literal matches first: explicitly registered values take precedence
	// over rule-based detection, so a value that also matches a
	// high-confidence rule still redacts to the generic token and never
	// receives a correlating identifier.
	var spans []span
	for needle := range m.needles {
		if len(needle) < m.minLen {
			continue
		}
		before := len(spans)
		spans = appendLiteralSpans(spans, input, needle)
		for i := before; i < len(spans); i++ {
			report(Detection{Moniker: ValueMoniker})
		}
	}

	for _, p := range m.patterns {
		for _, match := range p.re.FindAllStringIndex(input, -1) {
			spans = append(spans, span{start: match[0], end: match[1]})
			report(Detection{Moniker: RegexMoniker})
		}
	}

	for _, rule := range m.rules {
		if !m.ruleApplies(rule, input) {
			continue
		}
		for _, match := range rule.pattern.FindAllStringIndex(input, -1) {
			matched := input[match[0]:match[1]]
			if rule.Entropy > 0 && shannonEntropy(matched) < rule.Entropy {
				continue
			}
			if m.isAllowed(matched) {
				continue
			}

			d := Detection{Moniker: rule.Moniker}
			if rule.Correlate && !overlapsLiteral(spans, match[0], match[1]) {
				d.C3ID = computeC3ID(matched)
			}
			spans = append(spans, span{start: match[0], end: match[1]})
			report(d)
		}
	}

	return applySpans(input, spans)
}

// ruleApplies runs the keyword prefilter.
func (m *modernMasker) ruleApplies(rule *compiledRule, input string) bool {
	if len(rule.keywords) == 0 {
		return true
	}
	for _, kw := range rule.keywords {
		if kw.MatchString(input) {
			return true
		}
	}
	return false
}

// isAllowed checks rule matches against the allow list. Explicitly
// registered literals are never allow-listed.
func (m *modernMasker) isAllowed(match string) bool {
	for _, pattern := range m.allowList {
		if pattern.MatchString(match) {
			return true
		}
	}
	return false
}

func (m *modernMasker) MinSecretLength() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minLen
}

func (m *modernMasker) SetMinSecretLength(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.minLen = clampMinLength(n)
}

// RemoveShortSecrets drops now-too-short literals and patterns. The floor
// is also enforced at scan time, but physical removal keeps the dictionary
// bounded and makes the policy observable. Two phases: a read-locked scan
// to identify candidates, then a write-locked removal, so the write lock
// is never held for the full scan.
func (m *modernMasker) RemoveShortSecrets() {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return
	}
	minLen := m.minLen
	var shortValues []string
	for value := range m.originals {
		if len(value) < minLen {
			shortValues = append(shortValues, value)
		}
	}
	var shortPatterns []string
	for _, p := range m.patterns {
		if len(p.src) < minLen {
			shortPatterns = append(shortPatterns, p.src)
		}
	}
	m.mu.RUnlock()

	if len(shortValues) == 0 && len(shortPatterns) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, value := range shortValues {
		delete(m.originals, value)
	}
	needles := make(map[string]struct{}, len(m.originals))
	for value := range m.originals {
		needles[value] = struct{}{}
		for _, enc := range m.encoders {
			if derived := encodedForm(enc, value); derived != "" {
				needles[derived] = struct{}{}
			}
		}
	}
	m.needles = needles

	drop := make(map[string]struct{}, len(shortPatterns))
	for _, src := range shortPatterns {
		drop[src] = struct{}{}
	}
	kept := m.patterns[:0]
	for _, p := range m.patterns {
		if _, short := drop[p.src]; !short {
			kept = append(kept, p)
		}
	}
	m.patterns = kept
}

// Clone produces an independent snapshot. Rules, compiled regexps, and the
// attached telemetry aggregator are shared (rules and regexps are
// immutable; telemetry accounting is process-wide). Dictionaries are
// deep-copied.
func (m *modernMasker) Clone() Masker {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clone := &modernMasker{
		minLen:    m.minLen,
		originals: make(map[string]struct{}, len(m.originals)),
		needles:   make(map[string]struct{}, len(m.needles)),
		patterns:  append([]literalPattern{}, m.patterns...),
		rules:     m.rules,
		allowList: m.allowList,
		encoders:  append([]ValueEncoder{}, m.encoders...),
		telemetry: m.telemetry,
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
// at close time; further registration is ignored. Idempotent.
func (m *modernMasker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var (
	_ Masker   = (*modernMasker)(nil)
	_ Cloner   = (*modernMasker)(nil)
	_ Detector = (*modernMasker)(nil)
)
