package masker

import (
	"fmt"
	"sync"
)

// TraceSink receives registration diagnostics from a LoggedMasker. The
// engine guarantees it only ever passes origin tags and generic notices,
// never secret values, pattern text, or scanned input.
type TraceSink interface {
	Info(msg string)
}

// TraceFunc adapts a plain function to a TraceSink.
type TraceFunc func(msg string)

// Info implements TraceSink.
func (f TraceFunc) Info(msg string) { f(msg) }

// LoggedMasker decorates a Masker with origin-tagged registration and a
// safety ceiling on the minimum secret length. It intercepts calls purely
// to emit a side-channel diagnostic, then forwards unchanged arguments:
// the "never log the payload" invariant is auditable in this one place.
type LoggedMasker struct {
	inner Masker

	mu     sync.Mutex
	sink   TraceSink
	closed bool
}

// NewLogged wraps inner. Ownership transfers: Close disposes the wrapped
// engine. No trace sink is attached initially; masking works regardless.
func NewLogged(inner Masker) *LoggedMasker {
	return &LoggedMasker{inner: inner}
}

// SetTrace replaces the diagnostic sink. Passing nil disables diagnostic
// logging entirely.
func (l *LoggedMasker) SetTrace(sink TraceSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// trace emits a diagnostic if a sink is configured.
func (l *LoggedMasker) trace(format string, args ...any) {
	l.mu.Lock()
	sink := l.sink
	l.mu.Unlock()
	if sink != nil {
		sink.Info(fmt.Sprintf(format, args...))
	}
}

// AddValue logs only the origin, never the value, then delegates.
func (l *LoggedMasker) AddValue(value, origin string) {
	if value == "" {
		l.trace("skipped empty secret value (origin: %s)", origin)
		return
	}
	l.trace("registered secret value (origin: %s)", origin)
	l.inner.AddValue(value)
}

// AddRegex logs only the origin; pattern text can itself encode sensitive
// structure and is never logged.
func (l *LoggedMasker) AddRegex(pattern, origin string) {
	if pattern == "" {
		l.trace("skipped empty secret pattern (origin: %s)", origin)
		return
	}
	l.trace("registered secret pattern (origin: %s)", origin)
	l.inner.AddRegex(pattern)
}

// AddValueEncoder logs only the origin, then delegates.
func (l *LoggedMasker) AddValueEncoder(enc ValueEncoder, origin string) {
	if enc.Encode == nil {
		l.trace("skipped nil value encoder (origin: %s)", origin)
		return
	}
	l.trace("registered value encoder %s (origin: %s)", enc.Name, origin)
	l.inner.AddValueEncoder(enc)
}

// MaskSecrets is pure delegation. It never logs: the input may itself be
// or contain a secret.
func (l *LoggedMasker) MaskSecrets(input string) string {
	return l.inner.MaskSecrets(input)
}

// MinSecretLength returns the effective length floor.
func (l *LoggedMasker) MinSecretLength() int {
	return l.inner.MinSecretLength()
}

// SetMinSecretLength delegates, clamping to MinSecretLengthLimit
// regardless of what the engine would otherwise allow.
func (l *LoggedMasker) SetMinSecretLength(n int) {
	l.inner.SetMinSecretLength(clampMinLength(n))
}

// RemoveShortSecrets logs a generic notice with no value content, then
// delegates.
func (l *LoggedMasker) RemoveShortSecrets() {
	l.trace("removing short secrets from dictionary (min length: %d)", l.inner.MinSecretLength())
	l.inner.RemoveShortSecrets()
}

// Clone wraps a snapshot of the underlying engine. The clone does NOT
// inherit the trace sink: clones are typically used for isolated
// sub-scopes and must not silently re-enable tracing against an
// unexpected sink. Returns ErrNotCloneable if the engine has no snapshot
// support.
func (l *LoggedMasker) Clone() (*LoggedMasker, error) {
	cloner, ok := l.inner.(Cloner)
	if !ok {
		return nil, ErrNotCloneable
	}
	return NewLogged(cloner.Clone()), nil
}

// Close disposes the wrapped engine. Idempotent.
func (l *LoggedMasker) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.inner.Close()
}
