// internal/logging/scrub.go
package logging

import (
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/maskd/pkg/masker"
)

// Scrubber is the part of the masking engine the logging layer needs.
// Both the raw engine and the origin-tagged wrapper satisfy it.
type Scrubber interface {
	MaskSecrets(input string) string
}

// MaskingEncoder wraps a zapcore.Encoder so every log message and string
// field passes through the secret masking engine before encoding. The
// engine does the detection and redaction; this layer only routes text.
type MaskingEncoder struct {
	zapcore.Encoder
	masker Scrubber
}

// NewMaskingEncoder wraps base. A nil masker disables scrubbing (the
// encoder degrades to pass-through rather than failing).
func NewMaskingEncoder(base zapcore.Encoder, m Scrubber) *MaskingEncoder {
	return &MaskingEncoder{Encoder: base, masker: m}
}

func (e *MaskingEncoder) scrub(s string) string {
	if e.masker == nil {
		return s
	}
	return e.masker.MaskSecrets(s)
}

// AddString scrubs field values added via With().
func (e *MaskingEncoder) AddString(key, val string) {
	e.Encoder.AddString(key, e.scrub(val))
}

// AddByteString scrubs byte string field values.
func (e *MaskingEncoder) AddByteString(key string, val []byte) {
	e.Encoder.AddByteString(key, []byte(e.scrub(string(val))))
}

// EncodeEntry scrubs the message and per-call string fields. The field
// slice is copied: it may be shared with other cores in a tee.
func (e *MaskingEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	entry.Message = e.scrub(entry.Message)

	scrubbed := make([]zapcore.Field, len(fields))
	copy(scrubbed, fields)
	for i := range scrubbed {
		if scrubbed[i].Type == zapcore.StringType {
			scrubbed[i].String = e.scrub(scrubbed[i].String)
		}
	}
	return e.Encoder.EncodeEntry(entry, scrubbed)
}

// Clone creates a copy of the encoder sharing the same engine.
func (e *MaskingEncoder) Clone() zapcore.Encoder {
	return &MaskingEncoder{
		Encoder: e.Encoder.Clone(),
		masker:  e.masker,
	}
}

// TraceSink adapts a Logger into the registration diagnostic sink consumed
// by masker.LoggedMasker. Messages arrive value-blind by the engine's
// contract (origin tags and generic notices only).
func TraceSink(l *Logger) masker.TraceSink {
	return masker.TraceFunc(func(msg string) {
		l.zap.Log(TraceLevel, msg)
	})
}
