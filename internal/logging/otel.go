// internal/logging/otel.go
package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"
)

// newDualCore creates a core with stdout and/or OTEL outputs. Both paths
// encode through the masking engine.
func newDualCore(cfg *Config, m Scrubber, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	cores := make([]zapcore.Core, 0, 2)

	if cfg.Output.Stdout {
		encoder := NewMaskingEncoder(newEncoder(cfg.Format), m)
		writer := zapcore.AddSync(os.Stdout)
		cores = append(cores, zapcore.NewCore(encoder, writer, cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		otelCore := otelzap.NewCore("maskd",
			otelzap.WithLoggerProvider(otelProvider),
		)
		// The OTEL bridge bypasses the stdout encoder, so it gets its
		// own scrubbing wrapper.
		cores = append(cores, newMaskingCore(otelCore, m))
	}

	if len(cores) == 0 {
		return nil, fmt.Errorf("at least one output must be enabled and available")
	}

	if len(cores) == 1 {
		return cores[0], nil
	}
	return zapcore.NewTee(cores...), nil
}

// maskingCore scrubs entries before handing them to a core that does not
// encode through a MaskingEncoder.
type maskingCore struct {
	zapcore.Core
	masker Scrubber
}

func newMaskingCore(core zapcore.Core, m Scrubber) zapcore.Core {
	if m == nil {
		return core
	}
	return &maskingCore{Core: core, masker: m}
}

func (c *maskingCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *maskingCore) With(fields []zapcore.Field) zapcore.Core {
	return &maskingCore{Core: c.Core.With(scrubFields(c.masker, fields)), masker: c.masker}
}

func (c *maskingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = c.masker.MaskSecrets(entry.Message)
	return c.Core.Write(entry, scrubFields(c.masker, fields))
}

func scrubFields(m Scrubber, fields []zapcore.Field) []zapcore.Field {
	scrubbed := make([]zapcore.Field, len(fields))
	copy(scrubbed, fields)
	for i := range scrubbed {
		if scrubbed[i].Type == zapcore.StringType {
			scrubbed[i].String = m.MaskSecrets(scrubbed[i].String)
		}
	}
	return scrubbed
}
