package masker

import (
	"strings"
	"testing"
)

func benchInput() string {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("2026-01-12T09:41:07Z step 14 uploading artifact chunk, retrying with backoff\n")
	}
	sb.WriteString("auth header uses supersecret-bench-value-123\n")
	return sb.String()
}

func BenchmarkMaskSecrets_Legacy(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Engine = EngineLegacy
	m := MustNew(cfg)
	m.AddValue("supersecret-bench-value-123")
	input := benchInput()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MaskSecrets(input)
	}
}

func BenchmarkMaskSecrets_Modern(b *testing.B) {
	m := MustNew(nil)
	m.AddValue("supersecret-bench-value-123")
	input := benchInput()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MaskSecrets(input)
	}
}

func BenchmarkMaskSecrets_ModernParallel(b *testing.B) {
	m := MustNew(nil)
	m.AddValue("supersecret-bench-value-123")
	input := benchInput()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.MaskSecrets(input)
		}
	})
}

func BenchmarkMaskSecrets_NoFindings(b *testing.B) {
	m := MustNew(nil)
	m.AddValue("supersecret-bench-value-123")
	input := strings.Repeat("an ordinary log line with nothing sensitive in it\n", 50)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.MaskSecrets(input)
	}
}
