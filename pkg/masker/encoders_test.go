package masker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func builtinByName(t *testing.T, name string) ValueEncoder {
	t.Helper()
	for _, enc := range BuiltinEncoders() {
		if enc.Name == name {
			return enc
		}
	}
	t.Fatalf("no builtin encoder %q", name)
	return ValueEncoder{}
}

func TestBuiltinEncoders(t *testing.T) {
	t.Run("backslash escape", func(t *testing.T) {
		enc := builtinByName(t, "backslash-escape")
		assert.Equal(t, `Mask\\This`, enc.Encode(`Mask\This`))
		assert.Equal(t, `line\nbreak`, enc.Encode("line\nbreak"))
	})

	t.Run("percent encode", func(t *testing.T) {
		enc := builtinByName(t, "percent-encode")
		assert.Equal(t, "secret+value%21", enc.Encode("secret value!"))
	})

	t.Run("percent encode space variant", func(t *testing.T) {
		enc := builtinByName(t, "percent-encode-space")
		assert.Equal(t, "secret%20value%21", enc.Encode("secret value!"))
	})

	t.Run("json escape", func(t *testing.T) {
		enc := builtinByName(t, "json-escape")
		assert.Equal(t, `pa\"ss\\word`, enc.Encode(`pa"ss\word`))
	})

	t.Run("base64", func(t *testing.T) {
		enc := builtinByName(t, "base64")
		assert.Equal(t, "c3VwZXJzZWNyZXQxMjM=", enc.Encode("supersecret123"))
	})

	t.Run("all builtins are pure", func(t *testing.T) {
		for _, enc := range BuiltinEncoders() {
			require.NotNil(t, enc.Encode, enc.Name)
			first := enc.Encode("fixed input")
			second := enc.Encode("fixed input")
			assert.Equal(t, first, second, enc.Name)
		}
	})
}

func TestEncodedForm(t *testing.T) {
	t.Run("nil encode returns empty", func(t *testing.T) {
		assert.Empty(t, encodedForm(ValueEncoder{Name: "nil"}, "value"))
	})

	t.Run("identity encoding is dropped", func(t *testing.T) {
		enc := ValueEncoder{Name: "id", Encode: func(s string) string { return s }}
		assert.Empty(t, encodedForm(enc, "value"))
	})

	t.Run("differing encoding is kept", func(t *testing.T) {
		enc := builtinByName(t, "base64")
		assert.NotEmpty(t, encodedForm(enc, "value"))
	})
}
