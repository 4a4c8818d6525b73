package masker

import (
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"
)

// ValueEncoder derives an encoded form of a registered literal so that
// encoded appearances of the secret are masked too. Encode must be a pure
// function.
type ValueEncoder struct {
	// Name identifies the encoder in diagnostics. Never the payload.
	Name string

	// Encode maps a literal to its derived form. A result equal to the
	// input is ignored.
	Encode func(string) string
}

var backslashReplacer = strings.NewReplacer(
	`\`, `\\`,
	"\t", `\t`,
	"\r", `\r`,
	"\n", `\n`,
)

// BuiltinEncoders returns the standard escape encoders registered by New:
// secrets frequently reach log streams after a layer of shell, URI, or
// JSON escaping, and must still be redacted there.
func BuiltinEncoders() []ValueEncoder {
	return []ValueEncoder{
		{
			Name:   "backslash-escape",
			Encode: backslashReplacer.Replace,
		},
		{
			Name: "percent-encode",
			Encode: func(s string) string {
				return url.QueryEscape(s)
			},
		},
		{
			Name: "percent-encode-space",
			Encode: func(s string) string {
				// Variant that keeps spaces as %20 rather than '+'.
				return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
			},
		},
		{
			Name: "json-escape",
			Encode: func(s string) string {
				data, err := json.Marshal(s)
				if err != nil || len(data) < 2 {
					return s
				}
				// Strip the surrounding quotes added by Marshal.
				return string(data[1 : len(data)-1])
			},
		},
		{
			Name: "base64",
			Encode: func(s string) string {
				return base64.StdEncoding.EncodeToString([]byte(s))
			},
		},
	}
}

// encodedForm applies enc to value and reports the derived form, or ""
// when the encoding does not differ from the original.
func encodedForm(enc ValueEncoder, value string) string {
	if enc.Encode == nil {
		return ""
	}
	derived := enc.Encode(value)
	if derived == "" || derived == value {
		return ""
	}
	return derived
}
