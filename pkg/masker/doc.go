// Package masker detects and irreversibly redacts secret values from text
// produced during job execution, before that text reaches logs or any
// external observer.
//
// Callers register secret literals, regex patterns, and value encoders into
// a Masker (wrapping one of two interchangeable engines chosen at startup),
// then route all output text through MaskSecrets. Registered literals are
// also masked when they appear in backslash-escaped, percent-escaped,
// JSON-escaped, or base64 form.
//
// Nothing in this package ever writes a secret value, pattern text, or
// scanned input to a log, an error message, or a telemetry event.
package masker
