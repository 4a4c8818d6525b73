package masker

import "errors"

// Error messages in this package are value-blind: they never carry secret
// values, pattern text, or scanned input.
var (
	// ErrUnknownEngine indicates an unrecognized engine name in config.
	ErrUnknownEngine = errors.New("unknown masking engine")

	// ErrInvalidRule indicates a detection rule failed validation.
	ErrInvalidRule = errors.New("invalid detection rule")

	// ErrInvalidAllowList indicates an allow list pattern failed to compile.
	ErrInvalidAllowList = errors.New("invalid allow list pattern")

	// ErrInvalidTOML indicates an allowlist file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")

	// ErrNotCloneable indicates the wrapped engine does not support
	// snapshot copies.
	ErrNotCloneable = errors.New("engine does not support clone")
)
