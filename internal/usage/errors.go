package usage

import "errors"

// Sentinel errors for usage model parsing.
var (
	// ErrUnknownScale indicates an unsupported sampling scale string.
	ErrUnknownScale = errors.New("usage: unknown scale")

	// ErrUnknownMode indicates an unsupported normalization mode string.
	ErrUnknownMode = errors.New("usage: unknown normalization mode")

	// ErrMalformed indicates a usage response that cannot be expanded.
	ErrMalformed = errors.New("usage: malformed response")
)
