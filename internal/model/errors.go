package model

import "errors"

// Error taxonomy shared by induction and extraction.
// Everything except ErrInvalidConfiguration and ErrEngineUnavailable degrades gracefully.
var (
	// ErrMalformedExample indicates an empty labeled span, bad offsets or overlapping spans.
	ErrMalformedExample = errors.New("malformed example")

	// ErrInconsistentAnnotation indicates a pattern that misses its own example or hits another one.
	ErrInconsistentAnnotation = errors.New("inconsistent annotation")

	// ErrMatchTimeout indicates a pattern evaluation exceeded its deadline.
	ErrMatchTimeout = errors.New("match timeout")

	// ErrEngineCompile indicates a pattern was rejected by the active engine.
	ErrEngineCompile = errors.New("engine compile error")

	// ErrInvalidConfiguration indicates the run cannot start.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEngineUnavailable indicates an unknown or unusable matching engine.
	ErrEngineUnavailable = errors.New("engine unavailable")
)
