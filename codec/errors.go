package codec

import "errors"

// Sentinel errors for codec operations.
// These errors enable reliable error classification using errors.Is().

// Configuration errors.
var (
	// ErrInvalidConfig indicates a configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid codec configuration")
)

// Encode errors.
var (
	// ErrNilFrame indicates a nil or empty frame was passed to Encode.
	ErrNilFrame = errors.New("nil or empty frame")

	// ErrUnsupportedFormat indicates a frame that is not I420.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrDimensionMismatch indicates a frame whose size differs from the
	// configured resolution.
	ErrDimensionMismatch = errors.New("frame dimensions do not match configuration")
)

// Decode errors.
var (
	// ErrTruncatedPayload indicates a stream shorter than its header declares.
	ErrTruncatedPayload = errors.New("truncated frame payload")

	// ErrNoReference indicates a P-frame arrived before any I-frame.
	ErrNoReference = errors.New("predicted frame without reference")
)
