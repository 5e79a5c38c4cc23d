// Package limits provides centralized size limits for frames, payloads and
// network packets. This ensures consistent validation across the codec,
// the bitstream container and the transport.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxDimension is the largest frame width or height. Headers store
	// dimensions as 16-bit fields.
	MaxDimension = 65535

	// MaxFPS is the largest nominal frame rate. The file header stores it in
	// one byte.
	MaxFPS = 255

	// DefaultMTU is the datagram size used by the UDP transport.
	DefaultMTU = 1200

	// MaxDatagram is the largest UDP payload accepted from the network.
	MaxDatagram = 65507

	// MaxFramePayload is the absolute maximum for one encoded frame.
	// This prevents memory exhaustion from corrupt length fields (64MB limit)
	MaxFramePayload = 64 * 1024 * 1024

	// MaxPacketsPerFrame is bounded by the 16-bit packet count field.
	MaxPacketsPerFrame = 65535
)

var (
	// ErrInvalidDimensions indicates a zero, negative or oversized frame size.
	ErrInvalidDimensions = errors.New("invalid frame dimensions")

	// ErrPayloadEmpty indicates an empty payload was provided
	ErrPayloadEmpty = errors.New("empty payload")

	// ErrPayloadTooLarge indicates a payload exceeds its maximum size
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrMTUTooSmall indicates an MTU that cannot carry a header and one byte.
	ErrMTUTooSmall = errors.New("mtu too small")

	// ErrInvalidFPS indicates a frame rate outside [1, MaxFPS].
	ErrInvalidFPS = errors.New("invalid frame rate")
)

// ValidateDimensions checks that width and height are in [1, MaxDimension].
func ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return nil
}

// ValidateFPS checks a nominal frame rate.
func ValidateFPS(fps int) error {
	if fps <= 0 || fps > MaxFPS {
		return fmt.Errorf("%w: %d", ErrInvalidFPS, fps)
	}
	return nil
}

// ValidatePayloadSize validates data against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidatePayloadSize(data []byte, maxSize int) error {
	if len(data) == 0 {
		return ErrPayloadEmpty
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPayloadTooLarge, len(data), maxSize)
	}
	return nil
}

// ValidateFramePayload validates an encoded frame against MaxFramePayload.
func ValidateFramePayload(data []byte) error {
	return ValidatePayloadSize(data, MaxFramePayload)
}

// ValidateMTU checks that an MTU leaves room for at least one payload byte
// after a header of headerSize bytes, and that it fits in a datagram.
func ValidateMTU(mtu, headerSize int) error {
	if mtu <= headerSize {
		return fmt.Errorf("%w: %d bytes with a %d byte header", ErrMTUTooSmall, mtu, headerSize)
	}
	if mtu > MaxDatagram {
		return fmt.Errorf("%w: mtu %d exceeds datagram limit %d", ErrPayloadTooLarge, mtu, MaxDatagram)
	}
	return nil
}

// PacketCount returns how many packets of chunk payload bytes carry size
// bytes. Empty payloads still take one packet.
func PacketCount(size, chunk int) int {
	if size <= 0 || chunk <= 0 {
		return 1
	}
	return (size + chunk - 1) / chunk
}
