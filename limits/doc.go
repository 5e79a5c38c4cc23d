// Package limits provides centralized size constants and validation functions
// for telecodec. This package ensures consistent enforcement of frame,
// payload and packet sizes across the codec, container and transport.
//
// # Size Hierarchy
//
//   - MaxDimension (65535): frame width and height are 16-bit header fields.
//
//   - DefaultMTU (1200 bytes): the UDP datagram size used by the sender. It
//     stays below common path MTUs so fragments are never split by IP.
//
//   - MaxDatagram (65507 bytes): the largest UDP payload a receiver reads.
//
//   - MaxFramePayload (64MB): the absolute maximum for one encoded frame.
//     Length fields read from files or the network are checked against it
//     before any allocation.
//
// # Validation Functions
//
//	if err := limits.ValidateDimensions(w, h); err != nil {
//	    // errors.Is(err, limits.ErrInvalidDimensions)
//	}
//
//	err := limits.ValidatePayloadSize(data, 4096)
//
// # Error Types
//
//   - ErrInvalidDimensions: zero, negative or oversized frame size
//   - ErrInvalidFPS: frame rate outside [1, MaxFPS]
//   - ErrPayloadEmpty: an empty or nil payload
//   - ErrPayloadTooLarge: payload exceeds the specified limit
//   - ErrMTUTooSmall: MTU cannot carry a packet header plus payload
package limits
