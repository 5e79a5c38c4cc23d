// Package codec ties the block coding stages together into an Encoder and a
// Decoder.
//
// The encoding pipeline per frame:
//
//	I-frame: macroblock pixels → 8x8 transform → quantize → run/level coding
//	P-frame: motion search → compensate → luma residual → transform → quantize → run/level coding
//
// Motion vectors and coefficients go to separate byte-aligned streams. For
// transport they are concatenated as RawBytes, motion vectors first.
//
// Basic usage:
//
//	enc, err := codec.NewEncoder(codec.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	out, err := enc.Encode(yuvFrame, yuvFrame.Meta)
//
// The encoder's reference frame is the uncompressed source of the previous
// call, not a reconstruction, so an independent Decoder drifts from the
// encoder over a GOP. Rate control reports a recommended QP in each
// EncodedFrame but quantization always uses Config.QPDefault, which both
// sides must agree on.
package codec
