package codec

import (
	"fmt"

	"github.com/opd-ai/telecodec/bitstream"
)

// EncodedFrame is the output of encoding one input frame.
type EncodedFrame struct {
	Type        bitstream.FrameType
	FrameID     uint32
	TimestampUS uint64
	// QP is the rate controller's recommendation after this frame. It is
	// reported, not used for quantization.
	QP uint8

	// MVBytes is the motion-vector stream, empty for I-frames.
	MVBytes []byte
	// CoeffBytes is the coefficient stream.
	CoeffBytes []byte
	// RawBytes is MVBytes followed by CoeffBytes. Both streams alias it.
	RawBytes []byte
}

// TotalBytes returns the size of both streams.
func (f *EncodedFrame) TotalBytes() int {
	return len(f.MVBytes) + len(f.CoeffBytes)
}

// Header returns the bitstream frame header describing f.
func (f *EncodedFrame) Header() bitstream.FrameHeader {
	return bitstream.FrameHeader{
		Type:        f.Type,
		FrameID:     f.FrameID,
		TimestampUS: f.TimestampUS,
		QP:          f.QP,
		MVBytes:     uint32(len(f.MVBytes)),
		CoeffBytes:  uint32(len(f.CoeffBytes)),
	}
}

// Framed returns the frame header followed by RawBytes. This is the unit
// carried by the transport, since the header is needed to split the streams.
func (f *EncodedFrame) Framed() []byte {
	h := f.Header()
	out := make([]byte, 0, bitstream.FrameHeaderSize+len(f.RawBytes))
	out = h.AppendTo(out)
	return append(out, f.RawBytes...)
}

// ParseFramed splits a header-prefixed payload produced by Framed.
func ParseFramed(data []byte) (*EncodedFrame, error) {
	h, err := bitstream.ParseFrameHeader(data)
	if err != nil {
		return nil, err
	}
	raw := data[bitstream.FrameHeaderSize:]
	if len(raw) < h.PayloadSize() {
		return nil, fmt.Errorf("frame %d: have %d payload bytes, header declares %d: %w",
			h.FrameID, len(raw), h.PayloadSize(), ErrTruncatedPayload)
	}
	return FromHeader(h, raw[:h.PayloadSize()]), nil
}

// FromHeader rebuilds an EncodedFrame from a header and its payload. raw must
// hold at least h.PayloadSize() bytes; the streams alias it.
func FromHeader(h bitstream.FrameHeader, raw []byte) *EncodedFrame {
	mvEnd := int(h.MVBytes)
	return &EncodedFrame{
		Type:        h.Type,
		FrameID:     h.FrameID,
		TimestampUS: h.TimestampUS,
		QP:          h.QP,
		MVBytes:     raw[:mvEnd:mvEnd],
		CoeffBytes:  raw[mvEnd:h.PayloadSize()],
		RawBytes:    raw[:h.PayloadSize()],
	}
}
