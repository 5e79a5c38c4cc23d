package transport

import (
	"errors"
	"fmt"

	"github.com/pion/rtp"
)

// RTP framing constants.
const (
	// RTPPayloadType is the dynamic payload type used for codec packets.
	RTPPayloadType = 96
	// RTPClockRate is the video RTP clock.
	RTPClockRate = 90000
	// RTPHeaderSize is the fixed RTP header without CSRCs or extensions.
	RTPHeaderSize = 12
)

var (
	// ErrUnexpectedPayloadType indicates an RTP packet of another type.
	ErrUnexpectedPayloadType = errors.New("unexpected RTP payload type")

	// ErrSSRCMismatch indicates an RTP packet whose SSRC disagrees with the
	// stream id it carries.
	ErrSSRCMismatch = errors.New("RTP SSRC does not match stream id")
)

// RTPPacketizer wraps fragments in RTP packets. Each RTP payload is a
// serialized Packet, so receivers reassemble with the same JitterBuffer.
// The SSRC is the stream id; the marker bit flags a frame's last fragment.
type RTPPacketizer struct {
	ssrc           uint32
	sequenceNumber uint16
}

// NewRTPPacketizer returns a packetizer for stream ssrc.
func NewRTPPacketizer(ssrc uint32) *RTPPacketizer {
	return &RTPPacketizer{ssrc: ssrc, sequenceNumber: 1}
}

// RTPTimestamp converts microseconds to the 90 kHz RTP clock, wrapping at
// 32 bits.
func RTPTimestamp(timestampUS uint64) uint32 {
	return uint32(timestampUS * RTPClockRate / 1000000)
}

// Packetize serializes p inside an RTP packet and advances the sequence
// number.
func (rp *RTPPacketizer) Packetize(p *Packet) ([]byte, error) {
	payload, err := p.Serialize()
	if err != nil {
		return nil, err
	}
	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         p.PacketID == p.TotalPackets-1,
			PayloadType:    RTPPayloadType,
			SequenceNumber: rp.sequenceNumber,
			Timestamp:      RTPTimestamp(p.TimestampUS),
			SSRC:           rp.ssrc,
		},
		Payload: payload,
	}
	data, err := packet.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RTP packet: %w", err)
	}
	rp.sequenceNumber++
	return data, nil
}

// SequenceNumber returns the sequence number of the next packet.
func (rp *RTPPacketizer) SequenceNumber() uint16 { return rp.sequenceNumber }

// ParseRTP unwraps an RTP datagram produced by RTPPacketizer.
func ParseRTP(data []byte) (*Packet, *rtp.Header, error) {
	packet := &rtp.Packet{}
	if err := packet.Unmarshal(data); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}
	if packet.PayloadType != RTPPayloadType {
		return nil, nil, fmt.Errorf("payload type %d: %w", packet.PayloadType, ErrUnexpectedPayloadType)
	}
	p, err := ParsePacket(packet.Payload)
	if err != nil {
		return nil, nil, err
	}
	if p.StreamID != packet.SSRC {
		return nil, nil, fmt.Errorf("ssrc %d, stream %d: %w", packet.SSRC, p.StreamID, ErrSSRCMismatch)
	}
	return p, &packet.Header, nil
}
