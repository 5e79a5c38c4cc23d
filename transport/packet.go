package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/opd-ai/telecodec/limits"
)

// HeaderSize is the serialized size of a PacketHeader.
const HeaderSize = 24

var (
	// ErrPacketTooShort indicates a datagram smaller than HeaderSize.
	ErrPacketTooShort = errors.New("packet too short")

	// ErrPayloadSizeMismatch indicates a payload_size field that disagrees
	// with the datagram length.
	ErrPayloadSizeMismatch = errors.New("packet payload size mismatch")

	// ErrBadPacketIndex indicates packet_id outside [0, total_packets).
	ErrBadPacketIndex = errors.New("packet index out of range")
)

// PacketHeader precedes every fragment of a frame on the wire.
type PacketHeader struct {
	StreamID     uint32
	FrameID      uint32
	PacketID     uint16
	TotalPackets uint16
	PayloadSize  uint32
	TimestampUS  uint64
}

// Packet is one MTU-sized fragment of a framed payload.
type Packet struct {
	PacketHeader
	Payload []byte
}

// Serialize converts a packet to a byte slice for transmission.
func (p *Packet) Serialize() ([]byte, error) {
	if p.Payload == nil {
		return nil, errors.New("packet payload is nil")
	}

	// Format: [stream u32][frame u32][packet u16][total u16][size u32][ts u64][payload]
	result := make([]byte, HeaderSize+len(p.Payload))
	binary.LittleEndian.PutUint32(result[0:4], p.StreamID)
	binary.LittleEndian.PutUint32(result[4:8], p.FrameID)
	binary.LittleEndian.PutUint16(result[8:10], p.PacketID)
	binary.LittleEndian.PutUint16(result[10:12], p.TotalPackets)
	binary.LittleEndian.PutUint32(result[12:16], uint32(len(p.Payload)))
	binary.LittleEndian.PutUint64(result[16:24], p.TimestampUS)
	copy(result[HeaderSize:], p.Payload)

	return result, nil
}

// ParsePacket converts a datagram to a Packet. The payload is copied.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%d bytes: %w", len(data), ErrPacketTooShort)
	}
	h := PacketHeader{
		StreamID:     binary.LittleEndian.Uint32(data[0:4]),
		FrameID:      binary.LittleEndian.Uint32(data[4:8]),
		PacketID:     binary.LittleEndian.Uint16(data[8:10]),
		TotalPackets: binary.LittleEndian.Uint16(data[10:12]),
		PayloadSize:  binary.LittleEndian.Uint32(data[12:16]),
		TimestampUS:  binary.LittleEndian.Uint64(data[16:24]),
	}
	if int(h.PayloadSize) != len(data)-HeaderSize {
		return nil, fmt.Errorf("frame %d packet %d: header says %d bytes, got %d: %w",
			h.FrameID, h.PacketID, h.PayloadSize, len(data)-HeaderSize, ErrPayloadSizeMismatch)
	}
	if h.PacketID >= h.TotalPackets {
		return nil, fmt.Errorf("frame %d packet %d of %d: %w",
			h.FrameID, h.PacketID, h.TotalPackets, ErrBadPacketIndex)
	}

	packet := &Packet{
		PacketHeader: h,
		Payload:      make([]byte, len(data)-HeaderSize),
	}
	copy(packet.Payload, data[HeaderSize:])

	return packet, nil
}

// Fragment splits payload into packets whose serialized size is at most
// mtu. Every packet carries the same stream, frame and timestamp fields.
func Fragment(streamID, frameID uint32, timestampUS uint64, payload []byte, mtu int) ([]*Packet, error) {
	if err := limits.ValidateMTU(mtu, HeaderSize); err != nil {
		return nil, err
	}
	if err := limits.ValidateFramePayload(payload); err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameID, err)
	}
	chunk := mtu - HeaderSize
	n := limits.PacketCount(len(payload), chunk)
	if n > limits.MaxPacketsPerFrame {
		return nil, fmt.Errorf("frame %d needs %d packets: %w", frameID, n, limits.ErrPayloadTooLarge)
	}

	packets := make([]*Packet, n)
	for i := 0; i < n; i++ {
		start := i * chunk
		end := min(start+chunk, len(payload))
		packets[i] = &Packet{
			PacketHeader: PacketHeader{
				StreamID:     streamID,
				FrameID:      frameID,
				PacketID:     uint16(i),
				TotalPackets: uint16(n),
				PayloadSize:  uint32(end - start),
				TimestampUS:  timestampUS,
			},
			Payload: payload[start:end],
		}
	}
	return packets, nil
}
