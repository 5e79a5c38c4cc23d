package transport

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRTPTimestamp(t *testing.T) {
	assert.Equal(t, uint32(0), RTPTimestamp(0))
	assert.Equal(t, uint32(90000), RTPTimestamp(1000000))
	assert.Equal(t, uint32(2999), RTPTimestamp(33333))
}

func TestRTPPacketizeRoundTrip(t *testing.T) {
	packets, _ := fragments(t, 77, 3, 300, 124)
	require.Len(t, packets, 3)

	rp := NewRTPPacketizer(77)
	assert.Equal(t, uint16(1), rp.SequenceNumber())

	jb, _ := newTestJitter(t, DefaultJitterConfig())
	var done *Frame
	for i, p := range packets {
		data, err := rp.Packetize(p)
		require.NoError(t, err)

		var raw rtp.Packet
		require.NoError(t, raw.Unmarshal(data))
		assert.Equal(t, uint8(2), raw.Version)
		assert.Equal(t, uint8(RTPPayloadType), raw.PayloadType)
		assert.Equal(t, uint16(i+1), raw.SequenceNumber)
		assert.Equal(t, uint32(77), raw.SSRC)
		assert.Equal(t, RTPTimestamp(p.TimestampUS), raw.Timestamp)
		assert.Equal(t, i == len(packets)-1, raw.Marker, "marker flags the last fragment")

		got, header, err := ParseRTP(data)
		require.NoError(t, err)
		assert.Equal(t, raw.SequenceNumber, header.SequenceNumber)
		assert.Equal(t, p.PacketHeader, got.PacketHeader)
		assert.Equal(t, p.Payload, got.Payload)

		if f, ok := jb.Push(got); ok {
			done = f
		}
	}
	assert.Equal(t, uint16(4), rp.SequenceNumber())
	require.NotNil(t, done)
	assert.Equal(t, uint32(3), done.FrameID)
}

func TestParseRTPErrors(t *testing.T) {
	packets, _ := fragments(t, 5, 1, 10, 124)
	inner, err := packets[0].Serialize()
	require.NoError(t, err)

	marshal := func(pt uint8, ssrc uint32, payload []byte) []byte {
		p := &rtp.Packet{
			Header:  rtp.Header{Version: 2, PayloadType: pt, SequenceNumber: 1, SSRC: ssrc},
			Payload: payload,
		}
		data, err := p.Marshal()
		require.NoError(t, err)
		return data
	}

	_, _, err = ParseRTP([]byte{0x80})
	assert.Error(t, err)

	_, _, err = ParseRTP(marshal(97, 5, inner))
	assert.ErrorIs(t, err, ErrUnexpectedPayloadType)

	_, _, err = ParseRTP(marshal(RTPPayloadType, 6, inner))
	assert.ErrorIs(t, err, ErrSSRCMismatch)

	_, _, err = ParseRTP(marshal(RTPPayloadType, 5, inner[:10]))
	assert.ErrorIs(t, err, ErrPacketTooShort)
}
