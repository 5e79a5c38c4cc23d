package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/limits"
)

func testEncodedFrame(id uint32, mv, coeff int) *codec.EncodedFrame {
	h := bitstream.FrameHeader{
		Type:        bitstream.FrameP,
		FrameID:     id,
		TimestampUS: uint64(id) * 33333,
		QP:          28,
		MVBytes:     uint32(mv),
		CoeffBytes:  uint32(coeff),
	}
	raw := sequentialBytes(mv + coeff)
	for i := range raw {
		raw[i] += byte(id)
	}
	return codec.FromHeader(h, raw)
}

func TestNewStreamID(t *testing.T) {
	seen := make(map[uint32]bool)
	for i := 0; i < 16; i++ {
		id := NewStreamID()
		assert.NotZero(t, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestUDPLoopback(t *testing.T) {
	for _, useRTP := range []bool{false, true} {
		name := "plain"
		if useRTP {
			name = "rtp"
		}
		t.Run(name, func(t *testing.T) {
			rcfg := DefaultReceiverConfig()
			rcfg.RTP = useRTP
			receiver, err := Listen("127.0.0.1:0", rcfg)
			require.NoError(t, err)
			defer receiver.Close()

			scfg := DefaultSenderConfig()
			scfg.MTU = 300
			scfg.StreamID = 42
			scfg.RTP = useRTP
			sender, err := Dial(receiver.LocalAddr().String(), scfg)
			require.NoError(t, err)
			defer sender.Close()
			assert.Equal(t, uint32(42), sender.StreamID())

			received := make(chan *codec.EncodedFrame, 8)
			ctx, cancel := context.WithCancel(context.Background())
			runErr := make(chan error, 1)
			go func() {
				runErr <- receiver.Run(ctx, func(ef *codec.EncodedFrame) { received <- ef })
			}()

			sent := map[uint32]*codec.EncodedFrame{
				0: testEncodedFrame(0, 0, 700),
				1: testEncodedFrame(1, 64, 900),
				2: testEncodedFrame(2, 64, 10),
			}
			for id := uint32(0); id < 3; id++ {
				require.NoError(t, sender.SendFrame(sent[id]))
			}

			for i := 0; i < len(sent); i++ {
				select {
				case ef := <-received:
					want := sent[ef.FrameID]
					require.NotNil(t, want)
					assert.Equal(t, want.Header(), ef.Header())
					assert.Equal(t, want.RawBytes, ef.RawBytes)
					assert.Equal(t, want.MVBytes, ef.MVBytes)
				case <-time.After(2 * time.Second):
					t.Fatalf("timed out waiting for frame %d", i)
				}
			}

			stats := sender.Stats()
			assert.Equal(t, uint64(3), stats.Frames)
			assert.Greater(t, stats.Packets, uint64(3))
			assert.Equal(t, uint64(3), receiver.Jitter().Stats().Completed)

			cancel()
			select {
			case err := <-runErr:
				assert.NoError(t, err)
			case <-time.After(time.Second):
				t.Fatal("receive loop did not stop")
			}
		})
	}
}

func TestReceiverIgnoresGarbage(t *testing.T) {
	receiver, err := Listen("127.0.0.1:0", DefaultReceiverConfig())
	require.NoError(t, err)
	defer receiver.Close()

	sender, err := Dial(receiver.LocalAddr().String(), DefaultSenderConfig())
	require.NoError(t, err)
	defer sender.Close()

	received := make(chan *codec.EncodedFrame, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go receiver.Run(ctx, func(ef *codec.EncodedFrame) { received <- ef })

	_, err = sender.conn.WriteTo([]byte("not a packet"), sender.remote)
	require.NoError(t, err)
	require.NoError(t, sender.SendFrame(testEncodedFrame(5, 0, 20)))

	select {
	case ef := <-received:
		assert.Equal(t, uint32(5), ef.FrameID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestSenderErrors(t *testing.T) {
	receiver, err := Listen("127.0.0.1:0", DefaultReceiverConfig())
	require.NoError(t, err)
	defer receiver.Close()
	addr := receiver.LocalAddr().String()

	cfg := DefaultSenderConfig()
	cfg.MTU = HeaderSize + RTPHeaderSize
	cfg.RTP = true
	_, err = Dial(addr, cfg)
	assert.ErrorIs(t, err, limits.ErrMTUTooSmall)

	_, err = Dial("not an address", DefaultSenderConfig())
	assert.Error(t, err)

	sender, err := Dial(addr, DefaultSenderConfig())
	require.NoError(t, err)
	assert.NotZero(t, sender.StreamID())
	require.NoError(t, sender.Close())
	require.NoError(t, sender.Close())
	assert.ErrorIs(t, sender.SendFrame(testEncodedFrame(0, 0, 10)), ErrClosed)
}
