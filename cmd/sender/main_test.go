package main

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/transport"
)

func TestParseCLIFlags(t *testing.T) {
	config, err := parseCLIFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", config.input)
	assert.Equal(t, "127.0.0.1", config.host)
	assert.Equal(t, uint(5000), config.port)
	assert.Equal(t, 300, config.maxFrames)
	assert.Equal(t, 1200, config.mtu)
	assert.False(t, config.rtp)
}

func TestValidateCLIConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*CLIConfig) {}},
		{name: "port zero", mutate: func(c *CLIConfig) { c.port = 0 }, wantErr: true},
		{name: "port over 65535", mutate: func(c *CLIConfig) { c.port = 70000 }, wantErr: true},
		{name: "empty host", mutate: func(c *CLIConfig) { c.host = "" }, wantErr: true},
		{name: "zero frames", mutate: func(c *CLIConfig) { c.maxFrames = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := parseCLIFlags(nil, io.Discard)
			require.NoError(t, err)
			tt.mutate(config)
			err = validateCLIConfig(config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunStreamsFrames(t *testing.T) {
	for _, useRTP := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "rtp"}[useRTP], func(t *testing.T) {
			rcfg := transport.DefaultReceiverConfig()
			rcfg.RTP = useRTP
			receiver, err := transport.Listen("127.0.0.1:0", rcfg)
			require.NoError(t, err)
			defer receiver.Close()

			var mu sync.Mutex
			var got []*codec.EncodedFrame
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go receiver.Run(ctx, func(ef *codec.EncodedFrame) {
				mu.Lock()
				got = append(got, ef)
				mu.Unlock()
			})

			config, err := parseCLIFlags([]string{
				"-w", "32", "-height", "32", "-fps", "100", "-n", "3", "-stream", "9", "-mtu", "300",
			}, io.Discard)
			require.NoError(t, err)
			config.port = uint(receiver.LocalAddr().(*net.UDPAddr).Port)
			config.rtp = useRTP

			sent, err := run(context.Background(), config)
			require.NoError(t, err)
			assert.Equal(t, 3, sent)

			assert.Eventually(t, func() bool {
				mu.Lock()
				defer mu.Unlock()
				return len(got) == 3
			}, 2*time.Second, 10*time.Millisecond)

			mu.Lock()
			defer mu.Unlock()
			require.Len(t, got, 3)
			assert.Equal(t, bitstream.FrameI, got[0].Type)
			for i, ef := range got {
				assert.Equal(t, uint32(i), ef.FrameID)
			}
		})
	}
}
