package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/container"
)

func TestParseCLIFlags(t *testing.T) {
	config, err := parseCLIFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "synthetic", config.input)
	assert.Equal(t, "output.bin", config.output)
	assert.Equal(t, 640, config.width)
	assert.Equal(t, 480, config.height)
	assert.Equal(t, 28, config.qp)
	assert.Equal(t, 30, config.gop)
	assert.Equal(t, 100, config.maxFrames)

	config, err = parseCLIFlags([]string{"-w", "64", "-h", "32", "-n", "7", "-zstd", "-diamond"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 64, config.width)
	assert.Equal(t, 32, config.height)
	assert.Equal(t, 7, config.maxFrames)
	assert.True(t, config.compress)
	assert.True(t, config.diamond)

	_, err = parseCLIFlags([]string{"-bogus"}, io.Discard)
	assert.Error(t, err)
}

func TestValidateCLIConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*CLIConfig) {}},
		{name: "empty output", mutate: func(c *CLIConfig) { c.output = "" }, wantErr: true},
		{name: "zero frames", mutate: func(c *CLIConfig) { c.maxFrames = 0 }, wantErr: true},
		{name: "negative gop", mutate: func(c *CLIConfig) { c.gop = -1 }, wantErr: true},
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

func TestRunSynthetic(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "zstd"}[compress], func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.bin")
			config, err := parseCLIFlags([]string{"-w", "64", "-h", "48", "-n", "5", "-gop", "3", "-o", out}, io.Discard)
			require.NoError(t, err)
			config.compress = compress

			count, err := run(context.Background(), config)
			require.NoError(t, err)
			assert.Equal(t, 5, count)

			r, err := container.Open(out)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, compress, r.Compressed())
			assert.Equal(t, uint16(64), r.Header().Width)
			assert.Equal(t, uint16(48), r.Header().Height)

			var types []bitstream.FrameType
			for ef, err := range r.All() {
				require.NoError(t, err)
				types = append(types, ef.Type)
			}
			assert.Equal(t, []bitstream.FrameType{
				bitstream.FrameI, bitstream.FrameP, bitstream.FrameP, bitstream.FrameI, bitstream.FrameP,
			}, types)
		})
	}
}

func TestRunMissingInput(t *testing.T) {
	config, err := parseCLIFlags([]string{"-i", filepath.Join(t.TempDir(), "missing.yuv"), "-w", "16", "-h", "16"}, io.Discard)
	require.NoError(t, err)
	_, err = run(context.Background(), config)
	assert.Error(t, err)
}
