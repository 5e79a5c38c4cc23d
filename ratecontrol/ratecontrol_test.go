package ratecontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opd-ai/telecodec/bitstream"
)

func TestChooseFrameTypeGOP(t *testing.T) {
	c := New(DefaultConfig())
	tests := []struct {
		frameID uint32
		want    bitstream.FrameType
	}{
		{0, bitstream.FrameI},
		{1, bitstream.FrameP},
		{29, bitstream.FrameP},
		{30, bitstream.FrameI},
		{31, bitstream.FrameP},
		{60, bitstream.FrameI},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.ChooseFrameType(tt.frameID, nil), "frame %d", tt.frameID)
	}
}

func TestChooseFrameTypeWithoutGOP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GOPSize = 0
	c := New(cfg)
	assert.Equal(t, bitstream.FrameI, c.ChooseFrameType(0, nil))
	assert.Equal(t, bitstream.FrameP, c.ChooseFrameType(30, nil))
	assert.Equal(t, bitstream.FrameP, c.ChooseFrameType(1000, nil))
}

func TestForceKeyframe(t *testing.T) {
	c := New(DefaultConfig())
	prev := &FrameStats{FrameID: 4, ForceKeyframe: true}
	assert.Equal(t, bitstream.FrameI, c.ChooseFrameType(5, prev))
	prev.ForceKeyframe = false
	assert.Equal(t, bitstream.FrameP, c.ChooseFrameType(5, prev))
}

func TestChooseQPAdapts(t *testing.T) {
	// 500 kbps at 30 fps: 16666 bits per frame, band [13332, 19999].
	c := New(DefaultConfig())
	assert.Equal(t, 16666, c.TargetBitsPerFrame())

	tests := []struct {
		name string
		bits uint32
		want int
	}{
		{"over budget raises by two", 20000, 30},
		{"inside band is unchanged", 16000, 30},
		{"upper edge is inside band", 19999, 30},
		{"under budget lowers by one", 1000, 29},
		{"lower edge is inside band", 13332, 29},
		{"just under lower edge", 13331, 28},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ChooseQP(FrameStats{BitsUsed: tt.bits}))
		})
	}

	s := c.Stats()
	assert.Equal(t, 6, s.Frames)
	assert.Equal(t, uint64(20000+16000+19999+1000+13332+13331), s.WindowBits)
}

func TestChooseQPClamps(t *testing.T) {
	c := New(DefaultConfig())
	for i := 0; i < 20; i++ {
		c.ChooseQP(FrameStats{BitsUsed: 1 << 30})
	}
	assert.Equal(t, 42, c.CurrentQP())

	for i := 0; i < 40; i++ {
		c.ChooseQP(FrameStats{BitsUsed: 0})
	}
	assert.Equal(t, 18, c.CurrentQP())
}

func TestSetTargetBitrate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FPS = 0 // falls back to 30
	c := New(cfg)
	c.SetTargetBitrate(3000)
	assert.Equal(t, 100000, c.TargetBitsPerFrame())
	assert.Equal(t, uint32(3000), c.Stats().TargetKbps)

	// 20000 bits is now well under budget.
	assert.Equal(t, 27, c.ChooseQP(FrameStats{BitsUsed: 20000}))
}
