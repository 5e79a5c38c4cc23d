// Package ratecontrol decides frame types on a fixed GOP cadence and tracks
// a quantization parameter from observed bit consumption.
//
// The controller is a small state machine over frame index. It raises QP by
// two when a frame exceeds 120% of the per-frame bit target and lowers it by
// one below 80%, clamped to [QPMin, QPMax].
package ratecontrol

import (
	"github.com/opd-ai/telecodec/bitstream"
)

// DefaultFPS is used when the configured frame rate is not positive.
const DefaultFPS = 30

// Config holds the rate controller parameters.
type Config struct {
	FPS        int
	GOPSize    int
	QPDefault  int
	QPMin      int
	QPMax      int
	TargetKbps uint32
}

// DefaultConfig returns the controller defaults: 30 fps, GOP 30, QP 28 in
// [18, 42], 500 kbps.
func DefaultConfig() Config {
	return Config{
		FPS:        30,
		GOPSize:    30,
		QPDefault:  28,
		QPMin:      18,
		QPMax:      42,
		TargetKbps: 500,
	}
}

// FrameStats is the per-frame feedback consumed by the controller.
type FrameStats struct {
	FrameID  uint32
	BitsUsed uint32
	// SADSum is the summed motion search cost of the frame, a scene
	// activity measure.
	SADSum float64
	// ForceKeyframe makes the following frame an I-frame.
	ForceKeyframe bool
}

// Stats summarizes what the controller has observed.
type Stats struct {
	Frames     int
	WindowBits uint64
	CurrentQP  int
	TargetKbps uint32
}

// Controller is the rate control state. It is not safe for concurrent use.
type Controller struct {
	cfg        Config
	targetKbps uint32
	currentQP  int
	windowBits uint64
	frames     int
}

// New returns a controller starting at cfg.QPDefault.
func New(cfg Config) *Controller {
	return &Controller{
		cfg:        cfg,
		targetKbps: cfg.TargetKbps,
		currentQP:  cfg.QPDefault,
	}
}

// ChooseFrameType returns FrameI for frame 0, for every multiple of the GOP
// size when it is positive, and after a frame that requested a keyframe.
// Every other frame is FrameP.
func (c *Controller) ChooseFrameType(frameID uint32, previous *FrameStats) bitstream.FrameType {
	if frameID == 0 {
		return bitstream.FrameI
	}
	if c.cfg.GOPSize > 0 && frameID%uint32(c.cfg.GOPSize) == 0 {
		return bitstream.FrameI
	}
	if previous != nil && previous.ForceKeyframe {
		return bitstream.FrameI
	}
	return bitstream.FrameP
}

// TargetBitsPerFrame returns the per-frame bit budget for the current target.
func (c *Controller) TargetBitsPerFrame() int {
	fps := c.cfg.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	return int(c.targetKbps) * 1000 / fps
}

// ChooseQP records stats and returns the updated QP.
func (c *Controller) ChooseQP(stats FrameStats) int {
	c.frames++
	c.windowBits += uint64(stats.BitsUsed)

	target := c.TargetBitsPerFrame()
	switch {
	case int64(stats.BitsUsed) > int64(target*120/100):
		c.currentQP = min(c.cfg.QPMax, c.currentQP+2)
	case int64(stats.BitsUsed) < int64(target*80/100):
		c.currentQP = max(c.cfg.QPMin, c.currentQP-1)
	}
	return c.CurrentQP()
}

// CurrentQP returns the running QP clamped to the configured bounds.
func (c *Controller) CurrentQP() int {
	return min(max(c.currentQP, c.cfg.QPMin), c.cfg.QPMax)
}

// SetTargetBitrate changes the bit target for subsequent frames.
func (c *Controller) SetTargetBitrate(kbps uint32) {
	c.targetKbps = kbps
}

// Stats returns a snapshot of the controller state.
func (c *Controller) Stats() Stats {
	return Stats{
		Frames:     c.frames,
		WindowBits: c.windowBits,
		CurrentQP:  c.CurrentQP(),
		TargetKbps: c.targetKbps,
	}
}
