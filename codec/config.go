package codec

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/limits"
	"github.com/opd-ai/telecodec/ratecontrol"
	"github.com/opd-ai/telecodec/transform"
)

// Config holds encoder and decoder parameters.
type Config struct {
	Width  int
	Height int
	FPS    int

	// GOPSize is the I-frame interval. Zero disables periodic keyframes.
	GOPSize int
	// SearchRange bounds motion vectors to [-SearchRange, +SearchRange].
	SearchRange int

	// QPDefault drives quantization. QPMin and QPMax bound the advisory QP
	// reported by rate control.
	QPDefault int
	QPMin     int
	QPMax     int

	TargetBitrateKbps uint32

	// UseDiamondSearch selects the diamond pass instead of full search.
	UseDiamondSearch bool
	// EarlyTerminationThreshold stops full search at the first candidate
	// whose SAD is at or below it. Zero disables it.
	EarlyTerminationThreshold uint32
	// FrameBudget is the real-time target for one encode call.
	FrameBudget time.Duration

	// Logger receives per-frame debug records. Defaults to a component logger.
	Logger *logrus.Entry
}

// DefaultConfig returns a configuration with sensible defaults.
//
// Returns:
//   - 640x480 at 30 fps, GOP 30
//   - full search with a +/-16 pixel range, no early termination
//   - QP 28 bounded to [18, 42], 500 kbps target, 33ms frame budget
func DefaultConfig() Config {
	return Config{
		Width:             640,
		Height:            480,
		FPS:               30,
		GOPSize:           30,
		SearchRange:       16,
		QPDefault:         28,
		QPMin:             18,
		QPMax:             42,
		TargetBitrateKbps: 500,
		FrameBudget:       33 * time.Millisecond,
	}
}

// Validate checks the configuration for values the codec cannot run with.
func (c *Config) Validate() error {
	if err := limits.ValidateDimensions(c.Width, c.Height); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := limits.ValidateFPS(c.FPS); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.GOPSize < 0 {
		return fmt.Errorf("%w: negative GOP size %d", ErrInvalidConfig, c.GOPSize)
	}
	if c.SearchRange < 0 || c.SearchRange > 255 {
		return fmt.Errorf("%w: search range %d outside [0, 255]", ErrInvalidConfig, c.SearchRange)
	}
	if c.QPMin < transform.MinQP || c.QPMax > transform.MaxQP || c.QPMin > c.QPMax {
		return fmt.Errorf("%w: QP bounds [%d, %d] outside [%d, %d]",
			ErrInvalidConfig, c.QPMin, c.QPMax, transform.MinQP, transform.MaxQP)
	}
	if c.QPDefault < c.QPMin || c.QPDefault > c.QPMax {
		return fmt.Errorf("%w: default QP %d outside [%d, %d]", ErrInvalidConfig, c.QPDefault, c.QPMin, c.QPMax)
	}
	if c.TargetBitrateKbps == 0 {
		return fmt.Errorf("%w: zero target bitrate", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) rateControl() ratecontrol.Config {
	return ratecontrol.Config{
		FPS:        c.FPS,
		GOPSize:    c.GOPSize,
		QPDefault:  c.QPDefault,
		QPMin:      c.QPMin,
		QPMax:      c.QPMax,
		TargetKbps: c.TargetBitrateKbps,
	}
}

func (c *Config) logger(component string) *logrus.Entry {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.WithField("component", component)
}
