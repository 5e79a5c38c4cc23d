// Package source provides frame producers for the encoder: a synthetic test
// pattern and raw RGB24 or I420 files.
//
// Every source yields frames with sequential frame ids starting at zero and
// timestamps of id*1e6/fps microseconds.
package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/frame"
	"github.com/opd-ai/telecodec/limits"
)

// Synthetic is the Config.Path that selects the generated test pattern.
const Synthetic = "synthetic"

// DefaultFPS is used when a config leaves FPS at zero.
const DefaultFPS = 30

var (
	// ErrInvalidSource indicates a config no source can be built from.
	ErrInvalidSource = errors.New("invalid video source")

	// ErrShortFrame indicates a raw file ending partway through a frame.
	ErrShortFrame = errors.New("raw file ends inside a frame")
)

// VideoSource produces frames. Read returns io.EOF after the last frame.
type VideoSource interface {
	Read(ctx context.Context) (*frame.Frame, error)
	Width() int
	Height() int
	FPS() int
	Close() error
}

// Config selects and sizes a source.
type Config struct {
	// Path is a raw file, or Synthetic (or empty) for the test pattern.
	Path string
	// Format of a raw file. Zero means infer from the extension: .rgb and
	// .rgb24 are RGB24, anything else I420.
	Format frame.Format
	Width  int
	Height int
	FPS    int
	// MaxFrames stops the source after this many frames. Zero is unlimited
	// for the synthetic source and "until end of file" for raw files.
	MaxFrames int
	Logger    *logrus.Entry
}

// DefaultConfig returns a 640x480 synthetic source at 30 fps.
func DefaultConfig() Config {
	return Config{Path: Synthetic, Width: 640, Height: 480, FPS: DefaultFPS}
}

// Open builds the source described by cfg.
func Open(cfg Config) (VideoSource, error) {
	if err := limits.ValidateDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if cfg.FPS == 0 {
		cfg.FPS = DefaultFPS
	}
	if err := limits.ValidateFPS(cfg.FPS); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "source")
	}

	if cfg.Path == "" || cfg.Path == Synthetic {
		cfg.Logger.WithFields(logrus.Fields{
			"function": "Open",
			"width":    cfg.Width,
			"height":   cfg.Height,
			"fps":      cfg.FPS,
		}).Info("Opening synthetic source")
		return NewSynthetic(cfg.Width, cfg.Height, cfg.FPS, cfg.MaxFrames), nil
	}

	if cfg.Format == frame.FormatI420 {
		cfg.Format = formatFromPath(cfg.Path)
	}
	return OpenRawFile(cfg)
}

func formatFromPath(path string) frame.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rgb", ".rgb24":
		return frame.FormatRGB24
	default:
		return frame.FormatI420
	}
}

// metaFor returns the capture metadata of frame id at fps.
func metaFor(id int64, fps int) frame.Meta {
	if fps <= 0 {
		fps = DefaultFPS
	}
	ts := id * 1000000 / int64(fps)
	return frame.Meta{FrameID: id, TimestampUS: ts, PTS: float64(ts) / 1e6}
}
