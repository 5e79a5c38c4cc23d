package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/frame"
)

// RawFileSource reads headerless frames stored back to back, rows without
// padding: RGB24 as packed pixels, I420 as the Y plane then U then V.
type RawFileSource struct {
	cfg    Config
	r      *bufio.Reader
	closer io.Closer
	next   int64
}

// OpenRawFile opens cfg.Path as a raw frame file of cfg.Format.
func OpenRawFile(cfg Config) (*RawFileSource, error) {
	if cfg.Format != frame.FormatI420 && cfg.Format != frame.FormatRGB24 {
		return nil, fmt.Errorf("%w: raw %s files are not supported", ErrInvalidSource, cfg.Format)
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	s := NewRawReader(f, cfg)
	s.closer = f
	if cfg.Logger != nil {
		cfg.Logger.WithFields(logrus.Fields{
			"function": "OpenRawFile",
			"path":     cfg.Path,
			"format":   cfg.Format.String(),
			"width":    cfg.Width,
			"height":   cfg.Height,
		}).Info("Opening raw file source")
	}
	return s, nil
}

// NewRawReader reads raw frames of cfg.Format and geometry from r.
func NewRawReader(r io.Reader, cfg Config) *RawFileSource {
	if cfg.FPS == 0 {
		cfg.FPS = DefaultFPS
	}
	return &RawFileSource{cfg: cfg, r: bufio.NewReader(r)}
}

// Read returns the next frame, io.EOF at a clean end of file, or
// ErrShortFrame if the file stops inside a frame.
func (s *RawFileSource) Read(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cfg.MaxFrames > 0 && s.next >= int64(s.cfg.MaxFrames) {
		return nil, io.EOF
	}

	f := frame.New(s.cfg.Format, s.cfg.Width, s.cfg.Height)
	first := true
	for i := 0; i < 3; i++ {
		for r := 0; r < f.PlaneRows(i); r++ {
			if _, err := io.ReadFull(s.r, f.Row(i, r)); err != nil {
				if first && errors.Is(err, io.EOF) {
					return nil, io.EOF
				}
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return nil, fmt.Errorf("frame %d: %w", s.next, ErrShortFrame)
				}
				return nil, fmt.Errorf("read frame %d: %w", s.next, err)
			}
			first = false
		}
	}
	f.Meta = metaFor(s.next, s.cfg.FPS)
	s.next++
	return f, nil
}

// Width returns the frame width.
func (s *RawFileSource) Width() int { return s.cfg.Width }

// Height returns the frame height.
func (s *RawFileSource) Height() int { return s.cfg.Height }

// FPS returns the configured frame rate.
func (s *RawFileSource) FPS() int { return s.cfg.FPS }

// Close closes the file opened by OpenRawFile.
func (s *RawFileSource) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
