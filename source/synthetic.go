package source

import (
	"context"
	"io"

	"github.com/opd-ai/telecodec/frame"
)

// SyntheticSource generates a moving RGB24 gradient. Pixel (x, y) of frame n
// is R=(n+x+y)%256, G=(2n+x)%256, B=(n+y)%256.
type SyntheticSource struct {
	width, height, fps int
	maxFrames          int
	next               int64
}

// NewSynthetic returns a synthetic source. maxFrames of zero never ends.
func NewSynthetic(width, height, fps, maxFrames int) *SyntheticSource {
	return &SyntheticSource{width: width, height: height, fps: fps, maxFrames: maxFrames}
}

// Read renders the next frame.
func (s *SyntheticSource) Read(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.maxFrames > 0 && s.next >= int64(s.maxFrames) {
		return nil, io.EOF
	}
	id := s.next
	s.next++

	f := frame.NewRGB24(s.width, s.height)
	n := int(id % 256)
	for y := 0; y < s.height; y++ {
		row := f.Row(0, y)
		for x := 0; x < s.width; x++ {
			row[x*3] = byte(n + x + y)
			row[x*3+1] = byte(2*n + x)
			row[x*3+2] = byte(n + y)
		}
	}
	f.Meta = metaFor(id, s.fps)
	return f, nil
}

// Width returns the frame width.
func (s *SyntheticSource) Width() int { return s.width }

// Height returns the frame height.
func (s *SyntheticSource) Height() int { return s.height }

// FPS returns the nominal frame rate.
func (s *SyntheticSource) FPS() int { return s.fps }

// Close is a no-op.
func (s *SyntheticSource) Close() error { return nil }
