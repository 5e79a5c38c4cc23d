// Package sink writes decoded frames out of the process.
package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/frame"
)

var (
	// ErrUnsupportedFormat indicates a frame the sink cannot store.
	ErrUnsupportedFormat = errors.New("sink: unsupported pixel format")

	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("sink closed")
)

// VideoSink consumes frames in presentation order.
type VideoSink interface {
	Write(f *frame.Frame) error
	Close() error
}

// YUVFileSink writes I420 frames as raw planes, Y then U then V, each row
// without stride padding. The output plays with any raw yuv420p viewer.
type YUVFileSink struct {
	w      *bufio.Writer
	closer io.Closer
	logger *logrus.Entry
	frames int
	closed bool
}

// CreateYUVFile creates path and returns a sink writing to it.
func CreateYUVFile(path string) (*YUVFileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	s := NewYUVWriter(f)
	s.closer = f
	s.logger.WithFields(logrus.Fields{
		"function": "CreateYUVFile",
		"path":     path,
	}).Info("YUV sink opened")
	return s, nil
}

// NewYUVWriter returns a sink writing to w. Close flushes but does not close w.
func NewYUVWriter(w io.Writer) *YUVFileSink {
	return &YUVFileSink{
		w:      bufio.NewWriter(w),
		logger: logrus.WithField("component", "sink"),
	}
}

// Write appends one I420 frame.
func (s *YUVFileSink) Write(f *frame.Frame) error {
	if s.closed {
		return ErrClosed
	}
	if f.Empty() {
		return fmt.Errorf("%w: empty frame", ErrUnsupportedFormat)
	}
	if f.Format() != frame.FormatI420 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, f.Format())
	}
	for i := 0; i < 3; i++ {
		for r := 0; r < f.PlaneRows(i); r++ {
			if _, err := s.w.Write(f.Row(i, r)); err != nil {
				return fmt.Errorf("write frame %d: %w", f.FrameID, err)
			}
		}
	}
	s.frames++
	return nil
}

// Frames returns the number of frames written.
func (s *YUVFileSink) Frames() int { return s.frames }

// Close flushes and closes the file opened by CreateYUVFile.
func (s *YUVFileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	s.logger.WithFields(logrus.Fields{
		"function": "YUVFileSink.Close",
		"frames":   s.frames,
	}).Info("YUV sink closed")
	return err
}
