// Package container reads and writes bitstream files: a 16-byte file header
// followed by frame records, each a 32-byte frame header and its motion
// vector and coefficient streams.
//
// Files may be wrapped in a zstd stream. The Reader detects the zstd frame
// magic and decompresses transparently, so compressed and plain files are
// read the same way.
package container

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/limits"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("container closed")

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Compress wraps the whole file in a zstd stream.
	Compress bool
	// Level is the zstd encoder level. Zero selects zstd.SpeedDefault.
	Level zstd.EncoderLevel
	// Logger defaults to a component logger.
	Logger *logrus.Entry
}

// Writer appends encoded frames to a bitstream file.
type Writer struct {
	out    *bufio.Writer
	zenc   *zstd.Encoder
	closer io.Closer
	logger *logrus.Entry
	header bitstream.FileHeader

	frames int
	bytes  int64
	closed bool
}

// Create opens path for writing, truncating it, and writes the file header.
func Create(path string, header bitstream.FileHeader, opts WriterOptions) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w, err := NewWriter(f, header, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter writes the file header to dst and returns a Writer appending to
// it. Close flushes buffered data but does not close dst.
func NewWriter(dst io.Writer, header bitstream.FileHeader, opts WriterOptions) (*Writer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "container")
	}
	if header.Magic != bitstream.Magic {
		return nil, fmt.Errorf("file header magic 0x%08X: %w", header.Magic, bitstream.ErrBadMagic)
	}

	w := &Writer{logger: logger, header: header}
	if opts.Compress {
		level := opts.Level
		if level == 0 {
			level = zstd.SpeedDefault
		}
		zenc, err := zstd.NewWriter(dst,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(level),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w.zenc = zenc
		dst = zenc
	}
	w.out = bufio.NewWriter(dst)

	if err := w.writeHeader(); err != nil {
		if w.zenc != nil {
			w.zenc.Close()
		}
		return nil, fmt.Errorf("write file header: %w", err)
	}
	w.bytes = bitstream.FileHeaderSize

	logger.WithFields(logrus.Fields{
		"function":   "NewWriter",
		"width":      header.Width,
		"height":     header.Height,
		"fps":        header.FPS,
		"compressed": opts.Compress,
	}).Info("Bitstream writer opened")
	return w, nil
}

// Header returns the file header written at open.
func (w *Writer) Header() bitstream.FileHeader { return w.header }

// writeHeader writes the file header through to the destination so an
// unwritable sink fails at open.
func (w *Writer) writeHeader() error {
	if _, err := w.out.Write(w.header.Serialize()); err != nil {
		return err
	}
	if err := w.out.Flush(); err != nil {
		return err
	}
	if w.zenc != nil {
		return w.zenc.Flush()
	}
	return nil
}

// WriteFrame appends one frame record.
func (w *Writer) WriteFrame(ef *codec.EncodedFrame) error {
	if w.closed {
		return ErrClosed
	}
	if ef.TotalBytes() > limits.MaxFramePayload {
		return fmt.Errorf("frame %d: %d bytes: %w", ef.FrameID, ef.TotalBytes(), limits.ErrPayloadTooLarge)
	}
	h := ef.Header()
	var hdr [bitstream.FrameHeaderSize]byte
	if _, err := w.out.Write(h.AppendTo(hdr[:0])); err != nil {
		return fmt.Errorf("write frame %d header: %w", ef.FrameID, err)
	}
	if _, err := w.out.Write(ef.MVBytes); err != nil {
		return fmt.Errorf("write frame %d motion vectors: %w", ef.FrameID, err)
	}
	if _, err := w.out.Write(ef.CoeffBytes); err != nil {
		return fmt.Errorf("write frame %d coefficients: %w", ef.FrameID, err)
	}
	w.frames++
	w.bytes += int64(bitstream.FrameHeaderSize + ef.TotalBytes())

	w.logger.WithFields(logrus.Fields{
		"function":   "Writer.WriteFrame",
		"frame_id":   ef.FrameID,
		"frame_type": ef.Type.String(),
		"size":       ef.TotalBytes(),
	}).Debug("Frame written")
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int { return w.frames }

// Bytes returns the uncompressed size written so far, headers included.
func (w *Writer) Bytes() int64 { return w.bytes }

// Close flushes buffered data, finishes the zstd stream and closes the file
// opened by Create. Calling Close twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.out.Flush()
	if w.zenc != nil {
		if zerr := w.zenc.Close(); err == nil {
			err = zerr
		}
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}

	w.logger.WithFields(logrus.Fields{
		"function": "Writer.Close",
		"frames":   w.frames,
		"bytes":    w.bytes,
	}).Info("Bitstream writer closed")
	if err != nil {
		return fmt.Errorf("close bitstream: %w", err)
	}
	return nil
}
