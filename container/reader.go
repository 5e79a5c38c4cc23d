package container

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/limits"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Reader iterates over the frame records of a bitstream file.
type Reader struct {
	in     io.Reader
	zdec   *zstd.Decoder
	closer io.Closer
	logger *logrus.Entry
	header bitstream.FileHeader

	compressed bool
	frames     int
}

// Open opens a bitstream file and reads its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := NewReader(f, nil)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads and validates the file header from src. A zstd-compressed
// stream is detected by its magic and decompressed. logger may be nil.
func NewReader(src io.Reader, logger *logrus.Entry) (*Reader, error) {
	if logger == nil {
		logger = logrus.WithField("component", "container")
	}
	br := bufio.NewReader(src)
	r := &Reader{in: br, logger: logger}

	magic, err := br.Peek(len(zstdMagic))
	if err == nil && bytes.Equal(magic, zstdMagic) {
		zdec, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		r.zdec = zdec
		r.in = bufio.NewReader(zdec)
		r.compressed = true
	}

	h, err := bitstream.ReadFileHeader(r.in)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.header = h

	logger.WithFields(logrus.Fields{
		"function":   "NewReader",
		"width":      h.Width,
		"height":     h.Height,
		"fps":        h.FPS,
		"version":    h.Version,
		"compressed": r.compressed,
	}).Info("Bitstream reader opened")
	return r, nil
}

// Header returns the file header.
func (r *Reader) Header() bitstream.FileHeader { return r.header }

// Compressed reports whether the file is zstd-wrapped.
func (r *Reader) Compressed() bool { return r.compressed }

// Frames returns the number of frames read so far.
func (r *Reader) Frames() int { return r.frames }

// Next reads the next frame record. It returns io.EOF after the last
// complete record. A record cut short returns codec.ErrTruncatedPayload.
func (r *Reader) Next() (*codec.EncodedFrame, error) {
	h, err := bitstream.ReadFrameHeader(r.in)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("frame header after frame %d: %w", r.frames, codec.ErrTruncatedPayload)
		}
		return nil, err
	}
	size := h.PayloadSize()
	if size > limits.MaxFramePayload {
		return nil, fmt.Errorf("frame %d: declared %d bytes: %w", h.FrameID, size, limits.ErrPayloadTooLarge)
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r.in, raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("frame %d: %w", h.FrameID, codec.ErrTruncatedPayload)
		}
		return nil, fmt.Errorf("read frame %d: %w", h.FrameID, err)
	}
	r.frames++
	return codec.FromHeader(h, raw), nil
}

// All yields every remaining frame. Iteration stops after the first error,
// which is yielded with a nil frame; a clean end of file yields nothing.
func (r *Reader) All() iter.Seq2[*codec.EncodedFrame, error] {
	return func(yield func(*codec.EncodedFrame, error) bool) {
		for {
			ef, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ef, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the zstd decoder and closes a file opened by Open.
func (r *Reader) Close() error {
	if r.zdec != nil {
		r.zdec.Close()
		r.zdec = nil
	}
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}
