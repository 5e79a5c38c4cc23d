package bitstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic identifies a codec bitstream file. Stored little-endian it reads
// "DOCT" in file order.
const Magic uint32 = 0x54434F44

// Version is the bitstream format version written by this package.
const Version uint16 = 1

// Serialized header sizes in bytes. Both follow the padded x86-64 layout of
// the native records so files interoperate with existing readers.
const (
	FileHeaderSize  = 16
	FrameHeaderSize = 32
)

// ChromaFormat420 is the only chroma format defined.
const ChromaFormat420 uint8 = 0

var (
	// ErrShortHeader indicates fewer bytes than a header needs.
	ErrShortHeader = errors.New("bitstream header too short")

	// ErrBadMagic indicates the file does not start with Magic.
	ErrBadMagic = errors.New("bitstream magic mismatch")

	// ErrUnsupportedVersion indicates a version this package cannot read.
	ErrUnsupportedVersion = errors.New("unsupported bitstream version")

	// ErrBadFrameType indicates a frame header with an unknown type byte.
	ErrBadFrameType = errors.New("unknown frame type")
)

// FrameType distinguishes intra frames from predicted frames.
type FrameType uint8

const (
	// FrameI is an intra frame coded without a reference.
	FrameI FrameType = 0
	// FrameP is predicted from the previous frame.
	FrameP FrameType = 1
)

// String returns "I" or "P".
func (t FrameType) String() string {
	switch t {
	case FrameI:
		return "I"
	case FrameP:
		return "P"
	default:
		return fmt.Sprintf("FrameType(%d)", uint8(t))
	}
}

// FileHeader is written once at the start of a bitstream file.
type FileHeader struct {
	Magic        uint32
	Version      uint16
	Width        uint16
	Height       uint16
	FPS          uint8
	ChromaFormat uint8
}

// NewFileHeader returns a header for the current format version.
func NewFileHeader(width, height, fps int) FileHeader {
	return FileHeader{
		Magic:        Magic,
		Version:      Version,
		Width:        uint16(width),
		Height:       uint16(height),
		FPS:          uint8(fps),
		ChromaFormat: ChromaFormat420,
	}
}

// Serialize encodes the header into FileHeaderSize bytes.
func (h *FileHeader) Serialize() []byte {
	// Format: [magic u32][version u16][width u16][height u16][fps u8]
	// [chroma u8][reserved 2][pad 2]
	b := make([]byte, FileHeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint16(b[6:8], h.Width)
	binary.LittleEndian.PutUint16(b[8:10], h.Height)
	b[10] = h.FPS
	b[11] = h.ChromaFormat
	return b
}

// ParseFileHeader decodes and validates a file header.
func ParseFileHeader(data []byte) (FileHeader, error) {
	if len(data) < FileHeaderSize {
		return FileHeader{}, fmt.Errorf("file header: got %d bytes, need %d: %w", len(data), FileHeaderSize, ErrShortHeader)
	}
	h := FileHeader{
		Magic:        binary.LittleEndian.Uint32(data[0:4]),
		Version:      binary.LittleEndian.Uint16(data[4:6]),
		Width:        binary.LittleEndian.Uint16(data[6:8]),
		Height:       binary.LittleEndian.Uint16(data[8:10]),
		FPS:          data[10],
		ChromaFormat: data[11],
	}
	if h.Magic != Magic {
		return h, fmt.Errorf("file header magic 0x%08X: %w", h.Magic, ErrBadMagic)
	}
	if h.Version != Version {
		return h, fmt.Errorf("file header version %d: %w", h.Version, ErrUnsupportedVersion)
	}
	return h, nil
}

// FrameHeader precedes each frame's motion-vector and coefficient streams.
type FrameHeader struct {
	Type        FrameType
	FrameID     uint32
	TimestampUS uint64
	QP          uint8
	MVBytes     uint32
	CoeffBytes  uint32
}

// PayloadSize returns the number of payload bytes following the header.
func (h *FrameHeader) PayloadSize() int {
	return int(h.MVBytes) + int(h.CoeffBytes)
}

// Serialize encodes the header into FrameHeaderSize bytes.
func (h *FrameHeader) Serialize() []byte {
	return h.AppendTo(make([]byte, 0, FrameHeaderSize))
}

// AppendTo appends the encoded header to b and returns the extended slice.
func (h *FrameHeader) AppendTo(b []byte) []byte {
	// Format: [type u8][pad 3][frame_id u32][timestamp_us u64][qp u8][pad 3]
	// [mv_bytes u32][coeff_bytes u32][reserved 4]
	var rec [FrameHeaderSize]byte
	rec[0] = byte(h.Type)
	binary.LittleEndian.PutUint32(rec[4:8], h.FrameID)
	binary.LittleEndian.PutUint64(rec[8:16], h.TimestampUS)
	rec[16] = h.QP
	binary.LittleEndian.PutUint32(rec[20:24], h.MVBytes)
	binary.LittleEndian.PutUint32(rec[24:28], h.CoeffBytes)
	return append(b, rec[:]...)
}

// ParseFrameHeader decodes a frame header.
func ParseFrameHeader(data []byte) (FrameHeader, error) {
	if len(data) < FrameHeaderSize {
		return FrameHeader{}, fmt.Errorf("frame header: got %d bytes, need %d: %w", len(data), FrameHeaderSize, ErrShortHeader)
	}
	h := FrameHeader{
		Type:        FrameType(data[0]),
		FrameID:     binary.LittleEndian.Uint32(data[4:8]),
		TimestampUS: binary.LittleEndian.Uint64(data[8:16]),
		QP:          data[16],
		MVBytes:     binary.LittleEndian.Uint32(data[20:24]),
		CoeffBytes:  binary.LittleEndian.Uint32(data[24:28]),
	}
	if h.Type != FrameI && h.Type != FrameP {
		return h, fmt.Errorf("frame %d: type byte %d: %w", h.FrameID, data[0], ErrBadFrameType)
	}
	return h, nil
}

// ReadFileHeader reads and validates a file header from r.
func ReadFileHeader(r io.Reader) (FileHeader, error) {
	var b [FileHeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return FileHeader{}, fmt.Errorf("read file header: %w", err)
	}
	return ParseFileHeader(b[:])
}

// ReadFrameHeader reads a frame header from r. A clean end of stream is
// returned as io.EOF unwrapped.
func ReadFrameHeader(r io.Reader) (FrameHeader, error) {
	var b [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return FrameHeader{}, io.EOF
		}
		return FrameHeader{}, fmt.Errorf("read frame header: %w", err)
	}
	return ParseFrameHeader(b[:])
}
