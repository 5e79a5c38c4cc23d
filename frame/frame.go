package frame

import (
	"fmt"
	"sync/atomic"
)

// Format identifies the pixel layout of a Frame.
type Format uint8

const (
	// FormatI420 is planar YUV 4:2:0 with separate U and V planes.
	FormatI420 Format = iota
	// FormatNV12 is planar Y followed by an interleaved UV plane.
	FormatNV12
	// FormatRGB24 is packed 8-bit R, G, B.
	FormatRGB24
)

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatI420:
		return "I420"
	case FormatNV12:
		return "NV12"
	case FormatRGB24:
		return "RGB24"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// StrideAlign is the row alignment, in bytes, used for every plane.
const StrideAlign = 32

// AlignStride rounds n up to the next multiple of StrideAlign.
func AlignStride(n int) int {
	return (n + StrideAlign - 1) &^ (StrideAlign - 1)
}

// Meta carries the capture metadata that travels with a frame.
type Meta struct {
	FrameID     int64
	TimestampUS int64
	PTS         float64 // presentation time in seconds
}

// storage holds the plane bytes shared between Frame handles.
type storage struct {
	refs   atomic.Int32
	planes [3][]byte
}

func newStorage(sizes ...int) *storage {
	s := &storage{}
	for i, n := range sizes {
		s.planes[i] = make([]byte, n)
	}
	s.refs.Store(1)
	return s
}

// Frame is a pixel buffer with per-plane strides and capture metadata.
//
// For I420 plane 0 is Y, 1 is U and 2 is V. For NV12 plane 0 is Y and plane 1
// holds interleaved UV pairs. For RGB24 plane 0 holds the packed pixels.
type Frame struct {
	Meta

	format  Format
	width   int
	height  int
	strides [3]int
	store   *storage
}

// NewI420 allocates an exclusive I420 frame. Non-positive dimensions yield an
// empty frame.
func NewI420(width, height int) *Frame {
	if width <= 0 || height <= 0 {
		return &Frame{format: FormatI420}
	}
	sy := AlignStride(width)
	suv := AlignStride(width / 2)
	ch := height / 2
	return &Frame{
		format:  FormatI420,
		width:   width,
		height:  height,
		strides: [3]int{sy, suv, suv},
		store:   newStorage(sy*height, suv*ch, suv*ch),
	}
}

// NewNV12 allocates an exclusive NV12 frame.
func NewNV12(width, height int) *Frame {
	if width <= 0 || height <= 0 {
		return &Frame{format: FormatNV12}
	}
	sy := AlignStride(width)
	suv := AlignStride((width / 2) * 2)
	return &Frame{
		format:  FormatNV12,
		width:   width,
		height:  height,
		strides: [3]int{sy, suv, 0},
		store:   newStorage(sy*height, suv*(height/2)),
	}
}

// NewRGB24 allocates an exclusive RGB24 frame.
func NewRGB24(width, height int) *Frame {
	if width <= 0 || height <= 0 {
		return &Frame{format: FormatRGB24}
	}
	s := AlignStride(width * 3)
	return &Frame{
		format:  FormatRGB24,
		width:   width,
		height:  height,
		strides: [3]int{s, 0, 0},
		store:   newStorage(s * height),
	}
}

// New allocates an exclusive frame of the given format.
func New(format Format, width, height int) *Frame {
	switch format {
	case FormatNV12:
		return NewNV12(width, height)
	case FormatRGB24:
		return NewRGB24(width, height)
	default:
		return NewI420(width, height)
	}
}

// Format returns the pixel layout.
func (f *Frame) Format() Format { return f.format }

// Width returns the luma width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the luma height in pixels.
func (f *Frame) Height() int { return f.height }

// ChromaWidth returns the chroma plane width (half the luma width, rounded down).
func (f *Frame) ChromaWidth() int { return f.width / 2 }

// ChromaHeight returns the chroma plane height (half the luma height, rounded down).
func (f *Frame) ChromaHeight() int { return f.height / 2 }

// Empty reports whether the frame has no pixels.
func (f *Frame) Empty() bool { return f == nil || f.width == 0 || f.height == 0 || f.store == nil }

// Stride returns the row stride of plane i in bytes.
func (f *Frame) Stride(i int) int { return f.strides[i] }

// Plane returns the raw bytes of plane i, including stride padding.
func (f *Frame) Plane(i int) []byte {
	if f.store == nil {
		return nil
	}
	return f.store.planes[i]
}

// RowBytes returns the number of meaningful bytes in one row of plane i.
func (f *Frame) RowBytes(i int) int {
	switch f.format {
	case FormatRGB24:
		if i == 0 {
			return f.width * 3
		}
	case FormatNV12:
		switch i {
		case 0:
			return f.width
		case 1:
			return (f.width / 2) * 2
		}
	default:
		if i == 0 {
			return f.width
		}
		return f.width / 2
	}
	return 0
}

// PlaneRows returns the number of rows in plane i.
func (f *Frame) PlaneRows(i int) int {
	switch f.format {
	case FormatRGB24:
		if i == 0 {
			return f.height
		}
	case FormatNV12:
		switch i {
		case 0:
			return f.height
		case 1:
			return f.height / 2
		}
	default:
		if i == 0 {
			return f.height
		}
		return f.height / 2
	}
	return 0
}

// Row returns row r of plane i, trimmed to the meaningful bytes.
func (f *Frame) Row(i, r int) []byte {
	off := r * f.strides[i]
	return f.store.planes[i][off : off+f.RowBytes(i)]
}

// YRow returns luma row r.
func (f *Frame) YRow(r int) []byte { return f.Row(0, r) }

// URow returns U row r of an I420 frame.
func (f *Frame) URow(r int) []byte { return f.Row(1, r) }

// VRow returns V row r of an I420 frame.
func (f *Frame) VRow(r int) []byte { return f.Row(2, r) }

// RefCount returns the number of handles sharing this frame's storage.
func (f *Frame) RefCount() int {
	if f.store == nil {
		return 0
	}
	return int(f.store.refs.Load())
}

// Exclusive reports whether this handle is the only owner of its storage.
func (f *Frame) Exclusive() bool { return f.RefCount() == 1 }

// Share returns a new handle to the same storage and increments the
// reference count. Shared planes must not be mutated by any holder.
func (f *Frame) Share() *Frame {
	if f.store != nil {
		f.store.refs.Add(1)
	}
	s := *f
	return &s
}

// Release drops this handle's reference. The handle must not be used after
// Release.
func (f *Frame) Release() {
	if f.store == nil {
		return
	}
	f.store.refs.Add(-1)
	f.store = nil
}

// Clone returns an exclusive deep copy of the frame, metadata included.
func (f *Frame) Clone() *Frame {
	c := New(f.format, f.width, f.height)
	c.Meta = f.Meta
	c.copyPlanes(f)
	return c
}

// MakeExclusive detaches the frame from shared storage by copying it, so the
// caller may mutate the planes. It is a no-op for exclusive frames.
func (f *Frame) MakeExclusive() {
	if f.store == nil || f.Exclusive() {
		return
	}
	c := f.Clone()
	f.store.refs.Add(-1)
	f.store = c.store
	f.strides = c.strides
}

// CopyFrom overwrites f with the pixels and metadata of src. The receiver is
// reallocated when its geometry or format differs or when its storage is
// shared, so after CopyFrom f always owns an exclusive copy.
func (f *Frame) CopyFrom(src *Frame) {
	if f.store == nil || f.format != src.format || f.width != src.width || f.height != src.height || !f.Exclusive() {
		if f.store != nil {
			f.store.refs.Add(-1)
		}
		n := New(src.format, src.width, src.height)
		f.format, f.width, f.height = n.format, n.width, n.height
		f.strides, f.store = n.strides, n.store
	}
	f.Meta = src.Meta
	f.copyPlanes(src)
}

func (f *Frame) copyPlanes(src *Frame) {
	if src.Empty() || f.Empty() {
		return
	}
	for i := 0; i < 3; i++ {
		n := f.RowBytes(i)
		for r := 0; r < f.PlaneRows(i); r++ {
			copy(f.Row(i, r), src.Row(i, r)[:n])
		}
	}
}

// Fill sets every meaningful byte of plane i to v.
func (f *Frame) Fill(i int, v byte) {
	for r := 0; r < f.PlaneRows(i); r++ {
		row := f.Row(i, r)
		for x := range row {
			row[x] = v
		}
	}
}
