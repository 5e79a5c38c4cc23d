// Package bitstream implements LSB-first bit packing and the fixed-layout
// file and frame headers of the codec's bitstream files.
//
// Bits are written starting at the least significant bit of each byte. A
// value of n bits occupies the next n bit positions, low bit first:
//
//	var w bitstream.Writer
//	w.WriteBits(0x5, 3)  // bits 0..2 of byte 0
//	w.WriteBits(0x1, 1)  // bit 3 of byte 0
//	w.FlushByteAlign()
//	data := w.Bytes()    // []byte{0x0D}
//
// The Reader mirrors the Writer. Reads past the end of the buffer yield zero
// bits rather than failing, so a truncated stream decodes as trailing zeros.
package bitstream

// Writer packs bits into a growable byte buffer. The zero value is ready to use.
type Writer struct {
	buf    []byte
	bitPos int
}

// Reset empties the writer, keeping its allocation.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.bitPos = 0
}

func (w *Writer) grow(bytes int) {
	for len(w.buf) < bytes {
		w.buf = append(w.buf, 0)
	}
}

// WriteBits writes the low n bits of value, 1 <= n <= 32. Other widths are
// ignored.
func (w *Writer) WriteBits(value uint32, n int) {
	if n <= 0 || n > 32 {
		return
	}
	w.grow((w.bitPos + n + 7) / 8)
	v := uint64(value) & (1<<uint(n) - 1)
	for n > 0 {
		off := w.bitPos & 7
		take := min(8-off, n)
		w.buf[w.bitPos>>3] |= byte((v & (1<<uint(take) - 1)) << uint(off))
		v >>= uint(take)
		n -= take
		w.bitPos += take
	}
}

// WriteByte aligns to the next byte boundary and writes b. It never fails.
func (w *Writer) WriteByte(b byte) error {
	w.FlushByteAlign()
	w.grow(w.bitPos/8 + 1)
	w.buf[w.bitPos/8] = b
	w.bitPos += 8
	return nil
}

// WriteBytes aligns to the next byte boundary and appends p.
func (w *Writer) WriteBytes(p []byte) {
	w.FlushByteAlign()
	w.grow(w.bitPos/8 + len(p))
	copy(w.buf[w.bitPos/8:], p)
	w.bitPos += len(p) * 8
}

// FlushByteAlign pads with zero bits up to the next byte boundary.
func (w *Writer) FlushByteAlign() {
	w.bitPos = (w.bitPos + 7) &^ 7
	w.grow(w.bitPos / 8)
}

// Bytes returns the written buffer. The slice aliases the writer until the
// next write or Reset.
func (w *Writer) Bytes() []byte { return w.buf }

// BitPos returns the number of bits written.
func (w *Writer) BitPos() int { return w.bitPos }

// BytePos returns the number of bytes touched, rounding partial bytes up.
func (w *Writer) BytePos() int { return (w.bitPos + 7) / 8 }

// Reader unpacks bits written by a Writer.
type Reader struct {
	data   []byte
	bitPos int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Reset repositions the reader at the start of data.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.bitPos = 0
}

// ReadBits reads n bits, 1 <= n <= 32, low bit first. Bits past the end of
// the buffer read as zero. Other widths return 0 without advancing.
func (r *Reader) ReadBits(n int) uint32 {
	if n <= 0 || n > 32 {
		return 0
	}
	var v uint64
	got := 0
	pos := r.bitPos
	for got < n {
		idx := pos >> 3
		if idx >= len(r.data) {
			break
		}
		off := pos & 7
		take := min(8-off, n-got)
		bits := (uint64(r.data[idx]) >> uint(off)) & (1<<uint(take) - 1)
		v |= bits << uint(got)
		got += take
		pos += take
	}
	r.bitPos += n
	return uint32(v)
}

// AlignToByte skips to the next byte boundary.
func (r *Reader) AlignToByte() {
	r.bitPos = (r.bitPos + 7) &^ 7
}

// ReadByte aligns to the next byte boundary and reads one byte. Past the end
// it returns 0. The error is always nil.
func (r *Reader) ReadByte() (byte, error) {
	r.AlignToByte()
	idx := r.bitPos / 8
	r.bitPos += 8
	if idx < len(r.data) {
		return r.data[idx], nil
	}
	return 0, nil
}

// ReadBytes aligns to the next byte boundary and fills p, zero-filling what
// lies past the end of the buffer.
func (r *Reader) ReadBytes(p []byte) {
	r.AlignToByte()
	idx := r.bitPos / 8
	n := 0
	if idx < len(r.data) {
		n = copy(p, r.data[idx:])
	}
	clear(p[n:])
	r.bitPos += len(p) * 8
}

// EOF reports whether fewer than 8 unread bits remain.
func (r *Reader) EOF() bool {
	return (r.bitPos+7)/8 >= len(r.data)
}

// BitPos returns the number of bits consumed.
func (r *Reader) BitPos() int { return r.bitPos }

// BytePos returns the number of bytes touched, rounding partial bytes up.
func (r *Reader) BytePos() int { return (r.bitPos + 7) / 8 }

// Size returns the length of the underlying buffer in bytes.
func (r *Reader) Size() int { return len(r.data) }
