package frame

// Macroblock dimensions in pixels.
const (
	MBSize       = 16 // luma
	MBChromaSize = 8  // each chroma plane in 4:2:0
)

// BlockView is a mutable window into one plane. It does not own or copy the
// underlying bytes. A zero BlockView is invalid.
type BlockView struct {
	data   []byte
	offset int

	// X and Y are the top-left pixel position of the window in its plane.
	X, Y int
	// Stride is the row stride of the underlying plane.
	Stride int
	// Width and Height are the clipped window dimensions.
	Width, Height int
}

// NewBlockView builds a view over plane data at pixel (x, y).
func NewBlockView(data []byte, stride, x, y, w, h int) BlockView {
	return BlockView{data: data, offset: y*stride + x, X: x, Y: y, Stride: stride, Width: w, Height: h}
}

// Valid reports whether the view addresses at least one pixel.
func (b BlockView) Valid() bool {
	return b.data != nil && b.Stride > 0 && b.Width > 0 && b.Height > 0
}

// Row returns the Width bytes of row r.
func (b BlockView) Row(r int) []byte {
	off := b.offset + r*b.Stride
	return b.data[off : off+b.Width]
}

// At returns the pixel at column x, row y of the view.
func (b BlockView) At(x, y int) byte { return b.data[b.offset+y*b.Stride+x] }

// Set writes the pixel at column x, row y of the view.
func (b BlockView) Set(x, y int, v byte) { b.data[b.offset+y*b.Stride+x] = v }

// Const returns a read-only view of the same window.
func (b BlockView) Const() ConstBlockView { return ConstBlockView{v: b} }

// ConstBlockView is a read-only window into one plane.
type ConstBlockView struct {
	v BlockView
}

// NewConstBlockView builds a read-only view over plane data at pixel (x, y).
func NewConstBlockView(data []byte, stride, x, y, w, h int) ConstBlockView {
	return ConstBlockView{v: NewBlockView(data, stride, x, y, w, h)}
}

// Valid reports whether the view addresses at least one pixel.
func (b ConstBlockView) Valid() bool { return b.v.Valid() }

// At returns the pixel at column x, row y of the view.
func (b ConstBlockView) At(x, y int) byte { return b.v.At(x, y) }

// Row returns row r. The slice aliases the frame and must not be written.
func (b ConstBlockView) Row(r int) []byte { return b.v.Row(r) }

// Pos returns the top-left pixel position of the view.
func (b ConstBlockView) Pos() (x, y int) { return b.v.X, b.v.Y }

// Stride returns the row stride of the underlying plane.
func (b ConstBlockView) Stride() int { return b.v.Stride }

// Width returns the clipped window width.
func (b ConstBlockView) Width() int { return b.v.Width }

// Height returns the clipped window height.
func (b ConstBlockView) Height() int { return b.v.Height }

// MacroblockView groups the mutable luma and chroma windows of one macroblock.
type MacroblockView struct {
	Coord   Coord
	Y, U, V BlockView
}

// ConstMacroblockView groups the read-only luma and chroma windows of one macroblock.
type ConstMacroblockView struct {
	Coord   Coord
	Y, U, V ConstBlockView
}

// Macroblock returns mutable views of macroblock c. Coordinates outside the
// grid yield zero (invalid) views. Only I420 frames carry chroma views.
func (f *Frame) Macroblock(c Coord) MacroblockView {
	mv := MacroblockView{Coord: c}
	g := NewGrid(f.width, f.height)
	if !g.Contains(c) || f.store == nil || f.format == FormatRGB24 {
		return mv
	}
	px, py := c.X*MBSize, c.Y*MBSize
	w := min(MBSize, f.width-px)
	h := min(MBSize, f.height-py)
	mv.Y = NewBlockView(f.store.planes[0], f.strides[0], px, py, w, h)
	if f.format != FormatI420 {
		return mv
	}
	cpx, cpy := c.X*MBChromaSize, c.Y*MBChromaSize
	cw := min(MBChromaSize, f.width/2-cpx)
	ch := min(MBChromaSize, f.height/2-cpy)
	if cw > 0 && ch > 0 {
		mv.U = NewBlockView(f.store.planes[1], f.strides[1], cpx, cpy, cw, ch)
		mv.V = NewBlockView(f.store.planes[2], f.strides[2], cpx, cpy, cw, ch)
	}
	return mv
}

// MacroblockConst returns read-only views of macroblock c.
func (f *Frame) MacroblockConst(c Coord) ConstMacroblockView {
	m := f.Macroblock(c)
	return ConstMacroblockView{Coord: c, Y: m.Y.Const(), U: m.U.Const(), V: m.V.Const()}
}

// LumaBlockAt returns a read-only luma window of w x h pixels at (x, y). The
// caller is responsible for keeping the window inside the plane.
func (f *Frame) LumaBlockAt(x, y, w, h int) ConstBlockView {
	return NewConstBlockView(f.store.planes[0], f.strides[0], x, y, w, h)
}
