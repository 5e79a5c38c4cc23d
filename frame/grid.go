package frame

import "iter"

// Coord is a macroblock position in macroblock units.
type Coord struct {
	X, Y int
}

// Grid is the macroblock layout of a frame: ceil(W/16) columns by ceil(H/16) rows.
type Grid struct {
	Width, Height int // luma dimensions
	Cols, Rows    int
}

// NewGrid returns the macroblock grid for a width x height frame.
func NewGrid(width, height int) Grid {
	if width <= 0 || height <= 0 {
		return Grid{}
	}
	return Grid{
		Width:  width,
		Height: height,
		Cols:   (width + MBSize - 1) / MBSize,
		Rows:   (height + MBSize - 1) / MBSize,
	}
}

// Len returns the number of macroblocks in the grid.
func (g Grid) Len() int { return g.Cols * g.Rows }

// Contains reports whether c lies inside the grid.
func (g Grid) Contains(c Coord) bool {
	return c.X >= 0 && c.X < g.Cols && c.Y >= 0 && c.Y < g.Rows
}

// Index returns the row-major index of c.
func (g Grid) Index(c Coord) int { return c.Y*g.Cols + c.X }

// At returns the coordinate with row-major index i.
func (g Grid) At(i int) Coord { return Coord{X: i % g.Cols, Y: i / g.Cols} }

// LumaRect returns the clipped luma pixel rectangle covered by c.
func (g Grid) LumaRect(c Coord) (x, y, w, h int) {
	x, y = c.X*MBSize, c.Y*MBSize
	return x, y, min(MBSize, g.Width-x), min(MBSize, g.Height-y)
}

// ChromaRect returns the clipped chroma rectangle covered by c. Width or
// height may be zero at the edge of frames with odd dimensions.
func (g Grid) ChromaRect(c Coord) (x, y, w, h int) {
	x, y = c.X*MBChromaSize, c.Y*MBChromaSize
	return x, y, max(0, min(MBChromaSize, g.Width/2-x)), max(0, min(MBChromaSize, g.Height/2-y))
}

// All yields every coordinate in row-major order, y outer and x inner.
func (g Grid) All() iter.Seq[Coord] {
	return func(yield func(Coord) bool) {
		for y := 0; y < g.Rows; y++ {
			for x := 0; x < g.Cols; x++ {
				if !yield(Coord{X: x, Y: y}) {
					return
				}
			}
		}
	}
}
