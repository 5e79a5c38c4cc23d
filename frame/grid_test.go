package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridIterationOrder(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		cols, rows    int
	}{
		{"exact", 64, 64, 4, 4},
		{"ragged", 70, 33, 5, 3},
		{"single", 8, 8, 1, 1},
		{"wide", 1280, 720, 80, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(tt.width, tt.height)
			assert.Equal(t, tt.cols, g.Cols)
			assert.Equal(t, tt.rows, g.Rows)

			var visited []Coord
			seen := map[Coord]bool{}
			for c := range g.All() {
				require.False(t, seen[c], "coordinate %v visited twice", c)
				seen[c] = true
				visited = append(visited, c)
			}
			require.Len(t, visited, tt.cols*tt.rows)
			for i, c := range visited {
				assert.Equal(t, Coord{X: i % tt.cols, Y: i / tt.cols}, c)
				assert.Equal(t, i, g.Index(c))
				assert.Equal(t, c, g.At(i))
			}
		})
	}
}

func TestGridAllStopsEarly(t *testing.T) {
	g := NewGrid(64, 64)
	n := 0
	for range g.All() {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestEdgeMacroblocksAreClipped(t *testing.T) {
	f := NewI420(70, 33)
	g := NewGrid(70, 33)

	sumW := 0
	for x := 0; x < g.Cols; x++ {
		sumW += f.Macroblock(Coord{X: x, Y: 0}).Y.Width
	}
	assert.Equal(t, 70, sumW)

	sumH := 0
	for y := 0; y < g.Rows; y++ {
		sumH += f.Macroblock(Coord{X: 0, Y: y}).Y.Height
	}
	assert.Equal(t, 33, sumH)

	corner := f.MacroblockConst(Coord{X: 4, Y: 2})
	assert.Equal(t, 6, corner.Y.Width())
	assert.Equal(t, 1, corner.Y.Height())
	// Chroma plane is 35x16; the corner block has no chroma rows left.
	assert.False(t, corner.U.Valid())

	edge := f.MacroblockConst(Coord{X: 4, Y: 0})
	assert.Equal(t, 3, edge.U.Width())
	assert.Equal(t, 8, edge.U.Height())
}

func TestOutOfGridViewsAreInvalid(t *testing.T) {
	f := NewI420(32, 32)
	for _, c := range []Coord{{X: -1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 0, Y: -5}} {
		mb := f.Macroblock(c)
		assert.False(t, mb.Y.Valid(), "coord %v", c)
		assert.False(t, mb.U.Valid(), "coord %v", c)
		assert.False(t, mb.V.Valid(), "coord %v", c)
	}
}

func TestMacroblockViewsAliasPlanes(t *testing.T) {
	f := NewI420(32, 32)
	mb := f.Macroblock(Coord{X: 1, Y: 1})
	require.True(t, mb.Y.Valid())
	assert.Equal(t, 16, mb.Y.X)
	assert.Equal(t, 16, mb.Y.Y)

	mb.Y.Set(2, 3, 99)
	assert.Equal(t, byte(99), f.YRow(19)[18])
	assert.Equal(t, byte(99), mb.Y.Const().At(2, 3))

	mb.U.Row(0)[1] = 42
	assert.Equal(t, byte(42), f.URow(8)[9])
}

func TestGridRects(t *testing.T) {
	g := NewGrid(40, 20)
	x, y, w, h := g.LumaRect(Coord{X: 2, Y: 1})
	assert.Equal(t, []int{32, 16, 8, 4}, []int{x, y, w, h})

	x, y, w, h = g.ChromaRect(Coord{X: 2, Y: 1})
	assert.Equal(t, []int{16, 8, 4, 2}, []int{x, y, w, h})
}
