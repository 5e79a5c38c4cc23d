package motion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/telecodec/frame"
)

// texturedFrame returns a frame whose luma never repeats within a search
// window, so every displacement has a distinct SAD.
func texturedFrame(w, h int) *frame.Frame {
	f := frame.NewI420(w, h)
	for y := 0; y < h; y++ {
		row := f.YRow(y)
		for x := range row {
			row[x] = byte((x*7 + y*13 + (x*y)%11) % 256)
		}
	}
	for y := 0; y < f.ChromaHeight(); y++ {
		for x := 0; x < f.ChromaWidth(); x++ {
			f.URow(y)[x] = byte(x * 3)
			f.VRow(y)[x] = byte(y * 5)
		}
	}
	return f
}

// shifted returns a copy of src whose content moved by (sx, sy): pixel
// (x, y) of the result equals src(x-sx, y-sy), edges replicated.
func shifted(src *frame.Frame, sx, sy int) *frame.Frame {
	out := frame.NewI420(src.Width(), src.Height())
	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			ox := clampInt(x-sx, 0, src.Width()-1)
			oy := clampInt(y-sy, 0, src.Height()-1)
			out.YRow(y)[x] = src.YRow(oy)[ox]
		}
	}
	return out
}

func TestEstimateIdenticalFrames(t *testing.T) {
	f := texturedFrame(64, 48)
	ref := f.Clone()
	est := NewEstimator(8, 0)

	for c := range frame.NewGrid(64, 48).All() {
		full := est.Estimate(f, ref, c)
		assert.Equal(t, Vector{}, full.MV, "full search at %v", c)
		assert.Equal(t, uint32(0), full.Cost, "full search at %v", c)

		dia := est.EstimateDiamond(f, ref, c)
		assert.Equal(t, Vector{}, dia.MV, "diamond at %v", c)
		assert.Equal(t, uint32(0), dia.Cost, "diamond at %v", c)
	}
}

func TestEstimateFindsTranslation(t *testing.T) {
	ref := texturedFrame(64, 64)
	// Current content moved right by 3 and down by 2, so the best match in the
	// reference is displaced by (-3, -2).
	cur := shifted(ref, 3, 2)
	est := NewEstimator(4, 0)

	res := est.Estimate(cur, ref, frame.Coord{X: 1, Y: 1})
	assert.Equal(t, Vector{DX: -3, DY: -2}, res.MV)
	assert.Equal(t, uint32(0), res.Cost)
}

func TestEstimateTieBreaksOnFirstCandidate(t *testing.T) {
	cur := frame.NewI420(32, 32)
	ref := frame.NewI420(32, 32)
	cur.Fill(0, 100)
	ref.Fill(0, 100)

	// Every candidate costs zero, so the first in-bounds one wins. For the
	// macroblock at (1,1) with range 2 that is (-2, -2).
	res := NewEstimator(2, 0).Estimate(cur, ref, frame.Coord{X: 1, Y: 1})
	assert.Equal(t, Vector{DX: -2, DY: -2}, res.MV)

	// At (0,0) negative displacements leave the frame; the first valid
	// candidate is (0, 0).
	res = NewEstimator(2, 0).Estimate(cur, ref, frame.Coord{X: 0, Y: 0})
	assert.Equal(t, Vector{}, res.MV)
}

func TestEstimateNoCandidate(t *testing.T) {
	cur := frame.NewI420(32, 32)
	ref := frame.NewI420(16, 16)
	// Macroblock (1,1) cannot fit anywhere in a 16x16 reference with range 0.
	res := NewEstimator(0, 0).Estimate(cur, ref, frame.Coord{X: 1, Y: 1})
	assert.Equal(t, NoMatch, res.Cost)
	assert.Equal(t, Vector{}, res.MV)

	res = NewEstimator(4, 0).Estimate(cur, ref, frame.Coord{X: 5, Y: 5})
	assert.Equal(t, NoMatch, res.Cost)
}

func TestEstimateEarlyTermination(t *testing.T) {
	cur := frame.NewI420(32, 32)
	ref := frame.NewI420(32, 32)
	cur.Fill(0, 100)
	ref.Fill(0, 101)

	// Every candidate costs 256; the threshold accepts the first one.
	res := NewEstimator(2, 300).Estimate(cur, ref, frame.Coord{X: 1, Y: 1})
	assert.Equal(t, Vector{DX: -2, DY: -2}, res.MV)
	assert.Equal(t, uint32(256), res.Cost)
}

func TestDiamondStaysInsideRange(t *testing.T) {
	ref := texturedFrame(64, 64)
	cur := shifted(ref, 2, 0)
	est := NewEstimator(8, 0)
	res := est.EstimateDiamond(cur, ref, frame.Coord{X: 1, Y: 1})
	full := est.Estimate(cur, ref, frame.Coord{X: 1, Y: 1})

	assert.LessOrEqual(t, full.Cost, res.Cost)
	assert.NotEqual(t, NoMatch, res.Cost)
}

func TestSADOverlap(t *testing.T) {
	a := frame.NewI420(16, 16)
	b := frame.NewI420(16, 16)
	a.Fill(0, 10)
	b.Fill(0, 7)
	full := SAD(a.MacroblockConst(frame.Coord{}).Y, b.MacroblockConst(frame.Coord{}).Y)
	assert.Equal(t, uint32(256*3), full)

	part := SAD(a.LumaBlockAt(0, 0, 4, 4), b.LumaBlockAt(0, 0, 8, 2))
	assert.Equal(t, uint32(4*2*3), part)
}

func TestPredictBlockClampsOrigin(t *testing.T) {
	ref := texturedFrame(32, 32)
	pred := frame.NewI420(16, 16)
	dst := pred.Macroblock(frame.Coord{}).Y

	PredictBlock(dst, ref, frame.Coord{X: 1, Y: 1}, Vector{DX: 100, DY: -100})
	// Origin (116, -84) clamps to (16, 0).
	for y := 0; y < 16; y++ {
		assert.Equal(t, ref.YRow(y)[16:32], pred.YRow(y), "row %d", y)
	}

	PredictBlock(dst, ref, frame.Coord{}, Vector{DX: 3, DY: 5})
	assert.Equal(t, ref.YRow(5)[3:19], pred.YRow(0))
}

func TestPredictFrameZeroVectorsCopiesReference(t *testing.T) {
	ref := texturedFrame(40, 24)
	pred := PredictFrame(nil, ref, nil)
	require.NotNil(t, pred)
	for y := 0; y < ref.Height(); y++ {
		assert.Equal(t, ref.YRow(y), pred.YRow(y))
	}
	for y := 0; y < ref.ChromaHeight(); y++ {
		assert.Equal(t, ref.URow(y), pred.URow(y))
		assert.Equal(t, ref.VRow(y), pred.VRow(y))
	}
}

func TestPredictFrameHalvesChromaVector(t *testing.T) {
	ref := texturedFrame(32, 32)
	mvs := []Vector{{DX: 5, DY: -3}, {}, {}, {}}
	pred := PredictFrame(frame.NewI420(32, 32), ref, mvs)

	// Luma origin (5, 0) after clamping dy; chroma vector (2, -1) -> origin (2, 0).
	assert.Equal(t, ref.YRow(0)[5:21], pred.YRow(0)[0:16])
	assert.Equal(t, ref.URow(0)[2:10], pred.URow(0)[0:8])
	assert.Equal(t, Vector{DX: -1, DY: 1}, Vector{DX: -3, DY: 3}.Chroma())
}

func TestResidualLeavesTailUntouched(t *testing.T) {
	cur := frame.NewI420(20, 20)
	pred := frame.NewI420(20, 20)
	cur.Fill(0, 50)
	pred.Fill(0, 80)

	buf := make([]int16, 256)
	for i := range buf {
		buf[i] = 1234
	}
	// Edge macroblock (1,1) is 4x4.
	Residual(buf, cur.MacroblockConst(frame.Coord{X: 1, Y: 1}).Y, pred.MacroblockConst(frame.Coord{X: 1, Y: 1}).Y)
	assert.Equal(t, int16(-30), buf[0])
	assert.Equal(t, int16(-30), buf[3*16+3])
	assert.Equal(t, int16(1234), buf[4])
	assert.Equal(t, int16(1234), buf[4*16])
}

func TestResidual8x8(t *testing.T) {
	cur := make([]byte, 16*8)
	pred := make([]byte, 8*8)
	for i := range cur {
		cur[i] = 200
	}
	for i := range pred {
		pred[i] = byte(i)
	}
	var out [64]int16
	Residual8x8(&out, cur, 16, pred, 8)
	assert.Equal(t, int16(200), out[0])
	assert.Equal(t, int16(200-63), out[63])
}
