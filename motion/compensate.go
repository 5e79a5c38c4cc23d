package motion

import (
	"github.com/opd-ai/telecodec/frame"
)

func clampInt(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// PredictBlock fills luma block dst with the reference samples for
// macroblock c displaced by mv. The sample origin is clamped per axis into
// [0, dim-blockdim], so vectors pointing outside the frame saturate.
func PredictBlock(dst frame.BlockView, ref *frame.Frame, c frame.Coord, mv Vector) {
	if !dst.Valid() || ref.Empty() {
		return
	}
	rx := clampInt(c.X*frame.MBSize+int(mv.DX), 0, ref.Width()-dst.Width)
	ry := clampInt(c.Y*frame.MBSize+int(mv.DY), 0, ref.Height()-dst.Height)
	src := ref.LumaBlockAt(rx, ry, dst.Width, dst.Height)
	for y := 0; y < dst.Height; y++ {
		copy(dst.Row(y), src.Row(y))
	}
}

// PredictFrame builds a full I420 prediction of ref with one vector per
// macroblock, indexed in row-major grid order. Missing vectors count as
// zero. dst is reused when it matches the reference geometry and is
// exclusively owned; otherwise a new frame is allocated. The prediction is
// returned.
func PredictFrame(dst, ref *frame.Frame, mvs []Vector) *frame.Frame {
	if ref.Empty() {
		return dst
	}
	w, h := ref.Width(), ref.Height()
	if dst.Empty() || dst.Format() != frame.FormatI420 || dst.Width() != w || dst.Height() != h || !dst.Exclusive() {
		dst = frame.NewI420(w, h)
	}
	dst.Meta = ref.Meta

	grid := frame.NewGrid(w, h)
	cw, ch := ref.ChromaWidth(), ref.ChromaHeight()
	for c := range grid.All() {
		var mv Vector
		if i := grid.Index(c); i < len(mvs) {
			mv = mvs[i]
		}
		mb := dst.Macroblock(c)
		PredictBlock(mb.Y, ref, c, mv)

		if !mb.U.Valid() {
			continue
		}
		cmv := mv.Chroma()
		crx := clampInt(c.X*frame.MBChromaSize+int(cmv.DX), 0, cw-mb.U.Width)
		cry := clampInt(c.Y*frame.MBChromaSize+int(cmv.DY), 0, ch-mb.U.Height)
		for y := 0; y < mb.U.Height; y++ {
			copy(mb.U.Row(y), ref.URow(cry + y)[crx:crx+mb.U.Width])
			copy(mb.V.Row(y), ref.VRow(cry + y)[crx:crx+mb.V.Width])
		}
	}
	return dst
}

// Residual writes cur-pred into dst with a row stride of 16, over the
// overlapping valid area of the two blocks. Entries beyond that area are
// left untouched, so callers must not read past the valid region.
func Residual(dst []int16, cur, pred frame.ConstBlockView) {
	h := min(cur.Height(), pred.Height())
	w := min(cur.Width(), pred.Width())
	for y := 0; y < h; y++ {
		c, p := cur.Row(y), pred.Row(y)
		out := dst[y*frame.MBSize : y*frame.MBSize+w]
		for x := range out {
			out[x] = int16(c[x]) - int16(p[x])
		}
	}
}

// Residual8x8 writes the difference of two 8x8 regions into dst row-major.
func Residual8x8(dst *[64]int16, cur []byte, curStride int, pred []byte, predStride int) {
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			dst[y*8+x] = int16(cur[y*curStride+x]) - int16(pred[y*predStride+x])
		}
	}
}
