package motion

import (
	"github.com/opd-ai/telecodec/frame"
)

// NoMatch is the cost reported when no candidate window fits in the reference.
const NoMatch uint32 = 0xFFFFFFFF

// Vector is a signed integer-pixel displacement.
type Vector struct {
	DX, DY int16
}

// Chroma returns the vector scaled to half-resolution chroma, truncating
// toward zero on each axis.
func (v Vector) Chroma() Vector {
	return Vector{DX: v.DX / 2, DY: v.DY / 2}
}

// Result is a motion vector and its SAD cost.
type Result struct {
	MV   Vector
	Cost uint32
}

// SAD returns the sum of absolute differences over the overlapping area of
// two blocks.
func SAD(cur, ref frame.ConstBlockView) uint32 {
	h := min(cur.Height(), ref.Height())
	w := min(cur.Width(), ref.Width())
	var sad uint32
	for y := 0; y < h; y++ {
		c := cur.Row(y)[:w]
		r := ref.Row(y)[:w]
		for x := range c {
			d := int(c[x]) - int(r[x])
			if d < 0 {
				d = -d
			}
			sad += uint32(d)
		}
	}
	return sad
}

// Estimator searches for the best luma displacement of a macroblock.
type Estimator struct {
	// Range bounds the displacement on each axis.
	Range int
	// EarlyTermination stops a full search at the first candidate whose
	// cost is at or below it. Zero disables it.
	EarlyTermination uint32
}

// NewEstimator returns an Estimator with the given search range and early
// termination threshold.
func NewEstimator(searchRange int, earlyTermination uint32) *Estimator {
	if searchRange < 0 {
		searchRange = 0
	}
	return &Estimator{Range: searchRange, EarlyTermination: earlyTermination}
}

type searcher struct {
	cur    frame.ConstBlockView
	ref    *frame.Frame
	baseX  int
	baseY  int
	best   Result
	center Vector
}

func newSearcher(cur, ref *frame.Frame, c frame.Coord) (searcher, bool) {
	blk := cur.MacroblockConst(c).Y
	if !blk.Valid() || ref.Empty() {
		return searcher{}, false
	}
	return searcher{
		cur:   blk,
		ref:   ref,
		baseX: c.X * frame.MBSize,
		baseY: c.Y * frame.MBSize,
		best:  Result{Cost: NoMatch},
	}, true
}

// check evaluates displacement (dx, dy) and keeps it when strictly cheaper.
func (s *searcher) check(dx, dy int) {
	rx, ry := s.baseX+dx, s.baseY+dy
	w, h := s.cur.Width(), s.cur.Height()
	if rx < 0 || ry < 0 || rx+w > s.ref.Width() || ry+h > s.ref.Height() {
		return
	}
	cost := SAD(s.cur, s.ref.LumaBlockAt(rx, ry, w, h))
	if cost < s.best.Cost {
		s.best.Cost = cost
		s.best.MV = Vector{DX: int16(dx), DY: int16(dy)}
		s.center = s.best.MV
	}
}

// Estimate runs a full search for macroblock c of cur against ref. The scan
// order is dy outer and dx inner, both ascending, so ties go to the first
// candidate found.
func (e *Estimator) Estimate(cur, ref *frame.Frame, c frame.Coord) Result {
	s, ok := newSearcher(cur, ref, c)
	if !ok {
		return Result{Cost: NoMatch}
	}
	for dy := -e.Range; dy <= e.Range; dy++ {
		for dx := -e.Range; dx <= e.Range; dx++ {
			s.check(dx, dy)
			if e.EarlyTermination > 0 && s.best.Cost <= e.EarlyTermination {
				return s.best
			}
		}
	}
	return s.best
}

// diamondOffsets lists the axis neighbours then the diagonals.
var diamondOffsets = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// EstimateDiamond runs the coarse-to-fine diamond pass for macroblock c.
func (e *Estimator) EstimateDiamond(cur, ref *frame.Frame, c frame.Coord) Result {
	s, ok := newSearcher(cur, ref, c)
	if !ok {
		return Result{Cost: NoMatch}
	}
	s.check(0, 0)
	for step := e.Range; step > 0; step /= 2 {
		// The center moves as soon as a probe improves, so later probes in
		// the same step are relative to the new best.
		for _, o := range diamondOffsets {
			s.check(int(s.center.DX)+o[0]*step, int(s.center.DY)+o[1]*step)
		}
	}
	return s.best
}
