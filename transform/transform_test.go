package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForwardConstantBlockIsDCOnly(t *testing.T) {
	src := make([]int16, 64)
	for i := range src {
		src[i] = 10
	}
	var coeff [64]int32
	Forward8x8(&coeff, src, 8)

	assert.Equal(t, int32(80), coeff[0])
	for i := 1; i < 64; i++ {
		assert.Equal(t, int32(0), coeff[i], "coefficient %d", i)
	}

	out := make([]int32, 64)
	Inverse8x8(out, 8, &coeff)
	for i, v := range out {
		assert.Equal(t, int32(10), v, "sample %d", i)
	}
}

func TestForwardRespectsStride(t *testing.T) {
	// An 8x8 block embedded in a 16-wide buffer with garbage beside it.
	buf := make([]int16, 16*8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			if x < 8 {
				buf[y*16+x] = int16(x + y)
			} else {
				buf[y*16+x] = 999
			}
		}
	}
	packed := make([]int16, 64)
	for y := 0; y < 8; y++ {
		copy(packed[y*8:y*8+8], buf[y*16:y*16+8])
	}

	var a, b [64]int32
	Forward8x8(&a, buf, 16)
	Forward8x8(&b, packed, 8)
	assert.Equal(t, b, a)
}

func TestRoundTripIsApproximate(t *testing.T) {
	src := make([]int16, 64)
	for i := range src {
		src[i] = int16((i*37)%200 - 100)
	}
	var coeff [64]int32
	Forward8x8(&coeff, src, 8)
	out := make([]int32, 64)
	Inverse8x8(out, 8, &coeff)

	var maxErr int32
	for i := range src {
		d := out[i] - int32(src[i])
		if d < 0 {
			d = -d
		}
		maxErr = max(maxErr, d)
	}
	// The basis is not orthonormal; the inverse recovers the signal only
	// roughly, but must stay bounded.
	assert.Less(t, maxErr, int32(400))
}

func TestForward16x16MatchesSubBlocks(t *testing.T) {
	src := make([]int16, 256)
	for i := range src {
		src[i] = int16(i % 17)
	}
	var full [256]int32
	Forward16x16(&full, src, 16)

	var sub [64]int32
	Forward8x8(&sub, src[8*16+8:], 16)
	assert.Equal(t, sub[:], full[192:256])

	Forward8x8(&sub, src[8:], 16)
	assert.Equal(t, sub[:], full[64:128])
}

func TestInverse16x16ClampsToInt16(t *testing.T) {
	var coeff [256]int32
	coeff[0] = 1 << 20
	coeff[64] = -(1 << 20)
	out := make([]int16, 256)
	Inverse16x16(out, 16, &coeff)

	assert.Equal(t, int16(math.MaxInt16), out[0])
	assert.Equal(t, int16(math.MinInt16), out[8])
	assert.Equal(t, int16(0), out[8*16])
}

func TestQPToScale(t *testing.T) {
	tests := []struct {
		qp   int
		want int32
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{10, 3},
		{18, 8},
		{28, 25},
		{42, 125},
		{48, 250},
		{49, 256},
		{51, 256},
		{90, 256},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QPToScale(tt.qp), "qp %d", tt.qp)
	}

	prev := QPToScale(0)
	for qp := 1; qp <= 60; qp++ {
		s := QPToScale(qp)
		assert.GreaterOrEqual(t, s, prev, "qp %d", qp)
		prev = s
	}
}

func TestQuantizeRoundsHalfAwayFromZero(t *testing.T) {
	var c [64]int32
	c[0], c[1], c[2], c[3], c[4], c[5] = 12, 13, -12, -13, 25, -50
	Quantize8x8(&c, 28) // scale 25

	assert.Equal(t, int32(0), c[0])
	assert.Equal(t, int32(1), c[1])
	assert.Equal(t, int32(0), c[2])
	assert.Equal(t, int32(-1), c[3])
	assert.Equal(t, int32(1), c[4])
	assert.Equal(t, int32(-2), c[5])
}

func TestDequantizeErrorBounded(t *testing.T) {
	const qp = 30
	s := QPToScale(qp)
	var orig, q [64]int32
	for i := range orig {
		orig[i] = int32(i*53%1000 - 500)
	}
	q = orig
	Quantize8x8(&q, qp)
	Dequantize8x8(&q, &q, qp)
	for i := range orig {
		d := q[i] - orig[i]
		if d < 0 {
			d = -d
		}
		assert.LessOrEqual(t, d, s/2, "coefficient %d", i)
	}
}
