// Package transform provides the codec's separable integer block transform
// and scalar quantizer.
//
// The transform uses a fixed basis of +1, -1 and 0 entries rather than a
// true DCT. Forward is C * X * Ct with a single right shift by 3 after the
// second pass; inverse is Ct * Y * C, also shifted by 3. The pair is only an
// approximate inverse: integer rounding drops low-order bits. A 16x16 luma
// block is four independent 8x8 transforms in raster order.
package transform

import "math"

// basis is the 8x8 transform matrix.
var basis = [8][8]int32{
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, 1, 1, 1, -1, -1, -1, -1},
	{1, 1, -1, -1, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, 1, -1, -1},
	{1, -1, 0, 0, 0, 0, 0, 0},
	{0, 0, 1, -1, 0, 0, 0, 0},
	{0, 0, 0, 0, 1, -1, 0, 0},
	{0, 0, 0, 0, 0, 0, 1, -1},
}

// Forward8x8 transforms the 8x8 residual at src (row stride stride) into dst.
func Forward8x8(dst *[64]int32, src []int16, stride int) {
	var tmp [64]int32
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			var sum int32
			for k := 0; k < 8; k++ {
				sum += basis[i][k] * int32(src[k*stride+j])
			}
			tmp[i*8+j] = sum
		}
	}
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			var sum int32
			for k := 0; k < 8; k++ {
				sum += tmp[i*8+k] * basis[j][k]
			}
			dst[i*8+j] = sum >> 3
		}
	}
}

// Inverse8x8 inverts the coefficients in src into dst with row stride stride.
func Inverse8x8(dst []int32, stride int, src *[64]int32) {
	var tmp [64]int32
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			var sum int32
			for k := 0; k < 8; k++ {
				sum += basis[k][i] * src[k*8+j]
			}
			tmp[i*8+j] = sum
		}
	}
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			var sum int32
			for k := 0; k < 8; k++ {
				sum += tmp[i*8+k] * basis[k][j]
			}
			dst[i*stride+j] = sum >> 3
		}
	}
}

// Forward16x16 transforms a 16x16 residual as four 8x8 blocks. Block b
// (0 top-left, 1 top-right, 2 bottom-left, 3 bottom-right) lands in
// dst[b*64 : b*64+64].
func Forward16x16(dst *[256]int32, src []int16, stride int) {
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			b := by*2 + bx
			Forward8x8((*[64]int32)(dst[b*64:b*64+64]), src[by*8*stride+bx*8:], stride)
		}
	}
}

// Inverse16x16 inverts four 8x8 coefficient blocks into a 16x16 residual,
// clamping each sample to the int16 range.
func Inverse16x16(dst []int16, stride int, src *[256]int32) {
	var tmp [64]int32
	for by := 0; by < 2; by++ {
		for bx := 0; bx < 2; bx++ {
			b := by*2 + bx
			Inverse8x8(tmp[:], 8, (*[64]int32)(src[b*64:b*64+64]))
			for y := 0; y < 8; y++ {
				for x := 0; x < 8; x++ {
					dst[(by*8+y)*stride+bx*8+x] = clampInt16(tmp[y*8+x])
				}
			}
		}
	}
}

func clampInt16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
