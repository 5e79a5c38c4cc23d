package transform

import "math"

// QP bounds of the scale table.
const (
	MinQP = 0
	MaxQP = 51
)

// MaxScale is the quantizer step at MaxQP and above.
const MaxScale = 256

// QPToScale maps a quantization parameter to a quantizer step:
// round(exp(qp*0.115)), roughly 2^(qp/6). The result is capped at MaxScale so
// the mapping stays non-decreasing up to MaxQP.
func QPToScale(qp int) int32 {
	if qp <= MinQP {
		return 1
	}
	if qp >= MaxQP {
		return MaxScale
	}
	s := int32(math.Round(math.Exp(float64(qp) * 0.115)))
	return min(s, MaxScale)
}

// Quantize8x8 divides each coefficient by the step for qp in place, rounding
// half away from zero.
func Quantize8x8(coeff *[64]int32, qp int) {
	s := QPToScale(qp)
	half := s / 2
	for i, v := range coeff {
		if v >= 0 {
			coeff[i] = (v + half) / s
		} else {
			coeff[i] = (v - half) / s
		}
	}
}

// Dequantize8x8 multiplies each coefficient of src by the step for qp into
// dst. dst and src may be the same array.
func Dequantize8x8(dst, src *[64]int32, qp int) {
	s := QPToScale(qp)
	for i, v := range src {
		dst[i] = v * s
	}
}
