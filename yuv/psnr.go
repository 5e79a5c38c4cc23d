package yuv

import (
	"math"

	"github.com/opd-ai/telecodec/frame"
)

// MaxPSNR is reported for identical inputs.
const MaxPSNR = 99.0

// PSNR returns the peak signal-to-noise ratio in dB between two equally
// sized byte slices. Only the common prefix is compared.
func PSNR(a, b []byte) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	mse := sum / float64(n)
	if mse <= 0 {
		return MaxPSNR
	}
	return 10 * math.Log10(255*255/mse)
}

// PlanePSNR compares plane i of two frames over the meaningful bytes of each
// row, ignoring stride padding.
func PlanePSNR(a, b *frame.Frame, i int) float64 {
	if a.Empty() || b.Empty() || a.RowBytes(i) != b.RowBytes(i) || a.PlaneRows(i) != b.PlaneRows(i) {
		return 0
	}
	var sum float64
	n := 0
	for r := 0; r < a.PlaneRows(i); r++ {
		ra, rb := a.Row(i, r), b.Row(i, r)
		for x := range ra {
			d := float64(ra[x]) - float64(rb[x])
			sum += d * d
		}
		n += len(ra)
	}
	if n == 0 {
		return 0
	}
	mse := sum / float64(n)
	if mse <= 0 {
		return MaxPSNR
	}
	return 10 * math.Log10(255*255/mse)
}
