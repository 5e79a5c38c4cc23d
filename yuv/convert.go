// Package yuv converts between packed RGB24 and planar YUV 4:2:0 frames
// using integer fixed-point BT.601 approximations.
//
// Chroma is point-sampled: the U and V of each 2x2 luma block come from its
// top-left pixel, with no averaging filter. A round trip is lossy and is
// judged by PSNR rather than bit equality.
package yuv

import (
	"errors"
	"fmt"

	"github.com/opd-ai/telecodec/frame"
)

var (
	// ErrFormatMismatch indicates a frame has the wrong pixel format for the conversion.
	ErrFormatMismatch = errors.New("frame format mismatch")

	// ErrSizeMismatch indicates source and destination dimensions differ.
	ErrSizeMismatch = errors.New("frame size mismatch")
)

func clamp255(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// PixelToYUV converts one RGB pixel with the codec's fixed-point coefficients.
func PixelToYUV(r, g, b byte) (y, u, v byte) {
	ri, gi, bi := int(r), int(g), int(b)
	y = clamp255((77*ri + 150*gi + 29*bi) >> 8)
	u = clamp255(((-43*ri - 85*gi + 128*bi) >> 8) + 128)
	v = clamp255(((128*ri - 107*gi - 21*bi) >> 8) + 128)
	return y, u, v
}

// PixelToRGB is the fixed-point inverse of PixelToYUV.
func PixelToRGB(y, u, v byte) (r, g, b byte) {
	yy := int(y)
	uu := int(u) - 128
	vv := int(v) - 128
	r = clamp255(yy + ((1436 * vv) >> 10))
	g = clamp255(yy - ((352*uu + 731*vv) >> 10))
	b = clamp255(yy + ((1812 * uu) >> 10))
	return r, g, b
}

func check(dst, src *frame.Frame, dstFmt, srcFmt frame.Format) error {
	if src.Empty() || dst.Empty() {
		return fmt.Errorf("empty frame: %w", ErrSizeMismatch)
	}
	if src.Format() != srcFmt {
		return fmt.Errorf("source is %s, want %s: %w", src.Format(), srcFmt, ErrFormatMismatch)
	}
	if dst.Format() != dstFmt {
		return fmt.Errorf("destination is %s, want %s: %w", dst.Format(), dstFmt, ErrFormatMismatch)
	}
	if src.Width() != dst.Width() || src.Height() != dst.Height() {
		return fmt.Errorf("source %dx%d, destination %dx%d: %w",
			src.Width(), src.Height(), dst.Width(), dst.Height(), ErrSizeMismatch)
	}
	return nil
}

// RGBToI420 converts an RGB24 frame into a pre-allocated I420 frame of the
// same size. Metadata is copied across.
func RGBToI420(dst, src *frame.Frame) error {
	if err := check(dst, src, frame.FormatI420, frame.FormatRGB24); err != nil {
		return err
	}
	w, h := src.Width(), src.Height()
	cw, ch := dst.ChromaWidth(), dst.ChromaHeight()
	for y := 0; y < h; y++ {
		row := src.Row(0, y)
		yRow := dst.YRow(y)
		sampleChroma := y&1 == 0 && y/2 < ch
		var uRow, vRow []byte
		if sampleChroma {
			uRow, vRow = dst.URow(y/2), dst.VRow(y/2)
		}
		for x := 0; x < w; x++ {
			py, pu, pv := PixelToYUV(row[x*3], row[x*3+1], row[x*3+2])
			yRow[x] = py
			if sampleChroma && x&1 == 0 && x/2 < cw {
				uRow[x/2] = pu
				vRow[x/2] = pv
			}
		}
	}
	dst.Meta = src.Meta
	return nil
}

// I420ToRGB converts an I420 frame into a pre-allocated RGB24 frame of the
// same size. On odd dimensions the last luma row and column reuse the
// nearest chroma sample.
func I420ToRGB(dst, src *frame.Frame) error {
	if err := check(dst, src, frame.FormatRGB24, frame.FormatI420); err != nil {
		return err
	}
	w, h := src.Width(), src.Height()
	cw, ch := src.ChromaWidth(), src.ChromaHeight()
	if cw == 0 || ch == 0 {
		return fmt.Errorf("frame %dx%d has no chroma: %w", w, h, ErrSizeMismatch)
	}
	for y := 0; y < h; y++ {
		yRow := src.YRow(y)
		cy := min(y/2, ch-1)
		uRow, vRow := src.URow(cy), src.VRow(cy)
		out := dst.Row(0, y)
		for x := 0; x < w; x++ {
			cx := min(x/2, cw-1)
			r, g, b := PixelToRGB(yRow[x], uRow[cx], vRow[cx])
			out[x*3], out[x*3+1], out[x*3+2] = r, g, b
		}
	}
	dst.Meta = src.Meta
	return nil
}

// NV12ToI420 de-interleaves the UV plane of an NV12 frame.
func NV12ToI420(dst, src *frame.Frame) error {
	if err := check(dst, src, frame.FormatI420, frame.FormatNV12); err != nil {
		return err
	}
	for y := 0; y < src.Height(); y++ {
		copy(dst.YRow(y), src.YRow(y))
	}
	cw := dst.ChromaWidth()
	for y := 0; y < dst.ChromaHeight(); y++ {
		uv := src.Row(1, y)
		u, v := dst.URow(y), dst.VRow(y)
		for x := 0; x < cw; x++ {
			u[x] = uv[2*x]
			v[x] = uv[2*x+1]
		}
	}
	dst.Meta = src.Meta
	return nil
}

// I420ToNV12 interleaves the U and V planes of an I420 frame.
func I420ToNV12(dst, src *frame.Frame) error {
	if err := check(dst, src, frame.FormatNV12, frame.FormatI420); err != nil {
		return err
	}
	for y := 0; y < src.Height(); y++ {
		copy(dst.YRow(y), src.YRow(y))
	}
	cw := src.ChromaWidth()
	for y := 0; y < src.ChromaHeight(); y++ {
		uv := dst.Row(1, y)
		u, v := src.URow(y), src.VRow(y)
		for x := 0; x < cw; x++ {
			uv[2*x] = u[x]
			uv[2*x+1] = v[x]
		}
	}
	dst.Meta = src.Meta
	return nil
}

// ToI420 returns src as an I420 frame, converting RGB24 and NV12 input into a
// newly allocated frame. I420 input is returned as a shared handle.
func ToI420(src *frame.Frame) (*frame.Frame, error) {
	if src.Empty() {
		return nil, fmt.Errorf("empty frame: %w", ErrSizeMismatch)
	}
	switch src.Format() {
	case frame.FormatI420:
		return src.Share(), nil
	case frame.FormatRGB24:
		dst := frame.NewI420(src.Width(), src.Height())
		return dst, RGBToI420(dst, src)
	case frame.FormatNV12:
		dst := frame.NewI420(src.Width(), src.Height())
		return dst, NV12ToI420(dst, src)
	default:
		return nil, fmt.Errorf("cannot convert %s: %w", src.Format(), ErrFormatMismatch)
	}
}
