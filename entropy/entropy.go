// Package entropy codes quantized coefficient blocks and motion vectors into
// a bitstream.
//
// Coefficients are visited in zig-zag order and emitted as (run, level)
// pairs. A run of up to 15 zeros is written as 4 bits; longer runs write the
// escape value 15 followed by an 8-bit extension of run-16. The level
// magnitude follows in 12 bits and then a sign bit, 1 for negative. Each
// block ends with a pair whose level is zero, its run covering the trailing
// zeros.
//
// A run of exactly 15 is written as the literal 15, which a reader cannot
// tell apart from the escape value and decodes as 16 plus an extension.
// Between two coefficients this shifts the rest of the block. As the final
// end-of-block run the block itself decodes intact, but the reader consumes
// bits of the following block, which then decodes wrong. Existing streams
// depend on this layout so it is kept.
//
// Motion vectors are two signed 16-bit fields, dx then dy, with no
// compression.
package entropy

import (
	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/motion"
)

// Field widths of a (run, level) pair.
const (
	RunBits       = 4
	RunExtBits    = 8
	LevelBits     = 12
	MaxLevel      = 1<<LevelBits - 1
	runEscape     = 15
	runEscapeBase = 16
)

// Zigzag8x8 maps scan position to raster index in an 8x8 block.
var Zigzag8x8 = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

func writePair(w *bitstream.Writer, run int, level int32) {
	if run > runEscape {
		w.WriteBits(runEscape, RunBits)
		w.WriteBits(uint32(run-runEscapeBase), RunExtBits)
	} else {
		w.WriteBits(uint32(run), RunBits)
	}
	mag := level
	var sign uint32
	if level < 0 {
		mag = -level
		sign = 1
	}
	// Magnitudes beyond the field saturate.
	w.WriteBits(uint32(min(mag, MaxLevel)), LevelBits)
	w.WriteBits(sign, 1)
}

func readPair(r *bitstream.Reader) (run int, level int32) {
	run = int(r.ReadBits(RunBits))
	if run == runEscape {
		run = runEscapeBase + int(r.ReadBits(RunExtBits))
	}
	level = int32(r.ReadBits(LevelBits))
	if r.ReadBits(1) == 1 {
		level = -level
	}
	return run, level
}

// EncodeBlock8x8 writes one raster-order coefficient block.
func EncodeBlock8x8(w *bitstream.Writer, coeff *[64]int32) {
	run := 0
	for _, idx := range Zigzag8x8 {
		v := coeff[idx]
		if v == 0 {
			run++
			continue
		}
		writePair(w, run, v)
		run = 0
	}
	writePair(w, run, 0)
}

// DecodeBlock8x8 reads one coefficient block into coeff in raster order.
// Decoding stops at the end-of-block pair, so the pair is consumed even when
// the last scan position held a coefficient. A run that overruns the block
// also ends it. Reads past the end of the stream yield an end-of-block.
func DecodeBlock8x8(r *bitstream.Reader, coeff *[64]int32) {
	clear(coeff[:])
	k := 0
	for {
		run, level := readPair(r)
		if level == 0 {
			return
		}
		k += run
		if k >= 64 {
			return
		}
		coeff[Zigzag8x8[k]] = level
		k++
	}
}

// EncodeMV writes a motion vector as two 16-bit two's complement fields.
func EncodeMV(w *bitstream.Writer, mv motion.Vector) {
	w.WriteBits(uint32(uint16(mv.DX)), 16)
	w.WriteBits(uint32(uint16(mv.DY)), 16)
}

// DecodeMV reads a motion vector written by EncodeMV.
func DecodeMV(r *bitstream.Reader) motion.Vector {
	dx := int16(uint16(r.ReadBits(16)))
	dy := int16(uint16(r.ReadBits(16)))
	return motion.Vector{DX: dx, DY: dy}
}

// Macroblock holds the quantized coefficients of one macroblock: four luma
// 8x8 blocks in raster order, then U and V.
type Macroblock struct {
	Y    [4][64]int32
	U, V [64]int32
}

// EncodeMB writes a macroblock. When mv is non-nil (P-frames) the vector is
// written first.
func EncodeMB(w *bitstream.Writer, mb *Macroblock, mv *motion.Vector) {
	if mv != nil {
		EncodeMV(w, *mv)
	}
	for i := range mb.Y {
		EncodeBlock8x8(w, &mb.Y[i])
	}
	EncodeBlock8x8(w, &mb.U)
	EncodeBlock8x8(w, &mb.V)
}

// DecodeMB reads a macroblock written by EncodeMB. withMV must match the
// value of mv != nil at encode time.
func DecodeMB(r *bitstream.Reader, mb *Macroblock, withMV bool) motion.Vector {
	var mv motion.Vector
	if withMV {
		mv = DecodeMV(r)
	}
	for i := range mb.Y {
		DecodeBlock8x8(r, &mb.Y[i])
	}
	DecodeBlock8x8(r, &mb.U)
	DecodeBlock8x8(r, &mb.V)
	return mv
}
