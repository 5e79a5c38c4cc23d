// Package frame provides pixel buffer storage and macroblock addressing for
// the telecodec video core.
//
// # Frames
//
// A Frame is a rectangular pixel buffer in one of three formats:
//
//	RGB24  one interleaved plane, 3 bytes per pixel
//	I420   planar Y, U, V; chroma at half width and height
//	NV12   planar Y plus one interleaved UV plane at half height
//
// Rows are addressed through a stride that may exceed the visible width. Strides
// are rounded up to a 32 byte boundary so rows start on a vector-friendly
// alignment:
//
//	f := frame.NewI420(640, 480)
//	row := f.YRow(10) // len(row) == f.Width()
//
// # Ownership
//
// Plane storage is reference counted. A Frame is either the sole owner of its
// storage (exclusive) or one of several handles sharing it:
//
//	shared := f.Share()   // same planes, refcount 2
//	defer shared.Release()
//
//	copy := f.Clone()     // independent storage, refcount 1
//	f.MakeExclusive()     // copy-on-write: detach before mutating
//
// Shared data must be treated as read-only by every holder. The encoder's
// reference frame always takes its own exclusive copy via CopyFrom.
//
// # Macroblocks
//
// A Grid maps a frame to 16x16 luma macroblocks (8x8 chroma). Views are
// descriptors into the existing planes, clipped at the right and bottom edges:
//
//	grid := frame.NewGrid(f.Width(), f.Height())
//	for c := range grid.All() {
//	    mb := f.MacroblockConst(c)
//	    _ = mb.Y.At(0, 0)
//	}
//
// Iteration is row-major (y outer, x inner) and visits each coordinate once.
package frame
