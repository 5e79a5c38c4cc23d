// Package motion implements integer-pixel block motion estimation and
// compensation for 16x16 luma macroblocks.
//
// Estimation compares a macroblock of the current frame against displaced
// windows of a reference frame using the sum of absolute differences:
//
//	est := motion.NewEstimator(16, 0)
//	res := est.Estimate(cur, ref, frame.Coord{X: 2, Y: 1})
//	if res.Cost == motion.NoMatch {
//	    // no displaced window fit inside the reference
//	}
//
// Estimate is an exhaustive search over [-range, +range] in both axes.
// EstimateDiamond is a single coarse-to-fine pass that probes the eight
// neighbours of the current best vector at a step that starts at the range
// and halves until zero. It is cheaper but can miss the exhaustive optimum.
//
// Compensation samples the reference at the macroblock origin plus the
// vector, clamping the origin so the block always lies inside the frame.
// Chroma uses the luma vector halved toward zero.
//
// The package is compute-only: nothing blocks, allocates per call, or logs.
package motion
