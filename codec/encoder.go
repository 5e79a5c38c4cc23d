package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/entropy"
	"github.com/opd-ai/telecodec/frame"
	"github.com/opd-ai/telecodec/motion"
	"github.com/opd-ai/telecodec/ratecontrol"
	"github.com/opd-ai/telecodec/transform"
)

// Encoder turns I420 frames into EncodedFrames. It owns one reference frame,
// which after every Encode call is a copy of the source just encoded.
//
// An Encoder is not safe for concurrent use. Frames must be delivered in
// non-decreasing frame id order, one call at a time.
type Encoder struct {
	cfg       Config
	grid      frame.Grid
	estimator *motion.Estimator
	rate      *ratecontrol.Controller
	logger    *logrus.Entry

	reference *frame.Frame
	last      *ratecontrol.FrameStats

	// Scratch sized once from the configured resolution.
	mvs      []motion.Vector
	coeffs   []entropy.Macroblock
	residual []int16
	pred     []byte

	mvWriter    bitstream.Writer
	coeffWriter bitstream.Writer
}

// NewEncoder validates cfg and allocates the scratch buffers for its
// resolution.
func NewEncoder(cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid := frame.NewGrid(cfg.Width, cfg.Height)
	e := &Encoder{
		cfg:       cfg,
		grid:      grid,
		estimator: motion.NewEstimator(cfg.SearchRange, cfg.EarlyTerminationThreshold),
		rate:      ratecontrol.New(cfg.rateControl()),
		logger:    cfg.logger("encoder"),
		mvs:       make([]motion.Vector, grid.Len()),
		coeffs:    make([]entropy.Macroblock, grid.Len()),
		residual:  make([]int16, grid.Len()*frame.MBSize*frame.MBSize),
		pred:      make([]byte, frame.MBSize*frame.MBSize),
	}

	e.logger.WithFields(logrus.Fields{
		"function":      "NewEncoder",
		"width":         cfg.Width,
		"height":        cfg.Height,
		"fps":           cfg.FPS,
		"gop":           cfg.GOPSize,
		"search_range":  cfg.SearchRange,
		"diamond":       cfg.UseDiamondSearch,
		"qp":            cfg.QPDefault,
		"target_kbps":   cfg.TargetBitrateKbps,
		"macroblocks":   grid.Len(),
		"early_term_at": cfg.EarlyTerminationThreshold,
	}).Info("Encoder created")

	return e, nil
}

// Config returns the configuration the encoder was built with.
func (e *Encoder) Config() Config { return e.cfg }

// Reference returns a shared handle to the current reference frame, or nil
// before the first encode. The caller must Release it.
func (e *Encoder) Reference() *frame.Frame {
	if e.reference == nil {
		return nil
	}
	return e.reference.Share()
}

// RateStats returns a snapshot of the rate controller.
func (e *Encoder) RateStats() ratecontrol.Stats { return e.rate.Stats() }

// RequestKeyframe makes the next encoded frame an I-frame.
func (e *Encoder) RequestKeyframe() {
	if e.last == nil {
		e.last = &ratecontrol.FrameStats{}
	}
	e.last.ForceKeyframe = true
}

// SetTargetBitrate changes the rate control target for subsequent frames.
func (e *Encoder) SetTargetBitrate(kbps uint32) {
	e.logger.WithFields(logrus.Fields{
		"function":     "Encoder.SetTargetBitrate",
		"old_bit_rate": e.rate.Stats().TargetKbps,
		"new_bit_rate": kbps,
	}).Info("Updating encoder bit rate")
	e.rate.SetTargetBitrate(kbps)
}

func (e *Encoder) check(f *frame.Frame) error {
	if f.Empty() {
		return ErrNilFrame
	}
	if f.Format() != frame.FormatI420 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Format())
	}
	if f.Width() != e.cfg.Width || f.Height() != e.cfg.Height {
		return fmt.Errorf("%w: got %dx%d, configured %dx%d",
			ErrDimensionMismatch, f.Width(), f.Height(), e.cfg.Width, e.cfg.Height)
	}
	return nil
}

// Encode compresses one frame. The frame type comes from rate control using
// meta.FrameID; a P decision without a reference is encoded as an I-frame.
// The reference is replaced by a copy of f afterwards, whatever the type.
func (e *Encoder) Encode(f *frame.Frame, meta frame.Meta) (*EncodedFrame, error) {
	if err := e.check(f); err != nil {
		e.logger.WithFields(logrus.Fields{
			"function": "Encoder.Encode",
			"frame_id": meta.FrameID,
			"error":    err.Error(),
		}).Warn("Rejecting frame")
		return nil, err
	}

	frameID := uint32(meta.FrameID)
	ftype := e.rate.ChooseFrameType(frameID, e.last)
	if ftype == bitstream.FrameP && e.reference == nil {
		ftype = bitstream.FrameI
	}

	e.mvWriter.Reset()
	e.coeffWriter.Reset()

	var sadSum float64
	if ftype == bitstream.FrameI {
		e.encodeIntra(f)
	} else {
		sadSum = e.encodeInter(f)
	}

	mvBytes, coeffBytes := e.mvWriter.Bytes(), e.coeffWriter.Bytes()
	raw := make([]byte, 0, len(mvBytes)+len(coeffBytes))
	raw = append(append(raw, mvBytes...), coeffBytes...)
	out := FromHeader(bitstream.FrameHeader{
		Type:        ftype,
		FrameID:     frameID,
		TimestampUS: uint64(meta.TimestampUS),
		MVBytes:     uint32(len(mvBytes)),
		CoeffBytes:  uint32(len(coeffBytes)),
	}, raw)

	stats := ratecontrol.FrameStats{
		FrameID:  frameID,
		BitsUsed: uint32(out.TotalBytes() * 8),
		SADSum:   sadSum,
	}
	out.QP = uint8(e.rate.ChooseQP(stats))
	e.last = &stats

	if e.reference == nil {
		e.reference = f.Clone()
	} else {
		e.reference.CopyFrom(f)
	}
	e.reference.Meta = meta

	e.logger.WithFields(logrus.Fields{
		"function":    "Encoder.Encode",
		"frame_id":    frameID,
		"frame_type":  ftype.String(),
		"mv_bytes":    len(out.MVBytes),
		"coeff_bytes": len(out.CoeffBytes),
		"sad_sum":     sadSum,
		"next_qp":     out.QP,
	}).Debug("Frame encoded")

	return out, nil
}

// encodeIntra codes every macroblock straight from source pixels. Samples
// outside the frame are coded as zero.
func (e *Encoder) encodeIntra(f *frame.Frame) {
	qp := e.cfg.QPDefault
	var blk [64]int16
	for c := range e.grid.All() {
		mb := &e.coeffs[e.grid.Index(c)]
		src := f.MacroblockConst(c)

		for b := range mb.Y {
			ox, oy := (b%2)*8, (b/2)*8
			loadBlock(&blk, src.Y, ox, oy)
			transform.Forward8x8(&mb.Y[b], blk[:], 8)
			transform.Quantize8x8(&mb.Y[b], qp)
		}

		loadBlock(&blk, src.U, 0, 0)
		transform.Forward8x8(&mb.U, blk[:], 8)
		transform.Quantize8x8(&mb.U, qp)
		loadBlock(&blk, src.V, 0, 0)
		transform.Forward8x8(&mb.V, blk[:], 8)
		transform.Quantize8x8(&mb.V, qp)

		entropy.EncodeMB(&e.coeffWriter, mb, nil)
	}
	e.coeffWriter.FlushByteAlign()
}

// encodeInter codes luma residuals against the motion-compensated reference
// and returns the summed search cost. Chroma is written as zero blocks.
func (e *Encoder) encodeInter(f *frame.Frame) float64 {
	qp := e.cfg.QPDefault
	var sadSum float64
	const mbArea = frame.MBSize * frame.MBSize

	for c := range e.grid.All() {
		i := e.grid.Index(c)
		var res motion.Result
		if e.cfg.UseDiamondSearch {
			res = e.estimator.EstimateDiamond(f, e.reference, c)
		} else {
			res = e.estimator.Estimate(f, e.reference, c)
		}
		if res.Cost == motion.NoMatch {
			res = motion.Result{}
		}
		sadSum += float64(res.Cost)
		e.mvs[i] = res.MV
		entropy.EncodeMV(&e.mvWriter, res.MV)

		cur := f.MacroblockConst(c)
		pred := frame.NewBlockView(e.pred, frame.MBSize, 0, 0, cur.Y.Width(), cur.Y.Height())
		motion.PredictBlock(pred, e.reference, c, res.MV)

		residual := e.residual[i*mbArea : (i+1)*mbArea]
		clear(residual)
		motion.Residual(residual, cur.Y, pred.Const())

		mb := &e.coeffs[i]
		for b := range mb.Y {
			ox, oy := (b%2)*8, (b/2)*8
			transform.Forward8x8(&mb.Y[b], residual[oy*frame.MBSize+ox:], frame.MBSize)
			transform.Quantize8x8(&mb.Y[b], qp)
		}
		clear(mb.U[:])
		clear(mb.V[:])

		entropy.EncodeMB(&e.coeffWriter, mb, nil)
	}
	e.mvWriter.FlushByteAlign()
	e.coeffWriter.FlushByteAlign()
	return sadSum
}

// loadBlock copies the 8x8 window of v at (ox, oy) into dst, zero-filling
// samples outside the view.
func loadBlock(dst *[64]int16, v frame.ConstBlockView, ox, oy int) {
	clear(dst[:])
	if !v.Valid() {
		return
	}
	w := min(8, v.Width()-ox)
	h := min(8, v.Height()-oy)
	for y := 0; y < h; y++ {
		row := v.Row(oy + y)
		for x := 0; x < w; x++ {
			dst[y*8+x] = int16(row[ox+x])
		}
	}
}
