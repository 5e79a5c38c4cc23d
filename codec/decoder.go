package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/entropy"
	"github.com/opd-ai/telecodec/frame"
	"github.com/opd-ai/telecodec/limits"
	"github.com/opd-ai/telecodec/motion"
	"github.com/opd-ai/telecodec/transform"
)

// mvSize is the coded size of one motion vector in bytes.
const mvSize = 4

// Decoder reconstructs frames from the two coefficient streams. It keeps its
// own reconstruction as the reference for P-frames. Output quality is
// whatever the encoder's zero-chroma P-frames and source-based reference
// allow; no drift correction is attempted.
type Decoder struct {
	cfg    Config
	grid   frame.Grid
	logger *logrus.Entry

	reference *frame.Frame
	mvs       []motion.Vector
	mb        entropy.Macroblock
	reader    bitstream.Reader
}

// NewDecoder returns a decoder for cfg.Width x cfg.Height streams quantized
// at cfg.QPDefault. Only the geometry and QP fields are used.
func NewDecoder(cfg Config) (*Decoder, error) {
	if err := limits.ValidateDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.QPDefault < transform.MinQP || cfg.QPDefault > transform.MaxQP {
		return nil, fmt.Errorf("%w: QP %d outside [%d, %d]",
			ErrInvalidConfig, cfg.QPDefault, transform.MinQP, transform.MaxQP)
	}
	grid := frame.NewGrid(cfg.Width, cfg.Height)
	return &Decoder{
		cfg:    cfg,
		grid:   grid,
		logger: cfg.logger("decoder"),
		mvs:    make([]motion.Vector, grid.Len()),
	}, nil
}

// Reset drops the reference, so the next frame must be an I-frame.
func (d *Decoder) Reset() {
	if d.reference != nil {
		d.reference.Release()
		d.reference = nil
	}
}

// DecodeFrame decodes an EncodedFrame.
func (d *Decoder) DecodeFrame(ef *EncodedFrame) (*frame.Frame, error) {
	return d.Decode(ef.Header(), ef.MVBytes, ef.CoeffBytes)
}

// DecodePayload decodes raw as laid out in a bitstream file: the motion
// vector stream followed by the coefficient stream.
func (d *Decoder) DecodePayload(h bitstream.FrameHeader, raw []byte) (*frame.Frame, error) {
	if len(raw) < h.PayloadSize() {
		return nil, fmt.Errorf("frame %d: have %d bytes, header declares %d: %w",
			h.FrameID, len(raw), h.PayloadSize(), ErrTruncatedPayload)
	}
	return d.Decode(h, raw[:h.MVBytes], raw[h.MVBytes:h.PayloadSize()])
}

// Decode reconstructs one frame. The returned frame is freshly allocated and
// exclusively owned by the caller; the decoder keeps its own copy as the
// reference.
func (d *Decoder) Decode(h bitstream.FrameHeader, mv, coeff []byte) (*frame.Frame, error) {
	var recon *frame.Frame
	switch h.Type {
	case bitstream.FrameI:
		recon = frame.NewI420(d.cfg.Width, d.cfg.Height)
	case bitstream.FrameP:
		if d.reference == nil {
			return nil, fmt.Errorf("frame %d: %w", h.FrameID, ErrNoReference)
		}
		if need := d.grid.Len() * mvSize; len(mv) < need {
			return nil, fmt.Errorf("frame %d: motion stream has %d bytes, need %d: %w",
				h.FrameID, len(mv), need, ErrTruncatedPayload)
		}
		d.reader.Reset(mv)
		for i := range d.mvs {
			d.mvs[i] = entropy.DecodeMV(&d.reader)
		}
		recon = motion.PredictFrame(nil, d.reference, d.mvs)
	default:
		return nil, fmt.Errorf("frame %d: %w", h.FrameID, bitstream.ErrBadFrameType)
	}

	d.reader.Reset(coeff)
	for c := range d.grid.All() {
		entropy.DecodeMB(&d.reader, &d.mb, false)
		dst := recon.Macroblock(c)
		for b := range d.mb.Y {
			addResidual(dst.Y, (b%2)*8, (b/2)*8, &d.mb.Y[b], d.cfg.QPDefault)
		}
		addResidual(dst.U, 0, 0, &d.mb.U, d.cfg.QPDefault)
		addResidual(dst.V, 0, 0, &d.mb.V, d.cfg.QPDefault)
	}

	recon.Meta = frame.Meta{
		FrameID:     int64(h.FrameID),
		TimestampUS: int64(h.TimestampUS),
		PTS:         float64(h.TimestampUS) / 1e6,
	}

	d.Reset()
	d.reference = recon.Clone()

	d.logger.WithFields(logrus.Fields{
		"function":    "Decoder.Decode",
		"frame_id":    h.FrameID,
		"frame_type":  h.Type.String(),
		"mv_bytes":    len(mv),
		"coeff_bytes": len(coeff),
	}).Debug("Frame decoded")

	return recon, nil
}

// addResidual dequantizes and inverts q, then adds it to the 8x8 window of v
// at (ox, oy), clamping to [0, 255]. Samples outside the view are dropped.
func addResidual(v frame.BlockView, ox, oy int, q *[64]int32, qp int) {
	if !v.Valid() {
		return
	}
	var coeff [64]int32
	var res [64]int32
	transform.Dequantize8x8(&coeff, q, qp)
	transform.Inverse8x8(res[:], 8, &coeff)

	w := min(8, v.Width-ox)
	h := min(8, v.Height-oy)
	for y := 0; y < h; y++ {
		row := v.Row(oy + y)
		for x := 0; x < w; x++ {
			s := int32(row[ox+x]) + res[y*8+x]
			row[ox+x] = byte(min(max(s, 0), 255))
		}
	}
}
