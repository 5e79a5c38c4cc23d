// Package pipeline runs capture, color conversion and encoding as concurrent
// stages joined by bounded drop-oldest queues.
//
// A single Encoder is owned by the encode stage, so frames reach it one at a
// time in capture order. When a stage falls behind, the queue feeding it
// drops its oldest frame instead of blocking the producer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/frame"
	"github.com/opd-ai/telecodec/source"
	"github.com/opd-ai/telecodec/yuv"
)

// Config configures a Pipeline.
type Config struct {
	Codec codec.Config

	// Queue capacities between stages.
	CaptureQueue int
	ConvertQueue int
	EncodeQueue  int

	// Realtime paces Run's capture loop at the source frame rate.
	Realtime bool

	Logger *logrus.Entry
}

// DefaultConfig returns the default codec config with two-slot queues.
func DefaultConfig() Config {
	return Config{
		Codec:        codec.DefaultConfig(),
		CaptureQueue: 2,
		ConvertQueue: 2,
		EncodeQueue:  2,
	}
}

// Encoded is one output of the encode stage.
type Encoded struct {
	Frame *codec.EncodedFrame
	Meta  frame.Meta
	// Elapsed is the time Encode took.
	Elapsed time.Duration
}

// Stats counts frames through each stage.
type Stats struct {
	Captured     uint64
	Converted    uint64
	Encoded      uint64
	CaptureDrops uint64
	ConvertDrops uint64
	EncodeDrops  uint64
	OverBudget   uint64
	Errors       uint64
}

// Pipeline is capture -> convert -> encode. Frames enter with Push (or from
// a source via Run) and leave through Pop.
type Pipeline struct {
	cfg     Config
	encoder *codec.Encoder
	logger  *logrus.Entry

	capture   *BoundedQueue[*frame.Frame]
	converted *BoundedQueue[*frame.Frame]
	encoded   *BoundedQueue[Encoded]

	captured     atomic.Uint64
	convertCount atomic.Uint64
	encodeCount  atomic.Uint64
	overBudget   atomic.Uint64
	errs         atomic.Uint64

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New validates cfg and builds the stage queues and the encoder.
func New(cfg Config) (*Pipeline, error) {
	def := DefaultConfig()
	if cfg.CaptureQueue <= 0 {
		cfg.CaptureQueue = def.CaptureQueue
	}
	if cfg.ConvertQueue <= 0 {
		cfg.ConvertQueue = def.ConvertQueue
	}
	if cfg.EncodeQueue <= 0 {
		cfg.EncodeQueue = def.EncodeQueue
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "pipeline")
	}
	if cfg.Codec.Logger == nil {
		cfg.Codec.Logger = cfg.Logger
	}

	enc, err := codec.NewEncoder(cfg.Codec)
	if err != nil {
		return nil, fmt.Errorf("pipeline encoder: %w", err)
	}

	release := func(f *frame.Frame) { f.Release() }
	return &Pipeline{
		cfg:       cfg,
		encoder:   enc,
		logger:    cfg.Logger,
		capture:   NewBoundedQueue(cfg.CaptureQueue, release),
		converted: NewBoundedQueue(cfg.ConvertQueue, release),
		encoded:   NewBoundedQueue[Encoded](cfg.EncodeQueue, nil),
	}, nil
}

// Encoder returns the encode stage's encoder. It must not be used while
// the pipeline is running.
func (p *Pipeline) Encoder() *codec.Encoder { return p.encoder }

// Start launches the convert and encode stages. They stop when ctx is done,
// on Stop, or after CloseInput once every queued frame has been encoded.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(2)
	go p.runStage(ctx, "convert", p.capture, p.converted.Close, p.convert)
	go p.runStage(ctx, "encode", p.converted, p.encoded.Close, p.encode)

	p.logger.WithFields(logrus.Fields{
		"function": "Pipeline.Start",
		"width":    p.cfg.Codec.Width,
		"height":   p.cfg.Codec.Height,
		"fps":      p.cfg.Codec.FPS,
	}).Info("Pipeline started")
}

// runStage pops frames from in until it is closed and drained or ctx is
// done, then calls closeOut so the next stage can drain in turn.
func (p *Pipeline) runStage(ctx context.Context, name string, in *BoundedQueue[*frame.Frame], closeOut func(), process func(*frame.Frame)) {
	defer p.wg.Done()
	defer closeOut()

	for {
		f, err := in.Pop(ctx)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"function": "Pipeline.runStage",
				"stage":    name,
				"reason":   err.Error(),
			}).Debug("Stage stopped")
			return
		}
		process(f)
	}
}

func (p *Pipeline) convert(f *frame.Frame) {
	defer f.Release()
	out, err := yuv.ToI420(f)
	if err != nil {
		p.stageError("convert", f.Meta, err)
		return
	}
	out.Meta = f.Meta
	p.convertCount.Add(1)
	if err := p.converted.Push(out); err != nil {
		out.Release()
	}
}

func (p *Pipeline) encode(f *frame.Frame) {
	defer f.Release()
	start := time.Now()
	ef, err := p.encoder.Encode(f, f.Meta)
	elapsed := time.Since(start)
	if err != nil {
		p.stageError("encode", f.Meta, err)
		return
	}
	p.encodeCount.Add(1)

	if budget := p.cfg.Codec.FrameBudget; budget > 0 && elapsed > budget {
		p.overBudget.Add(1)
		p.logger.WithFields(logrus.Fields{
			"function": "Pipeline.encode",
			"frame_id": f.FrameID,
			"elapsed":  elapsed.String(),
			"budget":   budget.String(),
		}).Warn("Encode exceeded frame budget")
	}

	_ = p.encoded.Push(Encoded{Frame: ef, Meta: f.Meta, Elapsed: elapsed})
}

func (p *Pipeline) stageError(stage string, meta frame.Meta, err error) {
	p.errs.Add(1)
	p.logger.WithFields(logrus.Fields{
		"function": "Pipeline." + stage,
		"frame_id": meta.FrameID,
		"error":    err.Error(),
	}).Warn("Dropping frame after stage error")
}

// Push hands a captured frame to the pipeline, which takes ownership of
// the handle. If the capture queue is full its oldest frame is released.
func (p *Pipeline) Push(f *frame.Frame) error {
	if f.Empty() {
		return codec.ErrNilFrame
	}
	if err := p.capture.Push(f); err != nil {
		f.Release()
		return err
	}
	p.captured.Add(1)
	return nil
}

// CloseInput signals that no more frames will be pushed. Pop returns
// ErrQueueClosed after the last encoded frame.
func (p *Pipeline) CloseInput() { p.capture.Close() }

// Pop returns the next encoded frame.
func (p *Pipeline) Pop(ctx context.Context) (Encoded, error) {
	return p.encoded.Pop(ctx)
}

// Run captures from src until it is exhausted or ctx is done, passing each
// encoded frame to handle. Run starts the pipeline if needed and returns nil
// once every captured frame has been handled or dropped, or ctx.Err() if ctx
// ended first.
func (p *Pipeline) Run(ctx context.Context, src source.VideoSource, handle func(Encoded) error) error {
	p.Start(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	captureErr := make(chan error, 1)
	go func() { captureErr <- p.captureLoop(ctx, src) }()

	for {
		out, err := p.Pop(ctx)
		if errors.Is(err, ErrQueueClosed) {
			break
		}
		if err != nil {
			return err
		}
		if err := handle(out); err != nil {
			return err
		}
	}
	if err := <-captureErr; err != nil {
		return err
	}
	return ctx.Err()
}

func (p *Pipeline) captureLoop(ctx context.Context, src source.VideoSource) error {
	defer p.CloseInput()

	var tick <-chan time.Time
	if p.cfg.Realtime && src.FPS() > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(src.FPS()))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		f, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("capture: %w", err)
		}
		if err := p.Push(f); err != nil {
			return nil
		}
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Stop cancels the stages, waits for them to exit and releases any frames
// still queued.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()

	p.capture.Close()
	p.capture.Clear()
	p.converted.Clear()
	p.encoded.Clear()

	p.logger.WithFields(logrus.Fields{
		"function": "Pipeline.Stop",
		"encoded":  p.encodeCount.Load(),
		"dropped":  p.capture.Drops() + p.converted.Drops() + p.encoded.Drops(),
	}).Info("Pipeline stopped")
}

// Stats returns a snapshot of the stage counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Captured:     p.captured.Load(),
		Converted:    p.convertCount.Load(),
		Encoded:      p.encodeCount.Load(),
		CaptureDrops: p.capture.Drops(),
		ConvertDrops: p.converted.Drops(),
		EncodeDrops:  p.encoded.Drops(),
		OverBudget:   p.overBudget.Load(),
		Errors:       p.errs.Load(),
	}
}
