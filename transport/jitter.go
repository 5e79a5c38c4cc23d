package transport

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Frame is a fully reassembled payload.
type Frame struct {
	StreamID    uint32
	FrameID     uint32
	TimestampUS uint64
	Payload     []byte
}

// JitterConfig configures a JitterBuffer.
type JitterConfig struct {
	// StreamID selects the stream to reassemble. Zero locks onto the first
	// stream seen.
	StreamID uint32
	// ReassemblyTimeout drops a frame when no packet for it arrived within
	// this long.
	ReassemblyTimeout time.Duration
	// MaxPending bounds the number of frames under assembly. The stalest
	// is dropped to make room.
	MaxPending int
	// OnDrop, when set, is called for every frame given up on.
	OnDrop       func(frameID uint32, received, total int)
	TimeProvider TimeProvider
	Logger       *logrus.Entry
}

// DefaultJitterConfig returns a 100ms timeout buffer tracking up to 32
// frames, locked to the first stream seen.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		ReassemblyTimeout: 100 * time.Millisecond,
		MaxPending:        32,
	}
}

// JitterStats counts jitter buffer outcomes.
type JitterStats struct {
	Completed     uint64
	Dropped       uint64
	Duplicates    uint64
	ForeignStream uint64
	Malformed     uint64
	Pending       int
}

type assembly struct {
	frameID      uint32
	timestampUS  uint64
	total        uint16
	parts        [][]byte
	received     int
	size         int
	lastActivity time.Time
}

// JitterBuffer reassembles fragments into frames, tolerating reordering.
// A frame is delivered only when every fragment arrived before the
// reassembly timeout; otherwise it is dropped whole. It is safe for
// concurrent use.
type JitterBuffer struct {
	mu       sync.Mutex
	cfg      JitterConfig
	streamID uint32
	locked   bool
	pending  map[uint32]*assembly
	stats    JitterStats
}

// NewJitterBuffer returns a buffer for cfg, filling unset fields from
// DefaultJitterConfig.
func NewJitterBuffer(cfg JitterConfig) *JitterBuffer {
	def := DefaultJitterConfig()
	if cfg.ReassemblyTimeout <= 0 {
		cfg.ReassemblyTimeout = def.ReassemblyTimeout
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = def.MaxPending
	}
	if cfg.TimeProvider == nil {
		cfg.TimeProvider = DefaultTimeProvider{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "jitter")
	}
	return &JitterBuffer{
		cfg:      cfg,
		streamID: cfg.StreamID,
		locked:   cfg.StreamID != 0,
		pending:  make(map[uint32]*assembly),
	}
}

// SetTimeProvider sets the time provider for deterministic testing.
func (jb *JitterBuffer) SetTimeProvider(tp TimeProvider) {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	jb.cfg.TimeProvider = tp
}

// Push adds one packet. When it completes a frame the frame is returned
// with true.
func (jb *JitterBuffer) Push(p *Packet) (*Frame, bool) {
	jb.mu.Lock()
	defer jb.mu.Unlock()

	if !jb.locked {
		jb.streamID = p.StreamID
		jb.locked = true
		jb.cfg.Logger.WithFields(logrus.Fields{
			"function":  "JitterBuffer.Push",
			"stream_id": p.StreamID,
		}).Info("Locked onto stream")
	}
	if p.StreamID != jb.streamID {
		jb.stats.ForeignStream++
		return nil, false
	}
	if p.TotalPackets == 0 || p.PacketID >= p.TotalPackets {
		jb.stats.Malformed++
		return nil, false
	}

	now := jb.cfg.TimeProvider.Now()
	a, ok := jb.pending[p.FrameID]
	if !ok {
		if len(jb.pending) >= jb.cfg.MaxPending {
			jb.evictStalest()
		}
		a = &assembly{
			frameID:     p.FrameID,
			timestampUS: p.TimestampUS,
			total:       p.TotalPackets,
			parts:       make([][]byte, p.TotalPackets),
		}
		jb.pending[p.FrameID] = a
	}
	if a.total != p.TotalPackets {
		jb.stats.Malformed++
		return nil, false
	}
	a.lastActivity = now
	if a.parts[p.PacketID] != nil {
		jb.stats.Duplicates++
		return nil, false
	}
	a.parts[p.PacketID] = p.Payload
	a.received++
	a.size += len(p.Payload)

	if a.received < int(a.total) {
		return nil, false
	}

	delete(jb.pending, p.FrameID)
	payload := make([]byte, 0, a.size)
	for _, part := range a.parts {
		payload = append(payload, part...)
	}
	jb.stats.Completed++
	return &Frame{
		StreamID:    jb.streamID,
		FrameID:     a.frameID,
		TimestampUS: a.timestampUS,
		Payload:     payload,
	}, true
}

// Expire drops every frame idle for at least the reassembly timeout and
// returns their ids.
func (jb *JitterBuffer) Expire() []uint32 {
	jb.mu.Lock()
	defer jb.mu.Unlock()

	var dropped []uint32
	for id, a := range jb.pending {
		if jb.cfg.TimeProvider.Since(a.lastActivity) >= jb.cfg.ReassemblyTimeout {
			jb.drop(a, "reassembly timeout")
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// evictStalest drops the pending frame with the oldest activity.
func (jb *JitterBuffer) evictStalest() {
	var stalest *assembly
	for _, a := range jb.pending {
		if stalest == nil || a.lastActivity.Before(stalest.lastActivity) {
			stalest = a
		}
	}
	if stalest != nil {
		jb.drop(stalest, "buffer full")
	}
}

func (jb *JitterBuffer) drop(a *assembly, reason string) {
	delete(jb.pending, a.frameID)
	jb.stats.Dropped++
	jb.cfg.Logger.WithFields(logrus.Fields{
		"function": "JitterBuffer.drop",
		"frame_id": a.frameID,
		"received": a.received,
		"total":    a.total,
		"reason":   reason,
	}).Warn("Dropping incomplete frame")
	if jb.cfg.OnDrop != nil {
		jb.cfg.OnDrop(a.frameID, a.received, int(a.total))
	}
}

// Stats returns a snapshot of the counters.
func (jb *JitterBuffer) Stats() JitterStats {
	jb.mu.Lock()
	defer jb.mu.Unlock()
	s := jb.stats
	s.Pending = len(jb.pending)
	return s
}
