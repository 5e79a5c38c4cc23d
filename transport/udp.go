package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/limits"
)

// ErrClosed is returned by operations on a closed sender or receiver.
var ErrClosed = errors.New("transport closed")

// readTimeout bounds each blocking read so the receive loop can observe
// cancellation and expire stale frames.
const readTimeout = 100 * time.Millisecond

// NewStreamID returns a random non-zero stream identifier.
func NewStreamID() uint32 {
	for {
		if id := uuid.New().ID(); id != 0 {
			return id
		}
	}
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	// StreamID tags every packet. Zero picks a random id.
	StreamID uint32
	// MTU is the largest datagram sent.
	MTU int
	// RTP wraps each fragment in an RTP packet.
	RTP    bool
	Logger *logrus.Entry
}

// DefaultSenderConfig returns a plain-UDP config with the default MTU and a
// random stream id.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{MTU: limits.DefaultMTU}
}

// SenderStats counts what a Sender put on the wire.
type SenderStats struct {
	Frames  uint64
	Packets uint64
	Bytes   uint64
}

// Sender fragments encoded frames into datagrams for one remote address.
type Sender struct {
	conn   net.PacketConn
	remote net.Addr
	cfg    SenderConfig
	rtp    *RTPPacketizer
	owned  bool

	mu     sync.Mutex
	stats  SenderStats
	closed bool
}

// Dial resolves remoteAddr and opens an ephemeral UDP socket to send to it.
func Dial(remoteAddr string, cfg SenderConfig) (*Sender, error) {
	remote, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", remoteAddr, err)
	}
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, err
	}
	s, err := NewSender(conn, remote, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSender sends over an existing connection. Close does not close conn.
func NewSender(conn net.PacketConn, remote net.Addr, cfg SenderConfig) (*Sender, error) {
	if cfg.MTU == 0 {
		cfg.MTU = limits.DefaultMTU
	}
	overhead := HeaderSize
	if cfg.RTP {
		overhead += RTPHeaderSize
	}
	if err := limits.ValidateMTU(cfg.MTU, overhead); err != nil {
		return nil, err
	}
	if cfg.StreamID == 0 {
		cfg.StreamID = NewStreamID()
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "sender")
	}
	s := &Sender{conn: conn, remote: remote, cfg: cfg}
	if cfg.RTP {
		s.rtp = NewRTPPacketizer(cfg.StreamID)
	}

	cfg.Logger.WithFields(logrus.Fields{
		"function":  "NewSender",
		"remote":    remote.String(),
		"stream_id": cfg.StreamID,
		"mtu":       cfg.MTU,
		"rtp":       cfg.RTP,
	}).Info("Sender ready")
	return s, nil
}

// StreamID returns the id carried by every packet.
func (s *Sender) StreamID() uint32 { return s.cfg.StreamID }

// SendFrame fragments the header-prefixed frame and sends every packet.
func (s *Sender) SendFrame(ef *codec.EncodedFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	mtu := s.cfg.MTU
	if s.rtp != nil {
		mtu -= RTPHeaderSize
	}
	packets, err := Fragment(s.cfg.StreamID, ef.FrameID, ef.TimestampUS, ef.Framed(), mtu)
	if err != nil {
		return err
	}

	var sent uint64
	for _, p := range packets {
		var data []byte
		if s.rtp != nil {
			data, err = s.rtp.Packetize(p)
		} else {
			data, err = p.Serialize()
		}
		if err != nil {
			return err
		}
		if _, err := s.conn.WriteTo(data, s.remote); err != nil {
			return fmt.Errorf("send frame %d packet %d: %w", ef.FrameID, p.PacketID, err)
		}
		sent += uint64(len(data))
	}
	s.stats.Frames++
	s.stats.Packets += uint64(len(packets))
	s.stats.Bytes += sent

	s.cfg.Logger.WithFields(logrus.Fields{
		"function": "Sender.SendFrame",
		"frame_id": ef.FrameID,
		"packets":  len(packets),
		"bytes":    sent,
	}).Debug("Frame sent")
	return nil
}

// Stats returns a snapshot of the send counters.
func (s *Sender) Stats() SenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close shuts down the sender, closing the socket opened by Dial.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned {
		return s.conn.Close()
	}
	return nil
}

// FrameHandler receives each reassembled frame.
type FrameHandler func(ef *codec.EncodedFrame)

// ReceiverConfig configures a Receiver.
type ReceiverConfig struct {
	Jitter JitterConfig
	// RTP expects RTP-wrapped fragments.
	RTP    bool
	Logger *logrus.Entry
}

// DefaultReceiverConfig returns a plain-UDP receiver with the default
// jitter buffer.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{Jitter: DefaultJitterConfig()}
}

// Receiver reads datagrams, reassembles them and hands complete frames to
// a FrameHandler.
type Receiver struct {
	conn   net.PacketConn
	cfg    ReceiverConfig
	jitter *JitterBuffer
	logger *logrus.Entry
	owned  bool
}

// Listen binds listenAddr and returns a Receiver on it.
func Listen(listenAddr string, cfg ReceiverConfig) (*Receiver, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, err
	}
	r := NewReceiver(conn, cfg)
	r.owned = true
	return r, nil
}

// NewReceiver reads from an existing connection. Close does not close conn.
func NewReceiver(conn net.PacketConn, cfg ReceiverConfig) *Receiver {
	if cfg.Logger == nil {
		cfg.Logger = logrus.WithField("component", "receiver")
	}
	if cfg.Jitter.Logger == nil {
		cfg.Jitter.Logger = cfg.Logger
	}
	return &Receiver{
		conn:   conn,
		cfg:    cfg,
		jitter: NewJitterBuffer(cfg.Jitter),
		logger: cfg.Logger,
	}
}

// LocalAddr returns the address the receiver is listening on.
func (r *Receiver) LocalAddr() net.Addr { return r.conn.LocalAddr() }

// Jitter returns the receiver's reassembly buffer.
func (r *Receiver) Jitter() *JitterBuffer { return r.jitter }

// Run reads packets until ctx is cancelled or the connection fails,
// calling handle for each complete frame. Stale partial frames are expired
// between reads. It returns nil on cancellation.
func (r *Receiver) Run(ctx context.Context, handle FrameHandler) error {
	r.logger.WithFields(logrus.Fields{
		"function": "Receiver.Run",
		"local":    r.conn.LocalAddr().String(),
		"rtp":      r.cfg.RTP,
	}).Info("Receive loop started")

	buffer := make([]byte, limits.MaxDatagram)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := r.processIncomingPacket(buffer, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		r.jitter.Expire()
	}
}

// processIncomingPacket reads one datagram and feeds it to the jitter
// buffer. Timeouts and malformed packets are not errors.
func (r *Receiver) processIncomingPacket(buffer []byte, handle FrameHandler) error {
	data, err := r.readPacketData(buffer)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	}

	packet, err := r.parsePacketData(data)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"function": "Receiver.processIncomingPacket",
			"size":     len(data),
			"error":    err.Error(),
		}).Debug("Discarding malformed packet")
		return nil
	}

	f, ok := r.jitter.Push(packet)
	if !ok {
		return nil
	}
	ef, err := codec.ParseFramed(f.Payload)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"function": "Receiver.processIncomingPacket",
			"frame_id": f.FrameID,
			"error":    err.Error(),
		}).Warn("Discarding unparseable frame")
		return nil
	}
	handle(ef)
	return nil
}

// readPacketData reads data from the connection with timeout handling.
func (r *Receiver) readPacketData(buffer []byte) ([]byte, error) {
	_ = r.conn.SetReadDeadline(time.Now().Add(readTimeout))
	n, _, err := r.conn.ReadFrom(buffer)
	if err != nil {
		return nil, err
	}
	return buffer[:n], nil
}

func (r *Receiver) parsePacketData(data []byte) (*Packet, error) {
	if r.cfg.RTP {
		p, _, err := ParseRTP(data)
		return p, err
	}
	return ParsePacket(data)
}

// Close closes the socket opened by Listen.
func (r *Receiver) Close() error {
	if r.owned {
		return r.conn.Close()
	}
	return nil
}
