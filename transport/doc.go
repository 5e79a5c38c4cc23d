// Package transport carries encoded frames over UDP.
//
// # Packets
//
// A frame is prefixed with its 32-byte frame header (EncodedFrame.Framed)
// and split by Fragment into packets no larger than the MTU. Each packet
// starts with a 24-byte little-endian header:
//
//	[stream u32][frame u32][packet_id u16][total u16][payload_size u32][timestamp_us u64]
//
// # Reassembly
//
// JitterBuffer collects fragments in any order and delivers a frame only
// when all of them arrived. A frame idle for longer than the reassembly
// timeout is dropped whole; there is no retransmission.
//
//	jb := transport.NewJitterBuffer(transport.DefaultJitterConfig())
//	if f, ok := jb.Push(packet); ok {
//	    ef, err := codec.ParseFramed(f.Payload)
//	    ...
//	}
//
// # UDP and RTP
//
// Sender and Receiver wrap a net.PacketConn. With RTP enabled each packet
// travels as the payload of an RTP packet (payload type 96, 90 kHz clock,
// SSRC equal to the stream id, marker on the last fragment of a frame).
//
//	sender, err := transport.Dial("127.0.0.1:5004", transport.DefaultSenderConfig())
//	receiver, err := transport.Listen(":5004", transport.DefaultReceiverConfig())
//	go receiver.Run(ctx, func(ef *codec.EncodedFrame) { ... })
//	err = sender.SendFrame(ef)
package transport
