// Command receiver listens for a UDP stream, reassembles frames and writes
// them to a bitstream file. With -yuv it also decodes them to raw I420.
//
// Usage:
//
//	receiver [-p 5000] [-o received.bin] [-w 640] [-h 480] [-fps 30]
//	         [-duration 60s] [-rtp] [-yuv out.yuv]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/container"
	"github.com/opd-ai/telecodec/internal/cli"
	"github.com/opd-ai/telecodec/sink"
	"github.com/opd-ai/telecodec/transport"
)

// CLIConfig holds the parsed command line.
type CLIConfig struct {
	listen   string
	port     uint
	output   string
	yuvOut   string
	width    int
	height   int
	fps      int
	qp       int
	streamID uint
	duration time.Duration
	timeout  time.Duration
	rtp      bool
	compress bool
	logLevel string
	logJSON  bool
}

// parseCLIFlags parses args into a CLIConfig.
func parseCLIFlags(args []string, output io.Writer) (*CLIConfig, error) {
	config := &CLIConfig{}
	fs := flag.NewFlagSet("receiver", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&config.listen, "listen", "", "Address to bind (default all interfaces)")
	fs.UintVar(&config.port, "p", 5000, "UDP port")
	fs.StringVar(&config.output, "o", "received.bin", "Output bitstream file")
	fs.StringVar(&config.yuvOut, "yuv", "", "Also decode frames to this raw I420 file")
	fs.IntVar(&config.width, "w", 640, "Stream width")
	fs.IntVar(&config.height, "h", 480, "Stream height")
	fs.IntVar(&config.fps, "fps", 30, "Stream frame rate")
	fs.IntVar(&config.qp, "qp", 28, "Quantization parameter of the stream")
	fs.UintVar(&config.streamID, "stream", 0, "Stream id to accept (0 locks onto the first seen)")
	fs.DurationVar(&config.duration, "duration", time.Minute, "How long to listen (0 until interrupted)")
	fs.DurationVar(&config.timeout, "reassembly-timeout", 100*time.Millisecond, "Drop frames incomplete after this long")
	fs.BoolVar(&config.rtp, "rtp", false, "Expect RTP-wrapped packets")
	fs.BoolVar(&config.compress, "zstd", false, "Compress the output file with zstd")
	fs.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&config.logJSON, "log-json", false, "Log in JSON format")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config, nil
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.port > 65535 {
		return fmt.Errorf("invalid port: must be at most 65535")
	}
	if config.output == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if config.duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	if config.timeout <= 0 {
		return fmt.Errorf("reassembly timeout must be positive")
	}
	return nil
}

// frameWriter stores received frames and optionally decodes them.
type frameWriter struct {
	out     *container.Writer
	decoder *codec.Decoder
	yuv     *sink.YUVFileSink
	frames  int
	err     error
}

func (w *frameWriter) handle(ef *codec.EncodedFrame) {
	if w.err != nil {
		return
	}
	if err := w.out.WriteFrame(ef); err != nil {
		w.err = err
		return
	}
	w.frames++
	if w.frames%30 == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "frameWriter.handle",
			"frames":   w.frames,
		}).Info("Received frames")
	}

	if w.decoder == nil {
		return
	}
	f, err := w.decoder.DecodeFrame(ef)
	if err != nil {
		// Lost frames break the prediction chain until the next I-frame.
		logrus.WithFields(logrus.Fields{
			"function": "frameWriter.handle",
			"frame_id": ef.FrameID,
			"error":    err.Error(),
		}).Warn("Cannot decode frame")
		return
	}
	err = w.yuv.Write(f)
	f.Release()
	if err != nil {
		w.err = err
	}
}

// run receives until ctx is done or the duration elapses and returns the
// number of frames written. onListen, when set, is called with the bound
// address before the first read.
func run(ctx context.Context, config *CLIConfig, onListen func(net.Addr)) (int, error) {
	header := bitstream.NewFileHeader(config.width, config.height, config.fps)
	out, err := container.Create(config.output, header, container.WriterOptions{Compress: config.compress})
	if err != nil {
		return 0, err
	}
	defer out.Close()
	w := &frameWriter{out: out}

	if config.yuvOut != "" {
		cfg := codec.DefaultConfig()
		cfg.Width = config.width
		cfg.Height = config.height
		cfg.FPS = config.fps
		cfg.QPDefault = config.qp
		if w.decoder, err = codec.NewDecoder(cfg); err != nil {
			return 0, err
		}
		if w.yuv, err = sink.CreateYUVFile(config.yuvOut); err != nil {
			return 0, err
		}
		defer w.yuv.Close()
	}

	jitter := transport.DefaultJitterConfig()
	jitter.StreamID = uint32(config.streamID)
	jitter.ReassemblyTimeout = config.timeout
	addr := net.JoinHostPort(config.listen, strconv.FormatUint(uint64(config.port), 10))
	receiver, err := transport.Listen(addr, transport.ReceiverConfig{Jitter: jitter, RTP: config.rtp})
	if err != nil {
		return 0, fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer receiver.Close()

	if config.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.duration)
		defer cancel()
	}

	logrus.WithFields(logrus.Fields{
		"function": "run",
		"address":  receiver.LocalAddr().String(),
		"output":   config.output,
	}).Info("Listening")
	if onListen != nil {
		onListen(receiver.LocalAddr())
	}

	if err := receiver.Run(ctx, w.handle); err != nil {
		return w.frames, err
	}
	if w.err != nil {
		return w.frames, w.err
	}
	if err := out.Close(); err != nil {
		return w.frames, err
	}

	stats := receiver.Jitter().Stats()
	logrus.WithFields(logrus.Fields{
		"function":  "run",
		"frames":    w.frames,
		"dropped":   stats.Dropped,
		"malformed": stats.Malformed,
	}).Info("Receiver finished")
	return w.frames, nil
}

func main() {
	config, err := parseCLIFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}
	if err := cli.ConfigureLogging(os.Stderr, config.logLevel, config.logJSON); err != nil {
		cli.Fatal("receiver", err)
	}
	if err := validateCLIConfig(config); err != nil {
		cli.Fatal("receiver", err)
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	if _, err := run(ctx, config, nil); err != nil {
		cli.Fatal("receiver", err)
	}
}
