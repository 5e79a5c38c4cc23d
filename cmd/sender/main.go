// Command sender encodes a live source and streams it over UDP.
//
// Frames flow through the capture, convert and encode pipeline at the
// source frame rate and are fragmented into MTU-sized datagrams, optionally
// wrapped in RTP.
//
// Usage:
//
//	sender [-i input|synthetic] [-host 127.0.0.1] [-p 5000] [-w width] [-height H]
//	       [-fps fps] [-n max_frames] [-rtp] [-mtu 1200]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/internal/cli"
	"github.com/opd-ai/telecodec/limits"
	"github.com/opd-ai/telecodec/pipeline"
	"github.com/opd-ai/telecodec/source"
	"github.com/opd-ai/telecodec/transport"
)

// CLIConfig holds the parsed command line.
type CLIConfig struct {
	input     string
	host      string
	port      uint
	width     int
	height    int
	fps       int
	qp        int
	gop       int
	maxFrames int
	mtu       int
	streamID  uint
	rtp       bool
	logLevel  string
	logJSON   bool
}

// parseCLIFlags parses args into a CLIConfig.
func parseCLIFlags(args []string, output io.Writer) (*CLIConfig, error) {
	config := &CLIConfig{}
	fs := flag.NewFlagSet("sender", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&config.input, "i", source.Synthetic, "Input raw file or \"synthetic\"")
	fs.StringVar(&config.host, "host", "127.0.0.1", "Receiver host")
	fs.UintVar(&config.port, "p", 5000, "Receiver UDP port")
	fs.IntVar(&config.width, "w", 640, "Frame width")
	fs.IntVar(&config.height, "height", 480, "Frame height")
	fs.IntVar(&config.fps, "fps", 30, "Frame rate")
	fs.IntVar(&config.qp, "qp", 28, "Quantization parameter")
	fs.IntVar(&config.gop, "gop", 30, "Keyframe interval in frames")
	fs.IntVar(&config.maxFrames, "n", 300, "Maximum frames to send")
	fs.IntVar(&config.mtu, "mtu", limits.DefaultMTU, "Largest datagram in bytes")
	fs.UintVar(&config.streamID, "stream", 0, "Stream id (0 picks a random id)")
	fs.BoolVar(&config.rtp, "rtp", false, "Wrap packets in RTP")
	fs.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&config.logJSON, "log-json", false, "Log in JSON format")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config, nil
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.port == 0 || config.port > 65535 {
		return fmt.Errorf("invalid port: must be between 1 and 65535")
	}
	if config.host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if config.maxFrames <= 0 {
		return fmt.Errorf("frame count must be positive")
	}
	if uint64(config.streamID) > math.MaxUint32 {
		return fmt.Errorf("stream id must fit in 32 bits")
	}
	return nil
}

// run streams up to maxFrames frames and returns how many were sent.
func run(ctx context.Context, config *CLIConfig) (int, error) {
	src, err := source.Open(source.Config{
		Path:      config.input,
		Width:     config.width,
		Height:    config.height,
		FPS:       config.fps,
		MaxFrames: config.maxFrames,
	})
	if err != nil {
		return 0, fmt.Errorf("open video source %s: %w", config.input, err)
	}
	defer src.Close()

	remote := net.JoinHostPort(config.host, strconv.FormatUint(uint64(config.port), 10))
	sender, err := transport.Dial(remote, transport.SenderConfig{
		StreamID: uint32(config.streamID),
		MTU:      config.mtu,
		RTP:      config.rtp,
	})
	if err != nil {
		return 0, err
	}
	defer sender.Close()

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.Codec.Width = src.Width()
	pipeCfg.Codec.Height = src.Height()
	pipeCfg.Codec.FPS = src.FPS()
	pipeCfg.Codec.GOPSize = config.gop
	pipeCfg.Codec.QPDefault = config.qp
	pipeCfg.Codec.QPMin = min(pipeCfg.Codec.QPMin, config.qp)
	pipeCfg.Codec.QPMax = max(pipeCfg.Codec.QPMax, config.qp)
	pipeCfg.Realtime = true
	pipe, err := pipeline.New(pipeCfg)
	if err != nil {
		return 0, err
	}
	defer pipe.Stop()

	count := 0
	err = pipe.Run(ctx, src, func(e pipeline.Encoded) error {
		if err := sender.SendFrame(e.Frame); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "run",
				"frame_id": e.Frame.FrameID,
				"error":    err.Error(),
			}).Warn("UDP send failed")
			return nil
		}
		count++
		if count%30 == 0 {
			logrus.WithFields(logrus.Fields{
				"function": "run",
				"frames":   count,
			}).Info("Sent frames")
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	stats := pipe.Stats()
	logrus.WithFields(logrus.Fields{
		"function":  "run",
		"sent":      count,
		"stream_id": sender.StreamID(),
		"packets":   sender.Stats().Packets,
		"dropped":   stats.CaptureDrops + stats.ConvertDrops + stats.EncodeDrops,
	}).Info("Sender finished")
	return count, err
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
		cli.Fatal("sender", err)
	}
	if err := validateCLIConfig(config); err != nil {
		cli.Fatal("sender", err)
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	if _, err := run(ctx, config); err != nil {
		cli.Fatal("sender", err)
	}
}
