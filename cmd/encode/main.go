// Command encode compresses a synthetic pattern or a raw video file into a
// bitstream file.
//
// Usage:
//
//	encode [-i input|synthetic] [-o output.bin] [-w width] [-h height] [-fps fps]
//	       [-qp qp] [-gop gop] [-n max_frames] [-zstd] [-diamond]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/bitstream"
	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/container"
	"github.com/opd-ai/telecodec/internal/cli"
	"github.com/opd-ai/telecodec/source"
	"github.com/opd-ai/telecodec/yuv"
)

// CLIConfig holds the parsed command line.
type CLIConfig struct {
	input     string
	output    string
	width     int
	height    int
	fps       int
	qp        int
	gop       int
	maxFrames int
	bitrate   uint
	diamond   bool
	compress  bool
	logLevel  string
	logJSON   bool
}

// parseCLIFlags parses args into a CLIConfig.
func parseCLIFlags(args []string, output io.Writer) (*CLIConfig, error) {
	config := &CLIConfig{}
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&config.input, "i", source.Synthetic, "Input raw file (.yuv I420 or .rgb RGB24) or \"synthetic\"")
	fs.StringVar(&config.output, "o", "output.bin", "Output bitstream file")
	fs.IntVar(&config.width, "w", 640, "Frame width")
	fs.IntVar(&config.height, "h", 480, "Frame height")
	fs.IntVar(&config.fps, "fps", 30, "Frame rate")
	fs.IntVar(&config.qp, "qp", 28, "Quantization parameter")
	fs.IntVar(&config.gop, "gop", 30, "Keyframe interval in frames")
	fs.IntVar(&config.maxFrames, "n", 100, "Maximum frames to encode")
	fs.UintVar(&config.bitrate, "bitrate", 500, "Target bitrate in kbps")
	fs.BoolVar(&config.diamond, "diamond", false, "Use diamond motion search")
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
	if config.output == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	if config.maxFrames <= 0 {
		return fmt.Errorf("frame count must be positive")
	}
	if config.gop < 0 {
		return fmt.Errorf("GOP size cannot be negative")
	}
	return nil
}

// codecConfig builds the encoder configuration for a source.
func codecConfig(config *CLIConfig, src source.VideoSource) codec.Config {
	cfg := codec.DefaultConfig()
	cfg.Width = src.Width()
	cfg.Height = src.Height()
	cfg.FPS = src.FPS()
	cfg.GOPSize = config.gop
	cfg.QPDefault = config.qp
	cfg.QPMin = min(cfg.QPMin, config.qp)
	cfg.QPMax = max(cfg.QPMax, config.qp)
	cfg.TargetBitrateKbps = uint32(config.bitrate)
	cfg.UseDiamondSearch = config.diamond
	return cfg
}

// run encodes every frame of the configured source and returns the frame
// count.
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

	encoder, err := codec.NewEncoder(codecConfig(config, src))
	if err != nil {
		return 0, err
	}

	header := bitstream.NewFileHeader(src.Width(), src.Height(), src.FPS())
	out, err := container.Create(config.output, header, container.WriterOptions{Compress: config.compress})
	if err != nil {
		return 0, err
	}
	defer out.Close()

	count := 0
	for count < config.maxFrames {
		f, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}

		yuvFrame, err := yuv.ToI420(f)
		f.Release()
		if err != nil {
			return count, err
		}
		encoded, err := encoder.Encode(yuvFrame, yuvFrame.Meta)
		yuvFrame.Release()
		if err != nil {
			return count, err
		}
		if err := out.WriteFrame(encoded); err != nil {
			return count, fmt.Errorf("write frame %d: %w", count, err)
		}

		if count%30 == 0 {
			logrus.WithFields(logrus.Fields{
				"function": "run",
				"frame":    count,
				"type":     encoded.Type.String(),
				"bytes":    encoded.TotalBytes(),
			}).Info("Encoded frame")
		}
		count++
	}

	if err := out.Close(); err != nil {
		return count, err
	}
	logrus.WithFields(logrus.Fields{
		"function": "run",
		"frames":   count,
		"bytes":    out.Bytes(),
		"output":   config.output,
	}).Info("Encoding complete")
	return count, nil
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
		cli.Fatal("encode", err)
	}
	if err := validateCLIConfig(config); err != nil {
		cli.Fatal("encode", err)
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	if _, err := run(ctx, config); err != nil {
		cli.Fatal("encode", err)
	}
}
