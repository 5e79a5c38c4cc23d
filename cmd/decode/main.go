// Command decode reconstructs the frames of a bitstream file into a raw
// I420 .yuv file.
//
// Usage:
//
//	decode [-i output.bin] [-o decoded.yuv]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/telecodec/codec"
	"github.com/opd-ai/telecodec/container"
	"github.com/opd-ai/telecodec/internal/cli"
	"github.com/opd-ai/telecodec/sink"
)

// CLIConfig holds the parsed command line.
type CLIConfig struct {
	input    string
	output   string
	qp       int
	logLevel string
	logJSON  bool
}

// parseCLIFlags parses args into a CLIConfig.
func parseCLIFlags(args []string, output io.Writer) (*CLIConfig, error) {
	config := &CLIConfig{}
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&config.input, "i", "output.bin", "Input bitstream file")
	fs.StringVar(&config.output, "o", "decoded.yuv", "Output raw I420 file")
	fs.IntVar(&config.qp, "qp", 28, "Quantization parameter the stream was encoded with")
	fs.StringVar(&config.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVar(&config.logJSON, "log-json", false, "Log in JSON format")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config, nil
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.input == "" {
		return fmt.Errorf("input path cannot be empty")
	}
	if config.output == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	return nil
}

// run decodes every frame of the input file and returns the frame count.
func run(config *CLIConfig) (int, error) {
	in, err := container.Open(config.input)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	header := in.Header()
	logrus.WithFields(logrus.Fields{
		"function":   "run",
		"width":      header.Width,
		"height":     header.Height,
		"fps":        header.FPS,
		"compressed": in.Compressed(),
	}).Info("Opened bitstream")

	cfg := codec.DefaultConfig()
	cfg.Width = int(header.Width)
	cfg.Height = int(header.Height)
	cfg.FPS = int(header.FPS)
	cfg.QPDefault = config.qp
	decoder, err := codec.NewDecoder(cfg)
	if err != nil {
		return 0, err
	}

	out, err := sink.CreateYUVFile(config.output)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	count := 0
	for ef, err := range in.All() {
		if err != nil {
			return count, err
		}
		f, err := decoder.DecodeFrame(ef)
		if errors.Is(err, codec.ErrNoReference) {
			logrus.WithFields(logrus.Fields{
				"function": "run",
				"frame_id": ef.FrameID,
			}).Warn("Skipping P-frame without a reference")
			continue
		}
		if err != nil {
			return count, err
		}
		err = out.Write(f)
		f.Release()
		if err != nil {
			return count, err
		}
		count++
	}

	if err := out.Close(); err != nil {
		return count, err
	}
	logrus.WithFields(logrus.Fields{
		"function": "run",
		"frames":   count,
		"output":   config.output,
	}).Info("Decoding complete")
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
		cli.Fatal("decode", err)
	}
	if err := validateCLIConfig(config); err != nil {
		cli.Fatal("decode", err)
	}
	if _, err := run(config); err != nil {
		cli.Fatal("decode", err)
	}
}
