// Package cli holds the setup shared by the command-line tools.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging sets the global logrus level and formatter. level is any
// name accepted by logrus.ParseLevel.
func ConfigureLogging(out io.Writer, level string, jsonFormat bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(out)
	if jsonFormat {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Fatal logs err and exits with status 1.
func Fatal(tool string, err error) {
	logrus.WithFields(logrus.Fields{
		"tool":  tool,
		"error": err.Error(),
	}).Error("Command failed")
	os.Exit(1)
}
