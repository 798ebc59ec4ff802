package txgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/fraudscope/pkg/logger"
)

// SetupLogging logs to stdout and, unless logFile is "-", to a file.
// An empty logFile selects a timestamped name.
func SetupLogging(logFile, format string) (io.Closer, error) {
	if logFile == "-" {
		return nopCloser{}, logger.Init(logger.WithFormat(format))
	}
	if logFile == "" {
		logFile = "txgen_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithFormat(format), logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
