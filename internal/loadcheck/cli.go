package loadcheck

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/marquee/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends logs to stdout and to logFile. If logFile is empty, a
// timestamped filename is generated. The returned closer releases the file.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadcheck_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the load check tool.
func ShowHelp() {
	os.Stdout.WriteString(`Marquee Load Check
==================

Seeds movies and comments into a running catalog service and verifies that
GET /top returns a consistent dense ranking.

Usage:
  go run ./cmd/loadcheck [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -titles string
        Comma separated movie titles (default: a built-in list)
  -comments int
        Number of comments to submit (default 5000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -skew duration
        Clock slack around the windowed check (default 5s)
  -log string
        Log file (default: loadcheck_TIMESTAMP.log)
  -verbose
        Log every failed request
  -help
        Show this help message

Examples:
  go run ./cmd/loadcheck -comments 20000 -workers 16
  go run ./cmd/loadcheck -titles "Star Wars,Alien" -url http://localhost:8080
`)
}
