package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/okian/marquee/internal/loadcheck"
)

// Default configuration constants.
const (
	defaultComments   = 5000
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		titles   = flag.String("titles", "", "Comma separated movie titles")
		comments = flag.Int("comments", defaultComments, "Number of comments to submit")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		skew     = flag.Duration("skew", loadcheck.DefaultClockSkew, "Clock slack around the windowed check")
		logFile  = flag.String("log", "", "Log file (default: loadcheck_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Log every failed request")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadcheck.ShowHelp()
		return
	}

	closer, err := loadcheck.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &loadcheck.Config{
		BaseURL:   *baseURL,
		Titles:    splitTitles(*titles),
		Comments:  *comments,
		Workers:   *workers,
		Timeout:   *timeout,
		ClockSkew: *skew,
		LogFile:   *logFile,
		Verbose:   *verbose,
	}

	if _, err := loadcheck.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load check failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}

func splitTitles(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
