package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/apexsports/shotform/internal/testshots"
)

// Default configuration constants.
const (
	defaultNumShots    = 1000
	defaultNumSessions = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numShots    = flag.Int("shots", defaultNumShots, "Number of shots to generate and submit")
		numSessions = flag.Int("sessions", defaultNumSessions, "Number of sessions to spread shots across")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated shots (default: generated_shots_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testshots.ShowHelp()
		return
	}

	// Setup logging
	if err := testshots.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testshots.Config{
		BaseURL:     *baseURL,
		NumShots:    *numShots,
		NumSessions: *numSessions,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	// Run the test
	if err := testshots.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
