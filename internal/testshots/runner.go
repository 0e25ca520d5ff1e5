package testshots

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apexsports/shotform/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete shot load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting shotform load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("shots", config.NumShots),
		logger.Int("sessions", config.NumSessions),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate shots
	shots, err := generateShots(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("shot generation failed: %w", err)
	}

	// Step 3: Submit shots concurrently
	if err := submitShots(ctx, config, shots, stats); err != nil {
		return fmt.Errorf("shot submission failed: %w", err)
	}

	// Step 4: Wait for processing
	logger.Get().Info(ctx, "waiting for shots to be analyzed")
	time.Sleep(ProcessingDelay)

	// Step 5: Retrieve session summaries and coaching plans concurrently
	results, err := retrieveSessions(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("session retrieval failed: %w", err)
	}

	// Step 6: Verify results
	if err := verifyResults(config, results, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Save shots to file
	if err := saveShotsToFile(ctx, config, shots); err != nil {
		logger.Get().Warn(ctx, "failed to save shots to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveShotsToFile saves the generated shots to a JSON file.
func saveShotsToFile(ctx context.Context, config *Config, shots []Shot) error {
	if len(shots) == 0 {
		return fmt.Errorf("no shots to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_shots_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write shots to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, shot := range shots {
		jsonData, err := marshalJSON(shot)
		if err != nil {
			return fmt.Errorf("failed to marshal shot %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write shot %d: %w", i, err)
		}

		// Add comma except for last shot
		if i < len(shots)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "shots saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, shotsPerSecond float64

	if stats.ShotsSubmitted > 0 {
		successRate = float64(stats.ShotsSuccessful) / float64(stats.ShotsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		shotsPerSecond = float64(stats.ShotsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("shotsGenerated", stats.ShotsGenerated),
		logger.Int("shotsSubmitted", stats.ShotsSubmitted),
		logger.Int("shotsSuccessful", stats.ShotsSuccessful),
		logger.Int("shotsDuplicate", stats.ShotsDuplicate),
		logger.Int("shotsFailed", stats.ShotsFailed),
		logger.Int("sessionsRetrieved", stats.SessionsRetrieved),
		logger.Int("plansRetrieved", stats.PlansRetrieved),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("shotsPerSecond", shotsPerSecond))
}
