package testshots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(resp.Body)
}

// submitShots submits shots concurrently using worker pools
func submitShots(ctx context.Context, config *Config, shots []Shot, stats *Stats) error {
	log.Printf("📤 Submitting %d shots with %d workers...", len(shots), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/shots"

	// Counters for statistics
	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	shotChan := make(chan Shot, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for shot := range shotChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleShot(ctx, client, url, shot)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
								total, len(shots), succ, dup, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (success: %d, duplicate: %d, failed: %d)",
								total, len(shots), succ, dup, fail)
						}
					}
				}
			}
		}()
	}

	// Send shots to workers
	go func() {
		defer close(shotChan)
		for _, shot := range shots {
			select {
			case <-ctx.Done():
				return
			case shotChan <- shot:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.ShotsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ShotsSuccessful = int(atomic.LoadInt64(&successful))
	stats.ShotsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.ShotsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Shot submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.ShotsSuccessful, stats.ShotsDuplicate, stats.ShotsFailed)

	return nil
}

// submitSingleShot submits a single shot and returns the result
func submitSingleShot(ctx context.Context, client *HTTPClient, url string, shot Shot) string {
	resp, err := client.Post(ctx, url, shot)
	if err != nil {
		return "failed"
	}
	defer resp.Body.Close()

	// Read response body
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	// Parse response based on status code
	switch resp.StatusCode {
	case StatusAccepted:
		// Accepted - new shot
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Status == "accepted" {
			return "success"
		}
		return "success" // Assume success for 202 even if parsing fails
	case StatusOK:
		// OK - duplicate shot
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate" // Assume duplicate for 200 even if parsing fails
	default:
		// Error
		return "failed"
	}
}
