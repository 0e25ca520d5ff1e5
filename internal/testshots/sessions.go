package testshots

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/internal/domain/types"
)

// SessionResult pairs a session summary with its coaching plan.
type SessionResult struct {
	Summary *model.SessionSummary
	Plan    *types.Plan
}

// listSessions retrieves the ids of all recorded sessions.
func listSessions(ctx context.Context, config *Config) ([]string, error) {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/sessions"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != StatusOK {
		body, _ := readResponseBody(resp)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var list struct {
		Sessions []string `json:"sessions"`
	}
	if err := unmarshalJSON(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return list.Sessions, nil
}

// retrieveSessions fetches summaries and coaching plans for all sessions
// concurrently.
func retrieveSessions(ctx context.Context, config *Config, stats *Stats) ([]SessionResult, error) {
	sessionIDs, err := listSessions(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	log.Printf("🏀 Retrieving %d session summaries with %d workers...", len(sessionIDs), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	results := make([]SessionResult, len(sessionIDs))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	sessionChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range sessionChan {
				select {
				case <-ctx.Done():
					return
				default:
					sessionID := sessionIDs[index]
					result, err := retrieveSingleSession(ctx, client, config.BaseURL, sessionID)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get session %s: %v", sessionID, err)
						}
					} else {
						results[index] = result
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						log.Printf("📊 Session progress: %d/%d retrieved (success: %d, failed: %d)",
							total, len(sessionIDs), ret, fail)
					}
				}
			}
		}()
	}

	// Send session indices to workers
	go func() {
		defer close(sessionChan)
		for i := range sessionIDs {
			select {
			case <-ctx.Done():
				return
			case sessionChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Filter out failed retrievals
	validResults := make([]SessionResult, 0, len(results))
	plans := 0
	for _, r := range results {
		if r.Summary != nil {
			validResults = append(validResults, r)
			if r.Plan != nil {
				plans++
			}
		}
	}

	// Update stats
	stats.SessionsRetrieved = len(validResults)
	stats.PlansRetrieved = plans

	log.Printf(`✅ Session retrieval completed:
   Retrieved: %d
   Plans: %d
   Failed: %d
`, len(validResults), plans, int(atomic.LoadInt64(&failed)))

	return validResults, nil
}

// retrieveSingleSession fetches the summary and plan for one session.
func retrieveSingleSession(ctx context.Context, client *HTTPClient, baseURL, sessionID string) (SessionResult, error) {
	summary, err := getSessionSummary(ctx, client, baseURL, sessionID)
	if err != nil {
		return SessionResult{}, err
	}

	plan, err := getCoachingPlan(ctx, client, baseURL, sessionID)
	if err != nil {
		// The summary alone is still useful
		return SessionResult{Summary: summary}, nil
	}
	return SessionResult{Summary: summary, Plan: plan}, nil
}

func getSessionSummary(ctx context.Context, client *HTTPClient, baseURL, sessionID string) (*model.SessionSummary, error) {
	url := fmt.Sprintf("%s/sessions/%s", baseURL, sessionID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != StatusOK {
		body, _ := readResponseBody(resp)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var summary model.SessionSummary
	if err := unmarshalJSON(body, &summary); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &summary, nil
}

func getCoachingPlan(ctx context.Context, client *HTTPClient, baseURL, sessionID string) (*types.Plan, error) {
	url := fmt.Sprintf("%s/sessions/%s/plan", baseURL, sessionID)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != StatusOK {
		body, _ := readResponseBody(resp)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var plan types.Plan
	if err := unmarshalJSON(body, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &plan, nil
}
