package testshots

import (
	"time"

	"github.com/apexsports/shotform/internal/domain/model"
)

// Config holds configuration for the shot load test
type Config struct {
	BaseURL     string        // Base URL of the service
	NumShots    int           // Number of shots to generate
	NumSessions int           // Number of sessions to spread shots across
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for shots
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// Frame is one wire-format frame keyed by joint name
type Frame struct {
	Index     int                       `json:"index"`
	Landmarks map[string]model.Landmark `json:"landmarks"`
}

// Shot represents a shot to be submitted
type Shot struct {
	ShotID    string  `json:"shot_id"`
	SessionID string  `json:"session_id"`
	Frames    []Frame `json:"frames"`
}

// AckResponse represents the response from shot submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics
type Stats struct {
	ShotsGenerated    int
	ShotsSubmitted    int
	ShotsSuccessful   int
	ShotsDuplicate    int
	ShotsFailed       int
	SessionsRetrieved int
	PlansRetrieved    int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
