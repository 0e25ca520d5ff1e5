// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Validation fails fast, before any frame is processed.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"runtime"
)

// Config contains process and analysis configuration. Analysis thresholds
// are threaded explicitly through every call; there is no ambient mutable
// state, so concurrent analyses with different configs cannot interfere.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// FrameRate is the landmark sample rate in frames per second, required
	// by velocity-based metrics.
	FrameRate float64 `koanf:"frame_rate"`

	// ReliabilityFloor marks a joint unreliable on a frame when its
	// confidence falls below it.
	ReliabilityFloor float64 `koanf:"reliability_floor"`

	// MinCoverage is the fraction of frames that must have all core joints
	// reliable; below it the shot is rejected outright.
	MinCoverage float64 `koanf:"min_coverage"`

	// Handedness selects the shooting side: "right" or "left".
	Handedness string `koanf:"handedness"`

	// Segmentation dwell and threshold settings.
	MinPhaseDwell  int     `koanf:"min_phase_dwell"`
	MaxPhaseDwell  int     `koanf:"max_phase_dwell"`
	ReleaseWindow  int     `koanf:"release_window"`
	StillnessDwell int     `koanf:"stillness_dwell"`
	RiseSpeed      float64 `koanf:"rise_speed"`
	Stillness      float64 `koanf:"stillness"`
	LoadKneeBend   float64 `koanf:"load_knee_bend"`

	// FlawThresholds overrides catalog thresholds by flaw type name.
	FlawThresholds map[string]float64 `koanf:"flaw_thresholds"`

	// Severity penalties subtracted from the per-shot baseline of 100.
	PenaltyMinor    float64 `koanf:"penalty_minor"`
	PenaltyModerate float64 `koanf:"penalty_moderate"`
	PenaltyMajor    float64 `koanf:"penalty_major"`

	// ConsistencyScale converts cross-shot CV into consistency-score points.
	ConsistencyScale float64 `koanf:"consistency_scale"`

	// ReleaseCVThreshold flags inconsistent release height across a session.
	ReleaseCVThreshold float64 `koanf:"release_cv_threshold"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory analysis queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the shot-ID idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		FrameRate:          30,
		ReliabilityFloor:   0.5,
		MinCoverage:        0.6,
		Handedness:         "right",
		MinPhaseDwell:      2,
		MaxPhaseDwell:      90,
		ReleaseWindow:      5,
		StillnessDwell:     3,
		RiseSpeed:          0.5,
		Stillness:          0.3,
		LoadKneeBend:       15,
		FlawThresholds:     map[string]float64{},
		PenaltyMinor:       3,
		PenaltyModerate:    7,
		PenaltyMajor:       15,
		ConsistencyScale:   200,
		ReleaseCVThreshold: 0.10,
		WorkerCount:        runtime.NumCPU() * 2,
		QueueSize:          10_000,
		DedupeSize:         100_000,
	}
}

// Validate rejects malformed configuration before any analysis runs.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return wrap("addr must not be empty")
	case c.FrameRate <= 0:
		return wrap("frame_rate must be positive")
	case c.ReliabilityFloor < 0 || c.ReliabilityFloor > 1:
		return wrap("reliability_floor must be in [0,1]")
	case c.MinCoverage < 0 || c.MinCoverage > 1:
		return wrap("min_coverage must be in [0,1]")
	case c.MinPhaseDwell <= 0:
		return wrap("min_phase_dwell must be positive")
	case c.MaxPhaseDwell < c.MinPhaseDwell:
		return wrap("max_phase_dwell must be at least min_phase_dwell")
	case c.ReleaseWindow <= 0:
		return wrap("release_window must be positive")
	case c.StillnessDwell <= 0:
		return wrap("stillness_dwell must be positive")
	case c.RiseSpeed <= 0:
		return wrap("rise_speed must be positive")
	case c.Stillness <= 0:
		return wrap("stillness must be positive")
	case c.LoadKneeBend <= 0:
		return wrap("load_knee_bend must be positive")
	case c.PenaltyMinor < 0 || c.PenaltyModerate < 0 || c.PenaltyMajor < 0:
		return wrap("severity penalties must not be negative")
	case c.ConsistencyScale <= 0:
		return wrap("consistency_scale must be positive")
	case c.ReleaseCVThreshold <= 0:
		return wrap("release_cv_threshold must be positive")
	case c.WorkerCount <= 0:
		return wrap("worker_count must be positive")
	case c.QueueSize <= 0:
		return wrap("queue_size must be positive")
	}
	if c.Handedness != "right" && c.Handedness != "left" {
		return wrap(fmt.Sprintf("unknown handedness %q", c.Handedness))
	}
	for name, v := range c.FlawThresholds {
		if !knownFlawName(name) {
			return wrap(fmt.Sprintf("unknown flaw threshold key %q", name))
		}
		if v <= 0 {
			return wrap(fmt.Sprintf("flaw threshold %q must be positive", name))
		}
	}
	return nil
}

func wrap(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// knownFlawName guards override keys so a typo surfaces at startup instead
// of silently leaving the default threshold in place.
func knownFlawName(name string) bool {
	switch name {
	case "elbow_flare", "insufficient_knee_bend", "guide_hand_interference",
		"early_wrist_snap", "balance_deviation", "low_release_point",
		"short_follow_through", "inconsistent_release_height":
		return true
	}
	return false
}
