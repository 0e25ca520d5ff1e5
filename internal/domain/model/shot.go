package model

import "fmt"

// Phase is a named segment of the shooting motion. Phases partition a
// non-degenerate shot into contiguous intervals in declaration order;
// Unclassified may only appear at the boundaries, or everywhere when
// segmentation is degenerate.
type Phase int

// Shot phases, in motion order.
const (
	Unclassified Phase = iota
	Setup
	Load
	Rise
	Release
	FollowThrough
	Landing
)

var phaseNames = map[Phase]string{
	Unclassified:  "unclassified",
	Setup:         "setup",
	Load:          "load",
	Rise:          "rise",
	Release:       "release",
	FollowThrough: "follow_through",
	Landing:       "landing",
}

// String returns the wire name of the phase.
func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText emits the wire name so phases serialize readably.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a wire name back into its phase.
func (p *Phase) UnmarshalText(text []byte) error {
	name := string(text)
	for v, n := range phaseNames {
		if n == name {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", name)
}

// PhaseInterval is a contiguous, inclusive frame range assigned to one phase.
type PhaseInterval struct {
	Phase Phase `json:"phase"`
	Start int   `json:"start_frame"`
	End   int   `json:"end_frame"`
}

// Severity grades how far a flaw's metric deviates from its threshold.
type Severity int

// Severity tiers, mildest first so comparisons order naturally.
const (
	Minor Severity = iota + 1
	Moderate
	Major
)

var severityNames = map[Severity]string{
	Minor:    "minor",
	Moderate: "moderate",
	Major:    "major",
}

// String returns the wire name of the severity tier.
func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText emits the wire name so severities serialize readably.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a wire name back into its severity tier.
func (s *Severity) UnmarshalText(text []byte) error {
	name := string(text)
	for v, n := range severityNames {
		if n == name {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", name)
}

// FlawType identifies a catalog entry.
type FlawType string

// The fixed flaw catalog. Declaration order is the tie-break order for
// coaching plans.
const (
	ElbowFlare                FlawType = "elbow_flare"
	InsufficientKneeBend      FlawType = "insufficient_knee_bend"
	GuideHandInterference     FlawType = "guide_hand_interference"
	EarlyWristSnap            FlawType = "early_wrist_snap"
	BalanceDeviation          FlawType = "balance_deviation"
	LowReleasePoint           FlawType = "low_release_point"
	ShortFollowThrough        FlawType = "short_follow_through"
	InconsistentReleaseHeight FlawType = "inconsistent_release_height"
)

// Evidence carries the metric values that triggered a flaw.
type Evidence struct {
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
}

// FlawEvent is one detected flaw with frame-exact evidence. The
// representative frame always lies within [StartFrame, EndFrame].
type FlawEvent struct {
	Type                FlawType `json:"type"`
	Phase               Phase    `json:"phase"`
	StartFrame          int      `json:"start_frame"`
	EndFrame            int      `json:"end_frame"`
	RepresentativeFrame int      `json:"representative_frame"`
	Severity            Severity `json:"severity"`
	// Deviation is the ratio of the observed value to the threshold
	// (inverted for below-threshold rules), always > 1 for a detected flaw.
	Deviation float64  `json:"deviation"`
	Evidence  Evidence `json:"evidence"`
	// ShotID is set only on session-level flaws, pointing at the shot that
	// contributed the representative frame.
	ShotID string `json:"shot_id,omitempty"`
}

// MetricSummary aggregates one metric over a phase window. DefinedFrames
// counts the frames the metric was actually computable on.
type MetricSummary struct {
	Metric        string  `json:"metric"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Mean          float64 `json:"mean"`
	DefinedFrames int     `json:"defined_frames"`
}

// PhaseSummary is the per-phase metric digest included in a ShotRecord.
type PhaseSummary struct {
	Phase   Phase           `json:"phase"`
	Start   int             `json:"start_frame"`
	End     int             `json:"end_frame"`
	Metrics []MetricSummary `json:"metrics"`
}

// ShotRecord is the complete derived artifact for one analyzed shot. It is
// immutable after construction and owns everything it contains.
type ShotRecord struct {
	ShotID    string `json:"shot_id"`
	SessionID string `json:"session_id"`

	FrameCount int     `json:"frame_count"`
	FrameRate  float64 `json:"frame_rate"`

	// Indeterminate marks a degenerate segmentation: the Release phase was
	// never observed, so phase-scoped flaw evaluation was skipped.
	Indeterminate bool `json:"indeterminate"`

	Phases    []PhaseInterval `json:"phases"`
	Summaries []PhaseSummary  `json:"phase_summaries"`

	Flaws []FlawEvent `json:"flaws"`
	// NotEvaluated lists catalog entries that could not be evaluated because
	// their metric was undefined throughout the window. Distinct from "no
	// flaw found".
	NotEvaluated []FlawType `json:"not_evaluated"`

	Score float64 `json:"score"`
	Grade string  `json:"grade"`

	// ReleaseFrame is -1 when the shot is indeterminate.
	ReleaseFrame   int     `json:"release_frame"`
	ReleaseHeight  float64 `json:"release_height"`
	ReleaseAngle   float64 `json:"release_angle"`
	ReleaseDefined bool    `json:"release_defined"`
}

// SessionSummary aggregates a session's shots. It references the appended
// ShotRecords and never mutates them; all aggregates are recomputed from
// scratch on each query.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	ShotCount int    `json:"shot_count"`

	MeanScore float64 `json:"mean_score"`

	// ConsistencyScore is only defined once two or more shots exist.
	ConsistencyScore   float64 `json:"consistency_score"`
	ConsistencyDefined bool    `json:"consistency_defined"`

	// Trend compares scores of the session's first and second half:
	// "improving", "steady", or "declining".
	Trend string `json:"trend"`

	FlawFrequency map[FlawType]int `json:"flaw_frequency"`

	// SessionFlaws holds cross-shot flaws such as inconsistent release
	// height, which no single shot can exhibit.
	SessionFlaws []FlawEvent `json:"session_flaws"`

	Shots []*ShotRecord `json:"shots"`
}

// ShotSubmission is the unit of work queued for asynchronous analysis.
type ShotSubmission struct {
	ShotID    string
	SessionID string
	Frames    []Frame
}
