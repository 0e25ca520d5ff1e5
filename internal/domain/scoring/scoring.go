// Package scoring computes shot and session scores from detected flaws and
// cross-shot metric variability.
package scoring

import (
	"math"

	"github.com/apexsports/shotform/internal/domain/model"
)

// Default scoring configuration constants.
const (
	baselineScore = 100.0

	defaultMinorPenalty    = 3.0
	defaultModeratePenalty = 7.0
	defaultMajorPenalty    = 15.0

	// defaultConsistencyScale converts a coefficient of variation into a
	// score deduction; a CV of 0.2 costs 40 points at the default.
	defaultConsistencyScale = 200.0

	// defaultReleaseCVThreshold is the CV above which release height is
	// flagged inconsistent across a session.
	defaultReleaseCVThreshold = 0.10

	trendMargin = 2.0
)

// Grade boundaries, loosely the original product's letter bands.
const (
	gradeA = 85.0
	gradeB = 70.0
	gradeC = 55.0
)

// Weights maps severity tiers to score penalties.
type Weights struct {
	Minor    float64
	Moderate float64
	Major    float64
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithPenaltyWeights sets the per-severity penalties. Non-positive values
// keep the defaults.
func WithPenaltyWeights(w Weights) Option {
	return func(s *Scorer) {
		if w.Minor > 0 {
			s.weights.Minor = w.Minor
		}
		if w.Moderate > 0 {
			s.weights.Moderate = w.Moderate
		}
		if w.Major > 0 {
			s.weights.Major = w.Major
		}
	}
}

// WithConsistencyScale sets the CV-to-points multiplier for the session
// consistency score.
func WithConsistencyScale(scale float64) Option {
	return func(s *Scorer) {
		if scale > 0 {
			s.consistencyScale = scale
		}
	}
}

// WithReleaseCVThreshold sets the release-height CV above which the
// session-level inconsistency flaw fires.
func WithReleaseCVThreshold(cv float64) Option {
	return func(s *Scorer) {
		if cv > 0 {
			s.releaseCVThreshold = cv
		}
	}
}

// Scorer computes scores. Both shot and session scores are recomputed from
// scratch on every call; there is no incremental state, so identical inputs
// always produce identical outputs.
type Scorer struct {
	weights            Weights
	consistencyScale   float64
	releaseCVThreshold float64
}

// NewScorer creates a scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights: Weights{
			Minor:    defaultMinorPenalty,
			Moderate: defaultModeratePenalty,
			Major:    defaultMajorPenalty,
		},
		consistencyScale:   defaultConsistencyScale,
		releaseCVThreshold: defaultReleaseCVThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ShotScore subtracts each flaw's severity penalty from the baseline,
// flooring at zero. A catalog entry with no event contributes nothing;
// absence is never a bonus.
func (s *Scorer) ShotScore(flaws []model.FlawEvent) float64 {
	score := baselineScore
	for i := range flaws {
		score -= s.penalty(flaws[i].Severity)
	}
	return math.Max(0, score)
}

func (s *Scorer) penalty(sev model.Severity) float64 {
	switch sev {
	case model.Minor:
		return s.weights.Minor
	case model.Moderate:
		return s.weights.Moderate
	case model.Major:
		return s.weights.Major
	}
	return 0
}

// Grade maps a score to the product's letter grade.
func Grade(score float64) string {
	switch {
	case score >= gradeA:
		return "A"
	case score >= gradeB:
		return "B"
	case score >= gradeC:
		return "C"
	default:
		return "D"
	}
}

// SessionConsistency returns 100 minus the scaled mean coefficient of
// variation of release height and release angle across the session's
// determinate shots, clamped to [0,100]. The boolean is false when fewer
// than two shots carry a defined release, in which case no consistency
// score exists.
func (s *Scorer) SessionConsistency(shots []*model.ShotRecord) (float64, bool) {
	heights := releaseSeries(shots, func(r *model.ShotRecord) float64 { return r.ReleaseHeight })
	angles := releaseSeries(shots, func(r *model.ShotRecord) float64 { return r.ReleaseAngle })
	if len(heights) < 2 {
		return 0, false
	}

	cv := (coefficientOfVariation(heights) + coefficientOfVariation(angles)) / 2
	score := baselineScore - s.consistencyScale*cv
	return math.Max(0, math.Min(baselineScore, score)), true
}

// SessionFlaws evaluates the cross-shot catalog entries, currently the
// inconsistent-release-height rule. The representative frame is the release
// frame of the worst contributing shot, the one whose release height sits
// farthest from the session mean.
func (s *Scorer) SessionFlaws(shots []*model.ShotRecord) []model.FlawEvent {
	var contributors []*model.ShotRecord
	for _, r := range shots {
		if r.ReleaseDefined {
			contributors = append(contributors, r)
		}
	}
	if len(contributors) < 2 {
		return nil
	}

	heights := make([]float64, len(contributors))
	for i, r := range contributors {
		heights[i] = r.ReleaseHeight
	}
	cv := coefficientOfVariation(heights)
	ratio := cv / s.releaseCVThreshold
	if ratio <= 1 {
		return nil
	}

	mean := meanOf(heights)
	worst := contributors[0]
	worstDist := math.Abs(worst.ReleaseHeight - mean)
	for _, r := range contributors[1:] {
		if d := math.Abs(r.ReleaseHeight - mean); d > worstDist {
			worst = r
			worstDist = d
		}
	}

	sev := model.Minor
	switch {
	case ratio >= 2:
		sev = model.Major
	case ratio >= 1.5:
		sev = model.Moderate
	}

	return []model.FlawEvent{{
		Type:                model.InconsistentReleaseHeight,
		Phase:               model.Release,
		StartFrame:          worst.ReleaseFrame,
		EndFrame:            worst.ReleaseFrame,
		RepresentativeFrame: worst.ReleaseFrame,
		Severity:            sev,
		Deviation:           ratio,
		Evidence: model.Evidence{
			Metric:    "release_height_cv",
			Value:     cv,
			Threshold: s.releaseCVThreshold,
		},
		ShotID: worst.ShotID,
	}}
}

// Trend labels the score movement between the session's first and second
// half as improving, steady, or declining.
func Trend(shots []*model.ShotRecord) string {
	if len(shots) < 2 {
		return "steady"
	}
	half := len(shots) / 2
	first := meanScores(shots[:half])
	second := meanScores(shots[len(shots)-half:])
	switch {
	case second-first > trendMargin:
		return "improving"
	case first-second > trendMargin:
		return "declining"
	default:
		return "steady"
	}
}

func meanScores(shots []*model.ShotRecord) float64 {
	if len(shots) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range shots {
		sum += r.Score
	}
	return sum / float64(len(shots))
}

func releaseSeries(shots []*model.ShotRecord, pick func(*model.ShotRecord) float64) []float64 {
	var vals []float64
	for _, r := range shots {
		if r.ReleaseDefined {
			vals = append(vals, pick(r))
		}
	}
	return vals
}

func meanOf(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// coefficientOfVariation is the population standard deviation over the
// mean's magnitude. All-zero series read as perfectly consistent.
func coefficientOfVariation(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	mean := meanOf(vals)
	if math.Abs(mean) < 1e-12 {
		return 0
	}
	variance := 0.0
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance) / math.Abs(mean)
}
