// Package segment assigns shot phases to frames with a forward-only state
// machine over the metric trace.
//
// The machine walks Setup -> Load -> Rise -> Release -> FollowThrough ->
// Landing and never revisits an earlier phase. Transitions require their
// predicate to hold for a minimum dwell of consecutive frames, which keeps
// noisy per-frame metrics from flapping the state. When the Release anchor
// is never found, the whole sequence is reported Unclassified instead of
// fabricating phases.
package segment

import (
	"math"

	"github.com/apexsports/shotform/internal/domain/geometry"
	"github.com/apexsports/shotform/internal/domain/model"
)

// Result is the segmentation outcome. Intervals cover [0, frames-1] with
// contiguous, ordered ranges; Degenerate means Release was never observed
// and every frame is Unclassified.
type Result struct {
	Intervals    []model.PhaseInterval
	ReleaseFrame int
	Degenerate   bool
}

// Segmenter is a deterministic state machine over a metric trace. It is a
// pure function of trace plus static thresholds and safe for concurrent use.
type Segmenter struct {
	minDwell       int
	maxDwell       int
	releaseWindow  int
	stillnessDwell int

	loadKneeBend float64
	riseSpeed    float64
	stillness    float64
}

// NewSegmenter creates a segmenter with configuration options.
func NewSegmenter(opts ...Option) *Segmenter {
	s := &Segmenter{
		minDwell:       defaultMinDwell,
		maxDwell:       defaultMaxDwell,
		releaseWindow:  defaultReleaseWindow,
		stillnessDwell: defaultStillnessDwell,
		loadKneeBend:   defaultLoadKneeBend,
		riseSpeed:      defaultRiseSpeed,
		stillness:      defaultStillness,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment runs the machine over the trace.
func (s *Segmenter) Segment(t *geometry.Trace) Result {
	n := t.Frames()
	if n == 0 {
		return Result{Degenerate: true, ReleaseFrame: -1}
	}

	// Setup -> Load: the knees start bending and stay bent.
	loadStart := s.sustained(t, geometry.KneeBend, 1, n, func(v float64) bool {
		return v > s.loadKneeBend
	})
	if loadStart < 0 || loadStart > s.maxDwell {
		return s.degenerate(n)
	}

	// Load -> Rise: the shooting wrist accelerates upward.
	riseStart := s.sustained(t, geometry.WristRiseSpeed, loadStart+1, n, func(v float64) bool {
		return v > s.riseSpeed
	})
	if riseStart < 0 || riseStart-loadStart > s.maxDwell {
		return s.degenerate(n)
	}

	// Rise -> Release: the wrist-height peak with the elbow extension
	// already slowing.
	releaseStart := s.findRelease(t, riseStart+1, n)
	if releaseStart < 0 || releaseStart-riseStart > s.maxDwell {
		return s.degenerate(n)
	}

	releaseEnd := releaseStart + s.releaseWindow - 1
	if releaseEnd > n-1 {
		releaseEnd = n - 1
	}

	intervals := make([]model.PhaseInterval, 0, 7)
	if loadStart > 0 {
		intervals = append(intervals, model.PhaseInterval{Phase: model.Setup, Start: 0, End: loadStart - 1})
	}
	intervals = append(intervals,
		model.PhaseInterval{Phase: model.Load, Start: loadStart, End: riseStart - 1},
		model.PhaseInterval{Phase: model.Rise, Start: riseStart, End: releaseStart - 1},
		model.PhaseInterval{Phase: model.Release, Start: releaseStart, End: releaseEnd},
	)

	if releaseEnd < n-1 {
		intervals = s.tail(t, intervals, releaseEnd+1, n)
	}

	return Result{Intervals: intervals, ReleaseFrame: releaseStart}
}

// tail segments the post-release frames into FollowThrough, Landing and,
// when the wrist never settles within the maximum dwell, a trailing
// Unclassified boundary interval.
func (s *Segmenter) tail(t *geometry.Trace, intervals []model.PhaseInterval, followStart, n int) []model.PhaseInterval {
	// FollowThrough -> Landing: wrist speed stays under the stillness
	// threshold for the landing dwell.
	landingStart := -1
	run := 0
	for i := followStart + 1; i < n; i++ {
		sp := t.At(geometry.WristRiseSpeed, i)
		if sp.Defined && math.Abs(sp.Value) < s.stillness {
			run++
			if run >= s.stillnessDwell {
				landingStart = i - run + 1
				break
			}
		} else {
			run = 0
		}
	}

	switch {
	case landingStart > followStart:
		intervals = append(intervals,
			model.PhaseInterval{Phase: model.FollowThrough, Start: followStart, End: landingStart - 1},
			model.PhaseInterval{Phase: model.Landing, Start: landingStart, End: n - 1},
		)
	case n-followStart > s.maxDwell:
		// Stuck in FollowThrough past the maximum dwell: the trailing
		// frames are left Unclassified at the boundary.
		cut := followStart + s.maxDwell
		intervals = append(intervals,
			model.PhaseInterval{Phase: model.FollowThrough, Start: followStart, End: cut - 1},
			model.PhaseInterval{Phase: model.Unclassified, Start: cut, End: n - 1},
		)
	default:
		intervals = append(intervals,
			model.PhaseInterval{Phase: model.FollowThrough, Start: followStart, End: n - 1},
		)
	}
	return intervals
}

// sustained returns the first index at or after from where pred holds on
// the metric for minDwell consecutive defined frames. Undefined frames
// break the run; that is the hysteresis that rejects single-frame noise.
func (s *Segmenter) sustained(t *geometry.Trace, m geometry.Metric, from, n int, pred func(float64) bool) int {
	run := 0
	for i := from; i < n; i++ {
		sample := t.At(m, i)
		if sample.Defined && pred(sample.Value) {
			run++
			if run >= s.minDwell {
				return i - run + 1
			}
		} else {
			run = 0
		}
	}
	return -1
}

// findRelease locates the Release anchor: the first frame whose wrist
// height is a peak (the next frame no longer rises) while the elbow
// extension rate is falling. The elbow condition is skipped when either
// sample is undefined, so a brief elbow occlusion cannot suppress an
// obvious peak.
func (s *Segmenter) findRelease(t *geometry.Trace, from, n int) int {
	for i := from; i < n-1; i++ {
		h := t.At(geometry.WristHeight, i)
		next := t.At(geometry.WristRiseSpeed, i+1)
		if !h.Defined || !next.Defined || next.Value > 0 {
			continue
		}
		cur := t.At(geometry.ElbowExtensionSpeed, i)
		nxt := t.At(geometry.ElbowExtensionSpeed, i+1)
		if cur.Defined && nxt.Defined && nxt.Value >= cur.Value {
			continue
		}
		return i
	}
	return -1
}

func (s *Segmenter) degenerate(n int) Result {
	return Result{
		Intervals:    []model.PhaseInterval{{Phase: model.Unclassified, Start: 0, End: n - 1}},
		ReleaseFrame: -1,
		Degenerate:   true,
	}
}
