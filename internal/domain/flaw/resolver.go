package flaw

import "github.com/apexsports/shotform/internal/domain/geometry"

// Representative-frame selection. Every detected flaw must point at one
// concrete frame inside its triggering range, so the evidence can be shown
// on screen. The frame chosen is the worst instance: the defined frame with
// the greatest deviation from the threshold. When the deviation is flat
// across the range the earliest frame wins; that tie-break is a documented
// policy choice, not inherited behavior.

// resolve picks the representative frame within [start, end]. The boolean
// is false when no frame in the range has a defined sample, in which case
// the caller discards the event instead of fabricating a frame.
func resolve(t *geometry.Trace, m geometry.Metric, c Comparator, threshold float64, start, end int) (int, bool) {
	return worstFrame(t, m, c, threshold, start, end)
}

// worstFrame returns the defined frame with the maximum per-frame deviation
// in [start, end], earliest index on ties.
func worstFrame(t *geometry.Trace, m geometry.Metric, c Comparator, threshold float64, start, end int) (int, bool) {
	best := -1
	bestDev := 0.0
	for i := start; i <= end; i++ {
		s := t.At(m, i)
		if !s.Defined {
			continue
		}
		dev := deviation(c, s.Value, threshold)
		// Strict comparison keeps the earliest frame on flat deviations.
		if best < 0 || dev > bestDev {
			best = i
			bestDev = dev
		}
	}
	return best, best >= 0
}
