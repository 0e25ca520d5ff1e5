package flaw

import (
	"math"

	"github.com/apexsports/shotform/internal/domain/geometry"
	"github.com/apexsports/shotform/internal/domain/model"
)

// Severity band boundaries as deviation ratios.
const (
	minorBand    = 1.5
	moderateBand = 2.0

	// capDeviation bounds the ratio when a below-threshold metric collapses
	// to zero or negative, which would otherwise divide away.
	capDeviation = 10.0
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithThresholdOverrides replaces catalog thresholds per flaw type. Unknown
// keys are ignored here; configuration validates them up front.
func WithThresholdOverrides(overrides map[model.FlawType]float64) Option {
	return func(d *Detector) {
		for i := range d.defs {
			if v, ok := overrides[d.defs[i].Type]; ok && v > 0 {
				d.defs[i].Threshold = v
			}
		}
	}
}

// WithCatalog swaps the default catalog, used by tests to probe the
// evaluator with synthetic rules.
func WithCatalog(defs []Definition) Option {
	return func(d *Detector) {
		d.defs = defs
	}
}

// Detector interprets the catalog against a shot's trace and phase
// intervals. It is stateless after construction and safe for concurrent use.
type Detector struct {
	defs []Definition
}

// NewDetector creates a detector with configuration options. Options that
// modify thresholds must come after WithCatalog.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{defs: Catalog()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect evaluates every catalog entry once per phase occurrence and
// returns the detected flaw events plus the entries that could not be
// evaluated at all. Event order follows catalog iteration order; callers
// must not rely on it beyond display.
func (d *Detector) Detect(t *geometry.Trace, intervals []model.PhaseInterval) ([]model.FlawEvent, []model.FlawType) {
	var events []model.FlawEvent
	var notEvaluated []model.FlawType

	for i := range d.defs {
		def := &d.defs[i]
		evaluated := false
		for _, iv := range intervals {
			if !phaseIn(iv.Phase, def.Phases) {
				continue
			}
			ev, ok := d.evaluate(def, t, iv)
			if !ok {
				continue
			}
			evaluated = true
			if ev != nil {
				events = append(events, *ev)
			}
		}
		if !evaluated {
			notEvaluated = append(notEvaluated, def.Type)
		}
	}
	return events, notEvaluated
}

// evaluate runs one catalog entry over one phase window. The boolean is
// false when the metric was undefined throughout the window, which is a
// "not evaluated" outcome rather than "no flaw". A nil event with true
// means the window was clean.
func (d *Detector) evaluate(def *Definition, t *geometry.Trace, iv model.PhaseInterval) (*model.FlawEvent, bool) {
	agg, defined := aggregate(def.Aggregate, t, def.Metric, iv.Start, iv.End)
	if defined == 0 {
		return nil, false
	}

	ratio := deviation(def.Compare, agg, def.Threshold)
	if ratio <= 1 {
		return nil, true
	}

	start, end := d.frameRange(def, t, iv)
	rep, ok := resolve(t, def.Metric, def.Compare, def.Threshold, start, end)
	if !ok {
		// No defined frame in range to point at; the event is discarded
		// rather than labeled with a fabricated frame.
		return nil, true
	}

	return &model.FlawEvent{
		Type:                def.Type,
		Phase:               iv.Phase,
		StartFrame:          start,
		EndFrame:            end,
		RepresentativeFrame: rep,
		Severity:            severity(ratio),
		Deviation:           ratio,
		Evidence: model.Evidence{
			Metric:    string(def.Metric),
			Value:     agg,
			Threshold: def.Threshold,
		},
	}, true
}

// frameRange returns the contiguous frame range where the triggering
// condition holds. Extremum aggregations take the violating run containing
// the worst frame; mean and range aggregations describe the whole window,
// so the range is the window itself.
func (d *Detector) frameRange(def *Definition, t *geometry.Trace, iv model.PhaseInterval) (int, int) {
	if def.Aggregate == Mean || def.Aggregate == Range {
		return iv.Start, iv.End
	}

	worst, ok := worstFrame(t, def.Metric, def.Compare, def.Threshold, iv.Start, iv.End)
	if !ok {
		return iv.Start, iv.End
	}

	violates := func(i int) bool {
		s := t.At(def.Metric, i)
		return s.Defined && deviation(def.Compare, s.Value, def.Threshold) > 1
	}

	start, end := worst, worst
	for start > iv.Start && violates(start-1) {
		start--
	}
	for end < iv.End && violates(end+1) {
		end++
	}
	return start, end
}

func aggregate(a Aggregation, t *geometry.Trace, m geometry.Metric, start, end int) (float64, int) {
	minV, maxV := math.Inf(1), math.Inf(-1)
	sum := 0.0
	defined := 0
	for i := start; i <= end; i++ {
		s := t.At(m, i)
		if !s.Defined {
			continue
		}
		defined++
		sum += s.Value
		minV = math.Min(minV, s.Value)
		maxV = math.Max(maxV, s.Value)
	}
	if defined == 0 {
		return 0, 0
	}
	switch a {
	case Min:
		return minV, defined
	case Max:
		return maxV, defined
	case Mean:
		return sum / float64(defined), defined
	case Range:
		return maxV - minV, defined
	}
	return 0, 0
}

// deviation returns how many times over the threshold a value lands.
// Values at or inside the threshold give a ratio of at most 1.
func deviation(c Comparator, value, threshold float64) float64 {
	switch c {
	case Above:
		if threshold <= 0 {
			return capDeviation
		}
		return value / threshold
	case Below:
		if value <= 0 {
			return capDeviation
		}
		return math.Min(threshold/value, capDeviation)
	}
	return 0
}

// severity maps a deviation ratio to its tier. Bands are half-open on
// the upper edge: a ratio equal to a band boundary belongs to the next
// tier, so exactly 1.5 is Moderate and exactly 2.0 is Major.
func severity(ratio float64) model.Severity {
	switch {
	case ratio < minorBand:
		return model.Minor
	case ratio < moderateBand:
		return model.Moderate
	default:
		return model.Major
	}
}

func phaseIn(p model.Phase, set []model.Phase) bool {
	for _, q := range set {
		if p == q {
			return true
		}
	}
	return false
}
