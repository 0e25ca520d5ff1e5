// Package plan turns a session's flaw profile into a ranked coaching plan.
//
// Ranking is a static priority: major flaws before moderate before minor;
// among equals, flaws recurring across more shots first; remaining ties
// break by catalog declaration order. The same flaw set always yields the
// same plan.
package plan

import (
	"sort"

	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/internal/domain/types"
)

// maintenanceNote is returned instead of drills when a session shows no
// detectable flaws.
const maintenanceNote = "No technique flaws detected. Keep the current routine, " +
	"practice under game-like conditions, and focus on shot selection."

// focusArea is the static drill table entry for one flaw type.
type focusArea struct {
	focus  string
	drills []string
}

// drillTable maps every catalog flaw to its focus area and drill list.
// Content follows the original coaching material.
var drillTable = map[model.FlawType]focusArea{
	model.ElbowFlare: {
		focus: "Keep the shooting elbow aligned under the ball",
		drills: []string{
			"Wall drill: elbow brushes the wall through the whole motion",
			"Mirror practice for visual alignment feedback",
			"Slow-motion form shooting close to the basket",
		},
	},
	model.InsufficientKneeBend: {
		focus: "Load the legs for lift and rhythm",
		drills: []string{
			"Chair shooting: sit-to-shot to force a full leg load",
			"Form shooting with an exaggerated dip before the rise",
			"Leg-drive strengthening: squat-to-shot repetitions",
		},
	},
	model.GuideHandInterference: {
		focus: "Quiet the guide hand through the release",
		drills: []string{
			"One-hand form shooting with the guide hand behind the back",
			"Guide-hand peel drill: release the guide hand at the set point",
			"Ball-spin check: a clean backspin means no thumb push",
		},
	},
	model.EarlyWristSnap: {
		focus: "Hold the wrist until the top of the rise",
		drills: []string{
			"Line shooting with a late, deliberate wrist snap",
			"Pause-at-set-point shooting to separate rise and release",
			"Slow-motion reps focusing on forearm verticality",
		},
	},
	model.BalanceDeviation: {
		focus: "Stay square and land where you took off",
		drills: []string{
			"Balance-hold finish: freeze the landing for two seconds",
			"Single-leg stability work before shooting sessions",
			"Narrow-stance free throws to train a level shoulder line",
		},
	},
	model.LowReleasePoint: {
		focus: "Raise the release point above the shoulder line",
		drills: []string{
			"Wall shooting aimed above a marked release height",
			"Chair shooting over an imaginary defender",
			"Form shooting with emphasis on full arm extension and arc",
		},
	},
	model.ShortFollowThrough: {
		focus: "Finish the extension and hold the follow-through",
		drills: []string{
			"Exaggerated follow-through: hold it until the ball hits the rim",
			"Wrist-snap drill with fingers pointing at the target",
			"Free throws with a two-second follow-through freeze",
		},
	},
	model.InconsistentReleaseHeight: {
		focus: "Groove one repeatable release point",
		drills: []string{
			"100 same-form repetitions per day from one spot",
			"Pre-shot routine development before every attempt",
			"Video review comparing release frames across shots",
		},
	},
}

// catalogOrder fixes the declaration-order tie-break.
var catalogOrder = []model.FlawType{
	model.ElbowFlare,
	model.InsufficientKneeBend,
	model.GuideHandInterference,
	model.EarlyWristSnap,
	model.BalanceDeviation,
	model.LowReleasePoint,
	model.ShortFollowThrough,
	model.InconsistentReleaseHeight,
}

// Generator builds coaching plans. It has no state beyond the static
// tables, so one instance serves all sessions.
type Generator struct{}

// NewGenerator creates a plan generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// entry accumulates a flaw's session-wide profile before ranking.
type entry struct {
	flaw       model.FlawType
	severity   model.Severity
	occurrence int
}

// ForSession builds the plan from a whole session: per-shot flaws plus
// session-level flaws, weighted by how many shots each flaw recurs in.
func (g *Generator) ForSession(summary *model.SessionSummary) types.Plan {
	profile := map[model.FlawType]*entry{}
	for _, rec := range summary.Shots {
		seen := map[model.FlawType]bool{}
		for i := range rec.Flaws {
			ev := &rec.Flaws[i]
			e := upsert(profile, ev.Type, ev.Severity)
			if !seen[ev.Type] {
				e.occurrence++
				seen[ev.Type] = true
			}
		}
	}
	for i := range summary.SessionFlaws {
		ev := &summary.SessionFlaws[i]
		e := upsert(profile, ev.Type, ev.Severity)
		e.occurrence++
	}
	return g.rank(profile)
}

// ForShot builds a plan from a single shot's flaws.
func (g *Generator) ForShot(rec *model.ShotRecord) types.Plan {
	profile := map[model.FlawType]*entry{}
	for i := range rec.Flaws {
		ev := &rec.Flaws[i]
		e := upsert(profile, ev.Type, ev.Severity)
		e.occurrence = 1
	}
	return g.rank(profile)
}

func upsert(profile map[model.FlawType]*entry, t model.FlawType, sev model.Severity) *entry {
	e, ok := profile[t]
	if !ok {
		e = &entry{flaw: t}
		profile[t] = e
	}
	if sev > e.severity {
		e.severity = sev
	}
	return e
}

func (g *Generator) rank(profile map[model.FlawType]*entry) types.Plan {
	if len(profile) == 0 {
		return types.Plan{Note: maintenanceNote}
	}

	order := map[model.FlawType]int{}
	for i, t := range catalogOrder {
		order[t] = i
	}

	entries := make([]*entry, 0, len(profile))
	for _, e := range profile {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.severity != b.severity {
			return a.severity > b.severity
		}
		if a.occurrence != b.occurrence {
			return a.occurrence > b.occurrence
		}
		return order[a.flaw] < order[b.flaw]
	})

	recs := make([]types.Recommendation, len(entries))
	for i, e := range entries {
		area := drillTable[e.flaw]
		recs[i] = types.Recommendation{
			Rank:       i + 1,
			Flaw:       e.flaw,
			Focus:      area.focus,
			Severity:   e.severity,
			Occurrence: e.occurrence,
			Drills:     area.drills,
		}
	}
	return types.Plan{Recommendations: recs}
}
