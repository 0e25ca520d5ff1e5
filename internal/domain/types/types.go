// Package types contains common view types shared between the coaching
// layer and the HTTP API.
package types

import "github.com/apexsports/shotform/internal/domain/model"

// Recommendation is one ranked entry of a coaching plan.
type Recommendation struct {
	Rank       int            `json:"rank"`
	Flaw       model.FlawType `json:"flaw"`
	Focus      string         `json:"focus"`
	Severity   model.Severity `json:"severity"`
	Occurrence int            `json:"occurrence"`
	Drills     []string       `json:"drills"`
}

// Plan is a full coaching plan. Note carries the maintenance message when
// no flaws were found and the plan is empty.
type Plan struct {
	Recommendations []Recommendation `json:"recommendations"`
	Note            string           `json:"note,omitempty"`
}
