package testshots

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults checks the retrieved sessions for internal consistency.
func verifyResults(config *Config, results []SessionResult, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(results) == 0 {
		return fmt.Errorf("no sessions to verify")
	}

	totalShots := 0
	for _, r := range results {
		if err := verifySingleSession(r); err != nil {
			log.Printf("⚠️  Session consistency warning for %s: %v", r.Summary.SessionID, err)
		}
		totalShots += r.Summary.ShotCount
	}

	if totalShots < stats.ShotsSuccessful {
		log.Printf("⚠️  Only %d of %d submitted shots are recorded; some may still be in flight",
			totalShots, stats.ShotsSuccessful)
	} else {
		log.Printf("✅ All %d submitted shots are recorded", totalShots)
	}

	displayTopSessions(results, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifySingleSession checks one session's invariants.
func verifySingleSession(r SessionResult) error {
	s := r.Summary

	if s.ShotCount != len(s.Shots) {
		return fmt.Errorf("shot count %d does not match %d returned records", s.ShotCount, len(s.Shots))
	}
	if s.MeanScore < 0 || s.MeanScore > 100 {
		return fmt.Errorf("mean score %.3f outside [0,100]", s.MeanScore)
	}
	if s.ConsistencyDefined && (s.ConsistencyScore < 0 || s.ConsistencyScore > 100) {
		return fmt.Errorf("consistency score %.3f outside [0,100]", s.ConsistencyScore)
	}
	for _, rec := range s.Shots {
		if rec.Indeterminate {
			continue
		}
		if rec.Score < 0 || rec.Score > 100 {
			return fmt.Errorf("shot %s score %.3f outside [0,100]", rec.ShotID, rec.Score)
		}
		if rec.Grade == "" {
			return fmt.Errorf("shot %s has no grade", rec.ShotID)
		}
	}

	if r.Plan != nil {
		for i, rec := range r.Plan.Recommendations {
			if rec.Rank != i+1 {
				return fmt.Errorf("plan recommendation %d has rank %d", i, rec.Rank)
			}
		}
	}
	return nil
}

// displayTopSessions shows the best-scoring sessions.
func displayTopSessions(results []SessionResult, verbose bool) {
	sorted := make([]SessionResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Summary.MeanScore > sorted[j].Summary.MeanScore
	})

	topN := 10
	if len(sorted) < topN {
		topN = len(sorted)
	}

	log.Printf("🏆 Top %d sessions by mean score:", topN)
	for i := 0; i < topN; i++ {
		s := sorted[i].Summary
		log.Printf("   %d. %s - Score: %.3f (%d shots, trend: %s)",
			i+1, s.SessionID, s.MeanScore, s.ShotCount, s.Trend)
	}

	if verbose {
		// Flaw distribution across all sessions
		flawTotals := map[string]int{}
		for _, r := range results {
			for flaw, count := range r.Summary.FlawFrequency {
				flawTotals[string(flaw)] += count
			}
		}
		names := make([]string, 0, len(flawTotals))
		for name := range flawTotals {
			names = append(names, name)
		}
		sort.Strings(names)

		log.Println("📊 Flaw distribution:")
		for _, name := range names {
			log.Printf("   %s: %d", name, flawTotals[name])
		}
	}
}
