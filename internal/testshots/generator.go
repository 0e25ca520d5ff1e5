package testshots

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"

	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/internal/synth"
	"github.com/apexsports/shotform/pkg/logger"
)

// Constants for random variant selection.
const (
	variantDivisor = 10
)

// Shot variant cases. Clean form dominates so session scores stay spread
// out instead of collapsing toward the penalty floor.
const (
	caseCleanA             = 0
	caseCleanB             = 1
	caseCleanC             = 2
	caseCleanD             = 3
	caseElbowFlare         = 4
	caseShallowKneeBend    = 5
	caseGuideHandDrift     = 6
	caseEarlyWristSnap     = 7
	caseLowRelease         = 8
	caseShortFollowThrough = 9
)

// generateShots creates the specified number of shots with unique shot IDs,
// spread round-robin across the configured sessions.
func generateShots(ctx context.Context, config *Config, stats *Stats) ([]Shot, error) {
	logger.Get().Info(ctx, "generating shots with unique shot IDs",
		logger.Int("numShots", config.NumShots),
		logger.Int("numSessions", config.NumSessions))

	shots := make([]Shot, config.NumShots)

	// Pre-allocate shot IDs to ensure uniqueness
	shotIDs := make([]string, config.NumShots)
	for i := 0; i < config.NumShots; i++ {
		shotIDs[i] = uuid.New().String()
	}

	// Generate shots concurrently
	type shotResult struct {
		index int
		shot  Shot
		err   error
	}

	resultChan := make(chan shotResult, config.NumShots)

	// Use worker pool for shot generation
	workerCount := minInt(config.Workers, config.NumShots)
	shotsPerWorker := config.NumShots / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * shotsPerWorker
		end := start + shotsPerWorker
		if worker == workerCount-1 {
			end = config.NumShots // Last worker gets remaining shots
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- shotResult{index: i, err: ctx.Err()}
					return
				default:
					sessionID := "session_" + strconv.Itoa(i%config.NumSessions)
					shot := generateSingleShot(shotIDs[i], sessionID)
					resultChan <- shotResult{index: i, shot: shot, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumShots; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during shot generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate shot %d: %w", result.index, result.err)
			}
			shots[result.index] = result.shot
		}
	}

	stats.ShotsGenerated = len(shots)
	logger.Get().Info(ctx, "generated shots successfully", logger.Int("count", len(shots)))

	return shots, nil
}

// generateSingleShot creates one shot with a randomly drawn form variant.
func generateSingleShot(shotID, sessionID string) Shot {
	gen := synth.NewGenerator(randomVariant()...)

	frames := gen.Frames()
	wireFrames := make([]Frame, len(frames))
	for i, f := range frames {
		landmarks := make(map[string]model.Landmark, model.JointCount)
		for j := 0; j < model.JointCount; j++ {
			landmarks[model.Joint(j).String()] = f.Landmarks[j]
		}
		wireFrames[i] = Frame{Index: f.Index, Landmarks: landmarks}
	}

	return Shot{
		ShotID:    shotID,
		SessionID: sessionID,
		Frames:    wireFrames,
	}
}

// randomVariant draws the flaw injections for one shot.
func randomVariant() []synth.Option {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(variantDivisor))
	switch randNum.Int64() {
	case caseCleanA, caseCleanB, caseCleanC, caseCleanD:
		return nil
	case caseElbowFlare:
		return []synth.Option{synth.WithElbowFlare()}
	case caseShallowKneeBend:
		return []synth.Option{synth.WithShallowKneeBend()}
	case caseGuideHandDrift:
		return []synth.Option{synth.WithGuideHandDrift()}
	case caseEarlyWristSnap:
		return []synth.Option{synth.WithEarlyWristSnap()}
	case caseLowRelease:
		return []synth.Option{synth.WithLowRelease()}
	case caseShortFollowThrough:
		return []synth.Option{synth.WithShortFollowThrough()}
	default:
		return nil
	}
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
