// Package service provides the core analysis service that implements the
// dependencies required by the HTTP API: the full pipeline from landmark
// frames to shot records, session summaries, and coaching plans.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	shotqueue "github.com/apexsports/shotform/internal/adapters/mq/queue"
	workerpool "github.com/apexsports/shotform/internal/adapters/mq/worker"
	repository "github.com/apexsports/shotform/internal/adapters/repository"
	"github.com/apexsports/shotform/internal/domain/dedupe"
	"github.com/apexsports/shotform/internal/domain/flaw"
	"github.com/apexsports/shotform/internal/domain/geometry"
	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/internal/domain/plan"
	"github.com/apexsports/shotform/internal/domain/scoring"
	"github.com/apexsports/shotform/internal/domain/segment"
	"github.com/apexsports/shotform/internal/domain/types"
	"github.com/apexsports/shotform/pkg/logger"
	"github.com/apexsports/shotform/pkg/metrics"
)

// Service implements the API dependencies for the shot analysis system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	queue      shotqueue.Queue
	workerPool *workerpool.Pool

	// Pipeline
	calculator *geometry.Calculator
	segmenter  *segment.Segmenter
	detector   *flaw.Detector
	scorer     *scoring.Scorer
	planner    *plan.Generator

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	frameRate        float64
	reliabilityFloor float64
	minCoverage      float64
	handedness       model.Hand
	segmentOpts      []segment.Option
	flawOpts         []flaw.Option
	scoringOpts      []scoring.Option

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFrameRate sets the capture rate assumed for velocity metrics.
func WithFrameRate(fps float64) Option {
	return func(s *Service) {
		if fps > 0 {
			s.frameRate = fps
		}
	}
}

// WithReliabilityFloor sets the landmark confidence floor.
func WithReliabilityFloor(floor float64) Option {
	return func(s *Service) {
		if floor >= 0 && floor <= 1 {
			s.reliabilityFloor = floor
		}
	}
}

// WithMinCoverage sets the fraction of frames that must carry reliable core
// joints before a shot is analyzed at all.
func WithMinCoverage(coverage float64) Option {
	return func(s *Service) {
		if coverage >= 0 && coverage <= 1 {
			s.minCoverage = coverage
		}
	}
}

// WithHandedness selects the shooting side.
func WithHandedness(h model.Hand) Option {
	return func(s *Service) {
		s.handedness = h
	}
}

// WithSegmentOptions forwards options to the phase segmenter.
func WithSegmentOptions(opts ...segment.Option) Option {
	return func(s *Service) {
		s.segmentOpts = append(s.segmentOpts, opts...)
	}
}

// WithFlawOptions forwards options to the flaw detector.
func WithFlawOptions(opts ...flaw.Option) Option {
	return func(s *Service) {
		s.flawOpts = append(s.flawOpts, opts...)
	}
}

// WithScoringOptions forwards options to the scorer.
func WithScoringOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scoringOpts = append(s.scoringOpts, opts...)
	}
}

// New constructs a new Service with default configuration. The analysis
// pipeline is usable immediately; Start wires the asynchronous machinery.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU() * 2,
		queueSize:        10000,
		dedupeSize:       100000,
		frameRate:        30.0,
		reliabilityFloor: 0.5,
		minCoverage:      0.6,
		handedness:       model.RightHanded,
		stopCh:           make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.calculator = geometry.NewCalculator(
		geometry.WithFrameRate(s.frameRate),
		geometry.WithReliabilityFloor(s.reliabilityFloor),
		geometry.WithHandedness(s.handedness),
	)
	s.segmenter = segment.NewSegmenter(s.segmentOpts...)
	s.detector = flaw.NewDetector(s.flawOpts...)
	s.scorer = scoring.NewScorer(s.scoringOpts...)
	s.planner = plan.NewGenerator()

	return s
}

// Start initializes and starts the asynchronous service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting shot analysis service...")

	s.store = repository.NewMemStore()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = shotqueue.NewInMemoryQueue(
		shotqueue.WithCapacity(s.queueSize),
		shotqueue.WithBufferSize(s.queueSize),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.queue, s, s.store)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "shot analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping shot analysis service...")

	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	if q, ok := s.queue.(*shotqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "shot analysis service stopped")
}

// SeenAndRecord atomically checks if a shot id was seen and records it if
// not. Returns true if the shot was already seen, false if it was newly
// recorded.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordShotDuplicate()
	}
	return seen
}

// Unrecord removes a shot ID from the seen list, allowing it to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue submits a shot for asynchronous analysis. Returns false when the
// queue rejects the submission, in which case the caller should surface
// backpressure and Unrecord the id.
func (s *Service) Enqueue(ctx context.Context, sub model.ShotSubmission) bool {
	ok := s.queue.Enqueue(ctx, sub)
	if ok {
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	}
	return ok
}

// Analyze runs the full pipeline synchronously: coverage check, metric
// trace, phase segmentation, flaw detection, scoring. It never touches the
// store; persistence is the caller's concern.
func (s *Service) Analyze(ctx context.Context, sub model.ShotSubmission) (*model.ShotRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAnalysisLatency(float64(time.Since(start).Milliseconds()))
	}()

	if len(sub.Frames) == 0 {
		metrics.RecordShotRejected("no_frames")
		return nil, fmt.Errorf("shot %s has no frames: %w", sub.ShotID, ErrInsufficientData)
	}
	coverage := model.Coverage(sub.Frames, s.reliabilityFloor)
	if coverage < s.minCoverage {
		metrics.RecordShotRejected("low_coverage")
		return nil, fmt.Errorf("shot %s coverage %.2f below %.2f: %w",
			sub.ShotID, coverage, s.minCoverage, ErrInsufficientData)
	}

	trace := s.calculator.Compute(sub.Frames)
	seg := s.segmenter.Segment(trace)

	rec := &model.ShotRecord{
		ShotID:       sub.ShotID,
		SessionID:    sub.SessionID,
		FrameCount:   len(sub.Frames),
		FrameRate:    s.frameRate,
		Phases:       seg.Intervals,
		ReleaseFrame: seg.ReleaseFrame,
	}

	if seg.Degenerate {
		rec.Indeterminate = true
		metrics.RecordShotDegenerate()
		if s.logger != nil {
			s.logger.Warn(ctx, "degenerate segmentation",
				logger.String("shotID", sub.ShotID),
				logger.Int("frames", len(sub.Frames)),
			)
		}
		return rec, nil
	}

	rec.Summaries = summarizePhases(trace, seg.Intervals)

	flaws, notEvaluated := s.detector.Detect(trace, seg.Intervals)
	rec.Flaws = flaws
	rec.NotEvaluated = notEvaluated
	for i := range flaws {
		metrics.RecordFlawDetected(string(flaws[i].Type), flaws[i].Severity.String())
	}
	for _, t := range notEvaluated {
		metrics.RecordFlawNotEvaluated(string(t))
	}

	rec.Score = s.scorer.ShotScore(flaws)
	rec.Grade = scoring.Grade(rec.Score)

	if h := trace.At(geometry.WristHeight, seg.ReleaseFrame); h.Defined {
		if a := trace.At(geometry.ElbowAngle, seg.ReleaseFrame); a.Defined {
			rec.ReleaseHeight = h.Value
			rec.ReleaseAngle = a.Value
			rec.ReleaseDefined = true
		}
	}

	metrics.RecordShotAnalyzed()
	return rec, nil
}

// Record appends a completed shot record to the session store.
func (s *Service) Record(ctx context.Context, rec *model.ShotRecord) error {
	return s.store.Append(ctx, rec)
}

// Session recomputes the aggregate summary for a session from its stored
// shot records.
func (s *Service) Session(ctx context.Context, sessionID string) (*model.SessionSummary, error) {
	shots, err := s.store.Shots(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.summarize(sessionID, shots), nil
}

// Sessions lists the known session IDs.
func (s *Service) Sessions(ctx context.Context) []string {
	return s.store.Sessions(ctx)
}

// CoachingPlan builds the ranked coaching plan for a session.
func (s *Service) CoachingPlan(ctx context.Context, sessionID string) (types.Plan, error) {
	summary, err := s.Session(ctx, sessionID)
	if err != nil {
		return types.Plan{}, err
	}
	return s.planner.ForSession(summary), nil
}

// summarize builds the session aggregate. Indeterminate shots count toward
// ShotCount but are excluded from score aggregates; consistency additionally
// requires a defined release.
func (s *Service) summarize(sessionID string, shots []*model.ShotRecord) *model.SessionSummary {
	summary := &model.SessionSummary{
		SessionID:     sessionID,
		ShotCount:     len(shots),
		FlawFrequency: map[model.FlawType]int{},
		Shots:         shots,
	}

	var determinate []*model.ShotRecord
	sum := 0.0
	for _, r := range shots {
		if r.Indeterminate {
			continue
		}
		determinate = append(determinate, r)
		sum += r.Score

		seen := map[model.FlawType]bool{}
		for i := range r.Flaws {
			if !seen[r.Flaws[i].Type] {
				summary.FlawFrequency[r.Flaws[i].Type]++
				seen[r.Flaws[i].Type] = true
			}
		}
	}
	if len(determinate) > 0 {
		summary.MeanScore = sum / float64(len(determinate))
	}

	summary.ConsistencyScore, summary.ConsistencyDefined = s.scorer.SessionConsistency(determinate)
	summary.Trend = scoring.Trend(determinate)

	summary.SessionFlaws = s.scorer.SessionFlaws(determinate)
	for i := range summary.SessionFlaws {
		summary.FlawFrequency[summary.SessionFlaws[i].Type]++
	}

	return summary
}

// summarizePhases digests every metric over every phase interval.
func summarizePhases(t *geometry.Trace, intervals []model.PhaseInterval) []model.PhaseSummary {
	out := make([]model.PhaseSummary, 0, len(intervals))
	for _, iv := range intervals {
		ps := model.PhaseSummary{Phase: iv.Phase, Start: iv.Start, End: iv.End}
		for _, m := range geometry.Metrics() {
			var ms model.MetricSummary
			ms.Metric = string(m)
			first := true
			sum := 0.0
			for i := iv.Start; i <= iv.End; i++ {
				sample := t.At(m, i)
				if !sample.Defined {
					continue
				}
				if first {
					ms.Min, ms.Max = sample.Value, sample.Value
					first = false
				} else {
					if sample.Value < ms.Min {
						ms.Min = sample.Value
					}
					if sample.Value > ms.Max {
						ms.Max = sample.Value
					}
				}
				sum += sample.Value
				ms.DefinedFrames++
			}
			if ms.DefinedFrames == 0 {
				continue
			}
			ms.Mean = sum / float64(ms.DefinedFrames)
			ps.Metrics = append(ps.Metrics, ms)
		}
		out = append(out, ps)
	}
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		totalShots := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalShots"] = totalShots
		stats["totalSessions"] = len(s.store.Sessions(ctx))

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalShots(totalShots)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
