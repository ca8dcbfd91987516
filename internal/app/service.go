// Package service provides the core review service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cprtrace/cprtrace/internal/adapters/archive"
	casequeue "github.com/cprtrace/cprtrace/internal/adapters/mq/queue"
	workerpool "github.com/cprtrace/cprtrace/internal/adapters/mq/worker"
	"github.com/cprtrace/cprtrace/internal/adapters/repository"
	"github.com/cprtrace/cprtrace/internal/domain/chronology"
	"github.com/cprtrace/cprtrace/internal/domain/dedupe"
	"github.com/cprtrace/cprtrace/internal/domain/interruption"
	"github.com/cprtrace/cprtrace/internal/domain/model"
	"github.com/cprtrace/cprtrace/internal/domain/report"
	"github.com/cprtrace/cprtrace/internal/domain/resolve"
	"github.com/cprtrace/cprtrace/pkg/logger"
	"github.com/cprtrace/cprtrace/pkg/metrics"
)

// pipeline runs the full review chain for one case snapshot:
// resolve corrected instants, validate chronology, total the logged
// interruptions, then compute the metrics report.
type pipeline struct {
	resolver   *resolve.Resolver
	validator  *chronology.Validator
	calculator *report.Calculator
}

func (p *pipeline) Review(_ context.Context, c workerpool.Case) (report.Report, error) {
	points := p.resolver.ResolveAll(c)
	violations := p.validator.Violations(points)

	prePads := interruption.TotalSeconds(c.PrePadsInterruptions)
	preMCPR := interruption.TotalSeconds(c.PreMCPRInterruptions)

	return p.calculator.Compute(c.CaseID, points, prePads, preMCPR, violations), nil
}

// reviewSink persists completed reports. Review identity (id and
// timestamp) is assigned here so the report itself stays a pure
// function of the snapshot.
type reviewSink struct {
	store   repository.Store
	archive archive.Archive

	logger logger.Logger
}

func (s *reviewSink) Save(ctx context.Context, r report.Report) error {
	rev := repository.Review{
		ReviewID:   uuid.NewString(),
		CaseID:     r.CaseID,
		ReviewedAt: time.Now().UTC(),
		Report:     r,
	}

	if err := s.store.Put(ctx, rev); err != nil {
		return fmt.Errorf("store review: %w", err)
	}
	metrics.UpdateStoredReviews(s.store.Count(ctx))

	// Archive failures never fail the review; the in-memory store
	// remains authoritative for reads.
	if s.archive != nil {
		if err := s.archive.Put(ctx, rev); err != nil {
			metrics.RecordArchiveError()
			s.logger.Error(ctx, "archiving review failed",
				logger.String("caseID", rev.CaseID),
				logger.Error(err),
			)
		} else {
			metrics.RecordArchiveWrite()
		}
	}

	return nil
}

// Service implements the API dependencies for the case review system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	caseQueue casequeue.Queue
	pool      *workerpool.Pool
	pipeline  *pipeline
	sink      *reviewSink
	archive   archive.Archive

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	shardCount    int
	strictOffsets bool
	roscTolerance time.Duration
	archivePath   string

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of review worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the case queue.
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

// WithShardCount sets the shard count of the in-memory review store.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithStrictOffsets makes resolution reject observers whose clocks
// were never calibrated instead of assuming a zero offset.
func WithStrictOffsets(strict bool) Option {
	return func(s *Service) {
		s.strictOffsets = strict
	}
}

// WithROSCTolerance sets the tolerance for the ROSC / AED-off
// simultaneity check.
func WithROSCTolerance(tolerance time.Duration) Option {
	return func(s *Service) {
		if tolerance >= 0 {
			s.roscTolerance = tolerance
		}
	}
}

// WithArchivePath enables the SQLite archive at the given path.
func WithArchivePath(path string) Option {
	return func(s *Service) {
		s.archivePath = path
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

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     10_000,
		dedupeSize:    50_000,
		shardCount:    8,
		roscTolerance: time.Second,
		stopCh:        make(chan struct{}),
		logger:        nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting review service...")

	s.store = repository.NewMapStore(
		repository.WithShardCount(s.shardCount),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.caseQueue = casequeue.NewInMemoryQueue(
		casequeue.WithCapacity(s.queueSize),
	)

	s.pipeline = &pipeline{
		resolver:   resolve.New(resolve.WithStrictOffsets(s.strictOffsets)),
		validator:  chronology.New(chronology.WithROSCTolerance(s.roscTolerance)),
		calculator: report.NewCalculator(),
	}

	if s.archivePath != "" {
		a, err := archive.New(s.archivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		s.archive = a
		s.logger.Info(ctx, "review archive enabled",
			logger.String("path", s.archivePath))
	}

	s.sink = &reviewSink{
		store:   s.store,
		archive: s.archive,
		logger:  s.logger.Named("sink"),
	}

	s.pool = workerpool.NewPool(s.workerCount, s.caseQueue, s.pipeline, s.sink)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "review service started",
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

	s.logger.Info(context.Background(), "stopping review service...")

	// Close the queue first so workers drain what is buffered.
	if q, ok := s.caseQueue.(*casequeue.InMemoryQueue); ok {
		_ = q.Close()
	}

	if s.pool != nil {
		s.pool.Stop()
	}

	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			s.logger.Error(context.Background(), "closing archive failed",
				logger.Error(err))
		}
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "review service stopped")
}

// Evaluate runs the review pipeline synchronously and returns the
// report without recording the case. Nothing is deduplicated or
// stored, so evaluating the same snapshot twice yields byte-identical
// reports.
func (s *Service) Evaluate(ctx context.Context, c model.CaseSnapshot) (report.Report, error) {
	s.mu.RLock()
	p := s.pipeline
	s.mu.RUnlock()

	if p == nil {
		return report.Report{}, ErrNotStarted
	}

	start := time.Now()
	r, err := p.Review(ctx, c)
	if err != nil {
		return report.Report{}, err
	}
	metrics.RecordReviewLatency(float64(time.Since(start).Milliseconds()))

	return r, nil
}

// Submit queues a case snapshot for asynchronous review.
// Returns ErrDuplicateCase when the case id was already submitted and
// ErrBackpressure when the queue cannot accept it; a rejected case is
// unrecorded so it can be retried.
func (s *Service) Submit(ctx context.Context, c model.CaseSnapshot) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, c.CaseID) {
		metrics.RecordCaseDuplicate()
		s.logger.Debug(ctx, "duplicate case submission",
			logger.String("caseID", c.CaseID))
		return ErrDuplicateCase
	}

	if !s.caseQueue.Enqueue(ctx, c) {
		// Roll back the dedupe record so a retry is not rejected as
		// a duplicate.
		s.deduper.Unrecord(ctx, c.CaseID)
		return fmt.Errorf("enqueue case %s: %w", c.CaseID, ErrBackpressure)
	}

	metrics.RecordCaseSubmitted()
	metrics.UpdateQueueSize(s.caseQueue.Len(ctx))

	return nil
}

// Report returns the completed review for a case.
// Returns repository.ErrNotFound if the case has not been reviewed.
func (s *Service) Report(ctx context.Context, caseID string) (repository.Review, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return repository.Review{}, ErrNotStarted
	}

	return store.Get(ctx, caseID)
}

// Recent returns up to n completed reviews, most recent first.
func (s *Service) Recent(ctx context.Context, n int) ([]repository.Review, error) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return nil, ErrNotStarted
	}

	return store.Recent(ctx, n)
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
		queueLen := s.caseQueue.Len(ctx)
		storedReviews := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["storedReviews"] = storedReviews
		stats["strictOffsets"] = s.strictOffsets

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoredReviews(storedReviews)
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}
