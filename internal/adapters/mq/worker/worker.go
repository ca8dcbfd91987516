// Package worker defines the asynchronous review workers that drain
// the case queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/cprtrace/cprtrace/internal/domain/model"
	"github.com/cprtrace/cprtrace/internal/domain/report"
	"github.com/cprtrace/cprtrace/pkg/logger"
	"github.com/cprtrace/cprtrace/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
)

// Case abstracts what workers read off the queue.
type Case = model.CaseSnapshot

// Reviewer runs the full review pipeline on one case snapshot.
type Reviewer interface {
	Review(ctx context.Context, c Case) (report.Report, error)
}

// Sink receives completed reports.
type Sink interface {
	Save(ctx context.Context, r report.Report) error
}

// Queue defines how workers receive cases.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Case
}

// Worker processes cases using the provided reviewer and sink.
type Worker struct {
	queue    Queue
	reviewer Reviewer
	sink     Sink
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker with configuration options.
func New(queue Queue, reviewer Reviewer, sink Sink, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		reviewer: reviewer,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	cases := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case c, ok := <-cases:
			if !ok {
				return
			}
			if err := w.process(ctx, c); err != nil {
				w.logger.Error(ctx, "error processing case", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process reviews a single case and saves the report.
func (w *Worker) process(ctx context.Context, c Case) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Milliseconds()))
	}()

	r, err := w.reviewer.Review(ctx, c)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "review failed for case",
			logger.String("caseID", c.CaseID),
			logger.Error(err),
		)
		return fmt.Errorf("review case %s: %w", c.CaseID, err)
	}

	if err := w.sink.Save(ctx, r); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "saving report failed",
			logger.String("caseID", c.CaseID),
			logger.Error(err),
		)
		return fmt.Errorf("save report for case %s: %w", c.CaseID, err)
	}

	metrics.RecordCaseReviewed()
	metrics.RecordViolationsFlagged(len(r.Violations))
	if r.ManualCCF == report.CCFNotAvailable || r.ManualCCF == report.CCFTimeError {
		metrics.RecordCCFUnavailable()
	} else {
		metrics.RecordCCFComputed()
	}

	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*Worker

	logger logger.Logger
}

// NewPool creates a worker pool draining the given queue.
func NewPool(workerCount int, queue Queue, reviewer Reviewer, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = New(
			queue,
			reviewer,
			sink,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerActive(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		select {
		case <-w.done:
			// already finished
		default:
			close(w.shutdown)
		}
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
			p.logger.Warn(context.Background(), "worker stop timed out",
				logger.String("worker", w.name))
		}
	}
	metrics.UpdateWorkerActive(0)
}
