// Package verify reads checkpoints concurrently to confirm that every
// retained payload still decodes and matches its checksum.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"trainckpt/pkg/checkpoint"
	ckerrors "trainckpt/pkg/errors"
	"trainckpt/pkg/logger"
	"trainckpt/pkg/ratelimit"
)

// Status classifies the outcome of verifying one checkpoint
type Status string

const (
	StatusOK      Status = "ok"
	StatusCorrupt Status = "corrupt"
	// StatusMissing means the checkpoint was deleted while verifying
	StatusMissing Status = "missing"
	StatusError   Status = "error"
)

// Job names one checkpoint to verify
type Job struct {
	ID string
}

// Result is the outcome of a Job
type Result struct {
	Job      Job
	Status   Status
	Error    error
	Duration time.Duration
	Params   int
}

// Reader reads full checkpoints. *checkpoint.FSStore satisfies it.
type Reader interface {
	Read(id string) (*checkpoint.Checkpoint, error)
}

// WorkerPool verifies checkpoints with a fixed number of workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	reader      Reader
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a verification pool. rateLimiter may be nil.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	reader Reader,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		reader:      reader,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting verification workers", logger.Fields{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for queued jobs to finish and closes the result channel.
// No jobs may be submitted after Stop.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("verification cancelled: %w", wp.ctx.Err())
	}
}

// Results returns the channel results are delivered on
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{Job: job}

	if wp.rateLimiter != nil {
		if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
			result.Status = StatusError
			result.Error = err
			return result
		}
	}

	cp, err := wp.reader.Read(job.ID)
	result.Duration = time.Since(start)
	switch {
	case err == nil:
		result.Status = StatusOK
		result.Params = cp.ModelState.NumParams()
	case errors.Is(err, ckerrors.ErrCorrupt):
		result.Status = StatusCorrupt
		result.Error = err
	case errors.Is(err, ckerrors.ErrNotFound):
		result.Status = StatusMissing
		result.Error = err
	default:
		result.Status = StatusError
		result.Error = err
	}

	fields := logger.Fields{
		"worker_id": workerID,
		"id":        job.ID,
		"status":    result.Status,
		"duration":  result.Duration,
	}
	if result.Error != nil {
		wp.logger.WithError(result.Error).WarnWithFields("Checkpoint failed verification", fields)
	} else {
		wp.logger.DebugWithFields("Checkpoint verified", fields)
	}
	return result
}

// Verify checks every id and returns the results in the order of ids
func Verify(ctx context.Context, reader Reader, ids []string, workers int, rateLimiter ratelimit.Limiter, log logger.Logger) ([]Result, error) {
	wp := NewWorkerPool(ctx, workers, reader, rateLimiter, log)
	wp.Start()

	var submitErr error
	go func() {
		defer wp.Stop()
		for _, id := range ids {
			if err := wp.Submit(Job{ID: id}); err != nil {
				submitErr = err
				return
			}
		}
	}()

	order := make(map[string]int, len(ids))
	for i, id := range ids {
		order[id] = i
	}
	results := make([]Result, 0, len(ids))
	for result := range wp.Results() {
		results = append(results, result)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return order[results[i].Job.ID] < order[results[j].Job.ID]
	})

	if submitErr != nil {
		return results, submitErr
	}
	return results, ctx.Err()
}
