// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package parallel fans a batch of input sources out across worker
// goroutines, turning each file or object into case records through a
// RecordSource. Local reads retry on transient failures; remote reads
// additionally run behind a circuit breaker so one unreachable bucket
// does not stall the whole batch.
package parallel

import (
	"context"
	"strings"
	"sync"
	"time"

	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
	"docket-scan/internal/resilience"
)

// RecordSource turns one input path into case records. The ingest
// manager implements this; the pool stays agnostic to formats.
type RecordSource interface {
	ProcessPath(ctx context.Context, path string) ([]docket.CaseRecord, error)
}

// WorkerPool manages parallel input reading with retry and circuit
// breaker protection
type WorkerPool struct {
	workers        int
	source         RecordSource
	jobs           chan *Job
	results        chan *Result
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
	observer       *observability.StandardObserver
	retryManager   *resilience.RetryManager
	circuitBreaker *resilience.CircuitBreakerManager
}

// Job is one input path to read
type Job struct {
	Path   string
	JobID  string
	Config *JobConfig
}

// JobConfig holds per-batch processing options
type JobConfig struct {
	Debug bool
}

// Result carries the records read from one input path
type Result struct {
	JobID    string
	Path     string
	Records  []docket.CaseRecord
	Error    error
	Duration time.Duration
}

// NewWorkerPool creates a worker pool reading through the given source
func NewWorkerPool(workers int, source RecordSource, observer *observability.StandardObserver) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	retryManager := resilience.NewRetryManager()
	retryManager.SetConfig("file_read", resilience.DefaultRetryConfig())
	retryManager.SetConfig("remote_fetch", resilience.RemoteRetryConfig())

	return &WorkerPool{
		workers:        workers,
		source:         source,
		jobs:           make(chan *Job, workers*2),
		results:        make(chan *Result, workers*2),
		ctx:            ctx,
		cancel:         cancel,
		observer:       observer,
		retryManager:   retryManager,
		circuitBreaker: resilience.NewCircuitBreakerManager(),
	}
}

// Start initializes worker goroutines
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop waits for in-flight jobs and shuts the pool down. The jobs
// channel must already be closed by the submitter.
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job *Job) {
	select {
	case wp.jobs <- job:
	case <-wp.ctx.Done():
	}
}

// Results returns the results channel
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob reads one input path with the retry policy matching its
// locality
func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "read_input", job.Path)
	}

	var records []docket.CaseRecord
	read := func(ctx context.Context) error {
		if wp.source == nil {
			return resilience.NewPermanentError("no record source configured", nil)
		}
		var readErr error
		records, readErr = wp.source.ProcessPath(ctx, job.Path)
		return readErr
	}

	jobCtx, cancel := context.WithTimeout(wp.ctx, 5*time.Minute)
	defer cancel()

	var err error
	if isRemote(job.Path) {
		breakerCfg := resilience.DefaultCircuitBreakerConfig("remote_fetch")
		breakerCfg.OnStateChange = wp.logBreakerTransition
		breaker := wp.circuitBreaker.GetOrCreate("remote_fetch", breakerCfg)
		err = breaker.Execute(jobCtx, func(ctx context.Context) error {
			return wp.retryManager.Retry(ctx, "remote_fetch", read)
		})
	} else {
		err = wp.retryManager.Retry(jobCtx, "file_read", read)
	}

	if err != nil && resilience.IsCircuitBreakerError(err) && !debugEnabled(job) {
		// Don't expose circuit breaker internals to end users
		err = resilience.NewTransientError("source temporarily unavailable", err)
	}

	duration := time.Since(start)
	if finishTiming != nil {
		finishTiming(err == nil, map[string]interface{}{
			"worker_id":    workerID,
			"record_count": len(records),
			"duration_ms":  duration.Milliseconds(),
			"had_error":    err != nil,
		})
	}

	return &Result{
		JobID:    job.JobID,
		Path:     job.Path,
		Records:  records,
		Error:    err,
		Duration: duration,
	}
}

// logBreakerTransition surfaces breaker state changes so operators can
// tell shed requests from source failures
func (wp *WorkerPool) logBreakerTransition(name string, from, to resilience.CircuitBreakerState) {
	if wp.observer == nil {
		return
	}
	wp.observer.LogOperation(observability.StandardObservabilityData{
		Component: "worker_pool",
		Operation: "breaker_state",
		Source:    name,
		Success:   to == resilience.StateClosed,
		Metadata: map[string]interface{}{
			"from": from.String(),
			"to":   to.String(),
		},
	})
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

func debugEnabled(job *Job) bool {
	return job.Config != nil && job.Config.Debug
}
