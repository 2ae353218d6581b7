// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"fmt"
	"runtime"
	"time"

	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
)

// ParallelProcessor reads a batch of input paths through a worker pool
type ParallelProcessor struct {
	workerPool *WorkerPool
	observer   *observability.StandardObserver
}

// ProcessingStats tracks batch read statistics
type ProcessingStats struct {
	TotalInputs     int           `json:"total_inputs"`
	ProcessedInputs int           `json:"processed_inputs"`
	FailedInputs    int           `json:"failed_inputs"`
	TotalRecords    int           `json:"total_records"`
	TotalDuration   time.Duration `json:"total_duration_ms"`
	WorkerCount     int           `json:"worker_count"`
	AvgInputTime    time.Duration `json:"avg_input_time_ms"`
}

// NewParallelProcessor creates a processor with one worker per CPU,
// capped at 8
func NewParallelProcessor(source RecordSource, observer *observability.StandardObserver) *ParallelProcessor {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	return NewParallelProcessorWithWorkers(workers, source, observer)
}

// NewParallelProcessorWithWorkers creates a processor with a fixed
// worker count
func NewParallelProcessorWithWorkers(workers int, source RecordSource, observer *observability.StandardObserver) *ParallelProcessor {
	if workers < 1 {
		workers = 1
	}
	return &ParallelProcessor{
		workerPool: NewWorkerPool(workers, source, observer),
		observer:   observer,
	}
}

// ProgressCallback is called when an input is completed
type ProgressCallback func(completed, total int, currentPath string)

// ProcessPaths reads every input path and returns the combined records.
// Records keep input-path order regardless of which worker finished
// first, so downstream grouping sees a stable iteration order. Failed
// inputs are logged and counted, never fatal to the batch.
func (pp *ParallelProcessor) ProcessPaths(paths []string, config *JobConfig, progress ProgressCallback) ([]docket.CaseRecord, *ProcessingStats, error) {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if pp.observer != nil {
		finishTiming = pp.observer.StartTiming("parallel_processor", "process_paths", "batch")
	}

	pp.workerPool.Start()
	defer pp.workerPool.Stop()

	jobCount := len(paths)
	go func() {
		defer close(pp.workerPool.jobs)
		for i, path := range paths {
			pp.workerPool.Submit(&Job{
				Path:   path,
				JobID:  fmt.Sprintf("input_%05d", i),
				Config: config,
			})
		}
	}()

	byInput := make([][]docket.CaseRecord, jobCount)
	processed := 0
	failed := 0
	totalDuration := time.Duration(0)

	for i := 0; i < jobCount; i++ {
		result := <-pp.workerPool.Results()

		var idx int
		fmt.Sscanf(result.JobID, "input_%05d", &idx)

		if result.Error != nil {
			failed++
			if pp.observer != nil {
				pp.observer.LogOperation(observability.StandardObservabilityData{
					Component: "parallel_processor",
					Operation: "read_input",
					Source:    result.Path,
					Success:   false,
					Error:     result.Error.Error(),
				})
			}
		} else {
			byInput[idx] = result.Records
			processed++
		}
		totalDuration += result.Duration

		if progress != nil {
			progress(i+1, jobCount, result.Path)
		}
	}

	total := 0
	for _, batch := range byInput {
		total += len(batch)
	}
	records := make([]docket.CaseRecord, 0, total)
	for _, batch := range byInput {
		records = append(records, batch...)
	}

	overallDuration := time.Since(start)
	stats := &ProcessingStats{
		TotalInputs:     jobCount,
		ProcessedInputs: processed,
		FailedInputs:    failed,
		TotalRecords:    len(records),
		TotalDuration:   overallDuration,
		WorkerCount:     pp.workerPool.workers,
		AvgInputTime:    totalDuration / time.Duration(max(processed, 1)),
	}

	if finishTiming != nil {
		finishTiming(failed == 0, map[string]interface{}{
			"total_inputs":  jobCount,
			"failed_inputs": failed,
			"total_records": len(records),
			"worker_count":  pp.workerPool.workers,
			"duration_ms":   overallDuration.Milliseconds(),
		})
	}

	return records, stats, nil
}
