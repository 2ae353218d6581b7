// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package observability emits per-operation records for the
// reconciliation pipeline. At the metrics level operations are timed but
// nothing is written; at the debug level every operation is streamed as
// a JSON line, and a DebugObserver adds an indented step trace for
// humans reading stderr.
package observability

import (
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
)

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// StandardObserver is shared by every pipeline component. Readers, the
// grouper, the resolver, and the worker pool all report through the same
// instance so one stream shows the whole run.
type StandardObserver struct {
	level  ObservabilityLevel
	writer io.Writer

	// DebugObserver is set when the run was started with -debug and
	// carries the human-readable step trace.
	DebugObserver *DebugObserver
}

func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{level: level, writer: writer}
}

// StartTiming marks the beginning of an operation and returns the
// completion callback. Components call the callback exactly once, in a
// defer or at each return path.
func (o *StandardObserver) StartTiming(component, operation, source string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		o.LogOperation(StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			Source:     source,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// LogOperation records one completed operation. The record is only
// written at the debug level; the metrics level keeps the timing
// callbacks cheap no-ops so components never need level checks.
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o.level == ObservabilityOff {
		return
	}

	// Worker operations interleave in the stream; the id groups the
	// lines of one operation when post-processing the output.
	data.RequestID = "req-" + uuid.NewString()[:8]

	if o.level == ObservabilityDebug {
		json.NewEncoder(o.writer).Encode(data)
	}
}

// StandardObservabilityData is one operation record. Components fill the
// fields that apply: readers set RecordCount, the grouper sets
// ChainCount, failures set Error.
type StandardObservabilityData struct {
	Component   string                 `json:"component"`
	Operation   string                 `json:"operation"`
	RequestID   string                 `json:"request_id"`
	Source      string                 `json:"source,omitempty"`
	DurationMs  int64                  `json:"duration_ms,omitempty"`
	Success     bool                   `json:"success"`
	Error       string                 `json:"error,omitempty"`
	RecordCount int                    `json:"record_count,omitempty"`
	ChainCount  int                    `json:"chain_count,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
