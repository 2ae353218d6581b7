// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package movement extracts the semantic outcome of a case record from
// its procedural-movement sequence.
package movement

import (
	"docket-scan/internal/docket"
)

// Interpreter maps a record's movement events to an Outcome using a
// fixed code table. Interpretation is pure: no I/O and no state beyond
// the table, so records can be interpreted concurrently.
type Interpreter struct {
	table Table
}

// NewInterpreter creates an Interpreter with the given table
func NewInterpreter(table Table) *Interpreter {
	return &Interpreter{table: table}
}

// NewDefaultInterpreter creates an Interpreter with the CNJ default
// code table
func NewDefaultInterpreter() *Interpreter {
	return &Interpreter{table: DefaultTable()}
}

// Interpret scans the record's movements and returns its outcome, or
// nil when no recognized code is present. Insertion order is
// chronological order, so the last matching event per category wins: a
// case can be decided and later have that decision reformed.
//
// A reform event with no direct verdict code anywhere in the record
// produces a degraded outcome with ReformOnly set, carrying the reform
// event's attachment data. The resolver surfaces those separately
// instead of guessing a verdict.
func (i *Interpreter) Interpret(record *docket.CaseRecord) *docket.Outcome {
	if record == nil {
		return nil
	}

	verdictIdx, reformIdx := -1, -1
	var verdict docket.Verdict
	for idx := range record.Movements {
		code := record.Movements[idx].Code
		if v, ok := i.table.Lookup(code); ok {
			verdict = v
			verdictIdx = idx
			continue
		}
		if i.table.IsReform(code) {
			reformIdx = idx
		}
	}

	switch {
	case verdictIdx < 0 && reformIdx < 0:
		return nil

	case verdictIdx < 0:
		reform := record.Movements[reformIdx]
		return &docket.Outcome{
			ReformOnly: true,
			Code:       reform.Code,
			Timestamp:  reform.Timestamp,
			Reform:     copyAttachments(reform.Attachments),
		}

	default:
		event := record.Movements[verdictIdx]
		out := &docket.Outcome{
			Verdict:   verdict,
			Code:      event.Code,
			Timestamp: event.Timestamp,
		}
		// A reform recorded after the verdict points back at it; the
		// verdict still stands for transition evaluation because the
		// higher tier record carries what the reform decided.
		if reformIdx > verdictIdx {
			out.Reformed = true
			out.Reform = copyAttachments(record.Movements[reformIdx].Attachments)
		}
		return out
	}
}

// copyAttachments clones event attachments so outcomes never alias the
// immutable input record
func copyAttachments(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
