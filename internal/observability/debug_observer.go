// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// DebugObserver renders the step trace a -debug run prints to stderr.
// Steps nest: a reader step opened inside the engine step indents one
// level deeper, so the trace mirrors the pipeline call tree.
type DebugObserver struct {
	*StandardObserver
	indent int
}

func NewDebugObserver(writer io.Writer) *DebugObserver {
	return &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
	}
}

// StartStep opens a step and returns its completion callback. The
// callback closes the step at the original indent even when nested
// steps ran in between.
func (d *DebugObserver) StartStep(component, step, source string) func(success bool, details string) {
	start := time.Now()
	fmt.Fprintf(d.writer, "%s🔄 %s: %s (%s)\n", d.pad(), component, step, source)
	d.indent++

	return func(success bool, details string) {
		d.indent--
		glyph, state := "✅", "completed"
		if !success {
			glyph, state = "❌", "failed"
		}
		fmt.Fprintf(d.writer, "%s%s %s: %s %s (%dms) %s\n",
			d.pad(), glyph, component, step, state, time.Since(start).Milliseconds(), details)
	}
}

// LogDetail prints one line of context under the current step.
func (d *DebugObserver) LogDetail(component, detail string) {
	fmt.Fprintf(d.writer, "%s   → %s: %s\n", d.pad(), component, detail)
}

// LogMetric prints a named value under the current step.
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	fmt.Fprintf(d.writer, "%s   📊 %s: %s = %v\n", d.pad(), component, metric, value)
}

func (d *DebugObserver) pad() string {
	return strings.Repeat("  ", d.indent)
}
