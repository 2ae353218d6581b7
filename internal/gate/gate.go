// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package gate is the batch quality pre-flight for data pipelines: it
// ingests and normalizes a batch without reconciling it, and fails the
// process when too many records are malformed to trust the run.
package gate

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"docket-scan/internal/docket"
)

// Detector handles detection of CI environments and provides gate
// configuration tuned for pipeline use
type Detector struct {
	isCIEnv bool
	config  *GateConfig
}

// GateConfig contains gate-specific configuration settings
type GateConfig struct {
	QuietMode         bool
	NoColor           bool
	MaxMalformedRatio float64
}

// DefaultMaxMalformedRatio is the malformed-record ratio above which a
// batch fails the gate
const DefaultMaxMalformedRatio = 0.02

// ciIndicators are the environment variables that mark a CI or hook
// environment
var ciIndicators = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"PRE_COMMIT",
	"_PRE_COMMIT_RUNNING",
}

// NewDetector creates a new Detector instance
func NewDetector() *Detector {
	detector := &Detector{}
	detector.detectEnvironment()
	detector.generateOptimizedConfig()
	return detector
}

// NewDetectorWithFlag creates a new Detector instance with explicit flag override
func NewDetectorWithFlag(explicitMode bool) *Detector {
	detector := &Detector{}
	detector.detectEnvironment()

	// Override environment detection if explicit mode is enabled
	if explicitMode {
		detector.isCIEnv = true
	}

	detector.generateOptimizedConfig()
	return detector
}

// IsCIEnvironment returns true if running under CI or a commit hook
func (d *Detector) IsCIEnvironment() bool {
	return d.isCIEnv
}

// GetOptimizedConfig returns gate configuration tuned for the detected
// environment
func (d *Detector) GetOptimizedConfig() *GateConfig {
	return d.config
}

// detectEnvironment checks for CI environment indicators
func (d *Detector) detectEnvironment() {
	for _, name := range ciIndicators {
		if os.Getenv(name) != "" {
			d.isCIEnv = true
			return
		}
	}
	d.isCIEnv = false
}

// generateOptimizedConfig creates settings for the detected environment
func (d *Detector) generateOptimizedConfig() {
	config := &GateConfig{
		QuietMode:         d.isCIEnv, // Suppress progress output in pipelines
		NoColor:           d.isCIEnv, // CI logs do not render ANSI colors
		MaxMalformedRatio: DefaultMaxMalformedRatio,
	}

	// Allow environment variable override for the ratio threshold
	if ratioStr := os.Getenv("DOCKET_GATE_MAX_RATIO"); ratioStr != "" {
		if ratio, err := strconv.ParseFloat(ratioStr, 64); err == nil && ratio >= 0 && ratio <= 1 {
			config.MaxMalformedRatio = ratio
		}
	}

	d.config = config
}

// Report is the result of one gate evaluation.
type Report struct {
	TotalRecords int
	Malformed    int
	// Reasons counts malformed records per reason
	Reasons  map[string]int
	Ratio    float64
	MaxRatio float64
	Passed   bool
}

// Evaluate runs the gate over an ingested batch. A batch passes when
// at least one record parsed and the malformed ratio stays at or below
// maxRatio.
func Evaluate(records []docket.CaseRecord, maxRatio float64) *Report {
	report := &Report{
		TotalRecords: len(records),
		Reasons:      make(map[string]int),
		MaxRatio:     maxRatio,
	}

	for i := range records {
		if bad, reason := records[i].Malformed(); bad {
			report.Malformed++
			report.Reasons[reason]++
		}
	}

	if report.TotalRecords > 0 {
		report.Ratio = float64(report.Malformed) / float64(report.TotalRecords)
	}
	report.Passed = report.TotalRecords > 0 && report.Ratio <= maxRatio

	return report
}

// Summary renders the short gate report printed to the pipeline log
func (r *Report) Summary() string {
	var b strings.Builder

	if r.TotalRecords == 0 {
		b.WriteString("Gate: FAIL (no records parsed)\n")
		return b.String()
	}

	if r.Passed {
		fmt.Fprintf(&b, "Gate: PASS (%d records, %d malformed, ratio %.3f <= %.3f)\n",
			r.TotalRecords, r.Malformed, r.Ratio, r.MaxRatio)
	} else {
		fmt.Fprintf(&b, "Gate: FAIL (%d of %d records malformed, ratio %.3f > %.3f)\n",
			r.Malformed, r.TotalRecords, r.Ratio, r.MaxRatio)
	}

	reasons := make([]string, 0, len(r.Reasons))
	for reason := range r.Reasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(&b, "  %s: %d\n", reason, r.Reasons[reason])
	}

	return b.String()
}

// GetExitCode returns the process exit code for a gate run. System
// errors and gate failures both exit 2 so pipelines treat them as
// blocking; a passing batch exits 0.
func GetExitCode(report *Report, hasErrors bool) int {
	if hasErrors {
		return 2
	}
	if report == nil || !report.Passed {
		return 2
	}
	return 0
}
