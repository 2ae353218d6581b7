// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"testing"

	"docket-scan/internal/docket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCIEnv(t *testing.T) {
	t.Helper()
	for _, name := range ciIndicators {
		t.Setenv(name, "")
	}
}

func goodRecord(number string) docket.CaseRecord {
	return docket.CaseRecord{RawNumber: number, Tier: docket.TierFirstInstance, Court: "TRT-2"}
}

func TestEvaluatePass(t *testing.T) {
	records := []docket.CaseRecord{
		goodRecord("0001234-56.2020.5.02.0001"),
		goodRecord("0009876-11.2019.5.04.0777"),
		{RawNumber: "", Tier: docket.TierFirstInstance}, // malformed
	}

	report := Evaluate(records, 0.5)
	assert.True(t, report.Passed)
	assert.Equal(t, 3, report.TotalRecords)
	assert.Equal(t, 1, report.Malformed)
	assert.InDelta(t, 1.0/3.0, report.Ratio, 1e-9)
	assert.Equal(t, map[string]int{"missing raw number": 1}, report.Reasons)
	assert.Equal(t, 0, GetExitCode(report, false))
}

func TestEvaluateFailOnRatio(t *testing.T) {
	records := []docket.CaseRecord{
		goodRecord("0001234-56.2020.5.02.0001"),
		{RawNumber: "", Tier: docket.TierFirstInstance},
		{RawNumber: "0005555-22.2018.5.09.0101", Tier: docket.TierUnknown},
	}

	report := Evaluate(records, 0.02)
	assert.False(t, report.Passed)
	assert.Equal(t, 2, report.Malformed)
	assert.Equal(t, map[string]int{"missing raw number": 1, "unknown tier": 1}, report.Reasons)
	assert.Equal(t, 2, GetExitCode(report, false))
}

func TestEvaluateRatioBoundary(t *testing.T) {
	// Exactly at the threshold still passes
	records := make([]docket.CaseRecord, 0, 50)
	for i := 0; i < 49; i++ {
		records = append(records, goodRecord("0001234-56.2020.5.02.0001"))
	}
	records = append(records, docket.CaseRecord{RawNumber: "", Tier: docket.TierFirstInstance})

	report := Evaluate(records, 0.02)
	assert.InDelta(t, 0.02, report.Ratio, 1e-9)
	assert.True(t, report.Passed)
}

func TestEvaluateEmptyBatch(t *testing.T) {
	report := Evaluate(nil, 0.02)
	assert.False(t, report.Passed)
	assert.Equal(t, 0, report.TotalRecords)
	assert.Contains(t, report.Summary(), "no records parsed")
	assert.Equal(t, 2, GetExitCode(report, false))
}

func TestSummary(t *testing.T) {
	records := []docket.CaseRecord{
		goodRecord("0001234-56.2020.5.02.0001"),
		{RawNumber: "", Tier: docket.TierFirstInstance},
		{RawNumber: "", Tier: docket.TierFirstInstance},
		{RawNumber: "0005555-22.2018.5.09.0101", Tier: docket.TierUnknown},
	}

	failed := Evaluate(records, 0.02).Summary()
	assert.Contains(t, failed, "Gate: FAIL (3 of 4 records malformed, ratio 0.750 > 0.020)")
	assert.Contains(t, failed, "missing raw number: 2")
	assert.Contains(t, failed, "unknown tier: 1")

	passed := Evaluate(records[:1], 0.02).Summary()
	assert.Contains(t, passed, "Gate: PASS (1 records, 0 malformed")
}

func TestGetExitCodeSystemError(t *testing.T) {
	report := Evaluate([]docket.CaseRecord{goodRecord("x")}, 0.5)
	require.True(t, report.Passed)
	assert.Equal(t, 2, GetExitCode(report, true))
	assert.Equal(t, 2, GetExitCode(nil, false))
}

func TestDetectEnvironment(t *testing.T) {
	clearCIEnv(t)
	assert.False(t, NewDetector().IsCIEnvironment())

	t.Setenv("GITLAB_CI", "true")
	detector := NewDetector()
	assert.True(t, detector.IsCIEnvironment())
	assert.True(t, detector.GetOptimizedConfig().QuietMode)
	assert.True(t, detector.GetOptimizedConfig().NoColor)
}

func TestDetectorExplicitFlag(t *testing.T) {
	clearCIEnv(t)
	detector := NewDetectorWithFlag(true)
	assert.True(t, detector.IsCIEnvironment())
	assert.Equal(t, DefaultMaxMalformedRatio, detector.GetOptimizedConfig().MaxMalformedRatio)
}

func TestRatioEnvOverride(t *testing.T) {
	clearCIEnv(t)

	t.Setenv("DOCKET_GATE_MAX_RATIO", "0.1")
	assert.InDelta(t, 0.1, NewDetector().GetOptimizedConfig().MaxMalformedRatio, 1e-9)

	// Out-of-range and garbage values keep the default
	t.Setenv("DOCKET_GATE_MAX_RATIO", "1.5")
	assert.Equal(t, DefaultMaxMalformedRatio, NewDetector().GetOptimizedConfig().MaxMalformedRatio)

	t.Setenv("DOCKET_GATE_MAX_RATIO", "lots")
	assert.Equal(t, DefaultMaxMalformedRatio, NewDetector().GetOptimizedConfig().MaxMalformedRatio)
}
