// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"testing"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFieldNamesMatchJSON(t *testing.T) {
	run := &docket.Run{
		ID:           "yaml-run",
		RulesVersion: "2024.1",
		DurationMS:   120,
		Cases: []docket.ReconciledCase{
			{
				Chain: docket.CaseChain{
					ID: "chain-00001",
					Records: []docket.CaseRecord{
						{RawNumber: "0001234-56.2020.5.02.0001", Tier: docket.TierAppellate, Court: "TRT-2"},
					},
					Links: []docket.LinkInfo{{Method: docket.LinkFallback, Score: 0.91}},
				},
				Outcome: docket.ResolvedOutcome{
					FinalFavorable: docket.FavorableNo,
					Confidence:     docket.ConfidenceMedium,
					Status:         docket.StatusHeuristic,
				},
			},
		},
		Stats: docket.Stats{TotalRecords: 1, Chains: 1},
	}

	output, err := NewFormatter().Format(run, formatters.FormatterOptions{})
	require.NoError(t, err)

	// Field names mirror the JSON structure. Number-like strings come
	// out quoted.
	assert.Contains(t, output, `rules_version: "2024.1"`)
	assert.Contains(t, output, "duration_ms: 120")
	assert.Contains(t, output, "raw_number: 0001234-56.2020.5.02.0001")

	// Enums serialize as their labels, not integers. YES and NO are
	// quoted because YAML 1.1 parsers would read them as booleans.
	assert.Contains(t, output, `final_favorable: "NO"`)
	assert.Contains(t, output, "tier: APPELLATE")
	assert.Contains(t, output, "method: fallback")
	assert.Contains(t, output, "confidence: MEDIUM")
	assert.Contains(t, output, "score: 0.91")
}

func TestFormatterMetadata(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "yaml", f.Name())
	assert.Equal(t, ".yaml", f.FileExtension())
}
