// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"testing"
	"time"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportRun() *docket.Run {
	return &docket.Run{
		ID:           "9d1a7b3e-5c2f-4e8d-b690-7f41c0a2d977",
		RulesVersion: "2024.1",
		StartedAt:    time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		DurationMS:   820,
		Cases: []docket.ReconciledCase{
			{
				Chain: docket.CaseChain{
					ID: "chain-00001",
					Records: []docket.CaseRecord{
						{
							RawNumber: "0001234-56.2020.5.02.0001",
							Tier:      docket.TierFirstInstance,
							Court:     "TRT-2",
							FiledDate: time.Date(2020, 5, 4, 0, 0, 0, 0, time.UTC),
							Movements: []docket.MovementEvent{{Code: 219}},
						},
						{
							RawNumber: "0001234-56.2020.5.02.0001",
							Tier:      docket.TierAppellate,
							Court:     "TRT-2",
							Movements: []docket.MovementEvent{{Code: 237}},
						},
					},
					Links: []docket.LinkInfo{
						{Method: docket.LinkExact},
						{Method: docket.LinkExact},
					},
				},
				Outcome: docket.ResolvedOutcome{
					FinalFavorable: docket.FavorableYes,
					Confidence:     docket.ConfidenceHigh,
					Status:         docket.StatusUpheld,
					WhoAppealed: []docket.AppealStep{
						{FromTier: docket.TierFirstInstance, ToTier: docket.TierAppellate, Appellant: docket.PartyEmployer, Favorable: docket.FavorableYes},
					},
				},
			},
		},
		Residuals: []docket.Residual{
			{
				Record: docket.CaseRecord{RawNumber: "0005555-22.2018.5.09.0101", Tier: docket.TierSuperior, Court: "TST"},
				Reason: "no candidate above threshold",
			},
		},
		Stats: docket.Stats{
			TotalRecords: 4,
			Malformed:    0,
			Grouped:      2,
			Chains:       1,
			Residuals:    1,
			ByConfidence: map[string]int{"HIGH": 1},
			ByLinkMethod: map[string]int{"exact": 2, "none": 1},
			FavorableYes: 1,
		},
	}
}

func TestFormatSections(t *testing.T) {
	output, err := NewFormatter().Format(reportRun(), formatters.FormatterOptions{})
	require.NoError(t, err)

	assert.Contains(t, output, "# Reconciliation Run")
	assert.Contains(t, output, "- **Run ID:** 9d1a7b3e-5c2f-4e8d-b690-7f41c0a2d977")
	assert.Contains(t, output, "- **Started:** 2024-03-10T09:00:00Z")
	assert.Contains(t, output, "- **Duration:** 820ms")

	assert.Contains(t, output, "## Outcomes")
	assert.Contains(t, output, "| chain-00001 | 0001234-56.2020.5.02.0001 | FIRST_INSTANCE>APPELLATE | TRT-2 | YES | HIGH | upheld | EMPLOYER |")

	assert.Contains(t, output, "## Completeness")
	assert.Contains(t, output, "| Total records | 4 |")
	assert.Contains(t, output, "| Confidence HIGH | 1 |")
	assert.Contains(t, output, "| Linked by exact | 2 |")
	assert.Contains(t, output, "| Linked by none | 1 |")
	assert.Contains(t, output, "| Employee favorable | 1 |")

	assert.Contains(t, output, "## Residuals")
	assert.Contains(t, output, "| 0005555-22.2018.5.09.0101 | SUPERIOR | TST | no candidate above threshold |")
}

func TestVerboseChainDetails(t *testing.T) {
	output, err := NewFormatter().Format(reportRun(), formatters.FormatterOptions{Verbose: true})
	require.NoError(t, err)

	assert.Contains(t, output, "## Chain Details")
	assert.Contains(t, output, "### chain-00001")
	assert.Contains(t, output, "- **FIRST_INSTANCE** `0001234-56.2020.5.02.0001` at TRT-2, filed 2020-05-04 (linked by exact)")
	assert.Contains(t, output, "  - movements: 219")
	assert.Contains(t, output, "- appeal FIRST_INSTANCE to APPELLATE by EMPLOYER: favorable YES")
	assert.Contains(t, output, "- outcome: **YES** (HIGH confidence), upheld")
}

func TestEmptyRunSections(t *testing.T) {
	output, err := NewFormatter().Format(&docket.Run{ID: "empty"}, formatters.FormatterOptions{})
	require.NoError(t, err)

	assert.Contains(t, output, "No case chains reconciled.")
	assert.Contains(t, output, "## Residuals\n\nNone.")
}

func TestTableCellEscaping(t *testing.T) {
	run := reportRun()
	run.Cases[0].Chain.Records[0].Court = "TRT|2"
	run.Cases[0].Chain.Records[1].Court = "TRT|2"

	output, err := NewFormatter().Format(run, formatters.FormatterOptions{})
	require.NoError(t, err)

	assert.Contains(t, output, `TRT\|2`)
}
