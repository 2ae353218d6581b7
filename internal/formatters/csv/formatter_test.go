// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"strings"
	"testing"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvRun() *docket.Run {
	return &docket.Run{
		ID: "csv-test-run",
		Cases: []docket.ReconciledCase{
			{
				Chain: docket.CaseChain{
					ID: "chain-00001",
					Records: []docket.CaseRecord{
						{
							RawNumber: "0001234-56.2020.5.02.0001",
							Tier:      docket.TierFirstInstance,
							Court:     "TRT-2",
							Movements: []docket.MovementEvent{{Code: 219}, {Code: 190}},
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
	}
}

func TestFormatHeaderAndRows(t *testing.T) {
	output, err := NewFormatter().Format(csvRun(), formatters.FormatterOptions{})
	require.NoError(t, err)

	lines := strings.Split(output, "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "Chain ID,Case Number,Tiers,Courts,Favorable,Confidence,Status,Appellants,Link Methods", lines[0])
	assert.Equal(t, "chain-00001,0001234-56.2020.5.02.0001,FIRST_INSTANCE>APPELLATE,TRT-2,YES,HIGH,upheld,EMPLOYER,exact", lines[1])
}

func TestResidualRow(t *testing.T) {
	output, err := NewFormatter().Format(csvRun(), formatters.FormatterOptions{})
	require.NoError(t, err)

	lines := strings.Split(output, "\n")
	assert.Equal(t, ",0005555-22.2018.5.09.0101,SUPERIOR,TST,,RESIDUAL,no candidate above threshold,,", lines[2])
}

func TestVerboseAddsRecordsColumn(t *testing.T) {
	output, err := NewFormatter().Format(csvRun(), formatters.FormatterOptions{Verbose: true})
	require.NoError(t, err)

	lines := strings.Split(output, "\n")
	assert.True(t, strings.HasSuffix(lines[0], ",Records"))
	assert.Contains(t, lines[1], "0001234-56.2020.5.02.0001@FIRST_INSTANCE (2 movements)")
	assert.Contains(t, lines[1], "0001234-56.2020.5.02.0001@APPELLATE (1 movements)")
}

func TestEscapingAndFormulaInjection(t *testing.T) {
	run := csvRun()
	run.Cases[0].Chain.Records[0].Court = "=SUM(A1:A9)"
	run.Residuals[0].Reason = "ambiguous, two candidates tied"

	output, err := NewFormatter().Format(run, formatters.FormatterOptions{})
	require.NoError(t, err)

	// Formula characters are neutralized with a leading quote
	assert.Contains(t, output, "'=SUM(A1:A9)")
	// Fields containing commas are quoted
	assert.Contains(t, output, `"ambiguous, two candidates tied"`)
}

func TestFormatEmptyRun(t *testing.T) {
	output, err := NewFormatter().Format(&docket.Run{}, formatters.FormatterOptions{})
	require.NoError(t, err)

	lines := strings.Split(output, "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Chain ID")
}
