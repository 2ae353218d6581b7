// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	"strings"
	"testing"
	"time"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "docket-scan/internal/formatters/csv"
	_ "docket-scan/internal/formatters/json"
	_ "docket-scan/internal/formatters/markdown"
	_ "docket-scan/internal/formatters/text"
	_ "docket-scan/internal/formatters/yaml"
)

func registryRun() *docket.Run {
	return &docket.Run{
		ID:           "f2f9c6df-6f0a-4aa5-9f28-1a99e6a2a001",
		RulesVersion: "2024.1",
		StartedAt:    time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		DurationMS:   240,
		Cases: []docket.ReconciledCase{
			{
				Chain: docket.CaseChain{
					ID: "chain-00001",
					Records: []docket.CaseRecord{
						{
							RawNumber: "0001234-56.2020.5.02.0001",
							Tier:      docket.TierFirstInstance,
							Court:     "TRT-2",
							Movements: []docket.MovementEvent{{Code: 219, Timestamp: "2020-06-01T12:00:00"}},
						},
					},
					Links: []docket.LinkInfo{{Method: docket.LinkNone}},
				},
				Outcome: docket.ResolvedOutcome{
					FinalFavorable: docket.FavorableYes,
					Confidence:     docket.ConfidenceLow,
					Status:         docket.StatusResolved,
				},
			},
		},
		Stats: docket.Stats{TotalRecords: 1, Chains: 1},
	}
}

func TestDefaultRegistryHasAllFormats(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"csv", "json", "markdown", "text", "yaml"},
		formatters.List())
}

func TestExportUnknownFormat(t *testing.T) {
	_, err := formatters.Export("xml", registryRun(), formatters.FormatterOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format 'xml'")
	assert.Contains(t, err.Error(), "Available formats:")
}

func TestExportForWeb(t *testing.T) {
	content, mimeType, filename, err := formatters.ExportForWeb("csv", registryRun(), formatters.FormatterOptions{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", mimeType)
	assert.Equal(t, "docket-scan-results.csv", filename)
	assert.Contains(t, content, "chain-00001")
}

func TestExportAppliesMask(t *testing.T) {
	mask := func(string) string { return "***masked***" }
	for _, format := range formatters.List() {
		content, err := formatters.Export(format, registryRun(), formatters.FormatterOptions{
			NoColor: true,
			Mask:    mask,
		})
		require.NoError(t, err, "format %s", format)
		assert.NotContains(t, content, "0001234-56.2020.5.02.0001", "format %s leaked the case number", format)
		assert.Contains(t, content, "***masked***", "format %s", format)
	}
}

func TestGetFormatInfoMimeTypes(t *testing.T) {
	expected := map[string]string{
		"json":     "application/json",
		"csv":      "text/csv",
		"yaml":     "application/x-yaml",
		"markdown": "text/markdown",
		"text":     "text/plain",
	}
	for name, mimeType := range expected {
		info := formatters.GetFormatInfo(name)
		assert.Equal(t, name, info.Name)
		assert.Equal(t, mimeType, info.MimeType)
		assert.True(t, info.WebSupported)
		assert.True(t, strings.HasPrefix(info.Extension, "."), "extension for %s", name)
	}
}

func TestGetFormatInfoUnknown(t *testing.T) {
	assert.Equal(t, formatters.FormatInfo{}, formatters.GetFormatInfo("bogus"))
}

func TestGetSupportedFormats(t *testing.T) {
	formats := formatters.GetSupportedFormats()
	require.Len(t, formats, 5)
	for _, info := range formats {
		assert.NotEmpty(t, info.Description)
		assert.NotEmpty(t, info.MimeType)
	}
}

func TestNewRegistryIsIndependent(t *testing.T) {
	registry := formatters.NewRegistry()
	_, exists := registry.Get("json")
	assert.False(t, exists)
	assert.Empty(t, registry.List())
}
