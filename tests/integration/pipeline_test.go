// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package integration drives the reconciliation pipeline end to end,
// in process: batch files on disk through ingest expansion, the worker
// pool, the engine, the archive, and the formatters. These tests
// exercise the same wiring the CLI performs, without spawning it.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docket-scan/internal/docket"
	"docket-scan/internal/engine"
	"docket-scan/internal/formatters"
	"docket-scan/internal/gate"
	"docket-scan/internal/ingest"
	"docket-scan/internal/mask"
	"docket-scan/internal/observability"
	"docket-scan/internal/overrides"
	"docket-scan/internal/parallel"
	"docket-scan/internal/store"

	_ "docket-scan/internal/formatters/json"
	_ "docket-scan/internal/formatters/text"
)

// Case numbers of one lawsuit filed at all three tiers. The trailing
// court and origin segments differ per tier, the linkage segments do
// not, so the exact pass joins them.
const (
	firstInstanceNumber = "00018765420215020001"
	appellateNumber     = "00018765420215020777"
	superiorNumber      = "00018765420215020888"
	loneNumber          = "00099988820235030001"
)

// registryBatch is a DataJud-shaped export: a full three-tier lawsuit
// (claim granted, appeal granted, superior appeal denied) plus one
// record with no grade, which must be counted malformed and skipped.
const registryBatch = `[
  {
    "numeroProcesso": "00018765420215020001",
    "grau": "G1",
    "tribunal": "TRT-2",
    "dataAjuizamento": "2021-02-10T00:00:00.000Z",
    "assuntos": [{"codigo": 2546, "nome": "Horas Extras"}],
    "movimentos": [
      {"codigo": 26, "dataHora": "2021-02-10T09:00:00"},
      {"codigo": 219, "dataHora": "2021-11-03T14:30:00"}
    ]
  },
  {
    "numeroProcesso": "00018765420215020777",
    "grau": "G2",
    "tribunal": "TRT-2",
    "dataAjuizamento": "2022-01-15",
    "movimentos": [{"codigo": 237, "dataHora": "2022-06-20T10:00:00"}]
  },
  {
    "numeroProcesso": "00018765420215020888",
    "grau": "GS",
    "tribunal": "TST",
    "dataAjuizamento": "2022-09-01",
    "movimentos": [{"codigo": 242, "dataHora": "2023-03-12T11:00:00"}]
  },
  {
    "numeroProcesso": "0001999",
    "tribunal": "TRT-2",
    "movimentos": [{"codigo": 219, "dataHora": "2021-05-05T08:00:00"}]
  }
]`

// courtExportBatch is a per-court CSV export holding a single
// first-instance denial with no counterpart at any other tier.
const courtExportBatch = `numero_processo,grau,tribunal,data_ajuizamento,movimentos,assuntos
00099988820235030001,G1,TRT-3,10/01/2023,220@2023-08-15,9985:Justa Causa
`

// writeBatchDir lays out a mixed-format batch directory the way an
// operator would stage one before a run.
func writeBatchDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"registry.json":     registryBatch,
		"court_export.csv":  courtExportBatch,
		"prefetch_notes.md": "not a batch file, no reader claims it\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func silentObserver() *observability.StandardObserver {
	return observability.NewStandardObserver(observability.ObservabilityMetrics, io.Discard)
}

// ingestBatch expands and reads a batch directory through the same
// manager plus worker pool arrangement the CLI builds.
func ingestBatch(t *testing.T, dir string) ([]docket.CaseRecord, *parallel.ProcessingStats) {
	t.Helper()
	observer := silentObserver()

	manager := ingest.NewDefaultManager()
	manager.SetObserver(observer)

	paths, err := manager.Expand(context.Background(), []string{dir}, false, 4)
	require.NoError(t, err)

	processor := parallel.NewParallelProcessor(manager, observer)
	records, stats, err := processor.ProcessPaths(paths, &parallel.JobConfig{}, nil)
	require.NoError(t, err)
	return records, stats
}

func TestPipeline_BatchDirectoryToRun(t *testing.T) {
	dir := writeBatchDir(t)
	observer := silentObserver()

	manager := ingest.NewDefaultManager()
	manager.SetObserver(observer)

	paths, err := manager.Expand(context.Background(), []string{dir}, false, 4)
	require.NoError(t, err)
	require.Len(t, paths, 2, "only reader-claimed files belong in the batch")
	assert.Equal(t, "court_export.csv", filepath.Base(paths[0]))
	assert.Equal(t, "registry.json", filepath.Base(paths[1]))

	processor := parallel.NewParallelProcessor(manager, observer)
	progressCalls := 0
	records, stats, err := processor.ProcessPaths(paths, &parallel.JobConfig{}, func(completed, total int, currentPath string) {
		progressCalls++
		assert.LessOrEqual(t, completed, total)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalInputs)
	assert.Equal(t, 2, stats.ProcessedInputs)
	assert.Equal(t, 0, stats.FailedInputs)
	assert.Equal(t, 5, stats.TotalRecords)
	assert.Equal(t, 2, progressCalls)

	// Records follow input-path order: the CSV export sorts ahead of
	// the registry file.
	require.Len(t, records, 5)
	assert.Equal(t, loneNumber, records[0].RawNumber)

	run, err := engine.Reconcile(engine.ReconcileConfig{
		Records:  records,
		Workers:  2,
		Observer: observer,
	})
	require.NoError(t, err)

	s := run.Stats
	assert.Equal(t, 5, s.TotalRecords)
	assert.Equal(t, 1, s.Malformed)
	assert.Equal(t, 2, s.Chains)
	assert.Equal(t, 3, s.Grouped)
	assert.Equal(t, 1, s.Residuals)
	assert.Equal(t, 2, s.ByLinkMethod["exact"])
	assert.Equal(t, 1, s.ByConfidence["HIGH"])
	assert.Equal(t, 1, s.ByConfidence["LOW"])
	assert.Equal(t, 2, s.FavorableNo)
	assert.Equal(t, 0, s.FavorableYes)
	assert.Equal(t, 0, s.ReformOnly)

	full := findChain(t, run, firstInstanceNumber)
	require.Len(t, full.Chain.Records, 3)
	assert.Equal(t, docket.TierFirstInstance, full.Chain.Records[0].Tier)
	assert.Equal(t, docket.TierAppellate, full.Chain.Records[1].Tier)
	assert.Equal(t, docket.TierSuperior, full.Chain.Records[2].Tier)
	for _, link := range full.Chain.Links {
		assert.Equal(t, docket.LinkExact, link.Method)
	}

	// Worker won below, employer's appeal was granted, worker's
	// superior appeal was denied: the denial stands.
	assert.Equal(t, docket.FavorableNo, full.Outcome.FinalFavorable)
	assert.Equal(t, docket.StatusUpheldDenial, full.Outcome.Status)
	assert.Equal(t, docket.ConfidenceHigh, full.Outcome.Confidence)
	require.Len(t, full.Outcome.WhoAppealed, 2)
	assert.Equal(t, docket.PartyEmployer, full.Outcome.WhoAppealed[0].Appellant)
	assert.Equal(t, docket.PartyEmployee, full.Outcome.WhoAppealed[1].Appellant)

	lone := findChain(t, run, loneNumber)
	require.Len(t, lone.Chain.Records, 1)
	assert.Equal(t, docket.FavorableNo, lone.Outcome.FinalFavorable)
	assert.Equal(t, docket.ConfidenceLow, lone.Outcome.Confidence)

	require.Len(t, run.Residuals, 1)
	assert.Equal(t, loneNumber, run.Residuals[0].Record.RawNumber)
}

func TestPipeline_RunArchiveRoundTrip(t *testing.T) {
	dir := writeBatchDir(t)
	records, _ := ingestBatch(t, dir)

	run, err := engine.Reconcile(engine.ReconcileConfig{
		Records:  records,
		Workers:  1,
		Observer: silentObserver(),
	})
	require.NoError(t, err)

	// The archive path sits under a directory that does not exist yet;
	// Open must create it.
	archive, err := store.Open(filepath.Join(t.TempDir(), "archive", "runs.db"))
	require.NoError(t, err)
	defer archive.Close()

	ctx := context.Background()
	require.NoError(t, archive.SaveRun(ctx, run))

	loaded, err := archive.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)
	assert.Equal(t, run.RulesVersion, loaded.RulesVersion)
	assert.Equal(t, run.Stats, loaded.Stats)
	assert.Len(t, loaded.Cases, len(run.Cases))
	assert.Len(t, loaded.Residuals, len(run.Residuals))

	reloaded := findChain(t, loaded, firstInstanceNumber)
	assert.Equal(t, docket.StatusUpheldDenial, reloaded.Outcome.Status)
	require.Len(t, reloaded.Chain.Records, 3)

	summaries, err := archive.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, run.ID, summaries[0].ID)
	assert.Equal(t, run.Stats.Chains, summaries[0].Stats.Chains)

	latest, err := archive.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest)

	high, err := archive.Chains(ctx, run.ID, store.ChainFilter{Confidence: "HIGH"})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, firstInstanceNumber, high[0].Chain.Records[0].RawNumber)
}

func TestPipeline_ExportFormats(t *testing.T) {
	dir := writeBatchDir(t)
	records, _ := ingestBatch(t, dir)

	run, err := engine.Reconcile(engine.ReconcileConfig{
		Records:  records,
		Workers:  1,
		Observer: silentObserver(),
	})
	require.NoError(t, err)

	jsonOut, err := formatters.Export("json", run, formatters.FormatterOptions{})
	require.NoError(t, err)
	var decoded docket.Run
	require.NoError(t, json.Unmarshal([]byte(jsonOut), &decoded))
	assert.Equal(t, run.ID, decoded.ID)
	assert.Equal(t, run.Stats.Chains, decoded.Stats.Chains)

	textOut, err := formatters.Export("text", run, formatters.FormatterOptions{NoColor: true})
	require.NoError(t, err)
	assert.Contains(t, textOut, firstInstanceNumber)
	assert.Contains(t, textOut, "FIRST_INSTANCE>APPELLATE>SUPERIOR")
	assert.Equal(t, 2, strings.Count(textOut, loneNumber), "chain row plus residual listing")

	// Confidence filtering drops the low-confidence lone chain from the
	// table; the residual listing is quality reporting and stays.
	filtered, err := formatters.Export("text", run, formatters.FormatterOptions{
		NoColor:    true,
		Confidence: map[string]bool{"high": true},
	})
	require.NoError(t, err)
	assert.Contains(t, filtered, firstInstanceNumber)
	assert.Equal(t, 1, strings.Count(filtered, loneNumber))

	// A masked export never shows a real case number.
	strategy, ok := mask.ParseStrategy("simple")
	require.True(t, ok)
	masked, err := formatters.Export("text", run, formatters.FormatterOptions{
		NoColor: true,
		Mask:    mask.New(strategy).Mask,
	})
	require.NoError(t, err)
	assert.NotContains(t, masked, firstInstanceNumber)
	assert.NotContains(t, masked, loneNumber)
	assert.Contains(t, masked, "[CASE-NUMBER-MASKED]")
}

func TestPipeline_BlockOverrideSplitsChain(t *testing.T) {
	dir := writeBatchDir(t)
	records, _ := ingestBatch(t, dir)

	rulesPath := filepath.Join(t.TempDir(), "overrides.yaml")
	manager := overrides.NewManager(rulesPath)
	require.NoError(t, manager.Add(overrides.ActionBlockLink, firstInstanceNumber, superiorNumber,
		"registry reused the linkage segments for an unrelated filing", "qa", nil))

	// The rule persists for the next run.
	_, err := os.Stat(rulesPath)
	require.NoError(t, err)
	reloaded := overrides.NewManager(rulesPath)
	require.Len(t, reloaded.Active(), 1)

	run, err := engine.Reconcile(engine.ReconcileConfig{
		Records:   records,
		Workers:   1,
		Overrides: reloaded,
		Observer:  silentObserver(),
	})
	require.NoError(t, err)

	// The superior record is expelled from the exact group and, with
	// the appellate record already claimed, ends up residual.
	blocked := findChain(t, run, firstInstanceNumber)
	require.Len(t, blocked.Chain.Records, 2)
	assert.Equal(t, docket.TierAppellate, blocked.Chain.Records[1].Tier)

	assert.Equal(t, 3, run.Stats.Chains)
	assert.Equal(t, 2, run.Stats.Residuals)

	residualNumbers := make([]string, 0, len(run.Residuals))
	for _, r := range run.Residuals {
		residualNumbers = append(residualNumbers, r.Record.RawNumber)
	}
	assert.Contains(t, residualNumbers, superiorNumber)
}

func TestPipeline_GateOnIngestedBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(registryBatch), 0o600))

	manager := ingest.NewDefaultManager()
	records, err := manager.ProcessPath(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 4)

	// One of four records has no grade: ratio 0.25 blocks a pipeline
	// running at the default threshold.
	report := gate.Evaluate(records, gate.DefaultMaxMalformedRatio)
	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.Malformed)
	assert.Equal(t, 2, gate.GetExitCode(report, false))

	summary := report.Summary()
	assert.True(t, strings.HasPrefix(summary, "Gate: FAIL"), "summary = %q", summary)
	assert.Contains(t, summary, "unknown tier: 1")

	relaxed := gate.Evaluate(records, 0.5)
	assert.True(t, relaxed.Passed)
	assert.Equal(t, 0, gate.GetExitCode(relaxed, false))
	assert.True(t, strings.HasPrefix(relaxed.Summary(), "Gate: PASS"))

	// Ingest trouble blocks the pipeline even when the ratio passes.
	assert.Equal(t, 2, gate.GetExitCode(relaxed, true))
}

func TestPipeline_FailedInputCountedNotFatal(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(good, []byte(registryBatch), 0o600))
	missing := filepath.Join(dir, "vanished.json")

	observer := silentObserver()
	manager := ingest.NewDefaultManager()
	manager.SetObserver(observer)

	processor := parallel.NewParallelProcessorWithWorkers(2, manager, observer)
	records, stats, err := processor.ProcessPaths([]string{good, missing}, &parallel.JobConfig{}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ProcessedInputs)
	assert.Equal(t, 1, stats.FailedInputs)
	assert.Len(t, records, 4)

	run, err := engine.Reconcile(engine.ReconcileConfig{
		Records:  records,
		Workers:  1,
		Observer: observer,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Stats.Chains)
	assert.Equal(t, 1, run.Stats.Malformed)
}

func findChain(t *testing.T, run *docket.Run, number string) *docket.ReconciledCase {
	t.Helper()
	for i := range run.Cases {
		if run.Cases[i].Chain.Records[0].RawNumber == number {
			return &run.Cases[i]
		}
	}
	t.Fatalf("no chain headed by %s", number)
	return nil
}
