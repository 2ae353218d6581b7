// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package engine runs the reconciliation pipeline over one record
// batch: malformed filtering, chain grouping, and per-chain outcome
// resolution, assembled into a Run with its counters.
package engine

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"docket-scan/internal/config"
	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
	"docket-scan/internal/overrides"

	"github.com/google/uuid"
)

// Chains above this count fan resolution out across workers
const parallelResolveThreshold = 64

// ReconcileConfig holds the inputs of one reconciliation run.
type ReconcileConfig struct {
	Records []docket.CaseRecord
	Debug   bool
	// Workers sets the fan-out width; 0 means one per CPU, capped at 8
	Workers int
	Config  *config.Config
	// Overrides, when non-nil, is consulted by the grouper before
	// exact, fallback and residual matching
	Overrides *overrides.Manager
	// Observer, when non-nil, replaces the engine-built one
	Observer *observability.StandardObserver
}

// Reconcile performs the core reconciliation shared by the CLI and the
// web server. Malformed records are counted and skipped; the fatal
// conditions are a nil batch and an unusable rule set. An empty batch
// is valid and yields an empty run.
func Reconcile(rc ReconcileConfig) (*docket.Run, error) {
	started := time.Now()

	if rc.Records == nil {
		return nil, fmt.Errorf("reconcile: nil record batch")
	}

	observer := rc.Observer
	if observer == nil {
		observer = observability.NewStandardObserver(observability.ObservabilityMetrics, os.Stderr)
		if rc.Debug {
			debugObs := observability.NewDebugObserver(os.Stderr)
			observer = debugObs.StandardObserver
			observer.DebugObserver = debugObs
		}
	}

	cfg := rc.Config
	if cfg == nil {
		cfg, _ = config.LoadConfig("")
	}

	group, resolve, err := BuildComponents(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("engine construction failed: %w", err)
	}

	workers := rc.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 8 {
			workers = 8
		}
	}

	group.SetObserver(observer)
	group.SetWorkers(workers)
	if rc.Overrides != nil {
		group.SetOverrides(rc.Overrides)
	}
	resolve.SetObserver(observer)

	if observer.DebugObserver != nil {
		for _, component := range []observability.Observable{group, resolve} {
			observer.DebugObserver.LogDetail(component.GetComponentName(),
				fmt.Sprintf("ready (rules %s)", cfg.Rules.Version))
		}
	}

	finishTiming := observer.StartTiming("engine", "reconcile", "batch")

	clean, malformed := filterMalformed(rc.Records, observer, rc.Debug)
	chains, residuals := group.BuildChains(clean)
	cases := resolveChains(chains, resolve, workers)

	run := &docket.Run{
		ID:           uuid.New().String(),
		RulesVersion: cfg.Rules.Version,
		StartedAt:    started,
		DurationMS:   time.Since(started).Milliseconds(),
		Cases:        cases,
		Residuals:    residuals,
		Stats:        buildStats(rc.Records, malformed, cases, residuals),
	}

	finishTiming(true, map[string]interface{}{
		"total_records": run.Stats.TotalRecords,
		"malformed":     run.Stats.Malformed,
		"chains":        run.Stats.Chains,
		"residuals":     run.Stats.Residuals,
		"workers":       workers,
	})

	return run, nil
}

// filterMalformed drops unusable records from the batch, counting each
// one. Never fatal: a batch with holes still reconciles.
func filterMalformed(records []docket.CaseRecord, observer *observability.StandardObserver, debug bool) ([]docket.CaseRecord, int) {
	clean := make([]docket.CaseRecord, 0, len(records))
	malformed := 0
	for i := range records {
		if bad, reason := records[i].Malformed(); bad {
			malformed++
			if debug && observer != nil {
				observer.LogOperation(observability.StandardObservabilityData{
					Component: "engine",
					Operation: "malformed_record",
					Source:    records[i].RawNumber,
					Success:   false,
					Error:     reason,
				})
			}
			continue
		}
		clean = append(clean, records[i])
	}
	return clean, malformed
}

// resolveChains resolves every chain, fanning out across workers for
// large batches. Each index is written by exactly one goroutine.
func resolveChains(chains []docket.CaseChain, resolve Resolver, workers int) []docket.ReconciledCase {
	cases := make([]docket.ReconciledCase, len(chains))

	assign := func(i int) {
		cases[i] = docket.ReconciledCase{
			Chain:   chains[i],
			Outcome: resolve.Resolve(&chains[i]),
		}
	}

	if workers <= 1 || len(chains) < parallelResolveThreshold {
		for i := range chains {
			assign(i)
		}
		return cases
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(chains); i += workers {
				assign(i)
			}
		}(w)
	}
	wg.Wait()
	return cases
}

// Resolver is the per-chain resolution stage
type Resolver interface {
	Resolve(chain *docket.CaseChain) docket.ResolvedOutcome
}

// buildStats assembles the batch counters of one run
func buildStats(input []docket.CaseRecord, malformed int, cases []docket.ReconciledCase, residuals []docket.Residual) docket.Stats {
	stats := docket.Stats{
		TotalRecords: len(input),
		Malformed:    malformed,
		Chains:       len(cases),
		Residuals:    len(residuals),
		ByConfidence: make(map[string]int),
		ByLinkMethod: make(map[string]int),
	}

	for i := range cases {
		c := &cases[i]
		if len(c.Chain.Records) >= 2 {
			stats.Grouped += len(c.Chain.Records)
		}
		for _, link := range c.Chain.Links {
			stats.ByLinkMethod[link.Method.String()]++
		}
		stats.ByConfidence[c.Outcome.Confidence.String()]++
		switch {
		case c.Outcome.Status == docket.StatusReformedUnconfirmed:
			stats.ReformOnly++
		case c.Outcome.FinalFavorable == docket.FavorableYes:
			stats.FavorableYes++
		case c.Outcome.FinalFavorable == docket.FavorableNo:
			stats.FavorableNo++
		default:
			stats.FavorableOther++
		}
	}
	return stats
}
