// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package grouper reconstructs multi-tier case chains from flat record
// batches. Linking runs in fixed passes: exact key matching over the
// normalizer's candidate keys in priority order, operator force-links,
// then similarity fallback for first-instance records and a residual
// pass for appellate records. Records join at most one chain.
package grouper

import (
	"fmt"
	"sync"
	"time"

	"docket-scan/internal/cnj"
	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
	"docket-scan/internal/overrides"
	"docket-scan/internal/similarity"
)

// serial key computation below this batch size; the fan-out is not
// worth the goroutine setup for small batches
const parallelKeyThreshold = 256

const (
	// ReasonNoCandidate marks records that matched nothing in any pass
	ReasonNoCandidate = "no candidate above threshold"
	// ReasonSuperseded marks same-tier duplicates dropped in favor of a
	// later filing
	ReasonSuperseded = "superseded by later filing at same tier"
)

// Grouper builds case chains from a batch of records.
type Grouper struct {
	normalizer *cnj.Normalizer
	scorer     *similarity.Scorer
	overrides  *overrides.Manager
	observer   *observability.StandardObserver
	workers    int
}

// New creates a grouper with the given normalizer and scorer
func New(normalizer *cnj.Normalizer, scorer *similarity.Scorer) *Grouper {
	return &Grouper{
		normalizer: normalizer,
		scorer:     scorer,
		workers:    1,
	}
}

// SetOverrides attaches an operator override manager consulted before
// and during the similarity passes
func (g *Grouper) SetOverrides(m *overrides.Manager) {
	g.overrides = m
}

// SetObserver sets the observability component
func (g *Grouper) SetObserver(o *observability.StandardObserver) {
	g.observer = o
}

// SetWorkers sets the fan-out width for the exact-pass key computation
func (g *Grouper) SetWorkers(n int) {
	if n > 0 {
		g.workers = n
	}
}

// GetComponentName returns the component identifier
func (g *Grouper) GetComponentName() string {
	return "grouper"
}

// buildState accumulates output while the passes consume the pool
type buildState struct {
	chains    []docket.CaseChain
	residuals []docket.Residual
	nextID    int
}

func (st *buildState) newChainID() string {
	st.nextID++
	return fmt.Sprintf("chain-%05d", st.nextID)
}

// BuildChains groups records into disjoint case chains and returns the
// chains plus the residual list of records left outside any multi-tier
// chain. Given a fixed input order the output is deterministic.
func (g *Grouper) BuildChains(records []docket.CaseRecord) ([]docket.CaseChain, []docket.Residual) {
	done := g.startTiming("build_chains", len(records))

	keys := g.computeKeys(records)
	pl := newPool(len(records))
	st := &buildState{}

	g.exactPass(records, keys, pl, st)
	g.forcePass(records, pl, st)
	g.fallbackPass(records, pl, st)
	g.residualPass(records, pl, st)
	g.singlesPass(records, pl, st)

	done(len(st.chains), len(st.residuals))
	return st.chains, st.residuals
}

// computeKeys normalizes every record's number. Each index is written
// by exactly one goroutine, so the fan-out needs no locking and the
// result does not depend on scheduling.
func (g *Grouper) computeKeys(records []docket.CaseRecord) []cnj.Keys {
	keys := make([]cnj.Keys, len(records))

	if g.workers <= 1 || len(records) < parallelKeyThreshold {
		for i := range records {
			keys[i] = g.normalizer.Normalize(records[i].RawNumber)
		}
		return keys
	}

	var wg sync.WaitGroup
	for w := 0; w < g.workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(records); i += g.workers {
				keys[i] = g.normalizer.Normalize(records[i].RawNumber)
			}
		}(w)
	}
	wg.Wait()

	return keys
}

// exactPass groups records sharing a candidate key. Strategies run in
// priority order: the primary key first, then each alternate windowing
// over whatever the earlier strategies left ungrouped.
func (g *Grouper) exactPass(records []docket.CaseRecord, keys []cnj.Keys, pl *pool, st *buildState) {
	strategies := 1
	for i := range keys {
		if n := 1 + len(keys[i].Alternates); n > strategies {
			strategies = n
		}
	}

	for s := 0; s < strategies; s++ {
		g.exactRound(records, keys, s, pl, st)
	}
}

// keyAt returns strategy s's key for record i, or "" when the record
// has no key at that priority
func keyAt(keys []cnj.Keys, i, s int) string {
	if s == 0 {
		return keys[i].Primary
	}
	if s-1 < len(keys[i].Alternates) {
		return keys[i].Alternates[s-1]
	}
	return ""
}

// exactRound runs one grouping round over the remaining pool using the
// key at priority s
func (g *Grouper) exactRound(records []docket.CaseRecord, keys []cnj.Keys, s int, pl *pool, st *buildState) {
	byKey := make(map[string][]int)
	var keyOrder []string

	for _, i := range pl.remaining() {
		key := keyAt(keys, i, s)
		if key == "" {
			continue
		}
		if _, seen := byKey[key]; !seen {
			keyOrder = append(keyOrder, key)
		}
		byKey[key] = append(byKey[key], i)
	}

	for _, key := range keyOrder {
		group := byKey[key]
		if len(group) < 2 {
			continue
		}

		accepted := g.filterBlocked(records, group)
		if !spansTiers(records, accepted) {
			continue
		}

		ordered, superseded := g.dedupeByTier(records, accepted)

		links := make([]docket.LinkInfo, len(ordered)-1)
		for l := range links {
			links[l] = docket.LinkInfo{Method: docket.LinkExact, Key: key}
		}

		st.chains = append(st.chains, docket.CaseChain{
			ID:      st.newChainID(),
			Records: ordered,
			Links:   links,
		})

		for _, i := range accepted {
			pl.take(i)
		}
		for _, i := range superseded {
			st.residuals = append(st.residuals, docket.Residual{
				Record: records[i],
				Reason: ReasonSuperseded,
			})
		}
	}
}

// filterBlocked drops group members blocked against an already accepted
// member. Members are considered in input order so the outcome is
// reproducible.
func (g *Grouper) filterBlocked(records []docket.CaseRecord, group []int) []int {
	if g.overrides == nil {
		return group
	}

	accepted := make([]int, 0, len(group))
	for _, idx := range group {
		blocked := false
		for _, a := range accepted {
			decision, rule := g.overrides.Decide(records[a].RawNumber, records[idx].RawNumber)
			if decision == overrides.DecisionBlock {
				blocked = true
				g.logOverride(rule, records[a].RawNumber, records[idx].RawNumber)
				break
			}
		}
		if !blocked {
			accepted = append(accepted, idx)
		}
	}
	return accepted
}

// forcePass joins pairs named by operator force-link rules, regardless
// of score. Runs before the similarity passes so forced pairs are not
// stolen by a higher-scoring stranger.
func (g *Grouper) forcePass(records []docket.CaseRecord, pl *pool, st *buildState) {
	if g.overrides == nil {
		return
	}

	for _, rule := range g.overrides.Active() {
		if rule.Action != overrides.ActionForceLink || len(rule.Numbers) < 2 {
			continue
		}

		wantA := g.normalizer.Digits(rule.Numbers[0])
		wantB := g.normalizer.Digits(rule.Numbers[1])

		var members []int
		for _, i := range pl.remaining() {
			d := g.normalizer.Digits(records[i].RawNumber)
			if d == wantA || d == wantB {
				members = append(members, i)
			}
		}

		if len(members) < 2 || !spansTiers(records, members) {
			continue
		}

		ordered, superseded := g.dedupeByTier(records, members)

		links := make([]docket.LinkInfo, len(ordered)-1)
		for l := range links {
			links[l] = docket.LinkInfo{Method: docket.LinkOverride}
		}

		st.chains = append(st.chains, docket.CaseChain{
			ID:      st.newChainID(),
			Records: ordered,
			Links:   links,
		})

		for _, i := range members {
			pl.take(i)
		}
		for _, i := range superseded {
			st.residuals = append(st.residuals, docket.Residual{
				Record: records[i],
				Reason: ReasonSuperseded,
			})
		}

		g.overrides.MarkSeen(rule.ID)
		g.logOverride(&rule, rule.Numbers[0], rule.Numbers[1])
	}
}

// fallbackPass links ungrouped first-instance records to the best
// scoring appellate record, then tries to extend each new chain with a
// superior-court record. Sequential: every match shrinks the pool the
// next search sees.
func (g *Grouper) fallbackPass(records []docket.CaseRecord, pl *pool, st *buildState) {
	for _, i := range pl.remaining() {
		if !pl.has(i) || records[i].Tier != docket.TierFirstInstance {
			continue
		}

		appIdx, appScore, found := g.bestCandidate(records, pl, i, docket.TierAppellate)
		if !found {
			continue
		}

		chainRecords := []docket.CaseRecord{records[i], records[appIdx]}
		links := []docket.LinkInfo{{Method: docket.LinkFallback, Score: appScore}}
		pl.take(i)
		pl.take(appIdx)

		// Extend from the attached appellate record toward the
		// superior court
		supIdx, supScore, extended := g.bestCandidate(records, pl, appIdx, docket.TierSuperior)
		if extended {
			chainRecords = append(chainRecords, records[supIdx])
			links = append(links, docket.LinkInfo{Method: docket.LinkFallback, Score: supScore})
			pl.take(supIdx)
		}

		st.chains = append(st.chains, docket.CaseChain{
			ID:      st.newChainID(),
			Records: chainRecords,
			Links:   links,
		})
	}
}

// residualPass links still ungrouped appellate records to superior
// records, covering datasets where the first-instance record is missing
// entirely
func (g *Grouper) residualPass(records []docket.CaseRecord, pl *pool, st *buildState) {
	for _, i := range pl.remaining() {
		if !pl.has(i) || records[i].Tier != docket.TierAppellate {
			continue
		}

		supIdx, score, found := g.bestCandidate(records, pl, i, docket.TierSuperior)
		if !found {
			continue
		}

		pl.take(i)
		pl.take(supIdx)

		st.chains = append(st.chains, docket.CaseChain{
			ID:      st.newChainID(),
			Records: []docket.CaseRecord{records[i], records[supIdx]},
			Links:   []docket.LinkInfo{{Method: docket.LinkResidual, Score: score}},
		})
	}
}

// singlesPass turns whatever is left into single-record chains and
// lists the same records as residuals for completeness accounting
func (g *Grouper) singlesPass(records []docket.CaseRecord, pl *pool, st *buildState) {
	for _, i := range pl.remaining() {
		st.chains = append(st.chains, docket.CaseChain{
			ID:      st.newChainID(),
			Records: []docket.CaseRecord{records[i]},
		})
		st.residuals = append(st.residuals, docket.Residual{
			Record: records[i],
			Reason: ReasonNoCandidate,
		})
		pl.take(i)
	}
}

// bestCandidate searches the pool for the best scoring record of the
// target tier. Ties on score go to the most recent filing; a tie on
// both keeps the earliest candidate in input order. Ambiguous ties are
// logged, never surfaced as errors.
func (g *Grouper) bestCandidate(records []docket.CaseRecord, pl *pool, fromIdx int, target docket.Tier) (int, float64, bool) {
	bestIdx := -1
	bestScore := 0.0
	tied := 1

	for _, j := range pl.remaining() {
		if records[j].Tier != target {
			continue
		}

		if g.overrides != nil {
			decision, rule := g.overrides.Decide(records[fromIdx].RawNumber, records[j].RawNumber)
			if decision == overrides.DecisionBlock {
				g.logOverride(rule, records[fromIdx].RawNumber, records[j].RawNumber)
				continue
			}
		}

		score := g.scorer.Score(records[fromIdx].RawNumber, records[j].RawNumber)
		if !g.scorer.Candidate(score) {
			continue
		}

		switch {
		case bestIdx == -1 || score > bestScore:
			bestIdx, bestScore, tied = j, score, 1
		case score == bestScore:
			tied++
			if laterFiled(records[j].FiledDate, records[bestIdx].FiledDate) {
				bestIdx = j
			}
		}
	}

	if bestIdx == -1 {
		return -1, 0, false
	}

	if tied > 1 && g.observer != nil {
		g.observer.LogOperation(observability.StandardObservabilityData{
			Component: g.GetComponentName(),
			Operation: "ambiguous_match",
			Source:    records[fromIdx].RawNumber,
			Success:   true,
			Metadata: map[string]interface{}{
				"candidates": tied,
				"chosen":     records[bestIdx].RawNumber,
				"score":      bestScore,
			},
		})
	}

	return bestIdx, bestScore, true
}

// dedupeByTier keeps one authoritative record per tier (the later
// filing wins) and orders the survivors by tier rank. The second return
// value lists the indices of dropped duplicates.
func (g *Grouper) dedupeByTier(records []docket.CaseRecord, members []int) ([]docket.CaseRecord, []int) {
	byTier := make(map[docket.Tier]int)
	var superseded []int

	for _, idx := range members {
		tier := records[idx].Tier
		current, exists := byTier[tier]
		if !exists {
			byTier[tier] = idx
			continue
		}
		if laterFiled(records[idx].FiledDate, records[current].FiledDate) {
			superseded = append(superseded, current)
			byTier[tier] = idx
		} else {
			superseded = append(superseded, idx)
		}
	}

	ordered := make([]docket.CaseRecord, 0, len(byTier))
	for _, tier := range []docket.Tier{docket.TierFirstInstance, docket.TierAppellate, docket.TierSuperior, docket.TierUnknown} {
		if idx, ok := byTier[tier]; ok {
			ordered = append(ordered, records[idx])
		}
	}

	return ordered, superseded
}

// spansTiers reports whether the members cover at least two distinct
// tiers
func spansTiers(records []docket.CaseRecord, members []int) bool {
	seen := make(map[docket.Tier]bool)
	for _, idx := range members {
		seen[records[idx].Tier] = true
		if len(seen) >= 2 {
			return true
		}
	}
	return false
}

// laterFiled reports whether filing a is strictly later than b. A zero
// time sorts earliest.
func laterFiled(a, b time.Time) bool {
	return a.After(b)
}

func (g *Grouper) logOverride(rule *overrides.OverrideRule, numberA, numberB string) {
	if g.observer == nil || rule == nil {
		return
	}
	g.observer.LogOperation(observability.StandardObservabilityData{
		Component: g.GetComponentName(),
		Operation: "override_applied",
		Success:   true,
		Metadata: map[string]interface{}{
			"rule_id": rule.ID,
			"action":  rule.Action,
			"pair":    numberA + " / " + numberB,
		},
	})
}

func (g *Grouper) startTiming(operation string, total int) func(chains, residuals int) {
	if g.observer == nil {
		return func(int, int) {}
	}
	finish := g.observer.StartTiming(g.GetComponentName(), operation, "")
	return func(chains, residuals int) {
		finish(true, map[string]interface{}{
			"records":   total,
			"chains":    chains,
			"residuals": residuals,
		})
	}
}
