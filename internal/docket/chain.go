// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package docket

import (
	"time"
)

// Party identifies who filed an appeal.
type Party int

const (
	PartyUnknown Party = iota
	PartyEmployee
	PartyEmployer
)

// String returns the label used in output and logs
func (p Party) String() string {
	switch p {
	case PartyEmployee:
		return "EMPLOYEE"
	case PartyEmployer:
		return "EMPLOYER"
	default:
		return "UNKNOWN"
	}
}

// Favorability is the three-valued answer to "did the employee win".
type Favorability int

const (
	FavorableUnknown Favorability = iota
	FavorableYes
	FavorableNo
)

// String returns the label used in output and logs
func (f Favorability) String() string {
	switch f {
	case FavorableYes:
		return "YES"
	case FavorableNo:
		return "NO"
	default:
		return "UNKNOWN"
	}
}

// Confidence labels how much of a resolved outcome rests on directly
// observed movement codes.
type Confidence int

const (
	// ConfidenceLow: only a single tier's final code is known, or the
	// appellant heuristic tied
	ConfidenceLow Confidence = iota
	// ConfidenceMedium: at least one step was inferred from subject
	// keywords instead of observed codes
	ConfidenceMedium
	// ConfidenceHigh: every transition in the chain used directly
	// observed codes
	ConfidenceHigh
)

// String returns the label used in output and logs
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "HIGH"
	case ConfidenceMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ParseConfidence maps a label back to its Confidence value
func ParseConfidence(s string) (Confidence, bool) {
	switch s {
	case "HIGH", "high":
		return ConfidenceHigh, true
	case "MEDIUM", "medium":
		return ConfidenceMedium, true
	case "LOW", "low":
		return ConfidenceLow, true
	default:
		return ConfidenceLow, false
	}
}

// LinkMethod records which grouping pass attached a record to a chain.
type LinkMethod int

const (
	LinkNone LinkMethod = iota
	LinkExact
	LinkFallback
	LinkResidual
	LinkOverride
)

// String returns the label used in output and logs
func (m LinkMethod) String() string {
	switch m {
	case LinkExact:
		return "exact"
	case LinkFallback:
		return "fallback"
	case LinkResidual:
		return "residual"
	case LinkOverride:
		return "override"
	default:
		return "none"
	}
}

// LinkInfo is the linkage provenance of one chain member.
type LinkInfo struct {
	Method LinkMethod `json:"method" yaml:"method"`
	// Key is the normalizer key that matched on the exact pass
	Key string `json:"key,omitempty" yaml:"key,omitempty"`
	// Score is the similarity score on the fallback and residual passes
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`
}

// CaseChain is the reconstructed multi-tier history of one lawsuit.
// Records are ordered by tier rank with at most one authoritative
// record per tier. Membership is decided once per run.
type CaseChain struct {
	ID      string       `json:"id" yaml:"id"`
	Records []CaseRecord `json:"records" yaml:"records"`
	Links   []LinkInfo   `json:"links" yaml:"links"`
}

// Tiers returns the tiers present, in rank order
func (c *CaseChain) Tiers() []Tier {
	tiers := make([]Tier, 0, len(c.Records))
	for i := range c.Records {
		tiers = append(tiers, c.Records[i].Tier)
	}
	return tiers
}

// RecordAt returns the authoritative record for a tier, or nil
func (c *CaseChain) RecordAt(tier Tier) *CaseRecord {
	for i := range c.Records {
		if c.Records[i].Tier == tier {
			return &c.Records[i]
		}
	}
	return nil
}

// MultiTier reports whether the chain spans at least two distinct tiers
func (c *CaseChain) MultiTier() bool {
	seen := map[Tier]bool{}
	for i := range c.Records {
		seen[c.Records[i].Tier] = true
	}
	return len(seen) >= 2
}

// Outcome status labels. StatusReformedUnconfirmed is the terminal
// state for reform-only chains; the resolver never converts it into a
// guessed favorability.
const (
	StatusResolved            = "resolved"
	StatusUpheld              = "upheld"
	StatusUpheldDenial        = "upheld denial"
	StatusHeuristic           = "heuristic appellant"
	StatusReformedUnconfirmed = "reformed, unconfirmed"
	StatusUnknown             = "outcome unknown"
)

// AppealStep is one evaluated tier transition.
type AppealStep struct {
	FromTier  Tier         `json:"from_tier" yaml:"from_tier"`
	ToTier    Tier         `json:"to_tier" yaml:"to_tier"`
	Appellant Party        `json:"appellant" yaml:"appellant"`
	Favorable Favorability `json:"favorable" yaml:"favorable"`
	// Inferred marks steps produced by the subject-keyword heuristic
	// rather than observed movement codes
	Inferred bool `json:"inferred,omitempty" yaml:"inferred,omitempty"`
}

// ResolvedOutcome is the final verdict attached to a chain.
type ResolvedOutcome struct {
	FinalFavorable Favorability `json:"final_favorable" yaml:"final_favorable"`
	WhoAppealed    []AppealStep `json:"who_appealed" yaml:"who_appealed"`
	Confidence     Confidence   `json:"confidence" yaml:"confidence"`
	Status         string       `json:"status" yaml:"status"`

	// Reform carries the attachment data of a reform-only chain
	Reform map[string]string `json:"reform,omitempty" yaml:"reform,omitempty"`
}

// ReconciledCase pairs a chain with its resolved outcome.
type ReconciledCase struct {
	Chain   CaseChain       `json:"chain" yaml:"chain"`
	Outcome ResolvedOutcome `json:"outcome" yaml:"outcome"`
}

// Residual is an ungrouped single-tier record, retained for
// completeness accounting and excluded from outcome statistics.
type Residual struct {
	Record CaseRecord `json:"record" yaml:"record"`
	Reason string     `json:"reason" yaml:"reason"`
}

// Stats carries the batch counters of one reconciliation run.
type Stats struct {
	TotalRecords   int            `json:"total_records" yaml:"total_records"`
	Malformed      int            `json:"malformed" yaml:"malformed"`
	Grouped        int            `json:"grouped" yaml:"grouped"`
	Chains         int            `json:"chains" yaml:"chains"`
	Residuals      int            `json:"residuals" yaml:"residuals"`
	ByConfidence   map[string]int `json:"by_confidence" yaml:"by_confidence"`
	ByLinkMethod   map[string]int `json:"by_link_method" yaml:"by_link_method"`
	ReformOnly     int            `json:"reform_only" yaml:"reform_only"`
	FavorableYes   int            `json:"favorable_yes" yaml:"favorable_yes"`
	FavorableNo    int            `json:"favorable_no" yaml:"favorable_no"`
	FavorableOther int            `json:"favorable_unknown" yaml:"favorable_unknown"`
}

// Run is the complete output of one reconciliation: the input snapshot
// reduced to chains with outcomes, the residual list, and counters.
// Downstream collaborators (formatters, store, viewer) consume this
// shape and nothing else.
type Run struct {
	ID           string           `json:"id" yaml:"id"`
	RulesVersion string           `json:"rules_version" yaml:"rules_version"`
	StartedAt    time.Time        `json:"started_at" yaml:"started_at"`
	DurationMS   int64            `json:"duration_ms" yaml:"duration_ms"`
	Cases        []ReconciledCase `json:"cases" yaml:"cases"`
	Residuals    []Residual       `json:"residuals" yaml:"residuals"`
	Stats        Stats            `json:"stats" yaml:"stats"`
}
