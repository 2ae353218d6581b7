// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package docket

import (
	"strings"
	"time"
)

// Tier identifies the judicial level a record was filed at.
type Tier int

const (
	// TierUnknown marks records whose grade string could not be mapped
	TierUnknown Tier = iota
	// TierFirstInstance is a labor court of first instance (Vara do Trabalho)
	TierFirstInstance
	// TierAppellate is a regional labor court (TRT)
	TierAppellate
	// TierSuperior is the superior labor court (TST)
	TierSuperior
)

// String returns the canonical name used in output and logs
func (t Tier) String() string {
	switch t {
	case TierFirstInstance:
		return "FIRST_INSTANCE"
	case TierAppellate:
		return "APPELLATE"
	case TierSuperior:
		return "SUPERIOR"
	default:
		return "UNKNOWN"
	}
}

// Rank returns the ordering position used to sort chain members
// (first instance < appellate < superior)
func (t Tier) Rank() int {
	return int(t)
}

// ParseTier maps registry grade strings to a Tier. It accepts the
// DataJud grade values (G1, G2, GS) plus the spelled-out and numeric
// variants seen in per-court exports. Unmappable values return
// TierUnknown and false.
func ParseTier(s string) (Tier, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "G1", "1", "JE", "PRIMEIRO GRAU", "FIRST_INSTANCE":
		return TierFirstInstance, true
	case "G2", "2", "SEGUNDO GRAU", "APPELLATE", "TRT":
		return TierAppellate, true
	case "GS", "SUP", "SUPERIOR", "TST":
		return TierSuperior, true
	default:
		return TierUnknown, false
	}
}

// Subject is one classification entry from the case's subject table
// (CNJ assuntos). Subject names feed the appellant heuristic when a
// chain has no transition evidence.
type Subject struct {
	Code int    `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// MovementEvent is one procedural event from the case docket.
type MovementEvent struct {
	// Code is the CNJ unified-table movement classifier
	Code int `json:"code" yaml:"code"`

	// Timestamp is kept as supplied by the registry; ordering within a
	// record follows insertion order, not timestamp parsing
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// Attachments carries the tabulated complements attached to the
	// event. Reform events reference the prior decision type here.
	Attachments map[string]string `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// CaseRecord is one tier's filing of a lawsuit. Records are built once
// by an ingest reader and never mutated; every engine stage derives new
// structures from them.
type CaseRecord struct {
	RawNumber    string          `json:"raw_number" yaml:"raw_number"`
	Tier         Tier            `json:"tier" yaml:"tier"`
	Court        string          `json:"court" yaml:"court"`
	Movements    []MovementEvent `json:"movements" yaml:"movements"`
	FiledDate    time.Time       `json:"filed_date" yaml:"filed_date"`
	SubjectCodes []Subject       `json:"subject_codes,omitempty" yaml:"subject_codes,omitempty"`
}

// Malformed reports whether the record is unusable for reconciliation
// and the reason. Malformed records are counted and skipped, never
// fatal to a batch.
func (r *CaseRecord) Malformed() (bool, string) {
	if strings.TrimSpace(r.RawNumber) == "" {
		return true, "missing raw number"
	}
	if r.Tier == TierUnknown {
		return true, "unknown tier"
	}
	return false, ""
}

// SubjectText joins the subject names into one searchable string for
// keyword analysis
func (r *CaseRecord) SubjectText() string {
	if len(r.SubjectCodes) == 0 {
		return ""
	}
	names := make([]string, 0, len(r.SubjectCodes))
	for _, s := range r.SubjectCodes {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return strings.Join(names, " ")
}

// Verdict is the semantic outcome extracted from a record's movement
// sequence.
type Verdict int

const (
	VerdictNone Verdict = iota
	VerdictClaimGranted
	VerdictClaimDenied
	VerdictClaimPartiallyGranted
	VerdictAppealGranted
	VerdictAppealPartiallyGranted
	VerdictAppealDenied
	VerdictAppealNotAdmitted
)

// String returns the label used in output and logs
func (v Verdict) String() string {
	switch v {
	case VerdictClaimGranted:
		return "CLAIM_GRANTED"
	case VerdictClaimDenied:
		return "CLAIM_DENIED"
	case VerdictClaimPartiallyGranted:
		return "CLAIM_PARTIALLY_GRANTED"
	case VerdictAppealGranted:
		return "APPEAL_GRANTED"
	case VerdictAppealPartiallyGranted:
		return "APPEAL_PARTIALLY_GRANTED"
	case VerdictAppealDenied:
		return "APPEAL_DENIED"
	case VerdictAppealNotAdmitted:
		return "APPEAL_NOT_ADMITTED"
	default:
		return "NONE"
	}
}

// IsClaim reports whether the verdict is a first-instance result
func (v Verdict) IsClaim() bool {
	switch v {
	case VerdictClaimGranted, VerdictClaimDenied, VerdictClaimPartiallyGranted:
		return true
	}
	return false
}

// IsAppeal reports whether the verdict is an appellate or superior
// court result
func (v Verdict) IsAppeal() bool {
	switch v {
	case VerdictAppealGranted, VerdictAppealPartiallyGranted,
		VerdictAppealDenied, VerdictAppealNotAdmitted:
		return true
	}
	return false
}

// Outcome is the interpreted result of one record. A nil *Outcome
// means no recognized code was present; callers must treat that as
// outcome unknown, never as a denial.
type Outcome struct {
	Verdict   Verdict `json:"verdict" yaml:"verdict"`
	Code      int     `json:"code" yaml:"code"`
	Timestamp string  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`

	// ReformOnly marks records whose docket carries a reform event but
	// no direct verdict code. Such outcomes surface as a distinct
	// terminal state and never feed the transition table.
	ReformOnly bool `json:"reform_only,omitempty" yaml:"reform_only,omitempty"`

	// Reformed marks a direct verdict that a later reform event points
	// at. The verdict still stands for transition evaluation; the
	// higher tier record carries what the reform decided.
	Reformed bool `json:"reformed,omitempty" yaml:"reformed,omitempty"`

	// Reform carries the structured attachment data of the last reform
	// event (referenced prior decision type, when supplied)
	Reform map[string]string `json:"reform,omitempty" yaml:"reform,omitempty"`
}
