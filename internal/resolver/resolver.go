// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package resolver assigns each reconstructed chain its final outcome:
// who appealed at every tier transition and whether the worker's claim
// ultimately prevailed.
//
// Transitions between records with directly observed verdicts are
// evaluated against a fixed table. When the lower decision favored the
// worker the employer is the presumed appellant, and a granted appeal
// resolves the case toward the appellant while a denied or not-admitted
// one upholds the lower decision. A chain whose only evidence is a
// single appeal verdict falls back to the subject table to infer who
// filed, at reduced confidence. Reform events with no confirming
// verdict terminate resolution in a distinct unconfirmed state rather
// than a guessed result.
package resolver

import (
	"strings"

	"docket-scan/internal/docket"
	"docket-scan/internal/movement"
	"docket-scan/internal/observability"
)

// Keywords holds the subject-table phrases used to infer the appellant
// when a chain carries no transition evidence. Employee phrases are
// claim subjects a worker appeals over; employer phrases mark disputes
// employers typically take upward.
type Keywords struct {
	Employee []string
	Employer []string
}

// DefaultKeywords returns the built-in CNJ subject phrases
func DefaultKeywords() Keywords {
	return Keywords{
		Employee: []string{
			"horas extras",
			"verbas rescisórias",
			"adicional de insalubridade",
			"adicional de periculosidade",
			"adicional noturno",
			"equiparação salarial",
			"salário",
			"indenização",
			"dano moral",
			"fgts",
			"aviso prévio",
		},
		Employer: []string{
			"justa causa",
			"reintegração",
			"estabilidade",
			"reversão da justa causa",
			"nulidade da dispensa",
		},
	}
}

// Resolver turns a case chain into a ResolvedOutcome. Resolution is
// pure per chain, so chains can be resolved concurrently.
type Resolver struct {
	interp   *movement.Interpreter
	keywords Keywords
	observer *observability.StandardObserver
}

// New creates a Resolver using the given movement interpreter and the
// built-in subject keywords
func New(interp *movement.Interpreter) *Resolver {
	return &Resolver{
		interp:   interp,
		keywords: DefaultKeywords(),
	}
}

// NewDefault creates a Resolver with the default CNJ movement table
func NewDefault() *Resolver {
	return New(movement.NewDefaultInterpreter())
}

// SetKeywords replaces the appellant-inference keyword lists
func (r *Resolver) SetKeywords(k Keywords) {
	r.keywords = k
}

// SetObserver sets the observability component
func (r *Resolver) SetObserver(observer *observability.StandardObserver) {
	r.observer = observer
}

// GetComponentName returns the component name for observability
func (r *Resolver) GetComponentName() string {
	return "resolver"
}

type interpreted struct {
	record  *docket.CaseRecord
	outcome *docket.Outcome
}

// Resolve evaluates the chain's tier transitions and returns the final
// outcome. Records are expected in tier-rank order, the order BuildChains
// emits them in.
//
// Confidence is HIGH only when at least one transition was evaluated
// and every record in the chain interpreted to a direct verdict. Any
// record with no recognized code, or a reform with no confirming
// verdict, caps the chain at LOW: an unobserved outcome is unknown,
// never a denial.
func (r *Resolver) Resolve(chain *docket.CaseChain) docket.ResolvedOutcome {
	out := docket.ResolvedOutcome{
		FinalFavorable: docket.FavorableUnknown,
		Confidence:     docket.ConfidenceLow,
		Status:         docket.StatusUnknown,
	}
	if chain == nil || len(chain.Records) == 0 {
		return out
	}

	known := make([]interpreted, 0, len(chain.Records))
	gaps := false
	for i := range chain.Records {
		rec := &chain.Records[i]
		oc := r.interp.Interpret(rec)
		if oc == nil {
			gaps = true
			continue
		}
		if len(oc.Reform) > 0 {
			out.Reform = oc.Reform
		}
		known = append(known, interpreted{record: rec, outcome: oc})
	}
	if len(known) == 0 {
		return out
	}

	// A reform event as the chain's last word leaves the direction of
	// the change unconfirmed. Terminal state, not a verdict.
	if known[len(known)-1].outcome.ReformOnly {
		out.Status = docket.StatusReformedUnconfirmed
		return out
	}

	usable := make([]interpreted, 0, len(known))
	for _, k := range known {
		if k.outcome.ReformOnly {
			gaps = true
			continue
		}
		usable = append(usable, k)
	}

	if len(usable) == 1 {
		return r.resolveSingle(usable[0], out)
	}
	return r.resolveTransitions(usable, gaps, out)
}

// resolveTransitions walks consecutive observed verdicts, carrying the
// worker's standing forward through each appeal. A granted appeal
// resolves the step toward the appellant; a denied or not-admitted one
// leaves the lower decision standing.
func (r *Resolver) resolveTransitions(usable []interpreted, gaps bool, out docket.ResolvedOutcome) docket.ResolvedOutcome {
	cur := openingFavorability(usable[0].outcome.Verdict)
	nextAppellant := openingAppellant(usable[0].outcome.Verdict)
	steps := make([]docket.AppealStep, 0, len(usable)-1)
	lastUpheld := false

	for i := 1; i < len(usable); i++ {
		lower, higher := usable[i-1], usable[i]
		step := docket.AppealStep{
			FromTier:  lower.record.Tier,
			ToTier:    higher.record.Tier,
			Appellant: nextAppellant,
		}

		v := higher.outcome.Verdict
		switch {
		case v.IsClaim():
			// Registries occasionally log merits codes at appeal
			// tiers; take the stated result directly.
			cur = openingFavorability(v)
			nextAppellant = openingAppellant(v)
			lastUpheld = false
		case v == docket.VerdictAppealGranted, v == docket.VerdictAppealPartiallyGranted:
			cur = favorableTo(step.Appellant)
			nextAppellant = appellantFor(cur)
			lastUpheld = false
		default:
			// Denied or not admitted: whoever held the favorable
			// position going in still holds it.
			nextAppellant = appellantFor(cur)
			lastUpheld = true
		}

		step.Favorable = cur
		steps = append(steps, step)
	}

	out.WhoAppealed = steps
	out.FinalFavorable = cur
	switch {
	case !lastUpheld:
		out.Status = docket.StatusResolved
	case cur == docket.FavorableYes:
		out.Status = docket.StatusUpheld
	case cur == docket.FavorableNo:
		out.Status = docket.StatusUpheldDenial
	default:
		out.Status = docket.StatusResolved
	}
	if gaps {
		out.Confidence = docket.ConfidenceLow
	} else {
		out.Confidence = docket.ConfidenceHigh
	}
	return out
}

// resolveSingle handles a chain whose only observed verdict sits at one
// tier. A lone merits decision resolves directly with no appeal in
// evidence. A lone appeal verdict proves an appeal happened, and the
// subject table is the only evidence left for who filed it.
func (r *Resolver) resolveSingle(only interpreted, out docket.ResolvedOutcome) docket.ResolvedOutcome {
	verdict := only.outcome.Verdict
	if verdict.IsClaim() {
		out.FinalFavorable = openingFavorability(verdict)
		out.Status = docket.StatusResolved
		out.Confidence = docket.ConfidenceLow
		return out
	}

	appellant, decisive := r.inferAppellant(only.record)
	granted := verdict == docket.VerdictAppealGranted ||
		verdict == docket.VerdictAppealPartiallyGranted

	step := docket.AppealStep{
		FromTier:  tierBelow(only.record.Tier),
		ToTier:    only.record.Tier,
		Appellant: appellant,
		Inferred:  true,
	}
	switch {
	case appellant == docket.PartyEmployee && granted:
		step.Favorable = docket.FavorableYes
	case appellant == docket.PartyEmployee && !granted:
		step.Favorable = docket.FavorableNo
	case appellant == docket.PartyEmployer && granted:
		step.Favorable = docket.FavorableNo
	case appellant == docket.PartyEmployer && !granted:
		step.Favorable = docket.FavorableYes
	default:
		step.Favorable = docket.FavorableUnknown
	}

	out.WhoAppealed = []docket.AppealStep{step}
	out.FinalFavorable = step.Favorable
	out.Status = docket.StatusHeuristic
	if decisive {
		out.Confidence = docket.ConfidenceMedium
	} else {
		out.Confidence = docket.ConfidenceLow
	}

	if r.observer != nil {
		r.observer.LogOperation(observability.StandardObservabilityData{
			Component: r.GetComponentName(),
			Operation: "heuristic_appellant",
			Source:    only.record.RawNumber,
			Success:   decisive,
			Metadata: map[string]interface{}{
				"appellant": appellant.String(),
				"tier":      only.record.Tier.String(),
				"verdict":   verdict.String(),
			},
		})
	}
	return out
}

// inferAppellant scores the record's subject names against both keyword
// lists. The side with more hits is the likely appellant; a tie, or an
// empty subject table, stays unknown.
func (r *Resolver) inferAppellant(rec *docket.CaseRecord) (docket.Party, bool) {
	subjects := strings.ToLower(rec.SubjectText())
	if subjects == "" {
		return docket.PartyUnknown, false
	}

	employee := countHits(subjects, r.keywords.Employee)
	employer := countHits(subjects, r.keywords.Employer)
	switch {
	case employee > employer:
		return docket.PartyEmployee, true
	case employer > employee:
		return docket.PartyEmployer, true
	default:
		return docket.PartyUnknown, false
	}
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			hits++
		}
	}
	return hits
}

// openingFavorability reads a verdict as the worker's standing ahead
// of the next appeal. Partial grants count as favorable. For chains
// starting at an appeal tier a granted appeal reads like a granted
// claim and a denied one like a denied claim.
func openingFavorability(v docket.Verdict) docket.Favorability {
	switch v {
	case docket.VerdictClaimGranted, docket.VerdictClaimPartiallyGranted,
		docket.VerdictAppealGranted, docket.VerdictAppealPartiallyGranted:
		return docket.FavorableYes
	case docket.VerdictClaimDenied, docket.VerdictAppealDenied,
		docket.VerdictAppealNotAdmitted:
		return docket.FavorableNo
	default:
		return docket.FavorableUnknown
	}
}

// openingAppellant names the presumed appellant over a verdict. A full
// grant sends the employer up; a denial sends the employee. A partial
// grant also presumes the employee, appealing for the remainder while
// still holding a favorable judgment.
func openingAppellant(v docket.Verdict) docket.Party {
	switch v {
	case docket.VerdictClaimGranted, docket.VerdictAppealGranted:
		return docket.PartyEmployer
	case docket.VerdictClaimDenied, docket.VerdictClaimPartiallyGranted,
		docket.VerdictAppealDenied, docket.VerdictAppealNotAdmitted,
		docket.VerdictAppealPartiallyGranted:
		return docket.PartyEmployee
	default:
		return docket.PartyUnknown
	}
}

// appellantFor names the party that appeals a decision standing the
// given way: the side that just lost
func appellantFor(f docket.Favorability) docket.Party {
	switch f {
	case docket.FavorableYes:
		return docket.PartyEmployer
	case docket.FavorableNo:
		return docket.PartyEmployee
	default:
		return docket.PartyUnknown
	}
}

// favorableTo maps the winner of an appeal to the worker's standing
func favorableTo(appellant docket.Party) docket.Favorability {
	switch appellant {
	case docket.PartyEmployee:
		return docket.FavorableYes
	case docket.PartyEmployer:
		return docket.FavorableNo
	default:
		return docket.FavorableUnknown
	}
}

func tierBelow(t docket.Tier) docket.Tier {
	switch t {
	case docket.TierSuperior:
		return docket.TierAppellate
	case docket.TierAppellate:
		return docket.TierFirstInstance
	default:
		return docket.TierUnknown
	}
}
