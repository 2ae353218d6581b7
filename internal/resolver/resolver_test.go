// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"testing"

	"docket-scan/internal/docket"
	"docket-scan/internal/movement"
)

func rec(tier docket.Tier, codes ...int) docket.CaseRecord {
	r := docket.CaseRecord{
		RawNumber: "0012345-66.2020.5.02.0001",
		Tier:      tier,
		Court:     "TRT-2",
	}
	for _, c := range codes {
		r.Movements = append(r.Movements, docket.MovementEvent{Code: c})
	}
	return r
}

func chainOf(records ...docket.CaseRecord) *docket.CaseChain {
	return &docket.CaseChain{ID: "chain-00001", Records: records}
}

func withSubjects(r docket.CaseRecord, names ...string) docket.CaseRecord {
	for _, n := range names {
		r.SubjectCodes = append(r.SubjectCodes, docket.Subject{Name: n})
	}
	return r
}

func TestResolve_GrantedThenAppealGranted(t *testing.T) {
	r := NewDefault()
	out := r.Resolve(chainOf(
		rec(docket.TierFirstInstance, movement.CodeClaimGranted),
		rec(docket.TierAppellate, movement.CodeAppealGranted),
	))

	if out.FinalFavorable != docket.FavorableNo {
		t.Errorf("final = %s, want NO", out.FinalFavorable)
	}
	if len(out.WhoAppealed) != 1 {
		t.Fatalf("steps = %d, want 1", len(out.WhoAppealed))
	}
	step := out.WhoAppealed[0]
	if step.Appellant != docket.PartyEmployer {
		t.Errorf("appellant = %s, want EMPLOYER", step.Appellant)
	}
	if step.FromTier != docket.TierFirstInstance || step.ToTier != docket.TierAppellate {
		t.Errorf("step tiers = %s -> %s", step.FromTier, step.ToTier)
	}
	if step.Inferred {
		t.Error("observed transition must not be marked inferred")
	}
	if out.Confidence != docket.ConfidenceHigh {
		t.Errorf("confidence = %s, want HIGH", out.Confidence)
	}
	if out.Status != docket.StatusResolved {
		t.Errorf("status = %q, want %q", out.Status, docket.StatusResolved)
	}
}

func TestResolve_DeniedThenAppealDenied(t *testing.T) {
	r := NewDefault()
	out := r.Resolve(chainOf(
		rec(docket.TierFirstInstance, movement.CodeClaimDenied),
		rec(docket.TierAppellate, movement.CodeAppealDenied),
	))

	if out.FinalFavorable != docket.FavorableNo {
		t.Errorf("final = %s, want NO", out.FinalFavorable)
	}
	if out.WhoAppealed[0].Appellant != docket.PartyEmployee {
		t.Errorf("appellant = %s, want EMPLOYEE", out.WhoAppealed[0].Appellant)
	}
	if out.Status != docket.StatusUpheldDenial {
		t.Errorf("status = %q, want %q", out.Status, docket.StatusUpheldDenial)
	}
	if out.Confidence != docket.ConfidenceHigh {
		t.Errorf("confidence = %s, want HIGH", out.Confidence)
	}
}

// Every (first-instance verdict, appeal verdict) pair on a two-record
// chain must produce the appellant and final favorability the transition
// table fixes for that row.
func TestResolve_TruthTable(t *testing.T) {
	cases := []struct {
		name      string
		first     int
		appeal    int
		appellant docket.Party
		final     docket.Favorability
		status    string
	}{
		{"granted reversed", movement.CodeClaimGranted, movement.CodeAppealGranted, docket.PartyEmployer, docket.FavorableNo, docket.StatusResolved},
		{"granted partially reversed", movement.CodeClaimGranted, movement.CodeAppealPartiallyGranted, docket.PartyEmployer, docket.FavorableNo, docket.StatusResolved},
		{"granted upheld", movement.CodeClaimGranted, movement.CodeAppealDenied, docket.PartyEmployer, docket.FavorableYes, docket.StatusUpheld},
		{"granted appeal not admitted", movement.CodeClaimGranted, movement.CodeAppealNotAdmitted, docket.PartyEmployer, docket.FavorableYes, docket.StatusUpheld},
		{"denied reversed", movement.CodeClaimDenied, movement.CodeAppealGranted, docket.PartyEmployee, docket.FavorableYes, docket.StatusResolved},
		{"denied partially reversed", movement.CodeClaimDenied, movement.CodeAppealPartiallyGranted, docket.PartyEmployee, docket.FavorableYes, docket.StatusResolved},
		{"denied upheld", movement.CodeClaimDenied, movement.CodeAppealDenied, docket.PartyEmployee, docket.FavorableNo, docket.StatusUpheldDenial},
		{"denied appeal not admitted", movement.CodeClaimDenied, movement.CodeAppealNotAdmitted, docket.PartyEmployee, docket.FavorableNo, docket.StatusUpheldDenial},
		{"partial grant appealed up", movement.CodeClaimPartiallyGranted, movement.CodeAppealGranted, docket.PartyEmployee, docket.FavorableYes, docket.StatusResolved},
		{"partial grant stands", movement.CodeClaimPartiallyGranted, movement.CodeAppealDenied, docket.PartyEmployee, docket.FavorableYes, docket.StatusUpheld},
	}

	r := NewDefault()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := r.Resolve(chainOf(
				rec(docket.TierFirstInstance, tc.first),
				rec(docket.TierAppellate, tc.appeal),
			))
			if len(out.WhoAppealed) != 1 {
				t.Fatalf("steps = %d, want 1", len(out.WhoAppealed))
			}
			if out.WhoAppealed[0].Appellant != tc.appellant {
				t.Errorf("appellant = %s, want %s", out.WhoAppealed[0].Appellant, tc.appellant)
			}
			if out.FinalFavorable != tc.final {
				t.Errorf("final = %s, want %s", out.FinalFavorable, tc.final)
			}
			if out.Status != tc.status {
				t.Errorf("status = %q, want %q", out.Status, tc.status)
			}
			if out.Confidence != docket.ConfidenceHigh {
				t.Errorf("confidence = %s, want HIGH", out.Confidence)
			}
		})
	}
}

// A chain that starts at the appellate tier reads a granted appeal like
// a granted claim going into the superior transition.
func TestResolve_AppellateToSuperiorEquivalence(t *testing.T) {
	r := NewDefault()

	out := r.Resolve(chainOf(
		rec(docket.TierAppellate, movement.CodeAppealGranted),
		rec(docket.TierSuperior, movement.CodeAppealDenied),
	))
	if out.WhoAppealed[0].Appellant != docket.PartyEmployer {
		t.Errorf("appellant = %s, want EMPLOYER", out.WhoAppealed[0].Appellant)
	}
	if out.FinalFavorable != docket.FavorableYes {
		t.Errorf("final = %s, want YES", out.FinalFavorable)
	}
	if out.Status != docket.StatusUpheld {
		t.Errorf("status = %q, want %q", out.Status, docket.StatusUpheld)
	}

	out = r.Resolve(chainOf(
		rec(docket.TierAppellate, movement.CodeAppealDenied),
		rec(docket.TierSuperior, movement.CodeAppealGranted),
	))
	if out.WhoAppealed[0].Appellant != docket.PartyEmployee {
		t.Errorf("appellant = %s, want EMPLOYEE", out.WhoAppealed[0].Appellant)
	}
	if out.FinalFavorable != docket.FavorableYes {
		t.Errorf("final = %s, want YES", out.FinalFavorable)
	}
	if out.Confidence != docket.ConfidenceHigh {
		t.Errorf("confidence = %s, want HIGH", out.Confidence)
	}
}

func TestResolve_ThreeTierChain(t *testing.T) {
	r := NewDefault()
	out := r.Resolve(chainOf(
		rec(docket.TierFirstInstance, movement.CodeClaimGranted),
		rec(docket.TierAppellate, movement.CodeAppealGranted),
		rec(docket.TierSuperior, movement.CodeAppealGranted),
	))

	if len(out.WhoAppealed) != 2 {
		t.Fatalf("steps = %d, want 2", len(out.WhoAppealed))
	}
	first, second := out.WhoAppealed[0], out.WhoAppealed[1]
	if first.Appellant != docket.PartyEmployer || first.Favorable != docket.FavorableNo {
		t.Errorf("first step = %s/%s, want EMPLOYER/NO", first.Appellant, first.Favorable)
	}
	if second.Appellant != docket.PartyEmployee || second.Favorable != docket.FavorableYes {
		t.Errorf("second step = %s/%s, want EMPLOYEE/YES", second.Appellant, second.Favorable)
	}
	if out.FinalFavorable != docket.FavorableYes {
		t.Errorf("final = %s, want the last transition's YES", out.FinalFavorable)
	}
	if out.Confidence != docket.ConfidenceHigh {
		t.Errorf("confidence = %s, want HIGH", out.Confidence)
	}
}

func TestResolve_HeuristicEmployeeSubjects(t *testing.T) {
	r := NewDefault()
	appellate := withSubjects(
		rec(docket.TierAppellate, movement.CodeAppealDenied),
		"Horas Extras", "Adicional Noturno",
	)
	out := r.Resolve(chainOf(appellate))

	if len(out.WhoAppealed) != 1 {
		t.Fatalf("steps = %d, want 1 inferred step", len(out.WhoAppealed))
	}
	step := out.WhoAppealed[0]
	if step.Appellant != docket.PartyEmployee {
		t.Errorf("appellant = %s, want EMPLOYEE", step.Appellant)
	}
	if !step.Inferred {
		t.Error("heuristic step must be marked inferred")
	}
	if step.FromTier != docket.TierFirstInstance || step.ToTier != docket.TierAppellate {
		t.Errorf("step tiers = %s -> %s", step.FromTier, step.ToTier)
	}
	if out.Confidence != docket.ConfidenceMedium {
		t.Errorf("confidence = %s, want MEDIUM", out.Confidence)
	}
	if out.Status != docket.StatusHeuristic {
		t.Errorf("status = %q, want %q", out.Status, docket.StatusHeuristic)
	}
	// The employee's own appeal was denied
	if out.FinalFavorable != docket.FavorableNo {
		t.Errorf("final = %s, want NO", out.FinalFavorable)
	}
}

func TestResolve_HeuristicEmployerSubjects(t *testing.T) {
	r := NewDefault()
	superior := withSubjects(
		rec(docket.TierSuperior, movement.CodeAppealGranted),
		"Justa Causa", "Reintegração",
	)
	out := r.Resolve(chainOf(superior))

	step := out.WhoAppealed[0]
	if step.Appellant != docket.PartyEmployer {
		t.Errorf("appellant = %s, want EMPLOYER", step.Appellant)
	}
	if step.FromTier != docket.TierAppellate || step.ToTier != docket.TierSuperior {
		t.Errorf("step tiers = %s -> %s", step.FromTier, step.ToTier)
	}
	if out.FinalFavorable != docket.FavorableNo {
		t.Errorf("final = %s, want NO when the employer's appeal is granted", out.FinalFavorable)
	}
	if out.Confidence != docket.ConfidenceMedium {
		t.Errorf("confidence = %s, want MEDIUM", out.Confidence)
	}
}

func TestResolve_HeuristicTie(t *testing.T) {
	r := NewDefault()

	// No subjects at all
	out := r.Resolve(chainOf(rec(docket.TierAppellate, movement.CodeAppealGranted)))
	if out.Confidence != docket.ConfidenceLow {
		t.Errorf("confidence = %s, want LOW on an empty subject table", out.Confidence)
	}
	if out.WhoAppealed[0].Appellant != docket.PartyUnknown {
		t.Errorf("appellant = %s, want UNKNOWN", out.WhoAppealed[0].Appellant)
	}
	if out.FinalFavorable != docket.FavorableUnknown {
		t.Errorf("final = %s, want UNKNOWN", out.FinalFavorable)
	}

	// One hit on each side
	tied := withSubjects(
		rec(docket.TierAppellate, movement.CodeAppealGranted),
		"Horas Extras", "Justa Causa",
	)
	out = r.Resolve(chainOf(tied))
	if out.Confidence != docket.ConfidenceLow {
		t.Errorf("confidence = %s, want LOW on a keyword tie", out.Confidence)
	}
	if out.WhoAppealed[0].Appellant != docket.PartyUnknown {
		t.Errorf("appellant = %s, want UNKNOWN on a tie", out.WhoAppealed[0].Appellant)
	}
}

func TestResolve_HeuristicNeverOverridesObservedTransition(t *testing.T) {
	r := NewDefault()
	// Subject names point at the employee, but the observed verdict pair
	// says the employer appealed. Evidence wins.
	first := withSubjects(rec(docket.TierFirstInstance, movement.CodeClaimGranted), "Horas Extras")
	appellate := withSubjects(rec(docket.TierAppellate, movement.CodeAppealGranted), "Horas Extras")
	out := r.Resolve(chainOf(first, appellate))

	if out.WhoAppealed[0].Appellant != docket.PartyEmployer {
		t.Errorf("appellant = %s, want EMPLOYER from observed codes", out.WhoAppealed[0].Appellant)
	}
	if out.WhoAppealed[0].Inferred {
		t.Error("observed transition must not be marked inferred")
	}
	if out.Status == docket.StatusHeuristic {
		t.Error("heuristic status must not appear when transition evidence exists")
	}
}

func TestResolve_SingleFirstInstanceVerdict(t *testing.T) {
	r := NewDefault()
	out := r.Resolve(chainOf(rec(docket.TierFirstInstance, movement.CodeClaimGranted)))

	if out.FinalFavorable != docket.FavorableYes {
		t.Errorf("final = %s, want YES", out.FinalFavorable)
	}
	if len(out.WhoAppealed) != 0 {
		t.Errorf("steps = %d, want none without an appeal in evidence", len(out.WhoAppealed))
	}
	if out.Confidence != docket.ConfidenceLow {
		t.Errorf("confidence = %s, want LOW for a single tier", out.Confidence)
	}
	if out.Status != docket.StatusResolved {
		t.Errorf("status = %q, want %q", out.Status, docket.StatusResolved)
	}
}

func TestResolve_ReformOnlyTerminal(t *testing.T) {
	r := NewDefault()
	reformed := rec(docket.TierAppellate)
	reformed.Movements = append(reformed.Movements, docket.MovementEvent{
		Code:        movement.CodeReform,
		Attachments: map[string]string{"tipo_decisao_anterior": "sentença de procedência"},
	})
	out := r.Resolve(chainOf(reformed))

	if out.Status != docket.StatusReformedUnconfirmed {
		t.Errorf("status = %q, want %q", out.Status, docket.StatusReformedUnconfirmed)
	}
	if out.FinalFavorable != docket.FavorableUnknown {
		t.Errorf("final = %s, want UNKNOWN, never a guessed verdict", out.FinalFavorable)
	}
	if out.Confidence != docket.ConfidenceLow {
		t.Errorf("confidence = %s, want LOW", out.Confidence)
	}
	if out.Reform["tipo_decisao_anterior"] != "sentença de procedência" {
		t.Errorf("reform attachments not carried: %v", out.Reform)
	}
}

func TestResolve_ReformAsLastWordTrumpsEarlierVerdict(t *testing.T) {
	r := NewDefault()
	reformed := rec(docket.TierSuperior)
	reformed.Movements = append(reformed.Movements, docket.MovementEvent{Code: movement.CodeReform})
	out := r.Resolve(chainOf(
		rec(docket.TierFirstInstance, movement.CodeClaimGranted),
		reformed,
	))

	if out.Status != docket.StatusReformedUnconfirmed {
		t.Errorf("status = %q, want %q", out.Status, docket.StatusReformedUnconfirmed)
	}
	if out.FinalFavorable != docket.FavorableUnknown {
		t.Errorf("final = %s, want UNKNOWN", out.FinalFavorable)
	}
}

func TestResolve_ReformAfterVerdictStillTransitions(t *testing.T) {
	r := NewDefault()
	first := rec(docket.TierFirstInstance, movement.CodeClaimGranted)
	first.Movements = append(first.Movements, docket.MovementEvent{
		Code:        movement.CodeReform,
		Attachments: map[string]string{"tipo_decisao_anterior": "sentença"},
	})
	out := r.Resolve(chainOf(
		first,
		rec(docket.TierAppellate, movement.CodeAppealGranted),
	))

	// The verdict stands for the transition; the appellate record carries
	// what the reform decided.
	if out.FinalFavorable != docket.FavorableNo {
		t.Errorf("final = %s, want NO", out.FinalFavorable)
	}
	if out.Confidence != docket.ConfidenceHigh {
		t.Errorf("confidence = %s, want HIGH", out.Confidence)
	}
	if out.Reform["tipo_decisao_anterior"] != "sentença" {
		t.Errorf("reform attachments not carried: %v", out.Reform)
	}
}

func TestResolve_UninterpretableRecordCapsConfidence(t *testing.T) {
	r := NewDefault()
	out := r.Resolve(chainOf(
		rec(docket.TierFirstInstance, movement.CodeClaimGranted),
		rec(docket.TierAppellate, 26, 51),
		rec(docket.TierSuperior, movement.CodeAppealDenied),
	))

	if out.Confidence != docket.ConfidenceLow {
		t.Errorf("confidence = %s, want LOW with an unreadable tier in the chain", out.Confidence)
	}
	if len(out.WhoAppealed) != 1 {
		t.Fatalf("steps = %d, want 1 across the gap", len(out.WhoAppealed))
	}
	step := out.WhoAppealed[0]
	if step.FromTier != docket.TierFirstInstance || step.ToTier != docket.TierSuperior {
		t.Errorf("step tiers = %s -> %s", step.FromTier, step.ToTier)
	}
	if out.FinalFavorable != docket.FavorableYes {
		t.Errorf("final = %s, want YES", out.FinalFavorable)
	}
}

func TestResolve_UnknownNeverBecomesDenial(t *testing.T) {
	r := NewDefault()
	out := r.Resolve(chainOf(
		rec(docket.TierFirstInstance, 26),
		rec(docket.TierAppellate, 51),
	))

	if out.Status != docket.StatusUnknown {
		t.Errorf("status = %q, want %q", out.Status, docket.StatusUnknown)
	}
	if out.FinalFavorable == docket.FavorableNo {
		t.Error("an unreadable chain must never resolve to a denial")
	}
	if out.FinalFavorable != docket.FavorableUnknown {
		t.Errorf("final = %s, want UNKNOWN", out.FinalFavorable)
	}
}

// More observed evidence never lowers confidence: a bare appeal verdict
// sits at LOW, decisive subjects lift it to MEDIUM, and an observed
// transition pair reaches HIGH.
func TestResolve_MonotonicConfidence(t *testing.T) {
	r := NewDefault()

	bare := r.Resolve(chainOf(rec(docket.TierAppellate, movement.CodeAppealDenied)))
	keyworded := r.Resolve(chainOf(withSubjects(
		rec(docket.TierAppellate, movement.CodeAppealDenied), "Horas Extras",
	)))
	observed := r.Resolve(chainOf(
		rec(docket.TierFirstInstance, movement.CodeClaimDenied),
		rec(docket.TierAppellate, movement.CodeAppealDenied),
	))

	if bare.Confidence > keyworded.Confidence {
		t.Errorf("keyword evidence lowered confidence: %s -> %s", bare.Confidence, keyworded.Confidence)
	}
	if keyworded.Confidence > observed.Confidence {
		t.Errorf("observed evidence lowered confidence: %s -> %s", keyworded.Confidence, observed.Confidence)
	}
	if observed.Confidence != docket.ConfidenceHigh {
		t.Errorf("fully observed chain = %s, want HIGH", observed.Confidence)
	}
}

func TestResolve_EmptyChain(t *testing.T) {
	r := NewDefault()
	if out := r.Resolve(nil); out.Status != docket.StatusUnknown {
		t.Errorf("nil chain status = %q, want %q", out.Status, docket.StatusUnknown)
	}
	if out := r.Resolve(&docket.CaseChain{}); out.Confidence != docket.ConfidenceLow {
		t.Errorf("empty chain confidence = %s, want LOW", out.Confidence)
	}
}

func TestResolve_CustomKeywords(t *testing.T) {
	r := NewDefault()
	r.SetKeywords(Keywords{
		Employee: []string{"intervalo intrajornada"},
		Employer: []string{"dano patrimonial"},
	})

	appellate := withSubjects(
		rec(docket.TierAppellate, movement.CodeAppealGranted),
		"Intervalo Intrajornada",
	)
	out := r.Resolve(chainOf(appellate))
	if out.WhoAppealed[0].Appellant != docket.PartyEmployee {
		t.Errorf("appellant = %s, want EMPLOYEE from the custom list", out.WhoAppealed[0].Appellant)
	}
	if out.FinalFavorable != docket.FavorableYes {
		t.Errorf("final = %s, want YES", out.FinalFavorable)
	}
}
