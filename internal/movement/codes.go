// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package movement

import (
	"fmt"

	"docket-scan/internal/docket"
)

// Default movement codes from the CNJ unified procedural table
// (julgamento family). The table is a known-subset allow-list, not an
// exhaustive model of the domain; unrecognized codes are ignored.
const (
	CodeClaimGranted           = 219 // Procedência
	CodeClaimDenied            = 220 // Improcedência
	CodeClaimPartiallyGranted  = 221 // Procedência em Parte
	CodeAppealNotAdmitted      = 236 // Negação de Seguimento
	CodeAppealGranted          = 237 // Provimento
	CodeAppealPartiallyGranted = 238 // Provimento em Parte
	CodeAppealDenied           = 242 // Desprovimento
	CodeReform                 = 190 // Reforma de Decisão Anterior
)

// Table maps movement codes to verdicts and names the reform code. It
// is versioned configuration data passed to the interpreter at
// construction time, never a module-level mutable.
type Table struct {
	Verdicts   map[int]docket.Verdict
	ReformCode int
}

// DefaultTable returns the CNJ default code table
func DefaultTable() Table {
	return Table{
		Verdicts: map[int]docket.Verdict{
			CodeClaimGranted:           docket.VerdictClaimGranted,
			CodeClaimDenied:            docket.VerdictClaimDenied,
			CodeClaimPartiallyGranted:  docket.VerdictClaimPartiallyGranted,
			CodeAppealGranted:          docket.VerdictAppealGranted,
			CodeAppealPartiallyGranted: docket.VerdictAppealPartiallyGranted,
			CodeAppealDenied:           docket.VerdictAppealDenied,
			CodeAppealNotAdmitted:      docket.VerdictAppealNotAdmitted,
		},
		ReformCode: CodeReform,
	}
}

// Lookup returns the verdict mapped to a code
func (t Table) Lookup(code int) (docket.Verdict, bool) {
	v, ok := t.Verdicts[code]
	return v, ok
}

// IsReform reports whether a code is the reform marker
func (t Table) IsReform(code int) bool {
	return code == t.ReformCode
}

// Validate checks the table is usable: at least one verdict mapping,
// and the reform code not doubling as a verdict code
func (t Table) Validate() error {
	if len(t.Verdicts) == 0 {
		return fmt.Errorf("movement table has no verdict mappings")
	}
	for code, v := range t.Verdicts {
		if v == docket.VerdictNone {
			return fmt.Errorf("movement code %d maps to no verdict", code)
		}
		if code == t.ReformCode {
			return fmt.Errorf("reform code %d also mapped to verdict %s", code, v)
		}
	}
	return nil
}

// verdictLabels maps configuration labels to verdicts
var verdictLabels = map[string]docket.Verdict{
	"CLAIM_GRANTED":            docket.VerdictClaimGranted,
	"CLAIM_DENIED":             docket.VerdictClaimDenied,
	"CLAIM_PARTIALLY_GRANTED":  docket.VerdictClaimPartiallyGranted,
	"APPEAL_GRANTED":           docket.VerdictAppealGranted,
	"APPEAL_PARTIALLY_GRANTED": docket.VerdictAppealPartiallyGranted,
	"APPEAL_DENIED":            docket.VerdictAppealDenied,
	"APPEAL_NOT_ADMITTED":      docket.VerdictAppealNotAdmitted,
}

// TableFromLabels builds a Table from the label form used in the rules
// configuration file (code number to verdict label)
func TableFromLabels(labels map[int]string, reformCode int) (Table, error) {
	t := Table{
		Verdicts:   make(map[int]docket.Verdict, len(labels)),
		ReformCode: reformCode,
	}
	for code, label := range labels {
		v, ok := verdictLabels[label]
		if !ok {
			return Table{}, fmt.Errorf("unknown verdict label %q for code %d", label, code)
		}
		t.Verdicts[code] = v
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}
