// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package docket

import (
	"strings"
)

// The enum types marshal as their canonical labels in JSON and YAML
// output. Decoding is label-based and permissive: an unrecognized
// label becomes the zero value, so archived runs never fail to load
// over a label the current build no longer emits.

// MarshalText renders the tier as its canonical label
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the canonical labels plus the registry grade
// variants ParseTier knows
func (t *Tier) UnmarshalText(b []byte) error {
	tier, _ := ParseTier(string(b))
	*t = tier
	return nil
}

// MarshalText renders the party as its canonical label
func (p Party) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText maps a party label back to its value
func (p *Party) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "EMPLOYEE":
		*p = PartyEmployee
	case "EMPLOYER":
		*p = PartyEmployer
	default:
		*p = PartyUnknown
	}
	return nil
}

// MarshalText renders the favorability as its canonical label
func (f Favorability) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText maps a favorability label back to its value
func (f *Favorability) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "YES":
		*f = FavorableYes
	case "NO":
		*f = FavorableNo
	default:
		*f = FavorableUnknown
	}
	return nil
}

// MarshalText renders the confidence as its canonical label
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText maps a confidence label back to its value
func (c *Confidence) UnmarshalText(b []byte) error {
	conf, _ := ParseConfidence(string(b))
	*c = conf
	return nil
}

// MarshalText renders the link method as its canonical label
func (m LinkMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText maps a link method label back to its value
func (m *LinkMethod) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "exact":
		*m = LinkExact
	case "fallback":
		*m = LinkFallback
	case "residual":
		*m = LinkResidual
	case "override":
		*m = LinkOverride
	default:
		*m = LinkNone
	}
	return nil
}

// MarshalText renders the verdict as its canonical label
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText maps a verdict label back to its value
func (v *Verdict) UnmarshalText(b []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(b))) {
	case "CLAIM_GRANTED":
		*v = VerdictClaimGranted
	case "CLAIM_DENIED":
		*v = VerdictClaimDenied
	case "CLAIM_PARTIALLY_GRANTED":
		*v = VerdictClaimPartiallyGranted
	case "APPEAL_GRANTED":
		*v = VerdictAppealGranted
	case "APPEAL_PARTIALLY_GRANTED":
		*v = VerdictAppealPartiallyGranted
	case "APPEAL_DENIED":
		*v = VerdictAppealDenied
	case "APPEAL_NOT_ADMITTED":
		*v = VerdictAppealNotAdmitted
	default:
		*v = VerdictNone
	}
	return nil
}
