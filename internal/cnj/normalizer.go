// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cnj canonicalizes Brazilian CNJ case numbers
// (NNNNNNN-DD.AAAA.J.TR.OOOO) into comparable linkage keys. The same
// lawsuit is filed separately at each tier with legitimately different
// trailing segments, so keys are built from the segments that stay
// stable across tiers.
package cnj

import (
	"fmt"
	"strings"
)

// Segment boundaries of the 20-digit CNJ number.
const (
	sequentialEnd  = 7  // NNNNNNN
	checkDigitsEnd = 9  // DD
	yearEnd        = 13 // AAAA
	branchEnd      = 14 // J
	courtEnd       = 16 // TR
	originEnd      = 20 // OOOO
)

// FullLength is the digit count of a complete CNJ case number
const FullLength = originEnd

// laborBranch is the judicial-branch digit of the labor justice
const laborBranch = "5"

// Number is the structured decomposition of a full case number.
type Number struct {
	Sequential  string
	CheckDigits string
	Year        string
	Branch      string
	Court       string
	Origin      string
}

// Keys holds the candidate linkage keys for one raw case number, in
// the fixed priority order the grouper tries them.
type Keys struct {
	Primary    string
	Alternates []string
}

// All returns primary plus alternates in priority order, skipping
// empty keys
func (k Keys) All() []string {
	out := make([]string, 0, 1+len(k.Alternates))
	if k.Primary != "" {
		out = append(out, k.Primary)
	}
	for _, a := range k.Alternates {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Normalizer produces linkage keys and structured parses from raw case
// numbers. It is pure: no I/O, and the same input always yields the
// same keys.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Digits strips every non-digit character from a raw case number
func (n *Normalizer) Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize canonicalizes a raw case number into a primary key and
// alternate keys.
//
// For full-length numbers the primary key concatenates the sequential
// segment, the filing year, and the judicial-branch digit; check
// digits and the court/origin segments are excluded because they
// differ between tiers of the same lawsuit. Two alternate windowings
// raise recall when the primary key fails to link records a human
// would recognize as the same case: the middle section (check digits
// through court), and year followed by sequential. Shorter strings
// cannot be windowed and return the digit string as the only key.
func (n *Normalizer) Normalize(raw string) Keys {
	digits := n.Digits(raw)
	if len(digits) < FullLength {
		return Keys{Primary: digits}
	}
	digits = digits[:FullLength]
	return Keys{
		Primary: digits[:sequentialEnd] + digits[checkDigitsEnd:yearEnd] + digits[yearEnd:branchEnd],
		Alternates: []string{
			digits[sequentialEnd:courtEnd],
			digits[checkDigitsEnd:yearEnd] + digits[:sequentialEnd],
		},
	}
}

// Parse decomposes a raw case number into its segments. It returns
// false when fewer than 20 digits are present; extra digits beyond 20
// are ignored.
func (n *Normalizer) Parse(raw string) (Number, bool) {
	digits := n.Digits(raw)
	if len(digits) < FullLength {
		return Number{}, false
	}
	digits = digits[:FullLength]
	return Number{
		Sequential:  digits[:sequentialEnd],
		CheckDigits: digits[sequentialEnd:checkDigitsEnd],
		Year:        digits[checkDigitsEnd:yearEnd],
		Branch:      digits[yearEnd:branchEnd],
		Court:       digits[branchEnd:courtEnd],
		Origin:      digits[courtEnd:originEnd],
	}, true
}

// Format renders a Number in the canonical punctuated form
func (n *Normalizer) Format(num Number) string {
	return num.Sequential + "-" + num.CheckDigits + "." + num.Year + "." + num.Branch + "." + num.Court + "." + num.Origin
}

// Checks runs the format validations on a raw case number and returns
// the named results. Linkage never requires these to pass; they feed
// batch quality reporting.
func (n *Normalizer) Checks(raw string) map[string]bool {
	digits := n.Digits(raw)
	checks := map[string]bool{
		"has_digits":    len(digits) > 0,
		"full_length":   len(digits) >= FullLength,
		"labor_branch":  false,
		"check_digits":  false,
		"year_in_range": false,
	}
	num, ok := n.Parse(raw)
	if !ok {
		return checks
	}
	checks["labor_branch"] = num.Branch == laborBranch
	checks["check_digits"] = n.CheckDigitsValid(num)
	checks["year_in_range"] = num.Year >= "1900" && num.Year <= "2099"
	return checks
}

// CheckDigitsValid verifies the ISO 7064 MOD 97-10 check digits: the
// number rebuilt as sequential, year, branch, court, origin, check
// digits must be congruent to 1 modulo 97.
func (n *Normalizer) CheckDigitsValid(num Number) bool {
	rebuilt := num.Sequential + num.Year + num.Branch + num.Court + num.Origin + num.CheckDigits
	return mod97(rebuilt) == 1
}

// ComputeCheckDigits returns the check digits that make the other five
// segments pass CheckDigitsValid
func (n *Normalizer) ComputeCheckDigits(num Number) string {
	rebuilt := num.Sequential + num.Year + num.Branch + num.Court + num.Origin + "00"
	return fmt.Sprintf("%02d", 98-mod97(rebuilt))
}

// mod97 computes the remainder of an arbitrarily long digit string
// modulo 97 without big-integer arithmetic
func mod97(digits string) int {
	rem := 0
	for i := 0; i < len(digits); i++ {
		d := digits[i]
		if d < '0' || d > '9' {
			return -1
		}
		rem = (rem*10 + int(d-'0')) % 97
	}
	return rem
}
