// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package mask pseudonymizes case numbers for published output. Case
// numbers identify the parties through the public registries, so
// LGPD-conscious deployments mask them before results leave the
// machine. Masking applies to the display copy only; stored runs keep
// the real numbers.
package mask

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"docket-scan/internal/cnj"
	"docket-scan/internal/security"
)

// Strategy selects how case numbers are rewritten.
type Strategy int

const (
	// StrategySimple replaces the whole number with a fixed token
	StrategySimple Strategy = iota
	// StrategyFormatPreserving stars the identifying segments and keeps
	// the year, branch, and court so aggregate analysis still works
	StrategyFormatPreserving
	// StrategySynthetic derives a deterministic fake number with valid
	// check digits from a hash of the original
	StrategySynthetic
)

// String returns the label used in flags and logs
func (s Strategy) String() string {
	switch s {
	case StrategyFormatPreserving:
		return "format-preserving"
	case StrategySynthetic:
		return "synthetic"
	default:
		return "simple"
	}
}

// ParseStrategy maps a flag value to its Strategy
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "simple":
		return StrategySimple, true
	case "format", "format-preserving", "format_preserving":
		return StrategyFormatPreserving, true
	case "synthetic":
		return StrategySynthetic, true
	default:
		return StrategySimple, false
	}
}

// simpleToken is the fixed replacement of the simple strategy
const simpleToken = "[CASE-NUMBER-MASKED]"

// Masker rewrites case numbers under one strategy. It is pure and safe
// for concurrent use; the same input always yields the same output.
type Masker struct {
	strategy   Strategy
	normalizer *cnj.Normalizer
}

// New creates a Masker for the given strategy
func New(strategy Strategy) *Masker {
	return &Masker{
		strategy:   strategy,
		normalizer: cnj.NewNormalizer(),
	}
}

// Strategy returns the strategy this masker applies
func (m *Masker) Strategy() Strategy {
	return m.strategy
}

// Mask rewrites one case number. The signature matches the formatter
// options hook, so a Masker wires in as options.Mask = masker.Mask.
func (m *Masker) Mask(raw string) string {
	switch m.strategy {
	case StrategyFormatPreserving:
		return m.formatPreserving(raw)
	case StrategySynthetic:
		return m.synthetic(raw)
	default:
		return simpleToken
	}
}

// formatPreserving stars the sequential, check-digit, and origin
// segments and keeps year, branch, and court along with the original
// punctuation. Inputs without a full 20-digit number cannot be split
// into segments, so every digit is starred.
func (m *Masker) formatPreserving(raw string) string {
	num, ok := m.normalizer.Parse(raw)
	if !ok {
		return starAllDigits(raw)
	}

	keepStart := len(num.Sequential) + len(num.CheckDigits)
	keepEnd := keepStart + len(num.Year) + len(num.Branch) + len(num.Court)

	var b strings.Builder
	b.Grow(len(raw))
	digitIndex := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			b.WriteRune(r)
			continue
		}
		if digitIndex >= keepStart && digitIndex < keepEnd {
			b.WriteRune(r)
		} else {
			b.WriteRune('*')
		}
		digitIndex++
	}
	return b.String()
}

// synthetic replaces the sequential and origin segments with digits
// derived from a SHA-256 of the original number, then recomputes the
// check digits so the result passes structural validation. Year,
// branch, and court are preserved. Unparseable inputs fall back to the
// format-preserving strategy.
func (m *Masker) synthetic(raw string) string {
	num, ok := m.normalizer.Parse(raw)
	if !ok {
		return m.formatPreserving(raw)
	}

	buf := []byte(m.normalizer.Digits(raw)[:cnj.FullLength])
	sum := sha256.Sum256(buf)
	security.SecureWipe(buf)

	num.Sequential = fmt.Sprintf("%07d", binary.BigEndian.Uint64(sum[:8])%10000000)
	num.Origin = fmt.Sprintf("%04d", binary.BigEndian.Uint32(sum[8:12])%10000)
	num.CheckDigits = m.normalizer.ComputeCheckDigits(num)
	security.SecureWipe(sum[:])

	if digitsOnly(raw) {
		return num.Sequential + num.CheckDigits + num.Year + num.Branch + num.Court + num.Origin
	}
	return m.normalizer.Format(num)
}

func starAllDigits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune('*')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func digitsOnly(raw string) bool {
	if raw == "" {
		return false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
