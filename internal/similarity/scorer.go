// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package similarity scores how likely two case numbers refer to the
// same lawsuit when exact-key matching fails.
package similarity

import (
	"docket-scan/internal/cnj"
)

// DefaultThreshold is the minimum score for a candidate match
const DefaultThreshold = 0.8

// Weights control the structured comparison. The sequential segment
// identifies the lawsuit and carries the largest weight; year is
// secondary; the branch digit is a minor corroboration.
type Weights struct {
	Sequential float64 `yaml:"sequential"`
	Year       float64 `yaml:"year"`
	Branch     float64 `yaml:"branch"`
}

// DefaultWeights returns the standard segment weights
func DefaultWeights() Weights {
	return Weights{Sequential: 5, Year: 3, Branch: 2}
}

// total returns the weight denominator
func (w Weights) total() float64 {
	return w.Sequential + w.Year + w.Branch
}

// Scorer computes bounded similarity scores between case numbers.
// Pure and safe for concurrent use.
type Scorer struct {
	normalizer *cnj.Normalizer
	weights    Weights
	threshold  float64
}

// NewScorer creates a Scorer with the given weights and candidate
// threshold
func NewScorer(weights Weights, threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{
		normalizer: cnj.NewNormalizer(),
		weights:    weights,
		threshold:  threshold,
	}
}

// NewDefaultScorer creates a Scorer with default weights and threshold
func NewDefaultScorer() *Scorer {
	return NewScorer(DefaultWeights(), DefaultThreshold)
}

// Threshold returns the candidate threshold
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score returns a similarity in [0,1] between two raw case numbers
func (s *Scorer) Score(a, b string) float64 {
	score, _ := s.ScoreDetail(a, b)
	return score
}

// Candidate reports whether a score clears the threshold
func (s *Scorer) Candidate(score float64) bool {
	return score >= s.threshold
}

// ScoreDetail returns the score plus the named comparison results,
// used when an ambiguous match decision has to be logged.
//
// When both numbers parse into the structured format the score is the
// matched weight over the total weight. Otherwise it falls back to the
// longest common substring of the digit strings, normalized by the
// shorter length.
func (s *Scorer) ScoreDetail(a, b string) (float64, map[string]bool) {
	checks := map[string]bool{
		"structured":       false,
		"sequential_match": false,
		"year_match":       false,
		"branch_match":     false,
		"lcs_fallback":     false,
	}

	numA, okA := s.normalizer.Parse(a)
	numB, okB := s.normalizer.Parse(b)
	if okA && okB {
		checks["structured"] = true
		matched := 0.0
		if numA.Sequential == numB.Sequential {
			matched += s.weights.Sequential
			checks["sequential_match"] = true
		}
		if numA.Year == numB.Year {
			matched += s.weights.Year
			checks["year_match"] = true
		}
		if numA.Branch == numB.Branch {
			matched += s.weights.Branch
			checks["branch_match"] = true
		}
		return matched / s.weights.total(), checks
	}

	checks["lcs_fallback"] = true
	da, db := s.normalizer.Digits(a), s.normalizer.Digits(b)
	shorter := len(da)
	if len(db) < shorter {
		shorter = len(db)
	}
	if shorter == 0 {
		return 0, checks
	}
	return float64(longestCommonSubstring(da, db)) / float64(shorter), checks
}

// longestCommonSubstring computes the longest common substring length
// with the classic O(n*m) dynamic-programming table
func longestCommonSubstring(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return best
}
