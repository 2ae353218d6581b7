// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package similarity

import (
	"testing"
)

func TestScore_AllSegmentsMatch(t *testing.T) {
	s := NewDefaultScorer()
	// Same sequential, year, branch; different court and origin
	got := s.Score("00123456720208020001", "00123456720208990099")
	if got != 1.0 {
		t.Errorf("score = %v, want 1.0", got)
	}
}

func TestScore_SequentialAndYear(t *testing.T) {
	s := NewDefaultScorer()
	// Branch differs (8 vs 5): 5+3 of 10
	got := s.Score("00123456720208020001", "00123456720205020001")
	if got != 0.8 {
		t.Errorf("score = %v, want 0.8", got)
	}
	if !s.Candidate(got) {
		t.Error("sequential+year match must clear the threshold")
	}
}

func TestScore_SequentialOnly(t *testing.T) {
	s := NewDefaultScorer()
	// Year and branch differ: 5 of 10
	got := s.Score("00123456720208020001", "00123456720215020001")
	if got != 0.5 {
		t.Errorf("score = %v, want 0.5", got)
	}
	if s.Candidate(got) {
		t.Error("sequential-only match must not clear the threshold")
	}
}

func TestScore_NothingMatches(t *testing.T) {
	s := NewDefaultScorer()
	got := s.Score("00123456720208020001", "99999999120195010001")
	if got != 0 {
		t.Errorf("score = %v, want 0", got)
	}
}

func TestScore_LCSFallback(t *testing.T) {
	s := NewDefaultScorer()
	// Short number forces the fallback; "123452020" appears whole in
	// the longer number's digits
	score, checks := s.ScoreDetail("123452020", "ref 123452020/99")
	if !checks["lcs_fallback"] {
		t.Error("expected the LCS fallback path")
	}
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0 (full shorter string contained)", score)
	}
}

func TestScore_LCSPartial(t *testing.T) {
	s := NewDefaultScorer()
	// Shorter digits "12345678" vs "12340000": common run "1234" = 4/8
	score, checks := s.ScoreDetail("12345678", "12340000")
	if !checks["lcs_fallback"] {
		t.Error("expected the LCS fallback path")
	}
	if score != 0.5 {
		t.Errorf("score = %v, want 0.5", score)
	}
}

func TestScore_EmptyDigits(t *testing.T) {
	s := NewDefaultScorer()
	if got := s.Score("sem numero", "00123456720208020001"); got != 0 {
		t.Errorf("score = %v, want 0 for digitless input", got)
	}
}

func TestScore_Symmetric(t *testing.T) {
	s := NewDefaultScorer()
	pairs := [][2]string{
		{"00123456720208020001", "00123456720205020001"},
		{"12345/2020", "00123452020"},
		{"", "123"},
	}
	for _, p := range pairs {
		ab, ba := s.Score(p[0], p[1]), s.Score(p[1], p[0])
		if ab != ba {
			t.Errorf("score(%q,%q)=%v but score(%q,%q)=%v", p[0], p[1], ab, p[1], p[0], ba)
		}
	}
}

func TestScoreDetail_ChecksNamed(t *testing.T) {
	s := NewDefaultScorer()
	_, checks := s.ScoreDetail("00123456720208020001", "00123456720205020001")
	if !checks["structured"] {
		t.Error("structured should be set for two full numbers")
	}
	if !checks["sequential_match"] || !checks["year_match"] {
		t.Error("sequential and year should match")
	}
	if checks["branch_match"] {
		t.Error("branch should not match")
	}
}

func TestLongestCommonSubstring(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"abc", "abc", 3},
		{"abcdef", "zabcy", 3},
		{"", "abc", 0},
		{"abc", "", 0},
		{"axbxc", "aybyc", 1},
	}
	for _, tc := range cases {
		if got := longestCommonSubstring(tc.a, tc.b); got != tc.want {
			t.Errorf("lcs(%q,%q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCustomThreshold(t *testing.T) {
	s := NewScorer(DefaultWeights(), 0.5)
	if !s.Candidate(0.5) {
		t.Error("score at threshold is a candidate")
	}
	if s.Candidate(0.49) {
		t.Error("score below threshold is not a candidate")
	}
}
