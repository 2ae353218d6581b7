// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"

	"docket-scan/internal/cnj"
	"docket-scan/internal/config"
	"docket-scan/internal/grouper"
	"docket-scan/internal/movement"
	"docket-scan/internal/resolver"
	"docket-scan/internal/similarity"
)

// BuildComponents constructs the grouping and resolution stages from a
// rule set. Pass a zero-value RulesConfig to get the built-in CNJ
// defaults. Every tunable (threshold, weights, code table, keyword
// lists) comes from the rules, never from package constants.
func BuildComponents(rules config.RulesConfig) (*grouper.Grouper, *resolver.Resolver, error) {
	if rules.Version == "" {
		rules = config.DefaultRules()
	}

	table, err := movement.TableFromLabels(rules.MovementCodes, rules.ReformCode)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid movement code table: %w", err)
	}

	scorer := similarity.NewScorer(similarity.Weights{
		Sequential: rules.Weights.Sequential,
		Year:       rules.Weights.Year,
		Branch:     rules.Weights.Branch,
	}, rules.SimilarityThreshold)

	g := grouper.New(cnj.NewNormalizer(), scorer)

	r := resolver.New(movement.NewInterpreter(table))
	if len(rules.SubjectKeywords.Employee) > 0 || len(rules.SubjectKeywords.Employer) > 0 {
		r.SetKeywords(resolver.Keywords{
			Employee: rules.SubjectKeywords.Employee,
			Employer: rules.SubjectKeywords.Employer,
		})
	}

	return g, r, nil
}
