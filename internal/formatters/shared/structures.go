// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"strings"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"
)

// BuildView returns a display copy of the run: cases narrowed to the
// selected confidence levels and case numbers masked when requested.
// The source run is never modified. Stats are kept as the engine
// produced them; they describe the run, not the filtered view.
func BuildView(run *docket.Run, options formatters.FormatterOptions) *docket.Run {
	view := *run
	view.Cases = FilterCases(run.Cases, options)
	if options.Mask != nil {
		view.Cases = maskCases(view.Cases, options.Mask)
		view.Residuals = maskResiduals(run.Residuals, options.Mask)
	}
	return &view
}

// FilterCases filters reconciled cases based on confidence level
// settings. A nil or empty map shows everything.
func FilterCases(cases []docket.ReconciledCase, options formatters.FormatterOptions) []docket.ReconciledCase {
	if len(options.Confidence) == 0 {
		return cases
	}
	var filtered []docket.ReconciledCase
	for i := range cases {
		label := strings.ToLower(cases[i].Outcome.Confidence.String())
		if options.Confidence[label] {
			filtered = append(filtered, cases[i])
		}
	}
	return filtered
}

// maskCases rewrites every case number through the mask, copying the
// record and link slices so the caller's run stays intact. Link keys
// carry the same digits as the numbers, so they are masked too.
func maskCases(cases []docket.ReconciledCase, mask func(string) string) []docket.ReconciledCase {
	out := make([]docket.ReconciledCase, len(cases))
	for i := range cases {
		out[i] = cases[i]

		records := make([]docket.CaseRecord, len(cases[i].Chain.Records))
		copy(records, cases[i].Chain.Records)
		for j := range records {
			records[j].RawNumber = mask(records[j].RawNumber)
		}
		out[i].Chain.Records = records

		if len(cases[i].Chain.Links) > 0 {
			links := make([]docket.LinkInfo, len(cases[i].Chain.Links))
			copy(links, cases[i].Chain.Links)
			for j := range links {
				if links[j].Key != "" {
					links[j].Key = mask(links[j].Key)
				}
			}
			out[i].Chain.Links = links
		}
	}
	return out
}

func maskResiduals(residuals []docket.Residual, mask func(string) string) []docket.Residual {
	out := make([]docket.Residual, len(residuals))
	copy(out, residuals)
	for i := range out {
		out[i].Record.RawNumber = mask(out[i].Record.RawNumber)
	}
	return out
}

// ChainNumber returns the display number of a chain, taken from its
// lowest-tier record.
func ChainNumber(c *docket.ReconciledCase) string {
	if len(c.Chain.Records) == 0 {
		return ""
	}
	return c.Chain.Records[0].RawNumber
}

// TierPath joins the tiers present in the chain, in rank order.
func TierPath(c *docket.ReconciledCase) string {
	tiers := c.Chain.Tiers()
	parts := make([]string, 0, len(tiers))
	for _, t := range tiers {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ">")
}

// Courts joins the distinct courts of the chain in record order.
func Courts(c *docket.ReconciledCase) string {
	var parts []string
	seen := map[string]bool{}
	for i := range c.Chain.Records {
		court := c.Chain.Records[i].Court
		if court == "" || seen[court] {
			continue
		}
		seen[court] = true
		parts = append(parts, court)
	}
	return strings.Join(parts, "/")
}

// Appellants joins the appellant of every evaluated step in step order.
func Appellants(o *docket.ResolvedOutcome) string {
	if len(o.WhoAppealed) == 0 {
		return ""
	}
	parts := make([]string, 0, len(o.WhoAppealed))
	for _, step := range o.WhoAppealed {
		parts = append(parts, step.Appellant.String())
	}
	return strings.Join(parts, ",")
}

// LinkMethods joins the distinct link methods that built the chain.
func LinkMethods(c *docket.ReconciledCase) string {
	var parts []string
	seen := map[string]bool{}
	for _, link := range c.Chain.Links {
		label := link.Method.String()
		if seen[label] {
			continue
		}
		seen[label] = true
		parts = append(parts, label)
	}
	return strings.Join(parts, ",")
}
