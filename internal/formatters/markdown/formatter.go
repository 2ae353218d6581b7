// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package markdown

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"
	"docket-scan/internal/formatters/shared"
)

// Formatter implements Markdown report formatting
type Formatter struct{}

// NewFormatter creates a new markdown formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "markdown"
}

func (f *Formatter) Description() string {
	return "Markdown report with outcome and completeness tables"
}

func (f *Formatter) FileExtension() string {
	return ".md"
}

func (f *Formatter) Format(run *docket.Run, options formatters.FormatterOptions) (string, error) {
	view := shared.BuildView(run, options)

	var builder strings.Builder

	builder.WriteString("# Reconciliation Run\n\n")
	fmt.Fprintf(&builder, "- **Run ID:** %s\n", view.ID)
	fmt.Fprintf(&builder, "- **Rules version:** %s\n", view.RulesVersion)
	if !view.StartedAt.IsZero() {
		fmt.Fprintf(&builder, "- **Started:** %s\n", view.StartedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&builder, "- **Duration:** %dms\n", view.DurationMS)

	builder.WriteString("\n## Outcomes\n\n")
	if len(view.Cases) == 0 {
		if len(run.Cases) > 0 {
			builder.WriteString("No chains at the specified confidence levels.\n")
		} else {
			builder.WriteString("No case chains reconciled.\n")
		}
	} else {
		f.appendOutcomeTable(&builder, view.Cases)
	}

	if options.Verbose && len(view.Cases) > 0 {
		builder.WriteString("\n## Chain Details\n")
		for i := range view.Cases {
			f.appendChainDetail(&builder, &view.Cases[i])
		}
	}

	builder.WriteString("\n## Completeness\n\n")
	f.appendStatsTable(&builder, view.Stats)

	builder.WriteString("\n## Residuals\n\n")
	if len(view.Residuals) == 0 {
		builder.WriteString("None.\n")
	} else {
		f.appendResidualTable(&builder, view.Residuals)
	}

	return builder.String(), nil
}

func (f *Formatter) appendOutcomeTable(builder *strings.Builder, cases []docket.ReconciledCase) {
	builder.WriteString("| Chain | Case Number | Tiers | Courts | Favorable | Confidence | Status | Appellants |\n")
	builder.WriteString("|---|---|---|---|---|---|---|---|\n")
	for i := range cases {
		c := &cases[i]
		fmt.Fprintf(builder, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			escapeCell(c.Chain.ID),
			escapeCell(shared.ChainNumber(c)),
			escapeCell(shared.TierPath(c)),
			escapeCell(shared.Courts(c)),
			c.Outcome.FinalFavorable.String(),
			c.Outcome.Confidence.String(),
			escapeCell(c.Outcome.Status),
			escapeCell(shared.Appellants(&c.Outcome)))
	}
}

func (f *Formatter) appendChainDetail(builder *strings.Builder, c *docket.ReconciledCase) {
	fmt.Fprintf(builder, "\n### %s\n\n", c.Chain.ID)
	for i := range c.Chain.Records {
		r := &c.Chain.Records[i]
		fmt.Fprintf(builder, "- **%s** `%s`", r.Tier.String(), r.RawNumber)
		if r.Court != "" {
			fmt.Fprintf(builder, " at %s", escapeCell(r.Court))
		}
		if !r.FiledDate.IsZero() {
			fmt.Fprintf(builder, ", filed %s", r.FiledDate.Format("2006-01-02"))
		}
		if i < len(c.Chain.Links) && c.Chain.Links[i].Method != docket.LinkNone {
			fmt.Fprintf(builder, " (linked by %s)", c.Chain.Links[i].Method.String())
		}
		builder.WriteString("\n")
		if len(r.Movements) > 0 {
			codes := make([]string, 0, len(r.Movements))
			for _, m := range r.Movements {
				codes = append(codes, fmt.Sprintf("%d", m.Code))
			}
			fmt.Fprintf(builder, "  - movements: %s\n", strings.Join(codes, ", "))
		}
	}
	for _, step := range c.Outcome.WhoAppealed {
		inferred := ""
		if step.Inferred {
			inferred = ", inferred"
		}
		fmt.Fprintf(builder, "- appeal %s to %s by %s: favorable %s%s\n",
			step.FromTier.String(), step.ToTier.String(), step.Appellant.String(),
			step.Favorable.String(), inferred)
	}
	fmt.Fprintf(builder, "- outcome: **%s** (%s confidence), %s\n",
		c.Outcome.FinalFavorable.String(), c.Outcome.Confidence.String(), c.Outcome.Status)
}

// appendStatsTable renders the run counters exactly as the engine
// produced them. The tables describe the run, not the filtered view.
func (f *Formatter) appendStatsTable(builder *strings.Builder, stats docket.Stats) {
	builder.WriteString("| Metric | Count |\n")
	builder.WriteString("|---|---|\n")
	fmt.Fprintf(builder, "| Total records | %d |\n", stats.TotalRecords)
	fmt.Fprintf(builder, "| Malformed | %d |\n", stats.Malformed)
	fmt.Fprintf(builder, "| Grouped into multi-tier chains | %d |\n", stats.Grouped)
	fmt.Fprintf(builder, "| Chains | %d |\n", stats.Chains)
	fmt.Fprintf(builder, "| Residual records | %d |\n", stats.Residuals)
	for _, label := range []string{"HIGH", "MEDIUM", "LOW"} {
		if n, ok := stats.ByConfidence[label]; ok {
			fmt.Fprintf(builder, "| Confidence %s | %d |\n", label, n)
		}
	}
	methods := make([]string, 0, len(stats.ByLinkMethod))
	for method := range stats.ByLinkMethod {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	for _, method := range methods {
		fmt.Fprintf(builder, "| Linked by %s | %d |\n", method, stats.ByLinkMethod[method])
	}
	fmt.Fprintf(builder, "| Employee favorable | %d |\n", stats.FavorableYes)
	fmt.Fprintf(builder, "| Employee unfavorable | %d |\n", stats.FavorableNo)
	fmt.Fprintf(builder, "| Outcome unknown | %d |\n", stats.FavorableOther)
	fmt.Fprintf(builder, "| Reformed, unconfirmed | %d |\n", stats.ReformOnly)
}

func (f *Formatter) appendResidualTable(builder *strings.Builder, residuals []docket.Residual) {
	builder.WriteString("| Case Number | Tier | Court | Reason |\n")
	builder.WriteString("|---|---|---|---|\n")
	for i := range residuals {
		r := &residuals[i]
		fmt.Fprintf(builder, "| %s | %s | %s | %s |\n",
			escapeCell(r.Record.RawNumber),
			r.Record.Tier.String(),
			escapeCell(r.Record.Court),
			escapeCell(r.Reason))
	}
}

// escapeCell makes a value safe inside a markdown table cell
func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
