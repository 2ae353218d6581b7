// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"
	"docket-scan/internal/formatters/shared"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"blue":    color.New(color.FgBlue),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) Format(run *docket.Run, options formatters.FormatterOptions) (string, error) {
	// Disable colors if requested
	if options.NoColor {
		color.NoColor = true
	}

	view := shared.BuildView(run, options)

	if len(view.Cases) == 0 && len(view.Residuals) == 0 {
		if len(run.Cases) > 0 {
			return "No chains at the specified confidence levels.\n" + f.formatSummary(view), nil
		}
		return "No case chains reconciled.\n" + f.formatSummary(view), nil
	}

	var builder strings.Builder

	if options.Verbose {
		for i := range view.Cases {
			f.appendDetailedChain(&builder, &view.Cases[i], options)
		}
	} else if len(view.Cases) > 0 {
		f.appendHeaders(&builder, view.Cases, options)
		for i := range view.Cases {
			f.appendSummaryLine(&builder, &view.Cases[i], view.Cases, options)
		}
	}

	if len(view.Residuals) > 0 {
		f.appendResiduals(&builder, view.Residuals, options)
	}

	builder.WriteString("\n")
	builder.WriteString(f.formatSummary(view))

	return builder.String(), nil
}

// appendHeaders adds column headers to the string builder
func (f *Formatter) appendHeaders(builder *strings.Builder, cases []docket.ReconciledCase, options formatters.FormatterOptions) {
	numberWidth := f.calculateNumberColumnWidth(cases)
	tierWidth := f.calculateTierColumnWidth(cases)

	headerStr := fmt.Sprintf("%-8s %-11s %-7s %-*s %-*s %s\n",
		"CONF", "CHAIN", "WINNER", numberWidth, "CASE NUMBER", tierWidth, "TIERS", "STATUS")
	if !options.NoColor {
		headerStr = f.colors["white"].Sprintf("%-8s %-11s %-7s %-*s %-*s %s\n",
			"CONF", "CHAIN", "WINNER", numberWidth, "CASE NUMBER", tierWidth, "TIERS", "STATUS")
	}
	builder.WriteString(headerStr)

	totalWidth := 8 + 1 + 11 + 1 + 7 + 1 + numberWidth + 1 + tierWidth + 1 + 12
	separator := strings.Repeat("-", totalWidth) + "\n"
	if !options.NoColor {
		separator = f.colors["white"].Sprint(strings.Repeat("-", totalWidth) + "\n")
	}
	builder.WriteString(separator)
}

// calculateNumberColumnWidth calculates the optimal width for the case number column
func (f *Formatter) calculateNumberColumnWidth(cases []docket.ReconciledCase) int {
	maxWidth := 11 // Minimum width for the header
	for i := range cases {
		runeCount := len([]rune(shared.ChainNumber(&cases[i])))
		if runeCount > maxWidth {
			maxWidth = runeCount
		}
	}
	if maxWidth > 30 {
		maxWidth = 30
	}
	return maxWidth
}

// calculateTierColumnWidth calculates the optimal width for the tier path column
func (f *Formatter) calculateTierColumnWidth(cases []docket.ReconciledCase) int {
	maxWidth := 5
	for i := range cases {
		runeCount := len([]rune(shared.TierPath(&cases[i])))
		if runeCount > maxWidth {
			maxWidth = runeCount
		}
	}
	if maxWidth > 42 {
		maxWidth = 42
	}
	return maxWidth
}

// appendSummaryLine adds a single line summary to the string builder
func (f *Formatter) appendSummaryLine(builder *strings.Builder, c *docket.ReconciledCase, allCases []docket.ReconciledCase, options formatters.FormatterOptions) {
	confLabel := c.Outcome.Confidence.String()
	levelStr := fmt.Sprintf("[%-6s]", confLabel)
	if !options.NoColor {
		levelStr = f.confidenceColor(c.Outcome.Confidence).Sprintf("[%-6s]", confLabel)
	}

	chainStr := fmt.Sprintf("%-11s", c.Chain.ID)
	if !options.NoColor {
		chainStr = f.colors["cyan"].Sprintf("%-11s", c.Chain.ID)
	}

	favorLabel := c.Outcome.FinalFavorable.String()
	favorStr := fmt.Sprintf("%-7s", favorLabel)
	if !options.NoColor {
		favorStr = f.favorableColor(c.Outcome.FinalFavorable).Sprintf("%-7s", favorLabel)
	}

	numberWidth := f.calculateNumberColumnWidth(allCases)
	number := shared.ChainNumber(c)
	runes := []rune(number)
	if len(runes) > numberWidth {
		number = string(runes[:numberWidth-3]) + "..."
	}
	numberStr := fmt.Sprintf("%-*s", numberWidth, number)
	if !options.NoColor {
		numberStr = f.colors["white"].Sprintf("%-*s", numberWidth, number)
	}

	tierWidth := f.calculateTierColumnWidth(allCases)
	tierStr := fmt.Sprintf("%-*s", tierWidth, shared.TierPath(c))
	if !options.NoColor {
		tierStr = f.colors["magenta"].Sprintf("%-*s", tierWidth, shared.TierPath(c))
	}

	status := c.Outcome.Status
	if appellants := shared.Appellants(&c.Outcome); appellants != "" {
		status = fmt.Sprintf("%s (appealed: %s)", status, appellants)
	}

	fmt.Fprintf(builder, "%s %s %s %s %s %s\n",
		levelStr, chainStr, favorStr, numberStr, tierStr, status)
}

// appendDetailedChain adds detailed chain information to the string builder
func (f *Formatter) appendDetailedChain(builder *strings.Builder, c *docket.ReconciledCase, options formatters.FormatterOptions) {
	if !options.NoColor {
		f.colors["white"].Fprintf(builder, "=== Chain %s ===\n", c.Chain.ID)
	} else {
		fmt.Fprintf(builder, "=== Chain %s ===\n", c.Chain.ID)
	}

	if !options.NoColor {
		f.colors["cyan"].Fprintf(builder, "Case number: ")
		f.colors["white"].Fprintf(builder, "%s\n", shared.ChainNumber(c))
	} else {
		fmt.Fprintf(builder, "Case number: %s\n", shared.ChainNumber(c))
	}

	for i := range c.Chain.Records {
		r := &c.Chain.Records[i]
		link := ""
		if i < len(c.Chain.Links) {
			link = c.Chain.Links[i].Method.String()
			if c.Chain.Links[i].Score > 0 {
				link = fmt.Sprintf("%s score=%.2f", link, c.Chain.Links[i].Score)
			}
		}
		filed := ""
		if !r.FiledDate.IsZero() {
			filed = r.FiledDate.Format("2006-01-02")
		}
		if !options.NoColor {
			f.colors["magenta"].Fprintf(builder, "  %-14s", r.Tier.String())
			fmt.Fprintf(builder, " %s", r.RawNumber)
			if r.Court != "" {
				fmt.Fprintf(builder, " (%s)", r.Court)
			}
			if filed != "" {
				fmt.Fprintf(builder, " filed %s", filed)
			}
			if link != "" {
				f.colors["blue"].Fprintf(builder, " [%s]", link)
			}
			fmt.Fprintln(builder)
		} else {
			fmt.Fprintf(builder, "  %-14s %s", r.Tier.String(), r.RawNumber)
			if r.Court != "" {
				fmt.Fprintf(builder, " (%s)", r.Court)
			}
			if filed != "" {
				fmt.Fprintf(builder, " filed %s", filed)
			}
			if link != "" {
				fmt.Fprintf(builder, " [%s]", link)
			}
			fmt.Fprintln(builder)
		}

		if len(r.Movements) > 0 {
			codes := make([]string, 0, len(r.Movements))
			for _, m := range r.Movements {
				codes = append(codes, fmt.Sprintf("%d", m.Code))
			}
			fmt.Fprintf(builder, "    movements: %s\n", strings.Join(codes, ", "))
		}
	}

	for _, step := range c.Outcome.WhoAppealed {
		inferred := ""
		if step.Inferred {
			inferred = " (inferred)"
		}
		if !options.NoColor {
			f.colors["cyan"].Fprintf(builder, "Appeal: ")
			fmt.Fprintf(builder, "%s to %s by %s, favorable %s%s\n",
				step.FromTier.String(), step.ToTier.String(), step.Appellant.String(), step.Favorable.String(), inferred)
		} else {
			fmt.Fprintf(builder, "Appeal: %s to %s by %s, favorable %s%s\n",
				step.FromTier.String(), step.ToTier.String(), step.Appellant.String(), step.Favorable.String(), inferred)
		}
	}

	if !options.NoColor {
		f.colors["cyan"].Fprintf(builder, "Outcome: ")
		f.favorableColor(c.Outcome.FinalFavorable).Fprintf(builder, "%s ", c.Outcome.FinalFavorable.String())
		f.confidenceColor(c.Outcome.Confidence).Fprintf(builder, "(%s confidence) ", c.Outcome.Confidence.String())
		fmt.Fprintf(builder, "%s\n", c.Outcome.Status)
	} else {
		fmt.Fprintf(builder, "Outcome: %s (%s confidence) %s\n",
			c.Outcome.FinalFavorable.String(), c.Outcome.Confidence.String(), c.Outcome.Status)
	}

	if len(c.Outcome.Reform) > 0 {
		fmt.Fprintf(builder, "Reform attachments:\n")
		for k, v := range c.Outcome.Reform {
			fmt.Fprintf(builder, "- %s: %s\n", k, v)
		}
	}

	fmt.Fprintln(builder)
}

// appendResiduals adds the ungrouped record section
func (f *Formatter) appendResiduals(builder *strings.Builder, residuals []docket.Residual, options formatters.FormatterOptions) {
	title := "Residual records:\n"
	if !options.NoColor {
		title = f.colors["white"].Sprint("Residual records:\n")
	}
	builder.WriteString("\n")
	builder.WriteString(title)

	for i := range residuals {
		r := &residuals[i]
		court := r.Record.Court
		if court == "" {
			court = "unknown court"
		}
		if !options.NoColor {
			f.colors["yellow"].Fprintf(builder, "  [RESIDUAL]")
			fmt.Fprintf(builder, " %s (%s, %s): %s\n", r.Record.RawNumber, r.Record.Tier.String(), court, r.Reason)
		} else {
			fmt.Fprintf(builder, "  [RESIDUAL] %s (%s, %s): %s\n", r.Record.RawNumber, r.Record.Tier.String(), court, r.Reason)
		}
	}
}

// formatSummary renders the run counters block
func (f *Formatter) formatSummary(run *docket.Run) string {
	var builder strings.Builder

	stats := run.Stats
	fmt.Fprintf(&builder, "Run %s (rules %s, %dms)\n", run.ID, run.RulesVersion, run.DurationMS)
	fmt.Fprintf(&builder, "Records: %d total, %d malformed, %d grouped into multi-tier chains\n",
		stats.TotalRecords, stats.Malformed, stats.Grouped)
	fmt.Fprintf(&builder, "Chains: %d (%d residual records)\n", stats.Chains, stats.Residuals)

	if len(stats.ByConfidence) > 0 {
		parts := make([]string, 0, 3)
		for _, label := range []string{"HIGH", "MEDIUM", "LOW"} {
			if n, ok := stats.ByConfidence[label]; ok {
				parts = append(parts, fmt.Sprintf("%d %s", n, label))
			}
		}
		if len(parts) > 0 {
			fmt.Fprintf(&builder, "Confidence: %s\n", strings.Join(parts, ", "))
		}
	}

	fmt.Fprintf(&builder, "Employee favorable: %d yes, %d no, %d unknown, %d reformed unconfirmed\n",
		stats.FavorableYes, stats.FavorableNo, stats.FavorableOther, stats.ReformOnly)

	return builder.String()
}

// confidenceColor maps a confidence level to its display color
func (f *Formatter) confidenceColor(c docket.Confidence) *color.Color {
	switch c {
	case docket.ConfidenceHigh:
		return f.colors["green"]
	case docket.ConfidenceMedium:
		return f.colors["yellow"]
	default:
		return f.colors["red"]
	}
}

// favorableColor maps a favorability to its display color
func (f *Formatter) favorableColor(v docket.Favorability) *color.Color {
	switch v {
	case docket.FavorableYes:
		return f.colors["green"]
	case docket.FavorableNo:
		return f.colors["red"]
	default:
		return f.colors["yellow"]
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
