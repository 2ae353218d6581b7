// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strings"

	"docket-scan/internal/docket"
	"docket-scan/internal/formatters"
	"docket-scan/internal/formatters/shared"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

// Format renders one flat row per chain, with residual records
// appended as rows whose confidence column reads RESIDUAL.
func (f *Formatter) Format(run *docket.Run, options formatters.FormatterOptions) (string, error) {
	view := shared.BuildView(run, options)

	headers := []string{"Chain ID", "Case Number", "Tiers", "Courts", "Favorable", "Confidence", "Status", "Appellants", "Link Methods"}
	if options.Verbose {
		headers = append(headers, "Records")
	}

	csvRows := []string{strings.Join(headers, ",")}

	for i := range view.Cases {
		csvRows = append(csvRows, f.createChainRow(&view.Cases[i], options))
	}
	for i := range view.Residuals {
		csvRows = append(csvRows, f.createResidualRow(&view.Residuals[i], options))
	}

	return strings.Join(csvRows, "\n"), nil
}

// createChainRow creates a CSV row for a reconciled chain
func (f *Formatter) createChainRow(c *docket.ReconciledCase, options formatters.FormatterOptions) string {
	row := []string{
		f.escapeCSVField(c.Chain.ID),
		f.escapeCSVField(shared.ChainNumber(c)),
		f.escapeCSVField(shared.TierPath(c)),
		f.escapeCSVField(shared.Courts(c)),
		f.escapeCSVField(c.Outcome.FinalFavorable.String()),
		f.escapeCSVField(c.Outcome.Confidence.String()),
		f.escapeCSVField(c.Outcome.Status),
		f.escapeCSVField(shared.Appellants(&c.Outcome)),
		f.escapeCSVField(shared.LinkMethods(c)),
	}
	if options.Verbose {
		row = append(row, f.escapeCSVField(f.describeRecords(c)))
	}
	return strings.Join(row, ",")
}

// createResidualRow creates a CSV row for an ungrouped record
func (f *Formatter) createResidualRow(r *docket.Residual, options formatters.FormatterOptions) string {
	row := []string{
		"",
		f.escapeCSVField(r.Record.RawNumber),
		f.escapeCSVField(r.Record.Tier.String()),
		f.escapeCSVField(r.Record.Court),
		"",
		"RESIDUAL",
		f.escapeCSVField(r.Reason),
		"",
		"",
	}
	if options.Verbose {
		row = append(row, "")
	}
	return strings.Join(row, ",")
}

// describeRecords summarizes the chain members for the verbose column
func (f *Formatter) describeRecords(c *docket.ReconciledCase) string {
	parts := make([]string, 0, len(c.Chain.Records))
	for i := range c.Chain.Records {
		r := &c.Chain.Records[i]
		parts = append(parts, fmt.Sprintf("%s@%s (%d movements)", r.RawNumber, r.Tier.String(), len(r.Movements)))
	}
	return strings.Join(parts, "; ")
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	if strings.Contains(field, ",") || strings.Contains(field, "\"") || strings.Contains(field, "\n") || strings.Contains(field, "\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prevents CSV injection attacks by sanitizing formula characters
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		return "'" + field
	}

	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
