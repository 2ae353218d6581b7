// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
)

var (
	// processoExpr anchors a case entry: "Processo 0001234-55.2020.5.02.0001"
	processoExpr = regexp.MustCompile(`(?i)processo\s*(?:n[º°o.]*\s*)?(\d{7}-?\d{2}\.?\d{4}\.?\d\.?\d{2}\.?\d{4})`)

	// bareNumberExpr matches a line that is nothing but a case number
	bareNumberExpr = regexp.MustCompile(`^\s*(\d{7}-?\d{2}\.?\d{4}\.?\d\.?\d{2}\.?\d{4})\s*$`)

	// movementExpr matches "Movimento: 242 - Negado seguimento"
	movementExpr = regexp.MustCompile(`(?i)^movimento[:\s]\s*(\d{1,5})`)

	// filedExpr matches "Distribuído em 15/03/2020" and the ajuizado variant
	filedExpr = regexp.MustCompile(`(?i)(?:distribu[ií]do|ajuizado)\s+em\s+(\d{2}/\d{2}/\d{4})`)

	// subjectLineExpr matches "Assunto: Horas Extras; Adicional Noturno"
	subjectLineExpr = regexp.MustCompile(`(?i)^assuntos?\s*:\s*(.+)$`)

	// movementDateExpr pulls "em 10/05/2021" off a movement line
	movementDateExpr = regexp.MustCompile(`(?i)\bem\s+(\d{2}/\d{2}/\d{4})`)
)

// GazetteReader scrapes case entries out of electronic gazette pages
// (diário eletrônico). The PDF is validated, its text extracted page
// by page, then entries are rebuilt from the line stream: a court
// header sets the tier for the entries below it, a "Processo" line
// opens an entry, and movement, subject and filing lines attach to the
// open entry.
type GazetteReader struct {
	name                string
	supportedExtensions []string
	observer            *observability.StandardObserver
	pdfConfig           *model.Configuration
}

// NewGazetteReader creates a new gazette page reader
func NewGazetteReader() *GazetteReader {
	return &GazetteReader{
		name:                "gazette",
		supportedExtensions: []string{".pdf"},
		pdfConfig:           model.NewDefaultConfiguration(),
	}
}

// SetObserver sets the observability component
func (gr *GazetteReader) SetObserver(observer *observability.StandardObserver) {
	gr.observer = observer
}

// GetName returns the name of this reader
func (gr *GazetteReader) GetName() string {
	return gr.name
}

// GetSupportedExtensions returns the file extensions this reader supports
func (gr *GazetteReader) GetSupportedExtensions() []string {
	return gr.supportedExtensions
}

// CanRead checks if this reader handles the given file
func (gr *GazetteReader) CanRead(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supportedExt := range gr.supportedExtensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

// Read parses the file into case records
func (gr *GazetteReader) Read(filePath string) ([]docket.CaseRecord, error) {
	var finishTiming func(bool, map[string]interface{})
	var finishStep func(bool, string)
	if gr.observer != nil {
		finishTiming = gr.observer.StartTiming("gazette_reader", "read_file", filePath)
		if gr.observer.DebugObserver != nil {
			finishStep = gr.observer.DebugObserver.StartStep("gazette_reader", "read_file", filePath)
		}
	}

	records, pageCount, err := gr.readFile(filePath)

	if finishTiming != nil {
		metadata := map[string]interface{}{
			"record_count": len(records),
			"page_count":   pageCount,
		}
		if err != nil {
			metadata["error"] = err.Error()
		}
		finishTiming(err == nil, metadata)
	}
	if finishStep != nil {
		if err != nil {
			finishStep(false, fmt.Sprintf("Failed to read gazette: %v", err))
		} else {
			finishStep(true, fmt.Sprintf("Scraped %d case entries from %d pages", len(records), pageCount))
		}
	}

	return records, err
}

func (gr *GazetteReader) readFile(filePath string) ([]docket.CaseRecord, int, error) {
	if err := api.ValidateFile(filePath, gr.pdfConfig); err != nil {
		return nil, 0, fmt.Errorf("invalid PDF file: %w", err)
	}

	text, pageCount, err := extractGazetteText(filePath)
	if err != nil {
		return nil, pageCount, err
	}

	return scrapeGazette(text), pageCount, nil
}

// extractGazetteText pulls the text out of every page. Pages extract
// in parallel and reassemble in page order; pages that fail to extract
// are dropped rather than failing the gazette.
func extractGazetteText(filePath string) (string, int, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	pageCount := r.NumPage()

	type pageResult struct {
		pageNum int
		text    string
		err     error
	}

	resultChan := make(chan pageResult, pageCount)
	for i := 1; i <= pageCount; i++ {
		go func(pageNum int) {
			p := r.Page(pageNum)
			if p.V.IsNull() {
				resultChan <- pageResult{pageNum: pageNum, err: fmt.Errorf("null page")}
				return
			}
			text, err := extractPageText(p)
			resultChan <- pageResult{pageNum: pageNum, text: text, err: err}
		}(i)
	}

	pageTexts := make(map[int]string)
	for i := 0; i < pageCount; i++ {
		result := <-resultChan
		if result.err != nil {
			continue
		}
		pageTexts[result.pageNum] = result.text
	}

	var buf bytes.Buffer
	for i := 1; i <= pageCount; i++ {
		if text, exists := pageTexts[i]; exists {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(text)
		}
	}

	return buf.String(), pageCount, nil
}

// extractPageText uses row-based extraction for proper reading order,
// falling back to plain extraction when the page has no row data.
func extractPageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return p.GetPlainText(nil)
	}

	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return rowY(sorted[i].Content) < rowY(sorted[j].Content)
	})

	var buf bytes.Buffer
	for _, row := range sorted {
		line := rowText(row.Content)
		if strings.TrimSpace(line) != "" {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	return buf.String(), nil
}

// rowText joins a row's text elements left to right, inserting a space
// when the horizontal gap exceeds a fifth of the font size.
func rowText(elements []pdf.Text) string {
	sorted := make([]pdf.Text, len(elements))
	copy(sorted, elements)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].X < sorted[j].X
	})

	var buf bytes.Buffer
	for i, element := range sorted {
		buf.WriteString(element.S)
		if i < len(sorted)-1 {
			gap := sorted[i+1].X - (element.X + element.W)
			fontSize := element.FontSize
			if fontSize <= 0 {
				fontSize = 12
			}
			if gap > fontSize*0.2 {
				buf.WriteString(" ")
			}
		}
	}
	return buf.String()
}

func rowY(elements []pdf.Text) float64 {
	if len(elements) == 0 {
		return 0
	}
	var total float64
	for _, element := range elements {
		total += element.Y
	}
	return total / float64(len(elements))
}

// scrapeGazette rebuilds case entries from extracted gazette text.
func scrapeGazette(text string) []docket.CaseRecord {
	var records []docket.CaseRecord
	var current *docket.CaseRecord

	court := ""
	tier := docket.TierUnknown

	flush := func() {
		if current != nil {
			records = append(records, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Court headers apply to every entry below them until the next
		// header, and close the entry from the previous section
		if t := tierFromText(line); t != docket.TierUnknown && !strings.Contains(strings.ToLower(line), "processo") {
			flush()
			tier = t
			court = line
			continue
		}

		if m := processoExpr.FindStringSubmatch(line); m != nil {
			flush()
			current = &docket.CaseRecord{
				RawNumber: m[1],
				Tier:      tier,
				Court:     court,
			}
			continue
		}
		if m := bareNumberExpr.FindStringSubmatch(line); m != nil {
			flush()
			current = &docket.CaseRecord{
				RawNumber: m[1],
				Tier:      tier,
				Court:     court,
			}
			continue
		}

		if current == nil {
			continue
		}

		if m := filedExpr.FindStringSubmatch(line); m != nil {
			if t, ok := parseRegistryTime(m[1]); ok {
				current.FiledDate = t
			}
			continue
		}

		if m := subjectLineExpr.FindStringSubmatch(line); m != nil {
			for _, part := range strings.Split(m[1], ";") {
				if s, ok := parseSubjectLabel(part); ok {
					current.SubjectCodes = append(current.SubjectCodes, s)
				}
			}
			continue
		}

		if code, ts, ok := movementFromLine(line); ok {
			current.Movements = append(current.Movements, docket.MovementEvent{
				Code:      code,
				Timestamp: ts,
			})
		}
	}
	flush()

	return records
}

// movementFromLine recognizes "Movimento: 242 ..." lines and lines
// ending in a parenthesized code.
func movementFromLine(line string) (int, string, bool) {
	codeText := ""
	if m := movementExpr.FindStringSubmatch(line); m != nil {
		codeText = m[1]
	} else if m := movementCodeExpr.FindStringSubmatch(line); m != nil {
		codeText = m[1]
	}
	if codeText == "" {
		return 0, "", false
	}
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return 0, "", false
	}

	ts := ""
	if m := movementDateExpr.FindStringSubmatch(line); m != nil {
		ts = m[1]
	}
	return code, ts, true
}

// tierFromText infers the judicial tier from a court name or gazette
// section header.
func tierFromText(s string) docket.Tier {
	u := strings.ToUpper(s)
	switch {
	case strings.Contains(u, "TRIBUNAL SUPERIOR DO TRABALHO") || strings.Contains(u, "TST"):
		return docket.TierSuperior
	case strings.Contains(u, "TRIBUNAL REGIONAL DO TRABALHO") || strings.Contains(u, "TRT"):
		return docket.TierAppellate
	case strings.Contains(u, "VARA DO TRABALHO"):
		return docket.TierFirstInstance
	}
	return docket.TierUnknown
}
