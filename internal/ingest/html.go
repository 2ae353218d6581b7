// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
	"docket-scan/internal/platform"
)

// caseNumberExpr matches the unified numbering shape in free text,
// with or without punctuation.
var caseNumberExpr = regexp.MustCompile(`\d{7}-?\d{2}\.?\d{4}\.?\d\.?\d{2}\.?\d{4}`)

// movementCodeExpr pulls a trailing "(219)" style code off a movement
// description cell.
var movementCodeExpr = regexp.MustCompile(`\((\d{2,5})\)\s*$`)

// DocketHTMLReader parses saved consultation pages. Pages carry one
// case per ".processo" block, or a single case when the page has no
// block markers. Selectors follow the common consultation layout;
// free-text fallbacks cover per-court variations.
type DocketHTMLReader struct {
	name                string
	supportedExtensions []string
	observer            *observability.StandardObserver
}

// NewDocketHTMLReader creates a new consultation page reader
func NewDocketHTMLReader() *DocketHTMLReader {
	return &DocketHTMLReader{
		name:                "html",
		supportedExtensions: []string{".html", ".htm"},
	}
}

// SetObserver sets the observability component
func (hr *DocketHTMLReader) SetObserver(observer *observability.StandardObserver) {
	hr.observer = observer
}

// GetName returns the name of this reader
func (hr *DocketHTMLReader) GetName() string {
	return hr.name
}

// GetSupportedExtensions returns the file extensions this reader supports
func (hr *DocketHTMLReader) GetSupportedExtensions() []string {
	return hr.supportedExtensions
}

// CanRead checks if this reader handles the given file
func (hr *DocketHTMLReader) CanRead(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supportedExt := range hr.supportedExtensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

// Read parses the file into case records
func (hr *DocketHTMLReader) Read(filePath string) ([]docket.CaseRecord, error) {
	var finishTiming func(bool, map[string]interface{})
	var finishStep func(bool, string)
	if hr.observer != nil {
		finishTiming = hr.observer.StartTiming("html_reader", "read_file", filePath)
		if hr.observer.DebugObserver != nil {
			finishStep = hr.observer.DebugObserver.StartStep("html_reader", "read_file", filePath)
		}
	}

	records, err := hr.readFile(filePath)

	if finishTiming != nil {
		metadata := map[string]interface{}{
			"record_count": len(records),
		}
		if err != nil {
			metadata["error"] = err.Error()
		}
		finishTiming(err == nil, metadata)
	}
	if finishStep != nil {
		if err != nil {
			finishStep(false, fmt.Sprintf("Failed to parse page: %v", err))
		} else {
			finishStep(true, fmt.Sprintf("Parsed %d case records", len(records)))
		}
	}

	return records, err
}

func (hr *DocketHTMLReader) readFile(filePath string) ([]docket.CaseRecord, error) {
	f, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return nil, platform.WrapFileError(err, filePath, "open")
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", filePath, err)
	}

	var records []docket.CaseRecord
	blocks := doc.Find(".processo")
	if blocks.Length() == 0 {
		rec, err := hr.parseCase(doc.Selection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		return []docket.CaseRecord{rec}, nil
	}

	var parseErr error
	blocks.Each(func(i int, block *goquery.Selection) {
		rec, err := hr.parseCase(block)
		if err != nil {
			parseErr = fmt.Errorf("%s block %d: %w", filePath, i, err)
			return
		}
		records = append(records, rec)
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return records, nil
}

// parseCase extracts one case from a page block
func (hr *DocketHTMLReader) parseCase(sel *goquery.Selection) (docket.CaseRecord, error) {
	number := strings.TrimSpace(sel.Find(".numero-processo").First().Text())
	if number == "" {
		number = caseNumberExpr.FindString(sel.Text())
	}
	if number == "" {
		return docket.CaseRecord{}, fmt.Errorf("no case number found")
	}

	court := strings.TrimSpace(sel.Find(".tribunal").First().Text())
	if court == "" {
		court = strings.TrimSpace(sel.Find(".orgao-julgador").First().Text())
	}

	grade := strings.TrimSpace(sel.Find(".grau").First().Text())
	if grade == "" {
		grade = sel.AttrOr("data-grau", "")
	}
	if grade == "" {
		grade = sel.Find("[data-grau]").First().AttrOr("data-grau", "")
	}
	tier, ok := docket.ParseTier(grade)
	if !ok {
		tier = tierFromText(court)
	}

	rec := docket.CaseRecord{
		RawNumber: number,
		Tier:      tier,
		Court:     court,
	}

	if filed := strings.TrimSpace(sel.Find(".data-ajuizamento").First().Text()); filed != "" {
		if t, ok := parseRegistryTime(filed); ok {
			rec.FiledDate = t
		}
	}

	sel.Find("table.movimentacoes tr").Each(func(i int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 {
			return
		}
		if ev, ok := hr.parseMovementRow(row); ok {
			rec.Movements = append(rec.Movements, ev)
		}
	})

	sel.Find(".assuntos li").Each(func(i int, item *goquery.Selection) {
		if s, ok := parseSubjectLabel(item.Text()); ok {
			rec.SubjectCodes = append(rec.SubjectCodes, s)
		}
	})

	return rec, nil
}

// parseMovementRow reads one row of the movements table. The code
// comes from a data-codigo attribute when the page carries one, else
// from the trailing parenthesized code in the description cell.
func (hr *DocketHTMLReader) parseMovementRow(row *goquery.Selection) (docket.MovementEvent, bool) {
	desc := row.Find("td.movimento").First()
	if desc.Length() == 0 {
		desc = row.Find("td").Eq(1)
	}

	codeText := row.AttrOr("data-codigo", "")
	if codeText == "" {
		codeText = desc.AttrOr("data-codigo", "")
	}
	if codeText == "" {
		if m := movementCodeExpr.FindStringSubmatch(strings.TrimSpace(desc.Text())); m != nil {
			codeText = m[1]
		}
	}
	code, err := strconv.Atoi(codeText)
	if err != nil {
		return docket.MovementEvent{}, false
	}

	ts := strings.TrimSpace(row.Find("td.data").First().Text())
	if ts == "" {
		ts = strings.TrimSpace(row.Find("td").Eq(0).Text())
	}

	return docket.MovementEvent{Code: code, Timestamp: ts}, true
}
