// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
	"docket-scan/internal/platform"
)

// CSVReader parses flat per-record exports. Movements arrive packed as
// "code@timestamp;code@timestamp" and subjects as "code:name;code:name".
// Movement attachment complements are not representable in the flat
// form and are left empty.
type CSVReader struct {
	name                string
	supportedExtensions []string
	observer            *observability.StandardObserver
}

// NewCSVReader creates a new flat export reader
func NewCSVReader() *CSVReader {
	return &CSVReader{
		name:                "csv",
		supportedExtensions: []string{".csv"},
	}
}

// SetObserver sets the observability component
func (cr *CSVReader) SetObserver(observer *observability.StandardObserver) {
	cr.observer = observer
}

// GetName returns the name of this reader
func (cr *CSVReader) GetName() string {
	return cr.name
}

// GetSupportedExtensions returns the file extensions this reader supports
func (cr *CSVReader) GetSupportedExtensions() []string {
	return cr.supportedExtensions
}

// CanRead checks if this reader handles the given file
func (cr *CSVReader) CanRead(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supportedExt := range cr.supportedExtensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

// csvColumns maps the header row to field positions. Portuguese
// registry names and their English aliases are both accepted.
type csvColumns struct {
	number    int
	grade     int
	court     int
	filed     int
	movements int
	subjects  int
}

// Read parses the file into case records
func (cr *CSVReader) Read(filePath string) ([]docket.CaseRecord, error) {
	var finishTiming func(bool, map[string]interface{})
	var finishStep func(bool, string)
	if cr.observer != nil {
		finishTiming = cr.observer.StartTiming("csv_reader", "read_file", filePath)
		if cr.observer.DebugObserver != nil {
			finishStep = cr.observer.DebugObserver.StartStep("csv_reader", "read_file", filePath)
		}
	}

	records, skipped, err := cr.readFile(filePath)

	if finishTiming != nil {
		metadata := map[string]interface{}{
			"record_count": len(records),
		}
		if skipped > 0 {
			metadata["skipped_rows"] = skipped
		}
		if err != nil {
			metadata["error"] = err.Error()
		}
		finishTiming(err == nil, metadata)
	}
	if finishStep != nil {
		if err != nil {
			finishStep(false, fmt.Sprintf("Failed to parse export: %v", err))
		} else {
			finishStep(true, fmt.Sprintf("Parsed %d case records, skipped %d rows", len(records), skipped))
		}
	}

	return records, err
}

func (cr *CSVReader) readFile(filePath string) ([]docket.CaseRecord, int, error) {
	f, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return nil, 0, platform.WrapFileError(err, filePath, "open")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header of %s: %w", filePath, err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", filePath, err)
	}

	var records []docket.CaseRecord
	var skipped int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		rec, ok := cr.rowToRecord(row, cols)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

// resolveColumns locates the required and optional columns in the
// header row. Number and grade columns must be present; everything
// else degrades gracefully.
func resolveColumns(header []string) (csvColumns, error) {
	cols := csvColumns{number: -1, grade: -1, court: -1, filed: -1, movements: -1, subjects: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "numero_processo", "numeroprocesso", "raw_number", "number":
			cols.number = i
		case "grau", "grade", "tier":
			cols.grade = i
		case "tribunal", "court":
			cols.court = i
		case "data_ajuizamento", "filed_date", "filed":
			cols.filed = i
		case "movimentos", "movements":
			cols.movements = i
		case "assuntos", "subjects":
			cols.subjects = i
		}
	}
	if cols.number < 0 || cols.grade < 0 {
		return cols, fmt.Errorf("header is missing the case number or grade column")
	}
	return cols, nil
}

func (cr *CSVReader) rowToRecord(row []string, cols csvColumns) (docket.CaseRecord, bool) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	// Rows too short to carry the required columns are skipped; rows
	// whose cells are present but unmappable still become records for
	// the engine to count as malformed
	if cols.number >= len(row) || cols.grade >= len(row) {
		return docket.CaseRecord{}, false
	}

	tier, _ := docket.ParseTier(field(cols.grade))
	rec := docket.CaseRecord{
		RawNumber: field(cols.number),
		Tier:      tier,
		Court:     field(cols.court),
	}
	if filed := field(cols.filed); filed != "" {
		if t, ok := parseRegistryTime(filed); ok {
			rec.FiledDate = t
		}
	}
	rec.Movements = parsePackedMovements(field(cols.movements))
	if subjects := field(cols.subjects); subjects != "" {
		for _, part := range strings.Split(subjects, ";") {
			if s, ok := parseSubjectLabel(part); ok {
				rec.SubjectCodes = append(rec.SubjectCodes, s)
			}
		}
	}
	return rec, true
}

// parsePackedMovements unpacks "code@timestamp;code@timestamp".
// Timestamps are optional; entries without a numeric code are dropped.
func parsePackedMovements(packed string) []docket.MovementEvent {
	if packed == "" {
		return nil
	}
	var events []docket.MovementEvent
	for _, part := range strings.Split(packed, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		codeText, ts, _ := strings.Cut(part, "@")
		code, err := strconv.Atoi(strings.TrimSpace(codeText))
		if err != nil {
			continue
		}
		events = append(events, docket.MovementEvent{
			Code:      code,
			Timestamp: strings.TrimSpace(ts),
		})
	}
	return events
}

var subjectLabelExpr = regexp.MustCompile(`^(\d+)\s*[-:\x{2013}]\s*(.+)$`)

// parseSubjectLabel accepts "2546:Horas Extras", "2546 - Horas Extras",
// a bare code or a bare name.
func parseSubjectLabel(label string) (docket.Subject, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return docket.Subject{}, false
	}
	if m := subjectLabelExpr.FindStringSubmatch(label); m != nil {
		code, _ := strconv.Atoi(m[1])
		return docket.Subject{Code: code, Name: strings.TrimSpace(m[2])}, true
	}
	if code, err := strconv.Atoi(label); err == nil {
		return docket.Subject{Code: code}, true
	}
	return docket.Subject{Name: label}, true
}
