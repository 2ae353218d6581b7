// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"docket-scan/internal/docket"
	"docket-scan/internal/observability"
	"docket-scan/internal/platform"
)

// DataJudReader parses DataJud API exports: a JSON array of cases, a
// single case object, the raw search envelope the API returns, or
// JSONL with one case per line.
type DataJudReader struct {
	name                string
	supportedExtensions []string
	observer            *observability.StandardObserver
}

// NewDataJudReader creates a new DataJud export reader
func NewDataJudReader() *DataJudReader {
	return &DataJudReader{
		name:                "datajud",
		supportedExtensions: []string{".json", ".jsonl", ".ndjson"},
	}
}

// SetObserver sets the observability component
func (dr *DataJudReader) SetObserver(observer *observability.StandardObserver) {
	dr.observer = observer
}

// GetName returns the name of this reader
func (dr *DataJudReader) GetName() string {
	return dr.name
}

// GetSupportedExtensions returns the file extensions this reader supports
func (dr *DataJudReader) GetSupportedExtensions() []string {
	return dr.supportedExtensions
}

// CanRead checks if this reader handles the given file
func (dr *DataJudReader) CanRead(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supportedExt := range dr.supportedExtensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

// datajudCase mirrors the registry export field names
type datajudCase struct {
	NumeroProcesso  string            `json:"numeroProcesso"`
	Grau            string            `json:"grau"`
	Tribunal        string            `json:"tribunal"`
	DataAjuizamento string            `json:"dataAjuizamento"`
	Assuntos        []datajudSubject  `json:"assuntos"`
	Movimentos      []datajudMovement `json:"movimentos"`
}

type datajudSubject struct {
	Codigo int    `json:"codigo"`
	Nome   string `json:"nome"`
}

type datajudMovement struct {
	Codigo                int                 `json:"codigo"`
	DataHora              string              `json:"dataHora"`
	ComplementosTabelados []datajudComplement `json:"complementosTabelados"`
}

type datajudComplement struct {
	Codigo    int         `json:"codigo"`
	Valor     json.Number `json:"valor"`
	Nome      string      `json:"nome"`
	Descricao string      `json:"descricao"`
}

// datajudEnvelope is the search response shape the DataJud API returns
// when the export was saved without post-processing
type datajudEnvelope struct {
	Hits struct {
		Hits []struct {
			Source datajudCase `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Read parses the file into case records
func (dr *DataJudReader) Read(filePath string) ([]docket.CaseRecord, error) {
	var finishTiming func(bool, map[string]interface{})
	var finishStep func(bool, string)
	if dr.observer != nil {
		finishTiming = dr.observer.StartTiming("datajud_reader", "read_file", filePath)
		if dr.observer.DebugObserver != nil {
			finishStep = dr.observer.DebugObserver.StartStep("datajud_reader", "read_file", filePath)
		}
	}

	ext := strings.ToLower(filepath.Ext(filePath))

	var records []docket.CaseRecord
	var skipped int
	var err error
	if ext == ".jsonl" || ext == ".ndjson" {
		records, skipped, err = dr.readLines(filePath)
	} else {
		records, err = dr.readDocument(filePath)
	}

	if finishTiming != nil {
		metadata := map[string]interface{}{
			"file_ext":     ext,
			"record_count": len(records),
		}
		if skipped > 0 {
			metadata["skipped_lines"] = skipped
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
			finishStep(true, fmt.Sprintf("Parsed %d case records", len(records)))
		}
	}

	return records, err
}

// readDocument handles whole-file JSON payloads: arrays, single cases
// and the API search envelope.
func (dr *DataJudReader) readDocument(filePath string) ([]docket.CaseRecord, error) {
	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, platform.WrapFileError(err, filePath, "read")
	}

	head := bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(head) == 0 {
		return nil, fmt.Errorf("empty input: %s", filePath)
	}

	switch head[0] {
	case '[':
		var cases []datajudCase
		if err := json.Unmarshal(data, &cases); err != nil {
			return nil, fmt.Errorf("parse datajud array: %w", err)
		}
		return dr.toRecords(cases), nil

	case '{':
		// The envelope also decodes as an empty case, so try it first
		var env datajudEnvelope
		if err := json.Unmarshal(data, &env); err == nil && len(env.Hits.Hits) > 0 {
			cases := make([]datajudCase, 0, len(env.Hits.Hits))
			for _, hit := range env.Hits.Hits {
				cases = append(cases, hit.Source)
			}
			return dr.toRecords(cases), nil
		}

		var single datajudCase
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parse datajud case: %w", err)
		}
		if single.NumeroProcesso == "" && single.Grau == "" && len(single.Movimentos) == 0 {
			return nil, fmt.Errorf("%s carries no datajud case fields", filePath)
		}
		return dr.toRecords([]datajudCase{single}), nil

	default:
		return nil, fmt.Errorf("unrecognized datajud payload in %s", filePath)
	}
}

// readLines handles JSONL exports, one case per line. Undecodable
// lines are skipped and counted; the file fails only when nothing
// parses.
func (dr *DataJudReader) readLines(filePath string) ([]docket.CaseRecord, int, error) {
	f, err := os.Open(filepath.Clean(filePath))
	if err != nil {
		return nil, 0, platform.WrapFileError(err, filePath, "open")
	}
	defer f.Close()

	var records []docket.CaseRecord
	var skipped int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var c datajudCase
		if err := json.Unmarshal(line, &c); err != nil {
			skipped++
			continue
		}
		records = append(records, dr.toRecord(c))
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan %s: %w", filePath, err)
	}

	if len(records) == 0 && skipped > 0 {
		return nil, skipped, fmt.Errorf("no parseable lines in %s (%d skipped)", filePath, skipped)
	}
	return records, skipped, nil
}

func (dr *DataJudReader) toRecords(cases []datajudCase) []docket.CaseRecord {
	records := make([]docket.CaseRecord, 0, len(cases))
	for _, c := range cases {
		records = append(records, dr.toRecord(c))
	}
	return records
}

func (dr *DataJudReader) toRecord(c datajudCase) docket.CaseRecord {
	tier, _ := docket.ParseTier(c.Grau)
	rec := docket.CaseRecord{
		RawNumber: c.NumeroProcesso,
		Tier:      tier,
		Court:     c.Tribunal,
	}
	if c.DataAjuizamento != "" {
		if t, ok := parseRegistryTime(c.DataAjuizamento); ok {
			rec.FiledDate = t
		}
	}
	for _, a := range c.Assuntos {
		rec.SubjectCodes = append(rec.SubjectCodes, docket.Subject{
			Code: a.Codigo,
			Name: a.Nome,
		})
	}
	for _, mv := range c.Movimentos {
		rec.Movements = append(rec.Movements, docket.MovementEvent{
			Code:        mv.Codigo,
			Timestamp:   mv.DataHora,
			Attachments: complementMap(mv.ComplementosTabelados),
		})
	}
	return rec
}

// complementMap flattens tabulated complements to the attachment map
// the interpreter reads. The description is preferred; the bare value
// stands in when the registry left it out.
func complementMap(comps []datajudComplement) map[string]string {
	if len(comps) == 0 {
		return nil
	}
	m := make(map[string]string, len(comps))
	for _, c := range comps {
		if c.Nome == "" {
			continue
		}
		v := c.Descricao
		if v == "" {
			v = c.Valor.String()
		}
		if v == "" {
			continue
		}
		m[c.Nome] = v
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// registryTimeLayouts covers the filing date shapes seen across
// registry exports: ISO with and without zone, bare dates, the
// compact numeric form and the Brazilian day-first form.
var registryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"20060102150405",
	"02/01/2006",
}

func parseRegistryTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range registryTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
