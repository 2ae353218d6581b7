// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docket-scan/internal/docket"
)

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const datajudArray = `[
  {
    "numeroProcesso": "00012345620205020001",
    "grau": "G1",
    "tribunal": "TRT-2",
    "dataAjuizamento": "2020-03-15T00:00:00.000Z",
    "assuntos": [
      {"codigo": 2546, "nome": "Horas Extras"},
      {"codigo": 2086, "nome": "Adicional Noturno"}
    ],
    "movimentos": [
      {"codigo": 26, "dataHora": "2020-03-15T10:00:00"},
      {
        "codigo": 219,
        "dataHora": "2021-06-10T14:30:00",
        "complementosTabelados": [
          {"codigo": 19, "valor": 1, "nome": "tipo_de_decisao", "descricao": "procedência"},
          {"codigo": 7, "valor": 190, "nome": "codigo_decisao"}
        ]
      }
    ]
  },
  {
    "numeroProcesso": "00012345620205020099",
    "grau": "GS",
    "tribunal": "TST",
    "dataAjuizamento": "2021-08-01",
    "movimentos": [{"codigo": 242, "dataHora": "2022-01-20T09:00:00"}]
  }
]`

func TestDataJudReader_ArrayExport(t *testing.T) {
	path := writeInput(t, "batch.json", datajudArray)

	records, err := NewDataJudReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "00012345620205020001", first.RawNumber)
	assert.Equal(t, docket.TierFirstInstance, first.Tier)
	assert.Equal(t, "TRT-2", first.Court)
	assert.Equal(t, 2020, first.FiledDate.Year())
	assert.Equal(t, time.March, first.FiledDate.Month())
	require.Len(t, first.Movements, 2)
	assert.Equal(t, 26, first.Movements[0].Code)
	assert.Equal(t, 219, first.Movements[1].Code)
	assert.Equal(t, "2021-06-10T14:30:00", first.Movements[1].Timestamp)
	assert.Equal(t, "procedência", first.Movements[1].Attachments["tipo_de_decisao"])
	assert.Equal(t, "190", first.Movements[1].Attachments["codigo_decisao"])
	require.Len(t, first.SubjectCodes, 2)
	assert.Equal(t, 2546, first.SubjectCodes[0].Code)
	assert.Equal(t, "Horas Extras", first.SubjectCodes[0].Name)

	second := records[1]
	assert.Equal(t, docket.TierSuperior, second.Tier)
	assert.Equal(t, time.August, second.FiledDate.Month())
	assert.Nil(t, second.Movements[0].Attachments)
}

func TestDataJudReader_SearchEnvelope(t *testing.T) {
	envelope := `{
  "took": 12,
  "hits": {
    "total": {"value": 1},
    "hits": [
      {
        "_index": "api_publica_tst",
        "_source": {
          "numeroProcesso": "00098765420195040012",
          "grau": "G2",
          "tribunal": "TRT-4",
          "movimentos": [{"codigo": 237, "dataHora": "2021-02-01T09:30:00"}]
        }
      }
    ]
  }
}`
	path := writeInput(t, "response.json", envelope)

	records, err := NewDataJudReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "00098765420195040012", records[0].RawNumber)
	assert.Equal(t, docket.TierAppellate, records[0].Tier)
	require.Len(t, records[0].Movements, 1)
	assert.Equal(t, 237, records[0].Movements[0].Code)
}

func TestDataJudReader_SingleCase(t *testing.T) {
	single := `{"numeroProcesso": "00011112220215020033", "grau": "G1", "tribunal": "TRT-2"}`
	path := writeInput(t, "case.json", single)

	records, err := NewDataJudReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "00011112220215020033", records[0].RawNumber)
}

func TestDataJudReader_JSONL(t *testing.T) {
	lines := `{"numeroProcesso": "00000000120205020001", "grau": "G1", "movimentos": [{"codigo": 220}]}
{not valid json
{"numeroProcesso": "00000000120205020099", "grau": "G2", "movimentos": [{"codigo": 242}]}
`
	path := writeInput(t, "batch.jsonl", lines)

	records, err := NewDataJudReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "00000000120205020001", records[0].RawNumber)
	assert.Equal(t, "00000000120205020099", records[1].RawNumber)
}

func TestDataJudReader_JSONLNothingParses(t *testing.T) {
	path := writeInput(t, "broken.jsonl", "not json\nstill not json\n")

	_, err := NewDataJudReader().Read(path)
	require.Error(t, err)
}

func TestDataJudReader_UnknownGradeKept(t *testing.T) {
	single := `{"numeroProcesso": "00011112220215020033", "grau": "X9"}`
	path := writeInput(t, "case.json", single)

	// Unmappable grades come through as unknown-tier records so the
	// engine can count them as malformed instead of losing them here.
	records, err := NewDataJudReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, docket.TierUnknown, records[0].Tier)
}

func TestDataJudReader_NotACase(t *testing.T) {
	path := writeInput(t, "other.json", `{"foo": "bar"}`)

	_, err := NewDataJudReader().Read(path)
	require.Error(t, err)
}

func TestDataJudReader_BadJSON(t *testing.T) {
	path := writeInput(t, "bad.json", `[{"numeroProcesso": `)

	_, err := NewDataJudReader().Read(path)
	require.Error(t, err)
}

func TestDataJudReader_CanRead(t *testing.T) {
	dr := NewDataJudReader()
	assert.True(t, dr.CanRead("export.json"))
	assert.True(t, dr.CanRead("export.JSONL"))
	assert.True(t, dr.CanRead("export.ndjson"))
	assert.False(t, dr.CanRead("export.csv"))
	assert.False(t, dr.CanRead("export"))
}

func TestParseRegistryTime(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		year  int
		month time.Month
		day   int
	}{
		{"2020-03-15T00:00:00.000Z", true, 2020, time.March, 15},
		{"2020-03-15T14:30:00Z", true, 2020, time.March, 15},
		{"2020-03-15T14:30:00", true, 2020, time.March, 15},
		{"2020-03-15", true, 2020, time.March, 15},
		{"20200315143000", true, 2020, time.March, 15},
		{"15/03/2020", true, 2020, time.March, 15},
		{"", false, 0, 0, 0},
		{"yesterday", false, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			parsed, ok := parseRegistryTime(tt.input)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.year, parsed.Year())
			assert.Equal(t, tt.month, parsed.Month())
			assert.Equal(t, tt.day, parsed.Day())
		})
	}
}
