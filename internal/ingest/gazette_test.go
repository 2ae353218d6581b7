// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docket-scan/internal/docket"
)

const gazetteText = `DIÁRIO ELETRÔNICO DA JUSTIÇA DO TRABALHO
TRIBUNAL REGIONAL DO TRABALHO DA 2ª REGIÃO
Processo 0001234-56.2020.5.02.0001
Distribuído em 15/03/2020
Assuntos: 2546 - Horas Extras; Adicional Noturno
Movimento: 219 - Julgados procedentes os pedidos em 10/06/2021
Processo 0001234-56.2020.5.02.0099
Movimento: 237 - Dado provimento ao recurso em 01/02/2022
TRIBUNAL SUPERIOR DO TRABALHO
Processo 0007777-88.2021.5.04.0012
Negado seguimento ao agravo (236)
`

func TestScrapeGazette(t *testing.T) {
	records := scrapeGazette(gazetteText)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "0001234-56.2020.5.02.0001", first.RawNumber)
	assert.Equal(t, docket.TierAppellate, first.Tier)
	assert.Equal(t, "TRIBUNAL REGIONAL DO TRABALHO DA 2ª REGIÃO", first.Court)
	assert.Equal(t, 2020, first.FiledDate.Year())
	assert.Equal(t, time.March, first.FiledDate.Month())
	require.Len(t, first.Movements, 1)
	assert.Equal(t, 219, first.Movements[0].Code)
	assert.Equal(t, "10/06/2021", first.Movements[0].Timestamp)
	require.Len(t, first.SubjectCodes, 2)
	assert.Equal(t, docket.Subject{Code: 2546, Name: "Horas Extras"}, first.SubjectCodes[0])
	assert.Equal(t, docket.Subject{Name: "Adicional Noturno"}, first.SubjectCodes[1])

	second := records[1]
	assert.Equal(t, "0001234-56.2020.5.02.0099", second.RawNumber)
	assert.Equal(t, docket.TierAppellate, second.Tier)
	require.Len(t, second.Movements, 1)
	assert.Equal(t, 237, second.Movements[0].Code)

	third := records[2]
	assert.Equal(t, "0007777-88.2021.5.04.0012", third.RawNumber)
	assert.Equal(t, docket.TierSuperior, third.Tier)
	assert.Equal(t, "TRIBUNAL SUPERIOR DO TRABALHO", third.Court)
	require.Len(t, third.Movements, 1)
	assert.Equal(t, 236, third.Movements[0].Code)
	assert.Equal(t, "", third.Movements[0].Timestamp)
}

func TestScrapeGazette_BareNumberLine(t *testing.T) {
	records := scrapeGazette("0001234-56.2020.5.02.0001\nMovimento: 220\n")
	require.Len(t, records, 1)
	assert.Equal(t, "0001234-56.2020.5.02.0001", records[0].RawNumber)
	assert.Equal(t, docket.TierUnknown, records[0].Tier)
	require.Len(t, records[0].Movements, 1)
	assert.Equal(t, 220, records[0].Movements[0].Code)
}

func TestScrapeGazette_NoEntries(t *testing.T) {
	records := scrapeGazette("DIÁRIO ELETRÔNICO\nnothing of note\n")
	assert.Empty(t, records)
}

func TestGazetteReader_InvalidPDF(t *testing.T) {
	path := writeInput(t, "broken.pdf", "not a pdf at all")

	_, err := NewGazetteReader().Read(path)
	require.Error(t, err)
}

func TestGazetteReader_CanRead(t *testing.T) {
	gr := NewGazetteReader()
	assert.True(t, gr.CanRead("diario.pdf"))
	assert.True(t, gr.CanRead("diario.PDF"))
	assert.False(t, gr.CanRead("diario.html"))
}

func TestTierFromText(t *testing.T) {
	tests := []struct {
		text string
		want docket.Tier
	}{
		{"1ª VARA DO TRABALHO DE SÃO PAULO", docket.TierFirstInstance},
		{"Tribunal Regional do Trabalho da 4ª Região", docket.TierAppellate},
		{"TRT-2", docket.TierAppellate},
		{"TRIBUNAL SUPERIOR DO TRABALHO", docket.TierSuperior},
		{"TST", docket.TierSuperior},
		{"Diário Oficial", docket.TierUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, tierFromText(tt.text))
		})
	}
}

func TestMovementFromLine(t *testing.T) {
	tests := []struct {
		line string
		code int
		ts   string
		ok   bool
	}{
		{"Movimento: 242 - Negado provimento", 242, "", true},
		{"Movimento 11009", 11009, "", true},
		{"Conhecido o recurso e provido (237)", 237, "", true},
		{"Movimento: 219 - Procedência em 05/05/2021", 219, "05/05/2021", true},
		{"Audiência designada", 0, "", false},
		{"Valor da causa (123456)", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			code, ts, ok := movementFromLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.ts, ts)
		})
	}
}
