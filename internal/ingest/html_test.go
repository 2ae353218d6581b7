// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docket-scan/internal/docket"
)

const consultationPage = `<!DOCTYPE html>
<html>
<body>
  <h1>Consulta Processual</h1>
  <span class="numero-processo">0001234-56.2020.5.02.0001</span>
  <span class="grau">G1</span>
  <span class="tribunal">TRT da 2ª Região</span>
  <span class="data-ajuizamento">15/03/2020</span>
  <ul class="assuntos">
    <li>2546 - Horas Extras</li>
    <li>2086 - Adicional Noturno</li>
  </ul>
  <table class="movimentacoes">
    <tr><th>Data</th><th>Movimento</th></tr>
    <tr data-codigo="26"><td class="data">15/03/2020</td><td class="movimento">Distribuição</td></tr>
    <tr><td class="data">10/06/2021</td><td class="movimento">Procedência (219)</td></tr>
  </table>
</body>
</html>`

func TestDocketHTMLReader_SingleCase(t *testing.T) {
	path := writeInput(t, "consulta.html", consultationPage)

	records, err := NewDocketHTMLReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "0001234-56.2020.5.02.0001", rec.RawNumber)
	assert.Equal(t, docket.TierFirstInstance, rec.Tier)
	assert.Equal(t, "TRT da 2ª Região", rec.Court)
	assert.Equal(t, 2020, rec.FiledDate.Year())

	require.Len(t, rec.Movements, 2)
	assert.Equal(t, 26, rec.Movements[0].Code)
	assert.Equal(t, "15/03/2020", rec.Movements[0].Timestamp)
	assert.Equal(t, 219, rec.Movements[1].Code)

	require.Len(t, rec.SubjectCodes, 2)
	assert.Equal(t, docket.Subject{Code: 2546, Name: "Horas Extras"}, rec.SubjectCodes[0])
}

func TestDocketHTMLReader_MultipleBlocks(t *testing.T) {
	page := `<html><body>
  <div class="processo">
    <span class="numero-processo">0001234-56.2020.5.02.0001</span>
    <span class="grau">G1</span>
    <table class="movimentacoes">
      <tr data-codigo="219"><td>10/06/2021</td><td>Procedência</td></tr>
    </table>
  </div>
  <div class="processo">
    <span class="numero-processo">0001234-56.2020.5.02.0099</span>
    <span class="grau">G2</span>
    <table class="movimentacoes">
      <tr data-codigo="237"><td>01/02/2022</td><td>Provimento</td></tr>
    </table>
  </div>
</body></html>`
	path := writeInput(t, "lote.html", page)

	records, err := NewDocketHTMLReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, docket.TierFirstInstance, records[0].Tier)
	assert.Equal(t, 219, records[0].Movements[0].Code)
	assert.Equal(t, docket.TierAppellate, records[1].Tier)
	assert.Equal(t, 237, records[1].Movements[0].Code)
}

func TestDocketHTMLReader_TierFromCourtName(t *testing.T) {
	page := `<html><body>
  <span class="numero-processo">0001234-56.2020.5.02.0099</span>
  <span class="tribunal">Tribunal Superior do Trabalho</span>
</body></html>`
	path := writeInput(t, "tst.html", page)

	records, err := NewDocketHTMLReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, docket.TierSuperior, records[0].Tier)
}

func TestDocketHTMLReader_NumberFromFreeText(t *testing.T) {
	page := `<html><body>
  <p>Processo nº 0001234-56.2020.5.02.0001, 1ª Vara do Trabalho de São Paulo</p>
</body></html>`
	path := writeInput(t, "livre.html", page)

	records, err := NewDocketHTMLReader().Read(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0001234-56.2020.5.02.0001", records[0].RawNumber)
}

func TestDocketHTMLReader_NoNumber(t *testing.T) {
	path := writeInput(t, "vazio.html", "<html><body><p>nada aqui</p></body></html>")

	_, err := NewDocketHTMLReader().Read(path)
	require.Error(t, err)
}

func TestDocketHTMLReader_CanRead(t *testing.T) {
	hr := NewDocketHTMLReader()
	assert.True(t, hr.CanRead("page.html"))
	assert.True(t, hr.CanRead("page.htm"))
	assert.False(t, hr.CanRead("page.pdf"))
}
