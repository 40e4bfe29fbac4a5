package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeXLSX(t *testing.T, path string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Sucursal", "Lunes a Viernes", "Domingo"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Centro", "7:00 AM - 9:00 PM", "8:00 AM - 2:00 PM"}))
	_, err := f.NewSheet("Festivos")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Festivos", "A1", "Cerrado el 25 de diciembre"))
	require.NoError(t, f.SaveAs(path))
}

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Preguntas frecuentes</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">¿Aceptan tarjeta? </w:t></w:r><w:r><w:t>Sí, todas.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Medio</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Aceptado</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Efectivo</w:t></w:r></w:p></w:tc>
        <w:tc><w:p></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func writeDOCX(t *testing.T, path string) {
	t.Helper()

	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
}

// writePDF writes a minimal PDF with one Helvetica text line per page; an
// empty string gives a page without content.
func writePDF(t *testing.T, path string, pages ...string) {
	t.Helper()

	var (
		buf     bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suma_gana.pdf")
	writePDF(t, path,
		"Suma y Gana acumula puntos por cada compra",
		"",
		"Redime tus puntos en cualquier sucursal",
	)

	text, err := File(path)
	require.NoError(t, err)

	assert.Contains(t, text, "PÁGINA 1:\nSuma y Gana acumula puntos por cada compra")
	assert.Contains(t, text, "PÁGINA 3:\nRedime tus puntos en cualquier sucursal")
	assert.NotContains(t, text, "PÁGINA 2:", "blank pages are skipped")
	assert.Equal(t, 2, strings.Count(text, separator))
}

func TestXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "horarios.xlsx")
	writeXLSX(t, path)

	text, err := File(path)
	require.NoError(t, err)

	assert.Contains(t, text, "HOJA: Sheet1")
	assert.Contains(t, text, "Sucursal | Lunes a Viernes | Domingo")
	assert.Contains(t, text, "Centro | 7:00 AM - 9:00 PM | 8:00 AM - 2:00 PM")
	assert.Contains(t, text, "HOJA: Festivos")
	assert.Contains(t, text, "Cerrado el 25 de diciembre")
	assert.Contains(t, text, separator)
}

func TestDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preguntas.docx")
	writeDOCX(t, path)

	text, err := File(path)
	require.NoError(t, err)

	want := "Preguntas frecuentes\n" +
		"¿Aceptan tarjeta? Sí, todas.\n" +
		"\nTABLA:\n" +
		"Medio | Aceptado\n" +
		"Efectivo\n" +
		separator
	assert.Equal(t, want, text)
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := File(filepath.Join(dir, "missing.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hola"), 0o644))
	_, err = File(txt)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestAll_ToleratesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	xlsx := filepath.Join(dir, "horarios.xlsx")
	writeXLSX(t, xlsx)

	docs := All([]Source{
		{Name: "horarios", Path: xlsx},
		{Name: "suma_gana", Path: filepath.Join(dir, "suma_gana.pdf")},
		{Name: "preguntas_frecuentes", Path: filepath.Join(dir, "faq.docx")},
	}, nil)

	require.Len(t, docs, 3)
	assert.Equal(t, "horarios", docs[0].ID)
	assert.NotEmpty(t, docs[0].Content)
	assert.Equal(t, "suma_gana", docs[1].ID)
	assert.Empty(t, docs[1].Content)
	assert.Empty(t, docs[2].Content)
}
