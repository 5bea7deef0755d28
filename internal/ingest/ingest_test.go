// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// buildDocx returns .docx bytes whose main part at docPath holds body.
// When contentTypes is true a [Content_Types].xml override points at docPath.
func buildDocx(t *testing.T, docPath, body string, contentTypes bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if contentTypes {
		ct, err := w.Create("[Content_Types].xml")
		require.NoError(t, err)
		_, err = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/` + docPath + `" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
		require.NoError(t, err)
	}
	fw, err := w.Create(docPath)
	require.NoError(t, err)
	_, err = fw.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document ` + wNS + `><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractText_Docx(t *testing.T) {
	body := `<w:p w:rsidR="00A1"><w:r><w:t>Протокол лечения</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Метформин </w:t></w:r><w:r><w:t>500 мг</w:t></w:r><w:r><w:tab/><w:t>внутрь</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Ячейка</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`
	content := buildDocx(t, "word/document.xml", body, true)

	got, err := NewExtractor(0).ExtractText(bytes.NewReader(content), "protocol.DOCX")
	require.NoError(t, err)
	assert.Equal(t, "Протокол лечения\n\nМетформин 500 мг\tвнутрь\n\nЯчейка", got)
}

func TestExtractText_DocxAlternatePart(t *testing.T) {
	content := buildDocx(t, "word/document2.xml", `<w:p><w:r><w:t>from document2</w:t></w:r></w:p>`, true)

	got, err := NewExtractor(0).ExtractText(bytes.NewReader(content), "p.docx")
	require.NoError(t, err)
	assert.Equal(t, "from document2", got)
}

func TestExtractText_DocxWithoutContentTypes(t *testing.T) {
	content := buildDocx(t, "word/document.xml", `<w:p><w:r><w:t>plain</w:t><w:br/><w:t>next</w:t></w:r></w:p>`, false)

	got, err := NewExtractor(0).ExtractText(bytes.NewReader(content), "p.docx")
	require.NoError(t, err)
	assert.Equal(t, "plain\nnext", got)
}

func TestExtractText_DocxUnreadable(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"not a zip", []byte("this is not a zip")},
		{"missing document part", buildDocx(t, "word/other.xml", "", false)},
		{"broken xml", buildDocx(t, "word/document.xml", `<w:p><w:r><w:t>unclosed`, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor(0).ExtractText(bytes.NewReader(tt.content), "p.docx")
			assert.ErrorIs(t, err, ErrUnreadableDocument)
		})
	}
}

func TestExtractText_Plain(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"utf8", []byte("Метформин 500 мг"), "Метформин 500 мг"},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, "text"...), "text"},
		{"invalid utf8", []byte("hello\x80world"), "hello�world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExtractor(0).ExtractText(bytes.NewReader(tt.in), "notes.md")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractText_PDF(t *testing.T) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Cell(40, 10, "Metformin")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))

	got, err := NewExtractor(0).ExtractText(&buf, "protocol.pdf")
	require.NoError(t, err)
	assert.Contains(t, strings.ReplaceAll(got, " ", ""), "Metformin")
}

func TestExtractText_PDFUnreadable(t *testing.T) {
	_, err := NewExtractor(0).ExtractText(strings.NewReader("%PDF-1.4 garbage"), "protocol.pdf")
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestExtractText_Unsupported(t *testing.T) {
	for _, name := range []string{"protocol.doc", "protocol", "archive.zip"} {
		_, err := NewExtractor(0).ExtractText(strings.NewReader("x"), name)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, name)
	}
}

func TestExtractText_MaxBytes(t *testing.T) {
	e := NewExtractor(4)
	_, err := e.ExtractText(strings.NewReader("12345"), "a.txt")
	assert.ErrorIs(t, err, ErrUnreadableDocument)

	got, err := e.ExtractText(strings.NewReader("1234"), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "1234", got)
}

func TestExtractText_DocxDecompressedLimit(t *testing.T) {
	body := strings.Repeat(`<w:p><w:r><w:t>aaaaaaaaaaaaaaaa</w:t></w:r></w:p>`, 40000)
	content := buildDocx(t, "word/document.xml", body, true)
	require.Less(t, len(content)*docxExpansionRatio, len(body))

	e := NewExtractor(int64(len(content)))
	_, err := e.ExtractText(bytes.NewReader(content), "bomb.docx")
	assert.ErrorIs(t, err, ErrUnreadableDocument)
	assert.Contains(t, err.Error(), "decompressed")

	small := buildDocx(t, "word/document.xml", `<w:p><w:r><w:t>fits</w:t></w:r></w:p>`, true)
	got, err := NewExtractor(int64(len(small))).ExtractText(bytes.NewReader(small), "small.docx")
	require.NoError(t, err)
	assert.Equal(t, "fits", got)
}

func TestDocxPartLimit(t *testing.T) {
	assert.Equal(t, int64(defaultDocxPartBytes), docxPartLimit(0))
	assert.Equal(t, int64(1000*docxExpansionRatio), docxPartLimit(1000))
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.txt")
	require.NoError(t, os.WriteFile(path, []byte("Аспирин"), 0o644))

	got, err := NewExtractor(0).ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Аспирин", got)

	_, err = NewExtractor(0).ExtractFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, ErrUnreadableDocument)
}

func TestSupported(t *testing.T) {
	allowed := []string{".docx", ".pdf"}
	assert.True(t, Supported("a.DOCX", allowed))
	assert.True(t, Supported("dir/b.pdf", allowed))
	assert.False(t, Supported("c.txt", allowed))
	assert.False(t, Supported("noext", allowed))
	assert.False(t, Supported("", allowed))
}
