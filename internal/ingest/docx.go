// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxDocumentPath   = "word/document.xml"
	contentTypesPath   = "[Content_Types].xml"
	docxMainType       = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	wordprocessingMLNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	// docxExpansionRatio bounds the decompressed main part relative to the
	// upload size cap.
	docxExpansionRatio = 20

	// defaultDocxPartBytes bounds the main part when uploads are uncapped.
	defaultDocxPartBytes = 256 << 20
)

var errPartTooLarge = errors.New("decompressed document part too large")

// extractDOCX returns the text of the main document part. Paragraphs are
// separated by a blank line; tabs and line breaks inside a paragraph are kept.
// Reading the decompressed part stops with an error past partLimit bytes.
func extractDOCX(content []byte, partLimit int64) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("not a zip archive: %w", err)
	}

	docPath := mainDocumentPath(zr)
	f := findZipFile(zr, docPath)
	if f == nil {
		return "", fmt.Errorf("%s not found", docPath)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", docPath, err)
	}
	defer rc.Close()

	text, err := paragraphText(&cappedReader{r: io.LimitReader(rc, partLimit+1), limit: partLimit})
	if errors.Is(err, errPartTooLarge) {
		return "", fmt.Errorf("%s exceeds %d bytes decompressed", docPath, partLimit)
	}
	return text, err
}

// docxPartLimit sizes the decompressed limit from the upload cap.
func docxPartLimit(maxBytes int64) int64 {
	if maxBytes <= 0 {
		return defaultDocxPartBytes
	}
	return maxBytes * docxExpansionRatio
}

// cappedReader fails once more than limit bytes have been read.
type cappedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.read > c.limit {
		return n, errPartTooLarge
	}
	return n, err
}

// paragraphText walks the WordprocessingML token stream.
func paragraphText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		cur        strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing document xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordprocessingMLNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordprocessingMLNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(cur.String()); s != "" {
					paragraphs = append(paragraphs, s)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		paragraphs = append(paragraphs, s)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// mainDocumentPath reads [Content_Types].xml for the main document part and
// falls back to word/document.xml.
func mainDocumentPath(zr *zip.Reader) string {
	f := findZipFile(zr, contentTypesPath)
	if f == nil {
		return docxDocumentPath
	}
	rc, err := f.Open()
	if err != nil {
		return docxDocumentPath
	}
	defer rc.Close()

	var ct struct {
		Overrides []struct {
			PartName    string `xml:"PartName,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Override"`
	}
	if err := xml.NewDecoder(rc).Decode(&ct); err != nil {
		return docxDocumentPath
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxMainType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return docxDocumentPath
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
