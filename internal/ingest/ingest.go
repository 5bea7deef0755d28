// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest extracts plain text from uploaded protocol documents.
// Supported formats are .docx, .pdf, and plain .txt/.md.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnreadableDocument is returned when a document cannot be opened or
// parsed in the format its name claims.
var ErrUnreadableDocument = errors.New("document is unreadable")

// ErrUnsupportedFormat is returned for extensions the extractor does not handle.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// DefaultExtensions lists the extensions ExtractText understands.
var DefaultExtensions = []string{".docx", ".pdf", ".txt", ".md"}

// Extractor reads document bytes and dispatches on the file extension.
type Extractor struct {
	// MaxBytes caps how much of a document is read; zero means no limit.
	MaxBytes int64
}

// NewExtractor returns an Extractor that reads at most maxBytes per document.
func NewExtractor(maxBytes int64) *Extractor {
	return &Extractor{MaxBytes: maxBytes}
}

// ExtractText reads r fully and returns the document's text. name is only
// used for its extension.
func (e *Extractor) ExtractText(r io.Reader, name string) (string, error) {
	ext := Ext(name)
	if !Supported(name, DefaultExtensions) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if e.MaxBytes > 0 {
		r = io.LimitReader(r, e.MaxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrUnreadableDocument, name, err)
	}
	if e.MaxBytes > 0 && int64(len(content)) > e.MaxBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrUnreadableDocument, name, e.MaxBytes)
	}

	var text string
	switch ext {
	case ".docx":
		text, err = extractDOCX(content, docxPartLimit(e.MaxBytes))
	case ".pdf":
		text, err = extractPDF(content)
	default:
		text = extractPlain(content)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, name, err)
	}
	return text, nil
}

// ExtractFile opens path and extracts its text.
func (e *Extractor) ExtractFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	defer f.Close()
	return e.ExtractText(f, filepath.Base(path))
}

// Ext returns the lower-cased extension of name, with its leading dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Supported reports whether name has one of the allowed extensions.
func Supported(name string, allowed []string) bool {
	ext := Ext(name)
	if ext == "" {
		return false
	}
	for _, a := range allowed {
		if strings.EqualFold(ext, a) {
			return true
		}
	}
	return false
}
