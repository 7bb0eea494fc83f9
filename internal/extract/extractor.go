// Package extract provides text extraction from document formats found in
// personal file collections.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lu4p/cat"
)

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Plain text files (.txt, .md, .rst) are returned as-is (UTF-8 validated);
// PDF, word-processor formats, and spreadsheets are parsed. Unknown
// extensions are treated as plain text.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".docx", ".odt", ".rtf":
		text, err := cat.File(path)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", ext, err)
		}
		return strings.TrimSpace(text), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}
