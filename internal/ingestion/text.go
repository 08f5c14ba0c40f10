package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/codex-pipeline/internal/types"
)

var (
	multiSpace  = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines  = regexp.MustCompile(`\n\n\n+`)
	bulletMarks = []string{"- ", "* ", "• ", "· "}
)

// CleanText normalizes line endings and whitespace while keeping headings,
// bullets and indentation. Output is deterministic for a given input.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\u00a0", " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}

	result := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	// markdown headings lose their indentation
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	indent := strings.Repeat(" ", len(line)-len(trimmed))
	if isBulletLine(trimmed) {
		return indent + trimmed
	}
	return indent + multiSpace.ReplaceAllString(trimmed, " ")
}

func isBulletLine(trimmed string) bool {
	for _, mark := range bulletMarks {
		if strings.HasPrefix(trimmed, mark) {
			return true
		}
	}
	return false
}

// TextReader reads plain text and markdown
type TextReader struct{}

// Read implements Reader
func (TextReader) Read(_ context.Context, data []byte, _ string) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, &ReadError{Kind: types.SourceText, Message: "input is not valid UTF-8"}
	}
	return &Document{Text: CleanText(string(data)), PageCount: 1, Kind: types.SourceText}, nil
}

// IngestFromFile reads a local file with the matching reader and returns the
// document with its metadata.
func IngestFromFile(ctx context.Context, readers *Readers, path string) (*Document, *Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("file not found: %w", err)
		}
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := readers.Read(ctx, content, MimeFromPath(path))
	if err != nil {
		return nil, nil, err
	}
	return doc, NewMetadata(doc, path), nil
}

// MimeFromPath covers the extensions content sniffing gets wrong
// (markdown reads as text/plain, docx as a bare zip).
func MimeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return MimeMarkdown
	case ".docx":
		return MimeDOCX
	case ".pdf":
		return MimePDF
	}
	return ""
}
