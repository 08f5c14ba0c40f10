// Package ingestion converts uploaded documents and fetched pages into the
// cleaned plain text a processing unit starts from.
package ingestion

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/llm"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// Supported MIME types
const (
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimeHTML     = "text/html"
	MimeXHTML    = "application/xhtml+xml"
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePNG      = "image/png"
	MimeJPEG     = "image/jpeg"
	MimeWebP     = "image/webp"
	mimeOctet    = "application/octet-stream"
	mimeZip      = "application/zip"
)

// Document is the text extracted from one input
type Document struct {
	Text      string           `json:"text"`
	PageCount int              `json:"page_count"`
	Kind      types.SourceKind `json:"kind"`
	MimeType  string           `json:"mime_type"`
}

// Reader converts raw bytes of one format into a Document
type Reader interface {
	Read(ctx context.Context, data []byte, mimeType string) (*Document, error)
}

// ReaderFunc adapts a function to the Reader interface
type ReaderFunc func(ctx context.Context, data []byte, mimeType string) (*Document, error)

// Read implements Reader
func (f ReaderFunc) Read(ctx context.Context, data []byte, mimeType string) (*Document, error) {
	return f(ctx, data, mimeType)
}

// UnsupportedFormatError is returned when no reader handles a MIME type
type UnsupportedFormatError struct {
	MimeType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format: %s", e.MimeType)
}

// ReadError wraps a failure inside a format reader
type ReadError struct {
	Kind    types.SourceKind
	Message string
	Cause   error
}

func (e *ReadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s reader: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s reader: %s", e.Kind, e.Message)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}

// DetectMIME returns the media type of data without parameters. A declared
// type wins unless it is empty or generic.
func DetectMIME(data []byte, declared string) string {
	if mt := baseType(declared); mt != "" && mt != mimeOctet {
		return mt
	}
	if len(data) == 0 {
		return mimeOctet
	}
	mt := baseType(http.DetectContentType(data))
	if mt != mimeOctet && mt != mimeZip {
		return mt
	}
	// zip containers (docx) and rarer formats need the deeper sniffer
	return baseType(mimetype.Detect(data).String())
}

func baseType(mt string) string {
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return strings.ToLower(mt)
	}
	return parsed
}

// Readers dispatches to the reader registered for a document's MIME type
type Readers struct {
	byType map[string]Reader
	logger *zap.Logger
}

// NewReaders registers the text, HTML, PDF and DOCX readers. Image readers
// are added only when vision is non-nil.
func NewReaders(vision llm.VisionClient, log *zap.Logger) *Readers {
	r := &Readers{byType: make(map[string]Reader), logger: logger.OrNop(log)}
	r.Register(TextReader{}, MimeText, MimeMarkdown)
	r.Register(HTMLReader{}, MimeHTML, MimeXHTML)
	r.Register(PDFReader{}, MimePDF)
	r.Register(DOCXReader{}, MimeDOCX)
	if vision != nil {
		r.Register(NewVisionReader(vision, ""), MimePNG, MimeJPEG, MimeWebP)
	}
	return r
}

// Register binds reader to the given MIME types, replacing earlier bindings
func (r *Readers) Register(reader Reader, mimeTypes ...string) {
	for _, mt := range mimeTypes {
		r.byType[mt] = reader
	}
}

// Supports reports whether a reader is registered for mimeType
func (r *Readers) Supports(mimeType string) bool {
	_, ok := r.byType[baseType(mimeType)]
	return ok
}

// Read sniffs the MIME type when needed and runs the matching reader
func (r *Readers) Read(ctx context.Context, data []byte, mimeType string) (*Document, error) {
	mt := DetectMIME(data, mimeType)
	reader, ok := r.byType[mt]
	if !ok {
		return nil, &UnsupportedFormatError{MimeType: mt}
	}
	doc, err := reader.Read(ctx, data, mt)
	if err != nil {
		return nil, err
	}
	doc.MimeType = mt
	r.logger.Debug("document read",
		zap.String("mime_type", mt),
		zap.String("kind", string(doc.Kind)),
		zap.Int("pages", doc.PageCount),
		zap.Int("chars", len(doc.Text)))
	return doc, nil
}
