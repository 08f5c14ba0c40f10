package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// PDFReader extracts the text layer of a PDF. Scanned PDFs without a text
// layer produce an empty document.
type PDFReader struct{}

// Read implements Reader
func (PDFReader) Read(ctx context.Context, data []byte, _ string) (doc *Document, err error) {
	// the pdf library panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = &ReadError{Kind: types.SourcePDF, Message: "malformed PDF", Cause: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ReadError{Kind: types.SourcePDF, Message: "failed to open PDF", Cause: err}
	}

	pages := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &ReadError{Kind: types.SourcePDF, Message: fmt.Sprintf("failed to read page %d", i), Cause: err}
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	return &Document{Text: CleanText(sb.String()), PageCount: pages, Kind: types.SourcePDF}, nil
}
