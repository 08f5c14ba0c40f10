package ingestion

import (
	"context"

	"github.com/jonathan/codex-pipeline/internal/fetch"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// IngestFromURL fetches a job posting page and returns its cleaned main text
func IngestFromURL(ctx context.Context, fetcher fetch.Fetcher, urlStr string) (*Document, *Metadata, error) {
	result, err := fetcher.Fetch(ctx, urlStr)
	if err != nil {
		return nil, nil, err
	}

	doc := &Document{
		Text:      CleanText(result.Text),
		PageCount: 1,
		Kind:      types.SourceHTML,
		MimeType:  MimeHTML,
	}
	meta := NewMetadata(doc, urlStr)
	meta.Platform = string(result.Platform)
	return doc, meta, nil
}
