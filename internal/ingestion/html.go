package ingestion

import (
	"context"

	"github.com/jonathan/codex-pipeline/internal/fetch"
	"github.com/jonathan/codex-pipeline/internal/types"
)

// HTMLReader extracts the main text of an HTML document
type HTMLReader struct{}

// Read implements Reader
func (HTMLReader) Read(_ context.Context, data []byte, _ string) (*Document, error) {
	text, err := fetch.ExtractMainText(string(data),
		fetch.ContentSelectors(fetch.PlatformUnknown),
		fetch.NoiseSelectors(fetch.PlatformUnknown)...)
	if err != nil {
		return nil, &ReadError{Kind: types.SourceHTML, Message: "failed to parse HTML", Cause: err}
	}
	return &Document{Text: CleanText(text), PageCount: 1, Kind: types.SourceHTML}, nil
}
