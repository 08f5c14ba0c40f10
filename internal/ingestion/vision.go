package ingestion

import (
	"context"
	"strings"

	"github.com/jonathan/codex-pipeline/internal/llm"
	"github.com/jonathan/codex-pipeline/internal/prompts"
	"github.com/jonathan/codex-pipeline/internal/types"
)

const defaultVisionSubject = "document"

// VisionReader transcribes images through a multimodal model
type VisionReader struct {
	client  llm.VisionClient
	subject string
}

// NewVisionReader creates a reader. subject names the document kind in the
// prompt, e.g. "job posting"; empty uses a generic name.
func NewVisionReader(client llm.VisionClient, subject string) *VisionReader {
	if subject == "" {
		subject = defaultVisionSubject
	}
	return &VisionReader{client: client, subject: subject}
}

// Read implements Reader
func (v *VisionReader) Read(ctx context.Context, data []byte, mimeType string) (*Document, error) {
	template, err := prompts.Get("ingestion.json", "transcribe")
	if err != nil {
		return nil, &ReadError{Kind: types.SourceVision, Message: "prompt unavailable", Cause: err}
	}
	prompt := prompts.Format(template, map[string]string{"Subject": v.subject})

	text, err := v.client.GenerateFromImage(ctx, prompt, mimeType, data, llm.TierLite)
	if err != nil {
		return nil, &ReadError{Kind: types.SourceVision, Message: "transcription failed", Cause: err}
	}
	return &Document{Text: CleanText(strings.TrimSpace(text)), PageCount: 1, Kind: types.SourceVision}, nil
}
