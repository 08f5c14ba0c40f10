package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jonathan/codex-pipeline/internal/types"
)

// Metadata describes where a document came from
type Metadata struct {
	Source    string           `json:"source,omitempty"` // file path or URL
	MimeType  string           `json:"mime_type,omitempty"`
	Kind      types.SourceKind `json:"kind"`
	PageCount int              `json:"page_count"`
	Platform  string           `json:"platform,omitempty"` // job board, URL sources only
	Timestamp string           `json:"timestamp"`          // RFC3339
	Hash      string           `json:"hash"`               // SHA-256 of the cleaned text
}

// NewMetadata creates metadata for doc with the current timestamp
func NewMetadata(doc *Document, source string) *Metadata {
	return &Metadata{
		Source:    source,
		MimeType:  doc.MimeType,
		Kind:      doc.Kind,
		PageCount: doc.PageCount,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      computeHash(doc.Text),
	}
}

func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
