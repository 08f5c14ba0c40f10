package ingestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/codex-pipeline/internal/types"
)

func TestComputeHash(t *testing.T) {
	hash1 := computeHash("test content")
	hash2 := computeHash("different content")

	assert.Len(t, hash1, 64)
	assert.NotEqual(t, hash1, hash2)
	assert.Equal(t, hash1, computeHash("test content"))
}

func TestNewMetadata(t *testing.T) {
	doc := &Document{Text: "test content", PageCount: 3, Kind: types.SourcePDF, MimeType: MimePDF}
	meta := NewMetadata(doc, "resume.pdf")

	assert.Equal(t, "resume.pdf", meta.Source)
	assert.Equal(t, MimePDF, meta.MimeType)
	assert.Equal(t, types.SourcePDF, meta.Kind)
	assert.Equal(t, 3, meta.PageCount)
	assert.Equal(t, computeHash("test content"), meta.Hash)

	_, err := time.Parse(time.RFC3339, meta.Timestamp)
	require.NoError(t, err)
}
