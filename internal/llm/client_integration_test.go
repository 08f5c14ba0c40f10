//go:build integration

package llm

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: GEMINI_API_KEY not set")
	}
	ctx := context.Background()

	client, err := NewClient(ctx, DefaultConfig(), apiKey)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	gw := NewGateway(client, 60*time.Second, nil)
	raw, err := gw.Complete(ctx, Request{
		Name:    "integration",
		System:  `Return an object {"skills": [...]} listing the programming languages named in the payload.`,
		Payload: map[string]string{"text": "We use Go and Python on the backend."},
		Shape:   ShapeObject,
		Tier:    TierLite,
	})
	require.NoError(t, err)

	var out struct {
		Skills []string `json:"skills"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.NotEmpty(t, out.Skills)
}
