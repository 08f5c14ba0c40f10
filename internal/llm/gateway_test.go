package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	response   string
	err        error
	block      bool
	lastPrompt string
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, _ ModelTier) (string, error) {
	f.lastPrompt = prompt
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.response, f.err
}

func (f *fakeClient) GetModel(ModelTier) string { return "fake-model" }
func (f *fakeClient) Close() error { return nil }

func TestClientGateway_Complete(t *testing.T) {
	tests := []struct {
		name     string
		client   *fakeClient
		shape    Shape
		want     string
		wantKind GatewayErrorKind
	}{
		{
			name:   "object",
			client: &fakeClient{response: `{"a": 1}`},
			shape:  ShapeObject,
			want:   `{"a": 1}`,
		},
		{
			name:   "fenced array with preamble",
			client: &fakeClient{response: "Here you go:\n```json\n[{\"text\": \"x\"}]\n```"},
			shape:  ShapeArray,
			want:   `[{"text": "x"}]`,
		},
		{
			name:     "array where object expected",
			client:   &fakeClient{response: `[1, 2]`},
			shape:    ShapeObject,
			wantKind: KindMalformed,
		},
		{
			name:     "not json",
			client:   &fakeClient{response: "sorry, I cannot help with that"},
			shape:    ShapeObject,
			wantKind: KindMalformed,
		},
		{
			name:     "truncated json",
			client:   &fakeClient{response: `{"a": [1, 2`},
			shape:    ShapeObject,
			wantKind: KindMalformed,
		},
		{
			name:     "transport failure",
			client:   &fakeClient{err: errors.New("connection reset")},
			shape:    ShapeObject,
			wantKind: KindTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewGateway(tt.client, time.Second, nil)
			raw, err := gw.Complete(context.Background(), Request{Name: tt.name, System: "Extract.", Payload: map[string]string{"text": "hi"}, Shape: tt.shape})
			if tt.wantKind != "" {
				var gwErr *GatewayError
				require.ErrorAs(t, err, &gwErr)
				assert.Equal(t, tt.wantKind, gwErr.Kind)
				assert.Nil(t, raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(raw))
			assert.True(t, json.Valid(raw))
		})
	}
}

func TestClientGateway_Timeout(t *testing.T) {
	gw := NewGateway(&fakeClient{block: true}, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := gw.Complete(context.Background(), Request{Name: "slow", Shape: ShapeObject})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, KindTimeout, gwErr.Kind)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientGateway_PromptCarriesPayload(t *testing.T) {
	client := &fakeClient{response: `[]`}
	gw := NewGateway(client, 0, nil)

	_, err := gw.Complete(context.Background(), Request{
		System:  "List every requirement.",
		Payload: map[string]string{"source_text": "Go developer wanted"},
		Shape:   ShapeArray,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(client.lastPrompt, "List every requirement."))
	assert.Contains(t, client.lastPrompt, "JSON array")
	assert.Contains(t, client.lastPrompt, `"source_text":"Go developer wanted"`)
	assert.Equal(t, DefaultTimeout, gw.timeout)
}

func TestGatewayError_Error(t *testing.T) {
	err := &GatewayError{Kind: KindTransport, Request: "synthesis", Message: "completion failed", Cause: errors.New("boom")}
	assert.Equal(t, "gateway transport (synthesis): completion failed: boom", err.Error())
	assert.Equal(t, "boom", errors.Unwrap(err).Error())
}

func TestGatewayFunc(t *testing.T) {
	var gw Gateway = GatewayFunc(func(_ context.Context, req Request) (json.RawMessage, error) {
		return json.RawMessage(`{"name":"` + req.Name + `"}`), nil
	})
	raw, err := gw.Complete(context.Background(), Request{Name: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x"}`, string(raw))
}
