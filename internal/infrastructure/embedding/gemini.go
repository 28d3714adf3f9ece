package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const taskTypeSemanticSimilarity = "SEMANTIC_SIMILARITY"

type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini returns ErrUnavailable when apiKey is empty.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

func (g *Gemini) ModelName() string {
	return g.model
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if g == nil || g.client == nil {
		return nil, ErrUnavailable
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.EmbedContent(
		ctx,
		g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		&genai.EmbedContentConfig{TaskType: taskTypeSemanticSimilarity},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("gemini embed: no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}
