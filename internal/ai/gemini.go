package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiEmbedProvider struct {
	apiKey    string
	dimension int32
}

func (p *geminiEmbedProvider) Name() string {
	return "gemini"
}

func (p *geminiEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	config := &genai.EmbedContentConfig{TaskType: taskType}
	if p.dimension > 0 {
		dim := p.dimension
		config.OutputDimensionality = &dim
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func createGeminiEmbedFactory(args ProviderArgs) (IEmbedProvider, error) {
	return &geminiEmbedProvider{
		apiKey:    strings.TrimSpace(args.APIKey),
		dimension: int32(args.Dimension),
	}, nil
}

func init() {
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
