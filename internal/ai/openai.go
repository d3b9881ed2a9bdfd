package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIEmbedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type openAIEmbedProvider struct {
	apiKey    string
	baseURL   string
	dimension int
	client    *http.Client
}

func (p *openAIEmbedProvider) Name() string {
	return "openai"
}

func (p *openAIEmbedProvider) Embed(ctx context.Context, model string, text string, _ string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	endpoint := strings.TrimRight(p.baseURL, "/") + "/embeddings"
	data, err := json.Marshal(openAIEmbedRequest{Model: model, Input: text, Dimensions: p.dimension})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openai request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openai response has no embeddings")
	}
	return out.Data[0].Embedding, nil
}

func createOpenAIEmbedFactory(args ProviderArgs) (IEmbedProvider, error) {
	baseURL := strings.TrimSpace(args.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIEmbedProvider{
		apiKey:    strings.TrimSpace(args.APIKey),
		baseURL:   baseURL,
		dimension: args.Dimension,
		client:    args.client(),
	}, nil
}

func init() {
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
