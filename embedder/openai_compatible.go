package embedder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/timescale/TimescaleDB-HybridSearch/internal/normalize"
)

// OpenAICompatibleConfig configures an embeddings client against any
// OpenAI-compatible endpoint (TEI, Ollama, DeepInfra, ...) serving the
// all-mpnet-base-v2 family the dataset was embedded with.
type OpenAICompatibleConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int // expected vector length; 0 skips the check
	Timeout    time.Duration
}

type OpenAICompatibleEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

var _ Embedder = (*OpenAICompatibleEmbedder)(nil)

func NewOpenAICompatible(cfg OpenAICompatibleConfig) (*OpenAICompatibleEmbedder, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	openaiCfg := openai.DefaultConfig(cfg.APIKey)
	openaiCfg.BaseURL = cfg.BaseURL
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	openaiCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAICompatibleEmbedder{
		client:     openai.NewClientWithConfig(openaiCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (e *OpenAICompatibleEmbedder) Model() string   { return e.model }
func (e *OpenAICompatibleEmbedder) Dimensions() int { return e.dimensions }

func (e *OpenAICompatibleEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Data) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(resp.Data))
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), e.dimensions)
	}
	normalize.L2NormalizeInPlace(vec)
	return vec, nil
}
