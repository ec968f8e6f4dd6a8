package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/docker/docqa/pkg/config"
	"github.com/docker/docqa/pkg/environment"
	"github.com/docker/docqa/pkg/model/provider/base"
	"github.com/docker/docqa/pkg/model/provider/options"
)

// Client wraps the Gemini API for chat and embeddings.
type Client struct {
	base.Config
	client *genai.Client
}

// NewClient creates a Gemini client from GEMINI_API_KEY, or GOOGLE_API_KEY
// when the former is not set.
func NewClient(ctx context.Context, cfg *config.ModelConfig, env environment.Provider, opts ...options.Opt) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}
	if cfg.Provider != "google" {
		return nil, errors.New("model type must be 'google'")
	}

	apiKey, err := environment.FirstOf(ctx, env, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	if err != nil {
		return nil, err
	}

	modelOptions := options.Apply(opts...)
	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	}
	if hc := modelOptions.HTTPClient(); hc != nil {
		clientConfig.HTTPClient = hc
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	slog.Debug("Gemini client created successfully", "model", cfg.Model)

	return &Client{
		Config: base.Config{
			ModelConfig:  *cfg,
			ModelOptions: modelOptions,
			Env:          env,
		},
		client: client,
	}, nil
}

func (c *Client) buildConfig(system string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if c.ModelConfig.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*c.ModelConfig.Temperature))
	}
	if c.ModelConfig.MaxTokens != nil {
		config.MaxOutputTokens = int32(*c.ModelConfig.MaxTokens)
	}
	return config
}

// CreateChatCompletion generates a single answer for prompt.
func (c *Client) CreateChatCompletion(ctx context.Context, system, prompt string) (string, error) {
	slog.Debug("Creating Gemini completion", "model", c.ModelConfig.Model, "prompt_length", len(prompt))

	resp, err := c.client.Models.GenerateContent(ctx, c.ModelConfig.Model, genai.Text(prompt), c.buildConfig(system))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// CreateEmbedding generates an embedding vector for the given text.
func (c *Client) CreateEmbedding(ctx context.Context, text string) (*base.EmbeddingResult, error) {
	batch, err := c.CreateBatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return &base.EmbeddingResult{Embedding: batch.Embeddings[0]}, nil
}

// CreateBatchEmbedding embeds each text as its own content entry.
func (c *Client) CreateBatchEmbedding(ctx context.Context, texts []string) (*base.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return &base.BatchEmbeddingResult{Embeddings: [][]float32{}}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	embedConfig := &genai.EmbedContentConfig{}
	if dims := c.ModelOptions.Dimensions(); dims > 0 {
		embedConfig.OutputDimensionality = genai.Ptr(int32(dims))
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.ModelConfig.Model, contents, embedConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	embeddings := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		embeddings[i] = e.Values
	}

	slog.Debug("Gemini batch embeddings created", "batch_size", len(embeddings), "dimension", len(embeddings[0]))

	return &base.BatchEmbeddingResult{Embeddings: embeddings}, nil
}
