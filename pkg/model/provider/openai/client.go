package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/docker/docqa/pkg/config"
	"github.com/docker/docqa/pkg/environment"
	"github.com/docker/docqa/pkg/model/provider/base"
	"github.com/docker/docqa/pkg/model/provider/options"
)

// Client talks to the OpenAI API, or to any server that speaks the same
// chat completions and embeddings protocol.
type Client struct {
	base.Config
	client openai.Client
}

// NewClient creates an OpenAI client. OPENAI_API_KEY is required unless
// the model config points to a custom base URL.
func NewClient(ctx context.Context, cfg *config.ModelConfig, env environment.Provider, opts ...options.Opt) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}
	if cfg.Provider != "openai" {
		return nil, errors.New("model type must be 'openai'")
	}

	var requestOptions []option.RequestOption
	if cfg.BaseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(cfg.BaseURL))
		if key := env.Get(ctx, "OPENAI_API_KEY"); key != "" {
			requestOptions = append(requestOptions, option.WithAPIKey(key))
		}
	} else {
		values, err := environment.Require(ctx, env, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		requestOptions = append(requestOptions, option.WithAPIKey(values["OPENAI_API_KEY"]))
	}

	return newClient(cfg, env, requestOptions, opts...), nil
}

// NewOllamaClient creates a client for the OpenAI compatible endpoint of a
// local Ollama server. No authentication is needed.
func NewOllamaClient(ctx context.Context, cfg *config.ModelConfig, env environment.Provider, opts ...options.Opt) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}
	if cfg.Provider != "ollama" {
		return nil, errors.New("model type must be 'ollama'")
	}

	baseURL := OllamaBaseURL(cfg.BaseURL, env.Get(ctx, "OLLAMA_HOST"))
	requestOptions := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey("ollama"),
	}

	slog.Debug("Ollama client created", "model", cfg.Model, "base_url", baseURL)
	return newClient(cfg, env, requestOptions, opts...), nil
}

func newClient(cfg *config.ModelConfig, env environment.Provider, requestOptions []option.RequestOption, opts ...options.Opt) *Client {
	modelOptions := options.Apply(opts...)
	if hc := modelOptions.HTTPClient(); hc != nil {
		requestOptions = append(requestOptions, option.WithHTTPClient(hc))
	}

	return &Client{
		Config: base.Config{
			ModelConfig:  *cfg,
			ModelOptions: modelOptions,
			Env:          env,
		},
		client: openai.NewClient(requestOptions...),
	}
}

// OllamaBaseURL resolves the /v1 endpoint of an Ollama server from the
// configured URL, then OLLAMA_HOST, then the default local address.
func OllamaBaseURL(configured, host string) string {
	u := configured
	if u == "" {
		u = host
	}
	if u == "" {
		u = "http://localhost:11434"
	}
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	u = strings.TrimSuffix(u, "/")
	if !strings.HasSuffix(u, "/v1") {
		u += "/v1"
	}
	return u + "/"
}

// CreateChatCompletion sends a system and a user message and returns the
// assistant's reply.
func (c *Client) CreateChatCompletion(ctx context.Context, system, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.ModelConfig.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}
	if c.ModelConfig.MaxTokens != nil {
		params.MaxTokens = openai.Int(*c.ModelConfig.MaxTokens)
	}
	if c.ModelConfig.Temperature != nil {
		params.Temperature = openai.Float(*c.ModelConfig.Temperature)
	}

	slog.Debug("Creating chat completion", "id", c.ID(), "prompt_length", len(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned by %s", c.ID())
	}

	slog.Debug("Chat completion created",
		"id", c.ID(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

// CreateEmbedding generates an embedding vector for the given text.
func (c *Client) CreateEmbedding(ctx context.Context, text string) (*base.EmbeddingResult, error) {
	batch, err := c.CreateBatchEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	return &base.EmbeddingResult{
		Embedding:   batch.Embeddings[0],
		InputTokens: batch.InputTokens,
		TotalTokens: batch.TotalTokens,
	}, nil
}

// CreateBatchEmbedding generates embedding vectors for multiple texts.
func (c *Client) CreateBatchEmbedding(ctx context.Context, texts []string) (*base.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return &base.BatchEmbeddingResult{Embeddings: [][]float32{}}, nil
	}

	slog.Debug("Creating batch embeddings", "id", c.ID(), "batch_size", len(texts))

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: c.ModelConfig.Model,
	}
	// Ollama rejects the dimensions parameter for fixed-size models.
	if dims := c.ModelOptions.Dimensions(); dims > 0 && c.ModelConfig.Provider == "openai" {
		params.Dimensions = openai.Int(int64(dims))
	}

	response, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch embeddings: %w", err)
	}

	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Data))
	}

	embeddings := make([][]float32, len(texts))
	for i, data := range response.Data {
		pos := int(data.Index)
		if pos < 0 || pos >= len(texts) {
			pos = i
		}
		embeddings[pos] = base.ToFloat32(data.Embedding)
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	slog.Debug("Batch embeddings created",
		"batch_size", len(embeddings),
		"dimension", len(embeddings[0]),
		"total_tokens", response.Usage.TotalTokens)

	return &base.BatchEmbeddingResult{
		Embeddings:  embeddings,
		InputTokens: response.Usage.PromptTokens,
		TotalTokens: response.Usage.TotalTokens,
	}, nil
}
