package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docqa/pkg/config"
	"github.com/docker/docqa/pkg/environment"
	"github.com/docker/docqa/pkg/model/provider/anthropic"
	"github.com/docker/docqa/pkg/model/provider/base"
	"github.com/docker/docqa/pkg/model/provider/gemini"
	"github.com/docker/docqa/pkg/model/provider/hashing"
	"github.com/docker/docqa/pkg/model/provider/openai"
	"github.com/docker/docqa/pkg/model/provider/options"
)

// Provider is the common part of every model client.
type Provider interface {
	// ID returns "provider/model".
	ID() string
}

// ChatProvider generates text from a system prompt and a user prompt.
type ChatProvider interface {
	Provider
	CreateChatCompletion(ctx context.Context, system, prompt string) (string, error)
}

// EmbeddingProvider embeds a single text.
type EmbeddingProvider interface {
	Provider
	CreateEmbedding(ctx context.Context, text string) (*base.EmbeddingResult, error)
}

// BatchEmbeddingProvider embeds many texts per request.
type BatchEmbeddingProvider interface {
	EmbeddingProvider
	CreateBatchEmbedding(ctx context.Context, texts []string) (*base.BatchEmbeddingResult, error)
}

// NewChat creates the chat client for a model configuration.
func NewChat(ctx context.Context, cfg *config.ModelConfig, env environment.Provider, opts ...options.Opt) (ChatProvider, error) {
	slog.Debug("Creating chat provider", "provider", cfg.Provider, "model", cfg.Model)

	switch cfg.Provider {
	case "openai":
		return openai.NewClient(ctx, cfg, env, opts...)
	case "ollama":
		return openai.NewOllamaClient(ctx, cfg, env, opts...)
	case "google":
		return gemini.NewClient(ctx, cfg, env, opts...)
	case "anthropic":
		return anthropic.NewClient(ctx, cfg, env, opts...)
	default:
		slog.Error("Unknown provider type", "type", cfg.Provider)
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Provider)
	}
}

// NewEmbedding creates the embedding client selected by the embedding
// configuration. The requested dimension is passed to APIs that can
// shorten their vectors.
func NewEmbedding(ctx context.Context, cfg config.Embedding, env environment.Provider, opts ...options.Opt) (BatchEmbeddingProvider, error) {
	slog.Debug("Creating embedding provider", "provider", cfg.Provider, "model", cfg.Model, "dimension", cfg.Dimension)

	opts = append([]options.Opt{options.WithDimensions(cfg.Dimension)}, opts...)
	modelCfg := &config.ModelConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
	}

	switch cfg.Provider {
	case "hashing":
		return hashing.New(cfg.Dimension), nil
	case "ollama":
		if modelCfg.Model == "" {
			modelCfg.Model = "all-minilm"
		}
		return openai.NewOllamaClient(ctx, modelCfg, env, opts...)
	case "openai":
		if modelCfg.Model == "" {
			modelCfg.Model = "text-embedding-3-small"
		}
		return openai.NewClient(ctx, modelCfg, env, opts...)
	case "google":
		if modelCfg.Model == "" {
			modelCfg.Model = "gemini-embedding-001"
		}
		return gemini.NewClient(ctx, modelCfg, env, opts...)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
