package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/docker/docqa/pkg/config"
	"github.com/docker/docqa/pkg/environment"
	"github.com/docker/docqa/pkg/model/provider/base"
	"github.com/docker/docqa/pkg/model/provider/options"
)

const defaultMaxTokens = int64(1500)

// Client represents an Anthropic client wrapper
type Client struct {
	base.Config
	client anthropic.Client
}

// NewClient creates a new Anthropic client from the provided configuration
func NewClient(ctx context.Context, cfg *config.ModelConfig, env environment.Provider, opts ...options.Opt) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}
	if cfg.Provider != "anthropic" {
		return nil, errors.New("model type must be 'anthropic'")
	}

	values, err := environment.Require(ctx, env, "ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}

	modelOptions := options.Apply(opts...)
	requestOptions := []option.RequestOption{
		option.WithAPIKey(values["ANTHROPIC_API_KEY"]),
	}
	if cfg.BaseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(cfg.BaseURL))
	}
	if hc := modelOptions.HTTPClient(); hc != nil {
		requestOptions = append(requestOptions, option.WithHTTPClient(hc))
	}

	slog.Debug("Anthropic client created successfully", "model", cfg.Model)

	return &Client{
		Config: base.Config{
			ModelConfig:  *cfg,
			ModelOptions: modelOptions,
			Env:          env,
		},
		client: anthropic.NewClient(requestOptions...),
	}, nil
}

func (c *Client) buildParams(system, prompt string) anthropic.MessageNewParams {
	maxTokens := defaultMaxTokens
	if c.ModelConfig.MaxTokens != nil {
		maxTokens = *c.ModelConfig.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.ModelConfig.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if c.ModelConfig.Temperature != nil {
		params.Temperature = anthropic.Float(*c.ModelConfig.Temperature)
	}
	return params
}

// CreateChatCompletion sends prompt and concatenates the text blocks of
// the reply.
func (c *Client) CreateChatCompletion(ctx context.Context, system, prompt string) (string, error) {
	params := c.buildParams(system, prompt)

	slog.Debug("Anthropic message request", "model", params.Model, "max_tokens", params.MaxTokens)

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
